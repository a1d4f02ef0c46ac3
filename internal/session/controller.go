package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"lifesim/internal/llm"
	"lifesim/internal/logger"
	"lifesim/internal/simulation"
)

// Forecaster is satisfied by *simulation.Requester.
type Forecaster interface {
	Request(ctx context.Context, in simulation.UserInput) (simulation.Result, llm.Response, error)
}

// Outcome describes one finished request, for usage accounting.
type Outcome struct {
	Key      string
	Input    simulation.UserInput
	Meta     llm.Response
	Err      error
	Started  time.Time
	Duration time.Duration
}

// Controller owns the state machine of a single session.
type Controller struct {
	key        string
	forecaster Forecaster
	observe    func(Outcome)

	mu    sync.Mutex
	state State
	wg    sync.WaitGroup
}

func newController(key string, f Forecaster, observe func(Outcome)) *Controller {
	return &Controller{
		key:        key,
		forecaster: f,
		observe:    observe,
		state:      State{Status: StatusIdle, UpdatedAt: time.Now()},
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start validates the input, moves Idle to Loading and runs the request in the background.
// The request is detached from the caller's context and cannot be cancelled.
// A call while Loading returns ErrBusy and changes nothing.
func (c *Controller) Start(in simulation.UserInput) error {
	started, err := c.begin(in)
	if err != nil {
		return err
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(context.Background(), in, started)
	}()
	return nil
}

// Submit is the blocking variant of Start. It returns the state reached after the request.
func (c *Controller) Submit(ctx context.Context, in simulation.UserInput) (State, error) {
	started, err := c.begin(in)
	if err != nil {
		return c.Snapshot(), err
	}
	c.run(ctx, in, started)
	return c.Snapshot(), nil
}

// Reset returns Complete or Error to Idle, discarding result, error and input.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, err := c.state.reset(time.Now())
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// Wait blocks until the background request, if any, has finished.
func (c *Controller) Wait() { c.wg.Wait() }

func (c *Controller) begin(in simulation.UserInput) (time.Time, error) {
	if err := in.Validate(); err != nil {
		return time.Time{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	next, err := c.state.begin(in, now)
	if err != nil {
		logger.Get().Debug("submit ignored", zap.String("session", c.key), zap.String("status", string(c.state.Status)), zap.Error(err))
		return time.Time{}, err
	}
	c.state = next
	return now, nil
}

func (c *Controller) run(ctx context.Context, in simulation.UserInput, started time.Time) {
	res, meta, err := c.forecaster.Request(ctx, in)

	c.mu.Lock()
	now := time.Now()
	if err != nil {
		c.state = c.state.fail(now)
	} else {
		c.state = c.state.complete(res, now)
	}
	c.mu.Unlock()

	if c.observe != nil {
		c.observe(Outcome{Key: c.key, Input: in, Meta: meta, Err: err, Started: started, Duration: now.Sub(started)})
	}
}
