package session

import (
	"errors"
	"time"

	"lifesim/internal/simulation"
)

type Status string

const (
	StatusIdle     Status = "IDLE"
	StatusLoading  Status = "LOADING"
	StatusComplete Status = "COMPLETE"
	StatusError    Status = "ERROR"
)

var (
	// ErrBusy is returned when a request is already in flight.
	ErrBusy = errors.New("simulation already in progress")
	// ErrNotIdle is returned when submitting from Complete or Error without a reset.
	ErrNotIdle = errors.New("reset before starting a new simulation")
)

// State is the status/result/error triple for one session. Result is set only in
// Complete, Error only in Error.
type State struct {
	Status    Status
	Input     *simulation.UserInput
	Result    *simulation.Result
	Error     string
	UpdatedAt time.Time
}

func (s State) begin(in simulation.UserInput, now time.Time) (State, error) {
	switch s.Status {
	case StatusLoading:
		return s, ErrBusy
	case StatusComplete, StatusError:
		return s, ErrNotIdle
	}
	return State{Status: StatusLoading, Input: &in, UpdatedAt: now}, nil
}

func (s State) complete(res simulation.Result, now time.Time) State {
	return State{Status: StatusComplete, Input: s.Input, Result: &res, UpdatedAt: now}
}

func (s State) fail(now time.Time) State {
	return State{Status: StatusError, Input: s.Input, Error: simulation.FailureMessage, UpdatedAt: now}
}

func (s State) reset(now time.Time) (State, error) {
	if s.Status == StatusLoading {
		return s, ErrBusy
	}
	return State{Status: StatusIdle, UpdatedAt: now}, nil
}
