package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"lifesim/internal/simulation"
)

type step int

const (
	stepDecision step = iota
	stepAge
	stepRisk
	stepStatus
	stepGoals
	stepDone
)

const skipCmd = "/skip"

// dialog collects the five form fields one message at a time.
type dialog struct {
	step  step
	input simulation.UserInput
}

func newDialog() *dialog {
	return &dialog{step: stepDecision, input: simulation.UserInput{RiskTolerance: simulation.DefaultRiskTolerance}}
}

func (d *dialog) prompt() string {
	switch d.step {
	case stepDecision:
		return "What decision do you want to simulate?\n(e.g. Quit my stable job to start a bakery)"
	case stepAge:
		return fmt.Sprintf("How old are you? (%d–%d)", simulation.MinAge, simulation.MaxAge)
	case stepRisk:
		return "Pick your risk tolerance:"
	case stepStatus:
		return "Describe your current status (savings, job, family). Send /skip to leave it empty."
	case stepGoals:
		return "What are your goals? Send /skip to leave it empty."
	default:
		return ""
	}
}

// acceptText applies a text answer to the current step. It returns a user-facing
// complaint when the answer is rejected.
func (d *dialog) acceptText(text string) string {
	text = strings.TrimSpace(text)
	switch d.step {
	case stepDecision:
		if text == "" || text == skipCmd {
			return "The decision is required."
		}
		d.input.Decision = text
		d.step = stepAge
	case stepAge:
		age, err := strconv.Atoi(text)
		if err != nil || age < simulation.MinAge || age > simulation.MaxAge {
			return fmt.Sprintf("Please send a number between %d and %d.", simulation.MinAge, simulation.MaxAge)
		}
		d.input.CurrentAge = age
		d.step = stepRisk
	case stepRisk:
		r := simulation.RiskTolerance(text)
		if !r.Valid() {
			return "Use the buttons to pick a risk tolerance."
		}
		d.input.RiskTolerance = r
		d.step = stepStatus
	case stepStatus:
		if text != skipCmd {
			d.input.CurrentStatus = text
		}
		d.step = stepGoals
	case stepGoals:
		if text != skipCmd {
			d.input.Goals = text
		}
		d.step = stepDone
	}
	return ""
}

func (d *dialog) done() bool { return d.step == stepDone }
