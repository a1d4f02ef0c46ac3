package simulation

import "errors"

var (
	// ErrInvalidInput marks a submission that violates the form constraints.
	ErrInvalidInput = errors.New("invalid input")
	// ErrTransport wraps any provider or network failure.
	ErrTransport = errors.New("simulation engine unreachable")
	// ErrEmptyResponse is returned when the provider sends no text body.
	ErrEmptyResponse = errors.New("no response from simulation engine")
	// ErrDecode wraps malformed JSON and JSON missing required fields.
	ErrDecode = errors.New("malformed simulation result")
)

// FailureMessage is the only failure text shown to users, whatever the cause.
const FailureMessage = "Simulation Engine Failure. The future is currently indecipherable. Try again."
