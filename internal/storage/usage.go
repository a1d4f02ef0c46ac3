package storage

import (
	"errors"
	"strings"

	"lifesim/internal/session"
	"lifesim/internal/simulation"
)

// Session keys are "<channel>:<id>".
func splitKey(key string) (channel, id string) {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i], key[i+1:]
	}
	return "unknown", key
}

// ErrorKind classifies a request failure into the error taxonomy.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, simulation.ErrTransport):
		return "transport"
	case errors.Is(err, simulation.ErrEmptyResponse):
		return "empty_response"
	case errors.Is(err, simulation.ErrDecode):
		return "decode"
	default:
		return "unknown"
	}
}

// EventFromOutcome converts a finished request into a usage event.
func EventFromOutcome(o session.Outcome) Event {
	channel, id := splitKey(o.Key)
	ev := Event{
		Timestamp:        o.Started.UTC(),
		Channel:          channel,
		SessionKey:       id,
		RiskTolerance:    string(o.Input.RiskTolerance),
		Outcome:          OutcomeComplete,
		Model:            o.Meta.Model,
		PromptTokens:     o.Meta.PromptTokens,
		CompletionTokens: o.Meta.CompletionTokens,
		TotalTokens:      o.Meta.TotalTokens,
		DurationMs:       o.Duration.Milliseconds(),
	}
	if o.Err != nil {
		ev.Outcome = OutcomeError
		ev.ErrorKind = ErrorKind(o.Err)
	}
	return ev
}
