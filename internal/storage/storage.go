package storage

import "time"

// Event is one finished simulation request. It records usage only, never the
// scenario or the forecast text.
type Event struct {
	Timestamp        time.Time `json:"timestamp"`
	Channel          string    `json:"channel"`
	SessionKey       string    `json:"session_key"`
	RiskTolerance    string    `json:"risk_tolerance"`
	Outcome          string    `json:"outcome"`
	ErrorKind        string    `json:"error_kind,omitempty"`
	Model            string    `json:"model,omitempty"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	DurationMs       int64     `json:"duration_ms"`
}

const (
	OutcomeComplete = "complete"
	OutcomeError    = "error"
)

// Recorder abstracts persistence of usage events.
// LoadEvents returns events in the order they were appended.
// Implementations must be safe for concurrent use.
type Recorder interface {
	AppendEvent(event Event) error
	LoadEvents() ([]Event, error)
}
