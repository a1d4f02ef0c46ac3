package llm

import "context"

// Request is a single-shot generation: one instruction, one prompt, optional response schema.
type Request struct {
	System      string
	Prompt      string
	Schema      *Schema
	SchemaName  string
	Temperature *float32
}

type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type Client interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// Float32 returns a pointer to v, for Request.Temperature.
func Float32(v float32) *float32 { return &v }
