package simulation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"lifesim/internal/llm"
	"lifesim/internal/logger"
)

// Requester performs the single forecast exchange with the model.
type Requester struct {
	client      llm.Client
	instruction string
}

// NewRequester uses Instruction when instruction is empty.
func NewRequester(client llm.Client, instruction string) *Requester {
	if strings.TrimSpace(instruction) == "" {
		instruction = Instruction
	}
	return &Requester{client: client, instruction: instruction}
}

// Request sends exactly one request and never retries. The returned llm.Response carries
// model and token usage even when decoding fails.
func (r *Requester) Request(ctx context.Context, in UserInput) (Result, llm.Response, error) {
	log := logger.Get()
	start := time.Now()

	resp, err := r.client.Generate(ctx, llm.Request{
		System:      r.instruction,
		Prompt:      BuildPrompt(in),
		Schema:      ResponseSchema(),
		SchemaName:  schemaName,
		Temperature: llm.Float32(Temperature),
	})
	if err != nil {
		log.Error("❌ simulation request failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return Result{}, llm.Response{}, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	res, err := Decode(resp.Content)
	if err != nil {
		if errors.Is(err, ErrEmptyResponse) {
			log.Warn("⚠️ simulation engine returned empty body", zap.String("model", resp.Model))
		} else {
			log.Warn("⚠️ simulation result rejected", zap.String("model", resp.Model), zap.Error(err))
		}
		return Result{}, resp, err
	}

	log.Info("✅ simulation complete",
		zap.String("model", resp.Model),
		zap.Int("timeline_points", len(res.Timeline)),
		zap.Int("prompt_tokens", resp.PromptTokens),
		zap.Int("completion_tokens", resp.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, resp, nil
}

// LoadInstruction reads an instruction override. Unreadable files fall back to the built-in one.
func LoadInstruction(path string) string {
	if path == "" {
		return Instruction
	}
	data, err := os.ReadFile(path)
	if err != nil || strings.TrimSpace(string(data)) == "" {
		logger.Get().Warn("system prompt file not found or unreadable, using built-in instruction", zap.String("path", path), zap.Error(err))
		return Instruction
	}
	return string(data)
}
