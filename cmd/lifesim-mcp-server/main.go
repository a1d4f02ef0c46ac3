package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"lifesim/internal/config"
	"lifesim/internal/dashboard"
	"lifesim/internal/llm"
	"lifesim/internal/logger"
	"lifesim/internal/session"
	"lifesim/internal/simulation"
)

// stdio serves a single client, so every tool call shares one session.
const sessionKey = "mcp:stdio"

// SimulateParams are the arguments of the simulate_decision tool.
type SimulateParams struct {
	Decision      string `json:"decision" mcp:"the life decision to simulate (e.g. 'Quit my job to start a bakery')"`
	CurrentAge    int    `json:"current_age,omitempty" mcp:"current age, 16-99 (default: 25)"`
	CurrentStatus string `json:"current_status,omitempty" mcp:"current situation: savings, job, family"`
	RiskTolerance string `json:"risk_tolerance,omitempty" mcp:"one of Low, Medium, High, Degen (default: Medium)"`
	Goals         string `json:"goals,omitempty" mcp:"what the user wants to achieve"`
}

// LifeSimMCPServer exposes the forecaster as an MCP tool.
type LifeSimMCPServer struct {
	sessions *session.Manager
}

func NewLifeSimMCPServer(f session.Forecaster) *LifeSimMCPServer {
	return &LifeSimMCPServer{sessions: session.NewManager(f, nil)}
}

func (p SimulateParams) input() simulation.UserInput {
	in := simulation.UserInput{
		Decision:      strings.TrimSpace(p.Decision),
		CurrentAge:    p.CurrentAge,
		CurrentStatus: p.CurrentStatus,
		RiskTolerance: simulation.RiskTolerance(p.RiskTolerance),
		Goals:         p.Goals,
	}
	if in.CurrentAge == 0 {
		in.CurrentAge = simulation.DefaultAge
	}
	if in.RiskTolerance == "" {
		in.RiskTolerance = simulation.DefaultRiskTolerance
	}
	return in
}

func errorResult(text string) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// Simulate runs one forecast and returns the dashboard text plus the raw result JSON.
func (s *LifeSimMCPServer) Simulate(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[SimulateParams]) (*mcp.CallToolResultFor[any], error) {
	ctrl := s.sessions.Get(sessionKey)
	st, err := ctrl.Submit(ctx, params.Arguments.input())
	switch {
	case errors.Is(err, session.ErrBusy):
		return errorResult("❌ A simulation is already running, try again later"), nil
	case err != nil:
		return errorResult(fmt.Sprintf("❌ %v", err)), nil
	}
	// The caller owns the result from here on; the session keeps no history.
	defer func() {
		if err := s.sessions.Reset(sessionKey); err != nil {
			logger.Get().Warn("failed to reset mcp session", zap.Error(err))
		}
	}()

	if st.Status != session.StatusComplete || st.Result == nil {
		return errorResult(st.Error), nil
	}

	raw, err := json.MarshalIndent(st.Result, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("❌ Failed to encode result: %v", err)), nil
	}
	text := dashboard.FormatText(dashboard.Build(*st.Result))
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
			&mcp.TextContent{Text: string(raw)},
		},
	}, nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ configuration error: %v", err)
	}
	// zap writes to stderr, which keeps stdout free for the protocol.
	if err := logger.Init(cfg.LogDevelopment, cfg.LogLevel); err != nil {
		log.Fatalf("❌ failed to init logger: %v", err)
	}
	defer logger.Sync()
	lg := logger.Get()

	ctx := context.Background()
	client, err := llm.NewFactory(cfg).CreateClient(ctx, string(cfg.LLMProvider), cfg.Model())
	if err != nil {
		lg.Fatal("❌ failed to create llm client", zap.Error(err))
	}
	srv := NewLifeSimMCPServer(simulation.NewRequester(client, simulation.LoadInstruction(cfg.SystemPromptPath)))

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "lifesim-mcp",
		Version: "1.0.0",
	}, nil)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "simulate_decision",
		Description: "Forecasts the next 10 years (years 1, 3, 5, 10) of a life decision: scores, narrative, hidden risks, key forks and brutal truths",
	}, srv.Simulate)

	lg.Info("🚀 starting lifesim MCP server on stdin/stdout", zap.String("provider", string(cfg.LLMProvider)))
	if err := server.Run(ctx, mcp.NewStdioTransport()); err != nil {
		lg.Fatal("❌ MCP server failed", zap.Error(err))
	}
}
