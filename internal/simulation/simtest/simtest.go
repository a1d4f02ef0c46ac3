// Package simtest provides fixtures and a fake model client for tests.
package simtest

import (
	"context"
	"sync"

	"lifesim/internal/llm"
	"lifesim/internal/simulation"
)

// BakeryInput is the canonical example scenario.
var BakeryInput = simulation.UserInput{
	Decision:      "Quit job to start a bakery",
	CurrentAge:    30,
	CurrentStatus: "$10k savings",
	RiskTolerance: simulation.RiskHigh,
	Goals:         "financial freedom",
}

// ResultJSON is a well-formed provider body with four timeline points.
const ResultJSON = `{
  "assumptions": ["No partner income", "Rent in a mid-size city"],
  "timeline": [
    {"year": 1, "label": "The Honeymoon Phase", "financialStability": 35, "mentalHealth": 70, "relationships": 60, "regretProbability": 20,
     "narrative": "Savings drain faster than sales grow.", "hiddenRisks": ["Equipment lease", "Health insurance gap"]},
    {"year": 3, "label": "The Grind", "financialStability": 45, "mentalHealth": 50, "relationships": 45, "regretProbability": 40,
     "narrative": "Margins stay thin.", "hiddenRisks": ["Burnout"]},
    {"year": 5, "label": "The Fork", "financialStability": 60, "mentalHealth": 55, "relationships": 50, "regretProbability": 35,
     "narrative": "Either a second location or a quiet exit.", "hiddenRisks": ["Landlord rent hike", "Debt refinancing", "Key staff leaves"]},
    {"year": 10, "label": "Compounding", "financialStability": 70, "mentalHealth": 65, "relationships": 55, "regretProbability": 25,
     "narrative": "The business either compounds or you do.", "hiddenRisks": []}
  ],
  "keyForks": [
    {"decisionPoint": "Take an SBA loan in year 2", "implication": "Personal guarantee ties your house to the bakery."},
    {"decisionPoint": "Hire a manager", "implication": "Margins shrink, sanity returns."}
  ],
  "bestCase": "A profitable neighbourhood staple by year 6.",
  "worstCase": "Closed in year 2 with $40k of personal debt.",
  "brutalTruths": ["Most bakeries fail within three years.", "You will work weekends."],
  "alternativeStrategy": "Run a weekend market stall for a year before quitting."
}`

// FakeClient records every request and replies with Response/Err.
// Release, when set, blocks Generate until it is closed.
type FakeClient struct {
	Response llm.Response
	Err      error
	Release  chan struct{}

	mu       sync.Mutex
	requests []llm.Request
}

func (f *FakeClient) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.Release != nil {
		<-f.Release
	}
	return f.Response, f.Err
}

func (f *FakeClient) Requests() []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.Request(nil), f.requests...)
}

// OK returns a client answering with ResultJSON.
func OK() *FakeClient {
	return &FakeClient{Response: llm.Response{Content: ResultJSON, Model: "fake-model", PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30}}
}

// MustResult decodes ResultJSON.
func MustResult() simulation.Result {
	res, err := simulation.Decode(ResultJSON)
	if err != nil {
		panic(err)
	}
	return res
}
