package llm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	v1 "github.com/yandex-cloud/go-genproto/yandex/cloud/ai/foundation_models/v1"
	ya "github.com/yandex-cloud/go-genproto/yandex/cloud/ai/foundation_models/v1/text_generation"
	"google.golang.org/genai"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

func testSchema() *Schema {
	return &Schema{
		Type: TypeObject,
		Properties: map[string]*Schema{
			"items": {Type: TypeArray, Items: &Schema{Type: TypeString}},
			"count": {Type: TypeInteger, Description: "how many"},
		},
		Required: []string{"items", "count"},
	}
}

func TestSchemaJSON(t *testing.T) {
	var decoded map[string]interface{}
	if err := json.Unmarshal(testSchema().JSON(), &decoded); err != nil {
		t.Fatalf("schema is not valid JSON: %v", err)
	}
	if decoded["type"] != "object" {
		t.Fatalf("unexpected type: %v", decoded["type"])
	}
	props := decoded["properties"].(map[string]interface{})
	items := props["items"].(map[string]interface{})
	if items["type"] != "array" || items["items"].(map[string]interface{})["type"] != "string" {
		t.Fatalf("array items lost: %+v", items)
	}
}

func TestSchemaGenAI(t *testing.T) {
	g := testSchema().GenAI()
	if g.Type != genai.TypeObject {
		t.Fatalf("want OBJECT, got %v", g.Type)
	}
	if g.Properties["items"].Type != genai.TypeArray || g.Properties["items"].Items.Type != genai.TypeString {
		t.Fatalf("array conversion wrong: %+v", g.Properties["items"])
	}
	if g.Properties["count"].Type != genai.TypeInteger || g.Properties["count"].Description != "how many" {
		t.Fatalf("integer conversion wrong: %+v", g.Properties["count"])
	}
	if len(g.Required) != 2 {
		t.Fatalf("required lost: %v", g.Required)
	}
	var nilSchema *Schema
	if nilSchema.GenAI() != nil {
		t.Fatalf("nil schema must convert to nil")
	}
}

func TestFactory_UnknownProvider(t *testing.T) {
	f := &Factory{}
	if _, err := f.CreateClient(context.Background(), "nope", "m"); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestFactory_GeminiRequiresKey(t *testing.T) {
	f := &Factory{}
	if _, err := f.CreateClient(context.Background(), ProviderGemini, "m"); err == nil {
		t.Fatalf("expected error without api key")
	}
}

func TestOpenAIClient_SendsSchemaAndTemperature(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"x","object":"chat.completion","model":"m","choices":[{"index":0,"message":{"role":"assistant","content":"{\"count\":1}"},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":4,"total_tokens":7}}`)
	}))
	defer srv.Close()

	c := NewOpenAI("key", srv.URL+"/v1", "m", "", "", 0)
	resp, err := c.Generate(context.Background(), Request{
		System:      "sys",
		Prompt:      "hello",
		Schema:      testSchema(),
		SchemaName:  "counter",
		Temperature: Float32(0.4),
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resp.Content != `{"count":1}` || resp.TotalTokens != 7 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if body["temperature"] != 0.4 {
		t.Fatalf("temperature not sent: %v", body["temperature"])
	}
	rf, ok := body["response_format"].(map[string]interface{})
	if !ok || rf["type"] != "json_schema" {
		t.Fatalf("response_format missing: %v", body["response_format"])
	}
	msgs := body["messages"].([]interface{})
	if len(msgs) != 2 || msgs[0].(map[string]interface{})["role"] != "system" {
		t.Fatalf("unexpected messages: %v", msgs)
	}
}

func TestGeminiClient_StructuredRequest(t *testing.T) {
	var body map[string]interface{}
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"count\":2}"}]}}],"usageMetadata":{"promptTokenCount":3,"candidatesTokenCount":4,"totalTokenCount":7}}`)
	}))
	defer srv.Close()

	c, err := NewGemini(context.Background(), "key", "gemini-test", srv.URL, 0)
	if err != nil {
		t.Fatalf("new gemini: %v", err)
	}
	resp, err := c.Generate(context.Background(), Request{
		System:      "sys",
		Prompt:      "hello",
		Schema:      testSchema(),
		Temperature: Float32(0.4),
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if calls != 1 {
		t.Fatalf("want exactly one request, got %d", calls)
	}
	if resp.Content != `{"count":2}` || resp.TotalTokens != 7 || resp.Model != "gemini-test" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	gc, ok := body["generationConfig"].(map[string]interface{})
	if !ok {
		t.Fatalf("generationConfig missing: %v", body)
	}
	if gc["responseMimeType"] != "application/json" {
		t.Fatalf("mime type not requested: %v", gc)
	}
	if _, ok := gc["responseSchema"]; !ok {
		t.Fatalf("schema not sent: %v", gc)
	}
}

func TestSchemaInstruction(t *testing.T) {
	if got := schemaInstruction(Request{System: "sys"}); got != "sys" {
		t.Fatalf("without schema the instruction is unchanged, got %q", got)
	}
	got := schemaInstruction(Request{System: "sys", Schema: testSchema()})
	if !strings.HasPrefix(got, "sys") || !strings.Contains(got, `"required":["items","count"]`) {
		t.Fatalf("schema not appended: %q", got)
	}
}

func TestOpenAIClient_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"message":"boom","type":"server_error"}}`)
	}))
	defer srv.Close()

	c := NewOpenAI("key", srv.URL+"/v1", "m", "", "", 0)
	if _, err := c.Generate(context.Background(), Request{Prompt: "hello"}); err == nil {
		t.Fatalf("expected error for HTTP 500")
	}
}

type fakeCompletionStream struct {
	grpc.ClientStream
	resp *ya.CompletionResponse
	err  error
}

func (s fakeCompletionStream) Recv() (*ya.CompletionResponse, error) { return s.resp, s.err }

type fakeTextGeneration struct {
	req  *ya.CompletionRequest
	md   metadata.MD
	resp *ya.CompletionResponse
	err  error
}

func (f *fakeTextGeneration) Completion(ctx context.Context, in *ya.CompletionRequest, _ ...grpc.CallOption) (ya.TextGenerationService_CompletionClient, error) {
	f.req = in
	f.md, _ = metadata.FromOutgoingContext(ctx)
	if f.err != nil {
		return nil, f.err
	}
	return fakeCompletionStream{resp: f.resp}, nil
}

func TestYandexClient_SendsTemperatureAndSchema(t *testing.T) {
	gen := &fakeTextGeneration{resp: &ya.CompletionResponse{
		Alternatives: []*v1.Alternative{{Message: &v1.Message{Role: "assistant", Content: &v1.Message_Text{Text: `{"count":3}`}}}},
		Usage:        &v1.ContentUsage{InputTextTokens: 3, CompletionTokens: 4, TotalTokens: 7},
	}}
	c := newYandexClient(gen, "iam", "folder")

	resp, err := c.Generate(context.Background(), Request{
		System:      "sys",
		Prompt:      "hello",
		Schema:      testSchema(),
		Temperature: Float32(0.4),
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resp.Content != `{"count":3}` || resp.TotalTokens != 7 || resp.PromptTokens != 3 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	temp := gen.req.GetCompletionOptions().GetTemperature()
	if temp == nil || temp.GetValue() < 0.399 || temp.GetValue() > 0.401 {
		t.Fatalf("temperature not sent: %v", temp)
	}
	if gen.req.GetModelUri() != "gpt://folder/yandexgpt-lite" {
		t.Fatalf("unexpected model uri: %s", gen.req.GetModelUri())
	}
	msgs := gen.req.GetMessages()
	if len(msgs) != 2 || msgs[0].GetRole() != "system" || !strings.Contains(msgs[0].GetText(), `"required"`) {
		t.Fatalf("schema instruction missing: %v", msgs)
	}
	if got := gen.md.Get("authorization"); len(got) != 1 || got[0] != "Bearer iam" {
		t.Fatalf("auth metadata missing: %v", gen.md)
	}
	if got := gen.md.Get("x-folder-id"); len(got) != 1 || got[0] != "folder" {
		t.Fatalf("folder metadata missing: %v", gen.md)
	}
}

func TestYandexClient_TransportError(t *testing.T) {
	c := newYandexClient(&fakeTextGeneration{err: errors.New("unavailable")}, "iam", "folder")
	if _, err := c.Generate(context.Background(), Request{Prompt: "hello"}); err == nil {
		t.Fatalf("expected error")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close without conn: %v", err)
	}
}
