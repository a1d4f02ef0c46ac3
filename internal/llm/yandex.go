package llm

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/Morwran/yagpt"
	v1 "github.com/yandex-cloud/go-genproto/yandex/cloud/ai/foundation_models/v1"
	ya "github.com/yandex-cloud/go-genproto/yandex/cloud/ai/foundation_models/v1/text_generation"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	yandexEndpoint  = "llm.api.cloud.yandex.net:443"
	yandexMaxTokens = 2000
)

// YandexClient talks to the Yandex text generation service. yagpt issues the IAM token;
// completions go through the gRPC service directly because yagpt fixes the sampling
// temperature. There is no native structured output, so the schema is appended to the
// instruction.
type YandexClient struct {
	gen      ya.TextGenerationServiceClient
	conn     *grpc.ClientConn
	iamToken string
	folderID string
}

func NewYandex(oauthToken, folderID string) (*YandexClient, error) {
	// Create IAM token from OAuth token
	iam, err := yagpt.NewYaIam(oauthToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init yandex iam: %w", err)
	}
	defer iam.Close()
	resp, err := iam.Create()
	if err != nil {
		return nil, fmt.Errorf("failed to create iam token: %w", err)
	}

	conn, err := grpc.NewClient(yandexEndpoint, grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})))
	if err != nil {
		return nil, fmt.Errorf("failed to dial yandex llm api: %w", err)
	}
	c := newYandexClient(ya.NewTextGenerationServiceClient(conn), resp.IamToken, folderID)
	c.conn = conn
	return c, nil
}

func newYandexClient(gen ya.TextGenerationServiceClient, iamToken, folderID string) *YandexClient {
	return &YandexClient{gen: gen, iamToken: iamToken, folderID: folderID}
}

func (c *YandexClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *YandexClient) Generate(ctx context.Context, req Request) (Response, error) {
	var messages []*v1.Message
	if system := schemaInstruction(req); system != "" {
		messages = append(messages, &v1.Message{Role: "system", Content: &v1.Message_Text{Text: system}})
	}
	messages = append(messages, &v1.Message{Role: "user", Content: &v1.Message_Text{Text: req.Prompt}})

	opts := &v1.CompletionOptions{MaxTokens: wrapperspb.Int64(yandexMaxTokens)}
	if req.Temperature != nil {
		opts.Temperature = wrapperspb.Double(float64(*req.Temperature))
	}

	ctx = metadata.AppendToOutgoingContext(ctx,
		"authorization", "Bearer "+c.iamToken,
		"x-folder-id", c.folderID,
	)
	stream, err := c.gen.Completion(ctx, &ya.CompletionRequest{
		ModelUri:          fmt.Sprintf("gpt://%s/%s", c.folderID, yagpt.YaModelLite),
		CompletionOptions: opts,
		Messages:          messages,
	})
	if err != nil {
		return Response{}, fmt.Errorf("yandex completion failed: %w", err)
	}
	resp, err := stream.Recv()
	if err != nil {
		return Response{}, fmt.Errorf("failed to receive yandex completion: %w", err)
	}

	out := Response{Model: yagpt.YaModelLite}
	if alts := resp.GetAlternatives(); len(alts) > 0 {
		out.Content = alts[0].GetMessage().GetText()
	}
	if u := resp.GetUsage(); u != nil {
		out.PromptTokens = int(u.GetInputTextTokens())
		out.CompletionTokens = int(u.GetCompletionTokens())
		out.TotalTokens = int(u.GetTotalTokens())
	}
	return out, nil
}

func schemaInstruction(req Request) string {
	if req.Schema == nil {
		return req.System
	}
	return req.System + "\n\nRespond with a single JSON object matching this JSON Schema, without markdown fences:\n" +
		string(req.Schema.JSON())
}
