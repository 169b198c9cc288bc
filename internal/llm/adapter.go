package llm

import (
	"context"
	"fmt"

	adapters "github.com/aescanero/dago-adapters/pkg/llm"
	"github.com/aescanero/dago-libs/pkg/domain"
	"github.com/aescanero/dago-libs/pkg/ports"
	"go.uber.org/zap"
)

// AdapterClient sends requests through a shared dago-adapters provider client
type AdapterClient struct {
	client ports.LLMClient
	logger *zap.Logger
}

// NewAdapterClient wraps an existing ports.LLMClient
func NewAdapterClient(client ports.LLMClient, logger *zap.Logger) *AdapterClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdapterClient{client: client, logger: logger}
}

// NewProviderClient builds a dago-adapters client for provider
func NewProviderClient(provider, apiKey string, logger *zap.Logger) (*AdapterClient, error) {
	client, err := adapters.NewClient(&adapters.Config{
		Provider: provider,
		APIKey:   apiKey,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", provider, err)
	}
	return NewAdapterClient(client, logger), nil
}

// Complete implements Client. The domain request has no response format or
// multipart content, so JSON is only logged and attachments are inlined into
// the user message.
func (a *AdapterClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	if req.JSON {
		a.logger.Warn("json response format not supported by provider client, requesting plain text",
			zap.String("model", req.Model),
		)
	}

	last := lastUser(req.Messages)
	messages := make([]domain.Message, len(req.Messages))
	for i, m := range req.Messages {
		content := m.Content
		if i == last {
			content = userText(content, req.Attachments)
		}
		messages[i] = domain.Message{Role: m.Role, Content: content}
	}

	var tools []domain.Tool
	for _, t := range req.Tools {
		tools = append(tools, domain.Tool{Name: t.Name, Description: t.Description, Parameters: t.Parameters})
	}

	// Use GenerateCompletion for compatibility with domain types
	respInterface, err := a.client.GenerateCompletion(ctx, &domain.LLMRequest{
		Model:     req.Model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
		Tools:     tools,
	})
	if err != nil {
		return nil, fmt.Errorf("llm completion failed: %w", err)
	}

	resp, ok := respInterface.(*domain.LLMResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response type from LLM: %T", respInterface)
	}

	model := resp.Model
	if model == "" {
		model = req.Model
	}
	return &Response{
		Content:      resp.Content,
		Model:        model,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}
