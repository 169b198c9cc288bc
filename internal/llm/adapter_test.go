package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aescanero/dago-libs/pkg/domain"
	"github.com/aescanero/dago-libs/pkg/ports"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// fakeProvider records the domain request and answers with a fixed reply
type fakeProvider struct {
	reply    interface{}
	err      error
	requests []*domain.LLMRequest
}

func (f *fakeProvider) Complete(context.Context, ports.CompletionRequest) (*ports.CompletionResponse, error) {
	return nil, errors.New("not used")
}

func (f *fakeProvider) CompleteWithTools(context.Context, ports.CompletionRequest, []ports.Tool) (*ports.CompletionResponse, error) {
	return nil, errors.New("not used")
}

func (f *fakeProvider) CompleteStructured(context.Context, ports.CompletionRequest, ports.JSONSchema) (*ports.StructuredResponse, error) {
	return nil, errors.New("not used")
}

func (f *fakeProvider) GenerateCompletion(_ context.Context, req interface{}) (interface{}, error) {
	f.requests = append(f.requests, req.(*domain.LLMRequest))
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

func TestAdapterClient_Complete(t *testing.T) {
	provider := &fakeProvider{reply: &domain.LLMResponse{
		Content: "bonjour",
		Usage:   domain.Usage{InputTokens: 11, OutputTokens: 4},
	}}
	core, logs := observer.New(zap.WarnLevel)
	client := NewAdapterClient(provider, zap.New(core))

	req := NewUserRequest("claude-sonnet-4-20250514", "Translate the notes", 128)
	req.JSON = true
	req.Attachments = []Attachment{{Name: "notes.txt", Content: "hello"}}
	req.Tools = []Tool{CommandTool("today", "date +%F", "")}

	resp, err := client.Complete(context.Background(), req)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	want := &Response{Content: "bonjour", Model: "claude-sonnet-4-20250514", InputTokens: 11, OutputTokens: 4}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}

	if len(provider.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(provider.requests))
	}
	got := provider.requests[0]
	wantReq := &domain.LLMRequest{
		Model:     "claude-sonnet-4-20250514",
		Messages:  []domain.Message{{Role: RoleUser, Content: "File: notes.txt\n\nhello\n\nTranslate the notes"}},
		MaxTokens: 128,
		Tools:     []domain.Tool{{Name: "today", Description: "date +%F", Parameters: req.Tools[0].Parameters}},
	}
	if diff := cmp.Diff(wantReq, got); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}

	if logs.FilterMessageSnippet("json response format").Len() != 1 {
		t.Errorf("expected a warning about the dropped json format, got %v", logs.All())
	}
}

func TestAdapterClient_Errors(t *testing.T) {
	tests := []struct {
		name     string
		provider *fakeProvider
		want     string
	}{
		{"provider failure", &fakeProvider{err: errors.New("rate limited")}, "rate limited"},
		{"unexpected response", &fakeProvider{reply: "text"}, "unexpected response type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAdapterClient(tt.provider, nil).Complete(context.Background(), NewUserRequest("m", "x", 0))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Complete() error = %v, want mention of %q", err, tt.want)
			}
		})
	}

	if _, err := NewAdapterClient(&fakeProvider{}, nil).Complete(context.Background(), &Request{Model: "m"}); err == nil {
		t.Error("expected error for request without messages")
	}
}
