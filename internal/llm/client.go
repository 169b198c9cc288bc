package llm

import (
	"context"
	"fmt"
	"strings"
)

// Message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a provider-neutral completion request
type Request struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
	// JSON asks the provider for a JSON object response where supported
	JSON bool `json:"json,omitempty"`
	// Attachments are sent with the last user message
	Attachments []Attachment `json:"attachments,omitempty"`
	// Tools are advertised to the model. Tool calls in the reply are not
	// executed.
	Tools []Tool `json:"tools,omitempty"`
}

// Attachment is a text file sent alongside the prompt
type Attachment struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Text renders the attachment as a message part
func (a Attachment) Text() string {
	return fmt.Sprintf("File: %s\n\n%s", a.Name, a.Content)
}

// Tool is a function definition offered to the model
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

// CommandTool describes a shell command the model may ask to run, taking
// optional extra arguments. The description defaults to the command.
func CommandTool(name, command, description string) Tool {
	if description == "" {
		description = command
	}
	return Tool{
		Name:        name,
		Description: description,
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"args": map[string]interface{}{
					"type":        "string",
					"description": "Extra arguments appended to the command",
				},
			},
		},
	}
}

// Response is a completion result
type Response struct {
	Content      string `json:"content"`
	Model        string `json:"model,omitempty"`
	InputTokens  int    `json:"input_tokens,omitempty"`
	OutputTokens int    `json:"output_tokens,omitempty"`
}

// Client sends completion requests to a language model provider
type Client interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
}

// NewUserRequest builds a single-message request from rendered prompt text
func NewUserRequest(model, prompt string, maxTokens int) *Request {
	return &Request{
		Model:     model,
		Messages:  []Message{{Role: RoleUser, Content: prompt}},
		MaxTokens: maxTokens,
	}
}

// ParseModel splits "provider/model" into its parts. A bare model name has
// an empty provider.
func ParseModel(ref string) (provider, model string) {
	ref = strings.TrimSpace(ref)
	if i := strings.Index(ref, "/"); i > 0 {
		return ref[:i], ref[i+1:]
	}
	return "", ref
}

// userText joins attachments and content into a single string for
// providers without multipart messages
func userText(content string, attachments []Attachment) string {
	if len(attachments) == 0 {
		return content
	}
	parts := make([]string, 0, len(attachments)+1)
	for _, a := range attachments {
		parts = append(parts, a.Text())
	}
	parts = append(parts, content)
	return strings.Join(parts, "\n\n")
}

// lastUser returns the index of the last user message, or -1
func lastUser(messages []Message) int {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return i
		}
	}
	return -1
}

func validateRequest(req *Request) error {
	if req == nil {
		return fmt.Errorf("request is nil")
	}
	if req.Model == "" {
		return fmt.Errorf("model is required")
	}
	if len(req.Messages) == 0 {
		return fmt.Errorf("at least one message is required")
	}
	return nil
}
