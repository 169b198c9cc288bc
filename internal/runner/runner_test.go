package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aescanero/dago-libs/pkg/domain"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/aescanero/dago-node-prompt/internal/llm"
	"github.com/aescanero/dago-node-prompt/internal/prompt"
)

type fakeClient struct {
	reply    string
	err      error
	failures int
	requests []*llm.Request
}

func (f *fakeClient) Complete(_ context.Context, req *llm.Request) (*llm.Response, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("temporary failure")
	}
	return &llm.Response{Content: f.reply, InputTokens: 7, OutputTokens: 2}, nil
}

func newTestRunner(client llm.Client) *Runner {
	logger := zap.NewNop()
	return NewRunner(client, prompt.NewBuilder(nil, logger), Options{
		DefaultModel: "openai/gpt-4o-mini",
		MaxTokens:    256,
		CELEnabled:   true,
	}, logger)
}

func testState() *domain.GraphState {
	return &domain.GraphState{
		GraphID: "graph-1",
		Inputs: map[string]interface{}{
			"name": "Ada",
			"lang": "en",
			"tags": []interface{}{"math", "engines"},
		},
	}
}

func TestRun_Render(t *testing.T) {
	r := newTestRunner(nil)

	result, err := r.Run(context.Background(), testState(), &NodeConfig{
		Prompt: "Hi {{name}} from {{state.graph_id}}:{{#each tags}} {{@index}}={{.}}{{/each}}",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := &Result{
		Rendered:  "Hi Ada from graph-1: 0=math 1=engines",
		Mode:      string(ModeRender),
		PathTaken: PathBase,
	}
	if diff := cmp.Diff(want, result); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_NodeVarsOverrideInputs(t *testing.T) {
	r := newTestRunner(nil)

	result, err := r.Run(context.Background(), testState(), &NodeConfig{
		Prompt: "---\nconfig:\n  tone: dry\n---\n{{name}} {{tone}} {{extra}}",
		Vars:   map[string]interface{}{"name": "Grace", "extra": 3},
		Args:   []string{"ignored"},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Rendered != "Grace dry 3" {
		t.Errorf("Rendered = %q", result.Rendered)
	}
}

func TestRun_BeforeStepsSkippedWithoutShell(t *testing.T) {
	r := newTestRunner(nil)

	result, err := r.Run(context.Background(), testState(), &NodeConfig{
		Prompt: "---\nbefore:\n  who: id -un; hostname\n---\n[{{who}}][{{BEFORE}}] {{name}}",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Rendered != "[][] Ada" {
		t.Errorf("Rendered = %q, before steps must not run", result.Rendered)
	}
}

func TestRun_Variants(t *testing.T) {
	tests := []struct {
		name     string
		variants []Variant
		want     string
		variant  string
		path     string
	}{
		{
			name:     "no match uses base",
			variants: []Variant{{Condition: "state.inputs.lang == 'es'", Prompt: "Hola {{name}}"}},
			want:     "Hello Ada",
			path:     PathBase,
		},
		{
			name: "first match wins",
			variants: []Variant{
				{Name: "english", Condition: "state.inputs.lang == 'en'", Prompt: "Hi {{name}}"},
				{Name: "always", Condition: "true", Prompt: "Yo {{name}}"},
			},
			want:    "Hi Ada",
			variant: "english",
			path:    PathVariant,
		},
		{
			name: "broken condition is skipped",
			variants: []Variant{
				{Condition: "state.inputs.nope == 1", Prompt: "never"},
				{Condition: "size(state.inputs.tags) == 2", Prompt: "Two tags for {{name}}"},
			},
			want:    "Two tags for Ada",
			variant: "size(state.inputs.tags) == 2",
			path:    PathVariant,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRunner(nil)
			result, err := r.Run(context.Background(), testState(), &NodeConfig{
				Prompt:   "Hello {{name}}",
				Variants: tt.variants,
			})
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if result.Rendered != tt.want || result.Variant != tt.variant || result.PathTaken != tt.path {
				t.Errorf("got (%q, %q, %q), want (%q, %q, %q)",
					result.Rendered, result.Variant, result.PathTaken, tt.want, tt.variant, tt.path)
			}
		})
	}
}

func TestRun_VariantsIgnoredWithoutCEL(t *testing.T) {
	r := newTestRunner(nil)
	r.opts.CELEnabled = false

	result, err := r.Run(context.Background(), testState(), &NodeConfig{
		Prompt:   "base",
		Variants: []Variant{{Condition: "true", Prompt: "variant"}},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Rendered != "base" || result.PathTaken != PathBase {
		t.Errorf("got %+v", result)
	}
}

func TestRun_Complete(t *testing.T) {
	tests := []struct {
		name      string
		prompt    string
		model     string
		wantModel string
		wantJSON  bool
	}{
		{"default model", "Hi {{name}}", "", "gpt-4o-mini", false},
		{"front matter model", "---\nmodel: anthropic/claude-sonnet-4-20250514\n---\nHi {{name}}", "", "claude-sonnet-4-20250514", false},
		{"node model wins", "---\nmodel: anthropic/claude-sonnet-4-20250514\n---\nHi {{name}}", "llama3", "llama3", false},
		{"json output", "---\noutput:\n  format: json\n---\nHi {{name}}", "", "gpt-4o-mini", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{reply: "Hello!"}
			r := newTestRunner(client)

			result, err := r.Run(context.Background(), testState(), &NodeConfig{
				Mode:   ModeComplete,
				Prompt: tt.prompt,
				Model:  tt.model,
			})
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			want := &Result{
				Rendered:     "Hi Ada",
				Output:       "Hello!",
				Model:        tt.wantModel,
				Mode:         string(ModeComplete),
				PathTaken:    PathBase,
				InputTokens:  7,
				OutputTokens: 2,
			}
			if diff := cmp.Diff(want, result); diff != "" {
				t.Errorf("result mismatch (-want +got):\n%s", diff)
			}

			wantReq := &llm.Request{
				Model:     tt.wantModel,
				Messages:  []llm.Message{{Role: llm.RoleUser, Content: "Hi Ada"}},
				MaxTokens: 256,
				JSON:      tt.wantJSON,
			}
			if len(client.requests) != 1 {
				t.Fatalf("requests = %d, want 1", len(client.requests))
			}
			if diff := cmp.Diff(wantReq, client.requests[0]); diff != "" {
				t.Errorf("request mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRun_CompleteWithFilesAndTools(t *testing.T) {
	dir := t.TempDir()
	notes := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(notes, []byte("remember the milk"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "data.bin"), []byte("\x00\x01binary\xff"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o700); err != nil {
		t.Fatal(err)
	}

	const source = "---\nfiles:\n  - \"{{dir}}/*\"\nshell_tools:\n  today: date +%F\n  broken:\n    description: no command\n---\nSummarise for {{name}}"
	config := func() *NodeConfig {
		return &NodeConfig{Mode: ModeComplete, Prompt: source, Vars: map[string]interface{}{"dir": dir}}
	}

	client := &fakeClient{reply: "ok"}
	logger := zap.NewNop()
	r := NewRunner(client, prompt.NewBuilder(nil, logger).WithFiles(true), Options{
		DefaultModel: "gpt-4o-mini",
		MaxTokens:    256,
	}, logger)

	result, err := r.Run(context.Background(), testState(), config())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if diff := cmp.Diff([]string{notes}, result.Files); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}

	req := client.requests[0]
	if diff := cmp.Diff([]llm.Attachment{{Name: notes, Content: "remember the milk"}}, req.Attachments); diff != "" {
		t.Errorf("attachments mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]llm.Tool{llm.CommandTool("today", "date +%F", "")}, req.Tools); diff != "" {
		t.Errorf("tools mismatch (-want +got):\n%s", diff)
	}

	// File reading is off unless the builder enables it
	client = &fakeClient{reply: "ok"}
	result, err = newTestRunner(client).Run(context.Background(), testState(), config())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Files) != 0 || len(client.requests[0].Attachments) != 0 {
		t.Errorf("files attached without file reading enabled: %v", result.Files)
	}
}

func TestRun_ProviderMismatchWarns(t *testing.T) {
	tests := []struct {
		name  string
		model string
		warns bool
	}{
		{"same provider", "anthropic/claude-sonnet-4-20250514", false},
		{"bare model", "claude-sonnet-4-20250514", false},
		{"other provider", "openai/gpt-4o", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.WarnLevel)
			logger := zap.New(core)
			r := NewRunner(&fakeClient{reply: "ok"}, prompt.NewBuilder(nil, logger), Options{
				Provider:  "anthropic",
				MaxTokens: 64,
			}, logger)

			if _, err := r.Run(context.Background(), testState(), &NodeConfig{Mode: ModeComplete, Prompt: "x", Model: tt.model}); err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if got := logs.FilterMessageSnippet("provider differs").Len() == 1; got != tt.warns {
				t.Errorf("warned = %v, want %v (logs: %v)", got, tt.warns, logs.All())
			}
		})
	}
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name   string
		client llm.Client
		config *NodeConfig
		want   string
	}{
		{"nil config", nil, nil, "config is nil"},
		{"empty prompt", nil, &NodeConfig{}, "prompt is required"},
		{"unknown mode", nil, &NodeConfig{Mode: "stream", Prompt: "x"}, "unknown mode"},
		{"variant without condition", nil, &NodeConfig{Prompt: "x", Variants: []Variant{{Prompt: "y"}}}, "condition is required"},
		{"template error", nil, &NodeConfig{Prompt: "{{#if a}}x"}, "unclosed section"},
		{"missing input", nil, &NodeConfig{Prompt: "---\ninput:\n  schema:\n    topic: string\n---\n{{topic}}"}, "Missing required input field"},
		{"complete without client", nil, &NodeConfig{Mode: ModeComplete, Prompt: "x"}, "llm client not configured"},
		{"llm failure", &fakeClient{err: errors.New("boom")}, &NodeConfig{Mode: ModeComplete, Prompt: "x"}, "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRunner(tt.client)
			_, err := r.Run(context.Background(), testState(), tt.config)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Run() error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestRun_CompleteRetries(t *testing.T) {
	client := &fakeClient{reply: "ok", failures: 2}
	r := newTestRunner(client)
	r.opts.MaxRetries = 2

	result, err := r.Run(context.Background(), testState(), &NodeConfig{Mode: ModeComplete, Prompt: "x"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Output != "ok" || len(client.requests) != 3 {
		t.Errorf("output = %q after %d requests", result.Output, len(client.requests))
	}

	client = &fakeClient{reply: "ok", failures: 3}
	r = newTestRunner(client)
	r.opts.MaxRetries = 2
	if _, err := r.Run(context.Background(), testState(), &NodeConfig{Mode: ModeComplete, Prompt: "x"}); err == nil {
		t.Error("expected error after exhausting retries")
	}
}
