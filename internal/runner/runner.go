package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/aescanero/dago-libs/pkg/domain"
	"go.uber.org/zap"

	"github.com/aescanero/dago-node-prompt/internal/eval/cel"
	"github.com/aescanero/dago-node-prompt/internal/eval/template"
	"github.com/aescanero/dago-node-prompt/internal/llm"
	"github.com/aescanero/dago-node-prompt/internal/prompt"
)

// Mode selects what a prompt node produces
type Mode string

const (
	// ModeRender only renders the prompt
	ModeRender Mode = "render"

	// ModeComplete renders the prompt and sends it to the LLM
	ModeComplete Mode = "complete"
)

// Paths reported in Result.PathTaken
const (
	PathBase    = "base"
	PathVariant = "variant"
)

// NodeConfig represents the configuration of a prompt node
type NodeConfig struct {
	Mode     Mode                   `json:"mode"`
	Prompt   string                 `json:"prompt"`
	Variants []Variant              `json:"variants,omitempty"`
	Vars     map[string]interface{} `json:"vars,omitempty"`
	Args     []string               `json:"args,omitempty"`
	Stdin    string                 `json:"stdin,omitempty"`
	Model    string                 `json:"model,omitempty"`
}

// Variant is an alternative prompt used when its CEL condition holds
type Variant struct {
	Name      string `json:"name,omitempty"`
	Condition string `json:"condition"`
	Prompt    string `json:"prompt"`
}

// Result represents the outcome of running a prompt node
type Result struct {
	Rendered     string   `json:"rendered"`
	Output       string   `json:"output,omitempty"`
	Model        string   `json:"model,omitempty"`
	Variant      string   `json:"variant,omitempty"`
	Mode         string   `json:"mode"`
	PathTaken    string   `json:"path_taken"` // "base", "variant"
	Files        []string `json:"files,omitempty"`
	InputTokens  int      `json:"input_tokens,omitempty"`
	OutputTokens int      `json:"output_tokens,omitempty"`
}

// Options tunes a Runner
type Options struct {
	DefaultModel string
	// Provider is the provider behind llmClient; empty when the client is an
	// OpenAI-compatible endpoint serving any model
	Provider   string
	MaxTokens  int
	MaxRetries int
	// Timeout bounds each LLM call; zero means no limit
	Timeout    time.Duration
	CELEnabled bool
}

// Runner executes prompt nodes
type Runner struct {
	celEvaluator   *cel.Evaluator
	templateEngine *template.Engine
	builder        *prompt.Builder
	llmClient      llm.Client
	opts           Options
	logger         *zap.Logger
}

// NewRunner creates a new runner. llmClient may be nil when only render
// mode is used.
func NewRunner(llmClient llm.Client, builder *prompt.Builder, opts Options, logger *zap.Logger) *Runner {
	return &Runner{
		celEvaluator:   cel.NewEvaluator(),
		templateEngine: template.NewEngine(logger),
		builder:        builder,
		llmClient:      llmClient,
		opts:           opts,
		logger:         logger,
	}
}

// Run renders the node's prompt against state and, in complete mode, sends
// it to the LLM
func (r *Runner) Run(ctx context.Context, state *domain.GraphState, config *NodeConfig) (*Result, error) {
	if config != nil && config.Mode == "" {
		config.Mode = ModeRender
	}
	if err := r.validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	r.logger.Info("prompt request",
		zap.String("graph_id", state.GraphID),
		zap.String("mode", string(config.Mode)),
	)

	source, variant, path := r.selectPrompt(ctx, state, config)

	doc, err := prompt.ParseWith(r.templateEngine, []byte(source))
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt: %w", err)
	}

	vars, err := r.builder.Build(ctx, doc, prompt.Inputs{
		Stdin: config.Stdin,
		Args:  config.Args,
		Vars:  r.prepareVars(state, config),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build context: %w", err)
	}

	for _, warning := range doc.Warnings {
		r.logger.Warn("prompt front matter", zap.String("warning", warning))
	}

	attachments, err := r.builder.ResolveFiles(doc, vars, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve files: %w", err)
	}

	result := &Result{
		Rendered:  doc.Template().Render(vars),
		Variant:   variant,
		Mode:      string(config.Mode),
		PathTaken: path,
	}
	for _, a := range attachments {
		result.Files = append(result.Files, a.Name)
	}

	if config.Mode == ModeComplete {
		if err := r.complete(ctx, doc, config, attachments, result); err != nil {
			return nil, err
		}
	}

	r.logger.Info("prompt rendered",
		zap.String("graph_id", state.GraphID),
		zap.String("mode", result.Mode),
		zap.String("path", result.PathTaken),
		zap.String("variant", result.Variant),
		zap.Int("rendered_bytes", len(result.Rendered)),
	)

	return result, nil
}

// prepareVars exposes execution state to the template: a "state" object plus
// each input flattened to the top level, with node vars on top
func (r *Runner) prepareVars(state *domain.GraphState, config *NodeConfig) *template.Map {
	vars := template.NewMap()
	vars.Set("state", template.FromGo(map[string]interface{}{
		"graph_id": state.GraphID,
		"status":   string(state.Status),
		"inputs":   state.Inputs,
	}))

	if inputs := template.FromGo(state.Inputs).Map(); inputs != nil {
		inputs.Range(func(_ int, key string, value template.Value) bool {
			vars.Set(key, value)
			return true
		})
	}
	if nodeVars := template.FromGo(config.Vars).Map(); nodeVars != nil {
		nodeVars.Range(func(_ int, key string, value template.Value) bool {
			vars.Set(key, value)
			return true
		})
	}
	return vars
}

// validateConfig validates the node configuration
func (r *Runner) validateConfig(config *NodeConfig) error {
	if config == nil {
		return fmt.Errorf("config is nil")
	}

	switch config.Mode {
	case ModeRender, ModeComplete:
	default:
		return fmt.Errorf("unknown mode: %s", config.Mode)
	}

	if config.Prompt == "" {
		return fmt.Errorf("prompt is required")
	}

	for i, v := range config.Variants {
		if v.Condition == "" {
			return fmt.Errorf("variant %d: condition is required", i)
		}
		if v.Prompt == "" {
			return fmt.Errorf("variant %d: prompt is required", i)
		}
	}

	return nil
}
