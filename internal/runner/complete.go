package runner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/aescanero/dago-node-prompt/internal/llm"
	"github.com/aescanero/dago-node-prompt/internal/prompt"
)

// complete sends the rendered prompt to the LLM and records the reply
func (r *Runner) complete(ctx context.Context, doc *prompt.Document, config *NodeConfig, attachments []llm.Attachment, result *Result) error {
	if r.llmClient == nil {
		return fmt.Errorf("llm client not configured")
	}

	ref := r.opts.DefaultModel
	if doc.Model != "" {
		ref = doc.Model
	}
	if config.Model != "" {
		ref = config.Model
	}
	provider, model := llm.ParseModel(ref)
	if model == "" {
		return fmt.Errorf("no model configured")
	}

	if provider != "" && r.opts.Provider != "" && provider != r.opts.Provider {
		r.logger.Warn("model provider differs from the configured client, sending anyway",
			zap.String("provider", provider),
			zap.String("client_provider", r.opts.Provider),
			zap.String("model", model),
		)
	}

	req := llm.NewUserRequest(model, result.Rendered, r.opts.MaxTokens)
	req.JSON = doc.Output.Format == "json"
	req.Attachments = attachments
	req.Tools = doc.Tools()

	r.logger.Debug("calling llm",
		zap.String("provider", provider),
		zap.String("model", model),
		zap.Bool("json", req.JSON),
	)

	resp, err := r.callLLM(ctx, req)
	if err != nil {
		return err
	}

	result.Output = resp.Content
	result.Model = model
	if resp.Model != "" {
		result.Model = resp.Model
	}
	result.InputTokens = resp.InputTokens
	result.OutputTokens = resp.OutputTokens

	return nil
}

// callLLM sends req, retrying failed calls up to MaxRetries times
func (r *Runner) callLLM(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= r.opts.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, err := r.completeOnce(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		r.logger.Warn("llm call failed",
			zap.String("model", req.Model),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return nil, fmt.Errorf("llm completion failed: %w", lastErr)
}

func (r *Runner) completeOnce(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}
	return r.llmClient.Complete(ctx, req)
}
