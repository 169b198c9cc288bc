package runner

import (
	"context"

	"github.com/aescanero/dago-libs/pkg/domain"
	"go.uber.org/zap"
)

// selectPrompt picks the first variant whose CEL condition is true, falling
// back to the base prompt. Conditions that fail to evaluate are skipped.
func (r *Runner) selectPrompt(ctx context.Context, state *domain.GraphState, config *NodeConfig) (string, string, string) {
	if !r.opts.CELEnabled || len(config.Variants) == 0 {
		return config.Prompt, "", PathBase
	}

	celState := r.prepareStateForCEL(state)

	for i, variant := range config.Variants {
		r.logger.Debug("evaluating variant",
			zap.Int("variant_index", i),
			zap.String("condition", variant.Condition),
		)

		matched, err := r.celEvaluator.EvaluateBool(ctx, variant.Condition, celState)
		if err != nil {
			r.logger.Warn("variant evaluation error",
				zap.Int("variant_index", i),
				zap.String("condition", variant.Condition),
				zap.Error(err),
			)
			continue
		}

		if matched {
			name := variant.Name
			if name == "" {
				name = variant.Condition
			}
			r.logger.Info("variant matched",
				zap.Int("variant_index", i),
				zap.String("variant", name),
			)
			return variant.Prompt, name, PathVariant
		}
	}

	return config.Prompt, "", PathBase
}

// prepareStateForCEL converts GraphState to a map for CEL evaluation
func (r *Runner) prepareStateForCEL(state *domain.GraphState) map[string]interface{} {
	return map[string]interface{}{
		"state": map[string]interface{}{
			"graph_id":    state.GraphID,
			"status":      string(state.Status),
			"inputs":      state.Inputs,
			"node_states": r.convertNodeStates(state.NodeStates),
		},
	}
}

// convertNodeStates converts node states to a CEL-friendly format
func (r *Runner) convertNodeStates(nodeStates map[string]*domain.NodeState) map[string]interface{} {
	result := make(map[string]interface{})
	for nodeID, nodeState := range nodeStates {
		result[nodeID] = map[string]interface{}{
			"status":       string(nodeState.Status),
			"output":       nodeState.Output,
			"error":        nodeState.Error,
			"started_at":   nodeState.StartedAt,
			"completed_at": nodeState.CompletedAt,
		}
	}
	return result
}
