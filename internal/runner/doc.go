// Package runner executes prompt nodes for graph execution.
//
// A node carries a base prompt document and optional variants guarded by
// CEL conditions over the graph state. The first variant whose condition
// holds replaces the base prompt. The chosen document is rendered against
// the graph inputs, the node vars and its own front matter.
//
// Two modes are supported:
//   - Render: only the rendered prompt text is returned
//   - Complete: the rendered prompt is also sent to the configured LLM
//
// Example:
//
//	config := &NodeConfig{
//	    Mode:   ModeComplete,
//	    Prompt: "Summarize {{topic}} in one line.",
//	    Variants: []Variant{
//	        {Name: "spanish", Condition: "state.inputs.lang == 'es'", Prompt: "Resume {{topic}} en una línea."},
//	    },
//	}
//	result, err := runner.Run(ctx, state, config)
package runner
