// Package cel evaluates the CEL conditions that choose between prompt
// variants.
//
// Expressions see one variable, state, built from the graph state:
//
//	evaluator := cel.NewEvaluator()
//
//	vars := map[string]interface{}{
//	    "state": map[string]interface{}{
//	        "inputs": map[string]interface{}{"lang": "es"},
//	    },
//	}
//
//	matched, err := evaluator.EvaluateBool(ctx, "state.inputs.lang == 'es'", vars)
//
// Compiled programs are cached per expression and safe for concurrent use.
package cel
