// Package template provides the logic-less template engine used to render LLM prompts.
//
// Templates interpolate values from a tree-shaped context with {{path}} tags
// and control output with sections:
//
//	{{name}}                          # variable, dotted paths allowed: {{user.name}}
//	{{! comment }}                    # produces nothing
//	{{#items}}{{.}}{{/items}}         # iterate a list, or render once for a truthy value
//	{{^items}}none{{/items}}          # render when the value is falsy
//	{{#if ok}}yes{{else}}no{{/if}}    # conditional, never pushes a scope frame
//	{{#unless ok}}no{{/unless}}       # inverse conditional
//	{{#each person}}{{@key}}={{.}}{{/each}}
//
// Inside iterations {{@index}}, {{@first}} and {{@last}} describe the
// position of the current element, and {{@key}} names the current map entry.
// No escaping is applied.
//
// Example usage:
//
//	engine := template.NewEngine(logger)
//
//	data := map[string]interface{}{
//	    "state": map[string]interface{}{
//	        "message": "Hello World",
//	        "tags":    []interface{}{"a", "b"},
//	    },
//	}
//
//	tmpl := "Message: {{state.message}}\n{{#state.tags}}- {{.}}\n{{/state.tags}}"
//	result, err := engine.Render(tmpl, data)
//	if err != nil {
//	    log.Fatal(err) // *ParseError
//	}
//	// Output: Message: Hello World
//	//         - a
//	//         - b
//
// Missing values never fail a render; they produce empty output. Parse
// failures are reported as *ParseError and match the ErrUnterminatedTag,
// ErrMismatchedCloseTag, ErrMisplacedElse, ErrUnclosedSection and
// ErrInvalidTag sentinels with errors.Is.
package template
