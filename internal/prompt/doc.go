// Package prompt loads .prompt documents and builds the context they are rendered with.
//
// A document is optional YAML front matter followed by a template body:
//
//	---
//	model: openai/gpt-4o
//	config:
//	  tone: friendly
//	input:
//	  schema:
//	    name: string, who to greet
//	    title?: string
//	before:
//	  today: date +%F
//	---
//	Write a {{tone}} greeting for {{#if title}}{{title}} {{/if}}{{name}}.
//	Today is {{today}}.
//
// The host supplies raw input through Inputs. STDIN, ARGS and INPUT are always
// bound (INPUT is STDIN when present, otherwise ARGS), and a JSON object given
// as input has its keys merged into the top level. Each before: command runs
// through the configured shell with scalar variables exported to its
// environment, its output bound under its key, and all outputs joined into
// BEFORE.
//
// Example usage:
//
//	doc, err := prompt.LoadFile("greet.prompt")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	builder := prompt.NewBuilder(prompt.NewShellRunner("", 30*time.Second, logger), logger)
//	vars, err := builder.Build(ctx, doc, prompt.Inputs{Stdin: `{"name": "Ada"}`})
//	if err != nil {
//	    log.Fatal(err) // *prompt.MissingInputError when required fields are absent
//	}
//	text := doc.Template().Render(vars)
package prompt
