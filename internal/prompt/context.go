package prompt

import (
	"context"
	"strings"

	"github.com/goccy/go-yaml"
	"go.uber.org/zap"

	"github.com/aescanero/dago-node-prompt/internal/eval/template"
)

// Reserved top-level variables set by the host
const (
	VarStdin  = "STDIN"
	VarArgs   = "ARGS"
	VarInput  = "INPUT"
	VarBefore = "BEFORE"
	VarModel  = "model"
)

// Inputs is what the host collected for one run
type Inputs struct {
	// Stdin is the raw piped input, empty when stdin is a terminal
	Stdin string
	// Args are the positional arguments after the prompt file
	Args []string
	// Vars are host variables layered over the front matter config
	Vars *template.Map
}

// Builder assembles the render context for a document
type Builder struct {
	runner CommandRunner
	files  bool
	logger *zap.Logger
}

// NewBuilder creates a context builder. A nil runner disables before: steps.
func NewBuilder(runner CommandRunner, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{runner: runner, logger: logger}
}

// WithFiles allows ResolveFiles to read from the local filesystem
func (b *Builder) WithFiles(enabled bool) *Builder {
	b.files = enabled
	return b
}

// Build merges, lowest precedence first: the document model and config
// defaults, host vars, keys of a JSON object given as input, the raw
// STDIN/ARGS/INPUT variables, and finally before: step outputs with their
// BEFORE aggregate. Required schema fields are checked before any command
// runs.
func (b *Builder) Build(ctx context.Context, doc *Document, in Inputs) (template.Value, error) {
	vars := template.NewMap()
	if doc.Model != "" {
		vars.Set(VarModel, template.String(doc.Model))
	}
	merge(vars, doc.Config)
	merge(vars, in.Vars)

	args := strings.Join(in.Args, " ")
	input := in.Stdin
	if input == "" {
		input = args
	}
	if obj := decodeObject(input); obj != nil {
		merge(vars, obj)
	}
	vars.Set(VarStdin, template.String(in.Stdin))
	vars.Set(VarArgs, template.String(args))
	vars.Set(VarInput, template.String(input))

	if err := ValidateInputs(doc.Schema, vars); err != nil {
		return template.Value{}, err
	}

	if len(doc.Before) > 0 {
		if err := b.runBefore(ctx, doc.Before, vars); err != nil {
			return template.Value{}, err
		}
	}

	return template.MapValue(vars), nil
}

// runBefore runs each step in declaration order. A failing command still
// binds whatever it printed.
func (b *Builder) runBefore(ctx context.Context, steps []BeforeStep, vars *template.Map) error {
	if b.runner == nil {
		b.logger.Warn("before steps declared but no command runner configured",
			zap.Int("steps", len(steps)),
		)
		return nil
	}

	outputs := make([]string, 0, len(steps))
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		out, err := b.runner.Run(ctx, step.Command, exportEnv(vars))
		if err != nil {
			b.logger.Warn("before step failed",
				zap.String("key", step.Key),
				zap.Error(err),
			)
		}
		out = strings.TrimRight(out, "\r\n")
		vars.Set(step.Key, template.String(out))
		outputs = append(outputs, out)
	}
	vars.Set(VarBefore, template.String(strings.Join(outputs, "\n")))
	return nil
}

// decodeObject parses text as a JSON (or YAML flow) object. Anything else,
// including invalid JSON, yields nil and is left as a raw string.
func decodeObject(text string) *template.Map {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		return nil
	}
	var data interface{}
	if err := yaml.UnmarshalWithOptions([]byte(trimmed), &data, yaml.UseOrderedMap()); err != nil {
		return nil
	}
	if _, ok := data.(yaml.MapSlice); !ok {
		return nil
	}
	return template.FromGo(data).Map()
}

func merge(dst, src *template.Map) {
	src.Range(func(_ int, key string, value template.Value) bool {
		dst.Set(key, value)
		return true
	})
}

// exportEnv exposes scalar top-level variables to before: commands
func exportEnv(vars *template.Map) []string {
	var env []string
	vars.Range(func(_ int, key string, value template.Value) bool {
		if !isEnvName(key) {
			return true
		}
		switch value.Kind() {
		case template.KindString, template.KindNumber, template.KindBool:
			env = append(env, key+"="+value.String())
		}
		return true
	})
	return env
}

func isEnvName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
