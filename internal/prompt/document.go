package prompt

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/aescanero/dago-node-prompt/internal/eval/template"
)

const frontMatterDelim = "---"

// Document is a parsed .prompt file: YAML front matter plus a template body
type Document struct {
	Model  string
	Config *template.Map
	Schema []SchemaField
	Before []BeforeStep
	// Files are path or glob templates rendered after before: steps
	Files      []string
	ShellTools []ShellTool
	Output     OutputConfig
	Body       string
	// Warnings lists front matter entries that were skipped
	Warnings []string

	tmpl *template.Template
}

// BeforeStep is a shell command whose output is bound to Key
type BeforeStep struct {
	Key     string
	Command string
}

// OutputConfig controls the requested response format
type OutputConfig struct {
	Format string `yaml:"format"`
}

// frontMatter mirrors the YAML header. MapSlice fields keep declaration order.
type frontMatter struct {
	Model  string        `yaml:"model"`
	Config yaml.MapSlice `yaml:"config"`
	Input  struct {
		Schema yaml.MapSlice `yaml:"schema"`
	} `yaml:"input"`
	Before     yaml.MapSlice `yaml:"before"`
	Files      []string      `yaml:"files"`
	ShellTools yaml.MapSlice `yaml:"shell_tools"`
	Output     OutputConfig  `yaml:"output"`
}

// LoadFile reads and parses a .prompt file
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse splits optional front matter from the body and parses both. The
// body template is parsed eagerly so authoring mistakes surface before any
// input is read or command run.
func Parse(data []byte) (*Document, error) {
	return ParseWith(nil, data)
}

// ParseWith is Parse with the body compiled through engine's cache. A nil
// engine parses without caching.
func ParseWith(engine *template.Engine, data []byte) (*Document, error) {
	header, body, err := splitFrontMatter(data)
	if err != nil {
		return nil, err
	}

	var fm frontMatter
	if len(bytes.TrimSpace(header)) > 0 {
		if err := yaml.UnmarshalWithOptions(header, &fm, yaml.UseOrderedMap()); err != nil {
			return nil, fmt.Errorf("invalid front matter: %w", err)
		}
	}

	var tmpl *template.Template
	if engine != nil {
		tmpl, err = engine.Compile(body)
	} else {
		tmpl, err = template.Parse(body)
	}
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Model:  fm.Model,
		Config: template.NewMap(),
		Files:  fm.Files,
		Output: fm.Output,
		Body:   body,
		tmpl:   tmpl,
	}
	if len(fm.Config) > 0 {
		doc.Config = template.FromGo(fm.Config).Map()
	}
	for _, item := range fm.Before {
		key := fmt.Sprint(item.Key)
		cmd, ok := item.Value.(string)
		if !ok {
			return nil, fmt.Errorf("before step %q: command must be a string, got %T", key, item.Value)
		}
		doc.Before = append(doc.Before, BeforeStep{Key: key, Command: cmd})
	}
	doc.Schema = parseSchema(fm.Input.Schema)
	doc.ShellTools, doc.Warnings = parseShellTools(fm.ShellTools)

	return doc, nil
}

// Template returns the parsed body
func (d *Document) Template() *template.Template {
	return d.tmpl
}

// splitFrontMatter returns the YAML header and the body. Content without a
// leading --- line is all body.
func splitFrontMatter(data []byte) ([]byte, string, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if !strings.HasPrefix(text, frontMatterDelim+"\n") {
		return nil, text, nil
	}

	rest := text[len(frontMatterDelim)+1:]
	if strings.HasPrefix(rest, frontMatterDelim+"\n") {
		return nil, rest[len(frontMatterDelim)+1:], nil
	}
	end := strings.Index(rest, "\n"+frontMatterDelim+"\n")
	if end < 0 {
		if strings.HasSuffix(rest, "\n"+frontMatterDelim) {
			return []byte(strings.TrimSuffix(rest, "\n"+frontMatterDelim)), "", nil
		}
		return nil, "", fmt.Errorf("front matter is not terminated by %q", frontMatterDelim)
	}
	return []byte(rest[:end]), rest[end+len(frontMatterDelim)+2:], nil
}
