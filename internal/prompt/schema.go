package prompt

import (
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/aescanero/dago-node-prompt/internal/eval/template"
)

// SchemaField is one entry of the front matter input schema.
// A trailing "?" on the field name marks it optional.
type SchemaField struct {
	Name     string
	Type     string
	Optional bool
}

func parseSchema(schema yaml.MapSlice) []SchemaField {
	fields := make([]SchemaField, 0, len(schema))
	for _, item := range schema {
		name := fmt.Sprint(item.Key)
		field := SchemaField{Name: name}
		if strings.HasSuffix(name, "?") {
			field.Name = strings.TrimSuffix(name, "?")
			field.Optional = true
		}
		switch v := item.Value.(type) {
		case nil:
		case string:
			field.Type = v
		default:
			field.Type = template.FromGo(v).String()
		}
		fields = append(fields, field)
	}
	return fields
}

// MissingInputError lists required schema fields absent from the context
type MissingInputError struct {
	Fields []string
	Schema []SchemaField
}

func (e *MissingInputError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Missing required input field(s): %s\n", strings.Join(e.Fields, ", "))
	b.WriteString("Expected input schema:\n")
	b.WriteString(FormatSchema(e.Schema))
	return strings.TrimRight(b.String(), "\n")
}

// FormatSchema renders fields one per line, each marked (required) or
// (optional)
func FormatSchema(fields []SchemaField) string {
	var b strings.Builder
	for _, f := range fields {
		b.WriteString("  ")
		b.WriteString(f.Name)
		if f.Type != "" {
			b.WriteString(": ")
			b.WriteString(f.Type)
		}
		if f.Optional {
			b.WriteString(" (optional)\n")
		} else {
			b.WriteString(" (required)\n")
		}
	}
	return b.String()
}

// ValidateInputs checks every required field is present and non-null in vars.
// Empty strings count as missing.
func ValidateInputs(schema []SchemaField, vars *template.Map) error {
	var missing []string
	for _, f := range schema {
		if f.Optional {
			continue
		}
		v, ok := vars.Get(f.Name)
		if !ok || v.IsNull() || (v.Kind() == template.KindString && v.String() == "") {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return &MissingInputError{Fields: missing, Schema: schema}
	}
	return nil
}
