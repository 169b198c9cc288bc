package prompt

import (
	"fmt"

	"github.com/goccy/go-yaml"

	"github.com/aescanero/dago-node-prompt/internal/llm"
)

// ShellTool is a command offered to the model as a callable tool.
// Safe tools may run without confirmation once dispatch exists.
type ShellTool struct {
	Name        string
	Command     string
	Description string
	Safe        bool
}

// parseShellTools accepts the short form `name: command` and the long form
// with cmd, description and safe keys. Entries without a command are
// skipped with a warning.
func parseShellTools(items yaml.MapSlice) ([]ShellTool, []string) {
	var (
		tools    []ShellTool
		warnings []string
	)
	for _, item := range items {
		name := fmt.Sprint(item.Key)
		tool := ShellTool{Name: name}
		switch v := item.Value.(type) {
		case string:
			tool.Command = v
		case yaml.MapSlice:
			for _, field := range v {
				switch fmt.Sprint(field.Key) {
				case "cmd":
					tool.Command, _ = field.Value.(string)
				case "description":
					tool.Description, _ = field.Value.(string)
				case "safe":
					tool.Safe, _ = field.Value.(bool)
				}
			}
		case map[string]interface{}:
			tool.Command, _ = v["cmd"].(string)
			tool.Description, _ = v["description"].(string)
			tool.Safe, _ = v["safe"].(bool)
		}
		if tool.Command == "" {
			warnings = append(warnings, fmt.Sprintf("shell tool %q: missing 'cmd' field, skipped", name))
			continue
		}
		if tool.Description == "" {
			tool.Description = tool.Command
		}
		tools = append(tools, tool)
	}
	return tools, warnings
}

// Tools returns the document's shell tools as model tool definitions
func (d *Document) Tools() []llm.Tool {
	if len(d.ShellTools) == 0 {
		return nil
	}
	tools := make([]llm.Tool, len(d.ShellTools))
	for i, t := range d.ShellTools {
		tools[i] = llm.CommandTool(t.Name, t.Command, t.Description)
	}
	return tools
}
