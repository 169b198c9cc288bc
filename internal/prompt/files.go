package prompt

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/aescanero/dago-node-prompt/internal/eval/template"
	"github.com/aescanero/dago-node-prompt/internal/llm"
)

// sniffLen is how much of a file is checked for NUL bytes
const sniffLen = 8000

// ResolveFiles renders the document's files: patterns and any extra ones
// against vars, expands globs and reads the matching text files. Patterns
// without matches, directories and binary files are logged and skipped. Each
// path is attached once.
func (b *Builder) ResolveFiles(doc *Document, vars template.Value, extra []string) ([]llm.Attachment, error) {
	patterns := append(append([]string{}, doc.Files...), extra...)
	if len(patterns) == 0 {
		return nil, nil
	}
	if !b.files {
		b.logger.Warn("files declared but file reading is disabled",
			zap.Int("patterns", len(patterns)),
		)
		return nil, nil
	}

	var attachments []llm.Attachment
	seen := make(map[string]bool)
	for _, raw := range patterns {
		tmpl, err := template.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("file pattern %q: %w", raw, err)
		}
		pattern := strings.TrimSpace(tmpl.Render(vars))
		if pattern == "" {
			continue
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("file pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			b.logger.Warn("No files match pattern", zap.String("pattern", pattern))
			continue
		}

		for _, path := range matches {
			if seen[path] {
				continue
			}
			seen[path] = true

			attachment, ok, err := b.readAttachment(path)
			if err != nil {
				return nil, err
			}
			if ok {
				attachments = append(attachments, attachment)
			}
		}
	}
	return attachments, nil
}

func (b *Builder) readAttachment(path string) (llm.Attachment, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return llm.Attachment{}, false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		b.logger.Debug("skipping directory", zap.String("path", path))
		return llm.Attachment{}, false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return llm.Attachment{}, false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if isBinary(data) {
		b.logger.Warn("skipping binary file", zap.String("path", path))
		return llm.Attachment{}, false, nil
	}

	b.logger.Info("file loaded",
		zap.String("path", path),
		zap.Int("bytes", len(data)),
	)
	return llm.Attachment{Name: path, Content: string(data)}, true, nil
}

func isBinary(data []byte) bool {
	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	return bytes.IndexByte(head, 0) >= 0 || !utf8.Valid(data)
}
