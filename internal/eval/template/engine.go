package template

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Engine renders prompt templates, caching parsed templates by source text
type Engine struct {
	cache  map[string]*Template
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewEngine creates a new template engine. A nil logger disables logging.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cache:  make(map[string]*Template),
		logger: logger,
	}
}

// Render renders a template with the given data. Data is converted with
// FromGo; only a malformed template produces an error.
func (e *Engine) Render(templateStr string, data interface{}) (string, error) {
	tmpl, err := e.getTemplate(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to compile template: %w", err)
	}
	return tmpl.Render(FromGo(data)), nil
}

// getTemplate gets a parsed template from cache or parses it
func (e *Engine) getTemplate(templateStr string) (*Template, error) {
	e.mu.RLock()
	if tmpl, ok := e.cache[templateStr]; ok {
		e.mu.RUnlock()
		return tmpl, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	// Another goroutine may have parsed it while we waited
	if tmpl, ok := e.cache[templateStr]; ok {
		return tmpl, nil
	}

	tmpl, err := Parse(templateStr)
	if err != nil {
		return nil, err
	}
	e.cache[templateStr] = tmpl

	e.logger.Debug("template compiled",
		zap.Int("source_bytes", len(templateStr)),
		zap.Int("top_level_nodes", len(tmpl.Nodes())),
		zap.Int("cached", len(e.cache)),
	)

	return tmpl, nil
}

// Compile returns the cached parsed template for templateStr
func (e *Engine) Compile(templateStr string) (*Template, error) {
	return e.getTemplate(templateStr)
}

// ValidateTemplate validates a template without rendering it
func (e *Engine) ValidateTemplate(templateStr string) error {
	_, err := Parse(templateStr)
	return err
}

// ClearCache clears the parsed template cache
func (e *Engine) ClearCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache = make(map[string]*Template)
}
