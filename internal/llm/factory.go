package llm

import (
	"fmt"

	"go.uber.org/zap"
)

// Options selects and configures a Client
type Options struct {
	Provider string
	APIKey   string
	// BaseURL routes every request to an OpenAI-compatible endpoint,
	// regardless of Provider
	BaseURL string
}

// NewClient returns an OpenAIClient when a base URL is set, otherwise a
// dago-adapters client for the provider
func NewClient(opts Options, logger *zap.Logger) (Client, error) {
	if opts.BaseURL != "" {
		logger.Debug("using openai-compatible endpoint", zap.String("base_url", opts.BaseURL))
		return NewOpenAIClient(opts.APIKey, opts.BaseURL), nil
	}
	if opts.Provider == "" {
		return nil, fmt.Errorf("llm provider is required when no base url is set")
	}
	if opts.APIKey == "" {
		return nil, fmt.Errorf("api key is required for provider %s", opts.Provider)
	}
	return NewProviderClient(opts.Provider, opts.APIKey, logger)
}
