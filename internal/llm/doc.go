// Package llm sends rendered prompts to language model providers.
//
// Two Client implementations are provided: AdapterClient wraps the shared
// dago-adapters provider clients, and OpenAIClient talks to any endpoint that
// implements the OpenAI chat-completions protocol (used when a base URL
// override is configured).
package llm
