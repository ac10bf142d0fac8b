package embedding

import (
	"fmt"
	"strings"
)

// NewEmbedder creates an Embedder for the named provider.
//
// Only "openai" is supported today; the factory exists so additional
// providers can be added without touching call sites.
func NewEmbedder(provider string, cfg OpenAIConfig) (Embedder, error) {
	switch strings.ToLower(provider) {
	case "openai", "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("embedding: openai provider requires an API key")
		}
		return NewOpenAIEmbedder(cfg), nil
	default:
		return nil, fmt.Errorf("embedding: unknown provider %q", provider)
	}
}
