package llm

import (
	"fmt"

	"github.com/ThePyWizard/subgenie/internal/config"
)

// NewProvider returns the chat provider named by cfg.Provider. Providers are
// built even when their credential is missing so that startup never fails;
// the first call reports ErrMissingCredential instead.
func NewProvider(cfg config.TranslationConfig) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAIProvider(cfg.OpenAIKey, ""), nil
	case config.ProviderAnthropic:
		return NewAnthropicProvider(cfg.AnthropicKey), nil
	case config.ProviderOllama:
		return NewOllamaProvider(cfg.OllamaURL), nil
	default:
		return nil, fmt.Errorf("provider %q not supported", cfg.Provider)
	}
}
