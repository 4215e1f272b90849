package providers

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/sschoedel/paper-search/internal/config"
)

// New builds the chat and embedding providers for the configured backend.
// Anthropic covers completions only; embeddings fall back to OpenAI when a
// key is present, otherwise to the deterministic mock.
func New(cfg config.Config) (ChatProvider, EmbeddingProvider, error) {
	switch cfg.LLMProvider {
	case config.ProviderMock:
		m := NewMockProvider(cfg.EmbeddingDim)
		return m, m, nil
	case config.ProviderOpenAI:
		p := NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.SummarizationModel, cfg.EmbeddingModel, cfg.EmbeddingDim)
		return p, p, nil
	case config.ProviderAnthropic:
		chat := NewAnthropicProvider(cfg.AnthropicAPIKey, cfg.SummarizationModel)
		if cfg.OpenAIAPIKey != "" {
			return chat, NewOpenAIProvider(cfg.OpenAIAPIKey, "", cfg.EmbeddingModel, cfg.EmbeddingDim), nil
		}
		log.Warn().Msg("anthropic provider has no embedding endpoint and no openai key is set, using mock embeddings")
		return chat, NewMockProvider(cfg.EmbeddingDim), nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown llm provider %q", config.ErrConfiguration, cfg.LLMProvider)
	}
}
