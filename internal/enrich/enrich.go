package enrich

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/sschoedel/paper-search/internal/models"
	"github.com/sschoedel/paper-search/internal/providers"
	"github.com/sschoedel/paper-search/internal/ratelimit"
	"github.com/sschoedel/paper-search/internal/vector"
)

const summarizePromptTemplate = `Please summarize this research paper in 2-3 clear, concise sentences. Focus on:
1. What problem does the paper address?
2. What is the key approach or contribution?
3. What are the main results or findings?

Title: %s

Abstract: %s

Provide only the summary, no additional commentary.`

const keyIdeasPromptTemplate = `Extract 3-5 key ideas from this research paper. Each idea should be a concise bullet point (1 sentence).

Title: %s

Abstract: %s

Provide only the bullet points, one per line, without numbers or bullet symbols.`

const (
	maxKeyIdeas    = 5
	maxEmbedChars  = 6000
	completeTokens = 300
)

// Enricher generates AI summaries, key ideas and embeddings for collected
// papers. Provider calls are rate limited and retried up to three attempts
// with exponential backoff.
type Enricher struct {
	chat      providers.ChatProvider
	embed     providers.EmbeddingProvider
	limiter   *ratelimit.Limiter
	batchSize int
}

func New(chat providers.ChatProvider, embed providers.EmbeddingProvider, ratePerSec float64, batchSize int) *Enricher {
	if batchSize <= 0 {
		batchSize = 5
	}
	return &Enricher{
		chat:      chat,
		embed:     embed,
		limiter:   ratelimit.New(ratePerSec, 0),
		batchSize: batchSize,
	}
}

// Summarize produces a 2-3 sentence summary from title and abstract.
func (e *Enricher) Summarize(ctx context.Context, title, abstract string) (string, error) {
	prompt := fmt.Sprintf(summarizePromptTemplate, title, abstract)
	var out string
	err := e.withRetry(ctx, func() error {
		if err := e.limiter.Acquire(ctx); err != nil {
			return backoff.Permanent(err)
		}
		text, err := e.chat.Complete(ctx, providers.CompleteRequest{Prompt: prompt, MaxTokens: completeTokens})
		if err != nil {
			return err
		}
		out = strings.TrimSpace(text)
		return nil
	})
	return out, err
}

// KeyIdeas extracts up to five one-line ideas from title and abstract.
func (e *Enricher) KeyIdeas(ctx context.Context, title, abstract string) ([]string, error) {
	prompt := fmt.Sprintf(keyIdeasPromptTemplate, title, abstract)
	var raw string
	err := e.withRetry(ctx, func() error {
		if err := e.limiter.Acquire(ctx); err != nil {
			return backoff.Permanent(err)
		}
		text, err := e.chat.Complete(ctx, providers.CompleteRequest{Prompt: prompt, MaxTokens: completeTokens})
		if err != nil {
			return err
		}
		raw = text
		return nil
	})
	if err != nil {
		return nil, err
	}
	return parseIdeas(raw), nil
}

// Embedding embeds the paper text (title weighted twice, then abstract and
// summary) and returns the encoded vector.
func (e *Enricher) Embedding(ctx context.Context, title, abstract, summary string) ([]byte, error) {
	parts := []string{title, title, abstract}
	if summary != "" {
		parts = append(parts, summary)
	}
	text := strings.Join(parts, " ")
	if len(text) > maxEmbedChars {
		text = text[:maxEmbedChars]
	}

	var vecs [][]float32
	err := e.withRetry(ctx, func() error {
		if err := e.limiter.Acquire(ctx); err != nil {
			return backoff.Permanent(err)
		}
		out, err := e.embed.Embed(ctx, []string{text})
		if err != nil {
			return err
		}
		vecs = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vecs))
	}
	return vector.Encode(vecs[0]), nil
}

// EnrichBatch enriches papers in place, batchSize at a time with one
// goroutine per paper. A failing paper keeps its fields unset and never
// affects its siblings. Returns the number of papers fully enriched and the
// number that failed at least one step.
func (e *Enricher) EnrichBatch(ctx context.Context, papers []models.Paper) (processed, failed int) {
	for start := 0; start < len(papers); start += e.batchSize {
		end := start + e.batchSize
		if end > len(papers) {
			end = len(papers)
		}
		log.Info().Int("from", start).Int("to", end).Int("total", len(papers)).Msg("enriching batch")

		var wg sync.WaitGroup
		results := make([]bool, end-start)
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i-start] = e.enrichOne(ctx, &papers[i])
			}(i)
		}
		wg.Wait()

		for _, ok := range results {
			if ok {
				processed++
			} else {
				failed++
			}
		}
	}
	return processed, failed
}

// enrichOne fills AISummary, KeyIdeas, Embedding and ProcessedAt. Each step
// is independent so a failed summary does not block the embedding.
func (e *Enricher) enrichOne(ctx context.Context, p *models.Paper) bool {
	logger := log.With().Str("component", "enricher").Str("title", p.Title).Logger()
	ok := true

	summary, err := e.Summarize(ctx, p.Title, p.Abstract)
	if err != nil {
		logger.Error().Err(err).Msg("summary generation failed")
		ok = false
	} else {
		p.AISummary = summary
	}

	ideas, err := e.KeyIdeas(ctx, p.Title, p.Abstract)
	if err != nil {
		logger.Error().Err(err).Msg("key idea extraction failed")
		ok = false
	} else {
		p.KeyIdeas = ideas
	}

	emb, err := e.Embedding(ctx, p.Title, p.Abstract, p.AISummary)
	if err != nil {
		logger.Error().Err(err).Msg("embedding generation failed")
		ok = false
	} else {
		p.Embedding = emb
	}

	if p.AISummary != "" || len(p.KeyIdeas) > 0 || len(p.Embedding) > 0 {
		now := time.Now().UTC()
		p.ProcessedAt = &now
	}
	return ok
}

func (e *Enricher) withRetry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 4 * time.Second
	b.MaxInterval = 60 * time.Second
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		switch providers.ClassifyError(err) {
		case providers.ErrorPermanent, providers.ErrorContext:
			return backoff.Permanent(err)
		default:
			return err
		}
	}, backoff.WithContext(backoff.WithMaxRetries(b, 2), ctx))
}

func parseIdeas(raw string) []string {
	var ideas []string
	for _, line := range strings.Split(raw, "\n") {
		idea := strings.TrimSpace(line)
		idea = strings.TrimSpace(strings.TrimLeft(idea, "•-* "))
		if idea == "" {
			continue
		}
		ideas = append(ideas, idea)
		if len(ideas) == maxKeyIdeas {
			break
		}
	}
	return ideas
}
