package dedup

import (
	"context"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/rs/zerolog/log"

	"github.com/sschoedel/paper-search/internal/library"
	"github.com/sschoedel/paper-search/internal/models"
)

// abstractPrefixLen bounds the abstract comparison; full abstracts differ in
// trailing boilerplate even for the same paper.
const abstractPrefixLen = 200

// Deduplicator decides whether a collected paper already exists in the
// reference library. Matching runs in tiers: exact arXiv id, exact DOI, fuzzy
// title, then fuzzy abstract prefix as a secondary signal. Library lookup
// failures fail open so a flaky library never silently drops papers.
type Deduplicator struct {
	sink              library.Sink
	titleThreshold    float64
	abstractThreshold float64
}

func New(sink library.Sink, titleThreshold, abstractThreshold float64) *Deduplicator {
	return &Deduplicator{
		sink:              sink,
		titleThreshold:    titleThreshold,
		abstractThreshold: abstractThreshold,
	}
}

// IsDuplicate reports whether p matches an existing library item, and the
// matching item's key when it does.
func (d *Deduplicator) IsDuplicate(ctx context.Context, p *models.Paper) (bool, string) {
	logger := log.With().Str("component", "deduplicator").Str("title", p.Title).Logger()

	if p.ArxivID != "" {
		key, found, err := d.sink.FindByIdentifier(ctx, p.ArxivID)
		if err != nil {
			logger.Warn().Err(err).Msg("arxiv id lookup failed, treating as new")
			return false, ""
		}
		if found {
			logger.Debug().Str("item_key", key).Msg("duplicate by arxiv id")
			return true, key
		}
	}

	if p.DOI != "" {
		key, found, err := d.sink.FindByIdentifier(ctx, p.DOI)
		if err != nil {
			logger.Warn().Err(err).Msg("doi lookup failed, treating as new")
			return false, ""
		}
		if found {
			logger.Debug().Str("item_key", key).Msg("duplicate by doi")
			return true, key
		}
	}

	candidates, err := d.sink.TitleCandidates(ctx, p.Title)
	if err != nil {
		logger.Warn().Err(err).Msg("title search failed, treating as new")
		return false, ""
	}
	for _, c := range candidates {
		if similarity(p.Title, c.Title) >= d.titleThreshold {
			logger.Debug().Str("item_key", c.Key).Msg("duplicate by title")
			return true, c.Key
		}
		if p.Abstract != "" && c.Abstract != "" &&
			similarity(prefix(p.Abstract), prefix(c.Abstract)) >= d.abstractThreshold {
			logger.Debug().Str("item_key", c.Key).Msg("duplicate by abstract prefix")
			return true, c.Key
		}
	}
	return false, ""
}

// similarity is a normalized Levenshtein ratio in [0, 1], case-insensitive.
func similarity(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if a == b {
		return 1.0
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(longest)
}

func prefix(s string) string {
	r := []rune(s)
	if len(r) > abstractPrefixLen {
		r = r[:abstractPrefixLen]
	}
	return string(r)
}
