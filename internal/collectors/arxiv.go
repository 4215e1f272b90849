package collectors

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sschoedel/paper-search/internal/models"
	"github.com/sschoedel/paper-search/internal/ratelimit"
	"github.com/sschoedel/paper-search/internal/util"
)

const defaultArxivBaseURL = "http://export.arxiv.org/api/query"

// ArxivCollector queries the arXiv Atom API with category and keyword
// searches. arXiv asks clients to stay around one request per few seconds,
// so every query goes through the token bucket.
type ArxivCollector struct {
	cfg           ArxivConfig
	lookbackHours int
	limiter       *ratelimit.Limiter
	client        *http.Client
	baseURL       string
	now           func() time.Time
}

func NewArxivCollector(cfg ArxivConfig, lookbackHours int, rateLimit float64) *ArxivCollector {
	return &ArxivCollector{
		cfg:           cfg,
		lookbackHours: lookbackHours,
		limiter:       ratelimit.New(rateLimit, 1),
		client:        &http.Client{Timeout: 30 * time.Second},
		baseURL:       defaultArxivBaseURL,
		now:           time.Now,
	}
}

func (c *ArxivCollector) SourceName() string { return "arxiv" }

func (c *ArxivCollector) Collect(ctx context.Context) ([]models.Paper, error) {
	cutoff := c.now().UTC().Add(-time.Duration(c.lookbackHours) * time.Hour)
	queries := c.buildQueries()
	logger := log.With().Str("component", "arxiv_collector").Logger()
	logger.Info().Int("queries", len(queries)).Msg("starting arxiv collection")

	papers := make([]models.Paper, 0)
	seen := make(map[string]struct{})
	for _, q := range queries {
		if err := c.limiter.Acquire(ctx); err != nil {
			return papers, err
		}
		entries, err := c.search(ctx, q)
		if err != nil {
			// One bad query must not abort the whole source.
			logger.Warn().Err(err).Str("query", q).Msg("arxiv query failed")
			continue
		}
		for _, e := range entries {
			// Results are sorted by submission date descending, so the
			// first entry past the cutoff ends the query.
			if e.Published.Before(cutoff) {
				break
			}
			p := c.entryToPaper(e)
			if _, dup := seen[p.ArxivID]; dup {
				continue
			}
			seen[p.ArxivID] = struct{}{}
			papers = append(papers, p)
		}
	}
	logger.Info().Int("papers", len(papers)).Msg("arxiv collection finished")
	return papers, nil
}

func (c *ArxivCollector) buildQueries() []string {
	queries := make([]string, 0, len(c.cfg.Categories)+len(c.cfg.Keywords))
	for _, cat := range c.cfg.Categories {
		queries = append(queries, "cat:"+cat)
	}
	for _, kw := range c.cfg.Keywords {
		queries = append(queries, fmt.Sprintf("ti:%q OR abs:%q", kw, kw))
	}
	return queries
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string    `xml:"id"`
	Published time.Time `xml:"published"`
	Title     string    `xml:"title"`
	Summary   string    `xml:"summary"`
	DOI       string    `xml:"doi"`
	Authors   []struct {
		Name string `xml:"name"`
	} `xml:"author"`
	Categories []struct {
		Term string `xml:"term,attr"`
	} `xml:"category"`
}

func (c *ArxivCollector) search(ctx context.Context, query string) ([]atomEntry, error) {
	params := url.Values{}
	params.Set("search_query", query)
	params.Set("start", "0")
	params.Set("max_results", fmt.Sprintf("%d", c.cfg.MaxResultsPerQuery))
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build arxiv request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("arxiv returned %d: %s", resp.StatusCode, string(body))
	}

	var feed atomFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decode arxiv feed: %w", err)
	}
	return feed.Entries, nil
}

func (c *ArxivCollector) entryToPaper(e atomEntry) models.Paper {
	// The entry id is the abstract URL; the arXiv id is its last segment.
	arxivID := e.ID
	if i := strings.LastIndex(arxivID, "/"); i >= 0 {
		arxivID = arxivID[i+1:]
	}

	authors := make([]models.Author, 0, len(e.Authors))
	for _, a := range e.Authors {
		authors = append(authors, models.Author{
			Name:           a.Name,
			NormalizedName: strings.ToLower(strings.TrimSpace(a.Name)),
		})
	}
	categories := make([]models.Category, 0, len(e.Categories))
	for _, cat := range e.Categories {
		if cat.Term == "" {
			continue
		}
		categories = append(categories, models.Category{Name: cat.Term, Source: "arxiv"})
	}

	return models.Paper{
		ArxivID:         arxivID,
		DOI:             e.DOI,
		URL:             e.ID,
		Title:           util.SanitizeText(strings.Join(strings.Fields(e.Title), " ")),
		Abstract:        util.SanitizeText(strings.Join(strings.Fields(e.Summary), " ")),
		PublicationDate: e.Published,
		Source:          "arxiv",
		CollectedAt:     c.now().UTC(),
		Authors:         authors,
		Categories:      categories,
	}
}
