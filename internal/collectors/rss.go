package collectors

import (
	"context"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog/log"

	"github.com/sschoedel/paper-search/internal/models"
	"github.com/sschoedel/paper-search/internal/util"
)

// RSSCollector pulls configured syndication feeds. The source tag is
// "rss:<feed name>" so per-feed counts stay visible downstream.
type RSSCollector struct {
	feeds         []FeedConfig
	lookbackHours int
	parser        *gofeed.Parser
	now           func() time.Time
}

func NewRSSCollector(feeds []FeedConfig, lookbackHours int) *RSSCollector {
	return &RSSCollector{
		feeds:         feeds,
		lookbackHours: lookbackHours,
		parser:        gofeed.NewParser(),
		now:           time.Now,
	}
}

func (c *RSSCollector) SourceName() string { return "rss" }

func (c *RSSCollector) Collect(ctx context.Context) ([]models.Paper, error) {
	cutoff := c.now().UTC().Add(-time.Duration(c.lookbackHours) * time.Hour)
	logger := log.With().Str("component", "rss_collector").Logger()

	papers := make([]models.Paper, 0)
	for _, feedCfg := range c.feeds {
		feed, err := c.parser.ParseURLWithContext(feedCfg.URL, ctx)
		if err != nil {
			// A broken feed must not abort the other feeds.
			logger.Warn().Err(err).Str("feed", feedCfg.Name).Msg("rss fetch failed")
			continue
		}
		for _, item := range feed.Items {
			published := itemDate(item)
			if published == nil || published.Before(cutoff) {
				continue
			}
			p, ok := c.itemToPaper(item, feedCfg.Name, *published)
			if !ok {
				continue
			}
			papers = append(papers, p)
		}
	}
	logger.Info().Int("papers", len(papers)).Msg("rss collection finished")
	return papers, nil
}

func itemDate(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}
	return item.UpdatedParsed
}

func (c *RSSCollector) itemToPaper(item *gofeed.Item, feedName string, published time.Time) (models.Paper, bool) {
	title := strings.TrimSpace(item.Title)
	if title == "" || item.Link == "" {
		return models.Paper{}, false
	}

	abstract := item.Description
	if abstract == "" {
		abstract = item.Content
	}
	abstract = util.SanitizeText(util.StripHTML(abstract))

	authors := make([]models.Author, 0, len(item.Authors))
	for _, a := range item.Authors {
		if a == nil || a.Name == "" {
			continue
		}
		authors = append(authors, models.Author{
			Name:           a.Name,
			NormalizedName: strings.ToLower(strings.TrimSpace(a.Name)),
		})
	}

	// Feeds that syndicate arXiv carry the id in the link.
	arxivID := ""
	if strings.Contains(item.Link, "arxiv.org") {
		if i := strings.LastIndex(item.Link, "/"); i >= 0 {
			arxivID = item.Link[i+1:]
		}
	}

	return models.Paper{
		ArxivID:         arxivID,
		URL:             item.Link,
		Title:           util.SanitizeText(title),
		Abstract:        abstract,
		PublicationDate: published.UTC(),
		Source:          "rss:" + feedName,
		CollectedAt:     c.now().UTC(),
		Authors:         authors,
		Categories:      []models.Category{{Name: feedName, Source: "rss"}},
	}, true
}
