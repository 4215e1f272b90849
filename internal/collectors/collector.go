package collectors

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sschoedel/paper-search/internal/models"
)

// Collector normalizes one upstream source into papers. Implementations
// apply their own lookback-window filter and rate limiting, and swallow
// per-query errors so one bad query never aborts the source.
type Collector interface {
	Collect(ctx context.Context) ([]models.Paper, error)
	SourceName() string
}

type FeedConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type ArxivConfig struct {
	Categories         []string `yaml:"categories"`
	Keywords           []string `yaml:"keywords"`
	MaxResultsPerQuery int      `yaml:"max_results_per_query"`
}

// Sources is the YAML source configuration (arXiv queries plus RSS feeds).
type Sources struct {
	Arxiv ArxivConfig  `yaml:"arxiv"`
	Feeds []FeedConfig `yaml:"feeds"`
}

func defaultSources() Sources {
	return Sources{
		Arxiv: ArxivConfig{
			Categories:         []string{"cs.LG", "cs.RO", "cs.AI"},
			Keywords:           []string{"reinforcement learning"},
			MaxResultsPerQuery: 50,
		},
	}
}

// LoadSources reads the source configuration, falling back to defaults when
// the file does not exist.
func LoadSources(path string) (Sources, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultSources(), nil
		}
		return Sources{}, fmt.Errorf("read sources config: %w", err)
	}
	var s Sources
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Sources{}, fmt.Errorf("parse sources config: %w", err)
	}
	if s.Arxiv.MaxResultsPerQuery <= 0 {
		s.Arxiv.MaxResultsPerQuery = 50
	}
	return s, nil
}
