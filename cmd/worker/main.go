package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/sschoedel/paper-search/internal/activities"
	"github.com/sschoedel/paper-search/internal/collectors"
	"github.com/sschoedel/paper-search/internal/config"
	"github.com/sschoedel/paper-search/internal/dedup"
	"github.com/sschoedel/paper-search/internal/enrich"
	"github.com/sschoedel/paper-search/internal/library"
	"github.com/sschoedel/paper-search/internal/providers"
	"github.com/sschoedel/paper-search/internal/storage"
	"github.com/sschoedel/paper-search/internal/workflows"
)

func main() {
	_ = godotenv.Load(".env")
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if err := cfg.ValidateProviderCredentials(); err != nil {
		log.Fatal().Err(err).Msg("invalid provider configuration")
	}

	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to temporal")
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer db.Close()
	if err := db.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize schema")
	}

	sources, err := collectors.LoadSources(cfg.SourcesPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.SourcesPath).Msg("failed to load source config")
	}
	cols := []collectors.Collector{
		collectors.NewArxivCollector(sources.Arxiv, cfg.LookbackHours, cfg.ArxivRateLimit),
	}
	if len(sources.Feeds) > 0 {
		cols = append(cols, collectors.NewRSSCollector(sources.Feeds, cfg.LookbackHours))
	}

	sink := library.NewZoteroClient(cfg.ZoteroLibraryID, cfg.ZoteroLibraryType, cfg.ZoteroAPIKey)
	deduper := dedup.New(sink, cfg.TitleThreshold, cfg.AbstractThreshold)

	chat, embed, err := providers.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to construct llm providers")
	}
	enricher := enrich.New(chat, embed, cfg.LLMRateLimit, cfg.EnrichBatchSize)

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})
	workflows.Register(w)
	activities.Register(w, activities.New(cfg, db, cols, deduper, enricher, sink))

	log.Info().
		Str("temporal", cfg.TemporalAddress).
		Str("task_queue", cfg.TemporalTaskQueue).
		Str("llm_provider", string(cfg.LLMProvider)).
		Int("collectors", len(cols)).
		Msg("worker starting")
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatal().Err(err).Msg("worker stopped")
	}
}
