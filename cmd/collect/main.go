package main

import (
	"context"
	"flag"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	tclient "go.temporal.io/sdk/client"

	"github.com/sschoedel/paper-search/internal/config"
	"github.com/sschoedel/paper-search/internal/workflows"
)

// collect triggers one collection run on a running worker.
func main() {
	dryRun := flag.Bool("dry-run", false, "skip deduplication and external persistence, report counts only")
	wait := flag.Bool("wait", true, "block until the run finishes and print its stats")
	flag.Parse()

	_ = godotenv.Load(".env")
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	tc, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to temporal")
	}
	defer tc.Close()

	ctx := context.Background()
	we, err := tc.ExecuteWorkflow(ctx, tclient.StartWorkflowOptions{
		ID:        "collect-" + uuid.NewString(),
		TaskQueue: cfg.TemporalTaskQueue,
	}, workflows.DailyCollectionWorkflow, workflows.DailyCollectionInput{DryRun: *dryRun})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start collection run")
	}
	log.Info().Str("workflow_id", we.GetID()).Bool("dry_run", *dryRun).Msg("collection run started")

	if !*wait {
		return
	}
	var out workflows.DailyCollectionOutput
	if err := we.Get(ctx, &out); err != nil {
		log.Fatal().Err(err).Msg("collection run failed")
	}
	log.Info().
		Int64("run_id", out.RunID).
		Int("collected", out.Stats.Collected).
		Int("duplicates", out.Stats.Duplicates).
		Int("processed", out.Stats.Processed).
		Int("stored", out.Stats.Stored).
		Int("errors", out.Stats.Errors).
		Msg("collection run completed")
}
