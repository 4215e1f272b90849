package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/sschoedel/paper-search/internal/activities"
	"github.com/sschoedel/paper-search/internal/models"
)

const QueryGetProgress = "GetProgress"

// DailyCollectionWorkflow runs one collection pipeline execution:
// collect, dedupe, enrich, persist, with run tracking. Phases run strictly
// sequentially. Dry runs skip deduplication and external persistence but
// report what would have been stored.
func DailyCollectionWorkflow(ctx workflow.Context, input DailyCollectionInput) (DailyCollectionOutput, error) {
	progress := DailyCollectionProgress{Phase: "starting"}
	if err := workflow.SetQueryHandler(ctx, QueryGetProgress, func() (DailyCollectionProgress, error) {
		return progress, nil
	}); err != nil {
		return DailyCollectionOutput{}, err
	}

	// Retries for provider and feed calls live inside the adapters, so a
	// failed activity is already past its retry budget.
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 15 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var started activities.StartRunOutput
	if err := workflow.ExecuteActivity(ctx, "StartRunActivity", activities.StartRunInput{DryRun: input.DryRun}).Get(ctx, &started); err != nil {
		return DailyCollectionOutput{}, err
	}
	progress.RunID = started.RunID
	stats := models.RunStats{}

	progress.Phase = "collecting"
	var collected activities.CollectOutput
	if err := workflow.ExecuteActivity(ctx, "CollectActivity").Get(ctx, &collected); err != nil {
		failRun(ctx, started.RunID, stats, err)
		return DailyCollectionOutput{RunID: started.RunID, Stats: stats}, err
	}
	stats.Collected = len(collected.Papers)
	progress.Stats = stats

	if stats.Collected == 0 {
		return completeRun(ctx, &progress, started.RunID, stats)
	}

	unique := collected.Papers
	if !input.DryRun {
		progress.Phase = "deduplicating"
		var deduped activities.DedupeOutput
		if err := workflow.ExecuteActivity(ctx, "DedupeActivity", activities.DedupeInput{Papers: unique}).Get(ctx, &deduped); err != nil {
			failRun(ctx, started.RunID, stats, err)
			return DailyCollectionOutput{RunID: started.RunID, Stats: stats}, err
		}
		unique = deduped.Unique
		stats.Duplicates = deduped.Duplicates
		progress.Stats = stats

		if len(unique) == 0 {
			return completeRun(ctx, &progress, started.RunID, stats)
		}
	}

	progress.Phase = "enriching"
	var enriched activities.EnrichOutput
	if err := workflow.ExecuteActivity(ctx, "EnrichActivity", activities.EnrichInput{Papers: unique}).Get(ctx, &enriched); err != nil {
		// Enrichment is never fatal; persist the papers as collected.
		workflow.GetLogger(ctx).Warn("enrichment failed, continuing without summaries", "error", err)
	} else {
		unique = enriched.Papers
		stats.Processed = enriched.Processed
	}
	progress.Stats = stats

	progress.Phase = "persisting"
	var persisted activities.PersistOutput
	if err := workflow.ExecuteActivity(ctx, "PersistActivity", activities.PersistInput{Papers: unique, DryRun: input.DryRun}).Get(ctx, &persisted); err != nil {
		failRun(ctx, started.RunID, stats, err)
		return DailyCollectionOutput{RunID: started.RunID, Stats: stats}, err
	}
	stats.Stored = persisted.Stored
	stats.Errors = persisted.Errors
	progress.Stats = stats

	return completeRun(ctx, &progress, started.RunID, stats)
}

func completeRun(ctx workflow.Context, progress *DailyCollectionProgress, runID int64, stats models.RunStats) (DailyCollectionOutput, error) {
	progress.Phase = "completed"
	progress.Stats = stats
	if err := workflow.ExecuteActivity(ctx, "CompleteRunActivity", activities.CompleteRunInput{
		RunID:  runID,
		Status: models.RunCompleted,
		Stats:  stats,
	}).Get(ctx, nil); err != nil {
		return DailyCollectionOutput{RunID: runID, Stats: stats}, err
	}
	return DailyCollectionOutput{RunID: runID, Stats: stats}, nil
}

func failRun(ctx workflow.Context, runID int64, stats models.RunStats, cause error) {
	_ = workflow.ExecuteActivity(ctx, "CompleteRunActivity", activities.CompleteRunInput{
		RunID:        runID,
		Status:       models.RunFailed,
		Stats:        stats,
		ErrorMessage: cause.Error(),
	}).Get(ctx, nil)
}
