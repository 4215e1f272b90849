package activities

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/sschoedel/paper-search/internal/collectors"
	"github.com/sschoedel/paper-search/internal/config"
	"github.com/sschoedel/paper-search/internal/models"
	"github.com/sschoedel/paper-search/internal/storage"
)

// paperStore is the slice of the local repository the pipeline writes
// through.
type paperStore interface {
	CreatePaper(ctx context.Context, p *models.Paper) (int64, error)
	UpdatePaper(ctx context.Context, p *models.Paper) error
	FindDuplicate(ctx context.Context, p models.Paper) (int64, bool, error)
}

type runStore interface {
	CreateRun(ctx context.Context) (int64, error)
	CompleteRun(ctx context.Context, id int64, status models.RunStatus, collected, processed int, errorMessage string) error
}

type deduplicator interface {
	IsDuplicate(ctx context.Context, p *models.Paper) (bool, string)
}

type enricher interface {
	EnrichBatch(ctx context.Context, papers []models.Paper) (processed, failed int)
}

type paperSink interface {
	AddPaper(ctx context.Context, p *models.Paper) (string, error)
}

type Activities struct {
	cfg        config.Config
	papers     paperStore
	runs       runStore
	collectors []collectors.Collector
	dedup      deduplicator
	enricher   enricher
	sink       paperSink
}

func New(cfg config.Config, db *storage.DB, cols []collectors.Collector, d deduplicator, e enricher, sink paperSink) *Activities {
	return &Activities{
		cfg:        cfg,
		papers:     storage.NewPaperRepo(db),
		runs:       storage.NewRunRepo(db),
		collectors: cols,
		dedup:      d,
		enricher:   e,
		sink:       sink,
	}
}

// StartRunActivity opens the run record and fails fast when a live run lacks
// library credentials. A run that fails validation is closed immediately so
// it never lingers in the running state.
func (a *Activities) StartRunActivity(ctx context.Context, in StartRunInput) (StartRunOutput, error) {
	runID, err := a.runs.CreateRun(ctx)
	if err != nil {
		return StartRunOutput{}, err
	}
	if !in.DryRun {
		if err := a.cfg.ValidateLibraryCredentials(); err != nil {
			_ = a.runs.CompleteRun(ctx, runID, models.RunFailed, 0, 0, err.Error())
			return StartRunOutput{}, err
		}
	}
	log.Info().Int64("run_id", runID).Bool("dry_run", in.DryRun).Msg("collection run started")
	return StartRunOutput{RunID: runID}, nil
}

// CollectActivity runs every configured collector. A failing collector
// contributes zero papers and never aborts the run.
func (a *Activities) CollectActivity(ctx context.Context) (CollectOutput, error) {
	var all []models.Paper
	for _, c := range a.collectors {
		papers, err := c.Collect(ctx)
		if err != nil {
			log.Warn().Err(err).Str("source", c.SourceName()).Msg("collector failed, continuing with remaining sources")
			continue
		}
		log.Info().Str("source", c.SourceName()).Int("count", len(papers)).Msg("collected papers")
		all = append(all, papers...)
	}
	return CollectOutput{Papers: all}, nil
}

func (a *Activities) DedupeActivity(ctx context.Context, in DedupeInput) (DedupeOutput, error) {
	out := DedupeOutput{Unique: make([]models.Paper, 0, len(in.Papers))}
	for i := range in.Papers {
		if dup, key := a.dedup.IsDuplicate(ctx, &in.Papers[i]); dup {
			out.Duplicates++
			log.Debug().Str("title", in.Papers[i].Title).Str("item_key", key).Msg("dropping duplicate")
			continue
		}
		out.Unique = append(out.Unique, in.Papers[i])
	}
	return out, nil
}

// EnrichActivity is a no-op when summarization is disabled. Individual paper
// failures surface as unset fields, never as an activity error.
func (a *Activities) EnrichActivity(ctx context.Context, in EnrichInput) (EnrichOutput, error) {
	if !a.cfg.SummarizationEnabled || a.enricher == nil {
		log.Info().Msg("summarization disabled, skipping enrichment")
		return EnrichOutput{Papers: in.Papers}, nil
	}
	processed, failed := a.enricher.EnrichBatch(ctx, in.Papers)
	return EnrichOutput{Papers: in.Papers, Processed: processed, Failed: failed}, nil
}

// PersistActivity upserts each paper into the local store and exports it to
// the reference library. Dry runs only count what would be stored.
func (a *Activities) PersistActivity(ctx context.Context, in PersistInput) (PersistOutput, error) {
	if in.DryRun {
		log.Info().Int("count", len(in.Papers)).Msg("dry run, skipping persistence")
		return PersistOutput{Stored: len(in.Papers)}, nil
	}

	var out PersistOutput
	for i := range in.Papers {
		p := &in.Papers[i]
		if err := a.persistOne(ctx, p); err != nil {
			log.Error().Err(err).Str("title", p.Title).Msg("failed to store paper")
			out.Errors++
			continue
		}
		out.Stored++
	}
	return out, nil
}

func (a *Activities) persistOne(ctx context.Context, p *models.Paper) error {
	id, exists, err := a.papers.FindDuplicate(ctx, *p)
	if err != nil {
		return fmt.Errorf("local duplicate check: %w", err)
	}
	if exists {
		p.ID = id
		if err := a.papers.UpdatePaper(ctx, p); err != nil {
			return fmt.Errorf("update local paper: %w", err)
		}
	} else if _, err := a.papers.CreatePaper(ctx, p); err != nil {
		return fmt.Errorf("create local paper: %w", err)
	}

	if a.sink != nil {
		if _, err := a.sink.AddPaper(ctx, p); err != nil {
			return fmt.Errorf("export to reference library: %w", err)
		}
	}
	return nil
}

// CompleteRunActivity performs the single terminal update of the run record.
func (a *Activities) CompleteRunActivity(ctx context.Context, in CompleteRunInput) error {
	err := a.runs.CompleteRun(ctx, in.RunID, in.Status, in.Stats.Collected, in.Stats.Processed, in.ErrorMessage)
	if err != nil {
		return err
	}
	log.Info().
		Int64("run_id", in.RunID).
		Str("status", string(in.Status)).
		Int("collected", in.Stats.Collected).
		Int("duplicates", in.Stats.Duplicates).
		Int("processed", in.Stats.Processed).
		Int("stored", in.Stats.Stored).
		Int("errors", in.Stats.Errors).
		Msg("collection run finished")
	return nil
}
