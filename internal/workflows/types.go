package workflows

import "github.com/sschoedel/paper-search/internal/models"

type DailyCollectionInput struct {
	DryRun bool `json:"dry_run"`
}

type DailyCollectionOutput struct {
	RunID int64           `json:"run_id"`
	Stats models.RunStats `json:"stats"`
}

// DailyCollectionProgress is served by the GetProgress query handler.
type DailyCollectionProgress struct {
	RunID int64           `json:"run_id"`
	Phase string          `json:"phase"`
	Stats models.RunStats `json:"stats"`
}
