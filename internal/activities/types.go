package activities

import "github.com/sschoedel/paper-search/internal/models"

type StartRunInput struct {
	DryRun bool `json:"dry_run"`
}

type StartRunOutput struct {
	RunID int64 `json:"run_id"`
}

type CollectOutput struct {
	Papers []models.Paper `json:"papers"`
}

type DedupeInput struct {
	Papers []models.Paper `json:"papers"`
}

type DedupeOutput struct {
	Unique     []models.Paper `json:"unique"`
	Duplicates int            `json:"duplicates"`
}

type EnrichInput struct {
	Papers []models.Paper `json:"papers"`
}

type EnrichOutput struct {
	Papers    []models.Paper `json:"papers"`
	Processed int            `json:"processed"`
	Failed    int            `json:"failed"`
}

type PersistInput struct {
	Papers []models.Paper `json:"papers"`
	DryRun bool           `json:"dry_run"`
}

type PersistOutput struct {
	Stored int `json:"stored"`
	Errors int `json:"errors"`
}

type CompleteRunInput struct {
	RunID        int64            `json:"run_id"`
	Status       models.RunStatus `json:"status"`
	Stats        models.RunStats  `json:"stats"`
	ErrorMessage string           `json:"error_message"`
}
