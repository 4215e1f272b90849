package models

import "time"

type Author struct {
	ID             int64  `json:"id,omitempty"`
	Name           string `json:"name"`
	NormalizedName string `json:"normalized_name"`
}

type Category struct {
	ID     int64  `json:"id,omitempty"`
	Name   string `json:"name"`
	Source string `json:"source"`
}

// Paper is the central entity. ID is assigned on first persistence;
// ArxivID and DOI are globally unique when present.
type Paper struct {
	ID              int64      `json:"id,omitempty"`
	ArxivID         string     `json:"arxiv_id,omitempty"`
	DOI             string     `json:"doi,omitempty"`
	URL             string     `json:"url"`
	Title           string     `json:"title"`
	Abstract        string     `json:"abstract"`
	PublicationDate time.Time  `json:"publication_date"`
	Source          string     `json:"source"`
	CollectedAt     time.Time  `json:"collected_at"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`

	AISummary string   `json:"ai_summary,omitempty"`
	KeyIdeas  []string `json:"key_ideas,omitempty"`
	// Embedding is a fixed-width float32 vector serialized little-endian.
	Embedding []byte `json:"embedding,omitempty"`

	Authors    []Author   `json:"authors,omitempty"`
	Categories []Category `json:"categories,omitempty"`
}

// Enriched reports whether any enrichment output has been attached.
func (p *Paper) Enriched() bool {
	return p.AISummary != "" || len(p.KeyIdeas) > 0 || len(p.Embedding) > 0
}

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// CollectionRun tracks one pipeline execution. It is created at pipeline
// start and updated exactly once, at the terminal transition.
type CollectionRun struct {
	ID              int64      `json:"id"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	Status          RunStatus  `json:"status"`
	PapersCollected int        `json:"papers_collected"`
	PapersProcessed int        `json:"papers_processed"`
	ErrorMessage    string     `json:"error_message,omitempty"`
}

// SearchResult pairs a paper with an optional relevance or similarity score.
// Not persisted.
type SearchResult struct {
	Paper        Paper   `json:"paper"`
	Score        float64 `json:"score,omitempty"`
	MatchSnippet string  `json:"match_snippet,omitempty"`
}

type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// DailySummary is computed on demand for one UTC calendar day.
type DailySummary struct {
	Date           string          `json:"date"`
	TotalPapers    int             `json:"total_papers"`
	PapersBySource map[string]int  `json:"papers_by_source"`
	TopCategories  []CategoryCount `json:"top_categories"`
	Highlights     []Paper         `json:"highlights"`
}

// RunStats are the counters reported by one pipeline run.
// Duplicates are excluded before enrichment and storage, so
// stored+duplicates+errors does not have to equal collected.
type RunStats struct {
	Collected  int `json:"collected"`
	Duplicates int `json:"duplicates"`
	Processed  int `json:"processed"`
	Stored     int `json:"stored"`
	Errors     int `json:"errors"`
}
