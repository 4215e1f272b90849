package library

import (
	"context"

	"github.com/sschoedel/paper-search/internal/models"
)

// Candidate is a library entry returned from a title search. Key is the
// library's own identifier for the item.
type Candidate struct {
	Key      string
	Title    string
	Abstract string
}

// Sink is the external reference library papers are deduplicated against and
// exported to.
type Sink interface {
	// FindByIdentifier searches the library for an exact identifier match
	// (arXiv id or DOI). Returns the item key and true when found.
	FindByIdentifier(ctx context.Context, identifier string) (string, bool, error)

	// TitleCandidates returns library entries that may match the given title.
	// The caller applies its own similarity scoring to the candidates.
	TitleCandidates(ctx context.Context, title string) ([]Candidate, error)

	// AddPaper creates a library item for the paper and returns the new item
	// key.
	AddPaper(ctx context.Context, p *models.Paper) (string, error)
}
