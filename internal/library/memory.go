package library

import (
	"context"
	"fmt"
	"sync"

	"github.com/sschoedel/paper-search/internal/models"
)

// MemorySink is an in-memory Sink for tests and offline runs.
type MemorySink struct {
	mu      sync.Mutex
	nextKey int
	items   []memoryItem

	// FailLookups makes identifier and title lookups return an error,
	// simulating an unreachable library.
	FailLookups bool
}

type memoryItem struct {
	key         string
	identifiers []string
	title       string
	abstract    string
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (m *MemorySink) FindByIdentifier(ctx context.Context, identifier string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailLookups {
		return "", false, fmt.Errorf("library unavailable")
	}
	for _, it := range m.items {
		for _, id := range it.identifiers {
			if id == identifier {
				return it.key, true, nil
			}
		}
	}
	return "", false, nil
}

func (m *MemorySink) TitleCandidates(ctx context.Context, title string) ([]Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailLookups {
		return nil, fmt.Errorf("library unavailable")
	}
	out := make([]Candidate, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, Candidate{Key: it.key, Title: it.title, Abstract: it.abstract})
	}
	return out, nil
}

func (m *MemorySink) AddPaper(ctx context.Context, p *models.Paper) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextKey++
	it := memoryItem{
		key:      fmt.Sprintf("MEM%04d", m.nextKey),
		title:    p.Title,
		abstract: p.Abstract,
	}
	if p.ArxivID != "" {
		it.identifiers = append(it.identifiers, p.ArxivID)
	}
	if p.DOI != "" {
		it.identifiers = append(it.identifiers, p.DOI)
	}
	m.items = append(m.items, it)
	return it.key, nil
}

// Len reports the number of stored items.
func (m *MemorySink) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
