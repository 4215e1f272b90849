package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sschoedel/paper-search/internal/library"
	"github.com/sschoedel/paper-search/internal/models"
)

func seededSink(t *testing.T, papers ...*models.Paper) *library.MemorySink {
	t.Helper()
	sink := library.NewMemorySink()
	for _, p := range papers {
		_, err := sink.AddPaper(context.Background(), p)
		require.NoError(t, err)
	}
	return sink
}

func TestDuplicateByArxivID(t *testing.T) {
	sink := seededSink(t, &models.Paper{
		ArxivID: "2501.01234",
		Title:   "A Completely Different Title",
	})
	d := New(sink, 0.95, 0.90)

	dup, key := d.IsDuplicate(context.Background(), &models.Paper{
		ArxivID: "2501.01234",
		Title:   "Self-Supervised Robot Learning",
	})
	require.True(t, dup)
	require.NotEmpty(t, key)
}

func TestDuplicateByDOI(t *testing.T) {
	sink := seededSink(t, &models.Paper{
		DOI:   "10.1000/xyz123",
		Title: "Published Under Another Name",
	})
	d := New(sink, 0.95, 0.90)

	dup, _ := d.IsDuplicate(context.Background(), &models.Paper{
		DOI:   "10.1000/xyz123",
		Title: "Preprint Title",
	})
	require.True(t, dup)
}

func TestDuplicateByFuzzyTitle(t *testing.T) {
	sink := seededSink(t, &models.Paper{
		Title: "Diffusion Policies for Dexterous Manipulation",
	})
	d := New(sink, 0.95, 0.90)

	// One-character difference in a long title stays above 0.95.
	dup, _ := d.IsDuplicate(context.Background(), &models.Paper{
		Title: "Diffusion Policies for Dexterous Manipulation.",
	})
	require.True(t, dup)

	dup, _ = d.IsDuplicate(context.Background(), &models.Paper{
		Title: "Transformers for Protein Folding",
	})
	require.False(t, dup)
}

func TestDuplicateByAbstractPrefix(t *testing.T) {
	abstract := "We study sample-efficient reinforcement learning for contact-rich manipulation tasks and introduce a benchmark of twenty simulated environments with standardized observation spaces and reward structures for reproducible evaluation across laboratories."
	sink := seededSink(t, &models.Paper{
		Title:    "Benchmarking Contact-Rich RL",
		Abstract: abstract,
	})
	d := New(sink, 0.95, 0.90)

	// Retitled on the publisher feed, same abstract text.
	dup, _ := d.IsDuplicate(context.Background(), &models.Paper{
		Title:    "A Benchmark Suite for Contact-Rich Reinforcement Learning",
		Abstract: abstract,
	})
	require.True(t, dup)
}

func TestFreshPaperIsNotDuplicate(t *testing.T) {
	sink := seededSink(t, &models.Paper{
		ArxivID:  "2501.09999",
		Title:    "Old Paper",
		Abstract: "Entirely unrelated content about databases.",
	})
	d := New(sink, 0.95, 0.90)

	dup, key := d.IsDuplicate(context.Background(), &models.Paper{
		ArxivID:  "2502.00001",
		Title:    "New Paper on Legged Locomotion",
		Abstract: "We propose a controller for quadruped robots.",
	})
	require.False(t, dup)
	require.Empty(t, key)
}

func TestLookupFailureFailsOpen(t *testing.T) {
	sink := library.NewMemorySink()
	_, err := sink.AddPaper(context.Background(), &models.Paper{
		ArxivID:         "2501.01234",
		Title:           "Existing Paper",
		PublicationDate: time.Now().UTC(),
	})
	require.NoError(t, err)
	sink.FailLookups = true

	d := New(sink, 0.95, 0.90)
	dup, _ := d.IsDuplicate(context.Background(), &models.Paper{
		ArxivID: "2501.01234",
		Title:   "Existing Paper",
	})
	require.False(t, dup, "unreachable library must not mark papers as duplicates")
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "hello world", "hello world", 1.0},
		{"case insensitive", "Hello World", "hello world", 1.0},
		{"both empty", "", "", 1.0},
		{"one empty", "abc", "", 0.0},
		{"disjoint", "aaaa", "bbbb", 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.InDelta(t, tt.want, similarity(tt.a, tt.b), 1e-9)
		})
	}
}
