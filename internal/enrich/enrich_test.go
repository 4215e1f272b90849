package enrich

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sschoedel/paper-search/internal/models"
	"github.com/sschoedel/paper-search/internal/providers"
)

// stubChat fails completions whose prompt contains failOn; everything else
// returns reply.
type stubChat struct {
	mu     sync.Mutex
	calls  int
	reply  string
	failOn string
}

func (s *stubChat) Name() string { return "stub" }

func (s *stubChat) Complete(ctx context.Context, req providers.CompleteRequest) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.failOn != "" && strings.Contains(req.Prompt, s.failOn) {
		// A permanent failure so the retry wrapper gives up immediately.
		return "", errors.New("bad request")
	}
	return s.reply, nil
}

type stubEmbed struct {
	fail bool
}

func (s *stubEmbed) Name() string { return "stub" }

func (s *stubEmbed) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if s.fail {
		return nil, errors.New("bad request")
	}
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func TestSummarize(t *testing.T) {
	chat := &stubChat{reply: "  A compact summary.  \n"}
	e := New(chat, &stubEmbed{}, 1000, 5)

	out, err := e.Summarize(context.Background(), "Title", "Abstract")
	require.NoError(t, err)
	require.Equal(t, "A compact summary.", out)
	require.Equal(t, 1, chat.calls)
}

func TestPermanentErrorNotRetried(t *testing.T) {
	chat := &stubChat{failOn: "Title"}
	e := New(chat, &stubEmbed{}, 1000, 5)

	_, err := e.Summarize(context.Background(), "Title", "Abstract")
	require.Error(t, err)
	require.Equal(t, 1, chat.calls, "permanent provider errors must not be retried")
}

func TestKeyIdeasParsing(t *testing.T) {
	chat := &stubChat{reply: "• first idea\n- second idea\n* third idea\n\nfourth idea\nfifth idea\nsixth idea"}
	e := New(chat, &stubEmbed{}, 1000, 5)

	ideas, err := e.KeyIdeas(context.Background(), "Title", "Abstract")
	require.NoError(t, err)
	require.Equal(t, []string{"first idea", "second idea", "third idea", "fourth idea", "fifth idea"}, ideas)
}

func TestEmbeddingEncodesVector(t *testing.T) {
	e := New(&stubChat{reply: "x"}, &stubEmbed{}, 1000, 5)

	blob, err := e.Embedding(context.Background(), "Title", "Abstract", "Summary")
	require.NoError(t, err)
	require.Len(t, blob, 12)
}

func TestEnrichBatchPartialFailure(t *testing.T) {
	chat := &stubChat{reply: "summary text", failOn: "Paper Three"}
	e := New(chat, &stubEmbed{}, 1000, 2)

	papers := []models.Paper{
		{Title: "Paper One", Abstract: "a"},
		{Title: "Paper Two", Abstract: "b"},
		{Title: "Paper Three", Abstract: "c"},
		{Title: "Paper Four", Abstract: "d"},
		{Title: "Paper Five", Abstract: "e"},
	}
	processed, failed := e.EnrichBatch(context.Background(), papers)
	require.Equal(t, 4, processed)
	require.Equal(t, 1, failed)

	for i, p := range papers {
		if p.Title == "Paper Three" {
			require.Empty(t, p.AISummary, "failed paper keeps summary unset")
			require.Empty(t, p.KeyIdeas)
			continue
		}
		require.Equal(t, "summary text", p.AISummary, "paper %d", i)
		require.NotEmpty(t, p.KeyIdeas)
		require.NotEmpty(t, p.Embedding)
		require.NotNil(t, p.ProcessedAt)
	}
}

func TestEnrichBatchEmbeddingFailure(t *testing.T) {
	e := New(&stubChat{reply: "summary"}, &stubEmbed{fail: true}, 1000, 5)

	papers := []models.Paper{{Title: "Paper", Abstract: "a"}}
	processed, failed := e.EnrichBatch(context.Background(), papers)
	require.Equal(t, 0, processed)
	require.Equal(t, 1, failed)
	require.Equal(t, "summary", papers[0].AISummary, "summary survives an embedding failure")
	require.Empty(t, papers[0].Embedding)
}
