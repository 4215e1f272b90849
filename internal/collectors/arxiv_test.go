package collectors

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const atomFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <entry>
    <id>http://arxiv.org/abs/2501.01234v1</id>
    <published>%s</published>
    <title>Sample   Paper
      Title</title>
    <summary>An abstract about reinforcement learning.</summary>
    <author><name>Grace Hopper</name></author>
    <author><name>Donald Knuth</name></author>
    <arxiv:doi>10.1000/xyz123</arxiv:doi>
    <category term="cs.LG"/>
    <category term="cs.RO"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2401.09999v2</id>
    <published>%s</published>
    <title>Stale Paper</title>
    <summary>Too old to collect.</summary>
    <author><name>Old Author</name></author>
    <category term="cs.AI"/>
  </entry>
</feed>`

func TestArxivCollect(t *testing.T) {
	now := time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC)
	fresh := now.Add(-6 * time.Hour).Format(time.RFC3339)
	stale := now.Add(-90 * 24 * time.Hour).Format(time.RFC3339)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "descending", r.URL.Query().Get("sortOrder"))
		fmt.Fprintf(w, atomFixture, fresh, stale)
	}))
	defer srv.Close()

	c := NewArxivCollector(ArxivConfig{Categories: []string{"cs.LG"}, MaxResultsPerQuery: 10}, 24, 100)
	c.baseURL = srv.URL
	c.now = func() time.Time { return now }

	papers, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, papers, 1)

	p := papers[0]
	require.Equal(t, "2501.01234v1", p.ArxivID)
	require.Equal(t, "10.1000/xyz123", p.DOI)
	require.Equal(t, "Sample Paper Title", p.Title)
	require.Equal(t, "arxiv", p.Source)
	require.Len(t, p.Authors, 2)
	require.Equal(t, "grace hopper", p.Authors[0].NormalizedName)
	require.Len(t, p.Categories, 2)
	require.Equal(t, "cs.LG", p.Categories[0].Name)
}

func TestArxivCollectToleratesQueryFailure(t *testing.T) {
	now := time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC)
	fresh := now.Add(-1 * time.Hour).Format(time.RFC3339)
	stale := now.Add(-80 * 24 * time.Hour).Format(time.RFC3339)

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintf(w, atomFixture, fresh, stale)
	}))
	defer srv.Close()

	c := NewArxivCollector(ArxivConfig{Categories: []string{"cs.LG", "cs.RO"}, MaxResultsPerQuery: 10}, 24, 100)
	c.baseURL = srv.URL
	c.now = func() time.Time { return now }

	papers, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, calls)
	require.Len(t, papers, 1)
}

func TestArxivBuildQueries(t *testing.T) {
	c := NewArxivCollector(ArxivConfig{
		Categories: []string{"cs.LG"},
		Keywords:   []string{"robot learning"},
	}, 24, 1)
	queries := c.buildQueries()
	require.Equal(t, []string{"cat:cs.LG", `ti:"robot learning" OR abs:"robot learning"`}, queries)
}
