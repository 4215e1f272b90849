package collectors

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/require"
)

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>BAIR Blog</title>
  <item>
    <title>Learning Dexterous Manipulation</title>
    <link>https://bair.berkeley.edu/blog/2025/01/02/dexterity/</link>
    <description>&lt;p&gt;We present &lt;b&gt;a new method&lt;/b&gt; for dexterous hands.&lt;/p&gt;</description>
    <author>researcher@berkeley.edu (Jane Doe)</author>
    <pubDate>%s</pubDate>
  </item>
  <item>
    <title>Old Post</title>
    <link>https://bair.berkeley.edu/blog/2020/old/</link>
    <description>stale</description>
    <pubDate>%s</pubDate>
  </item>
  <item>
    <title></title>
    <link>https://bair.berkeley.edu/blog/untitled/</link>
    <pubDate>%s</pubDate>
  </item>
</channel>
</rss>`

func TestRSSCollect(t *testing.T) {
	now := time.Date(2025, 1, 2, 18, 0, 0, 0, time.UTC)
	fresh := now.Add(-3 * time.Hour).Format(time.RFC1123Z)
	stale := now.Add(-60 * 24 * time.Hour).Format(time.RFC1123Z)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, rssFixture, fresh, stale, fresh)
	}))
	defer srv.Close()

	c := NewRSSCollector([]FeedConfig{{Name: "BAIR", URL: srv.URL}}, 24)
	c.now = func() time.Time { return now }

	papers, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, papers, 1)

	p := papers[0]
	require.Equal(t, "Learning Dexterous Manipulation", p.Title)
	require.Equal(t, "We present a new method for dexterous hands.", p.Abstract)
	require.Equal(t, "rss:BAIR", p.Source)
	require.Len(t, p.Categories, 1)
	require.Equal(t, "BAIR", p.Categories[0].Name)
}

func TestRSSCollectToleratesBrokenFeed(t *testing.T) {
	now := time.Date(2025, 1, 2, 18, 0, 0, 0, time.UTC)
	fresh := now.Add(-3 * time.Hour).Format(time.RFC1123Z)
	stale := now.Add(-60 * 24 * time.Hour).Format(time.RFC1123Z)

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, rssFixture, fresh, stale, fresh)
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "oops", http.StatusInternalServerError)
	}))
	defer bad.Close()

	c := NewRSSCollector([]FeedConfig{
		{Name: "broken", URL: bad.URL},
		{Name: "BAIR", URL: good.URL},
	}, 24)
	c.now = func() time.Time { return now }

	papers, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, papers, 1)
}

func TestRSSRecoversArxivID(t *testing.T) {
	c := NewRSSCollector(nil, 24)
	item := &gofeed.Item{
		Title:       "A Paper on HF Daily",
		Link:        "https://arxiv.org/abs/2501.04567",
		Description: "abstract",
	}
	p, ok := c.itemToPaper(item, "hf-papers", time.Now().UTC())
	require.True(t, ok)
	require.Equal(t, "2501.04567", p.ArxivID)
	require.Equal(t, "rss:hf-papers", p.Source)
}
