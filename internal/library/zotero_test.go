package library

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sschoedel/paper-search/internal/models"
)

func testZoteroClient(t *testing.T, handler http.HandlerFunc) *ZoteroClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	z := NewZoteroClient("12345", "user", "secret")
	z.baseURL = srv.URL
	return z
}

func TestZoteroFindByIdentifier(t *testing.T) {
	var gotPath, gotQuery, gotKey string
	z := testZoteroClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("q")
		gotKey = r.Header.Get("Zotero-API-Key")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"key":"ABCD1234","data":{"itemType":"preprint","title":"Found Paper"}}]`))
	})

	key, found, err := z.FindByIdentifier(context.Background(), "2501.01234")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "ABCD1234", key)
	require.Equal(t, "/users/12345/items", gotPath)
	require.Equal(t, "2501.01234", gotQuery)
	require.Equal(t, "secret", gotKey)
}

func TestZoteroFindByIdentifierMiss(t *testing.T) {
	z := testZoteroClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	})

	_, found, err := z.FindByIdentifier(context.Background(), "no-such-id")
	require.NoError(t, err)
	require.False(t, found)
}

func TestZoteroTitleCandidates(t *testing.T) {
	var gotQmode string
	z := testZoteroClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQmode = r.URL.Query().Get("qmode")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"key":"K1","data":{"itemType":"preprint","title":"First","abstractNote":"one"}},
			{"key":"K2","data":{"itemType":"journalArticle","title":"Second","abstractNote":"two"}}
		]`))
	})

	cands, err := z.TitleCandidates(context.Background(), "First")
	require.NoError(t, err)
	require.Equal(t, "titleCreatorYear", gotQmode)
	require.Len(t, cands, 2)
	require.Equal(t, Candidate{Key: "K1", Title: "First", Abstract: "one"}, cands[0])
}

func TestZoteroAddPaperWithSummaryNote(t *testing.T) {
	var created []zoteroItemData
	z := testZoteroClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var batch []zoteroItemData
		require.NoError(t, json.NewDecoder(r.Body).Decode(&batch))
		require.Len(t, batch, 1)
		created = append(created, batch[0])
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"successful":{"0":{"key":"NEWITEM1"}},"failed":{}}`))
	})

	p := &models.Paper{
		ArxivID:         "2501.01234",
		Title:           "Sample Paper",
		Abstract:        "An abstract.",
		URL:             "https://arxiv.org/abs/2501.01234",
		PublicationDate: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		Source:          "arxiv",
		AISummary:       "A short summary.",
		KeyIdeas:        []string{"idea one", "idea two"},
		Authors:         []models.Author{{Name: "Jane Doe"}},
		Categories:      []models.Category{{Name: "cs.LG"}},
	}
	key, err := z.AddPaper(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, "NEWITEM1", key)
	require.Len(t, created, 2)

	item := created[0]
	require.Equal(t, "preprint", item.ItemType)
	require.Equal(t, "arXiv: 2501.01234", item.Extra)
	require.Equal(t, "2025-01-10", item.Date)
	require.Equal(t, []zoteroCreator{{CreatorType: "author", LastName: "Jane Doe"}}, item.Creators)
	require.Contains(t, item.Tags, zoteroTag{Tag: "cs.LG"})
	require.Contains(t, item.Tags, zoteroTag{Tag: "source:arxiv"})

	note := created[1]
	require.Equal(t, "note", note.ItemType)
	require.Equal(t, "NEWITEM1", note.ParentItem)
	require.Contains(t, note.Note, "<h2>AI Summary</h2>")
	require.Contains(t, note.Note, "<li>idea one</li>")
	require.Contains(t, note.Note, "A short summary.")
}

func TestZoteroAddPaperWithoutSummarySkipsNote(t *testing.T) {
	calls := 0
	z := testZoteroClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"successful":{"0":{"key":"PLAIN001"}},"failed":{}}`))
	})

	p := &models.Paper{
		Title:           "No DOI Journal Paper",
		PublicationDate: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		Source:          "rss:bair",
	}
	key, err := z.AddPaper(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, "PLAIN001", key)
	require.Equal(t, 1, calls)
}

func TestZoteroAddPaperRejected(t *testing.T) {
	z := testZoteroClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"successful":{},"failed":{"0":{"message":"invalid itemType"}}}`))
	})

	_, err := z.AddPaper(context.Background(), &models.Paper{Title: "Bad"})
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "invalid itemType"))
}

func TestZoteroServerError(t *testing.T) {
	z := testZoteroClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	})

	_, _, err := z.FindByIdentifier(context.Background(), "2501.01234")
	require.Error(t, err)
}

func TestZoteroGroupLibraryPrefix(t *testing.T) {
	z := NewZoteroClient("999", "group", "k")
	require.Equal(t, "groups/999", z.libraryPrefix())
}
