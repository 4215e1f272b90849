package library

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sschoedel/paper-search/internal/models"
)

const zoteroBaseURL = "https://api.zotero.org"

// ZoteroClient talks to the Zotero Web API v3. Library items are created as
// preprints (arXiv papers) or journal articles, with an "AI Summary" child
// note when enrichment produced content.
type ZoteroClient struct {
	libraryID   string
	libraryType string
	apiKey      string
	baseURL     string
	client      *http.Client
}

func NewZoteroClient(libraryID, libraryType, apiKey string) *ZoteroClient {
	if libraryType == "" {
		libraryType = "user"
	}
	return &ZoteroClient{
		libraryID:   libraryID,
		libraryType: libraryType,
		apiKey:      apiKey,
		baseURL:     zoteroBaseURL,
		client:      &http.Client{Timeout: 30 * time.Second},
	}
}

type zoteroItem struct {
	Key  string         `json:"key"`
	Data zoteroItemData `json:"data"`
}

type zoteroItemData struct {
	ItemType     string          `json:"itemType"`
	Title        string          `json:"title,omitempty"`
	AbstractNote string          `json:"abstractNote,omitempty"`
	URL          string          `json:"url,omitempty"`
	Date         string          `json:"date,omitempty"`
	DOI          string          `json:"DOI,omitempty"`
	Extra        string          `json:"extra,omitempty"`
	Creators     []zoteroCreator `json:"creators,omitempty"`
	Tags         []zoteroTag     `json:"tags,omitempty"`
	Note         string          `json:"note,omitempty"`
	ParentItem   string          `json:"parentItem,omitempty"`
}

type zoteroCreator struct {
	CreatorType string `json:"creatorType"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
}

type zoteroTag struct {
	Tag string `json:"tag"`
}

func (z *ZoteroClient) FindByIdentifier(ctx context.Context, identifier string) (string, bool, error) {
	items, err := z.searchItems(ctx, identifier, "everything")
	if err != nil {
		return "", false, err
	}
	if len(items) == 0 {
		return "", false, nil
	}
	return items[0].Key, true, nil
}

func (z *ZoteroClient) TitleCandidates(ctx context.Context, title string) ([]Candidate, error) {
	items, err := z.searchItems(ctx, title, "titleCreatorYear")
	if err != nil {
		return nil, err
	}
	out := make([]Candidate, 0, len(items))
	for _, it := range items {
		out = append(out, Candidate{Key: it.Key, Title: it.Data.Title, Abstract: it.Data.AbstractNote})
	}
	return out, nil
}

func (z *ZoteroClient) AddPaper(ctx context.Context, p *models.Paper) (string, error) {
	item := zoteroItemData{
		ItemType:     "journalArticle",
		Title:        p.Title,
		AbstractNote: p.Abstract,
		URL:          p.URL,
		Date:         p.PublicationDate.Format("2006-01-02"),
		DOI:          p.DOI,
	}
	if p.ArxivID != "" {
		item.ItemType = "preprint"
		item.Extra = "arXiv: " + p.ArxivID
	}
	for _, a := range p.Authors {
		item.Creators = append(item.Creators, zoteroCreator{CreatorType: "author", LastName: a.Name})
	}
	for _, c := range p.Categories {
		item.Tags = append(item.Tags, zoteroTag{Tag: c.Name})
	}
	item.Tags = append(item.Tags, zoteroTag{Tag: "source:" + p.Source})

	key, err := z.createItem(ctx, item)
	if err != nil {
		return "", err
	}
	log.Info().Str("item_key", key).Str("title", truncate(p.Title, 60)).Msg("created library item")

	if p.AISummary != "" || len(p.KeyIdeas) > 0 {
		if err := z.addSummaryNote(ctx, key, p); err != nil {
			// The item itself landed; a missing note is not worth failing for.
			log.Warn().Err(err).Str("item_key", key).Msg("failed to attach summary note")
		}
	}
	return key, nil
}

func (z *ZoteroClient) addSummaryNote(ctx context.Context, parentKey string, p *models.Paper) error {
	var b strings.Builder
	b.WriteString("<h2>AI Summary</h2>\n")
	if p.AISummary != "" {
		fmt.Fprintf(&b, "<p>%s</p>\n", p.AISummary)
	}
	if len(p.KeyIdeas) > 0 {
		b.WriteString("<h3>Key Ideas</h3>\n<ul>\n")
		for _, idea := range p.KeyIdeas {
			fmt.Fprintf(&b, "<li>%s</li>\n", idea)
		}
		b.WriteString("</ul>\n")
	}
	_, err := z.createItem(ctx, zoteroItemData{
		ItemType:   "note",
		Note:       b.String(),
		ParentItem: parentKey,
	})
	return err
}

func (z *ZoteroClient) searchItems(ctx context.Context, query, qmode string) ([]zoteroItem, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("qmode", qmode)
	q.Set("limit", "25")
	endpoint := fmt.Sprintf("%s/%s/items?%s", z.baseURL, z.libraryPrefix(), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build zotero search request: %w", err)
	}
	z.setHeaders(req)
	resp, err := z.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("zotero search request failed: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("zotero search error %d: %s", resp.StatusCode, string(body))
	}
	var items []zoteroItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decode zotero search response: %w", err)
	}
	return items, nil
}

func (z *ZoteroClient) createItem(ctx context.Context, item zoteroItemData) (string, error) {
	payload, _ := json.Marshal([]zoteroItemData{item})
	endpoint := fmt.Sprintf("%s/%s/items", z.baseURL, z.libraryPrefix())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build zotero create request: %w", err)
	}
	z.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	resp, err := z.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("zotero create request failed: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("zotero create error %d: %s", resp.StatusCode, string(body))
	}
	var parsed struct {
		Successful map[string]struct {
			Key string `json:"key"`
		} `json:"successful"`
		Failed map[string]struct {
			Message string `json:"message"`
		} `json:"failed"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode zotero create response: %w", err)
	}
	if item, ok := parsed.Successful["0"]; ok {
		return item.Key, nil
	}
	if failure, ok := parsed.Failed["0"]; ok {
		return "", fmt.Errorf("zotero rejected item: %s", failure.Message)
	}
	return "", fmt.Errorf("zotero create returned no result")
}

func (z *ZoteroClient) libraryPrefix() string {
	if z.libraryType == "group" {
		return "groups/" + z.libraryID
	}
	return "users/" + z.libraryID
}

func (z *ZoteroClient) setHeaders(req *http.Request) {
	req.Header.Set("Zotero-API-Version", "3")
	req.Header.Set("Zotero-API-Key", z.apiKey)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
