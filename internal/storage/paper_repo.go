package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sschoedel/paper-search/internal/models"
	"github.com/sschoedel/paper-search/internal/vector"
)

type PaperRepo struct {
	db *DB
}

func NewPaperRepo(db *DB) *PaperRepo {
	return &PaperRepo{db: db}
}

const paperColumns = `p.id, COALESCE(p.arxiv_id,''), COALESCE(p.doi,''), p.url, p.title, p.abstract,
p.publication_date, p.source, p.collected_at, p.processed_at,
COALESCE(p.ai_summary,''), COALESCE(p.key_ideas,''), p.embedding`

// CreatePaper inserts the paper plus its author and category junction rows in
// one transaction; either everything commits or nothing does. Returns
// ErrConstraintViolation when arxiv_id or doi collides with an existing row.
func (r *PaperRepo) CreatePaper(ctx context.Context, p *models.Paper) (int64, error) {
	keyIdeas, err := encodeKeyIdeas(p.KeyIdeas)
	if err != nil {
		return 0, err
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin create paper: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx, `
INSERT INTO papers (arxiv_id, doi, url, title, abstract, publication_date,
                    source, collected_at, processed_at, ai_summary, key_ideas, embedding)
VALUES (NULLIF($1,''), NULLIF($2,''), $3, $4, $5, $6, $7, $8, $9, NULLIF($10,''), NULLIF($11,''), $12)
RETURNING id`,
		p.ArxivID, p.DOI, p.URL, p.Title, p.Abstract, p.PublicationDate,
		p.Source, p.CollectedAt, p.ProcessedAt, p.AISummary, keyIdeas, p.Embedding,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: arxiv_id=%q doi=%q", ErrConstraintViolation, p.ArxivID, p.DOI)
		}
		return 0, fmt.Errorf("insert paper: %w", err)
	}

	for i, a := range p.Authors {
		authorID, err := upsertAuthor(ctx, tx, a)
		if err != nil {
			return 0, err
		}
		if _, err := tx.Exec(ctx, `
INSERT INTO paper_authors (paper_id, author_id, author_order)
VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`, id, authorID, i); err != nil {
			return 0, fmt.Errorf("insert paper author: %w", err)
		}
	}

	for _, c := range p.Categories {
		categoryID, err := upsertCategory(ctx, tx, c)
		if err != nil {
			return 0, err
		}
		if _, err := tx.Exec(ctx, `
INSERT INTO paper_categories (paper_id, category_id)
VALUES ($1, $2) ON CONFLICT DO NOTHING`, id, categoryID); err != nil {
			return 0, fmt.Errorf("insert paper category: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit create paper: %w", err)
	}
	p.ID = id
	return id, nil
}

func (r *PaperRepo) GetPaper(ctx context.Context, id int64) (models.Paper, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+paperColumns+` FROM papers p WHERE p.id = $1`, id)
	p, err := scanPaper(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Paper{}, fmt.Errorf("%w: paper %d", ErrNotFound, id)
		}
		return models.Paper{}, fmt.Errorf("get paper %d: %w", id, err)
	}
	if err := r.loadRelations(ctx, &p); err != nil {
		return models.Paper{}, err
	}
	return p, nil
}

// UpdatePaper replaces the paper row by id. The generated tsvector column
// refreshes with the row, so the full-text index stays in sync.
func (r *PaperRepo) UpdatePaper(ctx context.Context, p *models.Paper) error {
	if p.ID == 0 {
		return fmt.Errorf("%w: paper must have id set for update", ErrInvalidArgument)
	}
	keyIdeas, err := encodeKeyIdeas(p.KeyIdeas)
	if err != nil {
		return err
	}
	tag, err := r.db.Pool.Exec(ctx, `
UPDATE papers SET
    arxiv_id = NULLIF($1,''), doi = NULLIF($2,''), url = $3, title = $4, abstract = $5,
    publication_date = $6, source = $7, collected_at = $8, processed_at = $9,
    ai_summary = NULLIF($10,''), key_ideas = NULLIF($11,''), embedding = $12
WHERE id = $13`,
		p.ArxivID, p.DOI, p.URL, p.Title, p.Abstract,
		p.PublicationDate, p.Source, p.CollectedAt, p.ProcessedAt,
		p.AISummary, keyIdeas, p.Embedding, p.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: arxiv_id=%q doi=%q", ErrConstraintViolation, p.ArxivID, p.DOI)
		}
		return fmt.Errorf("update paper %d: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: paper %d", ErrNotFound, p.ID)
	}
	return nil
}

// FindDuplicate looks up an existing row by arxiv_id, then doi. It does no
// fuzzy matching; that belongs to the deduplicator working against the
// external reference library.
func (r *PaperRepo) FindDuplicate(ctx context.Context, p models.Paper) (int64, bool, error) {
	if p.ArxivID != "" {
		var id int64
		err := r.db.Pool.QueryRow(ctx, `SELECT id FROM papers WHERE arxiv_id = $1`, p.ArxivID).Scan(&id)
		if err == nil {
			return id, true, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return 0, false, fmt.Errorf("find duplicate by arxiv_id: %w", err)
		}
	}
	if p.DOI != "" {
		var id int64
		err := r.db.Pool.QueryRow(ctx, `SELECT id FROM papers WHERE doi = $1`, p.DOI).Scan(&id)
		if err == nil {
			return id, true, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return 0, false, fmt.Errorf("find duplicate by doi: %w", err)
		}
	}
	return 0, false, nil
}

type SearchFilters struct {
	DateFrom *time.Time
	DateTo   *time.Time
	Source   string
}

// SearchPapers runs a ranked full-text query over title, abstract, summary
// and key ideas, best matches first.
func (r *PaperRepo) SearchPapers(ctx context.Context, query string, filters SearchFilters, limit int) ([]models.SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	sql := `
SELECT ` + paperColumns + `,
       ts_rank(p.search, q) AS rank,
       ts_headline('english', p.abstract, q, 'MaxWords=30, MinWords=5') AS snippet
FROM papers p, websearch_to_tsquery('english', $1) q
WHERE p.search @@ q`
	args := []any{query}

	if filters.DateFrom != nil {
		args = append(args, *filters.DateFrom)
		sql += fmt.Sprintf(" AND p.publication_date >= $%d", len(args))
	}
	if filters.DateTo != nil {
		args = append(args, *filters.DateTo)
		sql += fmt.Sprintf(" AND p.publication_date <= $%d", len(args))
	}
	if strings.TrimSpace(filters.Source) != "" {
		args = append(args, filters.Source)
		sql += fmt.Sprintf(" AND p.source = $%d", len(args))
	}
	args = append(args, limit)
	sql += fmt.Sprintf(" ORDER BY rank DESC LIMIT $%d", len(args))

	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("search papers: %w", err)
	}
	defer rows.Close()

	results := make([]models.SearchResult, 0, limit)
	for rows.Next() {
		var res models.SearchResult
		p, err := scanPaperExtra(rows, &res.Score, &res.MatchSnippet)
		if err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		res.Paper = p
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search results: %w", err)
	}
	for i := range results {
		if err := r.loadRelations(ctx, &results[i].Paper); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// ListRecentPapers returns papers collected within the trailing window,
// newest publication first.
func (r *PaperRepo) ListRecentPapers(ctx context.Context, days int, source string, limit int) ([]models.Paper, error) {
	if days <= 0 {
		days = 1
	}
	if limit <= 0 {
		limit = 20
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	sql := `SELECT ` + paperColumns + ` FROM papers p WHERE p.collected_at >= $1`
	args := []any{cutoff}
	if strings.TrimSpace(source) != "" {
		args = append(args, source)
		sql += fmt.Sprintf(" AND p.source = $%d", len(args))
	}
	args = append(args, limit)
	sql += fmt.Sprintf(" ORDER BY p.publication_date DESC LIMIT $%d", len(args))

	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list recent papers: %w", err)
	}
	defer rows.Close()

	papers, err := collectPapers(rows)
	if err != nil {
		return nil, err
	}
	for i := range papers {
		if err := r.loadRelations(ctx, &papers[i]); err != nil {
			return nil, err
		}
	}
	return papers, nil
}

// FindRelatedPapers ranks every other embedded paper by cosine similarity to
// the reference paper. This is a full scan over all embeddings; fine for a
// corpus of thousands, not for millions.
func (r *PaperRepo) FindRelatedPapers(ctx context.Context, paperID int64, limit int) ([]models.SearchResult, error) {
	if limit <= 0 {
		limit = 5
	}
	var refBlob []byte
	err := r.db.Pool.QueryRow(ctx, `SELECT embedding FROM papers WHERE id = $1`, paperID).Scan(&refBlob)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: paper %d", ErrNotFound, paperID)
		}
		return nil, fmt.Errorf("load reference embedding: %w", err)
	}
	if len(refBlob) == 0 {
		return []models.SearchResult{}, nil
	}
	ref, err := vector.Decode(refBlob)
	if err != nil {
		return nil, fmt.Errorf("decode reference embedding: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, embedding FROM papers WHERE embedding IS NOT NULL AND id <> $1`, paperID)
	if err != nil {
		return nil, fmt.Errorf("scan embeddings: %w", err)
	}
	defer rows.Close()

	type scored struct {
		id    int64
		score float64
	}
	candidates := make([]scored, 0)
	for rows.Next() {
		var id int64
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("scan embedding row: %w", err)
		}
		v, err := vector.Decode(blob)
		if err != nil {
			continue
		}
		sim, ok := vector.Cosine(ref, v)
		if !ok {
			continue
		}
		candidates = append(candidates, scored{id: id, score: sim})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embeddings: %w", err)
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	results := make([]models.SearchResult, 0, len(candidates))
	for _, c := range candidates {
		p, err := r.GetPaper(ctx, c.id)
		if err != nil {
			return nil, err
		}
		results = append(results, models.SearchResult{Paper: p, Score: c.score})
	}
	return results, nil
}

// GetDailySummary aggregates counts for one UTC calendar day. A zero date
// means today.
func (r *PaperRepo) GetDailySummary(ctx context.Context, date time.Time) (models.DailySummary, error) {
	if date.IsZero() {
		date = time.Now().UTC()
	}
	day := time.Date(date.UTC().Year(), date.UTC().Month(), date.UTC().Day(), 0, 0, 0, 0, time.UTC)
	next := day.Add(24 * time.Hour)

	summary := models.DailySummary{
		Date:           day.Format("2006-01-02"),
		PapersBySource: map[string]int{},
		TopCategories:  []models.CategoryCount{},
		Highlights:     []models.Paper{},
	}

	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM papers WHERE collected_at >= $1 AND collected_at < $2`,
		day, next).Scan(&summary.TotalPapers)
	if err != nil {
		return models.DailySummary{}, fmt.Errorf("daily total: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, `
SELECT source, COUNT(*) FROM papers
WHERE collected_at >= $1 AND collected_at < $2
GROUP BY source`, day, next)
	if err != nil {
		return models.DailySummary{}, fmt.Errorf("daily by-source counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return models.DailySummary{}, fmt.Errorf("scan by-source count: %w", err)
		}
		summary.PapersBySource[source] = count
	}
	if err := rows.Err(); err != nil {
		return models.DailySummary{}, fmt.Errorf("iterate by-source counts: %w", err)
	}

	catRows, err := r.db.Pool.Query(ctx, `
SELECT c.name, COUNT(*) AS count
FROM papers p
JOIN paper_categories pc ON p.id = pc.paper_id
JOIN categories c ON pc.category_id = c.id
WHERE p.collected_at >= $1 AND p.collected_at < $2
GROUP BY c.name
ORDER BY count DESC
LIMIT 5`, day, next)
	if err != nil {
		return models.DailySummary{}, fmt.Errorf("daily top categories: %w", err)
	}
	defer catRows.Close()
	for catRows.Next() {
		var cc models.CategoryCount
		if err := catRows.Scan(&cc.Name, &cc.Count); err != nil {
			return models.DailySummary{}, fmt.Errorf("scan category count: %w", err)
		}
		summary.TopCategories = append(summary.TopCategories, cc)
	}
	if err := catRows.Err(); err != nil {
		return models.DailySummary{}, fmt.Errorf("iterate category counts: %w", err)
	}

	hlRows, err := r.db.Pool.Query(ctx, `
SELECT `+paperColumns+` FROM papers p
WHERE p.collected_at >= $1 AND p.collected_at < $2 AND p.ai_summary IS NOT NULL
ORDER BY p.publication_date DESC
LIMIT 5`, day, next)
	if err != nil {
		return models.DailySummary{}, fmt.Errorf("daily highlights: %w", err)
	}
	defer hlRows.Close()
	highlights, err := collectPapers(hlRows)
	if err != nil {
		return models.DailySummary{}, err
	}
	for i := range highlights {
		if err := r.loadRelations(ctx, &highlights[i]); err != nil {
			return models.DailySummary{}, err
		}
	}
	summary.Highlights = highlights
	return summary, nil
}

func (r *PaperRepo) loadRelations(ctx context.Context, p *models.Paper) error {
	rows, err := r.db.Pool.Query(ctx, `
SELECT a.id, a.name, a.normalized_name
FROM authors a
JOIN paper_authors pa ON a.id = pa.author_id
WHERE pa.paper_id = $1
ORDER BY pa.author_order`, p.ID)
	if err != nil {
		return fmt.Errorf("load authors: %w", err)
	}
	defer rows.Close()
	p.Authors = p.Authors[:0]
	for rows.Next() {
		var a models.Author
		if err := rows.Scan(&a.ID, &a.Name, &a.NormalizedName); err != nil {
			return fmt.Errorf("scan author: %w", err)
		}
		p.Authors = append(p.Authors, a)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate authors: %w", err)
	}

	catRows, err := r.db.Pool.Query(ctx, `
SELECT c.id, c.name, c.source
FROM categories c
JOIN paper_categories pc ON c.id = pc.category_id
WHERE pc.paper_id = $1
ORDER BY c.name`, p.ID)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}
	defer catRows.Close()
	p.Categories = p.Categories[:0]
	for catRows.Next() {
		var c models.Category
		if err := catRows.Scan(&c.ID, &c.Name, &c.Source); err != nil {
			return fmt.Errorf("scan category: %w", err)
		}
		p.Categories = append(p.Categories, c)
	}
	return catRows.Err()
}

func upsertAuthor(ctx context.Context, tx pgx.Tx, a models.Author) (int64, error) {
	normalized := a.NormalizedName
	if normalized == "" {
		normalized = strings.ToLower(strings.TrimSpace(a.Name))
	}
	var id int64
	err := tx.QueryRow(ctx, `
INSERT INTO authors (name, normalized_name) VALUES ($1, $2)
ON CONFLICT (normalized_name) DO UPDATE SET name = authors.name
RETURNING id`, a.Name, normalized).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert author %q: %w", a.Name, err)
	}
	return id, nil
}

func upsertCategory(ctx context.Context, tx pgx.Tx, c models.Category) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `
INSERT INTO categories (name, source) VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET name = categories.name
RETURNING id`, c.Name, c.Source).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert category %q: %w", c.Name, err)
	}
	return id, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPaper(row rowScanner) (models.Paper, error) {
	return scanPaperExtra(row)
}

func scanPaperExtra(row rowScanner, extra ...any) (models.Paper, error) {
	var p models.Paper
	var keyIdeas string
	dest := []any{
		&p.ID, &p.ArxivID, &p.DOI, &p.URL, &p.Title, &p.Abstract,
		&p.PublicationDate, &p.Source, &p.CollectedAt, &p.ProcessedAt,
		&p.AISummary, &keyIdeas, &p.Embedding,
	}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return models.Paper{}, err
	}
	if keyIdeas != "" {
		if err := json.Unmarshal([]byte(keyIdeas), &p.KeyIdeas); err != nil {
			return models.Paper{}, fmt.Errorf("decode key ideas: %w", err)
		}
	}
	return p, nil
}

func collectPapers(rows pgx.Rows) ([]models.Paper, error) {
	out := make([]models.Paper, 0)
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, fmt.Errorf("scan paper: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate papers: %w", err)
	}
	return out, nil
}

func encodeKeyIdeas(ideas []string) (string, error) {
	if len(ideas) == 0 {
		return "", nil
	}
	b, err := json.Marshal(ideas)
	if err != nil {
		return "", fmt.Errorf("encode key ideas: %w", err)
	}
	return string(b), nil
}
