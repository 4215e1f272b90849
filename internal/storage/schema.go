package storage

// The search column is a stored generated tsvector over title, abstract,
// ai_summary and key_ideas, indexed with GIN. key_ideas is stored as a JSON
// text column so it can participate in the generated expression.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS papers (
    id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    arxiv_id TEXT UNIQUE,
    doi TEXT UNIQUE,
    url TEXT NOT NULL,
    title TEXT NOT NULL,
    abstract TEXT NOT NULL,
    publication_date TIMESTAMPTZ NOT NULL,
    source TEXT NOT NULL,
    collected_at TIMESTAMPTZ NOT NULL,
    processed_at TIMESTAMPTZ,
    ai_summary TEXT,
    key_ideas TEXT,
    embedding BYTEA,
    search TSVECTOR GENERATED ALWAYS AS (
        to_tsvector('english',
            coalesce(title, '') || ' ' || coalesce(abstract, '') || ' ' ||
            coalesce(ai_summary, '') || ' ' || coalesce(key_ideas, ''))
    ) STORED
);

CREATE INDEX IF NOT EXISTS idx_papers_pub_date ON papers (publication_date);
CREATE INDEX IF NOT EXISTS idx_papers_source ON papers (source);
CREATE INDEX IF NOT EXISTS idx_papers_collected ON papers (collected_at);
CREATE INDEX IF NOT EXISTS idx_papers_search ON papers USING GIN (search);
CREATE INDEX IF NOT EXISTS idx_papers_embedding_present ON papers (id) WHERE embedding IS NOT NULL;

CREATE TABLE IF NOT EXISTS authors (
    id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    name TEXT NOT NULL,
    normalized_name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS paper_authors (
    paper_id BIGINT NOT NULL REFERENCES papers(id) ON DELETE CASCADE,
    author_id BIGINT NOT NULL REFERENCES authors(id) ON DELETE CASCADE,
    author_order INT NOT NULL,
    PRIMARY KEY (paper_id, author_id)
);

CREATE INDEX IF NOT EXISTS idx_paper_authors_author ON paper_authors (author_id);

CREATE TABLE IF NOT EXISTS categories (
    id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    source TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS paper_categories (
    paper_id BIGINT NOT NULL REFERENCES papers(id) ON DELETE CASCADE,
    category_id BIGINT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
    PRIMARY KEY (paper_id, category_id)
);

CREATE INDEX IF NOT EXISTS idx_paper_categories_category ON paper_categories (category_id);

CREATE TABLE IF NOT EXISTS collection_runs (
    id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    completed_at TIMESTAMPTZ,
    status TEXT NOT NULL,
    papers_collected INT NOT NULL DEFAULT 0,
    papers_processed INT NOT NULL DEFAULT 0,
    error_message TEXT
);

CREATE INDEX IF NOT EXISTS idx_collection_runs_started ON collection_runs (started_at);
`
