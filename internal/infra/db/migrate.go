package db

import (
	"database/sql"
)

// MigrateUp creates every table the pipeline needs if it does not already
// exist, along with the indexes its read paths depend on. It is safe to
// run repeatedly: every statement is IF NOT EXISTS or ignores the error
// for objects that require an unavailable extension/privilege.
func MigrateUp(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sources (
    id               SERIAL PRIMARY KEY,
    name             TEXT NOT NULL,
    type             VARCHAR(20) NOT NULL,
    url              TEXT NOT NULL,
    category         TEXT,
    credibility_tier SMALLINT NOT NULL DEFAULT 3,
    enabled          BOOLEAN NOT NULL DEFAULT TRUE,
    config           JSONB,
    last_crawled_at  TIMESTAMPTZ,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT chk_source_type CHECK (type IN ('feed', 'hn', 'reddit')),
    CONSTRAINT chk_credibility_tier CHECK (credibility_tier BETWEEN 1 AND 5)
)`,
		`CREATE TABLE IF NOT EXISTS raw_items (
    id            SERIAL PRIMARY KEY,
    source_id     INTEGER NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
    external_id   TEXT NOT NULL,
    url           TEXT NOT NULL,
    canonical_url TEXT,
    title         TEXT NOT NULL,
    author        TEXT,
    kind          VARCHAR(10) NOT NULL,
    published_at  TIMESTAMPTZ,
    fetched_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    raw_text      TEXT,
    raw_payload   JSONB,
    content_hash  VARCHAR(64) NOT NULL,
    status        VARCHAR(20) NOT NULL DEFAULT 'new',
    CONSTRAINT chk_item_kind CHECK (kind IN ('article', 'post')),
    CONSTRAINT chk_item_status CHECK (status IN ('new', 'extracted', 'embedded', 'clustered', 'scored')),
    UNIQUE (source_id, external_id)
)`,
		`CREATE INDEX IF NOT EXISTS idx_raw_items_status ON raw_items(status, fetched_at)`,
		`CREATE INDEX IF NOT EXISTS idx_raw_items_url ON raw_items(url)`,
		`CREATE INDEX IF NOT EXISTS idx_raw_items_title_fetched ON raw_items(title, fetched_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_raw_items_fetched_at ON raw_items(fetched_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_sources_enabled ON sources(enabled) WHERE enabled = TRUE`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_sources_name ON sources(name)`,

		`CREATE TABLE IF NOT EXISTS extracted_content (
    raw_item_id    INTEGER PRIMARY KEY REFERENCES raw_items(id) ON DELETE CASCADE,
    final_url      TEXT,
    text           TEXT NOT NULL,
    word_count     INTEGER NOT NULL,
    method         VARCHAR(20) NOT NULL,
    quality        REAL NOT NULL,
    extracted_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT chk_extraction_method CHECK (method IN ('precision', 'readability'))
)`,

		`CREATE TABLE IF NOT EXISTS clusters (
    id                SERIAL PRIMARY KEY,
    canonical_item_id INTEGER NOT NULL REFERENCES raw_items(id),
    status            VARCHAR(10) NOT NULL DEFAULT 'open',
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT chk_cluster_status CHECK (status IN ('open', 'merged', 'archived'))
)`,
		`CREATE TABLE IF NOT EXISTS cluster_members (
    cluster_id   INTEGER NOT NULL REFERENCES clusters(id) ON DELETE CASCADE,
    raw_item_id  INTEGER NOT NULL REFERENCES raw_items(id) ON DELETE CASCADE,
    is_canonical BOOLEAN NOT NULL DEFAULT FALSE,
    similarity   REAL NOT NULL,
    joined_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (cluster_id, raw_item_id)
)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_cluster_members_one_canonical
    ON cluster_members(cluster_id) WHERE is_canonical`,
		`CREATE INDEX IF NOT EXISTS idx_clusters_status_created ON clusters(status, created_at)`,

		`CREATE TABLE IF NOT EXISTS item_scores (
    raw_item_id  INTEGER NOT NULL REFERENCES raw_items(id) ON DELETE CASCADE,
    computed_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    relevance    REAL NOT NULL,
    velocity     REAL NOT NULL,
    cross_source REAL NOT NULL,
    novelty      REAL NOT NULL,
    signal_score REAL NOT NULL,
    score_meta   JSONB,
    PRIMARY KEY (raw_item_id, computed_at)
)`,
		`CREATE INDEX IF NOT EXISTS idx_item_scores_signal ON item_scores(signal_score DESC, computed_at DESC)`,

		`CREATE TABLE IF NOT EXISTS users (
    id           SERIAL PRIMARY KEY,
    email        TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL,
    is_active    BOOLEAN NOT NULL DEFAULT TRUE,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
		`CREATE TABLE IF NOT EXISTS user_preferences (
    user_id          INTEGER PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
    topics           JSONB,
    keywords_include JSONB,
    keywords_exclude JSONB,
    sources_blocked  JSONB,
    risk_tolerance   SMALLINT NOT NULL DEFAULT 3,
    email_daily      BOOLEAN NOT NULL DEFAULT FALSE,
    email_time_utc   VARCHAR(5),
    CONSTRAINT chk_risk_tolerance CHECK (risk_tolerance BETWEEN 1 AND 5)
)`,

		`CREATE TABLE IF NOT EXISTS briefings (
    id           SERIAL PRIMARY KEY,
    scope        TEXT NOT NULL,
    period_start TIMESTAMPTZ NOT NULL,
    period_end   TIMESTAMPTZ NOT NULL,
    summary_md   TEXT NOT NULL,
    meta         JSONB,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
		`CREATE INDEX IF NOT EXISTS idx_briefings_scope_created ON briefings(scope, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS briefing_items (
    briefing_id    INTEGER NOT NULL REFERENCES briefings(id) ON DELETE CASCADE,
    rank           INTEGER NOT NULL,
    raw_item_id    INTEGER NOT NULL REFERENCES raw_items(id),
    cluster_id     INTEGER REFERENCES clusters(id),
    title          TEXT NOT NULL,
    one_liner      TEXT,
    why_it_matters TEXT,
    confidence     VARCHAR(6) NOT NULL,
    signal_score   REAL NOT NULL,
    sources        JSONB,
    PRIMARY KEY (briefing_id, rank),
    CONSTRAINT chk_briefing_item_confidence CHECK (confidence IN ('low', 'med', 'high'))
)`,

		`CREATE TABLE IF NOT EXISTS feedback (
    user_id     INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    raw_item_id INTEGER NOT NULL REFERENCES raw_items(id) ON DELETE CASCADE,
    kind        VARCHAR(12) NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (user_id, raw_item_id, kind),
    CONSTRAINT chk_feedback_kind CHECK (kind IN ('save', 'hide', 'thumbs_up', 'thumbs_down'))
)`,

		// Cost-cap counters back internal/resilience/costcap: one row per
		// (scope, bucket) incremented atomically and compared to the
		// configured hourly/daily ceiling.
		`CREATE TABLE IF NOT EXISTS cost_cap_counters (
    scope       TEXT NOT NULL,
    bucket      TEXT NOT NULL,
    count       INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (scope, bucket)
)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	// pgvector extension and the item_embeddings table depend on it; skip
	// silently where the extension isn't installed, so a vanilla Postgres
	// still runs everything but the semantic pass.
	_, _ = db.Exec(`CREATE EXTENSION IF NOT EXISTS vector`)

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS item_embeddings (
    raw_item_id INTEGER PRIMARY KEY REFERENCES raw_items(id) ON DELETE CASCADE,
    model_id    TEXT NOT NULL,
    provider    VARCHAR(20) NOT NULL,
    dimension   INT NOT NULL,
    vector      vector(1536) NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT chk_embedding_provider CHECK (provider IN ('openai', 'dummy'))
)`); err != nil {
		return err
	}

	// IVFFlat similarity index; requires pgvector, ignored otherwise.
	_, _ = db.Exec(`
CREATE INDEX IF NOT EXISTS idx_item_embeddings_vector
    ON item_embeddings USING ivfflat (vector vector_cosine_ops)
    WITH (lists = 100)`)

	// pg_trgm trigram indexes on item titles and source names; ignored if
	// the extension is unavailable.
	_, _ = db.Exec(`CREATE EXTENSION IF NOT EXISTS pg_trgm`)
	_, _ = db.Exec(`CREATE INDEX IF NOT EXISTS idx_raw_items_title_gin ON raw_items USING gin(title gin_trgm_ops)`)
	_, _ = db.Exec(`CREATE INDEX IF NOT EXISTS idx_sources_name_gin ON sources USING gin(name gin_trgm_ops)`)

	return seedSources(db)
}

// MigrateDown rolls back everything MigrateUp creates. Use with caution:
// this deletes all pipeline data.
func MigrateDown(db *sql.DB) error {
	dropStatements := []string{
		`DROP INDEX IF EXISTS idx_item_embeddings_vector`,
		`DROP TABLE IF EXISTS item_embeddings CASCADE`,
		`DROP TABLE IF EXISTS cost_cap_counters CASCADE`,
		`DROP TABLE IF EXISTS feedback CASCADE`,
		`DROP TABLE IF EXISTS briefing_items CASCADE`,
		`DROP TABLE IF EXISTS briefings CASCADE`,
		`DROP TABLE IF EXISTS user_preferences CASCADE`,
		`DROP TABLE IF EXISTS users CASCADE`,
		`DROP TABLE IF EXISTS item_scores CASCADE`,
		`DROP TABLE IF EXISTS cluster_members CASCADE`,
		`DROP TABLE IF EXISTS clusters CASCADE`,
		`DROP TABLE IF EXISTS extracted_content CASCADE`,
		`DROP TABLE IF EXISTS raw_items CASCADE`,
		`DROP TABLE IF EXISTS sources CASCADE`,
	}

	for _, stmt := range dropStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	// The vector extension itself is left installed: it may be shared by
	// other databases/schemas on the same cluster.
	return nil
}
