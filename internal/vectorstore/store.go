// Package vectorstore implements the hybrid vector + full-text retrieval
// store on top of Postgres/pgvector, grounded on the original source's
// core/pgvector.py PgVectorStore.
package vectorstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/remilrls/knowhub/internal/document"
)

// IndexType selects the ANN index pgvector builds for a collection.
type IndexType string

const (
	IndexHNSW    IndexType = "hnsw"
	IndexIVFFlat IndexType = "ivfflat"
)

const (
	hnswM              = 32
	hnswEfConstruction = 400
	ivfLists           = 1000
	embeddingDims      = 1024
)

// Store wraps a pgx connection pool and implements collection lifecycle,
// upsert, and the three read paths (vector, FTS, hybrid/RRF).
type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// New opens a pool against dsn.
func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("vectorstore: ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

// Close releases the pool.
func (s *Store) Close() { s.pool.Close() }

// TableExists reports whether collection already exists as a table.
func (s *Store) TableExists(ctx context.Context, collection string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (
		SELECT 1 FROM information_schema.tables WHERE table_name = $1
	)`, collection).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("vectorstore: table exists %s: %w", collection, err)
	}
	return exists, nil
}

// CreateCollection creates the table backing a named collection, along with
// its HNSW or IVFFlat vector index, a non-unique source index, and
// generated tsvector columns for English and French full-text search.
// Returns false without error if the table already exists.
func (s *Store) CreateCollection(ctx context.Context, collection string, idx IndexType) (bool, error) {
	exists, err := s.TableExists(ctx, collection)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	if _, err := s.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return false, fmt.Errorf("vectorstore: create extension: %w", err)
	}

	ddl := fmt.Sprintf(`CREATE TABLE %[1]s (
		id BIGSERIAL PRIMARY KEY,
		text TEXT NOT NULL,
		embedding VECTOR(%[2]d) NOT NULL,
		source VARCHAR(512),
		page INT,
		creation_date TIMESTAMPTZ NOT NULL DEFAULT now(),
		skillsets VARCHAR(256)[],
		title TEXT,
		author TEXT,
		url TEXT,
		fts_en TSVECTOR GENERATED ALWAYS AS (to_tsvector('english', coalesce(text, ''))) STORED,
		fts_fr TSVECTOR GENERATED ALWAYS AS (to_tsvector('french', coalesce(text, ''))) STORED
	)`, collection, embeddingDims)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return false, fmt.Errorf("vectorstore: create table %s: %w", collection, err)
	}

	if _, err := s.pool.Exec(ctx, fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS %s_source_idx ON %s (source)`, collection, collection)); err != nil {
		return false, fmt.Errorf("vectorstore: source index: %w", err)
	}
	for _, col := range []string{"fts_en", "fts_fr"} {
		if _, err := s.pool.Exec(ctx, fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS %s_%s_idx ON %s USING GIN (%s)`, collection, col, collection, col)); err != nil {
			return false, fmt.Errorf("vectorstore: %s index: %w", col, err)
		}
	}

	if err := s.ensureIndexType(ctx, collection, idx); err != nil {
		return false, err
	}

	return true, nil
}

func (s *Store) ensureIndexType(ctx context.Context, collection string, idx IndexType) error {
	switch idx {
	case IndexHNSW, "":
		_, err := s.pool.Exec(ctx, fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS %s_embedding_hnsw ON %s
			 USING hnsw (embedding vector_cosine_ops) WITH (m = %d, ef_construction = %d)`,
			collection, collection, hnswM, hnswEfConstruction))
		if err != nil {
			return fmt.Errorf("vectorstore: hnsw index: %w", err)
		}
	case IndexIVFFlat:
		_, err := s.pool.Exec(ctx, fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS %s_embedding_ivfflat ON %s
			 USING ivfflat (embedding vector_cosine_ops) WITH (lists = %d)`,
			collection, collection, ivfLists))
		if err != nil {
			return fmt.Errorf("vectorstore: ivfflat index: %w", err)
		}
	default:
		return fmt.Errorf("vectorstore: unknown index type %q", idx)
	}
	return nil
}

// ListCollections returns every table that carries an embedding vector
// column, resolving the spec's open question on list_collections scope.
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT c.table_name
		FROM information_schema.columns c
		JOIN pg_type t ON t.typname = c.udt_name AND t.typname = 'vector'
		WHERE c.column_name = 'embedding'
		ORDER BY c.table_name`)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: list collections: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// DropCollection drops the table entirely.
func (s *Store) DropCollection(ctx context.Context, collection string) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, collection))
	if err != nil {
		return fmt.Errorf("vectorstore: drop %s: %w", collection, err)
	}
	return nil
}

// DeleteBySource removes every row whose source matches.
func (s *Store) DeleteBySource(ctx context.Context, collection, source string) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE source = $1`, collection), source)
	if err != nil {
		return fmt.Errorf("vectorstore: delete by source: %w", err)
	}
	return nil
}

// UpsertResult reports how many chunks were inserted in total and which
// source groups were skipped because they already existed.
type UpsertResult struct {
	Inserted int
	Skipped  []string
}

// Upsert groups chunks by their source metadata (default "unknown"),
// skips any group whose source already has rows in the table (source-level
// idempotent re-ingest), and inserts the rest chunk by chunk, continuing
// past individual chunk failures.
func (s *Store) Upsert(ctx context.Context, collection string, chunks []document.Chunk) (UpsertResult, error) {
	groups := map[string][]document.Chunk{}
	var order []string
	for _, c := range chunks {
		src := c.Metadata.Source
		if src == "" {
			src = "unknown"
		}
		if _, ok := groups[src]; !ok {
			order = append(order, src)
		}
		groups[src] = append(groups[src], c)
	}

	existing, err := s.existingSources(ctx, collection, order)
	if err != nil {
		return UpsertResult{}, err
	}

	var result UpsertResult
	for _, src := range order {
		if existing[src] {
			result.Skipped = append(result.Skipped, src)
			continue
		}
		n, err := s.insertGroup(ctx, collection, groups[src])
		if err != nil {
			return result, err
		}
		result.Inserted += n
	}
	return result, nil
}

func (s *Store) existingSources(ctx context.Context, collection string, sources []string) (map[string]bool, error) {
	out := map[string]bool{}
	if len(sources) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		`SELECT DISTINCT source FROM %s WHERE source = ANY($1)`, collection), sources)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: existing sources: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var src string
		if err := rows.Scan(&src); err != nil {
			return nil, err
		}
		out[src] = true
	}
	return out, rows.Err()
}

func (s *Store) insertGroup(ctx context.Context, collection string, chunks []document.Chunk) (int, error) {
	inserted := 0
	stmt := fmt.Sprintf(`INSERT INTO %s (text, embedding, source, page, skillsets, title, author, url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, collection)
	for _, c := range chunks {
		src := c.Metadata.Source
		if src == "" {
			src = "unknown"
		}
		_, err := s.pool.Exec(ctx, stmt,
			c.PageContent, pgvector.NewVector(c.Embedding), src, c.Metadata.Page,
			c.Metadata.Skillsets, c.Metadata.Title, c.Metadata.Author, c.Metadata.URL)
		if err != nil {
			s.log.Warn("vectorstore: chunk insert failed, continuing", zap.Error(err), zap.String("source", src))
			continue
		}
		inserted++
	}
	return inserted, nil
}

// EmbeddingResult is a single cosine-kNN hit.
type EmbeddingResult struct {
	ID       int64
	Text     string
	Source   string
	Page     int
	Distance float64
}

// ReadEmbeddings runs a cosine-distance kNN search, optionally scoped to a
// source allow-list and a maximum distance threshold. When efSearch is set,
// the SET and the search run on the same pooled connection so the
// session-level hnsw.ef_search tuning actually applies to this query.
func (s *Store) ReadEmbeddings(ctx context.Context, collection string, query []float32, k int, sources []string, maxDistance *float64, efSearch int) ([]EmbeddingResult, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: acquire connection: %w", err)
	}
	defer conn.Release()

	if efSearch > 0 {
		if _, err := conn.Exec(ctx, fmt.Sprintf(`SET hnsw.ef_search = %d`, efSearch)); err != nil {
			return nil, fmt.Errorf("vectorstore: set ef_search: %w", err)
		}
	}

	where := ""
	args := []any{pgvector.NewVector(query)}
	if len(sources) > 0 {
		args = append(args, sources)
		where += fmt.Sprintf(" AND source = ANY($%d)", len(args))
	}
	if maxDistance != nil {
		args = append(args, *maxDistance)
		where += fmt.Sprintf(" AND (embedding <-> $1) <= $%d", len(args))
	}
	args = append(args, k)

	query_ := fmt.Sprintf(`SELECT id, text, source, page, embedding <-> $1 AS distance
		FROM %s WHERE true%s ORDER BY embedding <-> $1 LIMIT $%d`, collection, where, len(args))

	rows, err := conn.Query(ctx, query_, args...)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: read embeddings: %w", err)
	}
	defer rows.Close()

	var out []EmbeddingResult
	for rows.Next() {
		var r EmbeddingResult
		var source *string
		var page *int
		if err := rows.Scan(&r.ID, &r.Text, &source, &page, &r.Distance); err != nil {
			return nil, err
		}
		if source != nil {
			r.Source = *source
		}
		if page != nil {
			r.Page = *page
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// FTSResult is a single full-text search hit.
type FTSResult struct {
	ID     int64
	Text   string
	Source string
	Page   int
	Rank   float64
}

// ReadFTS runs the bilingual (English+French) websearch/plain full-text
// query, scoring each row by the greater of the two language ranks.
func (s *Store) ReadFTS(ctx context.Context, collection, q string, k int) ([]FTSResult, error) {
	query := fmt.Sprintf(`
		WITH scored AS (
			SELECT id, text, source, page,
				GREATEST(
					COALESCE(ts_rank(fts_en, websearch_to_tsquery('english', $1), 1) * 2
						+ ts_rank(fts_en, plainto_tsquery('english', $1), 1), 0),
					COALESCE(ts_rank(fts_fr, websearch_to_tsquery('french', $1), 1) * 2
						+ ts_rank(fts_fr, plainto_tsquery('french', $1), 1), 0)
				) AS rank
			FROM %s
			WHERE fts_en @@ websearch_to_tsquery('english', $1)
			   OR fts_en @@ plainto_tsquery('english', $1)
			   OR fts_fr @@ websearch_to_tsquery('french', $1)
			   OR fts_fr @@ plainto_tsquery('french', $1)
		)
		SELECT id, text, source, page, rank FROM scored
		ORDER BY rank DESC NULLS LAST LIMIT $2`, collection)

	rows, err := s.pool.Query(ctx, query, q, k)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: read fts: %w", err)
	}
	defer rows.Close()

	var out []FTSResult
	for rows.Next() {
		var r FTSResult
		var source *string
		var page *int
		if err := rows.Scan(&r.ID, &r.Text, &source, &page, &r.Rank); err != nil {
			return nil, err
		}
		if source != nil {
			r.Source = *source
		}
		if page != nil {
			r.Page = *page
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// HybridResult is a Reciprocal-Rank-Fusion-scored hit; VectorRank and
// FTSRank are nil when the document didn't appear in that method's
// candidate set.
type HybridResult struct {
	ID         int64
	Text       string
	Source     string
	Page       int
	VectorRank *int
	FTSRank    *int
	Score      float64
}

const rrfK = 60

// ReadHybrid fuses a vector kNN candidate set and an FTS candidate set via
// Reciprocal Rank Fusion: score(d) = sum(1 / (rrfK + rank_m(d))) across
// whichever of the two candidate lists contain d.
func (s *Store) ReadHybrid(ctx context.Context, collection string, query []float32, q string, candidateK, topK int) ([]HybridResult, error) {
	vecResults, err := s.ReadEmbeddings(ctx, collection, query, candidateK, nil, nil, 0)
	if err != nil {
		return nil, err
	}
	ftsResults, err := s.ReadFTS(ctx, collection, q, candidateK)
	if err != nil {
		return nil, err
	}
	return fuseRankings(vecResults, ftsResults, topK), nil
}

// fuseRankings is the pure Reciprocal Rank Fusion step: score(d) =
// sum(1 / (rrfK + rank_m(d))) across whichever of the two candidate lists
// contain d, sorted descending and truncated to topK (0 means no limit).
func fuseRankings(vecResults []EmbeddingResult, ftsResults []FTSResult, topK int) []HybridResult {
	byID := map[int64]*HybridResult{}
	order := []int64{}

	for i, r := range vecResults {
		rank := i + 1
		hr, ok := byID[r.ID]
		if !ok {
			hr = &HybridResult{ID: r.ID, Text: r.Text, Source: r.Source, Page: r.Page}
			byID[r.ID] = hr
			order = append(order, r.ID)
		}
		rankCopy := rank
		hr.VectorRank = &rankCopy
	}
	for i, r := range ftsResults {
		rank := i + 1
		hr, ok := byID[r.ID]
		if !ok {
			hr = &HybridResult{ID: r.ID, Text: r.Text, Source: r.Source, Page: r.Page}
			byID[r.ID] = hr
			order = append(order, r.ID)
		}
		rankCopy := rank
		hr.FTSRank = &rankCopy
	}

	out := make([]HybridResult, 0, len(order))
	for _, id := range order {
		hr := byID[id]
		if hr.VectorRank != nil {
			hr.Score += 1.0 / float64(rrfK+*hr.VectorRank)
		}
		if hr.FTSRank != nil {
			hr.Score += 1.0 / float64(rrfK+*hr.FTSRank)
		}
		out = append(out, *hr)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })

	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}
