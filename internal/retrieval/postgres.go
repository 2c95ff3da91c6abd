package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lucasnoah/ragdebug/internal/db"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS doc_chunks (
    id          TEXT PRIMARY KEY,
    source      TEXT NOT NULL,
    chunk_index INTEGER NOT NULL,
    content     TEXT NOT NULL,
    tsv         tsvector GENERATED ALWAYS AS (to_tsvector('english', content)) STORED,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_doc_chunks_tsv ON doc_chunks USING GIN (tsv);
`

const postgresSearch = `
SELECT content
FROM doc_chunks, to_tsquery('english', $1) q
WHERE tsv @@ q
ORDER BY ts_rank(tsv, q) DESC, source, chunk_index
LIMIT $2`

// Postgres ranks chunks with Postgres full text search.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn and ensures the schema exists.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply postgres schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Add(ctx context.Context, chunks []Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	batch := &pgx.Batch{}
	for _, c := range chunks {
		batch.Queue(
			`INSERT INTO doc_chunks (id, source, chunk_index, content) VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING`,
			c.ID, c.Source, c.Index, c.Content,
		)
	}

	br := p.pool.SendBatch(ctx, batch)
	defer br.Close()

	added := 0
	for _, c := range chunks {
		tag, err := br.Exec()
		if err != nil {
			return added, fmt.Errorf("insert chunk %s: %w", c.ID, err)
		}
		added += int(tag.RowsAffected())
	}
	return added, nil
}

func (p *Postgres) Search(ctx context.Context, query string, k int) ([]string, error) {
	tsq := TSQuery(query)
	if tsq == "" || k <= 0 {
		return nil, nil
	}
	rows, err := p.pool.Query(ctx, postgresSearch, tsq, k)
	if err != nil {
		return nil, fmt.Errorf("search postgres: %w", err)
	}
	docs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect search rows: %w", err)
	}
	return docs, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// TSQuery turns free text into an OR query of its significant terms.
func TSQuery(query string) string {
	return strings.Join(db.Terms(query), " | ")
}
