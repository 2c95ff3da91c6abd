package retrieval

import (
	"context"
	"fmt"

	"github.com/lucasnoah/ragdebug/internal/db"
)

// SQLite is the default Store, backed by the local doc_chunks table.
type SQLite struct {
	db *db.DB
}

// OpenSQLite opens and migrates the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	d, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if err := d.Migrate(); err != nil {
		d.Close()
		return nil, fmt.Errorf("migrate doc store: %w", err)
	}
	return &SQLite{db: d}, nil
}

// NewSQLite wraps an already migrated database.
func NewSQLite(d *db.DB) *SQLite {
	return &SQLite{db: d}
}

func (s *SQLite) Add(_ context.Context, chunks []Chunk) (int, error) {
	return s.db.InsertChunks(chunks)
}

func (s *SQLite) Search(_ context.Context, query string, k int) ([]string, error) {
	chunks, err := s.db.SearchChunks(query, k)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Content
	}
	return out, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
