package db

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// Chunk is one indexed slice of a source document.
type Chunk struct {
	ID      string
	Source  string
	Index   int
	Content string
}

// SourceCount is a row of ListSources.
type SourceCount struct {
	Source string
	Chunks int
}

// maxTerms caps the number of LIKE clauses built from a query.
const maxTerms = 16

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true, "that": true,
	"this": true, "not": true, "are": true, "was": true, "line": true, "file": true,
	"most": true, "recent": true, "call": true, "last": true, "traceback": true,
}

// InsertChunks upserts chunks by id and returns how many were new.
func (d *DB) InsertChunks(chunks []Chunk) (int, error) {
	tx, err := d.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO doc_chunks (id, source, chunk_index, content) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	added := 0
	for _, c := range chunks {
		res, err := stmt.Exec(c.ID, c.Source, c.Index, c.Content)
		if err != nil {
			return 0, fmt.Errorf("insert chunk %s: %w", c.ID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit chunks: %w", err)
	}
	return added, nil
}

// SearchChunks returns up to k chunks ranked by how often the query's terms
// occur in them. Chunks matching no term are never returned.
func (d *DB) SearchChunks(query string, k int) ([]Chunk, error) {
	terms := Terms(query)
	if len(terms) == 0 || k <= 0 {
		return nil, nil
	}

	clauses := make([]string, len(terms))
	args := make([]any, len(terms))
	for i, t := range terms {
		clauses[i] = "lower(content) LIKE ?"
		args[i] = "%" + t + "%"
	}
	rows, err := d.conn.Query(
		`SELECT id, source, chunk_index, content FROM doc_chunks WHERE `+strings.Join(clauses, " OR ")+` ORDER BY source, chunk_index`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	defer rows.Close()

	type scored struct {
		chunk Chunk
		score int
	}
	var hits []scored
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.Source, &c.Index, &c.Content); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		lower := strings.ToLower(c.Content)
		score := 0
		for _, t := range terms {
			score += strings.Count(lower, t)
		}
		hits = append(hits, scored{chunk: c, score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > k {
		hits = hits[:k]
	}
	out := make([]Chunk, len(hits))
	for i, h := range hits {
		out[i] = h.chunk
	}
	return out, nil
}

// Terms lowercases query and keeps distinct identifier-like words of at
// least three characters, in order of first appearance.
func Terms(query string) []string {
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	seen := make(map[string]bool)
	var terms []string
	for _, w := range words {
		if len(w) < 3 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, w)
		if len(terms) == maxTerms {
			break
		}
	}
	return terms
}

// CountChunks returns the number of stored chunks.
func (d *DB) CountChunks() (int, error) {
	var n int
	if err := d.conn.QueryRow(`SELECT COUNT(*) FROM doc_chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

// ListSources returns each ingested source with its chunk count.
func (d *DB) ListSources() ([]SourceCount, error) {
	rows, err := d.conn.Query(`SELECT source, COUNT(*) FROM doc_chunks GROUP BY source ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var out []SourceCount
	for rows.Next() {
		var s SourceCount
		if err := rows.Scan(&s.Source, &s.Chunks); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteSource removes every chunk of source and returns how many were removed.
func (d *DB) DeleteSource(source string) (int, error) {
	res, err := d.conn.Exec(`DELETE FROM doc_chunks WHERE source = ?`, source)
	if err != nil {
		return 0, fmt.Errorf("delete source %s: %w", source, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
