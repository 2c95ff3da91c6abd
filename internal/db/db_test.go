package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, d.Migrate())
	t.Cleanup(func() { d.Close() })
	return d
}

func TestMigrate(t *testing.T) {
	d := testDB(t)

	for _, table := range []string{"schema_version", "doc_chunks"} {
		var name string
		err := d.conn.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, "table %s", table)
	}

	var version int
	require.NoError(t, d.conn.QueryRow("SELECT version FROM schema_version").Scan(&version))
	assert.Equal(t, 1, version)

	require.NoError(t, d.Migrate(), "migrate must be idempotent")
}

func TestOpen_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "docs.db")
	d, err := Open(path)
	require.NoError(t, err)
	defer d.Close()
	require.NoError(t, d.Migrate())
	assert.Equal(t, path, d.Path())
}

func TestInsertChunks_DedupesByID(t *testing.T) {
	d := testDB(t)
	chunks := []Chunk{
		{ID: "a", Source: "x.md", Index: 0, Content: "KeyError when reading dict"},
		{ID: "b", Source: "x.md", Index: 1, Content: "use dict.get"},
	}

	added, err := d.InsertChunks(chunks)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	added, err = d.InsertChunks(chunks)
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	n, err := d.CountChunks()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSearchChunks_RanksByTermFrequency(t *testing.T) {
	d := testDB(t)
	_, err := d.InsertChunks([]Chunk{
		{ID: "1", Source: "a.md", Index: 0, Content: "ZeroDivisionError: division by zero happens when dividing"},
		{ID: "2", Source: "b.md", Index: 0, Content: "KeyError: missing key in dict. KeyError is raised by dict lookups; catch KeyError."},
		{ID: "3", Source: "c.md", Index: 0, Content: "Unrelated text about packaging"},
	})
	require.NoError(t, err)

	got, err := d.SearchChunks("Traceback (most recent call last):\nKeyError: 'name' in dict", 6)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)

	got, err = d.SearchChunks("division keyerror", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID, "three KeyError hits outrank two division hits")
}

func TestSearchChunks_EmptyQuery(t *testing.T) {
	d := testDB(t)
	got, err := d.SearchChunks("a ! ?", 6)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTerms(t *testing.T) {
	assert.Equal(t,
		[]string{"valueerror", "invalid", "literal", "int", "base", "foo"},
		Terms(`File "x.py", line 3: ValueError: invalid literal for int() with base 10: 'foo' foo`),
	)
}

func TestListSourcesAndDelete(t *testing.T) {
	d := testDB(t)
	_, err := d.InsertChunks([]Chunk{
		{ID: "1", Source: "a.md", Content: "one"},
		{ID: "2", Source: "a.md", Index: 1, Content: "two"},
		{ID: "3", Source: "b.md", Content: "three"},
	})
	require.NoError(t, err)

	sources, err := d.ListSources()
	require.NoError(t, err)
	assert.Equal(t, []SourceCount{{Source: "a.md", Chunks: 2}, {Source: "b.md", Chunks: 1}}, sources)

	n, err := d.DeleteSource("a.md")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestReset(t *testing.T) {
	d := testDB(t)
	_, err := d.InsertChunks([]Chunk{{ID: "1", Source: "a.md", Content: "x"}})
	require.NoError(t, err)

	require.NoError(t, d.Reset())
	n, err := d.CountChunks()
	require.NoError(t, err)
	assert.Zero(t, n)
}
