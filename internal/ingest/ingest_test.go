package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasnoah/ragdebug/internal/config"
	"github.com/lucasnoah/ragdebug/internal/retrieval"
)

type memStore struct {
	chunks []retrieval.Chunk
}

func (m *memStore) Add(_ context.Context, c []retrieval.Chunk) (int, error) {
	m.chunks = append(m.chunks, c...)
	return len(c), nil
}

func (m *memStore) Search(context.Context, string, int) ([]string, error) { return nil, nil }
func (m *memStore) Close() error                                         { return nil }

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func testConfig() config.IngestConfig {
	return config.IngestConfig{ChunkSize: 40, ChunkOverlap: 5, Patterns: config.DefaultPatterns}
}

func TestRun_LoadsSupportedFilesAndSkipsOthers(t *testing.T) {
	root := t.TempDir()
	write(t, root, "python/errors.md", "KeyError is raised when a mapping key is missing.")
	write(t, root, "notes.txt", "short note")
	write(t, root, "deep/nested/run.log", "Traceback (most recent call last):")
	write(t, root, "manual.pdf", "%PDF-1.4")
	write(t, root, "empty.md", "   \n")
	write(t, root, "binary.txt", string([]byte{0xff, 0xfe, 0x00}))

	store := &memStore{}
	rep, err := New(store, testConfig(), nil).Run(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 6, rep.Files)
	assert.Equal(t, 3, rep.Loaded)
	assert.ElementsMatch(t, []string{"manual.pdf", "empty.md", "binary.txt"}, rep.Skipped)
	assert.Equal(t, len(store.chunks), rep.Chunks)
	assert.Equal(t, rep.Chunks, rep.Added)

	sources := map[string]bool{}
	for _, c := range store.chunks {
		sources[c.Source] = true
		assert.LessOrEqual(t, len(c.Content), 40)
		assert.Len(t, c.ID, 32)
	}
	assert.True(t, sources["python/errors.md"])
	assert.True(t, sources["deep/nested/run.log"])
}

func TestRun_SplitsLongDocuments(t *testing.T) {
	root := t.TempDir()
	write(t, root, "long.md", strings.Repeat("word ", 50))

	store := &memStore{}
	_, err := New(store, testConfig(), nil).Run(context.Background(), root)
	require.NoError(t, err)

	require.Greater(t, len(store.chunks), 1)
	for i, c := range store.chunks {
		assert.Equal(t, i, c.Index)
	}
}

func TestRun_MissingRoot(t *testing.T) {
	_, err := New(&memStore{}, testConfig(), nil).Run(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestRun_CustomPatterns(t *testing.T) {
	root := t.TempDir()
	write(t, root, "a.md", "markdown doc")
	write(t, root, "b.rst", "restructured doc")

	cfg := testConfig()
	cfg.Patterns = []string{"**/*.rst"}
	store := &memStore{}
	rep, err := New(store, cfg, nil).Run(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Loaded)
	assert.Equal(t, []string{"a.md"}, rep.Skipped)
}

func TestChunkID(t *testing.T) {
	assert.Equal(t, ChunkID("a.md", "x"), ChunkID("a.md", "x"))
	assert.NotEqual(t, ChunkID("a.md", "x"), ChunkID("b.md", "x"))
	assert.NotEqual(t, ChunkID("a", "bx"), ChunkID("ab", "x"))
}
