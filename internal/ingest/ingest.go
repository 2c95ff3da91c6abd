// Package ingest loads reference documents from disk, splits them into
// chunks and adds them to a retrieval store.
package ingest

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/tmc/langchaingo/textsplitter"
	"github.com/zeebo/blake3"

	"github.com/lucasnoah/ragdebug/internal/config"
	"github.com/lucasnoah/ragdebug/internal/retrieval"
)

// Report summarizes one ingest run.
type Report struct {
	Files   int      `json:"files"`
	Loaded  int      `json:"loaded"`
	Skipped []string `json:"skipped,omitempty"`
	Chunks  int      `json:"chunks"`
	Added   int      `json:"added"`
}

// Ingester feeds documents under a root directory into a Store.
type Ingester struct {
	store    retrieval.Store
	splitter textsplitter.TextSplitter
	patterns []string
	logger   *slog.Logger
}

// New creates an Ingester using the chunking settings in cfg.
func New(store retrieval.Store, cfg config.IngestConfig, logger *slog.Logger) *Ingester {
	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = config.DefaultPatterns
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Ingester{
		store: store,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(cfg.ChunkSize),
			textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
		),
		patterns: patterns,
		logger:   logger,
	}
}

// Run walks root, chunks every file matching the configured patterns and
// adds the chunks to the store. Unsupported or unreadable files are
// skipped and listed in the report.
func (in *Ingester) Run(ctx context.Context, root string) (Report, error) {
	var rep Report
	if _, err := os.Stat(root); err != nil {
		return rep, fmt.Errorf("documents path: %w", err)
	}

	var chunks []retrieval.Chunk
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			in.logger.Warn("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rep.Files++
		rel, _ := filepath.Rel(root, path)
		rel = filepath.ToSlash(rel)

		if !in.matches(rel) {
			in.logger.Debug("skipping unsupported file type", "file", rel)
			rep.Skipped = append(rep.Skipped, rel)
			return nil
		}

		fileChunks, err := in.chunkFile(path, rel)
		if err != nil {
			in.logger.Warn("skipping file", "file", rel, "error", err)
			rep.Skipped = append(rep.Skipped, rel)
			return nil
		}
		rep.Loaded++
		chunks = append(chunks, fileChunks...)
		return nil
	})
	if err != nil {
		return rep, err
	}

	rep.Chunks = len(chunks)
	if len(chunks) == 0 {
		in.logger.Warn("no readable documents were loaded", "root", root)
		return rep, nil
	}

	added, err := in.store.Add(ctx, chunks)
	if err != nil {
		return rep, fmt.Errorf("add chunks: %w", err)
	}
	rep.Added = added
	in.logger.Info("ingest complete", "files", rep.Files, "loaded", rep.Loaded, "chunks", rep.Chunks, "added", rep.Added)
	return rep, nil
}

func (in *Ingester) matches(rel string) bool {
	for _, p := range in.patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func (in *Ingester) chunkFile(path, source string) ([]retrieval.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("not valid UTF-8")
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, fmt.Errorf("empty file")
	}

	parts, err := in.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}
	out := make([]retrieval.Chunk, 0, len(parts))
	for i, p := range parts {
		out = append(out, retrieval.Chunk{
			ID:      ChunkID(source, p),
			Source:  source,
			Index:   i,
			Content: p,
		})
	}
	return out, nil
}

// ChunkID is a content address for a chunk of source.
func ChunkID(source, content string) string {
	h := blake3.New()
	h.Write([]byte(source))
	h.Write([]byte{0})
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil)[:16])
}
