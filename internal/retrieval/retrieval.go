// Package retrieval is the gateway between the pipeline and the document
// stores that hold ingested reference material.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/lucasnoah/ragdebug/internal/config"
	"github.com/lucasnoah/ragdebug/internal/db"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown retrieval backend")

// Chunk is one indexed slice of a source document.
type Chunk = db.Chunk

// Store persists chunks and answers text queries with ranked snippets.
// An empty result is not an error.
type Store interface {
	Add(ctx context.Context, chunks []Chunk) (int, error)
	Search(ctx context.Context, query string, k int) ([]string, error)
	Close() error
}

// Open connects to the store selected by cfg.Backend.
func Open(ctx context.Context, cfg config.RetrievalConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Backend {
	case "", "sqlite":
		return OpenSQLite(cfg.SQLitePath)
	case "postgres":
		return OpenPostgres(ctx, cfg.PostgresDSN)
	case "weaviate":
		return NewWeaviate(cfg.WeaviateURL, cfg.WeaviateClass, logger)
	case "none":
		return Empty{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

// Gateway answers pipeline queries from a Store with a fixed result size.
type Gateway struct {
	store  Store
	topK   int
	logger *slog.Logger
}

// NewGateway wraps store. topK <= 0 means config.DefaultTopK.
func NewGateway(store Store, topK int, logger *slog.Logger) *Gateway {
	if topK <= 0 {
		topK = config.DefaultTopK
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Gateway{store: store, topK: topK, logger: logger}
}

// Retrieve returns up to topK snippets for query, most relevant first.
func (g *Gateway) Retrieve(ctx context.Context, query string) ([]string, error) {
	docs, err := g.store.Search(ctx, query, g.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	g.logger.Debug("retrieved documents", "count", len(docs), "top_k", g.topK)
	return docs, nil
}

// Empty is a Store with nothing in it.
type Empty struct{}

func (Empty) Add(_ context.Context, chunks []Chunk) (int, error) { return 0, nil }

func (Empty) Search(context.Context, string, int) ([]string, error) { return nil, nil }

func (Empty) Close() error { return nil }
