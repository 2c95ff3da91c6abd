package retrieval

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"github.com/zeebo/blake3"
)

// Weaviate searches a vectorized class with nearText. The class must have
// a text vectorizer module configured on the server.
type Weaviate struct {
	client *weaviate.Client
	class  string
	logger *slog.Logger
}

// NewWeaviate creates a client for rawURL, e.g. "http://localhost:8080".
func NewWeaviate(rawURL, class string, logger *slog.Logger) (*Weaviate, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid weaviate url %q", rawURL)
	}
	if class == "" {
		class = "Document"
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	client, err := weaviate.NewClient(weaviate.Config{Host: u.Host, Scheme: u.Scheme})
	if err != nil {
		return nil, fmt.Errorf("create weaviate client: %w", err)
	}
	return &Weaviate{client: client, class: class, logger: logger}, nil
}

func (w *Weaviate) Add(ctx context.Context, chunks []Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	objects := make([]*models.Object, len(chunks))
	for i, c := range chunks {
		objects[i] = &models.Object{
			Class: w.class,
			ID:    strfmt.UUID(objectID(c.ID).String()),
			Properties: map[string]interface{}{
				"content":    c.Content,
				"source":     c.Source,
				"chunkIndex": c.Index,
			},
		}
	}

	resp, err := w.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("weaviate batch import: %w", err)
	}

	added := 0
	for _, item := range resp {
		if item.Result != nil && item.Result.Status != nil && *item.Result.Status == "SUCCESS" {
			added++
			continue
		}
		if item.Result != nil && item.Result.Errors != nil {
			for _, e := range item.Result.Errors.Error {
				w.logger.Warn("weaviate batch item failed", "error", e.Message)
			}
		}
	}
	return added, nil
}

func (w *Weaviate) Search(ctx context.Context, query string, k int) ([]string, error) {
	if k <= 0 {
		return nil, nil
	}
	nearText := w.client.GraphQL().NearTextArgBuilder().WithConcepts([]string{query})

	result, err := w.client.GraphQL().Get().
		WithClassName(w.class).
		WithFields(graphql.Field{Name: "content"}, graphql.Field{Name: "source"}).
		WithNearText(nearText).
		WithLimit(k).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate search: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("weaviate search: %s", result.Errors[0].Message)
	}
	return contents(result, w.class), nil
}

func (w *Weaviate) Close() error { return nil }

// contents pulls the content property out of a Get response.
func contents(result *models.GraphQLResponse, class string) []string {
	data, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return nil
	}
	objects, ok := data[class].([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, obj := range objects {
		m, ok := obj.(map[string]interface{})
		if !ok {
			continue
		}
		if s, ok := m["content"].(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// objectID derives a stable object UUID from a chunk id so re-ingesting
// the same chunk overwrites rather than duplicates.
func objectID(chunkID string) uuid.UUID {
	sum := blake3.Sum256([]byte(chunkID))
	id, _ := uuid.FromBytes(sum[:16])
	return id
}
