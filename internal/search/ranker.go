package search

import (
	"context"
	"fmt"
	"sort"

	"clip-library/internal/library"
)

// minScore is the similarity floor; matches at or below it are noise
// and never surface.
const minScore = 0.1

// Embedder turns a text query into a vector in the same space as the
// stored clip embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingStore yields every stored clip embedding.
type EmbeddingStore interface {
	AllEmbeddings(ctx context.Context) (map[string][]float32, error)
}

// Ranker scores clips against a query by brute-force cosine similarity
// over the stored embeddings. Library scale is thousands of clips, so a
// full scan beats the bookkeeping of an index.
type Ranker struct {
	embedder Embedder
	store    EmbeddingStore
}

// NewRanker returns a Ranker over the given model and store.
func NewRanker(embedder Embedder, store EmbeddingStore) *Ranker {
	return &Ranker{embedder: embedder, store: store}
}

// Search ranks all embedded clips against query, best first, dropping
// scores at or below the similarity floor and truncating to limit.
func (r *Ranker) Search(ctx context.Context, query string, limit int) ([]library.SearchResult, error) {
	qv, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	vectors, err := r.store.AllEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading embeddings: %w", err)
	}

	results := make([]library.SearchResult, 0, len(vectors))
	for id, v := range vectors {
		if score := cosine(qv, v); score > minScore {
			results = append(results, library.SearchResult{ClipID: id, Score: score})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ClipID < results[j].ClipID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
