// Package retriever provides top-K similarity search over indexed nodes.
package retriever

import (
	"context"
	"fmt"
	"github.com/hyperjump/tsunagu/internal/embedding"
	"github.com/hyperjump/tsunagu/internal/vector"
	"github.com/hyperjump/tsunagu/pkg/utils"
)

// Result is a single retrieval hit. Similarity is 1 - distance, rounded to
// three decimals for reporting.
type Result struct {
	NodeID     string
	Distance   float64
	Similarity float64
}

// Retriever embeds a query and searches the vector index, scoped to one project.
type Retriever struct {
	embedder embedding.Embedder
	index    vector.Index
}

// NewRetriever creates a retriever with the given dependencies.
func NewRetriever(embedder embedding.Embedder, index vector.Index) *Retriever {
	return &Retriever{embedder: embedder, index: index}
}

// Query returns up to k nodes of the project most similar to text, ordered by
// ascending distance. An empty or unknown project yields an empty result,
// never an error.
func (r *Retriever) Query(ctx context.Context, text, projectID string, k int) ([]Result, error) {
	if projectID == "" || k <= 0 {
		return nil, nil
	}
	queryVec, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := r.index.Query(ctx, queryVec, projectID, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{
			NodeID:     h.NodeID,
			Distance:   h.Distance,
			Similarity: utils.Round3(1.0 - h.Distance),
		}
	}
	return results, nil
}
