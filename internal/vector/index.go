// Package vector provides the project-scoped vector index for node embeddings.
package vector

import "context"

// Entry is one indexed node embedding with its provenance metadata. The
// content hash always matches the content the vector was embedded from; the
// synchronizer relies on it to skip unchanged nodes.
type Entry struct {
	NodeID         string
	ProjectID      string
	ContentHash    string
	SourceDocument string
	PageIndex      int
	Vector         []float32
}

// Result is a single similarity search hit. Distance is a cosine-derived
// metric in [0, 2]; similarity is 1 - distance.
type Result struct {
	NodeID   string
	Distance float64
}

// Index defines vector storage and similarity search over node embeddings.
// All reads and writes are scoped by project.
type Index interface {
	// Upsert inserts or replaces entries keyed by node id.
	Upsert(ctx context.Context, entries []Entry) error
	// Delete removes entries by node id. Unknown ids are ignored.
	Delete(ctx context.Context, ids []string) error
	// Query returns up to k entries of the project closest to the query
	// vector, ordered by ascending distance. An unknown project yields an
	// empty result, never an error.
	Query(ctx context.Context, query []float32, projectID string, k int) ([]Result, error)
	// Entries returns all entries of a project (vectors omitted).
	Entries(ctx context.Context, projectID string) ([]Entry, error)
	// Count returns the total number of entries across all projects.
	Count() int
	Save(path string) error
	Load(path string) error
	Close() error
}
