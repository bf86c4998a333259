// Package assembler merges retrieval hits, pinned nodes, and graph-expanded
// neighbors into the working context for one chat turn. It owns the mode
// resolution, the priority merge, the prompt formatting, and the provenance
// insights; it does not persist anything.
package assembler

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/tsunagu/internal/graph"
	"github.com/hyperjump/tsunagu/internal/models"
	"github.com/hyperjump/tsunagu/internal/retriever"
	"github.com/hyperjump/tsunagu/pkg/utils"
)

// PlaceholderContext is inserted when no context node could be rendered, so
// the model sees an explicit statement rather than an empty section.
const PlaceholderContext = "No relevant excerpts found."

const previewLength = 80

// Request describes the input for one assembly pass. Nodes must contain
// every node the caller wants resolvable; ids without a lookup entry are
// skipped during rendering.
type Request struct {
	Query      string
	ProjectID  string
	Nodes      map[string]models.ContentNode
	Edges      []models.Edge
	Mode       models.ContextMode
	PinnedIDs  []string
	ContextIDs []string
	GraphDepth int
	MaxNodes   int
}

// Result is the assembled context for one turn. OrderedNodeIDs lists the
// rendered nodes in block-number order; citation markers index into it.
type Result struct {
	ContextText    string
	OrderedNodeIDs []string
	Insights       models.Insights
}

// Assembler builds chat context from a project's nodes and edges.
type Assembler struct {
	retriever *retriever.Retriever
	topK      int
	logger    *zap.Logger
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(a *Assembler) { a.logger = l }
}

// WithTopK sets how many similarity hits are requested per query.
func WithTopK(k int) Option {
	return func(a *Assembler) {
		if k > 0 {
			a.topK = k
		}
	}
}

// NewAssembler returns an assembler that retrieves through r.
func NewAssembler(r *retriever.Retriever, opts ...Option) *Assembler {
	a := &Assembler{
		retriever: r,
		topK:      5,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// merged is the outcome of the priority merge: ids in first-appearance
// order, each carrying the highest rank any source claimed it with.
type merged struct {
	order        []string
	ranks        map[string]int
	similarities map[string]float64
}

func (m *merged) claim(id string, rank int) {
	if id == "" {
		return
	}
	old, ok := m.ranks[id]
	if !ok {
		m.order = append(m.order, id)
		m.ranks[id] = rank
		return
	}
	if rank > old {
		m.ranks[id] = rank
	}
}

// Assemble resolves the context mode, merges the node sources under the
// pinned > rag > graph priority, expands the merged set over the project
// graph, and renders the numbered context text with per-node insights.
func (a *Assembler) Assemble(ctx context.Context, req Request) (*Result, error) {
	mode := req.Mode
	if !mode.Valid() {
		mode = models.ModeAuto
	}

	m := &merged{
		ranks:        make(map[string]int),
		similarities: make(map[string]float64),
	}

	if mode.UsesRetrieval() {
		hits, err := a.retriever.Query(ctx, req.Query, req.ProjectID, a.topK)
		if err != nil {
			return nil, fmt.Errorf("similarity search: %w", err)
		}
		for _, h := range hits {
			m.claim(h.NodeID, models.SourceRAG.Rank())
			m.similarities[h.NodeID] = h.Similarity
		}
	}

	if mode.UsesPinned() {
		for _, id := range req.PinnedIDs {
			m.claim(id, models.SourcePinned.Rank())
		}
	}
	for _, id := range req.ContextIDs {
		m.claim(id, models.SourcePinned.Rank())
	}

	expanded := graph.Expand(m.order, req.Edges, req.GraphDepth, req.MaxNodes)
	for _, id := range expanded {
		m.claim(id, models.SourceGraph.Rank())
	}

	var (
		blocks  []string
		ordered []string
		details []models.NodeInsight
		counts  = map[models.ContextSource]int{}
	)
	for _, id := range expanded {
		node, ok := req.Nodes[id]
		if !ok || strings.TrimSpace(node.Text()) == "" {
			a.logger.Debug("skipping unresolvable context node", zap.String("node_id", id))
			continue
		}
		source := sourceForRank(m.ranks[id])
		insight := models.NodeInsight{
			NodeID:  id,
			Source:  source,
			Preview: models.Preview(node, previewLength),
		}
		if source == models.SourceRAG {
			if sim, ok := m.similarities[id]; ok {
				insight.Similarity = &sim
			}
		}
		ordered = append(ordered, id)
		blocks = append(blocks, node.ContextBlock(len(ordered)))
		details = append(details, insight)
		counts[source]++
	}

	text := PlaceholderContext
	if len(blocks) > 0 {
		text = strings.Join(blocks, "\n\n")
	}

	return &Result{
		ContextText:    text,
		OrderedNodeIDs: ordered,
		Insights: models.Insights{
			TotalContextNodes:   len(ordered),
			RAGNodes:            counts[models.SourceRAG],
			PinnedNodes:         counts[models.SourcePinned],
			GraphExpandedNodes:  counts[models.SourceGraph],
			ContextMode:         mode,
			GraphDepth:          req.GraphDepth,
			ApproxContextTokens: utils.EstimateTokens(text),
			NodeDetails:         details,
		},
	}, nil
}

func sourceForRank(rank int) models.ContextSource {
	switch rank {
	case models.SourcePinned.Rank():
		return models.SourcePinned
	case models.SourceRAG.Rank():
		return models.SourceRAG
	default:
		return models.SourceGraph
	}
}
