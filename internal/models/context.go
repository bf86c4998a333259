package models

// ContextMode selects which sources populate a turn's context.
type ContextMode string

const (
	// ModeAuto uses similarity search only.
	ModeAuto ContextMode = "auto"
	// ModeManual uses pinned nodes only.
	ModeManual ContextMode = "manual"
	// ModeHybrid combines similarity search and pinned nodes.
	ModeHybrid ContextMode = "hybrid"
)

// Valid reports whether the mode is one of auto, manual, or hybrid.
func (m ContextMode) Valid() bool {
	return m == ModeAuto || m == ModeManual || m == ModeHybrid
}

// UsesRetrieval reports whether the mode runs similarity search.
func (m ContextMode) UsesRetrieval() bool { return m == ModeAuto || m == ModeHybrid }

// UsesPinned reports whether the mode includes manually pinned nodes.
func (m ContextMode) UsesPinned() bool { return m == ModeManual || m == ModeHybrid }

// ContextSource tags how a node entered the context.
type ContextSource string

const (
	// SourceRAG marks nodes found by similarity search.
	SourceRAG ContextSource = "rag"
	// SourcePinned marks manually selected nodes.
	SourcePinned ContextSource = "pinned"
	// SourceGraph marks nodes discovered by graph expansion.
	SourceGraph ContextSource = "graph"
)

// Rank returns the source's priority: pinned > rag > graph. When the same
// node is claimed by multiple sources the highest rank wins.
func (s ContextSource) Rank() int {
	switch s {
	case SourcePinned:
		return 2
	case SourceRAG:
		return 1
	default:
		return 0
	}
}

// NodeInsight describes one node in the assembled context.
type NodeInsight struct {
	NodeID     string        `json:"node_id"`
	Source     ContextSource `json:"source"`
	Similarity *float64      `json:"similarity,omitempty"`
	Preview    string        `json:"preview"`
}

// Insights summarizes the assembled context for one turn.
type Insights struct {
	TotalContextNodes   int           `json:"total_context_nodes"`
	RAGNodes            int           `json:"rag_nodes"`
	PinnedNodes         int           `json:"pinned_nodes"`
	GraphExpandedNodes  int           `json:"graph_expanded_nodes"`
	ContextMode         ContextMode   `json:"context_mode"`
	GraphDepth          int           `json:"graph_depth"`
	ApproxContextTokens int           `json:"approx_context_tokens"`
	NodeDetails         []NodeInsight `json:"node_details"`
}

// Citation is a resolved bracket-number reference from a generated answer
// back to a context node.
type Citation struct {
	NodeID  string `json:"node_id"`
	Preview string `json:"preview"`
}
