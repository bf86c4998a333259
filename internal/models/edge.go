package models

// Edge is a user-drawn link between two canvas nodes. Edges are stored
// directed but treated as undirected for graph expansion.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}
