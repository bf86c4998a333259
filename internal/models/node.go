// Package models defines core data structures for canvas nodes, edges, chat
// sessions, and retrieval context.
package models

import (
	"fmt"

	"github.com/hyperjump/tsunagu/pkg/utils"
)

// Node type tags as they appear on the wire.
const (
	NodeTypeSnippet = "snippet"
	NodeTypeNote    = "note"
)

// ContentNode is a canvas node usable as retrieval context: a highlighted
// excerpt (Snippet) or a free-form annotation (Note). Nodes are created and
// edited by the canvas; this core only reads them.
type ContentNode interface {
	// NodeID returns the node's id, unique within a project.
	NodeID() string
	// Text returns the node's content.
	Text() string
	// ContextBlock renders the node as a numbered context block for the prompt.
	ContextBlock(n int) string
}

// Snippet is a highlighted excerpt from a source document.
type Snippet struct {
	ID             string
	Content        string
	SourceDocument string
	PageIndex      int
}

// NodeID returns the snippet's id.
func (s Snippet) NodeID() string { return s.ID }

// Text returns the snippet's content.
func (s Snippet) Text() string { return s.Content }

// ContextBlock renders the snippet with its source document label, or a
// placeholder when the source is unknown.
func (s Snippet) ContextBlock(n int) string {
	source := s.SourceDocument
	if source == "" {
		source = "Unknown"
	}
	return fmt.Sprintf("[%d] From %q:\n%s", n, source, s.Content)
}

// Note is a free-form user annotation. Notes have no source document.
type Note struct {
	ID      string
	Content string
}

// NodeID returns the note's id.
func (n Note) NodeID() string { return n.ID }

// Text returns the note's content.
func (n Note) Text() string { return n.Content }

// ContextBlock renders the note as a user annotation.
func (n Note) ContextBlock(num int) string {
	return fmt.Sprintf("[%d] User's note:\n%s", num, n.Content)
}

// NodeInput is the wire representation of a canvas node as supplied by the
// caller on each chat request.
type NodeInput struct {
	ID             string `json:"id"`
	Content        string `json:"content"`
	SourceDocument string `json:"source_document,omitempty"`
	PageIndex      int    `json:"page_index,omitempty"`
	NodeType       string `json:"node_type"`
}

// ContentNode converts the wire form into its typed variant. Unknown node
// types are treated as snippets.
func (in NodeInput) ContentNode() ContentNode {
	if in.NodeType == NodeTypeNote {
		return Note{ID: in.ID, Content: in.Content}
	}
	return Snippet{
		ID:             in.ID,
		Content:        in.Content,
		SourceDocument: in.SourceDocument,
		PageIndex:      in.PageIndex,
	}
}

// NodeLookup maps node ids to their typed nodes. Inputs without an id are dropped.
func NodeLookup(inputs []NodeInput) map[string]ContentNode {
	lookup := make(map[string]ContentNode, len(inputs))
	for _, in := range inputs {
		if in.ID == "" {
			continue
		}
		lookup[in.ID] = in.ContentNode()
	}
	return lookup
}

// Preview returns the node's content truncated to maxLen characters.
func Preview(node ContentNode, maxLen int) string {
	return utils.Truncate(node.Text(), maxLen)
}
