// Package citation resolves bracket-number markers in generated answers back
// to the context nodes used for the turn.
package citation

import (
	"regexp"
	"strconv"

	"github.com/hyperjump/tsunagu/internal/models"
)

const previewLength = 100

var markerPattern = regexp.MustCompile(`\[(\d+)\]`)

// Extract scans text for markers of the form [n] and maps each distinct
// number to orderedIDs[n-1]. Numbers outside the list bounds and ids with no
// entry in nodes are dropped without error; grounding is best effort.
// Citations come back in order of first marker appearance.
func Extract(text string, orderedIDs []string, nodes map[string]models.ContentNode) []models.Citation {
	matches := markerPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[int]bool, len(matches))
	var citations []models.Citation
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil || seen[n] {
			continue
		}
		seen[n] = true
		idx := n - 1
		if idx < 0 || idx >= len(orderedIDs) {
			continue
		}
		node, ok := nodes[orderedIDs[idx]]
		if !ok {
			continue
		}
		citations = append(citations, models.Citation{
			NodeID:  node.NodeID(),
			Preview: models.Preview(node, previewLength),
		})
	}
	return citations
}
