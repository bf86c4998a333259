// Package graph implements breadth-first expansion over undirected content
// graphs. Edges are treated as bidirectional regardless of the order their
// endpoints were supplied in.
package graph

import "github.com/hyperjump/tsunagu/internal/models"

// Expand walks outward from the seed nodes level by level and returns the
// visited node ids: all seeds first, then neighbors discovered at depth 1,
// then depth 2, and so on. Within a level, neighbors appear in edge input
// order. The result is capped at maxNodes (maxNodes <= 0 means no cap), and
// truncation keeps the earliest-discovered nodes. A depth <= 0 or an empty
// edge list returns the seeds themselves, deduplicated and capped.
func Expand(seeds []string, edges []models.Edge, depth, maxNodes int) []string {
	visited := make(map[string]bool, len(seeds))
	result := make([]string, 0, len(seeds))
	for _, id := range seeds {
		if id == "" || visited[id] {
			continue
		}
		visited[id] = true
		result = append(result, id)
	}

	if depth > 0 && len(edges) > 0 {
		adj := adjacency(edges)
		frontier := append([]string(nil), result...)
		for level := 0; level < depth && len(frontier) > 0; level++ {
			var next []string
			for _, id := range frontier {
				for _, neighbor := range adj[id] {
					if visited[neighbor] {
						continue
					}
					visited[neighbor] = true
					result = append(result, neighbor)
					next = append(next, neighbor)
				}
			}
			frontier = next
		}
	}

	if maxNodes > 0 && len(result) > maxNodes {
		result = result[:maxNodes]
	}
	return result
}

// Subgraph returns the edges whose endpoints are both in ids, preserving
// input order.
func Subgraph(ids []string, edges []models.Edge) []models.Edge {
	keep := make(map[string]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}
	var out []models.Edge
	for _, e := range edges {
		if keep[e.Source] && keep[e.Target] {
			out = append(out, e)
		}
	}
	return out
}

// adjacency builds an undirected adjacency list. Neighbor order follows the
// order edges were supplied in, which keeps expansion deterministic.
func adjacency(edges []models.Edge) map[string][]string {
	adj := make(map[string][]string, len(edges)*2)
	for _, e := range edges {
		if e.Source == "" || e.Target == "" || e.Source == e.Target {
			continue
		}
		adj[e.Source] = append(adj[e.Source], e.Target)
		adj[e.Target] = append(adj[e.Target], e.Source)
	}
	return adj
}
