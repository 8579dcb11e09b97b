package graph

import (
	"context"
	"sort"
	"strings"

	"github.com/ppiankov/ontograph/internal/model"
)

// hop records how a node was first reached
type hop struct {
	parent     int64
	edge       model.Edge
	depth      int
	confidence float64
}

// BFS walks outgoing edges level by level from start. Every reached node of
// targetCategory (any node when empty) yields a path. Each node is reached
// once, by the first path found. Paths are ordered by confidence and
// truncated to limit (0 = unlimited).
func (e *Engine) BFS(ctx context.Context, start, targetCategory string, maxDepth int, minConfidence float64, limit int) ([]model.Path, error) {
	anchor, err := e.ResolveAnchor(ctx, start)
	if err != nil {
		return nil, err
	}
	maxDepth = clampDepth(maxDepth)
	category := strings.ToLower(strings.TrimSpace(targetCategory))

	names := map[int64]model.Node{anchor.ID: anchor}
	hops := map[int64]hop{anchor.ID: {parent: anchor.ID, confidence: 1}}
	var (
		paths    []model.Path
		frontier = []int64{anchor.ID}
	)

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		if limit > 0 && len(paths) >= limit {
			break
		}

		levels, err := e.fetchLevel(ctx, frontier, outgoing)
		if err != nil {
			return nil, err
		}

		var next []int64
		for i, id := range frontier {
			for _, edge := range levels[i] {
				if edge.Confidence < minConfidence {
					continue
				}
				if _, seen := hops[edge.TargetID]; seen {
					continue
				}
				hops[edge.TargetID] = hop{
					parent:     id,
					edge:       edge,
					depth:      depth + 1,
					confidence: hops[id].confidence * edge.Confidence,
				}
				next = append(next, edge.TargetID)
			}
		}

		if err := e.nodes(ctx, next, names); err != nil {
			return nil, err
		}
		for _, id := range next {
			if category != "" && strings.ToLower(names[id].Category) != category {
				continue
			}
			paths = append(paths, buildPath(anchor.ID, id, hops, names))
		}
		frontier = next
	}

	sortPaths(paths)
	if limit > 0 && len(paths) > limit {
		paths = paths[:limit]
	}
	e.log.Debug("bfs finished", "start", anchor.ID, "paths", len(paths), "visited", len(hops))
	return paths, nil
}

// Impact runs a depth-first walk over outgoing edges and groups every
// reachable term by the shallowest depth it was reached at. Terms are listed
// in first-discovery order. The start term sits at depth 0.
func (e *Engine) Impact(ctx context.Context, start string, maxDepth int, minConfidence float64) (model.Impact, error) {
	anchor, err := e.ResolveAnchor(ctx, start)
	if err != nil {
		return nil, err
	}
	maxDepth = clampDepth(maxDepth)

	// best holds the shallowest depth each node was reached at. A node
	// reached again by a shorter route is re-expanded from there.
	best := map[int64]int{anchor.ID: 0}
	names := map[int64]model.Node{anchor.ID: anchor}
	fanout := make(map[int64][]int64)
	var order []int64

	var visit func(id int64, depth int) error
	visit = func(id int64, depth int) error {
		if depth >= maxDepth {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		targets, ok := fanout[id]
		if !ok {
			edges, err := e.edges(ctx, id, outgoing)
			if err != nil {
				return err
			}
			for _, edge := range edges {
				if edge.Confidence >= minConfidence {
					targets = append(targets, edge.TargetID)
				}
			}
			if err := e.nodes(ctx, targets, names); err != nil {
				return err
			}
			fanout[id] = targets
		}

		d := depth + 1
		for _, target := range targets {
			prev, reached := best[target]
			if reached && prev <= d {
				continue
			}
			if !reached {
				order = append(order, target)
			}
			best[target] = d
			if err := visit(target, d); err != nil {
				return err
			}
		}
		return nil
	}

	if err := visit(anchor.ID, 0); err != nil {
		return nil, err
	}

	impact := model.Impact{0: {anchor.Text}}
	listed := map[int]map[string]bool{0: {anchor.Text: true}}
	for _, id := range order {
		d := best[id]
		name := names[id].Text
		if listed[d] == nil {
			listed[d] = make(map[string]bool)
		}
		if !listed[d][name] {
			listed[d][name] = true
			impact[d] = append(impact[d], name)
		}
	}
	return impact, nil
}

// ShortestPath finds the fewest-hop chain of outgoing edges from start to
// end within maxDepth. found is false when no such chain exists.
func (e *Engine) ShortestPath(ctx context.Context, start, end string, maxDepth int, minConfidence float64) (path model.Path, found bool, err error) {
	from, err := e.ResolveAnchor(ctx, start)
	if err != nil {
		return model.Path{}, false, err
	}
	to, err := e.ResolveAnchor(ctx, end)
	if err != nil {
		return model.Path{}, false, err
	}
	maxDepth = clampDepth(maxDepth)

	names := map[int64]model.Node{from.ID: from, to.ID: to}
	hops := map[int64]hop{from.ID: {parent: from.ID, confidence: 1}}
	frontier := []int64{from.ID}

	for depth := 0; len(frontier) > 0; depth++ {
		for _, id := range frontier {
			if id == to.ID {
				return e.finishPath(ctx, from.ID, to.ID, hops, names)
			}
		}
		if depth >= maxDepth {
			break
		}

		levels, err := e.fetchLevel(ctx, frontier, outgoing)
		if err != nil {
			return model.Path{}, false, err
		}

		var next []int64
		for i, id := range frontier {
			for _, edge := range levels[i] {
				if edge.Confidence < minConfidence {
					continue
				}
				if _, seen := hops[edge.TargetID]; seen {
					continue
				}
				hops[edge.TargetID] = hop{
					parent:     id,
					edge:       edge,
					depth:      depth + 1,
					confidence: hops[id].confidence * edge.Confidence,
				}
				next = append(next, edge.TargetID)
			}
		}
		frontier = next
	}
	return model.Path{}, false, nil
}

func (e *Engine) finishPath(ctx context.Context, from, to int64, hops map[int64]hop, names map[int64]model.Node) (model.Path, bool, error) {
	var chain []int64
	for id := to; ; id = hops[id].parent {
		chain = append(chain, id)
		if id == from {
			break
		}
	}
	if err := e.nodes(ctx, chain, names); err != nil {
		return model.Path{}, false, err
	}
	return buildPath(from, to, hops, names), true, nil
}

// buildPath walks parent links from end back to start
func buildPath(start, end int64, hops map[int64]hop, names map[int64]model.Node) model.Path {
	var (
		nodes []model.Node
		edges []model.Edge
	)
	for id := end; id != start; id = hops[id].parent {
		nodes = append(nodes, names[id])
		edges = append(edges, hops[id].edge)
	}
	nodes = append(nodes, names[start])

	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}
	for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
		edges[i], edges[j] = edges[j], edges[i]
	}
	if edges == nil {
		edges = []model.Edge{}
	}

	return model.Path{
		Nodes:      nodes,
		Edges:      edges,
		Depth:      hops[end].depth,
		Confidence: hops[end].confidence,
	}
}

// sortPaths orders by confidence desc, then depth asc, then node ids
func sortPaths(paths []model.Path) {
	sort.SliceStable(paths, func(i, j int) bool {
		a, b := paths[i], paths[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		for k := 0; k < len(a.Nodes) && k < len(b.Nodes); k++ {
			if a.Nodes[k].ID != b.Nodes[k].ID {
				return a.Nodes[k].ID < b.Nodes[k].ID
			}
		}
		return len(a.Nodes) < len(b.Nodes)
	})
}
