package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/ontograph/internal/model"
	"github.com/ppiankov/ontograph/internal/store"
)

func edgeKey(e model.Edge) string {
	return fmt.Sprintf("%d|%s|%d", e.SourceID, e.Predicate, e.TargetID)
}

// ExtractSubgraph collects everything within radius hops of center, walking
// edges in both directions while keeping their stored direction. An empty
// predicates list allows every predicate. Nodes at the radius are not
// expanded, so the result holds exactly the edges seen from inner nodes.
func (e *Engine) ExtractSubgraph(ctx context.Context, center string, radius int, predicates []string, minConfidence float64) (*model.Subgraph, error) {
	anchor, err := e.ResolveAnchor(ctx, center)
	if err != nil {
		return nil, err
	}
	radius = clampDepth(radius)

	allowed := make(map[string]bool, len(predicates))
	for _, p := range predicates {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			allowed[p] = true
		}
	}

	sg := &model.Subgraph{Center: anchor, Edges: []model.Edge{}}
	names := map[int64]model.Node{anchor.ID: anchor}
	depthOf := map[int64]int{anchor.ID: 0}
	order := []int64{anchor.ID}
	edgeSeen := make(map[string]bool)
	frontier := []int64{anchor.ID}

	for depth := 0; len(frontier) > 0; depth++ {
		if depth >= radius {
			for _, id := range frontier {
				sg.Log = append(sg.Log, model.TraversalStep{Action: model.StepSkipRadius, FromID: id, Depth: depth})
			}
			break
		}

		levels, err := e.fetchLevel(ctx, frontier, outgoing, incoming)
		if err != nil {
			return nil, err
		}

		var next []int64
		for i, id := range frontier {
			for _, edge := range levels[i] {
				other := edge.TargetID
				if other == id {
					other = edge.SourceID
				}
				step := model.TraversalStep{
					FromID:     id,
					ToID:       other,
					Predicate:  edge.Predicate,
					Depth:      depth + 1,
					Confidence: edge.Confidence,
				}

				if len(allowed) > 0 && !allowed[strings.ToLower(edge.Predicate)] {
					step.Action = model.StepSkipPredicate
					sg.Log = append(sg.Log, step)
					continue
				}
				if edge.Confidence < minConfidence {
					step.Action = model.StepSkipConfidence
					sg.Log = append(sg.Log, step)
					continue
				}

				if k := edgeKey(edge); !edgeSeen[k] {
					edgeSeen[k] = true
					sg.Edges = append(sg.Edges, edge)
				}
				if _, seen := depthOf[other]; !seen {
					depthOf[other] = depth + 1
					order = append(order, other)
					next = append(next, other)
					step.Action = model.StepDiscovered
					sg.Log = append(sg.Log, step)
				}
			}
		}
		frontier = next
	}

	if err := e.nodes(ctx, order, names); err != nil {
		return nil, err
	}
	sg.Nodes = make([]model.Node, 0, len(order))
	for _, id := range order {
		sg.Nodes = append(sg.Nodes, names[id])
	}

	e.log.Debug("subgraph extracted", "center", anchor.ID, "radius", radius, "nodes", len(sg.Nodes), "edges", len(sg.Edges))
	return sg, nil
}

// ExtractEgoNetwork returns term with its direct neighbors. incoming and
// outgoing select which edge directions are followed.
func (e *Engine) ExtractEgoNetwork(ctx context.Context, term string, includeIncoming, includeOutgoing bool, minConfidence float64) (*model.Subgraph, error) {
	anchor, err := e.ResolveAnchor(ctx, term)
	if err != nil {
		return nil, err
	}

	var dirs []direction
	if includeOutgoing {
		dirs = append(dirs, outgoing)
	}
	if includeIncoming {
		dirs = append(dirs, incoming)
	}

	sg := &model.Subgraph{Center: anchor, Nodes: []model.Node{anchor}, Edges: []model.Edge{}}
	if len(dirs) == 0 {
		return sg, nil
	}

	levels, err := e.fetchLevel(ctx, []int64{anchor.ID}, dirs...)
	if err != nil {
		return nil, err
	}

	seen := map[int64]bool{anchor.ID: true}
	edgeSeen := make(map[string]bool)
	var neighbors []int64
	for _, edge := range levels[0] {
		if edge.Confidence < minConfidence {
			continue
		}
		k := edgeKey(edge)
		if edgeSeen[k] {
			continue
		}
		edgeSeen[k] = true
		sg.Edges = append(sg.Edges, edge)

		other := edge.TargetID
		if other == anchor.ID {
			other = edge.SourceID
		}
		if !seen[other] {
			seen[other] = true
			neighbors = append(neighbors, other)
		}
	}

	names := map[int64]model.Node{anchor.ID: anchor}
	if err := e.nodes(ctx, neighbors, names); err != nil {
		return nil, err
	}
	for _, id := range neighbors {
		sg.Nodes = append(sg.Nodes, names[id])
	}
	return sg, nil
}

// ExtractByPredicate returns up to limit edges carrying predicate, lightest
// weight first, with the nodes they touch ordered by id.
func (e *Engine) ExtractByPredicate(ctx context.Context, predicate string, limit int) (*model.Subgraph, error) {
	predicate = strings.ToLower(strings.TrimSpace(predicate))
	if limit <= 0 {
		limit = 100
	}

	edges, err := store.Retry(ctx, func(ctx context.Context) ([]model.Edge, error) {
		return e.reader.EdgesByPredicate(ctx, predicate, limit)
	})
	if err != nil {
		return nil, fmt.Errorf("edges by predicate %q: %w", predicate, err)
	}
	sort.SliceStable(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.Weight != b.Weight {
			return a.Weight < b.Weight
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.SourceID != b.SourceID {
			return a.SourceID < b.SourceID
		}
		return a.TargetID < b.TargetID
	})
	if len(edges) > limit {
		edges = edges[:limit]
	}

	seen := make(map[int64]bool)
	var ids []int64
	for _, edge := range edges {
		for _, id := range []int64{edge.SourceID, edge.TargetID} {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	names := make(map[int64]model.Node, len(ids))
	if err := e.nodes(ctx, ids, names); err != nil {
		return nil, err
	}

	sg := &model.Subgraph{Nodes: make([]model.Node, 0, len(ids)), Edges: edges}
	if sg.Edges == nil {
		sg.Edges = []model.Edge{}
	}
	for _, id := range ids {
		sg.Nodes = append(sg.Nodes, names[id])
	}
	return sg, nil
}
