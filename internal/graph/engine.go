// Package graph implements read-only traversal and subgraph extraction over
// the persisted edge table.
package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/ontograph/internal/logger"
	"github.com/ppiankov/ontograph/internal/model"
	"github.com/ppiankov/ontograph/internal/store"
)

// ErrTermNotFound is returned when an anchor text matches no stored term
var ErrTermNotFound = errors.New("term not found")

type direction int

const (
	outgoing direction = iota
	incoming
)

// Engine answers traversal queries against a GraphReader. It holds no
// per-query state and is safe for concurrent use.
type Engine struct {
	reader           store.GraphReader
	fetchConcurrency int
	log              *logger.Logger
}

// NewEngine creates an engine; fetchConcurrency bounds per-level edge fetches
func NewEngine(reader store.GraphReader, fetchConcurrency int, log *logger.Logger) *Engine {
	if fetchConcurrency <= 0 {
		fetchConcurrency = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{reader: reader, fetchConcurrency: fetchConcurrency, log: log}
}

// FindTerms lists every stored term with the given text
func (e *Engine) FindTerms(ctx context.Context, text string) ([]store.TermHit, error) {
	return store.Retry(ctx, func(ctx context.Context) ([]store.TermHit, error) {
		return e.reader.FindTerms(ctx, text)
	})
}

// ResolveAnchor picks the term a query starts from. When several terms share
// the text, one with persisted edges wins; ties go to the lowest id.
func (e *Engine) ResolveAnchor(ctx context.Context, text string) (model.Node, error) {
	if strings.TrimSpace(text) == "" {
		return model.Node{}, ErrTermNotFound
	}
	hits, err := e.FindTerms(ctx, text)
	if err != nil {
		return model.Node{}, fmt.Errorf("resolve %q: %w", text, err)
	}
	if len(hits) == 0 {
		return model.Node{}, fmt.Errorf("%w: %q", ErrTermNotFound, text)
	}

	best := hits[0]
	for _, h := range hits[1:] {
		if betterAnchor(h, best) {
			best = h
		}
	}
	return best.Node, nil
}

func betterAnchor(a, b store.TermHit) bool {
	aLinked, bLinked := a.Degree > 0, b.Degree > 0
	if aLinked != bLinked {
		return aLinked
	}
	return a.Node.ID < b.Node.ID
}

// edges fetches one node's edges in one direction, ordered deterministically
// whatever order the backend returned.
func (e *Engine) edges(ctx context.Context, id int64, dir direction) ([]model.Edge, error) {
	fetch := e.reader.OutgoingEdges
	if dir == incoming {
		fetch = e.reader.IncomingEdges
	}
	edges, err := store.Retry(ctx, func(ctx context.Context) ([]model.Edge, error) {
		return fetch(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	sortEdges(edges, dir)
	return edges, nil
}

// fetchLevel loads edges for a whole frontier concurrently. Results are
// indexed like ids so callers can walk them in frontier order.
func (e *Engine) fetchLevel(ctx context.Context, ids []int64, dirs ...direction) ([][]model.Edge, error) {
	out := make([][]model.Edge, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.fetchConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			var all []model.Edge
			for _, dir := range dirs {
				edges, err := e.edges(gctx, id, dir)
				if err != nil {
					return fmt.Errorf("edges of %d: %w", id, err)
				}
				all = append(all, edges...)
			}
			out[i] = all
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// nodes loads the given ids into cache, skipping ones already known
func (e *Engine) nodes(ctx context.Context, ids []int64, cache map[int64]model.Node) error {
	var missing []int64
	for _, id := range ids {
		if _, ok := cache[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	found, err := store.Retry(ctx, func(ctx context.Context) (map[int64]model.Node, error) {
		return e.reader.GetNodes(ctx, missing)
	})
	if err != nil {
		return fmt.Errorf("load nodes: %w", err)
	}
	for _, id := range missing {
		n, ok := found[id]
		if !ok {
			n = model.Node{ID: id}
		}
		cache[id] = n
	}
	return nil
}

// sortEdges orders by weight asc, confidence desc, then the far endpoint id
func sortEdges(edges []model.Edge, dir direction) {
	sort.SliceStable(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.Weight != b.Weight {
			return a.Weight < b.Weight
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if dir == incoming {
			return a.SourceID < b.SourceID
		}
		return a.TargetID < b.TargetID
	})
}

func clampDepth(d int) int {
	if d < 0 {
		return 0
	}
	return d
}
