// Package query wraps the graph engine with defaults, caching and request
// deduplication for the CLI and HTTP adapters.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/ppiankov/ontograph/internal/cache"
	"github.com/ppiankov/ontograph/internal/graph"
	"github.com/ppiankov/ontograph/internal/logger"
	"github.com/ppiankov/ontograph/internal/model"
	"github.com/ppiankov/ontograph/internal/store"
)

var tracer = otel.Tracer("github.com/ppiankov/ontograph/internal/query")

// TermsResult lists the stored terms sharing a text
type TermsResult struct {
	Text  string          `json:"text"`
	Found bool            `json:"found"`
	Terms []store.TermHit `json:"terms"`
}

// BFSResult holds the paths reached from Start
type BFSResult struct {
	Start string       `json:"start"`
	Found bool         `json:"found"`
	Paths []model.Path `json:"paths"`
}

// ImpactResult groups terms by the shallowest depth they were reached at
type ImpactResult struct {
	Term   string       `json:"term"`
	Found  bool         `json:"found"`
	Impact model.Impact `json:"impact,omitempty"`
}

// PathResult is the shortest chain between two terms
type PathResult struct {
	Start string      `json:"start"`
	End   string      `json:"end"`
	Found bool        `json:"found"`
	Path  *model.Path `json:"path,omitempty"`
}

// SubgraphResult wraps subgraph, ego and predicate extractions
type SubgraphResult struct {
	Found    bool            `json:"found"`
	Subgraph *model.Subgraph `json:"subgraph,omitempty"`
}

// Service answers graph queries. A nil cache disables caching.
type Service struct {
	engine   *graph.Engine
	cache    cache.Cache
	ttl      time.Duration
	defaults model.GraphConfig
	group    singleflight.Group
	log      *logger.Logger
}

// NewService creates a query service
func NewService(engine *graph.Engine, c cache.Cache, cfg model.GraphConfig, ttl time.Duration, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{engine: engine, cache: c, ttl: ttl, defaults: cfg, log: log}
}

// Invalidate drops every cached result; call after a build
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Clear(ctx)
}

// Terms lists every stored term with the given text
func (s *Service) Terms(ctx context.Context, req TermsRequest) (TermsResult, error) {
	ctx, span, cancel := s.start(ctx, "query.Terms", attribute.String("text", req.Text))
	defer cancel()
	defer span.End()

	hits, err := s.engine.FindTerms(ctx, req.Text)
	if err != nil {
		return TermsResult{}, s.fail(span, err)
	}
	if hits == nil {
		hits = []store.TermHit{}
	}
	return TermsResult{Text: req.Text, Found: len(hits) > 0, Terms: hits}, nil
}

// BFS walks outgoing edges from the start term
func (s *Service) BFS(ctx context.Context, req BFSRequest) (BFSResult, error) {
	depth := intOr(req.MaxDepth, s.defaults.MaxDepth)
	minConf := floatOr(req.MinConfidence, s.defaults.MinConfidence)
	limit := intOr(req.Limit, s.defaults.Limit)
	category := lower(req.TargetCategory)

	ctx, span, cancel := s.start(ctx, "query.BFS", attribute.String("start", req.Start), attribute.Int("max_depth", depth))
	defer cancel()
	defer span.End()

	key := cache.CacheKey("bfs", req.Start, category, strconv.Itoa(depth), ftoa(minConf), strconv.Itoa(limit))
	out, err := cached(ctx, s, key, func(ctx context.Context) (BFSResult, error) {
		paths, err := s.engine.BFS(ctx, req.Start, category, depth, minConf, limit)
		if errors.Is(err, graph.ErrTermNotFound) {
			return BFSResult{Start: req.Start, Paths: []model.Path{}}, nil
		}
		if err != nil {
			return BFSResult{}, err
		}
		if paths == nil {
			paths = []model.Path{}
		}
		return BFSResult{Start: req.Start, Found: true, Paths: paths}, nil
	})
	if err != nil {
		return BFSResult{}, s.fail(span, err)
	}
	return out, nil
}

// Impact groups downstream terms by reach depth
func (s *Service) Impact(ctx context.Context, req ImpactRequest) (ImpactResult, error) {
	depth := intOr(req.MaxDepth, s.defaults.MaxDepth)
	minConf := floatOr(req.MinConfidence, s.defaults.MinConfidence)

	ctx, span, cancel := s.start(ctx, "query.Impact", attribute.String("term", req.Term), attribute.Int("max_depth", depth))
	defer cancel()
	defer span.End()

	key := cache.CacheKey("impact", req.Term, strconv.Itoa(depth), ftoa(minConf))
	out, err := cached(ctx, s, key, func(ctx context.Context) (ImpactResult, error) {
		impact, err := s.engine.Impact(ctx, req.Term, depth, minConf)
		if errors.Is(err, graph.ErrTermNotFound) {
			return ImpactResult{Term: req.Term}, nil
		}
		if err != nil {
			return ImpactResult{}, err
		}
		return ImpactResult{Term: req.Term, Found: true, Impact: impact}, nil
	})
	if err != nil {
		return ImpactResult{}, s.fail(span, err)
	}
	return out, nil
}

// Path finds the shortest chain from start to end
func (s *Service) Path(ctx context.Context, req PathRequest) (PathResult, error) {
	depth := intOr(req.MaxDepth, s.defaults.MaxDepth)
	minConf := floatOr(req.MinConfidence, s.defaults.MinConfidence)

	ctx, span, cancel := s.start(ctx, "query.Path", attribute.String("start", req.Start), attribute.String("end", req.End))
	defer cancel()
	defer span.End()

	key := cache.CacheKey("path", req.Start, req.End, strconv.Itoa(depth), ftoa(minConf))
	out, err := cached(ctx, s, key, func(ctx context.Context) (PathResult, error) {
		result := PathResult{Start: req.Start, End: req.End}
		path, found, err := s.engine.ShortestPath(ctx, req.Start, req.End, depth, minConf)
		if errors.Is(err, graph.ErrTermNotFound) {
			return result, nil
		}
		if err != nil {
			return PathResult{}, err
		}
		if found {
			result.Found = true
			result.Path = &path
		}
		return result, nil
	})
	if err != nil {
		return PathResult{}, s.fail(span, err)
	}
	return out, nil
}

// Subgraph extracts the neighborhood of a center term
func (s *Service) Subgraph(ctx context.Context, req SubgraphRequest) (SubgraphResult, error) {
	radius := intOr(req.Radius, DefaultRadius)
	minConf := floatOr(req.MinConfidence, s.defaults.MinConfidence)
	predicates := normalizePredicates(req.Predicates)

	ctx, span, cancel := s.start(ctx, "query.Subgraph", attribute.String("center", req.Center), attribute.Int("radius", radius))
	defer cancel()
	defer span.End()

	key := cache.CacheKey("subgraph", req.Center, strconv.Itoa(radius), strings.Join(predicates, ","), ftoa(minConf))
	out, err := cached(ctx, s, key, func(ctx context.Context) (SubgraphResult, error) {
		sg, err := s.engine.ExtractSubgraph(ctx, req.Center, radius, predicates, minConf)
		return subgraphResult(sg, err)
	})
	if err != nil {
		return SubgraphResult{}, s.fail(span, err)
	}
	return out, nil
}

// Ego extracts a term with its direct neighbors
func (s *Service) Ego(ctx context.Context, req EgoRequest) (SubgraphResult, error) {
	in := boolOr(req.Incoming, true)
	outgoing := boolOr(req.Outgoing, true)
	minConf := floatOr(req.MinConfidence, s.defaults.MinConfidence)

	ctx, span, cancel := s.start(ctx, "query.Ego", attribute.String("term", req.Term))
	defer cancel()
	defer span.End()

	key := cache.CacheKey("ego", req.Term, strconv.FormatBool(in), strconv.FormatBool(outgoing), ftoa(minConf))
	out, err := cached(ctx, s, key, func(ctx context.Context) (SubgraphResult, error) {
		sg, err := s.engine.ExtractEgoNetwork(ctx, req.Term, in, outgoing, minConf)
		return subgraphResult(sg, err)
	})
	if err != nil {
		return SubgraphResult{}, s.fail(span, err)
	}
	return out, nil
}

// ByPredicate lists edges of one predicate. It is not cached.
func (s *Service) ByPredicate(ctx context.Context, req PredicateRequest) (SubgraphResult, error) {
	limit := intOr(req.Limit, 100)

	ctx, span, cancel := s.start(ctx, "query.ByPredicate", attribute.String("predicate", req.Predicate))
	defer cancel()
	defer span.End()

	sg, err := s.engine.ExtractByPredicate(ctx, req.Predicate, limit)
	if err != nil {
		return SubgraphResult{}, s.fail(span, err)
	}
	return SubgraphResult{Found: len(sg.Edges) > 0, Subgraph: sg}, nil
}

func subgraphResult(sg *model.Subgraph, err error) (SubgraphResult, error) {
	if errors.Is(err, graph.ErrTermNotFound) {
		return SubgraphResult{}, nil
	}
	if err != nil {
		return SubgraphResult{}, err
	}
	return SubgraphResult{Found: true, Subgraph: sg}, nil
}

// start opens a span and applies the configured query timeout
func (s *Service) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span, context.CancelFunc) {
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	if s.defaults.QueryTimeout > 0 {
		ctx, cancel := context.WithTimeout(ctx, s.defaults.QueryTimeout)
		return ctx, span, cancel
	}
	return ctx, span, func() {}
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.log.Error("query failed", "error", err)
	return err
}

// cached serves key from the cache or computes it once across concurrent
// callers. Only successful results are stored.
func cached[T any](ctx context.Context, s *Service, key string, compute func(context.Context) (T, error)) (T, error) {
	if s.cache != nil {
		if raw, ok := s.cache.Get(ctx, key); ok {
			var out T
			if err := json.Unmarshal(raw, &out); err == nil {
				return out, nil
			}
			_ = s.cache.Delete(ctx, key)
		}
	}

	// The flight outlives any single caller, so it runs detached from the
	// caller's cancellation under its own query timeout.
	ch := s.group.DoChan(key, func() (any, error) {
		fctx := context.WithoutCancel(ctx)
		if s.defaults.QueryTimeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(fctx, s.defaults.QueryTimeout)
			defer cancel()
		}
		out, err := compute(fctx)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if raw, err := json.Marshal(out); err == nil {
				if err := s.cache.Set(fctx, key, raw, s.ttl); err != nil {
					s.log.Warn("cache set failed", "key", key, "error", err)
				}
			}
		}
		return out, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		if res.Shared {
			s.log.Debug("query shared", "key", key)
		}
		return res.Val.(T), nil
	}
}
