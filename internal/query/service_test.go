package query

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/ontograph/internal/cache"
	"github.com/ppiankov/ontograph/internal/graph"
	"github.com/ppiankov/ontograph/internal/logger"
	"github.com/ppiankov/ontograph/internal/model"
	"github.com/ppiankov/ontograph/internal/store"
	"github.com/ppiankov/ontograph/internal/store/sqlite"
)

// countingReader counts anchor lookups so tests can tell cache hits apart
type countingReader struct {
	store.GraphReader
	finds int32
	fail  error
}

func (c *countingReader) FindTerms(ctx context.Context, text string) ([]store.TermHit, error) {
	atomic.AddInt32(&c.finds, 1)
	if c.fail != nil {
		return nil, c.fail
	}
	return c.GraphReader.FindTerms(ctx, text)
}

func setupService(t *testing.T, c cache.Cache) (*Service, *countingReader) {
	t.Helper()
	s, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	if _, err := s.ImportTerms(ctx, []store.TermRow{
		{Term: model.Term{ID: 1, DocumentID: 1, Text: "던전", Category: "mechanic"}},
		{Term: model.Term{ID: 2, DocumentID: 1, Text: "보상상자", Category: "content"}},
		{Term: model.Term{ID: 3, DocumentID: 1, Text: "골드", Category: "resource"}},
	}); err != nil {
		t.Fatalf("ImportTerms: %v", err)
	}
	for _, r := range []model.Relation{
		{SourceID: 1, Predicate: "triggers", TargetID: 2, Confidence: 0.9, RelationType: model.RelationFlow, Weight: 3},
		{SourceID: 2, Predicate: "produces", TargetID: 3, Confidence: 0.8, RelationType: model.RelationFlow, Weight: 3},
	} {
		r.OccurrenceCount = 1
		r.Evidence = []string{}
		if err := s.SaveRelation(ctx, r); err != nil {
			t.Fatalf("SaveRelation: %v", err)
		}
	}

	reader := &countingReader{GraphReader: s}
	engine := graph.NewEngine(reader, 2, logger.Nop())
	cfg := model.DefaultConfig().Graph
	return NewService(engine, c, cfg, time.Minute, logger.Nop()), reader
}

func TestService_NotFound(t *testing.T) {
	svc, _ := setupService(t, nil)
	ctx := context.Background()

	impact, err := svc.Impact(ctx, ImpactRequest{Term: "없음"})
	if err != nil || impact.Found {
		t.Errorf("expected found=false without error, got %+v %v", impact, err)
	}

	path, err := svc.Path(ctx, PathRequest{Start: "골드", End: "던전"})
	if err != nil || path.Found {
		t.Errorf("expected no path, got %+v %v", path, err)
	}

	sg, err := svc.Subgraph(ctx, SubgraphRequest{Center: "없음"})
	if err != nil || sg.Found {
		t.Errorf("expected found=false, got %+v %v", sg, err)
	}
}

func TestService_Queries(t *testing.T) {
	svc, _ := setupService(t, nil)
	ctx := context.Background()

	path, err := svc.Path(ctx, PathRequest{Start: "던전", End: "골드"})
	if err != nil || !path.Found || path.Path.Depth != 2 {
		t.Errorf("expected 2-hop path, got %+v %v", path, err)
	}

	bfs, err := svc.BFS(ctx, BFSRequest{Start: "던전", TargetCategory: "Resource"})
	if err != nil || len(bfs.Paths) != 1 {
		t.Errorf("expected one resource path, got %+v %v", bfs, err)
	}

	radius := 1
	sg, err := svc.Subgraph(ctx, SubgraphRequest{Center: "보상상자", Radius: &radius})
	if err != nil || !sg.Found || len(sg.Subgraph.Nodes) != 3 {
		t.Errorf("expected 3 nodes, got %+v %v", sg, err)
	}

	off := false
	ego, err := svc.Ego(ctx, EgoRequest{Term: "보상상자", Incoming: &off})
	if err != nil || len(ego.Subgraph.Nodes) != 2 {
		t.Errorf("expected center and one successor, got %+v %v", ego, err)
	}

	byPred, err := svc.ByPredicate(ctx, PredicateRequest{Predicate: "PRODUCES"})
	if err != nil || len(byPred.Subgraph.Edges) != 1 {
		t.Errorf("expected one produces edge, got %+v %v", byPred, err)
	}

	terms, err := svc.Terms(ctx, TermsRequest{Text: "골드"})
	if err != nil || !terms.Found || terms.Terms[0].Degree != 1 {
		t.Errorf("expected 골드 with degree 1, got %+v %v", terms, err)
	}
}

func TestService_CacheAndInvalidate(t *testing.T) {
	c := cache.NewMemoryCache(time.Minute, time.Minute)
	svc, reader := setupService(t, c)
	ctx := context.Background()

	first, err := svc.Impact(ctx, ImpactRequest{Term: "던전"})
	if err != nil {
		t.Fatalf("Impact: %v", err)
	}
	calls := atomic.LoadInt32(&reader.finds)

	second, err := svc.Impact(ctx, ImpactRequest{Term: "던전"})
	if err != nil {
		t.Fatalf("Impact: %v", err)
	}
	if atomic.LoadInt32(&reader.finds) != calls {
		t.Error("second identical query should be served from cache")
	}
	if len(second.Impact[2]) != 1 || second.Impact[2][0] != first.Impact[2][0] {
		t.Errorf("cached result differs: %v vs %v", first.Impact, second.Impact)
	}

	depth := 1
	if _, err := svc.Impact(ctx, ImpactRequest{Term: "던전", MaxDepth: &depth}); err != nil {
		t.Fatalf("Impact: %v", err)
	}
	if atomic.LoadInt32(&reader.finds) == calls {
		t.Error("different parameters must not share a cache entry")
	}

	if err := svc.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("expected empty cache after invalidate, got %d entries", c.Len())
	}
	before := atomic.LoadInt32(&reader.finds)
	if _, err := svc.Impact(ctx, ImpactRequest{Term: "던전"}); err != nil {
		t.Fatalf("Impact: %v", err)
	}
	if atomic.LoadInt32(&reader.finds) == before {
		t.Error("query after invalidate should recompute")
	}
}

func TestService_StorageErrorIsNotNotFound(t *testing.T) {
	c := cache.NewMemoryCache(time.Minute, time.Minute)
	svc, reader := setupService(t, c)
	reader.fail = errors.New("connection refused")

	_, err := svc.Impact(context.Background(), ImpactRequest{Term: "던전"})
	if err == nil {
		t.Fatal("expected error")
	}
	if c.Len() != 0 {
		t.Error("failed queries must not be cached")
	}
}

func TestCached_CancelledCallerDoesNotFailFlight(t *testing.T) {
	svc := NewService(nil, nil, model.GraphConfig{QueryTimeout: time.Minute}, 0, logger.Nop())

	started := make(chan struct{}, 1)
	release := make(chan struct{})
	seen := make(chan error, 2)
	compute := func(ctx context.Context) (string, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		seen <- ctx.Err()
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "ok", nil
	}

	type result struct {
		val string
		err error
	}
	firstCtx, cancelFirst := context.WithCancel(context.Background())
	first := make(chan result, 1)
	go func() {
		v, err := cached(firstCtx, svc, "k", compute)
		first <- result{v, err}
	}()
	<-started

	cancelFirst()
	select {
	case r := <-first:
		if !errors.Is(r.err, context.Canceled) {
			t.Errorf("expected the cancelled caller to get context.Canceled, got %q %v", r.val, r.err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled caller did not return")
	}

	// The flight is still running, so this caller joins it
	second := make(chan result, 1)
	go func() {
		v, err := cached(context.Background(), svc, "k", compute)
		second <- result{v, err}
	}()
	close(release)

	if err := <-seen; err != nil {
		t.Errorf("flight context must survive the first caller's cancellation, got %v", err)
	}
	r := <-second
	if r.err != nil || r.val != "ok" {
		t.Errorf("expected second caller to get the result, got %q %v", r.val, r.err)
	}
}

func TestNormalizePredicates(t *testing.T) {
	got := normalizePredicates([]string{"Produces, sells", "", "produces"})
	if len(got) != 2 || got[0] != "produces" || got[1] != "sells" {
		t.Errorf("unexpected predicates %v", got)
	}
}
