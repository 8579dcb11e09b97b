package graph

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/ppiankov/ontograph/internal/logger"
	"github.com/ppiankov/ontograph/internal/model"
	"github.com/ppiankov/ontograph/internal/store"
)

// memGraph is an in-memory GraphReader. Edge lists come back in reverse
// insertion order so the engine's own ordering is what tests observe.
type memGraph struct {
	mu    sync.Mutex
	nodes map[int64]model.Node
	edges []model.Edge
	fail  error
	calls int
}

func (m *memGraph) FindTerms(ctx context.Context, text string) ([]store.TermHit, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	var out []store.TermHit
	for id := int64(0); id < 100; id++ {
		n, ok := m.nodes[id]
		if !ok || !strings.EqualFold(n.Text, text) {
			continue
		}
		degree := 0
		for _, e := range m.edges {
			if e.SourceID == id || e.TargetID == id {
				degree++
			}
		}
		out = append(out, store.TermHit{Node: n, Degree: degree})
	}
	return out, nil
}

func (m *memGraph) GetNodes(ctx context.Context, ids []int64) (map[int64]model.Node, error) {
	out := make(map[int64]model.Node)
	for _, id := range ids {
		if n, ok := m.nodes[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}

func (m *memGraph) OutgoingEdges(ctx context.Context, termID int64) ([]model.Edge, error) {
	return m.collect(func(e model.Edge) bool { return e.SourceID == termID })
}

func (m *memGraph) IncomingEdges(ctx context.Context, termID int64) ([]model.Edge, error) {
	return m.collect(func(e model.Edge) bool { return e.TargetID == termID })
}

func (m *memGraph) EdgesByPredicate(ctx context.Context, predicate string, limit int) ([]model.Edge, error) {
	return m.collect(func(e model.Edge) bool { return e.Predicate == predicate })
}

func (m *memGraph) collect(keep func(model.Edge) bool) ([]model.Edge, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	var out []model.Edge
	for i := len(m.edges) - 1; i >= 0; i-- {
		if keep(m.edges[i]) {
			out = append(out, m.edges[i])
		}
	}
	return out, nil
}

func edge(src int64, pred string, dst int64, conf float64, weight int) model.Edge {
	return model.Edge{SourceID: src, TargetID: dst, Predicate: pred, Confidence: conf, Weight: weight}
}

// testGraph:
//
//	던전(1) -triggers .9-> 보상상자(2) -produces .9-> 골드(4) -consumes .7-> 상점(5)
//	던전(1) -requires .8-> 열쇠(3) -produces .4-> 골드(4)
//	고아(10) isolated, 고아(11) -contains .6-> 던전(1), 외톨이(8) isolated
func testGraph() *memGraph {
	return &memGraph{
		nodes: map[int64]model.Node{
			1:  {ID: 1, Text: "던전", Category: "mechanic"},
			2:  {ID: 2, Text: "보상상자", Category: "content"},
			3:  {ID: 3, Text: "열쇠", Category: "resource"},
			4:  {ID: 4, Text: "골드", Category: "resource"},
			5:  {ID: 5, Text: "상점", Category: "system"},
			8:  {ID: 8, Text: "외톨이", Category: "mechanic"},
			10: {ID: 10, Text: "고아", Category: "content"},
			11: {ID: 11, Text: "고아", Category: "content"},
		},
		edges: []model.Edge{
			edge(1, "triggers", 2, 0.9, 3),
			edge(1, "requires", 3, 0.8, 1),
			edge(2, "produces", 4, 0.9, 3),
			edge(3, "produces", 4, 0.4, 3),
			edge(4, "consumes", 5, 0.7, 3),
			edge(11, "contains", 1, 0.6, 1),
		},
	}
}

func newTestEngine(g store.GraphReader) *Engine {
	return NewEngine(g, 4, logger.Nop())
}

func nodeIDs(nodes []model.Node) []int64 {
	ids := make([]int64, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}

func TestResolveAnchor_PrefersConnected(t *testing.T) {
	e := newTestEngine(testGraph())

	n, err := e.ResolveAnchor(context.Background(), "고아")
	if err != nil {
		t.Fatalf("ResolveAnchor: %v", err)
	}
	if n.ID != 11 {
		t.Errorf("expected connected term 11, got %d", n.ID)
	}

	_, err = e.ResolveAnchor(context.Background(), "없음")
	if !errors.Is(err, ErrTermNotFound) {
		t.Errorf("expected ErrTermNotFound, got %v", err)
	}
}

func TestResolveAnchor_StorageError(t *testing.T) {
	g := testGraph()
	g.fail = errors.New("connection reset")
	e := newTestEngine(g)

	_, err := e.ResolveAnchor(context.Background(), "던전")
	if err == nil || errors.Is(err, ErrTermNotFound) {
		t.Errorf("expected a storage failure distinct from not found, got %v", err)
	}
}

func TestBFS(t *testing.T) {
	e := newTestEngine(testGraph())
	ctx := context.Background()

	tests := []struct {
		name     string
		category string
		maxDepth int
		limit    int
		want     [][]int64
	}{
		{"all reached", "", 3, 20, [][]int64{{1, 2}, {1, 2, 4}, {1, 3}, {1, 2, 4, 5}}},
		{"target category", "Resource", 3, 20, [][]int64{{1, 2, 4}, {1, 3}}},
		{"depth bound", "", 1, 20, [][]int64{{1, 2}, {1, 3}}},
		{"limit", "", 3, 1, [][]int64{{1, 2}}},
		{"zero depth", "", 0, 20, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paths, err := e.BFS(ctx, "던전", tt.category, tt.maxDepth, 0.5, tt.limit)
			if err != nil {
				t.Fatalf("BFS: %v", err)
			}
			if len(paths) != len(tt.want) {
				t.Fatalf("expected %d paths, got %d", len(tt.want), len(paths))
			}
			for i, p := range paths {
				if got := nodeIDs(p.Nodes); !reflect.DeepEqual(got, tt.want[i]) {
					t.Errorf("path %d: expected %v, got %v", i, tt.want[i], got)
				}
				if p.Depth != len(p.Edges) {
					t.Errorf("path %d: depth %d but %d edges", i, p.Depth, len(p.Edges))
				}
			}
		})
	}
}

func TestBFS_PathConfidenceIsProduct(t *testing.T) {
	e := newTestEngine(testGraph())

	paths, err := e.BFS(context.Background(), "던전", "system", 3, 0.5, 10)
	if err != nil {
		t.Fatalf("BFS: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("expected 1 path, got %d", len(paths))
	}
	want := 0.9 * 0.9 * 0.7
	if diff := paths[0].Confidence - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected %.4f, got %.4f", want, paths[0].Confidence)
	}
}

func TestBFS_NoRevisits(t *testing.T) {
	g := testGraph()
	g.edges = append(g.edges, edge(5, "triggers", 1, 0.9, 3)) // cycle back to start
	e := newTestEngine(g)

	paths, err := e.BFS(context.Background(), "던전", "", 10, 0, 0)
	if err != nil {
		t.Fatalf("BFS: %v", err)
	}
	seen := make(map[int64]bool)
	for _, p := range paths {
		end := p.Nodes[len(p.Nodes)-1].ID
		if seen[end] {
			t.Errorf("node %d reached twice", end)
		}
		seen[end] = true
		if end == 1 {
			t.Error("start must not be reported as reached")
		}
	}
	if len(paths) != 4 {
		t.Errorf("expected 4 reached nodes, got %d", len(paths))
	}
}

func TestBFS_IsolatedAndUnknown(t *testing.T) {
	e := newTestEngine(testGraph())
	ctx := context.Background()

	paths, err := e.BFS(ctx, "외톨이", "", 3, 0.5, 10)
	if err != nil {
		t.Fatalf("BFS: %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("expected no paths from isolated term, got %d", len(paths))
	}

	if _, err := e.BFS(ctx, "없음", "", 3, 0.5, 10); !errors.Is(err, ErrTermNotFound) {
		t.Errorf("expected ErrTermNotFound, got %v", err)
	}
}

func TestBFS_DeterministicAcrossConcurrency(t *testing.T) {
	g := testGraph()
	serial := NewEngine(g, 1, logger.Nop())
	parallel := NewEngine(g, 8, logger.Nop())

	a, err := serial.BFS(context.Background(), "던전", "", 3, 0, 0)
	if err != nil {
		t.Fatalf("serial BFS: %v", err)
	}
	b, err := parallel.BFS(context.Background(), "던전", "", 3, 0, 0)
	if err != nil {
		t.Fatalf("parallel BFS: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("results differ:\n%v\n%v", a, b)
	}
}

func TestImpact(t *testing.T) {
	e := newTestEngine(testGraph())

	impact, err := e.Impact(context.Background(), "던전", 3, 0.5)
	if err != nil {
		t.Fatalf("Impact: %v", err)
	}
	want := model.Impact{
		0: {"던전"},
		1: {"열쇠", "보상상자"},
		2: {"골드"},
		3: {"상점"},
	}
	if !reflect.DeepEqual(impact, want) {
		t.Errorf("expected %v, got %v", want, impact)
	}
}

func TestImpact_FirstDiscoveryOnly(t *testing.T) {
	e := newTestEngine(testGraph())

	// With the low-confidence edge allowed, 골드 is reached through both
	// 열쇠 and 보상상자 at the same depth and must be listed once.
	impact, err := e.Impact(context.Background(), "던전", 3, 0)
	if err != nil {
		t.Fatalf("Impact: %v", err)
	}
	total := 0
	for _, names := range impact {
		total += len(names)
	}
	if total != 5 {
		t.Errorf("expected 5 distinct entries, got %d: %v", total, impact)
	}
}

func TestImpact_ShorterRouteWins(t *testing.T) {
	g := &memGraph{
		nodes: map[int64]model.Node{
			1: {ID: 1, Text: "A", Category: "mechanic"},
			2: {ID: 2, Text: "B", Category: "mechanic"},
			3: {ID: 3, Text: "C", Category: "mechanic"},
			4: {ID: 4, Text: "D", Category: "mechanic"},
		},
		edges: []model.Edge{
			edge(1, "triggers", 2, 0.9, 1),
			edge(2, "triggers", 3, 0.9, 1),
			edge(3, "triggers", 4, 0.9, 1),
			edge(1, "triggers", 3, 0.9, 3),
		},
	}
	e := newTestEngine(g)

	// C is first reached through B at depth 2, then directly at depth 1,
	// which brings D within the depth limit.
	impact, err := e.Impact(context.Background(), "A", 2, 0.5)
	if err != nil {
		t.Fatalf("Impact: %v", err)
	}
	want := model.Impact{
		0: {"A"},
		1: {"B", "C"},
		2: {"D"},
	}
	if !reflect.DeepEqual(impact, want) {
		t.Errorf("expected %v, got %v", want, impact)
	}
}

func TestImpact_Isolated(t *testing.T) {
	e := newTestEngine(testGraph())

	impact, err := e.Impact(context.Background(), "외톨이", 3, 0.5)
	if err != nil {
		t.Fatalf("Impact: %v", err)
	}
	if !reflect.DeepEqual(impact, model.Impact{0: {"외톨이"}}) {
		t.Errorf("expected only the start, got %v", impact)
	}
}

func TestShortestPath(t *testing.T) {
	e := newTestEngine(testGraph())
	ctx := context.Background()

	path, found, err := e.ShortestPath(ctx, "던전", "상점", 5, 0.5)
	if err != nil {
		t.Fatalf("ShortestPath: %v", err)
	}
	if !found {
		t.Fatal("expected a path")
	}
	if got := nodeIDs(path.Nodes); !reflect.DeepEqual(got, []int64{1, 2, 4, 5}) {
		t.Errorf("unexpected path %v", got)
	}
	if path.Depth != 3 || len(path.Edges) != 3 {
		t.Errorf("expected depth 3, got %d with %d edges", path.Depth, len(path.Edges))
	}

	_, found, err = e.ShortestPath(ctx, "던전", "상점", 2, 0.5)
	if err != nil || found {
		t.Errorf("expected not found within depth 2, got found=%v err=%v", found, err)
	}

	_, found, err = e.ShortestPath(ctx, "상점", "던전", 5, 0.5)
	if err != nil || found {
		t.Errorf("edges are directed; expected not found, got found=%v err=%v", found, err)
	}

	path, found, err = e.ShortestPath(ctx, "던전", "던전", 5, 0.5)
	if err != nil || !found || path.Depth != 0 || path.Confidence != 1 {
		t.Errorf("expected trivial path, got %+v found=%v err=%v", path, found, err)
	}

	if _, _, err := e.ShortestPath(ctx, "던전", "없음", 5, 0.5); !errors.Is(err, ErrTermNotFound) {
		t.Errorf("expected ErrTermNotFound, got %v", err)
	}
}
