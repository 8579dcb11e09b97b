package graph

import (
	"context"
	"reflect"
	"testing"

	"github.com/ppiankov/ontograph/internal/logger"
	"github.com/ppiankov/ontograph/internal/model"
	"github.com/ppiankov/ontograph/internal/store"
	"github.com/ppiankov/ontograph/internal/store/sqlite"
)

func countActions(log []model.TraversalStep, action model.StepAction) int {
	n := 0
	for _, s := range log {
		if s.Action == action {
			n++
		}
	}
	return n
}

func TestExtractSubgraph(t *testing.T) {
	e := newTestEngine(testGraph())

	sg, err := e.ExtractSubgraph(context.Background(), "보상상자", 1, nil, 0.5)
	if err != nil {
		t.Fatalf("ExtractSubgraph: %v", err)
	}
	if sg.Center.ID != 2 {
		t.Errorf("expected center 2, got %d", sg.Center.ID)
	}
	if got := nodeIDs(sg.Nodes); !reflect.DeepEqual(got, []int64{2, 4, 1}) {
		t.Errorf("expected nodes [2 4 1], got %v", got)
	}
	if len(sg.Edges) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(sg.Edges))
	}
	// Incoming edge keeps its stored direction
	if sg.Edges[1].SourceID != 1 || sg.Edges[1].TargetID != 2 {
		t.Errorf("expected 1->2, got %d->%d", sg.Edges[1].SourceID, sg.Edges[1].TargetID)
	}
	if countActions(sg.Log, model.StepDiscovered) != 2 || countActions(sg.Log, model.StepSkipRadius) != 2 {
		t.Errorf("unexpected log: %+v", sg.Log)
	}
}

func TestExtractSubgraph_RadiusZero(t *testing.T) {
	g := testGraph()
	e := newTestEngine(g)

	sg, err := e.ExtractSubgraph(context.Background(), "보상상자", 0, nil, 0)
	if err != nil {
		t.Fatalf("ExtractSubgraph: %v", err)
	}
	if got := nodeIDs(sg.Nodes); !reflect.DeepEqual(got, []int64{2}) {
		t.Errorf("expected center only, got %v", got)
	}
	if len(sg.Edges) != 0 {
		t.Errorf("expected no edges, got %d", len(sg.Edges))
	}
	if g.calls != 0 {
		t.Errorf("radius 0 must not fetch edges, got %d calls", g.calls)
	}
}

func TestExtractSubgraph_Filters(t *testing.T) {
	e := newTestEngine(testGraph())

	sg, err := e.ExtractSubgraph(context.Background(), "보상상자", 2, []string{"Produces"}, 0.5)
	if err != nil {
		t.Fatalf("ExtractSubgraph: %v", err)
	}
	if got := nodeIDs(sg.Nodes); !reflect.DeepEqual(got, []int64{2, 4}) {
		t.Errorf("expected [2 4], got %v", got)
	}
	if len(sg.Edges) != 1 {
		t.Errorf("expected the produces edge once, got %d", len(sg.Edges))
	}
	// triggers into 2 and consumes out of 4
	if n := countActions(sg.Log, model.StepSkipPredicate); n != 2 {
		t.Errorf("expected 2 predicate skips, got %d", n)
	}
	// produces 3->4 at 0.4
	if n := countActions(sg.Log, model.StepSkipConfidence); n != 1 {
		t.Errorf("expected 1 confidence skip, got %d", n)
	}
}

func TestExtractSubgraph_Monotonic(t *testing.T) {
	e := newTestEngine(testGraph())
	ctx := context.Background()

	prev := map[int64]bool{}
	for r := 0; r <= 4; r++ {
		sg, err := e.ExtractSubgraph(ctx, "골드", r, nil, 0)
		if err != nil {
			t.Fatalf("radius %d: %v", r, err)
		}
		cur := make(map[int64]bool)
		for _, n := range sg.Nodes {
			cur[n.ID] = true
		}
		for id := range prev {
			if !cur[id] {
				t.Errorf("node %d present at radius %d but not %d", id, r-1, r)
			}
		}
		for _, edge := range sg.Edges {
			if !cur[edge.SourceID] || !cur[edge.TargetID] {
				t.Errorf("radius %d: edge %d->%d leaves the node set", r, edge.SourceID, edge.TargetID)
			}
		}
		prev = cur
	}
}

func TestExtractEgoNetwork(t *testing.T) {
	e := newTestEngine(testGraph())
	ctx := context.Background()

	tests := []struct {
		name     string
		incoming bool
		outgoing bool
		want     []int64
	}{
		{"both", true, true, []int64{2, 4, 1}},
		{"outgoing", false, true, []int64{2, 4}},
		{"incoming", true, false, []int64{2, 1}},
		{"neither", false, false, []int64{2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sg, err := e.ExtractEgoNetwork(ctx, "보상상자", tt.incoming, tt.outgoing, 0.5)
			if err != nil {
				t.Fatalf("ExtractEgoNetwork: %v", err)
			}
			if got := nodeIDs(sg.Nodes); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
			if len(sg.Edges) != len(tt.want)-1 {
				t.Errorf("expected %d edges, got %d", len(tt.want)-1, len(sg.Edges))
			}
		})
	}
}

func TestExtractByPredicate(t *testing.T) {
	e := newTestEngine(testGraph())

	sg, err := e.ExtractByPredicate(context.Background(), "produces", 10)
	if err != nil {
		t.Fatalf("ExtractByPredicate: %v", err)
	}
	if len(sg.Edges) != 2 || sg.Edges[0].SourceID != 2 {
		t.Errorf("expected higher confidence edge first, got %+v", sg.Edges)
	}
	if got := nodeIDs(sg.Nodes); !reflect.DeepEqual(got, []int64{2, 3, 4}) {
		t.Errorf("expected [2 3 4], got %v", got)
	}

	sg, err = e.ExtractByPredicate(context.Background(), "produces", 1)
	if err != nil {
		t.Fatalf("ExtractByPredicate: %v", err)
	}
	if len(sg.Edges) != 1 {
		t.Errorf("expected limit to apply, got %d edges", len(sg.Edges))
	}
}

func TestEngine_SQLiteBackend(t *testing.T) {
	s, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	if _, err := s.ImportTerms(ctx, []store.TermRow{
		{Term: model.Term{ID: 1, DocumentID: 1, Text: "골드", Category: "resource"}},
		{Term: model.Term{ID: 2, DocumentID: 1, Text: "상점", Category: "system"}},
		{Term: model.Term{ID: 3, DocumentID: 2, Text: "골드", Category: "resource"}},
	}); err != nil {
		t.Fatalf("ImportTerms: %v", err)
	}
	if err := s.SaveRelation(ctx, model.Relation{
		SourceID: 2, Predicate: "sells", TargetID: 3, Confidence: 0.8,
		Evidence: []string{}, OccurrenceCount: 1, RelationType: model.RelationFlow, Weight: 2,
	}); err != nil {
		t.Fatalf("SaveRelation: %v", err)
	}

	e := NewEngine(s, 2, logger.Nop())
	ego, err := e.ExtractEgoNetwork(ctx, "골드", true, true, 0)
	if err != nil {
		t.Fatalf("ExtractEgoNetwork: %v", err)
	}
	if ego.Center.ID != 3 {
		t.Errorf("expected the connected 골드 (3), got %d", ego.Center.ID)
	}
	if got := nodeIDs(ego.Nodes); !reflect.DeepEqual(got, []int64{3, 2}) {
		t.Errorf("expected [3 2], got %v", got)
	}
}
