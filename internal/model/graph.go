package model

// Node is a term as seen by the query side
type Node struct {
	ID       int64  `json:"id"`
	Text     string `json:"term"`
	Category string `json:"category"`
}

// Edge is a persisted relation as seen by the query side
type Edge struct {
	SourceID     int64        `json:"source_id"`
	TargetID     int64        `json:"target_id"`
	Predicate    string       `json:"predicate"`
	Confidence   float64      `json:"confidence"`
	RelationType RelationType `json:"relation_type"`
	Weight       int          `json:"weight"`
}

// Path is a chain of edges from a start node.
// Confidence is the product of the edge confidences.
type Path struct {
	Nodes      []Node  `json:"nodes"`
	Edges      []Edge  `json:"edges"`
	Depth      int     `json:"depth"`
	Confidence float64 `json:"confidence"`
}

// Impact maps hop distance to the term texts first discovered at that distance
type Impact map[int][]string

// StepAction classifies a traversal log entry
type StepAction string

const (
	StepDiscovered     StepAction = "discovered"
	StepSkipPredicate  StepAction = "skip_predicate"
	StepSkipConfidence StepAction = "skip_confidence"
	StepSkipRadius     StepAction = "skip_radius"
)

// TraversalStep is one decision taken while extracting a subgraph
type TraversalStep struct {
	Action     StepAction `json:"action"`
	FromID     int64      `json:"from_id"`
	ToID       int64      `json:"to_id"`
	Predicate  string     `json:"predicate,omitempty"`
	Depth      int        `json:"depth"`
	Confidence float64    `json:"confidence,omitempty"`
}

// Subgraph is the neighborhood of a center term
type Subgraph struct {
	Center Node            `json:"center"`
	Nodes  []Node          `json:"nodes"`
	Edges  []Edge          `json:"edges"`
	Log    []TraversalStep `json:"log,omitempty"`
}
