package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ppiankov/ontograph/internal/model"
)

var (
	// ErrStorage tags every failure that originates in the backing store
	ErrStorage = errors.New("storage error")
	// ErrNotFound is returned when a keyed lookup has no row
	ErrNotFound = errors.New("not found")
)

// Wrap tags err as a storage failure for op
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(ErrStorage, fmt.Errorf("%s: %w", op, err))
}

// TermRow is a term as stored. RawRelations holds the unparsed JSON text
// produced by the extraction step.
type TermRow struct {
	Term         model.Term
	RawRelations string
}

// TermHit is a lookup result carrying the term's persisted degree
type TermHit struct {
	Node   model.Node
	Degree int
}

// TermSource pages through stored terms ordered by id
type TermSource interface {
	ListTerms(ctx context.Context, offset, limit int) ([]TermRow, error)
}

// DocumentSource resolves document timestamps
type DocumentSource interface {
	DocumentTimestamps(ctx context.Context, ids []int64) (map[int64]string, error)
}

// RuleSource returns the ontology whitelist
type RuleSource interface {
	ListRules(ctx context.Context) ([]model.Rule, error)
}

// RelationStore is the edge table as seen by the merger.
// GetRelation returns ErrNotFound when the key is absent.
type RelationStore interface {
	GetRelation(ctx context.Context, key model.RelationKey) (model.Relation, error)
	SaveRelation(ctx context.Context, rel model.Relation) error
}

// GraphReader is the read side used by traversal and extraction.
// Edge lists carry every stored edge; callers apply confidence filters.
type GraphReader interface {
	FindTerms(ctx context.Context, text string) ([]TermHit, error)
	GetNodes(ctx context.Context, ids []int64) (map[int64]model.Node, error)
	OutgoingEdges(ctx context.Context, termID int64) ([]model.Edge, error)
	IncomingEdges(ctx context.Context, termID int64) ([]model.Edge, error)
	EdgesByPredicate(ctx context.Context, predicate string, limit int) ([]model.Edge, error)
}

// Importer loads upstream inputs
type Importer interface {
	ImportDocuments(ctx context.Context, docs []model.Document) (int, error)
	ImportTerms(ctx context.Context, rows []TermRow) (int, error)
	ImportRules(ctx context.Context, rules []model.Rule) (int, error)
}

// Exporter streams the committed graph for mirroring
type Exporter interface {
	ListRelations(ctx context.Context, offset, limit int) ([]model.Relation, error)
}

// Store is the full backend contract
type Store interface {
	TermSource
	DocumentSource
	RuleSource
	RelationStore
	GraphReader
	Importer
	Exporter
	Close() error
}
