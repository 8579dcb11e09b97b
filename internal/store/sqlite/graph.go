package sqlite

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/ppiankov/ontograph/internal/model"
	"github.com/ppiankov/ontograph/internal/store"
)

// maxQueryArgs keeps IN lists under SQLite's variable limit
const maxQueryArgs = 500

// FindTerms returns every term whose text equals text (case-insensitive),
// terms with persisted edges first, then by id.
func (s *Store) FindTerms(ctx context.Context, text string) ([]store.TermHit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, term, category, degree FROM (
			SELECT t.id, t.term, t.category,
				(SELECT COUNT(*) FROM relations r
				 WHERE r.source_term_id = t.id OR r.target_term_id = t.id) AS degree
			FROM terms t
			WHERE t.term = ? COLLATE NOCASE
		)
		ORDER BY CASE WHEN degree > 0 THEN 0 ELSE 1 END, id`, strings.TrimSpace(text))
	if err != nil {
		return nil, store.Wrap("find terms", err)
	}
	defer func() { _ = rows.Close() }()

	var out []store.TermHit
	for rows.Next() {
		var h store.TermHit
		if err := rows.Scan(&h.Node.ID, &h.Node.Text, &h.Node.Category, &h.Degree); err != nil {
			return nil, store.Wrap("scan term", err)
		}
		out = append(out, h)
	}
	if err := checkRowsErr(rows); err != nil {
		return nil, store.Wrap("find terms", err)
	}
	return out, nil
}

// GetNodes loads terms by id; missing ids are absent from the result
func (s *Store) GetNodes(ctx context.Context, ids []int64) (map[int64]model.Node, error) {
	out := make(map[int64]model.Node, len(ids))

	for chunk := range slices.Chunk(ids, maxQueryArgs) {
		query := fmt.Sprintf("SELECT id, term, category FROM terms WHERE id IN (%s)", placeholders(len(chunk)))
		if err := s.collectNodes(ctx, query, int64Args(chunk), out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) collectNodes(ctx context.Context, query string, args []any, out map[int64]model.Node) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return store.Wrap("get nodes", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var n model.Node
		if err := rows.Scan(&n.ID, &n.Text, &n.Category); err != nil {
			return store.Wrap("scan node", err)
		}
		out[n.ID] = n
	}
	if err := checkRowsErr(rows); err != nil {
		return store.Wrap("get nodes", err)
	}
	return nil
}

// OutgoingEdges returns edges whose source is termID
func (s *Store) OutgoingEdges(ctx context.Context, termID int64) ([]model.Edge, error) {
	return s.queryEdges(ctx, "outgoing edges", `
		SELECT source_term_id, target_term_id, predicate, confidence, relation_type, weight
		FROM relations WHERE source_term_id = ?
		ORDER BY weight, confidence DESC, target_term_id`, termID)
}

// IncomingEdges returns edges whose target is termID
func (s *Store) IncomingEdges(ctx context.Context, termID int64) ([]model.Edge, error) {
	return s.queryEdges(ctx, "incoming edges", `
		SELECT source_term_id, target_term_id, predicate, confidence, relation_type, weight
		FROM relations WHERE target_term_id = ?
		ORDER BY weight, confidence DESC, source_term_id`, termID)
}

// EdgesByPredicate scans edges with the given predicate, lightest weight first
func (s *Store) EdgesByPredicate(ctx context.Context, predicate string, limit int) ([]model.Edge, error) {
	return s.queryEdges(ctx, "edges by predicate", `
		SELECT source_term_id, target_term_id, predicate, confidence, relation_type, weight
		FROM relations WHERE predicate = ?
		ORDER BY weight, confidence DESC, source_term_id, target_term_id
		LIMIT ?`, strings.ToLower(strings.TrimSpace(predicate)), limit)
}

func (s *Store) queryEdges(ctx context.Context, op, query string, args ...any) ([]model.Edge, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.Wrap(op, err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Edge
	for rows.Next() {
		var e model.Edge
		var relType string
		if err := rows.Scan(&e.SourceID, &e.TargetID, &e.Predicate, &e.Confidence, &relType, &e.Weight); err != nil {
			return nil, store.Wrap("scan edge", err)
		}
		e.RelationType = model.RelationType(relType)
		out = append(out, e)
	}
	if err := checkRowsErr(rows); err != nil {
		return nil, store.Wrap(op, err)
	}
	return out, nil
}
