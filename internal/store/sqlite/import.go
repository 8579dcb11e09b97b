package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ppiankov/ontograph/internal/model"
	"github.com/ppiankov/ontograph/internal/store"
)

// withTx runs fn in a transaction, rolling back on error
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.Wrap("begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return store.Wrap("commit", err)
	}
	return nil
}

// ImportDocuments upserts document metadata
func (s *Store) ImportDocuments(ctx context.Context, docs []model.Document) (int, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO documents (id, title, last_updated) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET title = excluded.title, last_updated = excluded.last_updated`)
		if err != nil {
			return store.Wrap("prepare documents", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, d := range docs {
			if _, err := stmt.ExecContext(ctx, d.ID, d.Title, d.LastUpdated); err != nil {
				return store.Wrap(fmt.Sprintf("insert document %d", d.ID), err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

// ImportTerms upserts term rows, keeping the raw relation text as given
func (s *Store) ImportTerms(ctx context.Context, rows []store.TermRow) (int, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO terms (id, document_id, term, category, definition, frequency, confidence, raw_relations)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				document_id = excluded.document_id,
				term = excluded.term,
				category = excluded.category,
				definition = excluded.definition,
				frequency = excluded.frequency,
				confidence = excluded.confidence,
				raw_relations = excluded.raw_relations`)
		if err != nil {
			return store.Wrap("prepare terms", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, r := range rows {
			raw := r.RawRelations
			if strings.TrimSpace(raw) == "" {
				raw = "[]"
			}
			t := r.Term
			if _, err := stmt.ExecContext(ctx, t.ID, t.DocumentID, t.Text, strings.ToLower(t.Category),
				t.Definition, t.Frequency, t.Confidence, raw); err != nil {
				return store.Wrap(fmt.Sprintf("insert term %d", t.ID), err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// ImportRules inserts rules, ignoring triples that already exist
func (s *Store) ImportRules(ctx context.Context, rules []model.Rule) (int, error) {
	inserted := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO ontology_rules (subject_category, predicate, object_category, description)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(subject_category, predicate, object_category) DO NOTHING`)
		if err != nil {
			return store.Wrap("prepare rules", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, r := range rules {
			res, err := stmt.ExecContext(ctx,
				strings.ToLower(strings.TrimSpace(r.SubjectCategory)),
				strings.ToLower(strings.TrimSpace(r.Predicate)),
				strings.ToLower(strings.TrimSpace(r.ObjectCategory)),
				r.Description)
			if err != nil {
				return store.Wrap("insert rule", err)
			}
			if n, err := res.RowsAffected(); err == nil {
				inserted += int(n)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}
