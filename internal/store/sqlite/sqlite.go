package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/ppiankov/ontograph/internal/model"
	"github.com/ppiankov/ontograph/internal/store"
	_ "modernc.org/sqlite"
)

// Store implements store.Store on a local SQLite database
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open opens (and migrates) the database at path. ":memory:" is supported.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Single writer; also keeps ":memory:" on one connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return s, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		last_updated TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS terms (
		id INTEGER PRIMARY KEY,
		document_id INTEGER NOT NULL,
		term TEXT NOT NULL,
		category TEXT NOT NULL,
		definition TEXT NOT NULL DEFAULT '',
		frequency INTEGER NOT NULL DEFAULT 1,
		confidence REAL NOT NULL DEFAULT 0,
		raw_relations TEXT NOT NULL DEFAULT '[]'  -- Unparsed extraction output
	);

	CREATE TABLE IF NOT EXISTS ontology_rules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		subject_category TEXT NOT NULL,
		predicate TEXT NOT NULL,
		object_category TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		UNIQUE(subject_category, predicate, object_category)
	);

	CREATE TABLE IF NOT EXISTS relations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_term_id INTEGER NOT NULL,
		predicate TEXT NOT NULL,
		target_term_id INTEGER NOT NULL,
		confidence REAL NOT NULL CHECK (confidence >= 0 AND confidence <= 1),
		evidence TEXT NOT NULL DEFAULT '[]',  -- JSON array, at most 3 entries
		occurrence_count INTEGER NOT NULL DEFAULT 1 CHECK (occurrence_count >= 1),
		last_verified_at TEXT NOT NULL,
		relation_type TEXT NOT NULL CHECK (relation_type IN ('CORE', 'FLOW')),
		weight INTEGER NOT NULL CHECK (weight BETWEEN 1 AND 5),
		FOREIGN KEY (source_term_id) REFERENCES terms(id) ON DELETE CASCADE,
		FOREIGN KEY (target_term_id) REFERENCES terms(id) ON DELETE CASCADE,
		UNIQUE(source_term_id, predicate, target_term_id)
	);

	CREATE INDEX IF NOT EXISTS idx_terms_document ON terms(document_id);
	CREATE INDEX IF NOT EXISTS idx_terms_term ON terms(term COLLATE NOCASE);
	CREATE INDEX IF NOT EXISTS idx_relations_source ON relations(source_term_id);
	CREATE INDEX IF NOT EXISTS idx_relations_target ON relations(target_term_id);
	CREATE INDEX IF NOT EXISTS idx_relations_predicate ON relations(predicate);
	`
	_, err := s.db.Exec(schema)
	return err
}

// checkRowsErr surfaces errors that ended iteration early
func checkRowsErr(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate rows: %w", err)
	}
	return nil
}

// ListTerms pages through terms ordered by id
func (s *Store) ListTerms(ctx context.Context, offset, limit int) ([]store.TermRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, term, category, definition, frequency, confidence, raw_relations
		FROM terms ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, store.Wrap("list terms", err)
	}
	defer func() { _ = rows.Close() }()

	var out []store.TermRow
	for rows.Next() {
		var r store.TermRow
		if err := rows.Scan(&r.Term.ID, &r.Term.DocumentID, &r.Term.Text, &r.Term.Category,
			&r.Term.Definition, &r.Term.Frequency, &r.Term.Confidence, &r.RawRelations); err != nil {
			return nil, store.Wrap("scan term", err)
		}
		out = append(out, r)
	}
	if err := checkRowsErr(rows); err != nil {
		return nil, store.Wrap("list terms", err)
	}
	return out, nil
}

// DocumentTimestamps returns last_updated for the given documents.
// Unknown ids are absent from the result.
func (s *Store) DocumentTimestamps(ctx context.Context, ids []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	for chunk := range slices.Chunk(ids, maxQueryArgs) {
		if err := s.collectTimestamps(ctx, chunk, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) collectTimestamps(ctx context.Context, ids []int64, out map[int64]string) error {
	query := fmt.Sprintf("SELECT id, last_updated FROM documents WHERE id IN (%s)", placeholders(len(ids)))
	rows, err := s.db.QueryContext(ctx, query, int64Args(ids)...)
	if err != nil {
		return store.Wrap("document timestamps", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id int64
		var ts string
		if err := rows.Scan(&id, &ts); err != nil {
			return store.Wrap("scan document", err)
		}
		out[id] = ts
	}
	if err := checkRowsErr(rows); err != nil {
		return store.Wrap("document timestamps", err)
	}
	return nil
}

// ListRules returns every ontology rule
func (s *Store) ListRules(ctx context.Context) ([]model.Rule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT subject_category, predicate, object_category, description
		FROM ontology_rules ORDER BY id`)
	if err != nil {
		return nil, store.Wrap("list rules", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Rule
	for rows.Next() {
		var r model.Rule
		if err := rows.Scan(&r.SubjectCategory, &r.Predicate, &r.ObjectCategory, &r.Description); err != nil {
			return nil, store.Wrap("scan rule", err)
		}
		out = append(out, r)
	}
	if err := checkRowsErr(rows); err != nil {
		return nil, store.Wrap("list rules", err)
	}
	return out, nil
}

const relationColumns = `source_term_id, predicate, target_term_id, confidence, evidence,
	occurrence_count, last_verified_at, relation_type, weight`

type scanner interface {
	Scan(dest ...any) error
}

func scanRelation(sc scanner) (model.Relation, error) {
	var (
		r        model.Relation
		evidence string
		verified string
		relType  string
	)
	if err := sc.Scan(&r.SourceID, &r.Predicate, &r.TargetID, &r.Confidence, &evidence,
		&r.OccurrenceCount, &verified, &relType, &r.Weight); err != nil {
		return r, err
	}
	if err := json.Unmarshal([]byte(evidence), &r.Evidence); err != nil {
		r.Evidence = []string{evidence}
	}
	if r.Evidence == nil {
		r.Evidence = []string{}
	}
	r.LastVerifiedAt, _ = time.Parse(time.RFC3339Nano, verified)
	r.RelationType = model.RelationType(relType)
	return r, nil
}

// GetRelation loads one edge by key
func (s *Store) GetRelation(ctx context.Context, key model.RelationKey) (model.Relation, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+relationColumns+`
		FROM relations WHERE source_term_id = ? AND predicate = ? AND target_term_id = ?`,
		key.SourceID, key.Predicate, key.TargetID)

	r, err := scanRelation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Relation{}, store.ErrNotFound
	}
	if err != nil {
		return model.Relation{}, store.Wrap("get relation", err)
	}
	return r, nil
}

// SaveRelation inserts or overwrites the edge identified by rel.Key()
func (s *Store) SaveRelation(ctx context.Context, rel model.Relation) error {
	evidence, err := json.Marshal(nonNil(rel.Evidence))
	if err != nil {
		return fmt.Errorf("marshal evidence: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO relations (`+relationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_term_id, predicate, target_term_id) DO UPDATE SET
			confidence = excluded.confidence,
			evidence = excluded.evidence,
			occurrence_count = excluded.occurrence_count,
			last_verified_at = excluded.last_verified_at,
			relation_type = excluded.relation_type,
			weight = excluded.weight`,
		rel.SourceID, rel.Predicate, rel.TargetID, rel.Confidence, string(evidence),
		rel.OccurrenceCount, rel.LastVerifiedAt.UTC().Format(time.RFC3339Nano),
		string(rel.RelationType), rel.Weight)
	if err != nil {
		return store.Wrap("save relation", err)
	}
	return nil
}

// ListRelations pages through all edges
func (s *Store) ListRelations(ctx context.Context, offset, limit int) ([]model.Relation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+relationColumns+`
		FROM relations ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, store.Wrap("list relations", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Relation
	for rows.Next() {
		r, err := scanRelation(rows)
		if err != nil {
			return nil, store.Wrap("scan relation", err)
		}
		out = append(out, r)
	}
	if err := checkRowsErr(rows); err != nil {
		return nil, store.Wrap("list relations", err)
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
