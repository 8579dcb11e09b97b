package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"

	"github.com/ppiankov/ontograph/internal/logger"
	"github.com/ppiankov/ontograph/internal/model"
	"github.com/ppiankov/ontograph/internal/store"
)

// maxQueryArgs keeps IN lists well under the 65535 bind parameter limit
const maxQueryArgs = 10000

// Store implements store.Store on Postgres through gorm
type Store struct {
	db  *gorm.DB
	log *logger.Logger
}

var _ store.Store = (*Store)(nil)

// Open connects to dsn and migrates the schema
func Open(dsn string, logg *logger.Logger) (*Store, error) {
	gormLog := gormLogger.New(
		log.New(os.Stderr, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	if err := db.AutoMigrate(&documentRow{}, &termRow{}, &ruleRow{}, &relationRow{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &Store{db: db, log: logg.With("store", "postgres")}, nil
}

// Close releases the underlying connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) ListTerms(ctx context.Context, offset, limit int) ([]store.TermRow, error) {
	var rows []termRow
	if err := s.db.WithContext(ctx).Order("id ASC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, store.Wrap("list terms", err)
	}
	out := make([]store.TermRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, store.TermRow{
			Term: model.Term{
				ID: r.ID, DocumentID: r.DocumentID, Text: r.Term, Category: r.Category,
				Definition: r.Definition, Frequency: r.Frequency, Confidence: r.Confidence,
			},
			RawRelations: r.RawRelations,
		})
	}
	return out, nil
}

func (s *Store) DocumentTimestamps(ctx context.Context, ids []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	for chunk := range slices.Chunk(ids, maxQueryArgs) {
		var rows []documentRow
		if err := s.db.WithContext(ctx).Where("id IN ?", chunk).Find(&rows).Error; err != nil {
			return nil, store.Wrap("document timestamps", err)
		}
		for _, r := range rows {
			out[r.ID] = r.LastUpdated
		}
	}
	return out, nil
}

func (s *Store) ListRules(ctx context.Context) ([]model.Rule, error) {
	var rows []ruleRow
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, store.Wrap("list rules", err)
	}
	out := make([]model.Rule, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Rule{
			SubjectCategory: r.SubjectCategory,
			Predicate:       r.Predicate,
			ObjectCategory:  r.ObjectCategory,
			Description:     r.Description,
		})
	}
	return out, nil
}

func (s *Store) GetRelation(ctx context.Context, key model.RelationKey) (model.Relation, error) {
	var row relationRow
	err := s.db.WithContext(ctx).
		Where("source_term_id = ? AND predicate = ? AND target_term_id = ?", key.SourceID, key.Predicate, key.TargetID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Relation{}, store.ErrNotFound
	}
	if err != nil {
		return model.Relation{}, store.Wrap("get relation", err)
	}
	return row.toRelation(), nil
}

func (s *Store) SaveRelation(ctx context.Context, rel model.Relation) error {
	row, err := fromRelation(rel)
	if err != nil {
		return fmt.Errorf("marshal evidence: %w", err)
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "source_term_id"}, {Name: "predicate"}, {Name: "target_term_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"confidence", "evidence", "occurrence_count", "last_verified_at", "relation_type", "weight",
			}),
		}).
		Create(&row).Error
	if err != nil {
		return store.Wrap("save relation", err)
	}
	return nil
}

func (s *Store) ListRelations(ctx context.Context, offset, limit int) ([]model.Relation, error) {
	var rows []relationRow
	if err := s.db.WithContext(ctx).Order("id ASC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, store.Wrap("list relations", err)
	}
	out := make([]model.Relation, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toRelation())
	}
	return out, nil
}

func (s *Store) FindTerms(ctx context.Context, text string) ([]store.TermHit, error) {
	var rows []struct {
		ID       int64
		Term     string
		Category string
		Degree   int
	}
	err := s.db.WithContext(ctx).Raw(`
		SELECT id, term, category, degree FROM (
			SELECT t.id, t.term, t.category,
				(SELECT COUNT(*) FROM relations r
				 WHERE r.source_term_id = t.id OR r.target_term_id = t.id) AS degree
			FROM terms t
			WHERE LOWER(t.term) = LOWER(?)
		) hits
		ORDER BY CASE WHEN degree > 0 THEN 0 ELSE 1 END, id`, strings.TrimSpace(text)).
		Scan(&rows).Error
	if err != nil {
		return nil, store.Wrap("find terms", err)
	}
	out := make([]store.TermHit, 0, len(rows))
	for _, r := range rows {
		out = append(out, store.TermHit{
			Node:   model.Node{ID: r.ID, Text: r.Term, Category: r.Category},
			Degree: r.Degree,
		})
	}
	return out, nil
}

func (s *Store) GetNodes(ctx context.Context, ids []int64) (map[int64]model.Node, error) {
	out := make(map[int64]model.Node, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	for chunk := range slices.Chunk(ids, maxQueryArgs) {
		var rows []termRow
		if err := s.db.WithContext(ctx).Select("id", "term", "category").Where("id IN ?", chunk).Find(&rows).Error; err != nil {
			return nil, store.Wrap("get nodes", err)
		}
		for _, r := range rows {
			out[r.ID] = model.Node{ID: r.ID, Text: r.Term, Category: r.Category}
		}
	}
	return out, nil
}

func (s *Store) OutgoingEdges(ctx context.Context, termID int64) ([]model.Edge, error) {
	return s.findEdges("outgoing edges",
		s.db.WithContext(ctx).Where("source_term_id = ?", termID).
			Order("weight ASC, confidence DESC, target_term_id ASC"))
}

func (s *Store) IncomingEdges(ctx context.Context, termID int64) ([]model.Edge, error) {
	return s.findEdges("incoming edges",
		s.db.WithContext(ctx).Where("target_term_id = ?", termID).
			Order("weight ASC, confidence DESC, source_term_id ASC"))
}

func (s *Store) EdgesByPredicate(ctx context.Context, predicate string, limit int) ([]model.Edge, error) {
	return s.findEdges("edges by predicate",
		s.db.WithContext(ctx).Where("predicate = ?", strings.ToLower(strings.TrimSpace(predicate))).
			Order("weight ASC, confidence DESC, source_term_id ASC, target_term_id ASC").
			Limit(limit))
}

func (s *Store) findEdges(op string, q *gorm.DB) ([]model.Edge, error) {
	var rows []relationRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, store.Wrap(op, err)
	}
	out := make([]model.Edge, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toEdge())
	}
	return out, nil
}

func (s *Store) ImportDocuments(ctx context.Context, docs []model.Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	rows := make([]documentRow, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, documentRow{ID: d.ID, Title: d.Title, LastUpdated: d.LastUpdated})
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "last_updated"}),
		}).
		CreateInBatches(&rows, 500)
	if res.Error != nil {
		return 0, store.Wrap("import documents", res.Error)
	}
	return len(rows), nil
}

func (s *Store) ImportTerms(ctx context.Context, in []store.TermRow) (int, error) {
	if len(in) == 0 {
		return 0, nil
	}
	rows := make([]termRow, 0, len(in))
	for _, r := range in {
		raw := r.RawRelations
		if strings.TrimSpace(raw) == "" {
			raw = "[]"
		}
		rows = append(rows, termRow{
			ID: r.Term.ID, DocumentID: r.Term.DocumentID, Term: r.Term.Text,
			Category: strings.ToLower(r.Term.Category), Definition: r.Term.Definition,
			Frequency: r.Term.Frequency, Confidence: r.Term.Confidence, RawRelations: raw,
		})
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"document_id", "term", "category", "definition", "frequency", "confidence", "raw_relations",
			}),
		}).
		CreateInBatches(&rows, 500)
	if res.Error != nil {
		return 0, store.Wrap("import terms", res.Error)
	}
	return len(rows), nil
}

func (s *Store) ImportRules(ctx context.Context, rules []model.Rule) (int, error) {
	if len(rules) == 0 {
		return 0, nil
	}
	rows := make([]ruleRow, 0, len(rules))
	for _, r := range rules {
		rows = append(rows, ruleRow{
			SubjectCategory: strings.ToLower(strings.TrimSpace(r.SubjectCategory)),
			Predicate:       strings.ToLower(strings.TrimSpace(r.Predicate)),
			ObjectCategory:  strings.ToLower(strings.TrimSpace(r.ObjectCategory)),
			Description:     r.Description,
		})
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "subject_category"}, {Name: "predicate"}, {Name: "object_category"}},
			DoNothing: true,
		}).
		Create(&rows)
	if res.Error != nil {
		return 0, store.Wrap("import rules", res.Error)
	}
	s.log.Debug("imported rules", "requested", len(rules), "inserted", res.RowsAffected)
	return int(res.RowsAffected), nil
}
