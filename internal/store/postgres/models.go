package postgres

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/ppiankov/ontograph/internal/model"
)

type documentRow struct {
	ID          int64  `gorm:"column:id;primaryKey;autoIncrement:false"`
	Title       string `gorm:"column:title;not null;default:''"`
	LastUpdated string `gorm:"column:last_updated;not null;default:''"`
}

func (documentRow) TableName() string { return "documents" }

type termRow struct {
	ID           int64   `gorm:"column:id;primaryKey;autoIncrement:false"`
	DocumentID   int64   `gorm:"column:document_id;not null;index:idx_terms_document"`
	Term         string  `gorm:"column:term;not null;index:idx_terms_term"`
	Category     string  `gorm:"column:category;not null"`
	Definition   string  `gorm:"column:definition;not null;default:''"`
	Frequency    int     `gorm:"column:frequency;not null;default:1"`
	Confidence   float64 `gorm:"column:confidence;not null;default:0"`
	RawRelations string  `gorm:"column:raw_relations;type:text;not null;default:'[]'"`
}

func (termRow) TableName() string { return "terms" }

type ruleRow struct {
	ID              uint   `gorm:"column:id;primaryKey"`
	SubjectCategory string `gorm:"column:subject_category;not null;uniqueIndex:idx_rule_triple,priority:1"`
	Predicate       string `gorm:"column:predicate;not null;uniqueIndex:idx_rule_triple,priority:2"`
	ObjectCategory  string `gorm:"column:object_category;not null;uniqueIndex:idx_rule_triple,priority:3"`
	Description     string `gorm:"column:description;not null;default:''"`
}

func (ruleRow) TableName() string { return "ontology_rules" }

type relationRow struct {
	ID              uint64         `gorm:"column:id;primaryKey"`
	SourceTermID    int64          `gorm:"column:source_term_id;not null;uniqueIndex:idx_relation_key,priority:1;index:idx_relations_source"`
	Predicate       string         `gorm:"column:predicate;not null;uniqueIndex:idx_relation_key,priority:2;index:idx_relations_predicate"`
	TargetTermID    int64          `gorm:"column:target_term_id;not null;uniqueIndex:idx_relation_key,priority:3;index:idx_relations_target"`
	Confidence      float64        `gorm:"column:confidence;not null;check:confidence >= 0 AND confidence <= 1"`
	Evidence        datatypes.JSON `gorm:"column:evidence;type:jsonb;not null"`
	OccurrenceCount int            `gorm:"column:occurrence_count;not null;default:1;check:occurrence_count >= 1"`
	LastVerifiedAt  time.Time      `gorm:"column:last_verified_at;not null"`
	RelationType    string         `gorm:"column:relation_type;type:varchar(8);not null"`
	Weight          int            `gorm:"column:weight;not null;check:weight BETWEEN 1 AND 5"`
}

func (relationRow) TableName() string { return "relations" }

func fromRelation(r model.Relation) (relationRow, error) {
	evidence := r.Evidence
	if evidence == nil {
		evidence = []string{}
	}
	raw, err := json.Marshal(evidence)
	if err != nil {
		return relationRow{}, err
	}
	return relationRow{
		SourceTermID:    r.SourceID,
		Predicate:       r.Predicate,
		TargetTermID:    r.TargetID,
		Confidence:      r.Confidence,
		Evidence:        datatypes.JSON(raw),
		OccurrenceCount: r.OccurrenceCount,
		LastVerifiedAt:  r.LastVerifiedAt.UTC(),
		RelationType:    string(r.RelationType),
		Weight:          r.Weight,
	}, nil
}

func (row relationRow) toRelation() model.Relation {
	var evidence []string
	if err := json.Unmarshal(row.Evidence, &evidence); err != nil || evidence == nil {
		evidence = []string{}
	}
	return model.Relation{
		SourceID:        row.SourceTermID,
		Predicate:       row.Predicate,
		TargetID:        row.TargetTermID,
		Confidence:      row.Confidence,
		Evidence:        evidence,
		OccurrenceCount: row.OccurrenceCount,
		LastVerifiedAt:  row.LastVerifiedAt,
		RelationType:    model.RelationType(row.RelationType),
		Weight:          row.Weight,
	}
}

func (row relationRow) toEdge() model.Edge {
	return model.Edge{
		SourceID:     row.SourceTermID,
		TargetID:     row.TargetTermID,
		Predicate:    row.Predicate,
		Confidence:   row.Confidence,
		RelationType: model.RelationType(row.RelationType),
		Weight:       row.Weight,
	}
}
