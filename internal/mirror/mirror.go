// Package mirror copies the committed graph into neo4j for exploration.
// The mirror is one-way; the relational store stays authoritative.
package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ppiankov/ontograph/internal/logger"
	"github.com/ppiankov/ontograph/internal/model"
	"github.com/ppiankov/ontograph/internal/store"
)

// Source is the store surface the mirror reads
type Source interface {
	store.Exporter
	GetNodes(ctx context.Context, ids []int64) (map[int64]model.Node, error)
}

// Batch is one write unit, already shaped as driver parameters
type Batch struct {
	Nodes []map[string]any
	Edges []map[string]any
}

// Writer persists batches to the mirror target
type Writer interface {
	WriteBatch(ctx context.Context, batch Batch) error
}

// Stats summarizes a sync run
type Stats struct {
	Nodes   int `json:"nodes"`
	Edges   int `json:"edges"`
	Batches int `json:"batches"`
}

// Mirror pages edges out of the store and writes them with their endpoints
type Mirror struct {
	src       Source
	w         Writer
	batchSize int
	now       func() time.Time
	log       *logger.Logger
}

// New creates a mirror
func New(src Source, w Writer, batchSize int, log *logger.Logger) *Mirror {
	if batchSize <= 0 {
		batchSize = 500
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Mirror{src: src, w: w, batchSize: batchSize, now: time.Now, log: log}
}

// Sync copies every edge and every term that has at least one edge
func (m *Mirror) Sync(ctx context.Context) (Stats, error) {
	var stats Stats
	sent := make(map[int64]bool)
	syncedAt := m.now().UTC().Format(time.RFC3339Nano)

	for offset := 0; ; offset += m.batchSize {
		rels, err := store.Retry(ctx, func(ctx context.Context) ([]model.Relation, error) {
			return m.src.ListRelations(ctx, offset, m.batchSize)
		})
		if err != nil {
			return stats, fmt.Errorf("list relations at %d: %w", offset, err)
		}
		if len(rels) == 0 {
			break
		}

		var ids []int64
		for _, r := range rels {
			for _, id := range []int64{r.SourceID, r.TargetID} {
				if !sent[id] {
					sent[id] = true
					ids = append(ids, id)
				}
			}
		}
		nodes, err := store.Retry(ctx, func(ctx context.Context) (map[int64]model.Node, error) {
			return m.src.GetNodes(ctx, ids)
		})
		if err != nil {
			return stats, fmt.Errorf("load nodes: %w", err)
		}

		batch := Batch{
			Nodes: make([]map[string]any, 0, len(ids)),
			Edges: make([]map[string]any, 0, len(rels)),
		}
		for _, id := range ids {
			n, ok := nodes[id]
			if !ok {
				n = model.Node{ID: id}
			}
			batch.Nodes = append(batch.Nodes, nodeRecord(n, syncedAt))
		}
		for _, r := range rels {
			batch.Edges = append(batch.Edges, edgeRecord(r, syncedAt))
		}

		if err := m.w.WriteBatch(ctx, batch); err != nil {
			return stats, err
		}
		stats.Nodes += len(batch.Nodes)
		stats.Edges += len(batch.Edges)
		stats.Batches++
		m.log.Debug("mirror batch written", "offset", offset, "nodes", len(batch.Nodes), "edges", len(batch.Edges))

		if len(rels) < m.batchSize {
			break
		}
	}

	m.log.Info("mirror sync finished", "nodes", stats.Nodes, "edges", stats.Edges, "batches", stats.Batches)
	return stats, nil
}

func nodeRecord(n model.Node, syncedAt string) map[string]any {
	return map[string]any{
		"id":        n.ID,
		"term":      n.Text,
		"category":  n.Category,
		"synced_at": syncedAt,
	}
}

func edgeRecord(r model.Relation, syncedAt string) map[string]any {
	evidence, err := json.Marshal(r.Evidence)
	if err != nil || r.Evidence == nil {
		evidence = []byte("[]")
	}
	return map[string]any{
		"source_id":        r.SourceID,
		"target_id":        r.TargetID,
		"predicate":        r.Predicate,
		"confidence":       r.Confidence,
		"evidence_json":    string(evidence),
		"occurrence_count": int64(r.OccurrenceCount),
		"relation_type":    string(r.RelationType),
		"weight":           int64(r.Weight),
		"last_verified_at": r.LastVerifiedAt.UTC().Format(time.RFC3339Nano),
		"synced_at":        syncedAt,
	}
}
