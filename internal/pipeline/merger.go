package pipeline

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/ppiankov/ontograph/internal/model"
	"github.com/ppiankov/ontograph/internal/score"
	"github.com/ppiankov/ontograph/internal/store"
)

// MergeOutcome tells whether a merge created or reinforced an edge
type MergeOutcome int

const (
	MergeInserted MergeOutcome = iota + 1
	MergeReinforced
)

// Candidate is a validated relation ready to be merged
type Candidate struct {
	Key        model.RelationKey
	Confidence float64 // Recency-weighted
	Evidence   string
}

// keyLocks serializes work per relation key using a fixed set of stripes.
// Distinct keys may share a stripe; that only costs parallelism.
type keyLocks struct {
	stripes []sync.Mutex
}

func newKeyLocks(n int) *keyLocks {
	if n <= 0 {
		n = 64
	}
	return &keyLocks{stripes: make([]sync.Mutex, n)}
}

func (k *keyLocks) lock(key model.RelationKey) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key.String()))
	mu := &k.stripes[h.Sum32()%uint32(len(k.stripes))]
	mu.Lock()
	return mu.Unlock
}

// Merger upserts edges, reinforcing confidence on repeat observations.
// Within one process all merges of a key are serialized; separate
// processes writing the same store are not coordinated.
type Merger struct {
	relations     store.RelationStore
	locks         *keyLocks
	factor        float64
	evidenceLimit int
	now           func() time.Time
}

// NewMerger creates a merger from build config
func NewMerger(relations store.RelationStore, cfg model.BuildConfig) *Merger {
	factor := cfg.Reinforcement
	if factor <= 0 {
		factor = score.DefaultReinforcement
	}
	limit := cfg.EvidenceLimit
	if limit <= 0 {
		limit = score.DefaultEvidenceLimit
	}
	return &Merger{
		relations:     relations,
		locks:         newKeyLocks(cfg.LockStripes),
		factor:        factor,
		evidenceLimit: limit,
		now:           time.Now,
	}
}

// Merge inserts c as a new edge or reinforces the existing one
func (m *Merger) Merge(ctx context.Context, c Candidate) (MergeOutcome, error) {
	unlock := m.locks.lock(c.Key)
	defer unlock()

	existing, err := store.Retry(ctx, func(ctx context.Context) (model.Relation, error) {
		return m.relations.GetRelation(ctx, c.Key)
	})

	var (
		rel     model.Relation
		outcome MergeOutcome
	)
	switch {
	case errors.Is(err, store.ErrNotFound):
		rel = model.Relation{
			SourceID:        c.Key.SourceID,
			Predicate:       c.Key.Predicate,
			TargetID:        c.Key.TargetID,
			Confidence:      c.Confidence,
			Evidence:        score.AppendEvidence(nil, c.Evidence, m.evidenceLimit),
			OccurrenceCount: 1,
		}
		outcome = MergeInserted
	case err != nil:
		return 0, fmt.Errorf("get relation %s: %w", c.Key, err)
	default:
		rel = existing
		rel.Confidence = score.Reinforce(existing.Confidence, c.Confidence, m.factor)
		rel.Evidence = score.AppendEvidence(existing.Evidence, c.Evidence, m.evidenceLimit)
		rel.OccurrenceCount = existing.OccurrenceCount + 1
		outcome = MergeReinforced
	}

	rel.RelationType, rel.Weight = score.Classify(rel.Predicate)
	rel.LastVerifiedAt = m.now().UTC()

	if err := m.relations.SaveRelation(ctx, rel); err != nil {
		return 0, fmt.Errorf("save relation %s: %w", c.Key, err)
	}
	return outcome, nil
}
