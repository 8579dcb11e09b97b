package worker

import (
	"context"
	"sort"

	"github.com/ppiankov/ontograph/internal/model"
)

// DocumentProcessor builds the edges of a single document
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, docID int64) (*model.DocumentStats, error)
}

// DocumentResult is the outcome of one document build
type DocumentResult struct {
	DocumentID int64
	Stats      *model.DocumentStats
	Error      error
}

func documentJob(p DocumentProcessor, docID int64) JobFunc[*DocumentResult] {
	return func(ctx context.Context) *DocumentResult {
		if err := ctx.Err(); err != nil {
			return &DocumentResult{DocumentID: docID, Error: err}
		}
		stats, err := p.ProcessDocument(ctx, docID)
		return &DocumentResult{DocumentID: docID, Stats: stats, Error: err}
	}
}

// BatchProcessor processes many documents concurrently
type BatchProcessor struct {
	processor   DocumentProcessor
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(processor DocumentProcessor, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		processor:   processor,
		concurrency: concurrency,
	}
}

// ProcessDocuments runs every document through the pool. Results come back
// ordered by document id. Documents never started because ctx was cancelled
// are reported with ctx's error.
func (b *BatchProcessor) ProcessDocuments(ctx context.Context, docIDs []int64) []*DocumentResult {
	if len(docIDs) == 0 {
		return []*DocumentResult{}
	}

	pool := NewPool[*DocumentResult](ctx, b.concurrency)
	pool.Start()

	for _, id := range docIDs {
		if !pool.Submit(documentJob(b.processor, id)) {
			break
		}
	}

	out := pool.Wait()
	seen := make(map[int64]bool, len(out))
	for _, r := range out {
		seen[r.DocumentID] = true
	}

	for _, id := range docIDs {
		if seen[id] {
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		out = append(out, &DocumentResult{DocumentID: id, Error: err})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].DocumentID < out[j].DocumentID })
	return out
}
