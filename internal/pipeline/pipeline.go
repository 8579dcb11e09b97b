package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ppiankov/ontograph/internal/logger"
	"github.com/ppiankov/ontograph/internal/match"
	"github.com/ppiankov/ontograph/internal/model"
	"github.com/ppiankov/ontograph/internal/score"
	"github.com/ppiankov/ontograph/internal/store"
	"github.com/ppiankov/ontograph/internal/worker"
)

var tracer = otel.Tracer("github.com/ppiankov/ontograph/internal/pipeline")

// BuildStore is the store surface a build needs
type BuildStore interface {
	Sources
	store.RelationStore
}

// BuildOptions narrows a run
type BuildOptions struct {
	DocumentIDs  []int64 // Only these documents (all when empty)
	MaxDocuments int     // Stop after this many documents (0 = no limit)
}

// Pipeline turns stored terms and raw relations into merged edges
type Pipeline struct {
	loader  *Loader
	merger  *Merger
	workers int
	log     *logger.Logger
}

// NewPipeline wires a pipeline over st using cfg
func NewPipeline(st BuildStore, cfg *model.Config, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	limiter := worker.NewLimiter(cfg.Store.ReadsPerSecond, cfg.Store.ReadBurst)
	return &Pipeline{
		loader:  NewLoader(st, cfg, limiter, log),
		merger:  NewMerger(st, cfg.Build),
		workers: cfg.Build.Workers,
		log:     log,
	}
}

// Build runs one full pass. Per-document and per-edge failures are recorded
// in the report; only failing to assemble the build context is fatal.
func (p *Pipeline) Build(ctx context.Context, opts BuildOptions) (*model.BuildReport, error) {
	report := model.NewBuildReport(uuid.NewString())
	ctx, span := tracer.Start(ctx, "pipeline.Build")
	defer span.End()
	span.SetAttributes(attribute.String("run_id", report.RunID))

	log := p.log.With("run_id", report.RunID)

	bc, err := p.loader.Load(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("load build context: %w", err)
	}

	docIDs := selectDocuments(bc.Registry.DocumentIDs(), opts)
	report.DocumentsTotal = len(docIDs)
	log.Info("build started", "documents", len(docIDs), "workers", p.workers)

	builder := &documentBuilder{bc: bc, merger: p.merger, log: log}
	results := worker.NewBatchProcessor(builder, p.workers).ProcessDocuments(ctx, docIDs)

	for _, r := range results {
		if r.Error != nil {
			log.Warn("document failed", "document_id", r.DocumentID, "error", r.Error)
		}
		report.Add(r.DocumentID, r.Stats, r.Error)
	}
	report.FinishedAt = time.Now().UTC()

	span.SetAttributes(
		attribute.Int("documents", report.DocumentsTotal),
		attribute.Int("edges_inserted", report.EdgesInserted),
		attribute.Int("edges_reinforced", report.EdgesReinforced),
	)
	log.Info("build finished",
		"processed", report.DocumentsProcessed,
		"skipped", report.DocumentsSkipped,
		"failed", report.DocumentsFailed,
		"inserted", report.EdgesInserted,
		"reinforced", report.EdgesReinforced,
		"rejected", report.Rejected(),
		"duration", report.FinishedAt.Sub(report.StartedAt).String(),
	)

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("build interrupted: %w", err)
	}
	return report, nil
}

func selectDocuments(all []int64, opts BuildOptions) []int64 {
	selected := all
	if len(opts.DocumentIDs) > 0 {
		want := make(map[int64]bool, len(opts.DocumentIDs))
		for _, id := range opts.DocumentIDs {
			want[id] = true
		}
		selected = make([]int64, 0, len(opts.DocumentIDs))
		for _, id := range all {
			if want[id] {
				selected = append(selected, id)
			}
		}
	}
	if opts.MaxDocuments > 0 && len(selected) > opts.MaxDocuments {
		selected = selected[:opts.MaxDocuments]
	}
	return selected
}

// documentBuilder processes documents against a shared BuildContext
type documentBuilder struct {
	bc     *BuildContext
	merger *Merger
	log    *logger.Logger
}

// ProcessDocument validates and merges every raw relation of one document
func (d *documentBuilder) ProcessDocument(ctx context.Context, docID int64) (*model.DocumentStats, error) {
	ctx, span := tracer.Start(ctx, "pipeline.ProcessDocument")
	defer span.End()
	span.SetAttributes(attribute.Int64("document_id", docID))

	stats := model.NewDocumentStats(docID)
	terms := d.bc.Registry.TermsForDocument(docID)
	if len(terms) < 2 {
		stats.Skipped = true
		return stats, nil
	}

	weight := score.RecencyWeight(d.bc.Timestamps[docID], d.bc.Now)

	for _, source := range terms {
		for _, raw := range source.RawRelations {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			stats.RawRelations++
			d.processRelation(ctx, stats, docID, source, raw, weight)
		}
	}

	span.SetAttributes(
		attribute.Int("inserted", stats.Inserted),
		attribute.Int("reinforced", stats.Reinforced),
	)
	return stats, nil
}

func (d *documentBuilder) processRelation(ctx context.Context, stats *model.DocumentStats, docID int64, source model.Term, raw model.RawRelation, weight float64) {
	predicate := strings.ToLower(strings.TrimSpace(raw.Type))
	if strings.TrimSpace(raw.Target) == "" || predicate == "" {
		stats.Reject(model.RejectMissingData)
		return
	}

	m, ok := d.bc.Registry.ResolveFrom(source, raw.Target)
	if !ok {
		stats.Matches[model.MatchNone]++
		stats.Reject(model.RejectUnmatchedTarget)
		d.log.Debug("target unmatched",
			"document_id", docID,
			"source", source.Text,
			"target", raw.Target,
			"normalized", match.Normalize(raw.Target),
		)
		return
	}
	stats.Matches[m.Method]++
	target := m.Term

	if target.ID == source.ID {
		stats.Reject(model.RejectSelfReference)
		return
	}

	if ok, reason := d.bc.Validator.Validate(source, predicate, target, raw.Confidence); !ok {
		stats.Reject(reason)
		return
	}

	if d.bc.Specificity.ShouldFilter(source.Text, target.Text) {
		stats.Reject(model.RejectAbstractSource)
		return
	}

	candidate := Candidate{
		Key:        model.RelationKey{SourceID: source.ID, Predicate: predicate, TargetID: target.ID},
		Confidence: score.WeightedConfidence(raw.Confidence, weight),
		Evidence:   raw.Evidence,
	}
	outcome, err := d.merger.Merge(ctx, candidate)
	if err != nil {
		stats.Reject(model.RejectStorageError)
		stats.Errors = append(stats.Errors, err.Error())
		d.log.Error("edge merge failed", "document_id", docID, "key", candidate.Key.String(), "error", err)
		return
	}

	switch outcome {
	case MergeInserted:
		stats.Inserted++
	case MergeReinforced:
		stats.Reinforced++
	}
}
