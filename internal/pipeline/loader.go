package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ppiankov/ontograph/internal/extract"
	"github.com/ppiankov/ontograph/internal/logger"
	"github.com/ppiankov/ontograph/internal/match"
	"github.com/ppiankov/ontograph/internal/model"
	"github.com/ppiankov/ontograph/internal/store"
	"github.com/ppiankov/ontograph/internal/validate"
	"github.com/ppiankov/ontograph/internal/worker"
)

// Limiter resource names
const (
	resourceTerms     = "terms"
	resourceDocuments = "documents"
	resourceRules     = "rules"
)

// Sources is the read side of the store used to assemble a build
type Sources interface {
	store.TermSource
	store.DocumentSource
	store.RuleSource
}

// BuildContext is everything a build run reads. It is assembled once by
// Loader.Load and never mutated afterwards, so document workers share it
// without locking.
type BuildContext struct {
	Registry    *match.Registry
	Validator   *validate.Validator
	Specificity *validate.SpecificityClassifier
	Timestamps  map[int64]string
	Now         time.Time

	TermsRepaired  int // Raw relation text that needed JSON repair
	TermsUndecoded int // Raw relation text that could not be decoded
}

// Loader reads terms, rules and document timestamps into a BuildContext
type Loader struct {
	sources  Sources
	limiter  *worker.Limiter
	decoder  *extract.RelationDecoder
	pageSize int
	pool     match.PoolOptions
	floor    float64
	specific *model.SpecificityConfig
	now      func() time.Time
	log      *logger.Logger
}

// NewLoader creates a loader from config
func NewLoader(sources Sources, cfg *model.Config, limiter *worker.Limiter, log *logger.Logger) *Loader {
	if log == nil {
		log = logger.Nop()
	}
	pageSize := cfg.Store.PageSize
	if pageSize <= 0 {
		pageSize = 1000
	}
	return &Loader{
		sources:  sources,
		limiter:  limiter,
		decoder:  extract.NewRelationDecoder(cfg.Build.DefaultConfidence, extract.NewEvidenceCleaner(extract.DefaultEvidenceRunes)),
		pageSize: pageSize,
		pool: match.PoolOptions{
			MinFrequency:  cfg.Build.GlobalMinFrequency,
			MinConfidence: cfg.Build.GlobalMinConfidence,
		},
		floor:    cfg.Build.ConfidenceFloor,
		specific: &cfg.Specificity,
		now:      time.Now,
		log:      log,
	}
}

// Load assembles the immutable context for one run
func (l *Loader) Load(ctx context.Context) (*BuildContext, error) {
	if err := l.limiter.Wait(ctx, resourceRules); err != nil {
		return nil, err
	}
	rules, err := store.Retry(ctx, l.sources.ListRules)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	schema, err := validate.NewSchema(rules)
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}
	if schema.Len() == 0 {
		l.log.Warn("no ontology rules loaded; every relation will be rejected")
	}

	bc := &BuildContext{
		Validator:   validate.NewValidator(schema, l.floor),
		Specificity: validate.NewSpecificityClassifier(l.specific),
		Now:         l.now().UTC(),
	}

	terms, err := l.loadTerms(ctx, bc)
	if err != nil {
		return nil, err
	}
	bc.Registry = match.NewRegistry(terms, l.pool)

	if err := l.limiter.Wait(ctx, resourceDocuments); err != nil {
		return nil, err
	}
	docIDs := bc.Registry.DocumentIDs()
	bc.Timestamps, err = store.Retry(ctx, func(ctx context.Context) (map[int64]string, error) {
		return l.sources.DocumentTimestamps(ctx, docIDs)
	})
	if err != nil {
		return nil, fmt.Errorf("load document timestamps: %w", err)
	}

	l.log.Info("build context loaded",
		"terms", bc.Registry.Len(),
		"documents", len(docIDs),
		"global_pool", bc.Registry.GlobalPoolSize(),
		"rules", schema.Len(),
		"repaired", bc.TermsRepaired,
		"undecoded", bc.TermsUndecoded,
	)
	return bc, nil
}

func (l *Loader) loadTerms(ctx context.Context, bc *BuildContext) ([]model.Term, error) {
	var terms []model.Term
	for offset := 0; ; offset += l.pageSize {
		if err := l.limiter.Wait(ctx, resourceTerms); err != nil {
			return nil, err
		}
		page, err := store.Retry(ctx, func(ctx context.Context) ([]store.TermRow, error) {
			return l.sources.ListTerms(ctx, offset, l.pageSize)
		})
		if err != nil {
			return nil, fmt.Errorf("load terms at offset %d: %w", offset, err)
		}

		for _, row := range page {
			term := row.Term
			decoded, err := l.decoder.Decode(row.RawRelations)
			if err != nil {
				bc.TermsUndecoded++
				l.log.Warn("raw relations not decodable", "term_id", term.ID, "error", err)
			} else {
				term.RawRelations = decoded.Relations
				if decoded.Repaired {
					bc.TermsRepaired++
				}
			}
			terms = append(terms, term)
		}

		if len(page) < l.pageSize {
			return terms, nil
		}
	}
}
