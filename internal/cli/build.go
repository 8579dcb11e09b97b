package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/ontograph/internal/model"
	"github.com/ppiankov/ontograph/internal/pipeline"
)

var (
	buildDocIDs   []int64
	buildMaxDocs  int
	buildWorkers  int
	buildTimeout  time.Duration
	buildJSONPath string
)

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build or reinforce the knowledge graph from stored terms",
	Long: `Build resolves every stored raw relation into graph edges:
- Match targets against the term registry (local, then global)
- Check (source category, predicate, target category) against the ontology
- Drop relations whose source is a generic hub term
- Weight confidence by document recency
- Insert new edges or reinforce existing ones

Building twice over the same inputs reinforces instead of duplicating.

Example:
  ontograph build
  ontograph build --workers 8
  ontograph build --doc-ids 10,20 --json report.json`,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().Int64SliceVar(&buildDocIDs, "doc-ids", nil, "only build these documents")
	buildCmd.Flags().IntVar(&buildMaxDocs, "max-docs", 0, "stop after this many documents (0 = all)")
	buildCmd.Flags().IntVar(&buildWorkers, "workers", 0, "documents processed in parallel (default from config)")
	buildCmd.Flags().DurationVar(&buildTimeout, "timeout", 0, "overall build timeout (default from config)")
	buildCmd.Flags().StringVar(&buildJSONPath, "json", "", "also write the report as JSON to this path")
}

func runBuild(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if buildWorkers > 0 {
		a.cfg.Build.Workers = buildWorkers
	}
	if buildTimeout > 0 {
		a.cfg.Build.Timeout = buildTimeout
	}

	ctx := cmd.Context()
	if a.cfg.Build.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Build.Timeout)
		defer cancel()
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Ontograph Build\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Store:        %s\n", a.cfg.Store.Driver)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", a.cfg.Build.Workers)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", a.cfg.Build.Timeout)
	fmt.Fprintf(os.Stderr, "\n")

	p := pipeline.NewPipeline(a.store, a.cfg, a.log)
	report, buildErr := p.Build(ctx, pipeline.BuildOptions{
		DocumentIDs:  buildDocIDs,
		MaxDocuments: buildMaxDocs,
	})
	if report != nil {
		printBuildReport(report)
		if buildJSONPath != "" {
			if err := writeJSONFile(buildJSONPath, report); err != nil {
				return err
			}
		}
	}
	if buildErr != nil {
		return fmt.Errorf("build failed: %w", buildErr)
	}

	// Committed edges changed; cached query results are stale
	svc, closeCache, err := a.queryService()
	if err != nil {
		a.log.Warn("cache not invalidated", "error", err)
		return nil
	}
	defer closeCache()
	if err := svc.Invalidate(ctx); err != nil {
		a.log.Warn("cache not invalidated", "error", err)
	}
	return nil
}

func printBuildReport(r *model.BuildReport) {
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Build Summary (%s)\n", r.RunID)
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Documents:    %d total, %d processed, %d skipped, %d failed\n",
		r.DocumentsTotal, r.DocumentsProcessed, r.DocumentsSkipped, r.DocumentsFailed)
	fmt.Fprintf(os.Stderr, "  Relations:    %d raw, %d accepted, %d rejected\n",
		r.RawRelations, r.Accepted(), r.Rejected())
	fmt.Fprintf(os.Stderr, "  Edges:        %d inserted, %d reinforced\n", r.EdgesInserted, r.EdgesReinforced)
	fmt.Fprintf(os.Stderr, "  Duration:     %v\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))

	if len(r.Matches) > 0 {
		fmt.Fprintf(os.Stderr, "\n  Matches:\n")
		methods := make([]string, 0, len(r.Matches))
		for m := range r.Matches {
			methods = append(methods, string(m))
		}
		slices.Sort(methods)
		for _, m := range methods {
			fmt.Fprintf(os.Stderr, "    %-26s %d\n", m, r.Matches[model.MatchMethod(m)])
		}
	}

	if len(r.Rejections) > 0 {
		fmt.Fprintf(os.Stderr, "\n  Rejections:\n")
		reasons := make([]string, 0, len(r.Rejections))
		for reason := range r.Rejections {
			reasons = append(reasons, string(reason))
		}
		slices.Sort(reasons)
		for _, reason := range reasons {
			fmt.Fprintf(os.Stderr, "    %-26s %d\n", reason, r.Rejections[model.RejectReason(reason)])
		}
	}

	if len(r.Errors) > 0 {
		fmt.Fprintf(os.Stderr, "\n  Errors:\n")
		for _, e := range r.Errors {
			fmt.Fprintf(os.Stderr, "    ✗ doc %d: %s\n", e.DocumentID, e.Message)
		}
	}
	fmt.Fprintf(os.Stderr, "\n")
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(os.Stderr, "✓ Report written to %s\n", path)
	return nil
}
