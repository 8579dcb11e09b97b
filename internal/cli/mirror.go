package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/ontograph/internal/mirror"
)

var mirrorBatchSize int

// mirrorCmd represents the mirror command
var mirrorCmd = &cobra.Command{
	Use:   "mirror",
	Short: "Copy the committed graph into neo4j",
	Long: `Mirror upserts every committed edge and its endpoint terms into neo4j
as (:Term)-[:RELATES {predicate}]->(:Term). The relational store stays the
source of truth; the mirror is for exploration only.

Connection settings come from the mirror section of the config, or
ONTOGRAPH_MIRROR_URI, ONTOGRAPH_MIRROR_USERNAME and ONTOGRAPH_MIRROR_PASSWORD.

Example:
  ontograph mirror
  ontograph mirror --batch-size 1000`,
	RunE: runMirror,
}

func init() {
	rootCmd.AddCommand(mirrorCmd)

	mirrorCmd.Flags().IntVar(&mirrorBatchSize, "batch-size", 0, "edges per write transaction (default from config)")
}

func runMirror(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if mirrorBatchSize > 0 {
		a.cfg.Mirror.BatchSize = mirrorBatchSize
	}

	ctx := cmd.Context()
	w, err := mirror.Connect(ctx, a.cfg.Mirror, a.log)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close(context.Background()) }()
	w.EnsureSchema(ctx)

	stats, err := mirror.New(a.store, w, a.cfg.Mirror.BatchSize, a.log).Sync(ctx)
	if err != nil {
		return fmt.Errorf("mirror failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "✓ Mirrored %d terms and %d edges in %d batches\n", stats.Nodes, stats.Edges, stats.Batches)
	return nil
}
