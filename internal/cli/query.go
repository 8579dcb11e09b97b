package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/ontograph/internal/query"
)

var (
	qMaxDepth      int
	qMinConfidence float64
	qLimit         int
	qCategory      string
	qRadius        int
	qPredicates    []string
	qIncoming      bool
	qOutgoing      bool
)

// queryCmd groups the read-only graph queries. Every subcommand prints JSON.
var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the committed knowledge graph",
	Long: `Query the committed graph. Results are printed as JSON on stdout.

Example:
  ontograph query bfs 던전 --category resource --max-depth 3
  ontograph query impact 던전
  ontograph query path 던전 골드
  ontograph query subgraph 던전 --radius 2 --predicate triggers
  ontograph query ego 던전 --incoming=false
  ontograph query predicate requires --limit 50
  ontograph query terms 보상`,
}

var queryTermsCmd = &cobra.Command{
	Use:     "terms <text>",
	Aliases: []string{"term"},
	Short:   "List every term with the given text",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd, func(ctx context.Context, svc *query.Service) (any, error) {
			return svc.Terms(ctx, query.TermsRequest{Text: args[0]})
		})
	},
}

var queryBFSCmd = &cobra.Command{
	Use:   "bfs <start>",
	Short: "Breadth-first search along outgoing edges",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := query.BFSRequest{
			Start:          args[0],
			TargetCategory: qCategory,
			MaxDepth:       intFlag(cmd, "max-depth", qMaxDepth),
			MinConfidence:  floatFlag(cmd, "min-confidence", qMinConfidence),
			Limit:          intFlag(cmd, "limit", qLimit),
		}
		return runQuery(cmd, func(ctx context.Context, svc *query.Service) (any, error) {
			return svc.BFS(ctx, req)
		})
	},
}

var queryImpactCmd = &cobra.Command{
	Use:   "impact <term>",
	Short: "Group downstream terms by the depth they are first reached at",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := query.ImpactRequest{
			Term:          args[0],
			MaxDepth:      intFlag(cmd, "max-depth", qMaxDepth),
			MinConfidence: floatFlag(cmd, "min-confidence", qMinConfidence),
		}
		return runQuery(cmd, func(ctx context.Context, svc *query.Service) (any, error) {
			return svc.Impact(ctx, req)
		})
	},
}

var queryPathCmd = &cobra.Command{
	Use:   "path <start> <end>",
	Short: "Shortest directed chain between two terms",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := query.PathRequest{
			Start:         args[0],
			End:           args[1],
			MaxDepth:      intFlag(cmd, "max-depth", qMaxDepth),
			MinConfidence: floatFlag(cmd, "min-confidence", qMinConfidence),
		}
		return runQuery(cmd, func(ctx context.Context, svc *query.Service) (any, error) {
			return svc.Path(ctx, req)
		})
	},
}

var querySubgraphCmd = &cobra.Command{
	Use:   "subgraph <center>",
	Short: "Extract the neighborhood within a radius, ignoring direction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := query.SubgraphRequest{
			Center:        args[0],
			Radius:        intFlag(cmd, "radius", qRadius),
			Predicates:    qPredicates,
			MinConfidence: floatFlag(cmd, "min-confidence", qMinConfidence),
		}
		return runQuery(cmd, func(ctx context.Context, svc *query.Service) (any, error) {
			return svc.Subgraph(ctx, req)
		})
	},
}

var queryEgoCmd = &cobra.Command{
	Use:   "ego <term>",
	Short: "Extract a term and its direct neighbors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := query.EgoRequest{
			Term:          args[0],
			Incoming:      &qIncoming,
			Outgoing:      &qOutgoing,
			MinConfidence: floatFlag(cmd, "min-confidence", qMinConfidence),
		}
		return runQuery(cmd, func(ctx context.Context, svc *query.Service) (any, error) {
			return svc.Ego(ctx, req)
		})
	},
}

var queryPredicateCmd = &cobra.Command{
	Use:   "predicate <name>",
	Short: "List edges of one predicate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := query.PredicateRequest{
			Predicate: args[0],
			Limit:     intFlag(cmd, "limit", qLimit),
		}
		return runQuery(cmd, func(ctx context.Context, svc *query.Service) (any, error) {
			return svc.ByPredicate(ctx, req)
		})
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.AddCommand(queryTermsCmd, queryBFSCmd, queryImpactCmd, queryPathCmd,
		querySubgraphCmd, queryEgoCmd, queryPredicateCmd)

	for _, c := range []*cobra.Command{queryBFSCmd, queryImpactCmd, queryPathCmd} {
		c.Flags().IntVar(&qMaxDepth, "max-depth", 0, "maximum hops (default from config)")
	}
	for _, c := range []*cobra.Command{queryBFSCmd, queryImpactCmd, queryPathCmd, querySubgraphCmd, queryEgoCmd} {
		c.Flags().Float64Var(&qMinConfidence, "min-confidence", 0, "skip edges below this confidence (default from config)")
	}
	for _, c := range []*cobra.Command{queryBFSCmd, queryPredicateCmd} {
		c.Flags().IntVar(&qLimit, "limit", 0, "maximum results (default from config)")
	}

	queryBFSCmd.Flags().StringVar(&qCategory, "category", "", "only report terms of this category")
	querySubgraphCmd.Flags().IntVar(&qRadius, "radius", query.DefaultRadius, "hops from the center, either direction")
	querySubgraphCmd.Flags().StringSliceVar(&qPredicates, "predicate", nil, "only follow these predicates")
	queryEgoCmd.Flags().BoolVar(&qIncoming, "incoming", true, "include edges pointing at the term")
	queryEgoCmd.Flags().BoolVar(&qOutgoing, "outgoing", true, "include edges leaving the term")
}

// intFlag returns nil unless the flag was set, so service defaults apply
func intFlag(cmd *cobra.Command, name string, v int) *int {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &v
}

func floatFlag(cmd *cobra.Command, name string, v float64) *float64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &v
}

func runQuery(cmd *cobra.Command, fn func(context.Context, *query.Service) (any, error)) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	svc, closeCache, err := a.queryService()
	if err != nil {
		return err
	}
	defer closeCache()

	result, err := fn(cmd.Context(), svc)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(result)
}
