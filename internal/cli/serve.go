package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ppiankov/ontograph/internal/server"
)

var (
	serveAddr string
	serveMode string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve graph queries over HTTP",
	Long: `Serve exposes the query engine as a JSON HTTP API.

Routes:
  GET /healthz
  GET /api/terms?text=
  GET /api/bfs?start=&category=&max_depth=&min_confidence=&limit=
  GET /api/impact?term=&max_depth=&min_confidence=
  GET /api/path?start=&end=&max_depth=&min_confidence=
  GET /api/subgraph?center=&radius=&predicate=&min_confidence=
  GET /api/ego?term=&incoming=&outgoing=&min_confidence=
  GET /api/predicates/:predicate?limit=

Example:
  ontograph serve --addr :8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().StringVar(&serveMode, "mode", "", "gin mode: debug, release, test (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if serveAddr != "" {
		a.cfg.Server.Addr = serveAddr
	}
	if serveMode != "" {
		a.cfg.Server.Mode = serveMode
	}

	svc, closeCache, err := a.queryService()
	if err != nil {
		return err
	}
	defer closeCache()

	srv := server.NewServer(svc, a.cfg.Server.Mode, a.log)
	return srv.Run(cmd.Context(), a.cfg.Server.Addr)
}
