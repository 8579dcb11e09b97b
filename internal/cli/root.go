package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/ontograph/internal/cache"
	"github.com/ppiankov/ontograph/internal/graph"
	"github.com/ppiankov/ontograph/internal/logger"
	"github.com/ppiankov/ontograph/internal/model"
	"github.com/ppiankov/ontograph/internal/query"
	"github.com/ppiankov/ontograph/internal/store"
	"github.com/ppiankov/ontograph/internal/store/postgres"
	"github.com/ppiankov/ontograph/internal/store/sqlite"
	"github.com/ppiankov/ontograph/internal/telemetry"
)

// Version is overridden at link time
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "ontograph",
	Short: "Ontograph - typed knowledge graph builder and query engine",
	Long: `Ontograph turns per-document term extractions into a typed knowledge graph.

Raw relations are resolved to known terms, checked against an ontology
whitelist, weighted by document recency and merged into edges whose
confidence is reinforced by repeated evidence.

The committed graph can be queried by breadth-first search, downstream
impact analysis, shortest path and subgraph extraction.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command; ctx cancellation stops long-running commands
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ontograph %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.ontograph/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("store-driver", "", "store driver (sqlite, postgres)")
	rootCmd.PersistentFlags().String("store-dsn", "", "sqlite path or postgres DSN")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("store.driver", rootCmd.PersistentFlags().Lookup("store-driver"))
	_ = viper.BindPFlag("store.dsn", rootCmd.PersistentFlags().Lookup("store-dsn"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if err := setDefaults(model.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading defaults: %v\n", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(home + "/.ontograph")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// ONTOGRAPH_STORE_DSN overrides store.dsn
	viper.SetEnvPrefix("ONTOGRAPH")
	viper.SetEnvKeyReplacer(envReplacer)
	viper.AutomaticEnv()
	// Omitted from defaults when empty, so it needs an explicit binding
	_ = viper.BindEnv("mirror.password")

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

var envReplacer = strings.NewReplacer(".", "_")

// setDefaults registers every default key so env overrides reach nested fields
func setDefaults(cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return err
	}
	registerDefaults("", tree)
	return nil
}

func registerDefaults(prefix string, tree map[string]any) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			registerDefaults(key, sub)
			continue
		}
		viper.SetDefault(key, v)
	}
}

// loadConfig resolves flags, env, file and defaults into a validated config
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if verbose {
		cfg.Log.Mode = "development"
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// app bundles what every command needs once config is loaded
type app struct {
	cfg      *model.Config
	log      *logger.Logger
	store    store.Store
	shutdown telemetry.ShutdownFunc
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logg, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	shutdown, err := telemetry.Init(ctx, cfg.Telemetry, Version, logg)
	if err != nil {
		logg.Warn("tracing disabled", "error", err)
	}

	st, err := openStore(cfg.Store, logg)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}

	return &app{cfg: cfg, log: logg, store: st, shutdown: shutdown}, nil
}

func (a *app) Close(ctx context.Context) {
	if err := a.store.Close(); err != nil {
		a.log.Warn("close store failed", "error", err)
	}
	if err := a.shutdown(ctx); err != nil {
		a.log.Warn("flush traces failed", "error", err)
	}
	a.log.Sync()
}

func openStore(cfg model.StoreConfig, logg *logger.Logger) (store.Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return sqlite.Open(cfg.DSN)
	case "postgres":
		return postgres.Open(cfg.DSN, logg)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// queryService wires the engine and cache over the app's store.
// The returned closer releases the cache connection, if any.
func (a *app) queryService() (*query.Service, func(), error) {
	c, err := cache.New(a.cfg.Cache, a.log)
	if err != nil {
		return nil, nil, fmt.Errorf("init cache: %w", err)
	}
	engine := graph.NewEngine(a.store, a.cfg.Graph.FetchConcurrency, a.log)
	svc := query.NewService(engine, c, a.cfg.Graph, a.cfg.Cache.TTL, a.log)

	closeCache := func() {
		if closer, ok := c.(io.Closer); ok {
			_ = closer.Close()
		}
	}
	return svc, closeCache, nil
}
