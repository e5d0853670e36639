// Package cli implements the somi CLI commands.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/rcliao/somi-flow/internal/config"
	"github.com/rcliao/somi-flow/internal/flow"
	"github.com/rcliao/somi-flow/internal/planner"
	"github.com/rcliao/somi-flow/internal/store"
	"github.com/spf13/cobra"
)

var (
	dbPath     string
	configPath string
	formatFlag string
	verbose    bool

	cfg    *config.Config
	logger *slog.Logger
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "somi",
	Short: "Somatic practice flows",
	Long:  "Builds nervous-system practice flows from a block catalog, plays them and records chains. SQLite-backed, single binary.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)

		c, err := config.NewLoader(logger).Load(configPath)
		if err != nil {
			exitErr("load config", err)
		}
		cfg = c
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $SOMI_DB or ~/.somi/somi.db)")
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./somi.yaml)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	return cfg.DB
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(getDBPath())
}

// newFlowService wires the configured planner, if any, into a flow service.
func newFlowService(catalog flow.Catalog, l *slog.Logger) (*flow.Service, error) {
	opts := []flow.Option{
		flow.WithLogger(l),
		flow.WithPlannerTimeout(cfg.Planner.Timeout),
	}
	if cfg.Planner.Enabled() {
		provider, err := planner.ProviderByName(cfg.Planner.Provider, cfg.Planner.APIKeyEnv)
		if err != nil {
			return nil, err
		}
		p := planner.NewChatPlanner(provider, cfg.Planner.Model,
			planner.WithEndpoint(cfg.Planner.Endpoint),
			planner.WithTemperature(cfg.Planner.Temperature),
			planner.WithLogger(l),
		)
		opts = append(opts, flow.WithPlanner(p))
	}
	return flow.NewService(catalog, opts...), nil
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
