package cli

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rcliao/somi-flow/internal/server"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long:  "Serve flow generation, the block catalog and chain storage as JSON over HTTP. Stops on SIGINT or SIGTERM.",
		Run:   runServe,
	}

	cmd.Flags().String("addr", "", "Listen address (default: server.addr from config)")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = cfg.Server.Addr
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	l := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	svc, err := newFlowService(s, l)
	if err != nil {
		exitErr("planner", err)
	}
	if len(cfg.Server.Tokens) == 0 {
		l.Warn("no server.tokens configured, every /v1 request will be rejected")
	}
	srv := server.NewServer(svc, s, server.StaticTokens(cfg.Server.Tokens), server.WithLogger(l))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l.Info("starting somi",
		slog.String("db", getDBPath()),
		slog.Bool("planner", cfg.Planner.Enabled()),
		slog.String("planner_provider", cfg.Planner.Provider))
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		exitErr("serve", err)
	}
}
