// Command neuroproof runs focused-proofreading sessions over a region
// adjacency graph.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/janelia-flyem/NeuroProof-sub002/internal/logging"
	"github.com/janelia-flyem/NeuroProof-sub002/pkg/session"
)

var (
	configPath string
	graphPath  string
	statePath  string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "neuroproof",
	Short:         "Focused proofreading of neuron segmentations",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "session config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&graphPath, "graph", "", "region graph JSON, overrides graph_path")
	rootCmd.PersistentFlags().StringVar(&statePath, "state", "", "state document, overrides state_path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error; overrides log.level")

	rootCmd.AddCommand(serveCmd, mcpCmd, estimateCmd, violatorsCmd, exportCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies flag overrides. The log
// goes to stderr so that stdout stays clean for command output and for the
// MCP stdio transport.
func loadConfig(cmd *cobra.Command) (session.Config, context.Context, error) {
	// 1. Load File
	cfg, err := session.ReadConfig(configPath)
	if err != nil {
		return cfg, nil, err
	}

	// 2. Flag Overrides
	if graphPath != "" {
		cfg.GraphPath = graphPath
	}
	if statePath != "" {
		cfg.StatePath = statePath
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	// 3. Validate
	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	slog.SetDefault(logger)
	return cfg, logging.WithLogger(cmd.Context(), logger), nil
}

// openSession loads the config and opens the session it describes.
func openSession(cmd *cobra.Command) (*session.Session, context.Context, error) {
	cfg, ctx, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	sess, err := session.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return sess, ctx, nil
}
