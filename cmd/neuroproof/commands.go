package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/janelia-flyem/NeuroProof-sub002/internal/logging"
	"github.com/janelia-flyem/NeuroProof-sub002/internal/mcp"
	"github.com/janelia-flyem/NeuroProof-sub002/internal/server"
	"github.com/janelia-flyem/NeuroProof-sub002/pkg/editor"
)

var (
	httpAddr           string
	violatorsThreshold uint64
	exportOut          string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the session over HTTP (REST, /metrics and MCP)",
	RunE:  runServe,
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the session as MCP tools over stdio",
	RunE:  runMCP,
}

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Print the estimated number of decisions left",
	RunE:  runEstimate,
}

var violatorsCmd = &cobra.Command{
	Use:   "violators",
	Short: "List orphan regions with synapses or above the size threshold",
	RunE:  runViolators,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the resumed session's state document",
	Long: "Without --out the graph and the state document are saved to their\n" +
		"configured paths and the journal is truncated. With --out only the\n" +
		"state document is written, to the given file.",
	RunE: runExport,
}

func init() {
	serveCmd.Flags().StringVar(&httpAddr, "addr", "", "listen address, overrides http.addr")
	violatorsCmd.Flags().Uint64Var(&violatorsThreshold, "threshold", 0, "size threshold (default: qa_threshold)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "state document destination")
}

func runServe(cmd *cobra.Command, _ []string) error {
	sess, ctx, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	cfg := sess.Config()
	if httpAddr != "" {
		cfg.HTTP.Addr = httpAddr
	}
	srv := server.NewServer(sess, cfg.HTTP, logging.FromContext(ctx))

	g, gctx := errgroup.WithContext(ctx)

	// 1. HTTP
	g.Go(srv.Run)

	// 2. Journal flusher
	g.Go(func() error { return sess.RunFlusher(gctx) })

	// 3. Shutdown on signal or on the first failure
	g.Go(func() error {
		<-gctx.Done()
		return srv.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("Shutdown complete", "session", sess.ID())
	return nil
}

func runMCP(cmd *cobra.Command, _ []string) error {
	sess, ctx, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sess.RunFlusher(gctx) })
	g.Go(func() error {
		// The client closing stdin ends the session.
		defer cancel()
		err := mcp.NewMCPServer(sess).Run(gctx, &sdkmcp.StdioTransport{})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	return g.Wait()
}

func runEstimate(cmd *cobra.Command, _ []string) error {
	sess, ctx, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	n, err := sess.Estimate(ctx)
	if err != nil {
		return err
	}
	stats := sess.Stats()
	fmt.Fprintf(cmd.OutOrStdout(), "mode=%s processed=%d remaining=%d\n", stats.Mode, stats.Processed, n)
	return nil
}

func runViolators(cmd *cobra.Command, _ []string) error {
	sess, _, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	for _, id := range sess.QAViolators(violatorsThreshold) {
		fmt.Fprintln(cmd.OutOrStdout(), id)
	}
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	sess, ctx, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	if exportOut == "" {
		return sess.Export(ctx)
	}

	if err := editor.SaveStateFile(exportOut, sess.State()); err != nil {
		return err
	}
	logging.FromContext(ctx).Info("State document written", "path", exportOut)
	return nil
}
