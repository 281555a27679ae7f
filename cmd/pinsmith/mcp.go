package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/robotpit/pinsmith"
	"github.com/robotpit/pinsmith/pkg/adapters/mcp"
	"github.com/robotpit/pinsmith/pkg/observability"
	"github.com/spf13/cobra"
)

func newMCPCmd(a *app) *cobra.Command {
	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the Model Context Protocol (MCP) server",
		Long: `Exposes project editing as MCP tools, so that AI agents can configure pins,
build sequences and blocks, and generate sketches.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			transport, _ := cmd.Flags().GetString("transport")
			port, _ := cmd.Flags().GetInt("port")

			sessions := a.manager(pinsmith.WithLifecycleHooks(observability.LoggingHooks(a.logger)))
			srv := mcp.NewServer(sessions,
				mcp.WithLogger(a.logger),
				mcp.WithCatalog(a.catalog),
				mcp.WithPins(a.pins),
			)

			switch transport {
			case "stdio":
				// Logs go to stderr, so they never corrupt JSON-RPC on stdout.
				a.logger.Info("starting pinsmith MCP server (stdio)")
				return srv.ServeStdio()
			case "sse":
				ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				a.logger.Info("starting pinsmith MCP server (SSE)", "port", port)
				if err := srv.ServeSSE(ctx, port); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				a.logger.Info("MCP server stopped gracefully")
				return nil
			}
			return fmt.Errorf("unknown transport %q (supported: stdio, sse)", transport)
		},
	}
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
	return mcpCmd
}
