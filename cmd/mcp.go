package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/FACorreiaa/smart-travel-guide/internal/api/mcp"
	"github.com/FACorreiaa/smart-travel-guide/internal/container"
)

func mcpCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the travel tools over MCP on stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			c, err := container.NewContainer(ctx, &a.cfg, a.logger)
			if err != nil {
				return fmt.Errorf("failed to build dependencies: %w", err)
			}
			defer c.Close()

			srv := mcp.NewMCPServer(mcp.Deps{Recommendations: c.Recommendations, Logger: a.logger})
			a.logger.Info("MCP server started (stdio transport)")
			if err := server.NewStdioServer(srv).Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
