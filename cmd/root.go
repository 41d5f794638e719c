package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/smart-travel-guide/config"
)

// app carries what every subcommand needs once the root has loaded config.
type app struct {
	cfg    config.Config
	logger *slog.Logger
}

// NewRootCmd builds the command tree. Running it without a subcommand serves
// the HTTP API.
func NewRootCmd(logger *slog.Logger) *cobra.Command {
	a := &app{logger: logger}

	root := &cobra.Command{
		Use:           "travel-guide",
		Short:         "Smart travel guide",
		Long:          "Travel recommendations, routes, favorites and itineraries backed by an LLM and map provider.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.InitConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if store, _ := cmd.Flags().GetString("store"); store != "" {
				cfg.Store = store
			}
			a.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().String("store", "", "Place store backend: sqlite or postgres (overrides config)")

	serve := serveCmd(a)
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(serve, recommendCmd(a), pruneCmd(a), mcpCmd(a))
	return root
}

// Execute runs the root command with the process arguments.
func Execute(logger *slog.Logger) error {
	return NewRootCmd(logger).Execute()
}
