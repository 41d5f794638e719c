package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	database "github.com/FACorreiaa/smart-travel-guide/app/db"
	"github.com/FACorreiaa/smart-travel-guide/internal/container"
)

func pruneCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete search history and superseded place rows past their retention",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := container.OpenStore(cmd.Context(), &a.cfg, a.logger)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer c.Close()
			return database.PruneOnce(cmd.Context(), c.Pruner(), c.RetentionPolicy(), a.logger)
		},
	}
}
