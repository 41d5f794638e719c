package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/smart-travel-guide/internal/container"
	"github.com/FACorreiaa/smart-travel-guide/internal/types"
)

func recommendCmd(a *app) *cobra.Command {
	var (
		category string
		rating   float64
		features []string
		lat, lng float64
		session  string
	)
	cmd := &cobra.Command{
		Use:   "recommend <query>",
		Short: "Print recommendation cards for a query as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := container.NewContainer(ctx, &a.cfg, a.logger)
			if err != nil {
				return fmt.Errorf("failed to build dependencies: %w", err)
			}
			defer c.Close()

			filters := types.Filters{}
			if category != "" {
				filters["category"] = category
			}
			if rating > 0 {
				filters["rating"] = rating
			}
			if len(features) > 0 {
				filters["features"] = features
			}
			if len(filters) == 0 {
				filters = nil
			}
			req := types.RecommendationRequest{Query: strings.Join(args, " "), Filters: filters}
			if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lng") {
				req.Reference = &types.Coordinates{Lat: lat, Lng: lng}
			}

			cards, err := c.Recommendations.GetRecommendationCards(ctx, req, session)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(cards)
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Category filter, e.g. Müze")
	cmd.Flags().Float64Var(&rating, "rating", 0, "Minimum rating")
	cmd.Flags().StringSliceVar(&features, "feature", nil, "Required amenity (repeatable)")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Reference latitude for distance badges")
	cmd.Flags().Float64Var(&lng, "lng", 0, "Reference longitude for distance badges")
	cmd.Flags().StringVar(&session, "session", "cli", "Session the search is recorded under")
	return cmd
}
