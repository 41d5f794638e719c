package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/FACorreiaa/smart-travel-guide/internal/api/poi"
	"github.com/FACorreiaa/smart-travel-guide/internal/api/recommendation"
	"github.com/FACorreiaa/smart-travel-guide/internal/types"
)

const (
	ServerName    = "smart-travel-guide"
	ServerVersion = "1.0.0"

	// DefaultSession is used when a tool call carries no session_id.
	DefaultSession = "mcp"
)

// Deps holds what the tools call into.
type Deps struct {
	Recommendations recommendation.Service
	Logger          *slog.Logger
}

// NewMCPServer registers the travel guide tools on a new MCP server.
func NewMCPServer(deps Deps) *server.MCPServer {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	s := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(true),
		server.WithInstructions("Akıllı Gezi Rehberi: travel recommendations, routes and favorites for Turkish destinations."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcplib.NewTool("get_recommendations",
			mcplib.WithDescription("Recommend places for a free-text travel query, with suggested visit hours."),
			mcplib.WithString("query", mcplib.Description("What to look for, e.g. \"İstanbul'da müzeler\""), mcplib.Required()),
			mcplib.WithString("category", mcplib.Description("Category filter, e.g. Müze or Park")),
			mcplib.WithNumber("rating", mcplib.Description("Minimum rating, 0 to 5")),
			mcplib.WithArray("features", mcplib.Description("Required amenities, e.g. Wifi")),
			mcplib.WithNumber("lat", mcplib.Description("Reference latitude for distance badges")),
			mcplib.WithNumber("lng", mcplib.Description("Reference longitude for distance badges")),
			mcplib.WithString("session_id", mcplib.Description("Session the search is recorded under")),
		),
		getRecommendations(deps),
	)

	s.AddTool(
		mcplib.NewTool("plan_route",
			mcplib.WithDescription("Plan a driving route through the given places in order."),
			mcplib.WithArray("places", mcplib.Description("Place names, at least two"), mcplib.Required()),
		),
		planRoute(deps),
	)

	s.AddTool(
		mcplib.NewTool("suggest_visit_hours",
			mcplib.WithDescription("Suggest the best and alternative visiting windows for a place category."),
			mcplib.WithString("category", mcplib.Description("Place category"), mcplib.Required()),
		),
		suggestVisitHours(),
	)

	s.AddTool(
		mcplib.NewTool("list_favorites",
			mcplib.WithDescription("List the favorite places of a session."),
			mcplib.WithString("session_id", mcplib.Description("Session whose favorites to list")),
			mcplib.WithBoolean("details", mcplib.Description("Return full place details instead of names")),
		),
		listFavorites(deps),
	)

	return s
}

func getRecommendations(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return toolError("query is required"), nil
		}

		filters := types.Filters{}
		if c := req.GetString("category", ""); c != "" {
			filters["category"] = c
		}
		if r := req.GetFloat("rating", 0); r > 0 {
			filters["rating"] = r
		}
		if f := req.GetStringSlice("features", nil); len(f) > 0 {
			filters["features"] = f
		}
		if len(filters) == 0 {
			filters = nil
		}

		var ref *types.Coordinates
		args := req.GetArguments()
		_, hasLat := args["lat"]
		_, hasLng := args["lng"]
		if hasLat && hasLng {
			ref = &types.Coordinates{Lat: req.GetFloat("lat", 0), Lng: req.GetFloat("lng", 0)}
		}

		cards, err := deps.Recommendations.GetRecommendationCards(ctx, types.RecommendationRequest{
			Query:     query,
			Filters:   filters,
			Reference: ref,
		}, req.GetString("session_id", DefaultSession))
		if err != nil {
			deps.Logger.ErrorContext(ctx, "MCP get_recommendations failed", slog.Any("error", err))
			return toolError(fmt.Sprintf("recommendations failed: %v", err)), nil
		}
		return toolJSON(cards)
	}
}

func planRoute(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		places, err := req.RequireStringSlice("places")
		if err != nil {
			return toolError("places is required"), nil
		}
		route, err := deps.Recommendations.PlanRoute(ctx, places)
		switch {
		case errors.Is(err, types.ErrFeatureDisabled):
			return toolError("route planning is not configured"), nil
		case err != nil:
			return toolError(fmt.Sprintf("route planning failed: %v", err)), nil
		case route == nil:
			return toolText("No route found."), nil
		}
		return toolJSON(route)
	}
}

func suggestVisitHours() server.ToolHandlerFunc {
	return func(_ context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		category, err := req.RequireString("category")
		if err != nil {
			return toolError("category is required"), nil
		}
		best, alt := poi.SuggestVisitHours(category)
		return toolJSON(map[string]string{
			"category":         category,
			"best_time":        best,
			"alternative_time": alt,
		})
	}
}

func listFavorites(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		sessionID := req.GetString("session_id", DefaultSession)
		if req.GetBool("details", false) {
			details, err := deps.Recommendations.GetFavoriteDetails(ctx, sessionID)
			if err != nil {
				return toolError(fmt.Sprintf("failed to load favorites: %v", err)), nil
			}
			return toolJSON(details)
		}
		names, err := deps.Recommendations.GetFavorites(ctx, sessionID)
		if err != nil {
			return toolError(fmt.Sprintf("failed to load favorites: %v", err)), nil
		}
		if names == nil {
			names = []string{}
		}
		return toolJSON(names)
	}
}

func toolJSON(v any) (*mcplib.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return toolError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return toolText(string(b)), nil
}

func toolText(text string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: text},
		},
	}
}

func toolError(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
