package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/smart-travel-guide/internal/api/recommendation"
	"github.com/FACorreiaa/smart-travel-guide/internal/types"
)

type MockRecommendations struct {
	mock.Mock
}

var _ recommendation.Service = (*MockRecommendations)(nil)

func (m *MockRecommendations) GetTravelRecommendations(ctx context.Context, query, sessionID string, filters types.Filters) ([]types.RecommendationResult, error) {
	args := m.Called(ctx, query, sessionID, filters)
	res, _ := args.Get(0).([]types.RecommendationResult)
	return res, args.Error(1)
}

func (m *MockRecommendations) GetRecommendationCards(ctx context.Context, req types.RecommendationRequest, sessionID string) ([]types.RecommendationCard, error) {
	args := m.Called(ctx, req, sessionID)
	res, _ := args.Get(0).([]types.RecommendationCard)
	return res, args.Error(1)
}

func (m *MockRecommendations) GetPlaceDetails(ctx context.Context, name string) (*types.PlaceDetails, error) {
	args := m.Called(ctx, name)
	res, _ := args.Get(0).(*types.PlaceDetails)
	return res, args.Error(1)
}

func (m *MockRecommendations) PlanRoute(ctx context.Context, places []string) (*types.RouteInfo, error) {
	args := m.Called(ctx, places)
	res, _ := args.Get(0).(*types.RouteInfo)
	return res, args.Error(1)
}

func (m *MockRecommendations) NearbyPlaces(ctx context.Context, lat, lng float64, radius int, keyword string) ([]types.Place, error) {
	args := m.Called(ctx, lat, lng, radius, keyword)
	res, _ := args.Get(0).([]types.Place)
	return res, args.Error(1)
}

func (m *MockRecommendations) TravelTime(ctx context.Context, origin, destination types.Coordinates, mode string) (int, bool, error) {
	args := m.Called(ctx, origin, destination, mode)
	return args.Int(0), args.Bool(1), args.Error(2)
}

func (m *MockRecommendations) AddFavorite(ctx context.Context, sessionID, placeName string) error {
	return m.Called(ctx, sessionID, placeName).Error(0)
}

func (m *MockRecommendations) RemoveFavorite(ctx context.Context, sessionID, placeName string) error {
	return m.Called(ctx, sessionID, placeName).Error(0)
}

func (m *MockRecommendations) GetFavorites(ctx context.Context, sessionID string) ([]string, error) {
	args := m.Called(ctx, sessionID)
	res, _ := args.Get(0).([]string)
	return res, args.Error(1)
}

func (m *MockRecommendations) GetFavoriteDetails(ctx context.Context, sessionID string) ([]types.PlaceDetails, error) {
	args := m.Called(ctx, sessionID)
	res, _ := args.Get(0).([]types.PlaceDetails)
	return res, args.Error(1)
}

func (m *MockRecommendations) EmailFavorites(ctx context.Context, sessionID, to string) error {
	return m.Called(ctx, sessionID, to).Error(0)
}

func testDeps() (Deps, *MockRecommendations) {
	svc := new(MockRecommendations)
	return Deps{
		Recommendations: svc,
		Logger:          slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})),
	}, svc
}

func callRequest(name string, args map[string]any) mcplib.CallToolRequest {
	return mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcplib.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	tc, ok := result.Content[0].(mcplib.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return tc.Text
}

func TestNewMCPServerRegistersTools(t *testing.T) {
	deps, _ := testDeps()
	s := NewMCPServer(deps)
	require.NotNil(t, s)

	tools := s.ListTools()
	for _, name := range []string{"get_recommendations", "plan_route", "suggest_visit_hours", "list_favorites"} {
		assert.Contains(t, tools, name)
	}
}

func TestGetRecommendationsTool(t *testing.T) {
	deps, svc := testDeps()
	handler := getRecommendations(deps)

	t.Run("builds filters and reference", func(t *testing.T) {
		want := types.RecommendationRequest{
			Query:     "Kapadokya",
			Filters:   types.Filters{"category": "Doğa", "rating": 4.0, "features": []string{"Otopark"}},
			Reference: &types.Coordinates{Lat: 38.64, Lng: 34.83},
		}
		svc.On("GetRecommendationCards", mock.Anything, want, "s-mcp").Return([]types.RecommendationCard{
			{RecommendationResult: types.RecommendationResult{Title: "Güvercinlik Vadisi"}, BestTime: "08:00-10:00"},
		}, nil).Once()

		result, err := handler(context.Background(), callRequest("get_recommendations", map[string]any{
			"query":      "Kapadokya",
			"category":   "Doğa",
			"rating":     4,
			"features":   []any{"Otopark"},
			"lat":        38.64,
			"lng":        34.83,
			"session_id": "s-mcp",
		}))
		require.NoError(t, err)
		require.False(t, result.IsError, resultText(t, result))

		var cards []types.RecommendationCard
		require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &cards))
		require.Len(t, cards, 1)
		assert.Equal(t, "Güvercinlik Vadisi", cards[0].Title)
	})

	t.Run("no filters and default session", func(t *testing.T) {
		svc.On("GetRecommendationCards", mock.Anything, types.RecommendationRequest{Query: "Trabzon"}, DefaultSession).
			Return([]types.RecommendationCard{}, nil).Once()

		result, err := handler(context.Background(), callRequest("get_recommendations", map[string]any{"query": "Trabzon"}))
		require.NoError(t, err)
		assert.False(t, result.IsError)
		assert.Equal(t, "[]", resultText(t, result))
	})

	t.Run("missing query", func(t *testing.T) {
		result, err := handler(context.Background(), callRequest("get_recommendations", map[string]any{}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})

	t.Run("provider failure", func(t *testing.T) {
		svc.On("GetRecommendationCards", mock.Anything, types.RecommendationRequest{Query: "Van"}, DefaultSession).
			Return(nil, types.ErrProviderUnavailable).Once()

		result, err := handler(context.Background(), callRequest("get_recommendations", map[string]any{"query": "Van"}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, resultText(t, result), "provider unavailable")
	})

	svc.AssertExpectations(t)
}

func TestPlanRouteTool(t *testing.T) {
	deps, svc := testDeps()
	handler := planRoute(deps)

	route := &types.RouteInfo{Distance: "3.2 km", Duration: "12 mins", Steps: []string{"Kuzeye ilerleyin"}}
	svc.On("PlanRoute", mock.Anything, []string{"Galata Kulesi", "Sultanahmet"}).Return(route, nil).Once()
	result, err := handler(context.Background(), callRequest("plan_route", map[string]any{
		"places": []any{"Galata Kulesi", "Sultanahmet"},
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), `"3.2 km"`)

	svc.On("PlanRoute", mock.Anything, []string{"A", "B"}).Return(nil, types.ErrFeatureDisabled).Once()
	result, err = handler(context.Background(), callRequest("plan_route", map[string]any{"places": []any{"A", "B"}}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "route planning is not configured", resultText(t, result))

	svc.On("PlanRoute", mock.Anything, []string{"X", "Y"}).Return(nil, nil).Once()
	result, err = handler(context.Background(), callRequest("plan_route", map[string]any{"places": []any{"X", "Y"}}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "No route found.", resultText(t, result))

	result, err = handler(context.Background(), callRequest("plan_route", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	svc.AssertExpectations(t)
}

func TestSuggestVisitHoursTool(t *testing.T) {
	handler := suggestVisitHours()

	result, err := handler(context.Background(), callRequest("suggest_visit_hours", map[string]any{"category": "Tarihi Yer Müzesi"}))
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"category":"Tarihi Yer Müzesi","best_time":"10:00-12:00","alternative_time":"15:00-17:00"}`,
		resultText(t, result))

	result, err = handler(context.Background(), callRequest("suggest_visit_hours", map[string]any{"category": "Bilinmeyen"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), `"best_time":"10:00-12:00"`)
	assert.Contains(t, resultText(t, result), `"alternative_time":"16:00-18:00"`)
}

func TestListFavoritesTool(t *testing.T) {
	deps, svc := testDeps()
	handler := listFavorites(deps)

	svc.On("GetFavorites", mock.Anything, "s1").Return([]string{"Kız Kulesi"}, nil).Once()
	result, err := handler(context.Background(), callRequest("list_favorites", map[string]any{"session_id": "s1"}))
	require.NoError(t, err)
	assert.JSONEq(t, `["Kız Kulesi"]`, resultText(t, result))

	svc.On("GetFavorites", mock.Anything, DefaultSession).Return(nil, nil).Once()
	result, err = handler(context.Background(), callRequest("list_favorites", map[string]any{}))
	require.NoError(t, err)
	assert.Equal(t, "[]", resultText(t, result))

	svc.On("GetFavoriteDetails", mock.Anything, "s1").
		Return([]types.PlaceDetails{types.PlaceholderPlace("Kız Kulesi")}, nil).Once()
	result, err = handler(context.Background(), callRequest("list_favorites", map[string]any{"session_id": "s1", "details": true}))
	require.NoError(t, err)
	var details []types.PlaceDetails
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &details))
	require.Len(t, details, 1)
	assert.Equal(t, "Kız Kulesi", details[0].Name)

	svc.AssertExpectations(t)
}
