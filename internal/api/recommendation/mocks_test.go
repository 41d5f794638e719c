package recommendation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/FACorreiaa/smart-travel-guide/internal/types"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) UpsertPlace(ctx context.Context, place types.PlaceDetails) error {
	return m.Called(ctx, place).Error(0)
}

func (m *MockRepository) GetPlace(ctx context.Context, name string) (*types.PlaceDetails, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.PlaceDetails), args.Error(1)
}

func (m *MockRepository) SaveSearch(ctx context.Context, cacheKey string, results []types.RecommendationResult, sessionID string) error {
	return m.Called(ctx, cacheKey, results, sessionID).Error(0)
}

func (m *MockRepository) GetSearch(ctx context.Context, cacheKey string) ([]types.RecommendationResult, bool, error) {
	args := m.Called(ctx, cacheKey)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]types.RecommendationResult), args.Bool(1), args.Error(2)
}

func (m *MockRepository) AddFavorite(ctx context.Context, sessionID, placeName string) error {
	return m.Called(ctx, sessionID, placeName).Error(0)
}

func (m *MockRepository) RemoveFavorite(ctx context.Context, sessionID, placeName string) error {
	return m.Called(ctx, sessionID, placeName).Error(0)
}

func (m *MockRepository) ListFavorites(ctx context.Context, sessionID string) ([]string, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRepository) GetFavoriteDetails(ctx context.Context, sessionID string) ([]types.PlaceDetails, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.PlaceDetails), args.Error(1)
}

func (m *MockRepository) CreateItinerary(ctx context.Context, sessionID, name string) (*types.Itinerary, error) {
	args := m.Called(ctx, sessionID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Itinerary), args.Error(1)
}

func (m *MockRepository) ListItineraries(ctx context.Context, sessionID string) ([]types.Itinerary, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Itinerary), args.Error(1)
}

func (m *MockRepository) GetItinerary(ctx context.Context, sessionID string, id uuid.UUID) (*types.Itinerary, error) {
	args := m.Called(ctx, sessionID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Itinerary), args.Error(1)
}

func (m *MockRepository) DeleteItinerary(ctx context.Context, sessionID string, id uuid.UUID) error {
	return m.Called(ctx, sessionID, id).Error(0)
}

func (m *MockRepository) AddPlaceToItinerary(ctx context.Context, itineraryID uuid.UUID, placeName string, orderIndex int) error {
	return m.Called(ctx, itineraryID, placeName, orderIndex).Error(0)
}

func (m *MockRepository) RemovePlaceFromItinerary(ctx context.Context, itineraryID uuid.UUID, placeName string) error {
	return m.Called(ctx, itineraryID, placeName).Error(0)
}

func (m *MockRepository) GetItineraryPlaces(ctx context.Context, itineraryID uuid.UUID) ([]types.ItineraryPlace, error) {
	args := m.Called(ctx, itineraryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.ItineraryPlace), args.Error(1)
}

func (m *MockRepository) PruneSearchHistory(ctx context.Context, olderThan time.Time) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) PrunePlaces(ctx context.Context, olderThan time.Time) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, query string, filters types.Filters) ([]types.RecommendationResult, error) {
	args := m.Called(ctx, query, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.RecommendationResult), args.Error(1)
}

func (m *MockGenerator) GetPlaceDetails(ctx context.Context, name string) (*types.PlaceDetails, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.PlaceDetails), args.Error(1)
}

type MockLocation struct {
	mock.Mock
}

func (m *MockLocation) Geocode(ctx context.Context, placeName string) *types.Coordinates {
	args := m.Called(ctx, placeName)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*types.Coordinates)
}

func (m *MockLocation) GetPhotos(ctx context.Context, placeName string, maxWidth int) []string {
	return m.Called(ctx, placeName, maxWidth).Get(0).([]string)
}

func (m *MockLocation) GenerateRoute(ctx context.Context, places []string) *types.RouteInfo {
	args := m.Called(ctx, places)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*types.RouteInfo)
}

func (m *MockLocation) TravelTimeMinutes(ctx context.Context, origin, destination types.Coordinates, mode string) (int, bool) {
	args := m.Called(ctx, origin, destination, mode)
	return args.Int(0), args.Bool(1)
}

func (m *MockLocation) NearbyPlaces(ctx context.Context, lat, lng float64, radius int, keyword string) []types.Place {
	return m.Called(ctx, lat, lng, radius, keyword).Get(0).([]types.Place)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendFavoritesEmail(ctx context.Context, to string, favorites []types.PlaceDetails) error {
	return m.Called(ctx, to, favorites).Error(0)
}
