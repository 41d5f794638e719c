package places

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/FACorreiaa/smart-travel-guide/app/observability/metrics"
	"github.com/FACorreiaa/smart-travel-guide/internal/types"
)

const (
	backendPostgres = "postgres"
	backendSQLite   = "sqlite"
)

// Repository is the Place Store: cached places, search history, favorites and
// itineraries. Every call is its own unit of work and is durable on return.
type Repository interface {
	// UpsertPlace always appends a new row; the newest row per name is current.
	UpsertPlace(ctx context.Context, place types.PlaceDetails) error
	// GetPlace returns the newest row for name, or nil when the name was never cached.
	GetPlace(ctx context.Context, name string) (*types.PlaceDetails, error)

	SaveSearch(ctx context.Context, cacheKey string, results []types.RecommendationResult, sessionID string) error
	// GetSearch returns the newest batch for cacheKey; found is false on a miss.
	GetSearch(ctx context.Context, cacheKey string) (results []types.RecommendationResult, found bool, err error)

	AddFavorite(ctx context.Context, sessionID, placeName string) error
	RemoveFavorite(ctx context.Context, sessionID, placeName string) error
	ListFavorites(ctx context.Context, sessionID string) ([]string, error)
	// GetFavoriteDetails returns one record per favorite, synthesizing a
	// placeholder for places that were never cached.
	GetFavoriteDetails(ctx context.Context, sessionID string) ([]types.PlaceDetails, error)

	CreateItinerary(ctx context.Context, sessionID, name string) (*types.Itinerary, error)
	ListItineraries(ctx context.Context, sessionID string) ([]types.Itinerary, error)
	GetItinerary(ctx context.Context, sessionID string, id uuid.UUID) (*types.Itinerary, error)
	DeleteItinerary(ctx context.Context, sessionID string, id uuid.UUID) error
	AddPlaceToItinerary(ctx context.Context, itineraryID uuid.UUID, placeName string, orderIndex int) error
	RemovePlaceFromItinerary(ctx context.Context, itineraryID uuid.UUID, placeName string) error
	GetItineraryPlaces(ctx context.Context, itineraryID uuid.UUID) ([]types.ItineraryPlace, error)

	PruneSearchHistory(ctx context.Context, olderThan time.Time) (int64, error)
	PrunePlaces(ctx context.Context, olderThan time.Time) (int64, error)
}

// searchPayload is the serialized form of a search batch.
type searchPayload struct {
	Recommendations []types.RecommendationResult `json:"recommendations"`
}

func encodeSearch(results []types.RecommendationResult) ([]byte, error) {
	if results == nil {
		results = []types.RecommendationResult{}
	}
	b, err := json.Marshal(searchPayload{Recommendations: results})
	if err != nil {
		return nil, fmt.Errorf("failed to encode search results: %w", err)
	}
	return b, nil
}

func decodeSearch(raw []byte) ([]types.RecommendationResult, error) {
	var payload searchPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode search results: %w", err)
	}
	if payload.Recommendations == nil {
		return []types.RecommendationResult{}, nil
	}
	return payload.Recommendations, nil
}

func nonNilURLs(urls []string) []string {
	if urls == nil {
		return []string{}
	}
	return urls
}

func queryFailed(ctx context.Context, backend string) {
	metrics.Get().DbQueryErrorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("store", backend)))
}
