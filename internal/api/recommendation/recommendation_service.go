package recommendation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/smart-travel-guide/app/observability/metrics"
	"github.com/FACorreiaa/smart-travel-guide/internal/api/email"
	generativeAI "github.com/FACorreiaa/smart-travel-guide/internal/api/generative_ai"
	"github.com/FACorreiaa/smart-travel-guide/internal/api/location"
	"github.com/FACorreiaa/smart-travel-guide/internal/api/places"
	"github.com/FACorreiaa/smart-travel-guide/internal/api/poi"
	"github.com/FACorreiaa/smart-travel-guide/internal/types"
)

const DefaultCacheTTL = 10 * time.Minute

// Service is the recommendation pipeline and the thin pass-throughs that
// complete its public surface.
type Service interface {
	GetTravelRecommendations(ctx context.Context, query, sessionID string, filters types.Filters) ([]types.RecommendationResult, error)
	GetRecommendationCards(ctx context.Context, req types.RecommendationRequest, sessionID string) ([]types.RecommendationCard, error)
	GetPlaceDetails(ctx context.Context, name string) (*types.PlaceDetails, error)

	PlanRoute(ctx context.Context, places []string) (*types.RouteInfo, error)
	NearbyPlaces(ctx context.Context, lat, lng float64, radius int, keyword string) ([]types.Place, error)
	TravelTime(ctx context.Context, origin, destination types.Coordinates, mode string) (int, bool, error)

	AddFavorite(ctx context.Context, sessionID, placeName string) error
	RemoveFavorite(ctx context.Context, sessionID, placeName string) error
	GetFavorites(ctx context.Context, sessionID string) ([]string, error)
	GetFavoriteDetails(ctx context.Context, sessionID string) ([]types.PlaceDetails, error)
	EmailFavorites(ctx context.Context, sessionID, to string) error
}

var _ Service = (*ServiceImpl)(nil)

type Options struct {
	CacheTTL      time.Duration
	PhotoMaxWidth int
	NearbyRadius  int
}

// ServiceImpl runs the pipeline. location and mailer may be nil when their
// credentials are not configured; the features that need them report
// types.ErrFeatureDisabled.
type ServiceImpl struct {
	logger    *slog.Logger
	repo      places.Repository
	generator generativeAI.RecommendationGenerator
	location  location.Service
	mailer    email.Service
	cache     *cache.Cache
	opts      Options
}

func NewServiceImpl(
	repo places.Repository,
	generator generativeAI.RecommendationGenerator,
	loc location.Service,
	mailer email.Service,
	opts Options,
	logger *slog.Logger,
) *ServiceImpl {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.PhotoMaxWidth <= 0 {
		opts.PhotoMaxWidth = location.DefaultPhotoMaxWidth
	}
	if opts.NearbyRadius <= 0 {
		opts.NearbyRadius = location.DefaultNearbyRadius
	}
	return &ServiceImpl{
		logger:    logger,
		repo:      repo,
		generator: generator,
		location:  loc,
		mailer:    mailer,
		cache:     cache.New(opts.CacheTTL, 2*opts.CacheTTL),
		opts:      opts,
	}
}

// CacheKey combines the query with the canonical JSON of the filters. JSON
// objects are written with sorted keys, so construction order never matters.
func CacheKey(query string, filters types.Filters) (string, error) {
	b, err := json.Marshal(filters.Canonical())
	if err != nil {
		return "", fmt.Errorf("failed to serialize filters: %w", err)
	}
	return query + "_" + string(b), nil
}

func (s *ServiceImpl) GetTravelRecommendations(ctx context.Context, query, sessionID string, filters types.Filters) ([]types.RecommendationResult, error) {
	ctx, span := otel.Tracer("RecommendationService").Start(ctx, "GetTravelRecommendations", trace.WithAttributes(
		attribute.String("query", query),
		attribute.String("session.id", sessionID),
	))
	defer span.End()
	start := time.Now()
	defer func() {
		metrics.Get().RecommendationDuration.Record(ctx, time.Since(start).Seconds())
	}()

	l := s.logger.With(slog.String("method", "GetTravelRecommendations"), slog.String("query", query))

	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is required", types.ErrInvalidInput)
	}
	key, err := CacheKey(query, filters)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidInput, err)
	}
	span.SetAttributes(attribute.String("cache.key", key))

	if cached, found := s.lookup(ctx, l, key); found {
		metrics.Get().RecommendationCacheHits.Add(ctx, 1)
		span.SetAttributes(attribute.Bool("cache.hit", true))
		span.SetStatus(codes.Ok, "Served from cache")
		return cached, nil
	}
	metrics.Get().RecommendationCacheMisses.Add(ctx, 1)
	span.SetAttributes(attribute.Bool("cache.hit", false))

	results, err := s.generator.Generate(ctx, query, filters)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Generation failed")
		return []types.RecommendationResult{}, err
	}

	for i := range results {
		results[i] = s.enrich(ctx, l, results[i])
	}

	if len(results) == 0 {
		l.InfoContext(ctx, "Generator returned no recommendations; not caching")
		span.SetStatus(codes.Ok, "Empty batch")
		return results, nil
	}
	if err := s.repo.SaveSearch(ctx, key, results, sessionID); err != nil {
		l.ErrorContext(ctx, "Failed to save search history", slog.Any("error", err))
	}
	s.cache.Set(key, cloneResults(results), cache.DefaultExpiration)

	span.SetAttributes(attribute.Int("results.count", len(results)))
	span.SetStatus(codes.Ok, "Recommendations generated")
	return results, nil
}

// lookup checks the in-process cache, then search history. A store failure
// is treated as a miss.
func (s *ServiceImpl) lookup(ctx context.Context, l *slog.Logger, key string) ([]types.RecommendationResult, bool) {
	if v, ok := s.cache.Get(key); ok {
		if results, ok := v.([]types.RecommendationResult); ok {
			l.DebugContext(ctx, "In-process cache hit")
			return cloneResults(results), true
		}
	}
	results, found, err := s.repo.GetSearch(ctx, key)
	if err != nil {
		l.ErrorContext(ctx, "Failed to read search history", slog.Any("error", err))
		return nil, false
	}
	if !found {
		return nil, false
	}
	l.DebugContext(ctx, "Search history hit", slog.Int("results", len(results)))
	s.cache.Set(key, cloneResults(results), cache.DefaultExpiration)
	return results, true
}

// enrich attaches coordinates and photos, then records the place. Results
// without a title cannot be keyed and are returned untouched.
func (s *ServiceImpl) enrich(ctx context.Context, l *slog.Logger, rec types.RecommendationResult) types.RecommendationResult {
	if strings.TrimSpace(rec.Title) == "" {
		l.WarnContext(ctx, "Skipping enrichment of untitled recommendation")
		return rec
	}
	if s.location != nil {
		if !rec.HasLocation() {
			rec.Location = s.location.Geocode(ctx, rec.Title)
		}
		rec.ImageURLs = s.location.GetPhotos(ctx, rec.Title, s.opts.PhotoMaxWidth)
	}
	if rec.ImageURLs == nil {
		rec.ImageURLs = []string{}
	}
	if err := s.repo.UpsertPlace(ctx, types.PlaceFromRecommendation(rec, rec.ImageURLs)); err != nil {
		l.ErrorContext(ctx, "Failed to cache place", slog.String("place", rec.Title), slog.Any("error", err))
	}
	return rec
}

func cloneResults(in []types.RecommendationResult) []types.RecommendationResult {
	out := make([]types.RecommendationResult, len(in))
	for i, r := range in {
		if r.Location != nil {
			loc := *r.Location
			r.Location = &loc
		}
		if r.ImageURLs != nil {
			r.ImageURLs = append(make([]string, 0, len(r.ImageURLs)), r.ImageURLs...)
		}
		out[i] = r
	}
	return out
}

// GetRecommendationCards runs the pipeline and decorates each result with
// visit windows and, given a reference point, a distance band.
func (s *ServiceImpl) GetRecommendationCards(ctx context.Context, req types.RecommendationRequest, sessionID string) ([]types.RecommendationCard, error) {
	results, err := s.GetTravelRecommendations(ctx, req.Query, sessionID, req.Filters)
	if err != nil {
		return nil, err
	}
	return poi.DecorateRecommendations(results, req.Reference), nil
}

// GetPlaceDetails returns the cached record, asking the generator only when
// the place was never cached. Generated details are cached before returning.
func (s *ServiceImpl) GetPlaceDetails(ctx context.Context, name string) (*types.PlaceDetails, error) {
	ctx, span := otel.Tracer("RecommendationService").Start(ctx, "GetPlaceDetails", trace.WithAttributes(
		attribute.String("place.name", name),
	))
	defer span.End()

	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: place name is required", types.ErrInvalidInput)
	}

	cached, err := s.repo.GetPlace(ctx, name)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to read place cache", slog.String("place", name), slog.Any("error", err))
	}
	if cached != nil {
		span.SetStatus(codes.Ok, "Served from cache")
		return cached, nil
	}

	details, err := s.generator.GetPlaceDetails(ctx, name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Generation failed")
		return nil, err
	}
	if details == nil {
		return nil, fmt.Errorf("place %q: %w", name, types.ErrNotFound)
	}
	if s.location != nil {
		if details.Coordinates() == nil {
			if c := s.location.Geocode(ctx, name); c != nil {
				details.Latitude, details.Longitude = &c.Lat, &c.Lng
			}
		}
		if len(details.ImageURLs) == 0 {
			details.ImageURLs = s.location.GetPhotos(ctx, name, s.opts.PhotoMaxWidth)
		}
	}
	if err := s.repo.UpsertPlace(ctx, *details); err != nil {
		s.logger.ErrorContext(ctx, "Failed to cache place details", slog.String("place", name), slog.Any("error", err))
	}
	span.SetStatus(codes.Ok, "Place details generated")
	return details, nil
}

func (s *ServiceImpl) PlanRoute(ctx context.Context, placeNames []string) (*types.RouteInfo, error) {
	if s.location == nil {
		return nil, fmt.Errorf("route planning: %w", types.ErrFeatureDisabled)
	}
	if len(placeNames) < 2 {
		return nil, fmt.Errorf("%w: a route needs at least two places", types.ErrInvalidInput)
	}
	return s.location.GenerateRoute(ctx, placeNames), nil
}

func (s *ServiceImpl) NearbyPlaces(ctx context.Context, lat, lng float64, radius int, keyword string) ([]types.Place, error) {
	if s.location == nil {
		return nil, fmt.Errorf("nearby search: %w", types.ErrFeatureDisabled)
	}
	if radius <= 0 {
		radius = s.opts.NearbyRadius
	}
	return s.location.NearbyPlaces(ctx, lat, lng, radius, keyword), nil
}

func (s *ServiceImpl) TravelTime(ctx context.Context, origin, destination types.Coordinates, mode string) (int, bool, error) {
	if s.location == nil {
		return 0, false, fmt.Errorf("travel time: %w", types.ErrFeatureDisabled)
	}
	mins, ok := s.location.TravelTimeMinutes(ctx, origin, destination, mode)
	return mins, ok, nil
}

func (s *ServiceImpl) AddFavorite(ctx context.Context, sessionID, placeName string) error {
	if strings.TrimSpace(placeName) == "" {
		return fmt.Errorf("%w: place name is required", types.ErrInvalidInput)
	}
	return s.repo.AddFavorite(ctx, sessionID, placeName)
}

func (s *ServiceImpl) RemoveFavorite(ctx context.Context, sessionID, placeName string) error {
	return s.repo.RemoveFavorite(ctx, sessionID, placeName)
}

func (s *ServiceImpl) GetFavorites(ctx context.Context, sessionID string) ([]string, error) {
	return s.repo.ListFavorites(ctx, sessionID)
}

func (s *ServiceImpl) GetFavoriteDetails(ctx context.Context, sessionID string) ([]types.PlaceDetails, error) {
	return s.repo.GetFavoriteDetails(ctx, sessionID)
}

func (s *ServiceImpl) EmailFavorites(ctx context.Context, sessionID, to string) error {
	ctx, span := otel.Tracer("RecommendationService").Start(ctx, "EmailFavorites")
	defer span.End()

	if s.mailer == nil {
		return fmt.Errorf("email export: %w", types.ErrFeatureDisabled)
	}
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("%w: recipient is required", types.ErrInvalidInput)
	}
	favorites, err := s.repo.GetFavoriteDetails(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to load favorites: %w", err)
	}
	if err := s.mailer.SendFavoritesEmail(ctx, to, favorites); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to email favorites: %w", err)
	}
	span.SetStatus(codes.Ok, "Favorites emailed")
	return nil
}
