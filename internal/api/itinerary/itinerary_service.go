package itinerary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/smart-travel-guide/internal/api/location"
	"github.com/FACorreiaa/smart-travel-guide/internal/types"
)

// Repository is the itinerary part of the Place Store.
type Repository interface {
	CreateItinerary(ctx context.Context, sessionID, name string) (*types.Itinerary, error)
	ListItineraries(ctx context.Context, sessionID string) ([]types.Itinerary, error)
	GetItinerary(ctx context.Context, sessionID string, id uuid.UUID) (*types.Itinerary, error)
	DeleteItinerary(ctx context.Context, sessionID string, id uuid.UUID) error
	AddPlaceToItinerary(ctx context.Context, itineraryID uuid.UUID, placeName string, orderIndex int) error
	RemovePlaceFromItinerary(ctx context.Context, itineraryID uuid.UUID, placeName string) error
	GetItineraryPlaces(ctx context.Context, itineraryID uuid.UUID) ([]types.ItineraryPlace, error)
}

type Service interface {
	Create(ctx context.Context, sessionID, name string) (*types.Itinerary, error)
	List(ctx context.Context, sessionID string) ([]types.Itinerary, error)
	Delete(ctx context.Context, sessionID string, id uuid.UUID) error
	AddPlace(ctx context.Context, sessionID string, id uuid.UUID, placeName string) (int, error)
	RemovePlace(ctx context.Context, sessionID string, id uuid.UUID, placeName string) error
	Places(ctx context.Context, sessionID string, id uuid.UUID) ([]types.ItineraryPlace, error)
	Route(ctx context.Context, sessionID string, id uuid.UUID) (*types.RouteInfo, error)
}

var _ Service = (*ServiceImpl)(nil)

type ServiceImpl struct {
	logger   *slog.Logger
	repo     Repository
	location location.Service
}

// NewServiceImpl builds the service; loc may be nil, which disables Route.
func NewServiceImpl(repo Repository, loc location.Service, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{logger: logger, repo: repo, location: loc}
}

func (s *ServiceImpl) Create(ctx context.Context, sessionID, name string) (*types.Itinerary, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "Create", trace.WithAttributes(
		attribute.String("session.id", sessionID),
	))
	defer span.End()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: itinerary name is required", types.ErrInvalidInput)
	}
	it, err := s.repo.CreateItinerary(ctx, sessionID, name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Create failed")
		return nil, err
	}
	s.logger.InfoContext(ctx, "Itinerary created", slog.String("id", it.ID.String()), slog.String("name", name))
	span.SetStatus(codes.Ok, "Itinerary created")
	return it, nil
}

func (s *ServiceImpl) List(ctx context.Context, sessionID string) ([]types.Itinerary, error) {
	return s.repo.ListItineraries(ctx, sessionID)
}

func (s *ServiceImpl) Delete(ctx context.Context, sessionID string, id uuid.UUID) error {
	return s.repo.DeleteItinerary(ctx, sessionID, id)
}

// owned returns ErrNotFound unless the itinerary belongs to the session.
func (s *ServiceImpl) owned(ctx context.Context, sessionID string, id uuid.UUID) error {
	it, err := s.repo.GetItinerary(ctx, sessionID, id)
	if err != nil {
		return err
	}
	if it == nil {
		return fmt.Errorf("itinerary %s: %w", id, types.ErrNotFound)
	}
	return nil
}

// AddPlace appends a place and returns the order index it was given: the
// current place count, moved past any index still held after a removal.
func (s *ServiceImpl) AddPlace(ctx context.Context, sessionID string, id uuid.UUID, placeName string) (int, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "AddPlace", trace.WithAttributes(
		attribute.String("itinerary.id", id.String()),
		attribute.String("place.name", placeName),
	))
	defer span.End()

	placeName = strings.TrimSpace(placeName)
	if placeName == "" {
		return 0, fmt.Errorf("%w: place name is required", types.ErrInvalidInput)
	}
	if err := s.owned(ctx, sessionID, id); err != nil {
		return 0, err
	}
	stops, err := s.repo.GetItineraryPlaces(ctx, id)
	if err != nil {
		return 0, err
	}

	used := make(map[int]struct{}, len(stops))
	for _, p := range stops {
		if p.PlaceName == placeName {
			return 0, types.ErrPlaceAlreadyInItinerary
		}
		used[p.OrderIndex] = struct{}{}
	}
	next := len(stops)
	for {
		if _, taken := used[next]; !taken {
			break
		}
		next++
	}

	if err := s.repo.AddPlaceToItinerary(ctx, id, placeName, next); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Add place failed")
		return 0, err
	}
	span.SetStatus(codes.Ok, "Place added")
	return next, nil
}

func (s *ServiceImpl) RemovePlace(ctx context.Context, sessionID string, id uuid.UUID, placeName string) error {
	if err := s.owned(ctx, sessionID, id); err != nil {
		return err
	}
	return s.repo.RemovePlaceFromItinerary(ctx, id, placeName)
}

func (s *ServiceImpl) Places(ctx context.Context, sessionID string, id uuid.UUID) ([]types.ItineraryPlace, error) {
	if err := s.owned(ctx, sessionID, id); err != nil {
		return nil, err
	}
	return s.repo.GetItineraryPlaces(ctx, id)
}

// Route plans a driving route through the stops in order. It is nil when the
// itinerary has fewer than two stops or the provider finds no route.
func (s *ServiceImpl) Route(ctx context.Context, sessionID string, id uuid.UUID) (*types.RouteInfo, error) {
	if s.location == nil {
		return nil, fmt.Errorf("route planning: %w", types.ErrFeatureDisabled)
	}
	stops, err := s.Places(ctx, sessionID, id)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(stops))
	for i, p := range stops {
		names[i] = p.PlaceName
	}
	return s.location.GenerateRoute(ctx, names), nil
}
