package location

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"googlemaps.github.io/maps"

	"github.com/FACorreiaa/smart-travel-guide/app/observability/metrics"
	"github.com/FACorreiaa/smart-travel-guide/internal/types"
)

const (
	DefaultPhotoMaxWidth = 400
	DefaultNearbyRadius  = 5000

	photoEndpoint = "https://maps.googleapis.com/maps/api/place/photo"
)

// Service is the Location Client. Every operation fails soft: provider errors
// are logged and turned into an absent or empty result.
type Service interface {
	Geocode(ctx context.Context, placeName string) *types.Coordinates
	GetPhotos(ctx context.Context, placeName string, maxWidth int) []string
	GenerateRoute(ctx context.Context, places []string) *types.RouteInfo
	TravelTimeMinutes(ctx context.Context, origin, destination types.Coordinates, mode string) (int, bool)
	NearbyPlaces(ctx context.Context, lat, lng float64, radius int, keyword string) []types.Place
}

var _ Service = (*ServiceImpl)(nil)

type ServiceImpl struct {
	logger *slog.Logger
	client *maps.Client
	apiKey string
}

// NewService builds the client. baseURL is only set to point at a test server.
func NewService(apiKey, baseURL string, logger *slog.Logger) (*ServiceImpl, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google maps api key: %w", types.ErrMissingCredential)
	}
	opts := []maps.ClientOption{maps.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, maps.WithBaseURL(baseURL))
	}
	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &ServiceImpl{logger: logger, client: client, apiKey: apiKey}, nil
}

func (s *ServiceImpl) fail(ctx context.Context, span trace.Span, op string, err error, attrs ...any) {
	span.RecordError(err)
	span.SetStatus(codes.Error, op+" failed")
	metrics.Get().ProviderFailuresTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", "google_maps"),
		attribute.String("operation", op),
	))
	s.logger.ErrorContext(ctx, "Maps request failed", append([]any{slog.String("operation", op), slog.Any("error", err)}, attrs...)...)
}

func (s *ServiceImpl) Geocode(ctx context.Context, placeName string) *types.Coordinates {
	ctx, span := otel.Tracer("LocationService").Start(ctx, "Geocode", trace.WithAttributes(
		attribute.String("place.name", placeName),
	))
	defer span.End()

	results, err := s.client.Geocode(ctx, &maps.GeocodingRequest{Address: placeName})
	if err != nil {
		s.fail(ctx, span, "geocode", err, slog.String("place", placeName))
		return nil
	}
	if len(results) == 0 {
		span.SetStatus(codes.Ok, "No match")
		return nil
	}
	loc := results[0].Geometry.Location
	span.SetStatus(codes.Ok, "Geocoded")
	return &types.Coordinates{Lat: loc.Lat, Lng: loc.Lng}
}

func (s *ServiceImpl) GetPhotos(ctx context.Context, placeName string, maxWidth int) []string {
	ctx, span := otel.Tracer("LocationService").Start(ctx, "GetPhotos", trace.WithAttributes(
		attribute.String("place.name", placeName),
	))
	defer span.End()

	if maxWidth <= 0 {
		maxWidth = DefaultPhotoMaxWidth
	}

	search, err := s.client.TextSearch(ctx, &maps.TextSearchRequest{Query: placeName})
	if err != nil {
		s.fail(ctx, span, "text_search", err, slog.String("place", placeName))
		return []string{}
	}
	if len(search.Results) == 0 || search.Results[0].PlaceID == "" {
		span.SetStatus(codes.Ok, "No place id")
		return []string{}
	}

	details, err := s.client.PlaceDetails(ctx, &maps.PlaceDetailsRequest{
		PlaceID: search.Results[0].PlaceID,
		Fields:  []maps.PlaceDetailsFieldMask{maps.PlaceDetailsFieldMaskPhotos},
	})
	if err != nil {
		s.fail(ctx, span, "place_details", err, slog.String("place", placeName))
		return []string{}
	}

	urls := make([]string, 0, len(details.Photos))
	for _, photo := range details.Photos {
		if photo.PhotoReference == "" {
			continue
		}
		urls = append(urls, s.photoURL(photo.PhotoReference, maxWidth))
	}
	span.SetAttributes(attribute.Int("photos.count", len(urls)))
	span.SetStatus(codes.Ok, "Photos resolved")
	return urls
}

func (s *ServiceImpl) photoURL(reference string, maxWidth int) string {
	q := url.Values{}
	q.Set("maxwidth", fmt.Sprint(maxWidth))
	q.Set("photo_reference", reference)
	q.Set("key", s.apiKey)
	return photoEndpoint + "?" + q.Encode()
}

// GenerateRoute plans a driving route from the first place to the last, with
// the places in between as waypoints. Legs are summed.
func (s *ServiceImpl) GenerateRoute(ctx context.Context, places []string) *types.RouteInfo {
	if len(places) < 2 {
		return nil
	}
	ctx, span := otel.Tracer("LocationService").Start(ctx, "GenerateRoute", trace.WithAttributes(
		attribute.Int("places.count", len(places)),
	))
	defer span.End()

	req := &maps.DirectionsRequest{
		Origin:      places[0],
		Destination: places[len(places)-1],
		Mode:        maps.TravelModeDriving,
	}
	if len(places) > 2 {
		req.Waypoints = places[1 : len(places)-1]
	}
	routes, _, err := s.client.Directions(ctx, req)
	if err != nil {
		s.fail(ctx, span, "directions", err)
		return nil
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		span.SetStatus(codes.Ok, "No route")
		return nil
	}

	legs := routes[0].Legs
	info := &types.RouteInfo{Steps: []string{}}
	var meters int
	var duration time.Duration
	for _, leg := range legs {
		meters += leg.Distance.Meters
		duration += leg.Duration
		for _, step := range leg.Steps {
			if text := StripHTML(step.HTMLInstructions); text != "" {
				info.Steps = append(info.Steps, text)
			}
		}
	}
	info.Distance = formatDistance(meters)
	if len(legs) == 1 && legs[0].Distance.HumanReadable != "" {
		info.Distance = legs[0].Distance.HumanReadable
	}
	info.Duration = formatDuration(duration)
	span.SetStatus(codes.Ok, "Route planned")
	return info
}

func formatDistance(meters int) string {
	if meters < 1000 {
		return fmt.Sprintf("%d m", meters)
	}
	return fmt.Sprintf("%.1f km", float64(meters)/1000)
}

func formatDuration(d time.Duration) string {
	mins := int(math.Round(d.Minutes()))
	if mins < 60 {
		return fmt.Sprintf("%d mins", mins)
	}
	h, m := mins/60, mins%60
	hours := "hours"
	if h == 1 {
		hours = "hour"
	}
	if m == 0 {
		return fmt.Sprintf("%d %s", h, hours)
	}
	return fmt.Sprintf("%d %s %d mins", h, hours, m)
}

var travelModes = map[string]maps.Mode{
	"driving":   maps.TravelModeDriving,
	"walking":   maps.TravelModeWalking,
	"transit":   maps.TravelModeTransit,
	"bicycling": maps.TravelModeBicycling,
}

// TravelTimeMinutes returns the travel time rounded to the nearest minute.
// Unknown modes fall back to driving.
func (s *ServiceImpl) TravelTimeMinutes(ctx context.Context, origin, destination types.Coordinates, mode string) (int, bool) {
	ctx, span := otel.Tracer("LocationService").Start(ctx, "TravelTimeMinutes", trace.WithAttributes(
		attribute.String("mode", mode),
	))
	defer span.End()

	m, ok := travelModes[strings.ToLower(mode)]
	if !ok {
		m = maps.TravelModeDriving
	}
	resp, err := s.client.DistanceMatrix(ctx, &maps.DistanceMatrixRequest{
		Origins:      []string{latLng(origin)},
		Destinations: []string{latLng(destination)},
		Mode:         m,
	})
	if err != nil {
		s.fail(ctx, span, "distance_matrix", err)
		return 0, false
	}
	if resp == nil || len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 {
		return 0, false
	}
	el := resp.Rows[0].Elements[0]
	if el.Status != "" && el.Status != "OK" {
		span.SetStatus(codes.Ok, "No element: "+el.Status)
		return 0, false
	}
	span.SetStatus(codes.Ok, "Travel time resolved")
	return int(math.Round(el.Duration.Seconds() / 60)), true
}

func latLng(c types.Coordinates) string {
	return fmt.Sprintf("%g,%g", c.Lat, c.Lng)
}

func (s *ServiceImpl) NearbyPlaces(ctx context.Context, lat, lng float64, radius int, keyword string) []types.Place {
	ctx, span := otel.Tracer("LocationService").Start(ctx, "NearbyPlaces", trace.WithAttributes(
		attribute.Float64("latitude", lat),
		attribute.Float64("longitude", lng),
		attribute.Int("radius", radius),
	))
	defer span.End()

	if radius <= 0 {
		radius = DefaultNearbyRadius
	}
	resp, err := s.client.NearbySearch(ctx, &maps.NearbySearchRequest{
		Location: &maps.LatLng{Lat: lat, Lng: lng},
		Radius:   uint(radius),
		Keyword:  keyword,
	})
	if err != nil {
		s.fail(ctx, span, "nearby_search", err)
		return []types.Place{}
	}

	out := make([]types.Place, 0, len(resp.Results))
	for _, r := range resp.Results {
		category := ""
		if len(r.Types) > 0 {
			category = CategoryFromType(r.Types[0])
		}
		out = append(out, types.Place{
			Name:        r.Name,
			Latitude:    r.Geometry.Location.Lat,
			Longitude:   r.Geometry.Location.Lng,
			Description: fmt.Sprintf("A %s located nearby.", category),
			Category:    category,
			Rating:      float64(r.Rating),
		})
	}
	span.SetStatus(codes.Ok, "Nearby places found")
	return out
}

// CategoryFromType turns a provider type tag such as "tourist_attraction"
// into "Tourist Attraction".
func CategoryFromType(tag string) string {
	return cases.Title(language.Und).String(strings.ReplaceAll(tag, "_", " "))
}
