package recommendation

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	appMiddleware "github.com/FACorreiaa/smart-travel-guide/app/middleware"
	"github.com/FACorreiaa/smart-travel-guide/internal/api"
	"github.com/FACorreiaa/smart-travel-guide/internal/types"
)

type HandlerImpl struct {
	service Service
	logger  *slog.Logger
}

func NewHandlerImpl(service Service, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{service: service, logger: logger}
}

func (h *HandlerImpl) session(w http.ResponseWriter, r *http.Request) (string, bool) {
	sessionID, ok := appMiddleware.GetSessionIDFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Session required")
	}
	return sessionID, ok
}

func (h *HandlerImpl) fail(w http.ResponseWriter, r *http.Request, l *slog.Logger, msg string, err error) {
	status := api.StatusForError(err)
	if status >= http.StatusInternalServerError {
		l.ErrorContext(r.Context(), msg, slog.Any("error", err))
	} else {
		l.WarnContext(r.Context(), msg, slog.Any("error", err))
	}
	api.ErrorFromDomain(w, r, err)
}

// GetRecommendations handles POST /recommendations.
func (h *HandlerImpl) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("RecommendationHandler").Start(r.Context(), "GetRecommendations", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/recommendations"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "GetRecommendations"))

	sessionID, ok := h.session(w, r)
	if !ok {
		return
	}
	var req types.RecommendationRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	cards, err := h.service.GetRecommendationCards(ctx, req, sessionID)
	if err != nil {
		h.fail(w, r, l, "Failed to get recommendations", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, cards)
}

// GetPlaceDetails handles GET /places/{name}.
func (h *HandlerImpl) GetPlaceDetails(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("RecommendationHandler").Start(r.Context(), "GetPlaceDetails", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/places/{name}"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "GetPlaceDetails"))

	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid place name")
		return
	}
	details, err := h.service.GetPlaceDetails(ctx, name)
	if err != nil {
		h.fail(w, r, l, "Failed to get place details", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, details)
}

// PlanRoute handles POST /routes.
func (h *HandlerImpl) PlanRoute(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("RecommendationHandler").Start(r.Context(), "PlanRoute", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/routes"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "PlanRoute"))

	var req types.RouteRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	route, err := h.service.PlanRoute(ctx, req.Places)
	if err != nil {
		h.fail(w, r, l, "Failed to plan route", err)
		return
	}
	if route == nil {
		api.ErrorResponse(w, r, http.StatusNotFound, "No route found")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, route)
}

// NearbyPlaces handles GET /nearby?lat=..&lng=..&radius=..&keyword=..
func (h *HandlerImpl) NearbyPlaces(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("RecommendationHandler").Start(r.Context(), "NearbyPlaces", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/nearby"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "NearbyPlaces"))

	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(q.Get("lng"), 64)
	if errLat != nil || errLng != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "lat and lng are required")
		return
	}
	radius := 0
	if s := q.Get("radius"); s != "" {
		var err error
		if radius, err = strconv.Atoi(s); err != nil || radius < 0 {
			api.ErrorResponse(w, r, http.StatusBadRequest, "radius must be a positive integer")
			return
		}
	}
	found, err := h.service.NearbyPlaces(ctx, lat, lng, radius, q.Get("keyword"))
	if err != nil {
		h.fail(w, r, l, "Failed to search nearby places", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, found)
}

// TravelTime handles GET /travel-time?from=lat,lng&to=lat,lng&mode=walking.
func (h *HandlerImpl) TravelTime(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("RecommendationHandler").Start(r.Context(), "TravelTime", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/travel-time"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "TravelTime"))

	q := r.URL.Query()
	from, errFrom := parseLatLng(q.Get("from"))
	to, errTo := parseLatLng(q.Get("to"))
	if errFrom != nil || errTo != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "from and to must be lat,lng")
		return
	}
	mode := q.Get("mode")
	if mode == "" {
		mode = "driving"
	}
	mins, ok, err := h.service.TravelTime(ctx, from, to, mode)
	if err != nil {
		h.fail(w, r, l, "Failed to get travel time", err)
		return
	}
	if !ok {
		api.ErrorResponse(w, r, http.StatusNotFound, "No travel time available")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]any{"minutes": mins, "mode": mode})
}

// ListFavorites handles GET /favorites; ?details=true joins the cached place records.
func (h *HandlerImpl) ListFavorites(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("RecommendationHandler").Start(r.Context(), "ListFavorites", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/favorites"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "ListFavorites"))

	sessionID, ok := h.session(w, r)
	if !ok {
		return
	}
	if details, _ := strconv.ParseBool(r.URL.Query().Get("details")); details {
		favorites, err := h.service.GetFavoriteDetails(ctx, sessionID)
		if err != nil {
			h.fail(w, r, l, "Failed to load favorite details", err)
			return
		}
		api.WriteJSONResponse(w, r, http.StatusOK, favorites)
		return
	}
	names, err := h.service.GetFavorites(ctx, sessionID)
	if err != nil {
		h.fail(w, r, l, "Failed to list favorites", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, names)
}

// AddFavorite handles POST /favorites.
func (h *HandlerImpl) AddFavorite(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("RecommendationHandler").Start(r.Context(), "AddFavorite", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/favorites"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "AddFavorite"))

	sessionID, ok := h.session(w, r)
	if !ok {
		return
	}
	var req types.FavoriteRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.service.AddFavorite(ctx, sessionID, req.PlaceName); err != nil {
		h.fail(w, r, l, "Failed to add favorite", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, map[string]string{"message": "Favorite added"})
}

// RemoveFavorite handles DELETE /favorites/{name}.
func (h *HandlerImpl) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("RecommendationHandler").Start(r.Context(), "RemoveFavorite", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/favorites/{name}"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "RemoveFavorite"))

	sessionID, ok := h.session(w, r)
	if !ok {
		return
	}
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil || name == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid place name")
		return
	}
	if err := h.service.RemoveFavorite(ctx, sessionID, name); err != nil {
		h.fail(w, r, l, "Failed to remove favorite", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

// EmailFavorites handles POST /favorites/email.
func (h *HandlerImpl) EmailFavorites(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("RecommendationHandler").Start(r.Context(), "EmailFavorites", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/favorites/email"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "EmailFavorites"))

	sessionID, ok := h.session(w, r)
	if !ok {
		return
	}
	var req types.EmailFavoritesRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.service.EmailFavorites(ctx, sessionID, req.To); err != nil {
		h.fail(w, r, l, "Failed to email favorites", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]string{"message": "Favorites sent"})
}

func parseLatLng(s string) (types.Coordinates, error) {
	latStr, lngStr, found := strings.Cut(s, ",")
	if !found {
		return types.Coordinates{}, fmt.Errorf("%w: expected lat,lng", types.ErrInvalidInput)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return types.Coordinates{}, fmt.Errorf("%w: latitude: %w", types.ErrInvalidInput, err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil {
		return types.Coordinates{}, fmt.Errorf("%w: longitude: %w", types.ErrInvalidInput, err)
	}
	return types.Coordinates{Lat: lat, Lng: lng}, nil
}
