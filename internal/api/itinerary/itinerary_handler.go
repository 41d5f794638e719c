package itinerary

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
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

// Routes mounts the itinerary endpoints.
func (h *HandlerImpl) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Route("/{itineraryID}", func(r chi.Router) {
		r.Delete("/", h.Delete)
		r.Get("/places", h.Places)
		r.Post("/places", h.AddPlace)
		r.Delete("/places/{name}", h.RemovePlace)
		r.Get("/route", h.Route)
	})
	return r
}

// request resolves the session and, when the route has one, the itinerary id.
func (h *HandlerImpl) request(w http.ResponseWriter, r *http.Request, withID bool) (string, uuid.UUID, bool) {
	sessionID, ok := appMiddleware.GetSessionIDFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Session required")
		return "", uuid.Nil, false
	}
	if !withID {
		return sessionID, uuid.Nil, true
	}
	id, err := uuid.Parse(chi.URLParam(r, "itineraryID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid itinerary ID format")
		return "", uuid.Nil, false
	}
	return sessionID, id, true
}

func (h *HandlerImpl) fail(w http.ResponseWriter, r *http.Request, l *slog.Logger, msg string, err error) {
	if api.StatusForError(err) >= http.StatusInternalServerError {
		l.ErrorContext(r.Context(), msg, slog.Any("error", err))
	} else {
		l.InfoContext(r.Context(), msg, slog.Any("error", err))
	}
	api.ErrorFromDomain(w, r, err)
}

func (h *HandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ItineraryHandler").Start(r.Context(), "List", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/itineraries"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "ListItineraries"))

	sessionID, _, ok := h.request(w, r, false)
	if !ok {
		return
	}
	its, err := h.service.List(ctx, sessionID)
	if err != nil {
		h.fail(w, r, l, "Failed to list itineraries", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, its)
}

func (h *HandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ItineraryHandler").Start(r.Context(), "Create", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/itineraries"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "CreateItinerary"))

	sessionID, _, ok := h.request(w, r, false)
	if !ok {
		return
	}
	var req types.CreateItineraryRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	it, err := h.service.Create(ctx, sessionID, req.Name)
	if err != nil {
		h.fail(w, r, l, "Failed to create itinerary", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, it)
}

func (h *HandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ItineraryHandler").Start(r.Context(), "Delete", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/itineraries/{itineraryID}"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "DeleteItinerary"))

	sessionID, id, ok := h.request(w, r, true)
	if !ok {
		return
	}
	if err := h.service.Delete(ctx, sessionID, id); err != nil {
		h.fail(w, r, l, "Failed to delete itinerary", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

func (h *HandlerImpl) Places(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ItineraryHandler").Start(r.Context(), "Places", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/itineraries/{itineraryID}/places"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "ItineraryPlaces"))

	sessionID, id, ok := h.request(w, r, true)
	if !ok {
		return
	}
	stops, err := h.service.Places(ctx, sessionID, id)
	if err != nil {
		h.fail(w, r, l, "Failed to load itinerary places", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, stops)
}

func (h *HandlerImpl) AddPlace(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ItineraryHandler").Start(r.Context(), "AddPlace", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/itineraries/{itineraryID}/places"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "AddItineraryPlace"))

	sessionID, id, ok := h.request(w, r, true)
	if !ok {
		return
	}
	var req types.AddItineraryPlaceRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	index, err := h.service.AddPlace(ctx, sessionID, id, req.PlaceName)
	if err != nil {
		h.fail(w, r, l, "Failed to add place to itinerary", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, map[string]any{
		"itinerary_id": id,
		"place_name":   req.PlaceName,
		"order_index":  index,
	})
}

func (h *HandlerImpl) RemovePlace(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ItineraryHandler").Start(r.Context(), "RemovePlace", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/itineraries/{itineraryID}/places/{name}"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "RemoveItineraryPlace"))

	sessionID, id, ok := h.request(w, r, true)
	if !ok {
		return
	}
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil || name == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid place name")
		return
	}
	if err := h.service.RemovePlace(ctx, sessionID, id, name); err != nil {
		h.fail(w, r, l, "Failed to remove place from itinerary", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

func (h *HandlerImpl) Route(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ItineraryHandler").Start(r.Context(), "Route", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/itineraries/{itineraryID}/route"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "ItineraryRoute"))

	sessionID, id, ok := h.request(w, r, true)
	if !ok {
		return
	}
	route, err := h.service.Route(ctx, sessionID, id)
	if err != nil {
		h.fail(w, r, l, "Failed to plan itinerary route", err)
		return
	}
	if route == nil {
		api.ErrorResponse(w, r, http.StatusNotFound, "No route found")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, route)
}
