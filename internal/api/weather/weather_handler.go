package weather

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/smart-travel-guide/internal/api"
)

// Open-Meteo serves at most this many forecast days.
const maxForecastDays = 16

type HandlerImpl struct {
	service Service
	logger  *slog.Logger
	now     func() time.Time
}

func NewHandlerImpl(service Service, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{service: service, logger: logger, now: time.Now}
}

// GetForecast serves GET /weather?city=..|lat=..&lng=..&start=YYYY-MM-DD&end=YYYY-MM-DD.
// Without dates the next seven days are returned.
func (h *HandlerImpl) GetForecast(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("WeatherHandler").Start(r.Context(), "GetForecast", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/weather"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "GetForecast"))
	q := r.URL.Query()

	var lat, lng float64
	if city := q.Get("city"); city != "" {
		coords := h.service.GeocodeCity(ctx, city)
		if coords == nil {
			api.ErrorResponse(w, r, http.StatusNotFound, "City not found")
			return
		}
		lat, lng = coords.Lat, coords.Lng
	} else {
		var errLat, errLng error
		lat, errLat = strconv.ParseFloat(q.Get("lat"), 64)
		lng, errLng = strconv.ParseFloat(q.Get("lng"), 64)
		if errLat != nil || errLng != nil {
			api.ErrorResponse(w, r, http.StatusBadRequest, "Either city or lat and lng are required")
			return
		}
	}

	today := h.now().Truncate(24 * time.Hour)
	start, end := today, today.AddDate(0, 0, 6)
	if s := q.Get("start"); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			api.ErrorResponse(w, r, http.StatusBadRequest, "start must be YYYY-MM-DD")
			return
		}
		start, end = t, t.AddDate(0, 0, 6)
	}
	if e := q.Get("end"); e != "" {
		t, err := time.Parse(dateLayout, e)
		if err != nil {
			api.ErrorResponse(w, r, http.StatusBadRequest, "end must be YYYY-MM-DD")
			return
		}
		end = t
	}
	if end.Before(start) || end.Sub(start) >= maxForecastDays*24*time.Hour {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid date range")
		return
	}

	days := h.service.GetDailyForecast(ctx, lat, lng, start, end)
	l.DebugContext(ctx, "Forecast served", slog.Int("days", len(days)))
	api.WriteJSONResponse(w, r, http.StatusOK, days)
}
