package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	appLogger "github.com/FACorreiaa/smart-travel-guide/app/logger"
	appMiddleware "github.com/FACorreiaa/smart-travel-guide/app/middleware"
	"github.com/FACorreiaa/smart-travel-guide/app/telemetry"
	"github.com/FACorreiaa/smart-travel-guide/internal/api/itinerary"
	"github.com/FACorreiaa/smart-travel-guide/internal/api/recommendation"
	"github.com/FACorreiaa/smart-travel-guide/internal/api/weather"
)

// Config contains dependencies needed for the router setup
type Config struct {
	RecommendationHandler *recommendation.HandlerImpl
	ItineraryHandler      *itinerary.HandlerImpl
	WeatherHandler        *weather.HandlerImpl
	AllowedOrigins        []string
	RequestTimeout        time.Duration
	Logger                *slog.Logger
}

// SetupRouter builds the application router with the server-wide middleware
// already applied.
func SetupRouter(cfg *Config) chi.Router {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	r := chi.NewMux()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", appMiddleware.SessionHeader},
		ExposedHeaders:   []string{appMiddleware.SessionHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(appMiddleware.Session)
	r.Use(appLogger.StructuredLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(telemetry.Middleware)
	r.Use(middleware.StripSlashes)
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.Compress(5, "application/json"))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		rec := cfg.RecommendationHandler
		r.Post("/recommendations", rec.GetRecommendations)
		r.Get("/places/{name}", rec.GetPlaceDetails)
		r.Post("/routes", rec.PlanRoute)
		r.Get("/nearby", rec.NearbyPlaces)
		r.Get("/travel-time", rec.TravelTime)

		r.Route("/favorites", func(r chi.Router) {
			r.Get("/", rec.ListFavorites)
			r.Post("/", rec.AddFavorite)
			r.Post("/email", rec.EmailFavorites)
			r.Delete("/{name}", rec.RemoveFavorite)
		})

		r.Mount("/itineraries", cfg.ItineraryHandler.Routes())
		r.Get("/weather", cfg.WeatherHandler.GetForecast)
	})

	return r
}
