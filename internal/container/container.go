package container

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/FACorreiaa/smart-travel-guide/app/db"
	"github.com/FACorreiaa/smart-travel-guide/config"
	"github.com/FACorreiaa/smart-travel-guide/internal/api/email"
	generativeAI "github.com/FACorreiaa/smart-travel-guide/internal/api/generative_ai"
	"github.com/FACorreiaa/smart-travel-guide/internal/api/itinerary"
	"github.com/FACorreiaa/smart-travel-guide/internal/api/location"
	"github.com/FACorreiaa/smart-travel-guide/internal/api/places"
	"github.com/FACorreiaa/smart-travel-guide/internal/api/recommendation"
	"github.com/FACorreiaa/smart-travel-guide/internal/api/weather"
	"github.com/FACorreiaa/smart-travel-guide/internal/types"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Logger *slog.Logger
	Pool   *pgxpool.Pool
	SQLite *sql.DB
	Store  places.Repository

	Recommendations *recommendation.ServiceImpl
	Itineraries     *itinerary.ServiceImpl
	Weather         *weather.ServiceImpl

	RecommendationHandler *recommendation.HandlerImpl
	ItineraryHandler      *itinerary.HandlerImpl
	WeatherHandler        *weather.HandlerImpl
}

// NewContainer initializes and returns a new dependency container. Providers
// whose credentials are missing are left out and their features report
// types.ErrFeatureDisabled; only a store failure is fatal.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}
	if err := c.openStore(ctx); err != nil {
		return nil, err
	}

	generator := newGenerator(ctx, cfg, logger)

	var loc location.Service
	if svc, err := location.NewService(cfg.Maps.APIKey, cfg.Maps.BaseURL, logger); err != nil {
		disabled(logger, "maps", err)
	} else {
		loc = svc
	}

	var mailer email.Service
	if svc, err := email.NewService(cfg.Email.Host, cfg.Email.Port, cfg.Email.Sender, cfg.Email.Password, logger); err != nil {
		disabled(logger, "email", err)
	} else {
		mailer = svc
	}

	c.Recommendations = recommendation.NewServiceImpl(c.Store, generator, loc, mailer, recommendation.Options{
		CacheTTL:      cfg.Cache.TTL,
		PhotoMaxWidth: cfg.Maps.PhotoMaxWidth,
		NearbyRadius:  cfg.Maps.NearbyRadius,
	}, logger)
	c.Itineraries = itinerary.NewServiceImpl(c.Store, loc, logger)
	c.Weather = weather.NewService(cfg.Weather.ForecastURL, cfg.Weather.GeocodingURL, cfg.Weather.Timeout, logger)

	c.RecommendationHandler = recommendation.NewHandlerImpl(c.Recommendations, logger)
	c.ItineraryHandler = itinerary.NewHandlerImpl(c.Itineraries, logger)
	c.WeatherHandler = weather.NewHandlerImpl(c.Weather, logger)
	return c, nil
}

// OpenStore builds only the Place Store, for commands that need nothing else.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}
	if err := c.openStore(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) openStore(ctx context.Context) error {
	switch c.Config.Store {
	case config.StorePostgres:
		dbConfig, err := database.NewDatabaseConfig(c.Config, c.Logger)
		if err != nil {
			return err
		}
		if err := database.RunMigrations(dbConfig.ConnectionURL, c.Logger); err != nil {
			return err
		}
		pool, err := database.Init(ctx, dbConfig.ConnectionURL, c.Logger)
		if err != nil {
			return err
		}
		c.Pool = pool
		if !c.WaitForDB(ctx) {
			pool.Close()
			return errors.New("database not ready")
		}
		c.Store = places.NewRepository(pool, c.Logger)
	case config.StoreSQLite, "":
		path := c.Config.Repositories.SQLite.Path
		if path == "" {
			path = database.MemoryDSN
		}
		db, err := database.OpenSQLite(path, c.Logger)
		if err != nil {
			return err
		}
		c.SQLite = db
		c.Store = places.NewSQLiteRepository(db, c.Logger)
	default:
		return fmt.Errorf("unknown store %q: %w", c.Config.Store, types.ErrInvalidInput)
	}
	return nil
}

func newGenerator(ctx context.Context, cfg *config.Config, logger *slog.Logger) generativeAI.RecommendationGenerator {
	var (
		text generativeAI.TextGenerator
		err  error
	)
	switch cfg.LLM.Provider {
	case config.ProviderOpenAI:
		text, err = generativeAI.NewOpenAIClient(cfg.LLM.OpenAIAPIKey, cfg.LLM.Model, cfg.LLM.OpenAIURL)
	default:
		text, err = generativeAI.NewAIClient(ctx, cfg.LLM.GeminiAPIKey, cfg.LLM.Model)
	}
	if err != nil {
		disabled(logger, "generation", err)
		return unavailableGenerator{}
	}
	language := cfg.LLM.Language
	if language == "" {
		language = generativeAI.DefaultLanguage
	}
	return generativeAI.NewRecommendationClient(text, language, logger)
}

func disabled(logger *slog.Logger, feature string, err error) {
	if errors.Is(err, types.ErrMissingCredential) {
		logger.Warn("Feature disabled: credential not configured", slog.String("feature", feature))
		return
	}
	logger.Error("Feature disabled: client setup failed", slog.String("feature", feature), slog.Any("error", err))
}

// unavailableGenerator stands in when no LLM provider is configured.
type unavailableGenerator struct{}

func (unavailableGenerator) Generate(context.Context, string, types.Filters) ([]types.RecommendationResult, error) {
	return nil, fmt.Errorf("generation: %w", types.ErrFeatureDisabled)
}

func (unavailableGenerator) GetPlaceDetails(context.Context, string) (*types.PlaceDetails, error) {
	return nil, fmt.Errorf("generation: %w", types.ErrFeatureDisabled)
}

// Pruner exposes the store's retention operations.
func (c *Container) Pruner() database.Pruner {
	return c.Store
}

// RetentionPolicy reads the retention windows from config.
func (c *Container) RetentionPolicy() database.RetentionPolicy {
	return database.RetentionPolicy{
		SearchRetention: c.Config.Cache.SearchRetention,
		PlaceRetention:  c.Config.Cache.PlaceRetention,
	}
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
	if c.SQLite != nil {
		if err := c.SQLite.Close(); err != nil {
			c.Logger.Warn("Error closing SQLite store", slog.Any("error", err))
		}
	}
}

// WaitForDB waits for the database to be ready
func (c *Container) WaitForDB(ctx context.Context) bool {
	return database.WaitForDB(ctx, c.Pool, c.Logger)
}
