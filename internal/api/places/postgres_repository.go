package places

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/smart-travel-guide/internal/types"
)

const pgUniqueViolation = "23505"
const pgForeignKeyViolation = "23503"

// DBTX is the subset of *pgxpool.Pool used by the repository; pgxmock satisfies it too.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ Repository = (*RepositoryImpl)(nil)

// RepositoryImpl is the Postgres Place Store.
type RepositoryImpl struct {
	logger *slog.Logger
	pgpool DBTX
}

func NewRepository(pgpool DBTX, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *RepositoryImpl) UpsertPlace(ctx context.Context, place types.PlaceDetails) error {
	ctx, span := otel.Tracer("PlacesRepository").Start(ctx, "UpsertPlace", trace.WithAttributes(
		attribute.String("place.name", place.Name),
	))
	defer span.End()

	query := `
        INSERT INTO places_cache (name, latitude, longitude, description, category, rating, image_urls, cached_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
    `
	_, err := r.pgpool.Exec(ctx, query,
		place.Name, place.Latitude, place.Longitude, place.Description, place.Category, place.Rating,
		nonNilURLs(place.ImageURLs),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to upsert place")
		queryFailed(ctx, backendPostgres)
		r.logger.ErrorContext(ctx, "Failed to upsert place", slog.String("name", place.Name), slog.Any("error", err))
		return fmt.Errorf("failed to upsert place: %w", err)
	}
	span.SetStatus(codes.Ok, "Place cached")
	return nil
}

func (r *RepositoryImpl) GetPlace(ctx context.Context, name string) (*types.PlaceDetails, error) {
	ctx, span := otel.Tracer("PlacesRepository").Start(ctx, "GetPlace", trace.WithAttributes(
		attribute.String("place.name", name),
	))
	defer span.End()

	query := `
        SELECT name, latitude, longitude, description, category, rating, image_urls, cached_at
        FROM places_cache
        WHERE name = $1
        ORDER BY cached_at DESC, id DESC
        LIMIT 1
    `
	var p types.PlaceDetails
	err := r.pgpool.QueryRow(ctx, query, name).Scan(
		&p.Name, &p.Latitude, &p.Longitude, &p.Description, &p.Category, &p.Rating, &p.ImageURLs, &p.CachedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "Place not cached")
			return nil, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to query place")
		return nil, fmt.Errorf("failed to get place: %w", err)
	}
	p.ImageURLs = nonNilURLs(p.ImageURLs)
	span.SetStatus(codes.Ok, "Place found")
	return &p, nil
}

func (r *RepositoryImpl) SaveSearch(ctx context.Context, cacheKey string, results []types.RecommendationResult, sessionID string) error {
	raw, err := encodeSearch(results)
	if err != nil {
		return err
	}
	query := `INSERT INTO search_history (cache_key, raw_results, session_id, created_at) VALUES ($1, $2, $3, NOW())`
	if _, err = r.pgpool.Exec(ctx, query, cacheKey, raw, sessionID); err != nil {
		queryFailed(ctx, backendPostgres)
		r.logger.ErrorContext(ctx, "Failed to save search", slog.String("cache_key", cacheKey), slog.Any("error", err))
		return fmt.Errorf("failed to save search: %w", err)
	}
	return nil
}

func (r *RepositoryImpl) GetSearch(ctx context.Context, cacheKey string) ([]types.RecommendationResult, bool, error) {
	query := `
        SELECT raw_results
        FROM search_history
        WHERE cache_key = $1
        ORDER BY created_at DESC, id DESC
        LIMIT 1
    `
	var raw []byte
	if err := r.pgpool.QueryRow(ctx, query, cacheKey).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get search: %w", err)
	}
	results, err := decodeSearch(raw)
	if err != nil {
		return nil, false, err
	}
	return results, true, nil
}

func (r *RepositoryImpl) AddFavorite(ctx context.Context, sessionID, placeName string) error {
	query := `
        INSERT INTO user_favorites (session_id, place_name, added_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (session_id, place_name) DO NOTHING
    `
	if _, err := r.pgpool.Exec(ctx, query, sessionID, placeName); err != nil {
		queryFailed(ctx, backendPostgres)
		r.logger.ErrorContext(ctx, "Failed to add favorite", slog.Any("error", err))
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return nil
}

func (r *RepositoryImpl) RemoveFavorite(ctx context.Context, sessionID, placeName string) error {
	query := `DELETE FROM user_favorites WHERE session_id = $1 AND place_name = $2`
	if _, err := r.pgpool.Exec(ctx, query, sessionID, placeName); err != nil {
		queryFailed(ctx, backendPostgres)
		r.logger.ErrorContext(ctx, "Failed to remove favorite", slog.Any("error", err))
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	return nil
}

func (r *RepositoryImpl) ListFavorites(ctx context.Context, sessionID string) ([]string, error) {
	query := `SELECT place_name FROM user_favorites WHERE session_id = $1 ORDER BY added_at, id`
	rows, err := r.pgpool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan favorite: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating favorites: %w", err)
	}
	return names, nil
}

func (r *RepositoryImpl) GetFavoriteDetails(ctx context.Context, sessionID string) ([]types.PlaceDetails, error) {
	ctx, span := otel.Tracer("PlacesRepository").Start(ctx, "GetFavoriteDetails")
	defer span.End()

	query := `
        SELECT f.place_name, p.latitude, p.longitude, p.description, p.category, p.rating, p.image_urls, p.cached_at
        FROM user_favorites f
        LEFT JOIN LATERAL (
            SELECT latitude, longitude, description, category, rating, image_urls, cached_at
            FROM places_cache pc
            WHERE pc.name = f.place_name
            ORDER BY pc.cached_at DESC, pc.id DESC
            LIMIT 1
        ) p ON TRUE
        WHERE f.session_id = $1
        ORDER BY f.added_at, f.id
    `
	rows, err := r.pgpool.Query(ctx, query, sessionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to query favorites")
		return nil, fmt.Errorf("failed to get favorite details: %w", err)
	}
	defer rows.Close()

	details := []types.PlaceDetails{}
	for rows.Next() {
		var p types.PlaceDetails
		var cachedAt *time.Time
		if err := rows.Scan(&p.Name, &p.Latitude, &p.Longitude, &p.Description, &p.Category, &p.Rating, &p.ImageURLs, &cachedAt); err != nil {
			return nil, fmt.Errorf("failed to scan favorite details: %w", err)
		}
		if cachedAt != nil {
			p.CachedAt = *cachedAt
		}
		p.ImageURLs = nonNilURLs(p.ImageURLs)
		details = append(details, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating favorite details: %w", err)
	}
	span.SetStatus(codes.Ok, "Favorite details loaded")
	return details, nil
}

func (r *RepositoryImpl) CreateItinerary(ctx context.Context, sessionID, name string) (*types.Itinerary, error) {
	ctx, span := otel.Tracer("PlacesRepository").Start(ctx, "CreateItinerary", trace.WithAttributes(
		attribute.String("itinerary.name", name),
	))
	defer span.End()

	it := types.Itinerary{ID: uuid.New(), SessionID: sessionID, Name: name}
	query := `
        INSERT INTO itineraries (id, session_id, name, created_at)
        VALUES ($1, $2, $3, NOW())
        RETURNING created_at
    `
	if err := r.pgpool.QueryRow(ctx, query, it.ID, sessionID, name).Scan(&it.CreatedAt); err != nil {
		if isPgError(err, pgUniqueViolation, "") {
			span.SetStatus(codes.Ok, "Itinerary exists")
			return nil, types.ErrItineraryExists
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create itinerary")
		queryFailed(ctx, backendPostgres)
		r.logger.ErrorContext(ctx, "Failed to create itinerary", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create itinerary: %w", err)
	}
	span.SetStatus(codes.Ok, "Itinerary created")
	return &it, nil
}

func (r *RepositoryImpl) ListItineraries(ctx context.Context, sessionID string) ([]types.Itinerary, error) {
	query := `
        SELECT id, session_id, name, created_at
        FROM itineraries
        WHERE session_id = $1
        ORDER BY created_at, name
    `
	rows, err := r.pgpool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list itineraries: %w", err)
	}
	defer rows.Close()

	itineraries := []types.Itinerary{}
	for rows.Next() {
		var it types.Itinerary
		if err := rows.Scan(&it.ID, &it.SessionID, &it.Name, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan itinerary: %w", err)
		}
		itineraries = append(itineraries, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating itineraries: %w", err)
	}
	return itineraries, nil
}

func (r *RepositoryImpl) GetItinerary(ctx context.Context, sessionID string, id uuid.UUID) (*types.Itinerary, error) {
	query := `SELECT id, session_id, name, created_at FROM itineraries WHERE id = $1 AND session_id = $2`
	var it types.Itinerary
	if err := r.pgpool.QueryRow(ctx, query, id, sessionID).Scan(&it.ID, &it.SessionID, &it.Name, &it.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get itinerary: %w", err)
	}
	return &it, nil
}

func (r *RepositoryImpl) DeleteItinerary(ctx context.Context, sessionID string, id uuid.UUID) error {
	tag, err := r.pgpool.Exec(ctx, `DELETE FROM itineraries WHERE id = $1 AND session_id = $2`, id, sessionID)
	if err != nil {
		queryFailed(ctx, backendPostgres)
		r.logger.ErrorContext(ctx, "Failed to delete itinerary", slog.Any("error", err))
		return fmt.Errorf("failed to delete itinerary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *RepositoryImpl) AddPlaceToItinerary(ctx context.Context, itineraryID uuid.UUID, placeName string, orderIndex int) error {
	query := `INSERT INTO itinerary_places (itinerary_id, place_name, order_index) VALUES ($1, $2, $3)`
	if _, err := r.pgpool.Exec(ctx, query, itineraryID, placeName, orderIndex); err != nil {
		switch {
		case isPgError(err, pgUniqueViolation, "itinerary_places_place_key"):
			return types.ErrPlaceAlreadyInItinerary
		case isPgError(err, pgForeignKeyViolation, ""):
			return types.ErrNotFound
		}
		queryFailed(ctx, backendPostgres)
		r.logger.ErrorContext(ctx, "Failed to add place to itinerary", slog.Any("error", err))
		return fmt.Errorf("failed to add place to itinerary: %w", err)
	}
	return nil
}

func (r *RepositoryImpl) RemovePlaceFromItinerary(ctx context.Context, itineraryID uuid.UUID, placeName string) error {
	query := `DELETE FROM itinerary_places WHERE itinerary_id = $1 AND place_name = $2`
	tag, err := r.pgpool.Exec(ctx, query, itineraryID, placeName)
	if err != nil {
		return fmt.Errorf("failed to remove place from itinerary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *RepositoryImpl) GetItineraryPlaces(ctx context.Context, itineraryID uuid.UUID) ([]types.ItineraryPlace, error) {
	query := `
        SELECT ip.itinerary_id, ip.place_name, ip.order_index,
               p.latitude, p.longitude, p.description, p.category, p.rating, p.image_urls
        FROM itinerary_places ip
        LEFT JOIN LATERAL (
            SELECT latitude, longitude, description, category, rating, image_urls
            FROM places_cache pc
            WHERE pc.name = ip.place_name
            ORDER BY pc.cached_at DESC, pc.id DESC
            LIMIT 1
        ) p ON TRUE
        WHERE ip.itinerary_id = $1
        ORDER BY ip.order_index
    `
	rows, err := r.pgpool.Query(ctx, query, itineraryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get itinerary places: %w", err)
	}
	defer rows.Close()

	stops := []types.ItineraryPlace{}
	for rows.Next() {
		var s types.ItineraryPlace
		if err := rows.Scan(&s.ItineraryID, &s.PlaceName, &s.OrderIndex,
			&s.Latitude, &s.Longitude, &s.Description, &s.Category, &s.Rating, &s.ImageURLs); err != nil {
			return nil, fmt.Errorf("failed to scan itinerary place: %w", err)
		}
		s.ImageURLs = nonNilURLs(s.ImageURLs)
		stops = append(stops, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating itinerary places: %w", err)
	}
	return stops, nil
}

func (r *RepositoryImpl) PruneSearchHistory(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := r.pgpool.Exec(ctx, `DELETE FROM search_history WHERE created_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to prune search history: %w", err)
	}
	return tag.RowsAffected(), nil
}

// PrunePlaces deletes superseded rows older than the cutoff. The current row
// of every name survives regardless of age.
func (r *RepositoryImpl) PrunePlaces(ctx context.Context, olderThan time.Time) (int64, error) {
	query := `
        DELETE FROM places_cache pc
        WHERE pc.cached_at < $1
          AND EXISTS (
              SELECT 1 FROM places_cache newer
              WHERE newer.name = pc.name
                AND (newer.cached_at > pc.cached_at OR (newer.cached_at = pc.cached_at AND newer.id > pc.id))
          )
    `
	tag, err := r.pgpool.Exec(ctx, query, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to prune places: %w", err)
	}
	return tag.RowsAffected(), nil
}

// isPgError matches a Postgres error code and, when constraint is non-empty, the constraint name.
func isPgError(err error, code, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != code {
		return false
	}
	return constraint == "" || strings.EqualFold(pgErr.ConstraintName, constraint)
}
