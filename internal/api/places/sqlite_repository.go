package places

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/FACorreiaa/smart-travel-guide/internal/types"
)

// sqliteTimeLayout is fixed-width so stored timestamps sort lexically.
const sqliteTimeLayout = "2006-01-02 15:04:05.000000000"

var _ Repository = (*SQLiteRepository)(nil)

// SQLiteRepository is the embedded Place Store used for single-user deployments
// and tests. Timestamps are written from Go; image URLs are stored as JSON text.
type SQLiteRepository struct {
	logger *slog.Logger
	db     *sql.DB
	now    func() time.Time
}

func NewSQLiteRepository(db *sql.DB, logger *slog.Logger) *SQLiteRepository {
	return &SQLiteRepository{
		logger: logger,
		db:     db,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *SQLiteRepository) stamp() string {
	return formatTime(r.now())
}

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(sqliteTimeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (r *SQLiteRepository) UpsertPlace(ctx context.Context, place types.PlaceDetails) error {
	urls, err := json.Marshal(nonNilURLs(place.ImageURLs))
	if err != nil {
		return fmt.Errorf("failed to encode image urls: %w", err)
	}
	query := `
        INSERT INTO places_cache (name, latitude, longitude, description, category, rating, image_urls, cached_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err = r.db.ExecContext(ctx, query,
		place.Name, place.Latitude, place.Longitude, place.Description, place.Category, place.Rating,
		string(urls), r.stamp(),
	)
	if err != nil {
		queryFailed(ctx, backendSQLite)
		r.logger.ErrorContext(ctx, "Failed to upsert place", slog.String("name", place.Name), slog.Any("error", err))
		return fmt.Errorf("failed to upsert place: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetPlace(ctx context.Context, name string) (*types.PlaceDetails, error) {
	query := `
        SELECT name, latitude, longitude, description, category, rating, image_urls, cached_at
        FROM places_cache
        WHERE name = ?
        ORDER BY cached_at DESC, id DESC
        LIMIT 1
    `
	var (
		p        types.PlaceDetails
		urls     sql.NullString
		cachedAt string
	)
	err := r.db.QueryRowContext(ctx, query, name).Scan(
		&p.Name, &p.Latitude, &p.Longitude, &p.Description, &p.Category, &p.Rating, &urls, &cachedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get place: %w", err)
	}
	p.ImageURLs = r.decodeURLs(ctx, urls)
	p.CachedAt = parseTime(cachedAt)
	return &p, nil
}

func (r *SQLiteRepository) decodeURLs(ctx context.Context, raw sql.NullString) []string {
	if !raw.Valid || raw.String == "" {
		return []string{}
	}
	var urls []string
	if err := json.Unmarshal([]byte(raw.String), &urls); err != nil {
		r.logger.WarnContext(ctx, "Discarding unreadable image_urls", slog.Any("error", err))
		return []string{}
	}
	return nonNilURLs(urls)
}

func (r *SQLiteRepository) SaveSearch(ctx context.Context, cacheKey string, results []types.RecommendationResult, sessionID string) error {
	raw, err := encodeSearch(results)
	if err != nil {
		return err
	}
	query := `INSERT INTO search_history (cache_key, raw_results, session_id, created_at) VALUES (?, ?, ?, ?)`
	if _, err = r.db.ExecContext(ctx, query, cacheKey, string(raw), sessionID, r.stamp()); err != nil {
		queryFailed(ctx, backendSQLite)
		r.logger.ErrorContext(ctx, "Failed to save search", slog.String("cache_key", cacheKey), slog.Any("error", err))
		return fmt.Errorf("failed to save search: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetSearch(ctx context.Context, cacheKey string) ([]types.RecommendationResult, bool, error) {
	query := `
        SELECT raw_results
        FROM search_history
        WHERE cache_key = ?
        ORDER BY created_at DESC, id DESC
        LIMIT 1
    `
	var raw string
	if err := r.db.QueryRowContext(ctx, query, cacheKey).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get search: %w", err)
	}
	results, err := decodeSearch([]byte(raw))
	if err != nil {
		return nil, false, err
	}
	return results, true, nil
}

func (r *SQLiteRepository) AddFavorite(ctx context.Context, sessionID, placeName string) error {
	query := `INSERT OR IGNORE INTO user_favorites (session_id, place_name, added_at) VALUES (?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, sessionID, placeName, r.stamp()); err != nil {
		queryFailed(ctx, backendSQLite)
		r.logger.ErrorContext(ctx, "Failed to add favorite", slog.Any("error", err))
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) RemoveFavorite(ctx context.Context, sessionID, placeName string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_favorites WHERE session_id = ? AND place_name = ?`, sessionID, placeName); err != nil {
		queryFailed(ctx, backendSQLite)
		r.logger.ErrorContext(ctx, "Failed to remove favorite", slog.Any("error", err))
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListFavorites(ctx context.Context, sessionID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT place_name FROM user_favorites WHERE session_id = ? ORDER BY added_at, id`, sessionID)
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

// GetFavoriteDetails reads the names first: the pool holds one connection, so
// GetPlace cannot run while the favorites cursor is open.
func (r *SQLiteRepository) GetFavoriteDetails(ctx context.Context, sessionID string) ([]types.PlaceDetails, error) {
	names, err := r.ListFavorites(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	details := make([]types.PlaceDetails, 0, len(names))
	for _, name := range names {
		p, err := r.GetPlace(ctx, name)
		if err != nil {
			return nil, err
		}
		if p == nil {
			details = append(details, types.PlaceholderPlace(name))
			continue
		}
		details = append(details, *p)
	}
	return details, nil
}

func (r *SQLiteRepository) CreateItinerary(ctx context.Context, sessionID, name string) (*types.Itinerary, error) {
	now := r.now()
	it := types.Itinerary{ID: uuid.New(), SessionID: sessionID, Name: name, CreatedAt: parseTime(formatTime(now))}
	query := `INSERT INTO itineraries (id, session_id, name, created_at) VALUES (?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, it.ID.String(), sessionID, name, formatTime(now)); err != nil {
		if isSQLiteConstraint(err, uniqueFailed, "itineraries.") {
			return nil, types.ErrItineraryExists
		}
		queryFailed(ctx, backendSQLite)
		r.logger.ErrorContext(ctx, "Failed to create itinerary", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create itinerary: %w", err)
	}
	return &it, nil
}

func (r *SQLiteRepository) ListItineraries(ctx context.Context, sessionID string) ([]types.Itinerary, error) {
	query := `SELECT id, session_id, name, created_at FROM itineraries WHERE session_id = ? ORDER BY created_at, name`
	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list itineraries: %w", err)
	}
	defer rows.Close()

	itineraries := []types.Itinerary{}
	for rows.Next() {
		it, err := scanItinerary(rows)
		if err != nil {
			return nil, err
		}
		itineraries = append(itineraries, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating itineraries: %w", err)
	}
	return itineraries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItinerary(row rowScanner) (types.Itinerary, error) {
	var (
		it        types.Itinerary
		id        string
		createdAt string
	)
	if err := row.Scan(&id, &it.SessionID, &it.Name, &createdAt); err != nil {
		return types.Itinerary{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return types.Itinerary{}, fmt.Errorf("failed to parse itinerary id %q: %w", id, err)
	}
	it.ID = parsed
	it.CreatedAt = parseTime(createdAt)
	return it, nil
}

func (r *SQLiteRepository) GetItinerary(ctx context.Context, sessionID string, id uuid.UUID) (*types.Itinerary, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, session_id, name, created_at FROM itineraries WHERE id = ? AND session_id = ?`, id.String(), sessionID)
	it, err := scanItinerary(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get itinerary: %w", err)
	}
	return &it, nil
}

func (r *SQLiteRepository) DeleteItinerary(ctx context.Context, sessionID string, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM itineraries WHERE id = ? AND session_id = ?`, id.String(), sessionID)
	if err != nil {
		queryFailed(ctx, backendSQLite)
		r.logger.ErrorContext(ctx, "Failed to delete itinerary", slog.Any("error", err))
		return fmt.Errorf("failed to delete itinerary: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) AddPlaceToItinerary(ctx context.Context, itineraryID uuid.UUID, placeName string, orderIndex int) error {
	query := `INSERT INTO itinerary_places (itinerary_id, place_name, order_index) VALUES (?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, itineraryID.String(), placeName, orderIndex); err != nil {
		switch {
		case isSQLiteConstraint(err, uniqueFailed, "itinerary_places.place_name"):
			return types.ErrPlaceAlreadyInItinerary
		case isSQLiteConstraint(err, foreignKeyFailed, ""):
			return types.ErrNotFound
		}
		queryFailed(ctx, backendSQLite)
		r.logger.ErrorContext(ctx, "Failed to add place to itinerary", slog.Any("error", err))
		return fmt.Errorf("failed to add place to itinerary: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) RemovePlaceFromItinerary(ctx context.Context, itineraryID uuid.UUID, placeName string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM itinerary_places WHERE itinerary_id = ? AND place_name = ?`, itineraryID.String(), placeName)
	if err != nil {
		return fmt.Errorf("failed to remove place from itinerary: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) GetItineraryPlaces(ctx context.Context, itineraryID uuid.UUID) ([]types.ItineraryPlace, error) {
	query := `
        SELECT ip.place_name, ip.order_index,
               p.latitude, p.longitude, p.description, p.category, p.rating, p.image_urls
        FROM itinerary_places ip
        LEFT JOIN places_cache p ON p.id = (
            SELECT pc.id FROM places_cache pc
            WHERE pc.name = ip.place_name
            ORDER BY pc.cached_at DESC, pc.id DESC
            LIMIT 1
        )
        WHERE ip.itinerary_id = ?
        ORDER BY ip.order_index
    `
	rows, err := r.db.QueryContext(ctx, query, itineraryID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get itinerary places: %w", err)
	}
	defer rows.Close()

	stops := []types.ItineraryPlace{}
	for rows.Next() {
		s := types.ItineraryPlace{ItineraryID: itineraryID}
		var urls sql.NullString
		if err := rows.Scan(&s.PlaceName, &s.OrderIndex,
			&s.Latitude, &s.Longitude, &s.Description, &s.Category, &s.Rating, &urls); err != nil {
			return nil, fmt.Errorf("failed to scan itinerary place: %w", err)
		}
		s.ImageURLs = r.decodeURLs(ctx, urls)
		stops = append(stops, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating itinerary places: %w", err)
	}
	return stops, nil
}

func (r *SQLiteRepository) PruneSearchHistory(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM search_history WHERE created_at < ?`, formatTime(olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to prune search history: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) PrunePlaces(ctx context.Context, olderThan time.Time) (int64, error) {
	query := `
        DELETE FROM places_cache
        WHERE cached_at < ?
          AND EXISTS (
              SELECT 1 FROM places_cache newer
              WHERE newer.name = places_cache.name
                AND (newer.cached_at > places_cache.cached_at
                     OR (newer.cached_at = places_cache.cached_at AND newer.id > places_cache.id))
          )
    `
	res, err := r.db.ExecContext(ctx, query, formatTime(olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to prune places: %w", err)
	}
	return res.RowsAffected()
}

const (
	uniqueFailed     = "UNIQUE constraint failed"
	foreignKeyFailed = "FOREIGN KEY constraint failed"
)

// isSQLiteConstraint matches a constraint failure of the given kind and, when
// column is non-empty, a column named in the error message.
func isSQLiteConstraint(err error, kind, column string) bool {
	var sqlErr *sqlite.Error
	if !errors.As(err, &sqlErr) || sqlErr.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return false
	}
	msg := sqlErr.Error()
	return strings.Contains(msg, kind) && (column == "" || strings.Contains(msg, column))
}
