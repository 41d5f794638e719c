package places

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	database "github.com/FACorreiaa/smart-travel-guide/app/db"
	"github.com/FACorreiaa/smart-travel-guide/internal/types"
)

func setupSQLiteTest(t *testing.T) *SQLiteRepository {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	db, err := database.OpenSQLite(database.MemoryDSN, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLiteRepository(db, logger)
}

func ptr[T any](v T) *T { return &v }

func TestSQLiteRepository_UpsertPlace(t *testing.T) {
	ctx := context.Background()

	t.Run("newest write wins and photo lists are not merged", func(t *testing.T) {
		repo := setupSQLiteTest(t)
		first := types.PlaceDetails{
			Name: "Ayasofya", Latitude: ptr(41.0086), Longitude: ptr(28.9802),
			Description: ptr("Old"), Category: ptr("Müze"), Rating: ptr(4.8),
			ImageURLs: []string{"a.jpg", "b.jpg"},
		}
		second := first
		second.Description = ptr("New")
		second.ImageURLs = []string{"c.jpg"}

		require.NoError(t, repo.UpsertPlace(ctx, first))
		require.NoError(t, repo.UpsertPlace(ctx, second))

		got, err := repo.GetPlace(ctx, "Ayasofya")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, []string{"c.jpg"}, got.ImageURLs)
		assert.Equal(t, "New", *got.Description)
		assert.InDelta(t, 41.0086, *got.Latitude, 1e-9)
		assert.False(t, got.CachedAt.IsZero())
	})

	t.Run("absent place returns nil", func(t *testing.T) {
		repo := setupSQLiteTest(t)
		got, err := repo.GetPlace(ctx, "Nowhere")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("place without location or photos", func(t *testing.T) {
		repo := setupSQLiteTest(t)
		require.NoError(t, repo.UpsertPlace(ctx, types.PlaceDetails{Name: "Ghost"}))

		got, err := repo.GetPlace(ctx, "Ghost")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Nil(t, got.Latitude)
		assert.Nil(t, got.Longitude)
		assert.NotNil(t, got.ImageURLs)
		assert.Empty(t, got.ImageURLs)
	})
}

func TestSQLiteRepository_SearchHistory(t *testing.T) {
	ctx := context.Background()
	repo := setupSQLiteTest(t)

	_, found, err := repo.GetSearch(ctx, "Istanbul_null")
	require.NoError(t, err)
	assert.False(t, found)

	older := []types.RecommendationResult{{Title: "Old Pick"}}
	newer := []types.RecommendationResult{
		{Title: "Galata", Rating: 4.6, Category: "Tarihi Yer", Location: &types.Coordinates{Lat: 41.0256, Lng: 28.9741}},
		{Title: "Moda", Description: "Sahil"},
	}
	require.NoError(t, repo.SaveSearch(ctx, "Istanbul_null", older, "s1"))
	require.NoError(t, repo.SaveSearch(ctx, "Istanbul_null", newer, "s2"))

	got, found, err := repo.GetSearch(ctx, "Istanbul_null")
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, got, 2)
	assert.Equal(t, "Galata", got[0].Title)
	require.NotNil(t, got[0].Location)
	assert.InDelta(t, 28.9741, got[0].Location.Lng, 1e-9)
	assert.Nil(t, got[1].Location)
}

func TestSQLiteRepository_Favorites(t *testing.T) {
	ctx := context.Background()
	repo := setupSQLiteTest(t)

	require.NoError(t, repo.AddFavorite(ctx, "s1", "Galata"))
	require.NoError(t, repo.AddFavorite(ctx, "s1", "Moda"))
	require.NoError(t, repo.AddFavorite(ctx, "s1", "Galata"))
	require.NoError(t, repo.AddFavorite(ctx, "s2", "Kadıköy"))

	names, err := repo.ListFavorites(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Galata", "Moda"}, names)

	require.NoError(t, repo.UpsertPlace(ctx, types.PlaceDetails{
		Name: "Galata", Category: ptr("Tarihi Yer"), Rating: ptr(4.6), ImageURLs: []string{"g.jpg"},
	}))

	details, err := repo.GetFavoriteDetails(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, details, 2)
	assert.Equal(t, "Galata", details[0].Name)
	assert.Equal(t, []string{"g.jpg"}, details[0].ImageURLs)

	placeholder := details[1]
	assert.Equal(t, "Moda", placeholder.Name)
	assert.Nil(t, placeholder.Description)
	assert.Nil(t, placeholder.Category)
	assert.Nil(t, placeholder.Rating)
	assert.Empty(t, placeholder.ImageURLs)

	require.NoError(t, repo.RemoveFavorite(ctx, "s1", "Galata"))
	names, err = repo.ListFavorites(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Moda"}, names)

	names, err = repo.ListFavorites(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, []string{"Kadıköy"}, names)
}

func TestSQLiteRepository_Itineraries(t *testing.T) {
	ctx := context.Background()

	t.Run("name is unique per session", func(t *testing.T) {
		repo := setupSQLiteTest(t)
		it, err := repo.CreateItinerary(ctx, "s1", "Hafta sonu")
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, it.ID)

		_, err = repo.CreateItinerary(ctx, "s1", "Hafta sonu")
		assert.ErrorIs(t, err, types.ErrItineraryExists)

		_, err = repo.CreateItinerary(ctx, "s2", "Hafta sonu")
		assert.NoError(t, err)

		list, err := repo.ListItineraries(ctx, "s1")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, it.ID, list[0].ID)
	})

	t.Run("places are unique and joined with the newest place record", func(t *testing.T) {
		repo := setupSQLiteTest(t)
		it, err := repo.CreateItinerary(ctx, "s1", "Gezi")
		require.NoError(t, err)

		require.NoError(t, repo.UpsertPlace(ctx, types.PlaceDetails{Name: "Galata", Rating: ptr(4.1)}))
		require.NoError(t, repo.UpsertPlace(ctx, types.PlaceDetails{Name: "Galata", Rating: ptr(4.7), ImageURLs: []string{"g.jpg"}}))

		require.NoError(t, repo.AddPlaceToItinerary(ctx, it.ID, "Galata", 0))
		require.NoError(t, repo.AddPlaceToItinerary(ctx, it.ID, "Moda", 1))
		assert.ErrorIs(t, repo.AddPlaceToItinerary(ctx, it.ID, "Galata", 2), types.ErrPlaceAlreadyInItinerary)
		assert.ErrorIs(t, repo.AddPlaceToItinerary(ctx, uuid.New(), "Galata", 0), types.ErrNotFound)

		stops, err := repo.GetItineraryPlaces(ctx, it.ID)
		require.NoError(t, err)
		require.Len(t, stops, 2)
		assert.Equal(t, "Galata", stops[0].PlaceName)
		assert.InDelta(t, 4.7, *stops[0].Rating, 1e-9)
		assert.Equal(t, []string{"g.jpg"}, stops[0].ImageURLs)
		assert.Equal(t, "Moda", stops[1].PlaceName)
		assert.Equal(t, 1, stops[1].OrderIndex)
		assert.Nil(t, stops[1].Rating)
		assert.Empty(t, stops[1].ImageURLs)

		require.NoError(t, repo.RemovePlaceFromItinerary(ctx, it.ID, "Galata"))
		assert.ErrorIs(t, repo.RemovePlaceFromItinerary(ctx, it.ID, "Galata"), types.ErrNotFound)
	})

	t.Run("delete cascades to places and is scoped to the session", func(t *testing.T) {
		repo := setupSQLiteTest(t)
		it, err := repo.CreateItinerary(ctx, "s1", "Gezi")
		require.NoError(t, err)
		require.NoError(t, repo.AddPlaceToItinerary(ctx, it.ID, "Galata", 0))

		assert.ErrorIs(t, repo.DeleteItinerary(ctx, "other", it.ID), types.ErrNotFound)
		require.NoError(t, repo.DeleteItinerary(ctx, "s1", it.ID))

		got, err := repo.GetItinerary(ctx, "s1", it.ID)
		require.NoError(t, err)
		assert.Nil(t, got)

		stops, err := repo.GetItineraryPlaces(ctx, it.ID)
		require.NoError(t, err)
		assert.Empty(t, stops)
	})
}

func TestSQLiteRepository_Prune(t *testing.T) {
	ctx := context.Background()
	repo := setupSQLiteTest(t)
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	repo.now = func() time.Time { return base }
	require.NoError(t, repo.UpsertPlace(ctx, types.PlaceDetails{Name: "Galata", Rating: ptr(4.0)}))
	require.NoError(t, repo.UpsertPlace(ctx, types.PlaceDetails{Name: "Moda", Rating: ptr(3.0)}))
	require.NoError(t, repo.SaveSearch(ctx, "old", nil, "s1"))

	repo.now = func() time.Time { return base.Add(48 * time.Hour) }
	require.NoError(t, repo.UpsertPlace(ctx, types.PlaceDetails{Name: "Galata", Rating: ptr(5.0)}))
	require.NoError(t, repo.SaveSearch(ctx, "new", nil, "s1"))

	cutoff := base.Add(24 * time.Hour)

	n, err := repo.PruneSearchHistory(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, found, err := repo.GetSearch(ctx, "old")
	require.NoError(t, err)
	assert.False(t, found)
	_, found, err = repo.GetSearch(ctx, "new")
	require.NoError(t, err)
	assert.True(t, found)

	n, err = repo.PrunePlaces(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "only the superseded Galata row goes")

	moda, err := repo.GetPlace(ctx, "Moda")
	require.NoError(t, err)
	require.NotNil(t, moda, "a current row survives regardless of age")

	galata, err := repo.GetPlace(ctx, "Galata")
	require.NoError(t, err)
	assert.InDelta(t, 5.0, *galata.Rating, 1e-9)
}
