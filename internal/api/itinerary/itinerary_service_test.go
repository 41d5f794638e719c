package itinerary

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	database "github.com/FACorreiaa/smart-travel-guide/app/db"
	appMiddleware "github.com/FACorreiaa/smart-travel-guide/app/middleware"
	"github.com/FACorreiaa/smart-travel-guide/internal/api/places"
	"github.com/FACorreiaa/smart-travel-guide/internal/types"
)

type MockRouter struct {
	mock.Mock
}

func (m *MockRouter) Geocode(context.Context, string) *types.Coordinates {
	return nil
}

func (m *MockRouter) GetPhotos(context.Context, string, int) []string {
	return []string{}
}

func (m *MockRouter) NearbyPlaces(context.Context, float64, float64, int, string) []types.Place {
	return []types.Place{}
}

func (m *MockRouter) TravelTimeMinutes(context.Context, types.Coordinates, types.Coordinates, string) (int, bool) {
	return 0, false
}

func (m *MockRouter) GenerateRoute(ctx context.Context, stops []string) *types.RouteInfo {
	args := m.Called(ctx, stops)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*types.RouteInfo)
}

func setupItineraryTest(t *testing.T) (*ServiceImpl, *places.SQLiteRepository, *MockRouter) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	db, err := database.OpenSQLite(database.MemoryDSN, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := places.NewSQLiteRepository(db, logger)
	router := new(MockRouter)
	return NewServiceImpl(repo, router, logger), repo, router
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupItineraryTest(t)

	it, err := svc.Create(ctx, "s1", "  Kapadokya Turu ")
	require.NoError(t, err)
	assert.Equal(t, "Kapadokya Turu", it.Name)

	_, err = svc.Create(ctx, "s1", "Kapadokya Turu")
	assert.ErrorIs(t, err, types.ErrItineraryExists)

	_, err = svc.Create(ctx, "s2", "Kapadokya Turu")
	assert.NoError(t, err, "names are unique per session only")

	_, err = svc.Create(ctx, "s1", "   ")
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	list, err := svc.List(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestAddPlace(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupItineraryTest(t)
	it, err := svc.Create(ctx, "s1", "Ege")
	require.NoError(t, err)

	for i, name := range []string{"Efes", "Şirince", "Pamukkale"} {
		idx, err := svc.AddPlace(ctx, "s1", it.ID, name)
		require.NoError(t, err)
		assert.Equal(t, i, idx, "next index is the current place count")
	}

	_, err = svc.AddPlace(ctx, "s1", it.ID, "Efes")
	assert.ErrorIs(t, err, types.ErrPlaceAlreadyInItinerary)

	// Removing the first stop leaves indexes 1 and 2 in use; the count is 2,
	// which is taken, so the new stop moves on to 3.
	require.NoError(t, svc.RemovePlace(ctx, "s1", it.ID, "Efes"))
	idx, err := svc.AddPlace(ctx, "s1", it.ID, "Bodrum")
	require.NoError(t, err)
	assert.Equal(t, 3, idx)

	stops, err := svc.Places(ctx, "s1", it.ID)
	require.NoError(t, err)
	names := make([]string, len(stops))
	for i, s := range stops {
		names[i] = s.PlaceName
	}
	assert.Equal(t, []string{"Şirince", "Pamukkale", "Bodrum"}, names)

	_, err = svc.AddPlace(ctx, "someone-else", it.ID, "Kuşadası")
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = svc.AddPlace(ctx, "s1", it.ID, "")
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestDeleteCascades(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := setupItineraryTest(t)
	it, err := svc.Create(ctx, "s1", "Karadeniz")
	require.NoError(t, err)
	_, err = svc.AddPlace(ctx, "s1", it.ID, "Uzungöl")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, "s2", it.ID), types.ErrNotFound)
	require.NoError(t, svc.Delete(ctx, "s1", it.ID))

	stops, err := repo.GetItineraryPlaces(ctx, it.ID)
	require.NoError(t, err)
	assert.Empty(t, stops)
}

func TestRoute(t *testing.T) {
	ctx := context.Background()
	svc, _, router := setupItineraryTest(t)
	it, err := svc.Create(ctx, "s1", "Boğaz")
	require.NoError(t, err)
	for _, name := range []string{"Ortaköy", "Bebek", "Rumeli Hisarı"} {
		_, err := svc.AddPlace(ctx, "s1", it.ID, name)
		require.NoError(t, err)
	}
	route := &types.RouteInfo{Distance: "7.9 km", Duration: "25 mins", Steps: []string{}}
	router.On("GenerateRoute", mock.Anything, []string{"Ortaköy", "Bebek", "Rumeli Hisarı"}).Return(route).Once()

	got, err := svc.Route(ctx, "s1", it.ID)
	require.NoError(t, err)
	assert.Same(t, route, got)

	disabled := NewServiceImpl(nil, nil, slog.Default())
	_, err = disabled.Route(ctx, "s1", it.ID)
	assert.ErrorIs(t, err, types.ErrFeatureDisabled)
}

func TestItineraryHandlers(t *testing.T) {
	svc, _, _ := setupItineraryTest(t)
	h := NewHandlerImpl(svc, slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})))
	r := chi.NewRouter()
	r.Use(appMiddleware.Session)
	r.Mount("/itineraries", h.Routes())

	do := func(method, target string, body any) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
		req := httptest.NewRequest(method, target, &buf)
		req.Header.Set(appMiddleware.SessionHeader, "s-http")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodPost, "/itineraries/", types.CreateItineraryRequest{Name: "Hafta Sonu"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var it types.Itinerary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &it))

	rec = do(http.MethodPost, "/itineraries/", types.CreateItineraryRequest{Name: "Hafta Sonu"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(http.MethodPost, "/itineraries/", types.CreateItineraryRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	base := "/itineraries/" + it.ID.String()
	rec = do(http.MethodPost, base+"/places", types.AddItineraryPlaceRequest{PlaceName: "Moda"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"order_index":0`)

	rec = do(http.MethodPost, base+"/places", types.AddItineraryPlaceRequest{PlaceName: "Moda"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(http.MethodGet, base+"/places", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stops []types.ItineraryPlace
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stops))
	require.Len(t, stops, 1)
	assert.NotNil(t, stops[0].ImageURLs)

	rec = do(http.MethodGet, "/itineraries/not-a-uuid/places", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(http.MethodGet, "/itineraries/"+uuid.NewString()+"/places", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(http.MethodDelete, base+"/places/Moda", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
