package router

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	database "github.com/FACorreiaa/smart-travel-guide/app/db"
	appMiddleware "github.com/FACorreiaa/smart-travel-guide/app/middleware"
	"github.com/FACorreiaa/smart-travel-guide/config"
	"github.com/FACorreiaa/smart-travel-guide/internal/container"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	cfg := &config.Config{Store: config.StoreSQLite}
	cfg.Repositories.SQLite.Path = database.MemoryDSN

	c, err := container.NewContainer(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(c.Close)

	return SetupRouter(&Config{
		RecommendationHandler: c.RecommendationHandler,
		ItineraryHandler:      c.ItineraryHandler,
		WeatherHandler:        c.WeatherHandler,
		Logger:                logger,
	})
}

func TestPing(t *testing.T) {
	h := newTestServer(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
}

func TestSessionIsMintedAndHonoured(t *testing.T) {
	h := newTestServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/favorites", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	sessionID := rec.Header().Get(appMiddleware.SessionHeader)
	require.NotEmpty(t, sessionID)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/favorites", bytes.NewBufferString(`{"place_name":"Sümela Manastırı"}`))
	req.Header.Set(appMiddleware.SessionHeader, sessionID)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/favorites/", nil)
	req.Header.Set(appMiddleware.SessionHeader, sessionID)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["Sümela Manastırı"]`, rec.Body.String())
}

func TestDisabledProvidersAreUnavailable(t *testing.T) {
	h := newTestServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/recommendations", bytes.NewBufferString(`{"query":"Mardin"}`)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/routes", bytes.NewBufferString(`{"places":["A","B"]}`)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestWeatherValidation(t *testing.T) {
	h := newTestServer(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/weather", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
