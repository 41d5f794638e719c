package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/smart-travel-guide/app/observability/metrics"
	"github.com/FACorreiaa/smart-travel-guide/internal/types"
)

const (
	DefaultForecastURL  = "https://api.open-meteo.com/v1/forecast"
	DefaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"

	// Rain is likely at or above either threshold.
	RainProbabilityThreshold = 50.0
	RainSumThresholdMM       = 2.0

	dateLayout = "2006-01-02"
)

var dailyVariables = []string{
	"temperature_2m_max",
	"temperature_2m_min",
	"precipitation_sum",
	"rain_sum",
	"showers_sum",
	"snowfall_sum",
	"precipitation_probability_max",
	"windspeed_10m_max",
}

// Service fetches Open-Meteo forecasts. Like the other provider clients it
// fails soft: errors are logged and yield an empty result.
type Service interface {
	GeocodeCity(ctx context.Context, city string) *types.Coordinates
	GetDailyForecast(ctx context.Context, lat, lng float64, start, end time.Time) []types.DailyForecast
}

var _ Service = (*ServiceImpl)(nil)

type ServiceImpl struct {
	logger       *slog.Logger
	httpClient   *http.Client
	forecastURL  string
	geocodingURL string
}

func NewService(forecastURL, geocodingURL string, timeout time.Duration, logger *slog.Logger) *ServiceImpl {
	if forecastURL == "" {
		forecastURL = DefaultForecastURL
	}
	if geocodingURL == "" {
		geocodingURL = DefaultGeocodingURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ServiceImpl{
		logger:       logger,
		httpClient:   &http.Client{Timeout: timeout},
		forecastURL:  strings.TrimRight(forecastURL, "/"),
		geocodingURL: strings.TrimRight(geocodingURL, "/"),
	}
}

// WillLikelyRain applies the rain heuristic to one day.
func WillLikelyRain(day types.DailyForecast) bool {
	if day.PrecipitationProbabilityMax != nil && *day.PrecipitationProbabilityMax >= RainProbabilityThreshold {
		return true
	}
	return day.RainSum != nil && *day.RainSum >= RainSumThresholdMM
}

type geocodingResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"results"`
}

func (s *ServiceImpl) GeocodeCity(ctx context.Context, city string) *types.Coordinates {
	ctx, span := otel.Tracer("WeatherService").Start(ctx, "GeocodeCity", trace.WithAttributes(
		attribute.String("city", city),
	))
	defer span.End()

	q := url.Values{}
	q.Set("name", city)
	q.Set("count", "1")
	q.Set("language", "tr")
	q.Set("format", "json")

	var resp geocodingResponse
	if err := s.getJSON(ctx, s.geocodingURL+"?"+q.Encode(), &resp); err != nil {
		s.fail(ctx, span, "geocode_city", err)
		return nil
	}
	if len(resp.Results) == 0 {
		span.SetStatus(codes.Ok, "No match")
		return nil
	}
	span.SetStatus(codes.Ok, "City geocoded")
	return &types.Coordinates{Lat: resp.Results[0].Latitude, Lng: resp.Results[0].Longitude}
}

type forecastResponse struct {
	Daily struct {
		Time                        []string   `json:"time"`
		TemperatureMax              []*float64 `json:"temperature_2m_max"`
		TemperatureMin              []*float64 `json:"temperature_2m_min"`
		PrecipitationSum            []*float64 `json:"precipitation_sum"`
		RainSum                     []*float64 `json:"rain_sum"`
		ShowersSum                  []*float64 `json:"showers_sum"`
		SnowfallSum                 []*float64 `json:"snowfall_sum"`
		PrecipitationProbabilityMax []*float64 `json:"precipitation_probability_max"`
		WindSpeedMax                []*float64 `json:"windspeed_10m_max"`
	} `json:"daily"`
}

// GetDailyForecast returns one entry per day between start and end inclusive.
func (s *ServiceImpl) GetDailyForecast(ctx context.Context, lat, lng float64, start, end time.Time) []types.DailyForecast {
	ctx, span := otel.Tracer("WeatherService").Start(ctx, "GetDailyForecast", trace.WithAttributes(
		attribute.Float64("latitude", lat),
		attribute.Float64("longitude", lng),
		attribute.String("start", start.Format(dateLayout)),
		attribute.String("end", end.Format(dateLayout)),
	))
	defer span.End()

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("daily", strings.Join(dailyVariables, ","))
	q.Set("timezone", "auto")
	q.Set("start_date", start.Format(dateLayout))
	q.Set("end_date", end.Format(dateLayout))

	var resp forecastResponse
	if err := s.getJSON(ctx, s.forecastURL+"?"+q.Encode(), &resp); err != nil {
		s.fail(ctx, span, "forecast", err)
		return []types.DailyForecast{}
	}

	d := resp.Daily
	days := make([]types.DailyForecast, 0, len(d.Time))
	for i, date := range d.Time {
		day := types.DailyForecast{
			Date:                        date,
			TempMax:                     at(d.TemperatureMax, i),
			TempMin:                     at(d.TemperatureMin, i),
			PrecipitationSum:            at(d.PrecipitationSum, i),
			RainSum:                     at(d.RainSum, i),
			ShowersSum:                  at(d.ShowersSum, i),
			SnowfallSum:                 at(d.SnowfallSum, i),
			PrecipitationProbabilityMax: at(d.PrecipitationProbabilityMax, i),
			WindSpeedMax:                at(d.WindSpeedMax, i),
		}
		day.LikelyRain = WillLikelyRain(day)
		days = append(days, day)
	}
	span.SetAttributes(attribute.Int("days.count", len(days)))
	span.SetStatus(codes.Ok, "Forecast fetched")
	return days
}

// at tolerates series shorter than the time axis.
func at(series []*float64, i int) *float64 {
	if i < len(series) {
		return series[i]
	}
	return nil
}

func (s *ServiceImpl) getJSON(ctx context.Context, endpoint string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d", types.ErrProviderUnavailable, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (s *ServiceImpl) fail(ctx context.Context, span trace.Span, op string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, op+" failed")
	metrics.Get().ProviderFailuresTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", "open_meteo"),
		attribute.String("operation", op),
	))
	s.logger.ErrorContext(ctx, "Weather request failed", slog.String("operation", op), slog.Any("error", err))
}
