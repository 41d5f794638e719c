package types

// DailyForecast is one day of an Open-Meteo daily forecast. Any value the
// provider omits stays nil.
type DailyForecast struct {
	Date                        string   `json:"date"`
	TempMax                     *float64 `json:"temp_max"`
	TempMin                     *float64 `json:"temp_min"`
	PrecipitationSum            *float64 `json:"precipitation_sum"`
	RainSum                     *float64 `json:"rain_sum"`
	ShowersSum                  *float64 `json:"showers_sum"`
	SnowfallSum                 *float64 `json:"snowfall_sum"`
	PrecipitationProbabilityMax *float64 `json:"precipitation_probability_max"`
	WindSpeedMax                *float64 `json:"windspeed_10m_max"`
	LikelyRain                  bool     `json:"likely_rain"`
}
