package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

// Store backends.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Generation providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Config struct {
	Mode     string `mapstructure:"mode"`
	Dotenv   string `mapstructure:"dotenv"`
	Handlers struct {
		ExternalAPI struct {
			Port      string `mapstructure:"port"`
			CertFile  string `mapstructure:"certFile"`
			KeyFile   string `mapstructure:"keyFile"`
			EnableTLS bool   `mapstructure:"enableTLS"`
		} `mapstructure:"externalAPI"`
		Prometheus struct {
			Port string `mapstructure:"port"`
		} `mapstructure:"prometheus"`
	} `mapstructure:"handlers"`
	Store        string `mapstructure:"store"`
	Repositories struct {
		Postgres struct {
			Host              string `mapstructure:"host"`
			Password          string `mapstructure:"password"`
			Port              string `mapstructure:"port"`
			Username          string `mapstructure:"username"`
			DB                string `mapstructure:"db"`
			SSLMODE           string `mapstructure:"sslmode"`
			MAXCONWAITINGTIME int    `mapstructure:"maxconwaitingtime"`
		} `mapstructure:"postgres"`
		SQLite struct {
			Path string `mapstructure:"path"`
		} `mapstructure:"sqlite"`
	} `mapstructure:"repositories"`
	Server struct {
		HTTPPort string        `mapstructure:"httpport"`
		Timeout  time.Duration `mapstructure:"httptimeout"`
	} `mapstructure:"server"`
	LLM struct {
		Provider     string `mapstructure:"provider"`
		Model        string `mapstructure:"model"`
		Language     string `mapstructure:"language"`
		GeminiAPIKey string `mapstructure:"geminiapikey"`
		OpenAIAPIKey string `mapstructure:"openaiapikey"`
		OpenAIURL    string `mapstructure:"openaiurl"`
	} `mapstructure:"llm"`
	Maps struct {
		APIKey        string `mapstructure:"apikey"`
		BaseURL       string `mapstructure:"baseurl"`
		PhotoMaxWidth int    `mapstructure:"photomaxwidth"`
		NearbyRadius  int    `mapstructure:"nearbyradius"`
	} `mapstructure:"maps"`
	Weather struct {
		ForecastURL  string        `mapstructure:"forecasturl"`
		GeocodingURL string        `mapstructure:"geocodingurl"`
		Timeout      time.Duration `mapstructure:"timeout"`
	} `mapstructure:"weather"`
	Email struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		Sender   string `mapstructure:"sender"`
		Password string `mapstructure:"password"`
	} `mapstructure:"email"`
	Cache struct {
		TTL             time.Duration `mapstructure:"ttl"`
		SearchRetention time.Duration `mapstructure:"searchretention"`
		PlaceRetention  time.Duration `mapstructure:"placeretention"`
		PruneInterval   time.Duration `mapstructure:"pruneinterval"`
	} `mapstructure:"cache"`
	Sentry struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"sentry"`
}

// envBindings maps the well-known environment variables onto config keys so
// secrets never have to live in config.yml.
var envBindings = map[string]string{
	"llm.geminiapikey":               "GEMINI_API_KEY",
	"llm.openaiapikey":               "OPENAI_API_KEY",
	"llm.provider":                   "LLM_PROVIDER",
	"maps.apikey":                    "GOOGLE_MAPS_API_KEY",
	"email.sender":                   "EMAIL_SENDER",
	"email.password":                 "EMAIL_PASSWORD",
	"sentry.dsn":                     "SENTRY_DSN",
	"store":                          "STORE",
	"repositories.sqlite.path":       "SQLITE_PATH",
	"repositories.postgres.host":     "POSTGRES_HOST",
	"repositories.postgres.port":     "POSTGRES_PORT",
	"repositories.postgres.db":       "POSTGRES_DB",
	"repositories.postgres.username": "POSTGRES_USER",
	"repositories.postgres.password": "POSTGRES_PASSWORD",
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	err := v.ReadInConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err = v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return config, nil
}
