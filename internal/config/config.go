package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/travel-score/internal/adapter/nominatim"
)

// Provider names accepted by GEOCODER_PROVIDER.
const (
	ProviderNominatim = "nominatim"
	ProviderMapbox    = "mapbox"
)

// Progress modes accepted by PROGRESS.
const (
	ProgressAuto   = "auto"
	ProgressAlways = "always"
	ProgressNever  = "never"
)

// Config holds all run settings, populated from environment variables and
// then overridden by command-line flags.
type Config struct {
	InputFile    string
	CityDB       string
	Output       string
	IndexedStore bool

	// Geocoding configuration.
	Provider       string
	UserAgent      string
	NominatimURL   string
	MapboxToken    string
	GeocodeTimeout time.Duration

	LogLevel  string
	LogFormat string
	LogOutput string

	MetricsFile string
	Progress    string

	// Optional Kafka sink. Disabled when KafkaBrokers is empty.
	KafkaBrokers []string
	KafkaTopic   string
}

// LoadDotEnv seeds the environment from the given .env files. Variables that
// are already set win, and missing files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables, applying defaults
// where unset. Only malformed values are rejected here; call Validate once
// command-line overrides have been applied.
func Load() (*Config, error) {
	timeout, err := parseDuration("GEOCODE_TIMEOUT", "0s")
	if err != nil {
		return nil, err
	}

	indexed, err := parseBool("STORE_INDEXED", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		CityDB:       envOrDefault("CITYDB_PATH", "city_database.csv"),
		Output:       envOrDefault("OUTPUT_PATH", "travel_data.json"),
		IndexedStore: indexed,

		Provider:       strings.ToLower(envOrDefault("GEOCODER_PROVIDER", ProviderNominatim)),
		UserAgent:      envOrDefault("GEOLOCATOR_USER_AGENT", nominatim.DefaultUserAgent),
		NominatimURL:   envOrDefault("NOMINATIM_URL", nominatim.DefaultBaseURL),
		MapboxToken:    os.Getenv("MAPBOX_TOKEN"),
		GeocodeTimeout: timeout,

		LogLevel:  envOrDefault("LOG_LEVEL", "info"),
		LogFormat: envOrDefault("LOG_FORMAT", "text"),
		LogOutput: envOrDefault("LOG_OUTPUT", "stderr"),

		MetricsFile: os.Getenv("METRICS_FILE"),
		Progress:    strings.ToLower(envOrDefault("PROGRESS", ProgressAuto)),

		KafkaBrokers: parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "travel-coordinates"),
	}
	return cfg, nil
}

// Validate checks enumerated settings and cross-field constraints.
func (c *Config) Validate() error {
	c.Provider = strings.ToLower(c.Provider)
	c.Progress = strings.ToLower(c.Progress)

	switch c.Provider {
	case ProviderNominatim:
	case ProviderMapbox:
		if c.MapboxToken == "" {
			return errors.New("GEOCODER_PROVIDER is mapbox but MAPBOX_TOKEN is not set")
		}
	default:
		return fmt.Errorf("invalid GEOCODER_PROVIDER %q", c.Provider)
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL %q", c.LogLevel)
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q", c.LogFormat)
	}

	switch c.Progress {
	case ProgressAuto, ProgressAlways, ProgressNever:
	default:
		return fmt.Errorf("invalid PROGRESS %q", c.Progress)
	}

	if c.CityDB == "" {
		return errors.New("city database path is required")
	}
	if c.Output == "" {
		return errors.New("output path is required")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s", key)
	}
	return b, nil
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
