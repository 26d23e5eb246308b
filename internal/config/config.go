package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultLocationLimit      = 10
	defaultRetryAttempts      = 3
	defaultRetryInterval      = 2 * time.Second
	defaultMeasurementWorkers = 4
	defaultRequestTimeout     = 30 * time.Second
	defaultRankingLookback    = 7
	defaultAverageDays        = 5
	defaultPM25Weight         = 1.5
	defaultPM10Weight         = 1.0
	defaultImportDays         = 7
	defaultPort               = 8080
)

// DefaultCountries is the supported country set.
var DefaultCountries = []string{"NL", "DE", "FR", "GR", "ES", "PK"}

// Config holds runtime configuration for the importer and the API.
type Config struct {
	DatabaseURL string `yaml:"database_url"`
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	UseMock     bool   `yaml:"use_mock"`

	Countries     []string `yaml:"countries"`
	LocationLimit int      `yaml:"location_limit"`

	RetryAttempts      int           `yaml:"retry_attempts"`
	RetryInterval      time.Duration `yaml:"retry_interval"`
	MeasurementWorkers int           `yaml:"measurement_workers"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`

	RankingLookbackDays int     `yaml:"ranking_lookback_days"`
	AverageDays         int     `yaml:"average_days"`
	PM25Weight          float64 `yaml:"pm25_weight"`
	PM10Weight          float64 `yaml:"pm10_weight"`

	ImportDays     int           `yaml:"import_days"`
	ImportInterval time.Duration `yaml:"import_interval"` // 0 disables periodic imports

	Port int `yaml:"port"`
}

// Load reads configuration from an optional YAML file (CONFIG_FILE),
// then overrides from environment variables (optionally via .env).
// Credential problems are reported here, before any work starts.
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := Config{
		BaseURL:             "",
		Countries:           append([]string(nil), DefaultCountries...),
		LocationLimit:       defaultLocationLimit,
		RetryAttempts:       defaultRetryAttempts,
		RetryInterval:       defaultRetryInterval,
		MeasurementWorkers:  defaultMeasurementWorkers,
		RequestTimeout:      defaultRequestTimeout,
		RankingLookbackDays: defaultRankingLookback,
		AverageDays:         defaultAverageDays,
		PM25Weight:          defaultPM25Weight,
		PM10Weight:          defaultPM10Weight,
		ImportDays:          defaultImportDays,
		Port:                defaultPort,
	}

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("decode config file: %w", err)
		}
	}

	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("OPENAQ_API_KEY")); v != "" {
		cfg.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("OPENAQ_BASE_URL")); v != "" {
		cfg.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("AERIS_USE_MOCK")); v != "" {
		cfg.UseMock = v == "1" || strings.EqualFold(v, "true")
	}
	if v := strings.TrimSpace(os.Getenv("AERIS_COUNTRIES")); v != "" {
		parts := strings.Split(v, ",")
		countries := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
				countries = append(countries, p)
			}
		}
		cfg.Countries = countries
	}

	var err error
	if cfg.LocationLimit, err = envInt("AERIS_LOCATION_LIMIT", cfg.LocationLimit); err != nil {
		return cfg, err
	}
	if cfg.RetryAttempts, err = envInt("AERIS_RETRY_ATTEMPTS", cfg.RetryAttempts); err != nil {
		return cfg, err
	}
	if cfg.RetryInterval, err = envDuration("AERIS_RETRY_INTERVAL", cfg.RetryInterval); err != nil {
		return cfg, err
	}
	if cfg.MeasurementWorkers, err = envInt("AERIS_MEASUREMENT_WORKERS", cfg.MeasurementWorkers); err != nil {
		return cfg, err
	}
	if cfg.RequestTimeout, err = envDuration("AERIS_REQUEST_TIMEOUT", cfg.RequestTimeout); err != nil {
		return cfg, err
	}
	if cfg.RankingLookbackDays, err = envInt("AERIS_RANKING_LOOKBACK_DAYS", cfg.RankingLookbackDays); err != nil {
		return cfg, err
	}
	if cfg.AverageDays, err = envInt("AERIS_AVERAGE_DAYS", cfg.AverageDays); err != nil {
		return cfg, err
	}
	if cfg.PM25Weight, err = envFloat("AERIS_PM25_WEIGHT", cfg.PM25Weight); err != nil {
		return cfg, err
	}
	if cfg.PM10Weight, err = envFloat("AERIS_PM10_WEIGHT", cfg.PM10Weight); err != nil {
		return cfg, err
	}
	if cfg.ImportDays, err = envInt("AERIS_IMPORT_DAYS", cfg.ImportDays); err != nil {
		return cfg, err
	}
	if cfg.ImportInterval, err = envDuration("AERIS_IMPORT_INTERVAL", cfg.ImportInterval); err != nil {
		return cfg, err
	}
	if cfg.Port, err = envInt("PORT", cfg.Port); err != nil {
		return cfg, err
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return errors.New("DATABASE_URL is required")
	}
	if !c.UseMock && strings.TrimSpace(c.APIKey) == "" {
		return errors.New("OPENAQ_API_KEY is required unless AERIS_USE_MOCK is set")
	}
	if len(c.Countries) == 0 {
		return errors.New("at least one country must be configured")
	}
	if c.LocationLimit <= 0 {
		return errors.New("location limit must be positive")
	}
	if c.RetryAttempts <= 0 {
		return errors.New("retry attempts must be positive")
	}
	if c.MeasurementWorkers <= 0 {
		return errors.New("measurement workers must be positive")
	}
	if c.RankingLookbackDays <= 0 {
		return errors.New("ranking lookback days must be positive")
	}
	if c.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("invalid %s: %s", key, v)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, fmt.Errorf("invalid %s: %s", key, v)
	}
	return f, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
