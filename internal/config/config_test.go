package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATABASE_URL", "OPENAQ_API_KEY", "OPENAQ_BASE_URL", "CONFIG_FILE",
		"AERIS_USE_MOCK", "AERIS_COUNTRIES", "AERIS_LOCATION_LIMIT",
		"AERIS_RETRY_ATTEMPTS", "AERIS_RETRY_INTERVAL", "AERIS_MEASUREMENT_WORKERS",
		"AERIS_REQUEST_TIMEOUT", "AERIS_RANKING_LOOKBACK_DAYS", "AERIS_AVERAGE_DAYS",
		"AERIS_PM25_WEIGHT", "AERIS_PM10_WEIGHT", "AERIS_IMPORT_DAYS",
		"AERIS_IMPORT_INTERVAL", "PORT",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/aeris")
	t.Setenv("OPENAQ_API_KEY", "k")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LocationLimit != 10 || cfg.RetryAttempts != 3 || cfg.MeasurementWorkers != 4 {
		t.Errorf("defaults = %d/%d/%d", cfg.LocationLimit, cfg.RetryAttempts, cfg.MeasurementWorkers)
	}
	if cfg.RetryInterval != 2*time.Second {
		t.Errorf("retry interval = %v", cfg.RetryInterval)
	}
	if cfg.RankingLookbackDays != 7 || cfg.AverageDays != 5 || cfg.ImportDays != 7 {
		t.Errorf("windows = %d/%d/%d", cfg.RankingLookbackDays, cfg.AverageDays, cfg.ImportDays)
	}
	if cfg.PM25Weight != 1.5 || cfg.PM10Weight != 1.0 {
		t.Errorf("weights = %f/%f", cfg.PM25Weight, cfg.PM10Weight)
	}
	if len(cfg.Countries) != 6 || cfg.Countries[0] != "NL" {
		t.Errorf("countries = %v", cfg.Countries)
	}
	if cfg.ListenAddr() != ":8080" {
		t.Errorf("listen addr = %s", cfg.ListenAddr())
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAQ_API_KEY", "k")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
}

func TestLoadRequiresAPIKeyUnlessMock(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/aeris")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without OPENAQ_API_KEY")
	}

	t.Setenv("AERIS_USE_MOCK", "true")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load with mock: %v", err)
	}
	if !cfg.UseMock {
		t.Error("UseMock not set")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/aeris")
	t.Setenv("OPENAQ_API_KEY", "k")
	t.Setenv("AERIS_COUNTRIES", "nl, pk")
	t.Setenv("AERIS_RETRY_INTERVAL", "500ms")
	t.Setenv("AERIS_PM25_WEIGHT", "2.0")
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Countries) != 2 || cfg.Countries[0] != "NL" || cfg.Countries[1] != "PK" {
		t.Errorf("countries = %v", cfg.Countries)
	}
	if cfg.RetryInterval != 500*time.Millisecond {
		t.Errorf("retry interval = %v", cfg.RetryInterval)
	}
	if cfg.PM25Weight != 2.0 {
		t.Errorf("pm25 weight = %f", cfg.PM25Weight)
	}
	if cfg.Port != 9090 {
		t.Errorf("port = %d", cfg.Port)
	}
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "aeris.yaml")
	data := []byte("database_url: postgres://file/aeris\napi_key: from-file\nlocation_limit: 3\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabaseURL != "postgres://file/aeris" || cfg.APIKey != "from-file" {
		t.Errorf("file values not applied: %q/%q", cfg.DatabaseURL, cfg.APIKey)
	}
	if cfg.LocationLimit != 3 {
		t.Errorf("location limit = %d", cfg.LocationLimit)
	}

	// Environment still wins over the file.
	t.Setenv("DATABASE_URL", "postgres://env/aeris")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabaseURL != "postgres://env/aeris" {
		t.Errorf("env did not override file: %q", cfg.DatabaseURL)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/aeris")
	t.Setenv("OPENAQ_API_KEY", "k")
	t.Setenv("AERIS_LOCATION_LIMIT", "not-a-number")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric AERIS_LOCATION_LIMIT")
	}
}
