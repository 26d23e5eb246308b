package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/yuzukaze/aeris/internal/analytics"
	"github.com/yuzukaze/aeris/internal/config"
	"github.com/yuzukaze/aeris/internal/db"
	"github.com/yuzukaze/aeris/internal/importer"
	"github.com/yuzukaze/aeris/internal/models"
	"github.com/yuzukaze/aeris/internal/openaq"
)

// App wires the provider, store, importer and analytics engine together
// and exposes the operations the CLI and HTTP layers call. None of
// these methods print or prompt; callers decide how to present results.
type App struct {
	store    *db.Store
	importer *importer.Importer
	engine   *analytics.Engine
	log      *zap.Logger
}

// New builds the application from configuration. The data source is
// chosen at construction time: the live client, or the fixture provider
// when use_mock is set.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	store, err := db.New(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return nil, err
	}

	var provider openaq.Provider
	if cfg.UseMock {
		provider = openaq.NewMockProvider()
	} else {
		opts := []openaq.Option{openaq.WithLogger(log)}
		if cfg.BaseURL != "" {
			opts = append(opts, openaq.WithBaseURL(cfg.BaseURL))
		}
		client, err := openaq.NewClient(cfg.APIKey, opts...)
		if err != nil {
			store.Close()
			return nil, err
		}
		provider = client
	}

	imp := importer.New(provider, store, importer.Options{
		Countries:     cfg.Countries,
		LocationLimit: cfg.LocationLimit,
		RetryAttempts: cfg.RetryAttempts,
		RetryInterval: cfg.RetryInterval,
		Workers:       cfg.MeasurementWorkers,
	}, log)

	engine := analytics.New(store, analytics.Options{
		Countries:    cfg.Countries,
		LookbackDays: cfg.RankingLookbackDays,
		PM25Weight:   cfg.PM25Weight,
		PM10Weight:   cfg.PM10Weight,
	}, log)

	return &App{store: store, importer: imp, engine: engine, log: log}, nil
}

// Close releases database resources.
func (a *App) Close() {
	a.store.Close()
}

// InitSchema creates tables and indexes if absent.
func (a *App) InitSchema(ctx context.Context) error {
	return a.store.InitSchema(ctx)
}

// Import runs a full import of the last `days` days and returns the
// summary, including skip records for partially failed entities.
func (a *App) Import(ctx context.Context, days int) (*importer.Summary, error) {
	return a.importer.Run(ctx, days)
}

// MostPolluted returns the highest-index country.
func (a *App) MostPolluted(ctx context.Context) (models.PollutionRanking, error) {
	return a.engine.MostPolluted(ctx)
}

// Average returns per-parameter means for a country over a day window.
func (a *App) Average(ctx context.Context, country string, days int) (models.CountryAirQuality, error) {
	return a.engine.Average(ctx, country, days)
}

// MeasurementsByCity returns the latest value per parameter per city.
func (a *App) MeasurementsByCity(ctx context.Context, country string) ([]models.CityLatest, error) {
	return a.engine.MeasurementsByCity(ctx, country)
}

// SchemaInitialized reports whether the schema exists; the CLI layer
// uses it to decide which operations to offer.
func (a *App) SchemaInitialized(ctx context.Context) (bool, error) {
	return a.store.SchemaInitialized(ctx)
}

// HasData reports whether any measurements have been imported.
func (a *App) HasData(ctx context.Context) (bool, error) {
	return a.store.HasData(ctx)
}
