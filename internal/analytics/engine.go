package analytics

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/yuzukaze/aeris/internal/models"
)

// ErrUnknownCountry is returned before any database call when a country
// code is not in the supported set.
var ErrUnknownCountry = errors.New("unknown country code")

// ErrInvalidDayCount is returned for non-positive or oversized average
// windows.
var ErrInvalidDayCount = errors.New("invalid day count")

// maxAverageDays bounds the averaging window to the import retention
// policy's maximum.
const maxAverageDays = 365

// Store is the read-side subset of the persistence layer the engine
// queries. All operations are pure reads.
type Store interface {
	LatestPollutants(ctx context.Context, country string, lookbackDays int) (models.PollutantSnapshot, error)
	Averages(ctx context.Context, country string, days int) (models.CountryAirQuality, error)
	LatestByCity(ctx context.Context, country string) ([]models.CityLatest, error)
}

// Options tunes the pollution index.
type Options struct {
	Countries    []string
	LookbackDays int
	PM25Weight   float64
	PM10Weight   float64
}

// Engine answers aggregate pollution queries over persisted data.
type Engine struct {
	store Store
	opts  Options
	log   *zap.Logger
}

// New builds an Engine, applying the default index policy for unset
// options (7-day lookback, PM2.5 weighted 1.5, PM10 weighted 1.0).
func New(store Store, opts Options, log *zap.Logger) *Engine {
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 7
	}
	if opts.PM25Weight == 0 {
		opts.PM25Weight = 1.5
	}
	if opts.PM10Weight == 0 {
		opts.PM10Weight = 1.0
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{store: store, opts: opts, log: log}
}

// MostPolluted ranks the supported countries by the pollution index
// over each country's latest PM2.5 and PM10 within the lookback window
// and returns the maximum. A missing pollutant contributes zero to the
// index rather than excluding the country, which biases the ranking
// toward countries with complete data; ties break toward the lexically
// smaller country code so the result is deterministic.
func (e *Engine) MostPolluted(ctx context.Context) (models.PollutionRanking, error) {
	if len(e.opts.Countries) == 0 {
		return models.PollutionRanking{}, errors.New("no countries configured")
	}

	countries := append([]string(nil), e.opts.Countries...)
	sort.Strings(countries)

	var best models.PollutionRanking
	haveBest := false
	for _, country := range countries {
		snap, err := e.store.LatestPollutants(ctx, country, e.opts.LookbackDays)
		if err != nil {
			return models.PollutionRanking{}, fmt.Errorf("latest pollutants for %s: %w", country, err)
		}

		index := 0.0
		if snap.PM25 != nil {
			index += e.opts.PM25Weight * *snap.PM25
		}
		if snap.PM10 != nil {
			index += e.opts.PM10Weight * *snap.PM10
		}

		if !haveBest || index > best.PollutionIndex {
			best = models.PollutionRanking{
				Country:        country,
				PollutionIndex: index,
				PM25:           snap.PM25,
				PM10:           snap.PM10,
			}
			haveBest = true
		}
	}

	e.log.Info("most polluted country computed",
		zap.String("country", best.Country),
		zap.Float64("index", best.PollutionIndex))
	return best, nil
}

// Average computes per-parameter means for a country over the last
// `days` days. A window with no rows yields a result whose HasData
// method reports false; parameters without observations stay nil.
func (e *Engine) Average(ctx context.Context, country string, days int) (models.CountryAirQuality, error) {
	if err := e.checkCountry(country); err != nil {
		return models.CountryAirQuality{}, err
	}
	if days <= 0 || days > maxAverageDays {
		return models.CountryAirQuality{}, fmt.Errorf("%w: got %d, want 1..%d", ErrInvalidDayCount, days, maxAverageDays)
	}
	return e.store.Averages(ctx, country, days)
}

// MeasurementsByCity returns each city's latest value per parameter for
// a country. An empty slice means no data.
func (e *Engine) MeasurementsByCity(ctx context.Context, country string) ([]models.CityLatest, error) {
	if err := e.checkCountry(country); err != nil {
		return nil, err
	}
	return e.store.LatestByCity(ctx, country)
}

func (e *Engine) checkCountry(country string) error {
	for _, c := range e.opts.Countries {
		if c == country {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownCountry, country)
}
