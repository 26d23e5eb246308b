package importer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yuzukaze/aeris/internal/metrics"
	"github.com/yuzukaze/aeris/internal/models"
	"github.com/yuzukaze/aeris/internal/openaq"
)

// Stage names the pipeline step a skip happened in.
type Stage string

const (
	StageLocations    Stage = "locations"
	StageSensors      Stage = "sensors"
	StageMeasurements Stage = "measurements"
)

// Skip records one entity that could not be imported. Entity-level
// failures never escape the orchestrator; they end up here instead.
type Skip struct {
	Country string `json:"country"`
	Stage   Stage  `json:"stage"`
	Entity  string `json:"entity"`
	Reason  string `json:"reason"`
}

// Summary is the outcome of one import run. Counts are newly persisted
// rows; duplicates silently ignored by the store do not count.
type Summary struct {
	RunID        uuid.UUID `json:"run_id"`
	DateFrom     time.Time `json:"date_from"`
	DateTo       time.Time `json:"date_to"`
	Locations    int64     `json:"locations"`
	Sensors      int64     `json:"sensors"`
	Measurements int64     `json:"measurements"`
	Skips        []Skip    `json:"skips"`
}

// Store is the subset of the persistence layer the importer writes to.
type Store interface {
	InitSchema(ctx context.Context) error
	UpsertLocations(ctx context.Context, locations []models.Location) (int64, error)
	UpsertSensors(ctx context.Context, sensors []models.Sensor) (int64, error)
	UpsertMeasurements(ctx context.Context, measurements []models.Measurement) (int64, error)
}

// Options tunes an import run.
type Options struct {
	Countries     []string
	LocationLimit int
	RetryAttempts int
	RetryInterval time.Duration
	Workers       int
}

// Importer drives the three-stage fetch-and-persist sequence per
// country: locations, then sensors, then daily measurements. Stages run
// in order because each stage's rows are a precondition for the next;
// within stage three, per-sensor fetches fan out over a bounded worker
// pool.
type Importer struct {
	provider openaq.Provider
	store    Store
	opts     Options
	log      *zap.Logger
}

// New builds an Importer, applying defaults for unset options.
func New(provider openaq.Provider, store Store, opts Options, log *zap.Logger) *Importer {
	if opts.LocationLimit <= 0 {
		opts.LocationLimit = 10
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 3
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 2 * time.Second
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{provider: provider, store: store, opts: opts, log: log}
}

// Run imports the last `days` days of daily measurements for every
// configured country. Entity-level failures become skip records; the
// returned summary is complete even when some entities failed. Only
// validation, schema and cancellation errors escape.
func (imp *Importer) Run(ctx context.Context, days int) (*Summary, error) {
	if err := ValidateDays(days); err != nil {
		return nil, err
	}

	if err := imp.store.InitSchema(ctx); err != nil {
		metrics.ImportRuns.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	dateTo := time.Now().UTC()
	dateFrom := dateTo.AddDate(0, 0, -days)

	sum := &Summary{
		RunID:    uuid.New(),
		DateFrom: dateFrom,
		DateTo:   dateTo,
		Skips:    make([]Skip, 0),
	}
	log := imp.log.With(zap.String("run_id", sum.RunID.String()))
	log.Info("starting import",
		zap.Int("days", days),
		zap.Strings("countries", imp.opts.Countries))

	for _, country := range imp.opts.Countries {
		if err := ctx.Err(); err != nil {
			metrics.ImportRuns.WithLabelValues("failed").Inc()
			return sum, err
		}
		imp.importCountry(ctx, log, country, dateFrom, dateTo, sum)
	}

	metrics.ImportRuns.WithLabelValues("completed").Inc()
	log.Info("import finished",
		zap.Int64("locations", sum.Locations),
		zap.Int64("sensors", sum.Sensors),
		zap.Int64("measurements", sum.Measurements),
		zap.Int("skips", len(sum.Skips)))
	return sum, nil
}

// importCountry runs the staged sequence for one country. A locations
// failure aborts this country only; sibling countries continue.
func (imp *Importer) importCountry(ctx context.Context, log *zap.Logger, country string, dateFrom, dateTo time.Time, sum *Summary) {
	log = log.With(zap.String("country", country))

	locations, err := imp.provider.Locations(ctx, country, imp.opts.LocationLimit)
	if err != nil {
		log.Warn("fetching locations failed, skipping country", zap.Error(err))
		sum.skip(country, StageLocations, country, err)
		return
	}
	if len(locations) == 0 {
		log.Info("no locations found")
		return
	}

	inserted, err := imp.store.UpsertLocations(ctx, locationRows(locations))
	if err != nil {
		log.Warn("persisting locations failed, skipping country", zap.Error(err))
		sum.skip(country, StageLocations, country, err)
		return
	}
	sum.Locations += inserted
	metrics.LocationsPersisted.Add(float64(inserted))

	jobs := imp.importSensors(ctx, log, country, locations, sum)
	imp.importMeasurements(ctx, log, country, jobs, dateFrom, dateTo, sum)
}

// sensorJob pairs a sensor with its owning location so measurement rows
// can snapshot the location attributes.
type sensorJob struct {
	sensor   openaq.Sensor
	location openaq.Location
}

// importSensors fetches and persists sensors per location. A failure
// for one location is recorded and skipped; siblings continue.
func (imp *Importer) importSensors(ctx context.Context, log *zap.Logger, country string, locations []openaq.Location, sum *Summary) []sensorJob {
	jobs := make([]sensorJob, 0)
	for _, loc := range locations {
		if ctx.Err() != nil {
			return jobs
		}

		sensors, err := imp.provider.Sensors(ctx, loc.ID)
		if err != nil {
			log.Warn("fetching sensors failed, skipping location",
				zap.Int64("location_id", loc.ID), zap.Error(err))
			sum.skip(country, StageSensors, fmt.Sprintf("location %d", loc.ID), err)
			continue
		}
		if len(sensors) == 0 {
			continue
		}

		inserted, err := imp.store.UpsertSensors(ctx, sensorRows(loc.ID, sensors))
		if err != nil {
			log.Warn("persisting sensors failed, skipping location",
				zap.Int64("location_id", loc.ID), zap.Error(err))
			sum.skip(country, StageSensors, fmt.Sprintf("location %d", loc.ID), err)
			continue
		}
		sum.Sensors += inserted
		metrics.SensorsPersisted.Add(float64(inserted))

		for _, s := range sensors {
			jobs = append(jobs, sensorJob{sensor: s, location: loc})
		}
	}
	return jobs
}

type measureResult struct {
	job      sensorJob
	inserted int64
	err      error
}

// importMeasurements fans per-sensor fetches out over a fixed-size
// worker pool. Cancellation stops new fetches; in-flight ones finish.
// Results are folded into the summary on this goroutine only.
func (imp *Importer) importMeasurements(ctx context.Context, log *zap.Logger, country string, jobs []sensorJob, dateFrom, dateTo time.Time, sum *Summary) {
	if len(jobs) == 0 {
		return
	}

	jobCh := make(chan sensorJob)
	results := make(chan measureResult, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < imp.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				if err := ctx.Err(); err != nil {
					results <- measureResult{job: job, err: err}
					continue
				}
				inserted, err := imp.importSensorMeasurements(ctx, job, dateFrom, dateTo)
				results <- measureResult{job: job, inserted: inserted, err: err}
			}
		}()
	}

	go func() {
		for _, job := range jobs {
			jobCh <- job
		}
		close(jobCh)
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		if res.err != nil {
			log.Warn("sensor import skipped",
				zap.Int64("sensor_id", res.job.sensor.ID), zap.Error(res.err))
			sum.skip(country, StageMeasurements, fmt.Sprintf("sensor %d", res.job.sensor.ID), res.err)
			continue
		}
		sum.Measurements += res.inserted
		metrics.MeasurementsPersisted.Add(float64(res.inserted))
	}
}

func (imp *Importer) importSensorMeasurements(ctx context.Context, job sensorJob, dateFrom, dateTo time.Time) (int64, error) {
	daily, err := imp.fetchDailyWithRetry(ctx, job.sensor.ID, dateFrom, dateTo)
	if err != nil {
		return 0, err
	}
	if len(daily) == 0 {
		return 0, nil
	}
	return imp.store.UpsertMeasurements(ctx, measurementRows(daily, job.location, job.sensor))
}

// fetchDailyWithRetry retries transient provider failures with a
// linearly increasing delay. Permanent errors fail immediately, without
// further attempts.
func (imp *Importer) fetchDailyWithRetry(ctx context.Context, sensorID int64, dateFrom, dateTo time.Time) ([]openaq.DailyMeasurement, error) {
	var lastErr error
	for attempt := 1; attempt <= imp.opts.RetryAttempts; attempt++ {
		daily, err := imp.provider.DailyMeasurements(ctx, sensorID, dateFrom, dateTo)
		if err == nil {
			return daily, nil
		}
		if !openaq.IsTransient(err) {
			return nil, err
		}
		lastErr = err

		if attempt == imp.opts.RetryAttempts {
			break
		}
		metrics.FetchRetries.Inc()

		timer := time.NewTimer(time.Duration(attempt) * imp.opts.RetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, fmt.Errorf("retries exhausted after %d attempts: %w", imp.opts.RetryAttempts, lastErr)
}

func (s *Summary) skip(country string, stage Stage, entity string, err error) {
	s.Skips = append(s.Skips, Skip{
		Country: country,
		Stage:   stage,
		Entity:  entity,
		Reason:  err.Error(),
	})
	metrics.EntitiesSkipped.WithLabelValues(string(stage)).Inc()
}
