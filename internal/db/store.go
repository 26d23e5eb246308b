package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/yuzukaze/aeris/internal/models"
)

// Store owns the schema and all reads/writes for locations, sensors and
// daily measurements. Writes are insert-if-absent by natural key; the
// (sensor_id, date_utc) uniqueness constraint is enforced here, not in
// application logic. The pool is safe for concurrent use by the import
// workers; every upsert batch is its own transaction.
type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// New creates a Store backed by a pgx pool and verifies connectivity.
func New(ctx context.Context, databaseURL string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{pool: pool, log: log}, nil
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS locations (
		id BIGINT PRIMARY KEY,
		name TEXT,
		locality TEXT,
		country_code TEXT NOT NULL,
		country_name TEXT NOT NULL,
		timezone TEXT NOT NULL,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		datetime_first TIMESTAMPTZ,
		datetime_last TIMESTAMPTZ,
		is_mobile BOOLEAN NOT NULL,
		is_monitor BOOLEAN NOT NULL,
		owner_name TEXT,
		provider_name TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS sensors (
		id BIGINT PRIMARY KEY,
		location_id BIGINT NOT NULL REFERENCES locations(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		parameter_id INT NOT NULL,
		parameter_name TEXT NOT NULL,
		units TEXT NOT NULL,
		display_name TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS measurements (
		id SERIAL PRIMARY KEY,
		location_id BIGINT NOT NULL,
		sensor_id BIGINT NOT NULL,
		location_name TEXT NOT NULL,
		sensor_name TEXT NOT NULL,
		parameter_id INT NOT NULL,
		parameter_name TEXT NOT NULL,
		value_avg NUMERIC,
		value_min NUMERIC,
		value_max NUMERIC,
		measurement_count INT,
		unit TEXT NOT NULL,
		date_utc TIMESTAMPTZ NOT NULL,
		date_local TEXT NOT NULL,
		country TEXT NOT NULL,
		city TEXT,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		is_mobile BOOLEAN NOT NULL DEFAULT FALSE,
		is_monitor BOOLEAN NOT NULL DEFAULT FALSE,
		owner_name TEXT,
		provider_name TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (sensor_id, date_utc)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_measurements_country ON measurements(country)`,
	`CREATE INDEX IF NOT EXISTS idx_measurements_sensor_id ON measurements(sensor_id)`,
	`CREATE INDEX IF NOT EXISTS idx_measurements_parameter_id ON measurements(parameter_id)`,
	`CREATE INDEX IF NOT EXISTS idx_measurements_parameter_name ON measurements(parameter_name)`,
	`CREATE INDEX IF NOT EXISTS idx_measurements_date_utc ON measurements(date_utc)`,
}

// InitSchema creates the tables and indexes if absent. Safe to call
// repeatedly; never drops or alters existing data.
func (s *Store) InitSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	s.log.Info("database schema initialized")
	return nil
}

// SchemaInitialized reports whether the measurements table exists.
func (s *Store) SchemaInitialized(ctx context.Context) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_schema = 'public' AND table_name = 'measurements')`,
	).Scan(&exists)
	return exists, err
}

// HasData reports whether at least one measurement row exists.
func (s *Store) HasData(ctx context.Context) (bool, error) {
	initialized, err := s.SchemaInitialized(ctx)
	if err != nil || !initialized {
		return false, err
	}
	var exists bool
	err = s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM measurements LIMIT 1)`).Scan(&exists)
	return exists, err
}

const upsertLocationSQL = `INSERT INTO locations
(id, name, locality, country_code, country_name, timezone, latitude, longitude, datetime_first, datetime_last, is_mobile, is_monitor, owner_name, provider_name)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT (id) DO NOTHING`

// UpsertLocations inserts location rows, ignoring ids already present.
// Returns the number of rows actually written.
func (s *Store) UpsertLocations(ctx context.Context, locations []models.Location) (int64, error) {
	if len(locations) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, l := range locations {
		batch.Queue(upsertLocationSQL,
			l.ID, l.Name, l.Locality, l.CountryCode, l.CountryName, l.Timezone,
			l.Latitude, l.Longitude, l.DatetimeFirst, l.DatetimeLast,
			l.IsMobile, l.IsMonitor, l.OwnerName, l.ProviderName)
	}
	return s.runBatch(ctx, batch, len(locations))
}

const upsertSensorSQL = `INSERT INTO sensors
(id, location_id, name, parameter_id, parameter_name, units, display_name)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO NOTHING`

// UpsertSensors inserts sensor rows, ignoring ids already present. The
// referenced location rows must already exist.
func (s *Store) UpsertSensors(ctx context.Context, sensors []models.Sensor) (int64, error) {
	if len(sensors) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, sn := range sensors {
		batch.Queue(upsertSensorSQL,
			sn.ID, sn.LocationID, sn.Name, sn.ParameterID, sn.ParameterName, sn.Units, sn.DisplayName)
	}
	return s.runBatch(ctx, batch, len(sensors))
}

const upsertMeasurementSQL = `INSERT INTO measurements
(location_id, sensor_id, location_name, sensor_name, parameter_id, parameter_name, value_avg, value_min, value_max, measurement_count, unit, date_utc, date_local, country, city, latitude, longitude, is_mobile, is_monitor, owner_name, provider_name)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
ON CONFLICT (sensor_id, date_utc) DO NOTHING`

// UpsertMeasurements inserts daily measurement rows, silently ignoring
// (sensor_id, date_utc) duplicates. Returns the number of new rows.
func (s *Store) UpsertMeasurements(ctx context.Context, measurements []models.Measurement) (int64, error) {
	if len(measurements) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, m := range measurements {
		batch.Queue(upsertMeasurementSQL,
			m.LocationID, m.SensorID, m.LocationName, m.SensorName,
			m.ParameterID, m.ParameterName,
			m.ValueAvg, m.ValueMin, m.ValueMax, m.MeasurementCount,
			m.Unit, m.DateUTC, m.DateLocal, m.Country, m.City,
			m.Latitude, m.Longitude, m.IsMobile, m.IsMonitor,
			m.OwnerName, m.ProviderName)
	}
	return s.runBatch(ctx, batch, len(measurements))
}

func (s *Store) runBatch(ctx context.Context, batch *pgx.Batch, n int) (int64, error) {
	res := s.pool.SendBatch(ctx, batch)
	defer res.Close()

	var inserted int64
	for i := 0; i < n; i++ {
		tag, err := res.Exec()
		if err != nil {
			return inserted, err
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

const latestPollutantsSQL = `
SELECT
  (SELECT value_avg::double precision FROM measurements
     WHERE country = $1 AND parameter_name = 'pm25' AND value_avg IS NOT NULL
       AND date_utc > NOW() - make_interval(days => $2)
     ORDER BY date_utc DESC LIMIT 1) AS pm25,
  (SELECT value_avg::double precision FROM measurements
     WHERE country = $1 AND parameter_name = 'pm10' AND value_avg IS NOT NULL
       AND date_utc > NOW() - make_interval(days => $2)
     ORDER BY date_utc DESC LIMIT 1) AS pm10
`

// LatestPollutants returns the most recent PM2.5 and PM10 values for a
// country within the lookback window. Nil fields mean no observation.
func (s *Store) LatestPollutants(ctx context.Context, country string, lookbackDays int) (models.PollutantSnapshot, error) {
	var snap models.PollutantSnapshot
	err := s.pool.QueryRow(ctx, latestPollutantsSQL, country, lookbackDays).Scan(&snap.PM25, &snap.PM10)
	return snap, err
}

const averagesSQL = `
SELECT
  AVG(CASE WHEN parameter_name = 'pm25' THEN value_avg::double precision END) AS avg_pm25,
  AVG(CASE WHEN parameter_name = 'pm10' THEN value_avg::double precision END) AS avg_pm10,
  AVG(CASE WHEN parameter_name = 'o3'   THEN value_avg::double precision END) AS avg_o3,
  AVG(CASE WHEN parameter_name = 'no2'  THEN value_avg::double precision END) AS avg_no2,
  AVG(CASE WHEN parameter_name = 'so2'  THEN value_avg::double precision END) AS avg_so2,
  AVG(CASE WHEN parameter_name = 'co'   THEN value_avg::double precision END) AS avg_co,
  COUNT(*) AS measurement_count
FROM measurements
WHERE country = $1 AND date_utc > NOW() - make_interval(days => $2)
GROUP BY country
`

// Averages computes per-parameter means for a country over the last
// `days` days. A country with no rows in the window yields a result
// with zero count and nil averages.
func (s *Store) Averages(ctx context.Context, country string, days int) (models.CountryAirQuality, error) {
	out := models.CountryAirQuality{Country: country}
	err := s.pool.QueryRow(ctx, averagesSQL, country, days).Scan(
		&out.AvgPM25, &out.AvgPM10, &out.AvgO3, &out.AvgNO2, &out.AvgSO2, &out.AvgCO,
		&out.MeasurementCount,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.CountryAirQuality{Country: country}, nil
	}
	return out, err
}

const latestByCitySQL = `
WITH latest_city_param AS (
	SELECT DISTINCT ON (city, parameter_name)
		city,
		parameter_name,
		value_avg,
		date_utc
	FROM measurements
	WHERE country = $1 AND city IS NOT NULL
	ORDER BY city, parameter_name, date_utc DESC
)
SELECT
	city,
	MAX(CASE WHEN parameter_name = 'pm25' THEN value_avg::double precision END) AS pm25,
	MAX(CASE WHEN parameter_name = 'pm10' THEN value_avg::double precision END) AS pm10,
	MAX(CASE WHEN parameter_name = 'o3'   THEN value_avg::double precision END) AS o3,
	MAX(CASE WHEN parameter_name = 'no2'  THEN value_avg::double precision END) AS no2,
	MAX(CASE WHEN parameter_name = 'so2'  THEN value_avg::double precision END) AS so2,
	MAX(CASE WHEN parameter_name = 'co'   THEN value_avg::double precision END) AS co,
	MAX(date_utc) AS last_updated
FROM latest_city_param
GROUP BY city
ORDER BY city
`

// LatestByCity returns, per city of a country, the most recent value
// for each parameter and the newest update time among them.
func (s *Store) LatestByCity(ctx context.Context, country string) ([]models.CityLatest, error) {
	rows, err := s.pool.Query(ctx, latestByCitySQL, country)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.CityLatest, 0)
	for rows.Next() {
		var c models.CityLatest
		var lastUpdated time.Time
		if err := rows.Scan(&c.City, &c.PM25, &c.PM10, &c.O3, &c.NO2, &c.SO2, &c.CO, &lastUpdated); err != nil {
			return nil, err
		}
		c.LastUpdated = lastUpdated
		out = append(out, c)
	}
	return out, rows.Err()
}
