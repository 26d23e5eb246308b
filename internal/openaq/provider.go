package openaq

import (
	"context"
	"time"
)

// Provider abstracts the remote measurement source. Client talks to the
// live API; MockProvider serves fixtures. Both return flattened,
// order-preserving sequences with pagination handled internally.
type Provider interface {
	// Locations returns up to limit locations for a country code.
	// limit <= 0 means no cap.
	Locations(ctx context.Context, countryCode string, limit int) ([]Location, error)
	// Sensors returns all sensors attached to a location.
	Sensors(ctx context.Context, locationID int64) ([]Sensor, error)
	// DailyMeasurements returns daily aggregates for a sensor within
	// [dateFrom, dateTo].
	DailyMeasurements(ctx context.Context, sensorID int64, dateFrom, dateTo time.Time) ([]DailyMeasurement, error)
}
