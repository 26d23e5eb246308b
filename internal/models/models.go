package models

import "time"

// Location is a monitoring site as persisted in the locations table.
// Rows are written once per provider id; re-imports are no-ops.
type Location struct {
	ID            int64
	Name          string
	Locality      *string
	CountryCode   string
	CountryName   string
	Timezone      string
	Latitude      *float64
	Longitude     *float64
	DatetimeFirst *time.Time
	DatetimeLast  *time.Time
	IsMobile      bool
	IsMonitor     bool
	OwnerName     string
	ProviderName  string
}

// Sensor is a single-parameter device attached to a location. The
// location row must exist before the sensor row is written.
type Sensor struct {
	ID            int64
	LocationID    int64
	Name          string
	ParameterID   int32
	ParameterName string
	Units         string
	DisplayName   *string
}

// Measurement is one day's aggregated statistics for one sensor,
// keyed by (SensorID, DateUTC). Location and sensor attributes are
// denormalized onto the row at capture time and never retro-updated.
type Measurement struct {
	LocationID       int64
	SensorID         int64
	LocationName     string
	SensorName       string
	ParameterID      int32
	ParameterName    string
	ValueAvg         *float64
	ValueMin         *float64
	ValueMax         *float64
	MeasurementCount *int32
	Unit             string
	DateUTC          time.Time
	DateLocal        string
	Country          string
	City             *string
	Latitude         *float64
	Longitude        *float64
	IsMobile         bool
	IsMonitor        bool
	OwnerName        string
	ProviderName     string
}

// PollutantSnapshot holds the most recent PM2.5 and PM10 values
// observed for a country within a lookback window. Nil means no
// observation in the window.
type PollutantSnapshot struct {
	PM25 *float64
	PM10 *float64
}

// PollutionRanking is the result of the most-polluted-country query.
type PollutionRanking struct {
	Country        string   `json:"country"`
	PollutionIndex float64  `json:"pollution_index"`
	PM25           *float64 `json:"pm25,omitempty"`
	PM10           *float64 `json:"pm10,omitempty"`
}

// CountryAirQuality holds per-parameter means over a day window.
// A nil average means the parameter had no observations in the window.
type CountryAirQuality struct {
	Country          string   `json:"country"`
	AvgPM25          *float64 `json:"avg_pm25,omitempty"`
	AvgPM10          *float64 `json:"avg_pm10,omitempty"`
	AvgO3            *float64 `json:"avg_o3,omitempty"`
	AvgNO2           *float64 `json:"avg_no2,omitempty"`
	AvgSO2           *float64 `json:"avg_so2,omitempty"`
	AvgCO            *float64 `json:"avg_co,omitempty"`
	MeasurementCount int64    `json:"measurement_count"`
}

// HasData reports whether any measurements contributed to the averages.
func (q CountryAirQuality) HasData() bool {
	return q.MeasurementCount > 0
}

// CityLatest is the most recent value per parameter for one city.
type CityLatest struct {
	City        string    `json:"city"`
	PM25        *float64  `json:"pm25,omitempty"`
	PM10        *float64  `json:"pm10,omitempty"`
	O3          *float64  `json:"o3,omitempty"`
	NO2         *float64  `json:"no2,omitempty"`
	SO2         *float64  `json:"so2,omitempty"`
	CO          *float64  `json:"co,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
}
