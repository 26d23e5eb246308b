package openaq

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// MockProvider serves fixture data for the supported countries without
// touching the network. It implements Provider so it can stand in for
// the live client at construction time. Values are derived from a seed
// per (sensor, day), so repeated fetches of the same window return the
// same data.
type MockProvider struct {
	locations map[string][]Location
	sensors   map[int64][]Sensor
	factors   map[string]float64
}

type mockSite struct {
	id       int64
	name     string
	locality string
	lat, lon float64
}

var mockSites = map[string][]mockSite{
	"NL": {{1001, "Amsterdam-Vondelpark", "Amsterdam", 52.36, 4.87}, {1002, "Rotterdam-Zuid", "Rotterdam", 51.89, 4.49}},
	"DE": {{2001, "Berlin-Mitte", "Berlin", 52.52, 13.40}, {2002, "München-Stachus", "München", 48.14, 11.57}},
	"FR": {{3001, "Paris-Centre", "Paris", 48.86, 2.35}},
	"GR": {{4001, "Athens-Patission", "Athens", 37.99, 23.73}},
	"ES": {{5001, "Madrid-Retiro", "Madrid", 40.41, -3.68}},
	"PK": {{6001, "Lahore-Gulberg", "Lahore", 31.52, 74.35}, {6002, "Karachi-Clifton", "Karachi", 24.81, 67.03}},
}

// Relative pollution levels per country, applied to every parameter.
var mockFactors = map[string]float64{
	"NL": 0.9, "DE": 1.0, "FR": 0.95, "GR": 1.2, "ES": 0.85, "PK": 2.8,
}

var mockParameters = []Parameter{
	{ID: 2, Name: "pm25", Units: "µg/m³"},
	{ID: 1, Name: "pm10", Units: "µg/m³"},
	{ID: 7, Name: "no2", Units: "µg/m³"},
}

// Typical urban magnitudes the per-day jitter is applied to.
var mockBaseValues = map[string]float64{
	"pm25": 12, "pm10": 20, "no2": 25,
}

// NewMockProvider builds the fixture set.
func NewMockProvider() *MockProvider {
	p := &MockProvider{
		locations: make(map[string][]Location),
		sensors:   make(map[int64][]Sensor),
		factors:   mockFactors,
	}

	for country, sites := range mockSites {
		for _, site := range sites {
			site := site
			lat, lon := site.lat, site.lon
			name := site.name
			locality := site.locality
			loc := Location{
				ID:          site.id,
				Name:        &name,
				Locality:    &locality,
				Timezone:    "UTC",
				Country:     Country{Code: country, Name: country},
				Owner:       Entity{ID: 1, Name: "Aeris Fixtures"},
				Provider:    Entity{ID: 1, Name: "mock"},
				IsMonitor:   true,
				Coordinates: Coordinates{Latitude: &lat, Longitude: &lon},
			}
			p.locations[country] = append(p.locations[country], loc)

			for i, param := range mockParameters {
				sensorID := site.id*100 + int64(i)
				p.sensors[site.id] = append(p.sensors[site.id], Sensor{
					ID:        sensorID,
					Name:      fmt.Sprintf("%s %s", site.name, param.Name),
					Parameter: param,
				})
			}
		}
	}
	return p
}

// Locations returns fixture locations; unknown countries yield an empty
// sequence, matching the remote API's behavior for unmatched filters.
func (p *MockProvider) Locations(ctx context.Context, countryCode string, limit int) ([]Location, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	locs := p.locations[countryCode]
	if limit > 0 && len(locs) > limit {
		locs = locs[:limit]
	}
	out := make([]Location, len(locs))
	copy(out, locs)
	return out, nil
}

// Sensors returns the fixture sensors for a location.
func (p *MockProvider) Sensors(ctx context.Context, locationID int64) ([]Sensor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sensors := p.sensors[locationID]
	out := make([]Sensor, len(sensors))
	copy(out, sensors)
	return out, nil
}

// DailyMeasurements synthesizes one aggregate per UTC day in the window.
func (p *MockProvider) DailyMeasurements(ctx context.Context, sensorID int64, dateFrom, dateTo time.Time) ([]DailyMeasurement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sensor, country, ok := p.findSensor(sensorID)
	if !ok {
		return nil, nil
	}
	factor := p.factors[country]
	base := mockBaseValues[sensor.Parameter.Name] * factor

	from := dateFrom.UTC().Truncate(24 * time.Hour)
	to := dateTo.UTC().Truncate(24 * time.Hour)

	out := make([]DailyMeasurement, 0)
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		rng := rand.New(rand.NewSource(sensorID*1_000_003 + day.Unix()))

		avg := base * (0.7 + 0.6*rng.Float64())
		minV := avg * (0.5 + 0.2*rng.Float64())
		maxV := avg * (1.3 + 0.4*rng.Float64())
		count := int32(20 + rng.Intn(5))

		out = append(out, DailyMeasurement{
			Value:     &avg,
			Parameter: sensor.Parameter,
			Period: Period{
				Label:        "1 day",
				Interval:     "24:00:00",
				DatetimeFrom: Datetime{UTC: day, Local: day.Format(time.RFC3339)},
				DatetimeTo:   Datetime{UTC: day.AddDate(0, 0, 1), Local: day.AddDate(0, 0, 1).Format(time.RFC3339)},
			},
			Summary:  &Summary{Min: &minV, Max: &maxV, Avg: &avg},
			Coverage: &Coverage{ObservedCount: &count},
		})
	}
	return out, nil
}

func (p *MockProvider) findSensor(sensorID int64) (Sensor, string, bool) {
	for country, locs := range p.locations {
		for _, loc := range locs {
			for _, s := range p.sensors[loc.ID] {
				if s.ID == sensorID {
					return s, country, true
				}
			}
		}
	}
	return Sensor{}, "", false
}
