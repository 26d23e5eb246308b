package openaq

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Found is the total result count reported in response metadata. The
// API sometimes reports a lower bound as a string (e.g. ">10"); those
// values, and null, decode as -1 (unknown).
type Found int

// FoundUnknown marks a count the API did not report exactly.
const FoundUnknown Found = -1

func (f *Found) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = FoundUnknown
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if strings.HasPrefix(s, ">") {
			*f = FoundUnknown
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("openaq: unexpected found value %q", s)
		}
		*f = Found(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = Found(n)
	return nil
}

// Meta is the paging envelope shared by all list responses.
type Meta struct {
	Name    string `json:"name"`
	Website string `json:"website"`
	Page    int    `json:"page"`
	Limit   int    `json:"limit"`
	Found   Found  `json:"found"`
}

// Coordinates holds an optional lat/lon pair.
type Coordinates struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Datetime carries both the UTC instant and the provider's local-time
// text, which keeps whatever timezone formatting the source used.
type Datetime struct {
	UTC   time.Time `json:"utc"`
	Local string    `json:"local"`
}

// Parameter identifies a measured pollutant.
type Parameter struct {
	ID          int32   `json:"id"`
	Name        string  `json:"name"`
	Units       string  `json:"units"`
	DisplayName *string `json:"displayName"`
}

// Country as embedded in location responses.
type Country struct {
	ID   *int32 `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// Entity is a named owner or data provider.
type Entity struct {
	ID   int32  `json:"id"`
	Name string `json:"name"`
}

// Location is a monitoring site from /v3/locations.
type Location struct {
	ID            int64       `json:"id"`
	Name          *string     `json:"name"`
	Locality      *string     `json:"locality"`
	Timezone      string      `json:"timezone"`
	Country       Country     `json:"country"`
	Owner         Entity      `json:"owner"`
	Provider      Entity      `json:"provider"`
	IsMobile      bool        `json:"isMobile"`
	IsMonitor     bool        `json:"isMonitor"`
	Coordinates   Coordinates `json:"coordinates"`
	DatetimeFirst *Datetime   `json:"datetimeFirst"`
	DatetimeLast  *Datetime   `json:"datetimeLast"`
}

// Sensor is a single-parameter device from /v3/locations/{id}/sensors.
type Sensor struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Parameter Parameter `json:"parameter"`
}

// Period is the aggregation window of a daily measurement.
type Period struct {
	Label        string   `json:"label"`
	Interval     string   `json:"interval"`
	DatetimeFrom Datetime `json:"datetimeFrom"`
	DatetimeTo   Datetime `json:"datetimeTo"`
}

// Summary holds per-day distribution statistics.
type Summary struct {
	Min    *float64 `json:"min"`
	Q25    *float64 `json:"q25"`
	Median *float64 `json:"median"`
	Q75    *float64 `json:"q75"`
	Max    *float64 `json:"max"`
	Avg    *float64 `json:"avg"`
	SD     *float64 `json:"sd"`
}

// Coverage describes how complete the day's observations were.
type Coverage struct {
	ExpectedCount   *int32   `json:"expectedCount"`
	ObservedCount   *int32   `json:"observedCount"`
	PercentComplete *float64 `json:"percentComplete"`
}

// DailyMeasurement is one day's aggregate from
// /v3/sensors/{id}/measurements/daily. Value is the daily average; the
// summary, when present, carries min/max and a more precise average.
type DailyMeasurement struct {
	Value       *float64     `json:"value"`
	Parameter   Parameter    `json:"parameter"`
	Period      Period       `json:"period"`
	Coordinates *Coordinates `json:"coordinates"`
	Summary     *Summary     `json:"summary"`
	Coverage    *Coverage    `json:"coverage"`
}

type locationsResponse struct {
	Meta    Meta       `json:"meta"`
	Results []Location `json:"results"`
}

type sensorsResponse struct {
	Meta    Meta     `json:"meta"`
	Results []Sensor `json:"results"`
}

type measurementsResponse struct {
	Meta    Meta               `json:"meta"`
	Results []DailyMeasurement `json:"results"`
}
