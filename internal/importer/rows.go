package importer

import (
	"fmt"
	"time"

	"github.com/yuzukaze/aeris/internal/models"
	"github.com/yuzukaze/aeris/internal/openaq"
)

// locationRows converts API locations into database-ready rows.
func locationRows(locations []openaq.Location) []models.Location {
	rows := make([]models.Location, 0, len(locations))
	for _, loc := range locations {
		rows = append(rows, models.Location{
			ID:            loc.ID,
			Name:          locationName(loc),
			Locality:      loc.Locality,
			CountryCode:   loc.Country.Code,
			CountryName:   loc.Country.Name,
			Timezone:      loc.Timezone,
			Latitude:      loc.Coordinates.Latitude,
			Longitude:     loc.Coordinates.Longitude,
			DatetimeFirst: datetimeUTC(loc.DatetimeFirst),
			DatetimeLast:  datetimeUTC(loc.DatetimeLast),
			IsMobile:      loc.IsMobile,
			IsMonitor:     loc.IsMonitor,
			OwnerName:     loc.Owner.Name,
			ProviderName:  loc.Provider.Name,
		})
	}
	return rows
}

// sensorRows converts a location's API sensors into database rows.
func sensorRows(locationID int64, sensors []openaq.Sensor) []models.Sensor {
	rows := make([]models.Sensor, 0, len(sensors))
	for _, s := range sensors {
		rows = append(rows, models.Sensor{
			ID:            s.ID,
			LocationID:    locationID,
			Name:          s.Name,
			ParameterID:   s.Parameter.ID,
			ParameterName: s.Parameter.Name,
			Units:         s.Parameter.Units,
			DisplayName:   s.Parameter.DisplayName,
		})
	}
	return rows
}

// measurementRows normalizes daily aggregates into measurement rows,
// snapshotting location and sensor attributes onto each row. Negative
// aggregate values are source sentinels and stored as NULL.
func measurementRows(daily []openaq.DailyMeasurement, loc openaq.Location, sensor openaq.Sensor) []models.Measurement {
	rows := make([]models.Measurement, 0, len(daily))
	for _, d := range daily {
		avg := d.Value
		var minV, maxV *float64
		if d.Summary != nil {
			if d.Summary.Avg != nil {
				avg = d.Summary.Avg
			}
			minV = d.Summary.Min
			maxV = d.Summary.Max
		}
		var count *int32
		if d.Coverage != nil {
			count = d.Coverage.ObservedCount
		}

		rows = append(rows, models.Measurement{
			LocationID:       loc.ID,
			SensorID:         sensor.ID,
			LocationName:     locationName(loc),
			SensorName:       sensor.Name,
			ParameterID:      d.Parameter.ID,
			ParameterName:    d.Parameter.Name,
			ValueAvg:         normalizeValue(avg),
			ValueMin:         normalizeValue(minV),
			ValueMax:         normalizeValue(maxV),
			MeasurementCount: count,
			Unit:             d.Parameter.Units,
			DateUTC:          d.Period.DatetimeFrom.UTC,
			DateLocal:        d.Period.DatetimeFrom.Local,
			Country:          loc.Country.Code,
			City:             loc.Locality,
			Latitude:         loc.Coordinates.Latitude,
			Longitude:        loc.Coordinates.Longitude,
			IsMobile:         loc.IsMobile,
			IsMonitor:        loc.IsMonitor,
			OwnerName:        loc.Owner.Name,
			ProviderName:     loc.Provider.Name,
		})
	}
	return rows
}

// normalizeValue drops negative aggregates; the source reports them for
// days without valid samples.
func normalizeValue(v *float64) *float64 {
	if v == nil || *v < 0 {
		return nil
	}
	val := *v
	return &val
}

func locationName(loc openaq.Location) string {
	if loc.Name != nil && *loc.Name != "" {
		return *loc.Name
	}
	return fmt.Sprintf("Location %d", loc.ID)
}

func datetimeUTC(dt *openaq.Datetime) *time.Time {
	if dt == nil {
		return nil
	}
	utc := dt.UTC
	return &utc
}
