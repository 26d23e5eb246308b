package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// New rows persisted per entity kind. Duplicates from re-imports do
	// not count here, so rate() reflects genuinely new data.
	LocationsPersisted    prometheus.Counter
	SensorsPersisted      prometheus.Counter
	MeasurementsPersisted prometheus.Counter

	// Entities skipped during an import, labeled by stage.
	EntitiesSkipped *prometheus.CounterVec

	// Import runs by outcome (completed/failed).
	ImportRuns *prometheus.CounterVec

	// Per-sensor fetch retries. High values point at an unstable upstream.
	FetchRetries prometheus.Counter
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	LocationsPersisted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aeris_locations_persisted_total",
		Help: "New location rows written to the store.",
	})
	SensorsPersisted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aeris_sensors_persisted_total",
		Help: "New sensor rows written to the store.",
	})
	MeasurementsPersisted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aeris_measurements_persisted_total",
		Help: "New daily measurement rows written to the store.",
	})
	EntitiesSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aeris_import_skips_total",
		Help: "Entities skipped during import, by pipeline stage.",
	}, []string{"stage"})
	ImportRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aeris_import_runs_total",
		Help: "Import runs by outcome.",
	}, []string{"outcome"})
	FetchRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aeris_fetch_retries_total",
		Help: "Retries of per-sensor measurement fetches.",
	})

	registry.MustRegister(
		LocationsPersisted,
		SensorsPersisted,
		MeasurementsPersisted,
		EntitiesSkipped,
		ImportRuns,
		FetchRetries,
	)
}

// Handler exposes the registry for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
