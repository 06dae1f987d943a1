// Package metrics exposes Prometheus collectors for the harvest pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	harvestPartitionsTotal *prometheus.CounterVec
	harvestEntitiesTotal   *prometheus.CounterVec
	harvestProbesTotal     *prometheus.CounterVec
	enrichLookupsTotal     *prometheus.CounterVec
	enrichMatchesTotal     *prometheus.CounterVec
	enrichDurationSeconds  prometheus.Histogram
	enrichActiveWorkers    prometheus.Gauge
	indexUpsertsTotal      *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		harvestPartitionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvest_partitions_total",
				Help: "Partitions crawled, labeled by letter and outcome.",
			},
			[]string{"letter", "status"},
		)

		harvestEntitiesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvest_entities_total",
				Help: "Entities accepted per partition.",
			},
			[]string{"letter"},
		)

		harvestProbesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvest_website_probes_total",
				Help: "Website liveness probes, labeled by result.",
			},
			[]string{"result"},
		)

		enrichLookupsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "enrich_lookups_total",
				Help: "External source lookups, labeled by source and outcome.",
			},
			[]string{"source", "status"},
		)

		enrichMatchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "enrich_matches_total",
				Help: "Accepted candidate matches, labeled by source.",
			},
			[]string{"source"},
		)

		enrichDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "enrich_entity_duration_seconds",
				Help:    "Histogram of per-entity enrichment latencies.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
		)

		enrichActiveWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "enrich_active_workers",
				Help: "Workers currently enriching an entity.",
			},
		)

		indexUpsertsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_upserts_total",
				Help: "Semantic index upserts, labeled by outcome.",
			},
			[]string{"status"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordPartition counts one finished partition crawl.
func RecordPartition(letter, status string) {
	Init()
	harvestPartitionsTotal.WithLabelValues(letter, status).Inc()
}

// AddHarvested adds the count of entities a partition accepted.
func AddHarvested(letter string, n int) {
	Init()
	if n > 0 {
		harvestEntitiesTotal.WithLabelValues(letter).Add(float64(n))
	}
}

// RecordProbe counts one website liveness probe.
func RecordProbe(ok bool) {
	Init()
	harvestProbesTotal.WithLabelValues(strconv.FormatBool(ok)).Inc()
}

// RecordLookup counts one external source lookup.
func RecordLookup(source string, ok bool) {
	Init()
	status := "ok"
	if !ok {
		status = "error"
	}
	enrichLookupsTotal.WithLabelValues(source, status).Inc()
}

// RecordMatch counts one accepted candidate.
func RecordMatch(source string) {
	Init()
	enrichMatchesTotal.WithLabelValues(source).Inc()
}

// ObserveEnrich records the duration of one entity's enrichment.
func ObserveEnrich(d time.Duration) {
	Init()
	enrichDurationSeconds.Observe(d.Seconds())
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	Init()
	enrichActiveWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	Init()
	enrichActiveWorkers.Dec()
}

// RecordUpsert counts one semantic index upsert.
func RecordUpsert(ok bool) {
	Init()
	status := "ok"
	if !ok {
		status = "error"
	}
	indexUpsertsTotal.WithLabelValues(status).Inc()
}
