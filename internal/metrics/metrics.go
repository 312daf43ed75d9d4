// Package metrics records operational counters for the catalogue.
//
// Components depend on the Collector interface; Noop is the default and
// Prometheus exports to a registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector receives catalogue events.
type Collector interface {
	// CacheLookup is called once per identity-cache probe.
	CacheLookup(hit bool)

	// WriteThrough is called after each single-field update.
	// err is nil on success.
	WriteThrough(column string, err error)

	// IngestChunk is called after each batch chunk commits or rolls back.
	IngestChunk(rows int, err error)

	// Query is called after each read. kind names the operation ("page", "count", ...).
	Query(kind string, duration time.Duration, err error)
}

// Noop discards every event.
type Noop struct{}

func (Noop) CacheLookup(bool)                   {}
func (Noop) WriteThrough(string, error)         {}
func (Noop) IngestChunk(int, error)             {}
func (Noop) Query(string, time.Duration, error) {}

const namespace = "cellar"

// Prometheus implements Collector on client_golang metrics.
type Prometheus struct {
	cacheLookups  *prometheus.CounterVec
	writeThroughs *prometheus.CounterVec
	ingestChunks  *prometheus.CounterVec
	ingestRows    prometheus.Counter
	queryDuration *prometheus.HistogramVec
}

// NewPrometheus registers the catalogue metrics with reg.
// Registering twice on the same registry panics, as with promauto.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	f := promauto.With(reg)
	return &Prometheus{
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "lookups_total",
				Help:      "Identity cache probes by outcome",
			},
			[]string{"result"},
		),
		writeThroughs: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sync",
				Name:      "write_through_total",
				Help:      "Single-field updates written to storage",
			},
			[]string{"column", "result"},
		),
		ingestChunks: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ingest",
				Name:      "chunks_total",
				Help:      "Batch ingestion chunks by outcome",
			},
			[]string{"result"},
		),
		ingestRows: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ingest",
				Name:      "rows_total",
				Help:      "Rows committed by batch ingestion",
			},
		),
		queryDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "query",
				Name:      "duration_seconds",
				Help:      "Catalogue read duration in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"kind", "result"},
		),
	}
}

func (p *Prometheus) CacheLookup(hit bool) {
	if hit {
		p.cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	p.cacheLookups.WithLabelValues("miss").Inc()
}

func (p *Prometheus) WriteThrough(column string, err error) {
	p.writeThroughs.WithLabelValues(column, result(err)).Inc()
}

func (p *Prometheus) IngestChunk(rows int, err error) {
	p.ingestChunks.WithLabelValues(result(err)).Inc()
	if err == nil {
		p.ingestRows.Add(float64(rows))
	}
}

func (p *Prometheus) Query(kind string, duration time.Duration, err error) {
	p.queryDuration.WithLabelValues(kind, result(err)).Observe(duration.Seconds())
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
