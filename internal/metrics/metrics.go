// Package metrics exposes Prometheus collectors for source requests, pipeline
// outcomes and tool calls.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "appcatalog"

var histogramBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}

// Outcome labels for pipeline units.
const (
	OutcomeInserted = "inserted"
	OutcomeUpdated  = "updated"
	OutcomeFailed   = "failed"
	OutcomeSkipped  = "skipped"
)

// Metrics holds the catalog's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	requestTotal    *prometheus.CounterVec
	requestLatency  *prometheus.HistogramVec
	pipelineUnits   *prometheus.CounterVec
	pipelineLatency *prometheus.HistogramVec
	toolCalls       *prometheus.CounterVec
	gatherer        prometheus.Gatherer
}

// New creates collectors and registers them with reg. A nil reg uses a fresh
// registry.
func New(reg *prometheus.Registry) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "requests_total",
			Help:      "Count of requests made to external sources",
		}, []string{"source", "code"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution of external source requests",
			Buckets:   histogramBuckets,
		}, []string{"source"}),
		pipelineUnits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "units_total",
			Help:      "Count of ingested units by pipeline and outcome",
		}, []string{"pipeline", "outcome"}),
		pipelineLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "run_duration_seconds",
			Help:      "Duration of pipeline runs",
			Buckets:   histogramBuckets,
		}, []string{"pipeline"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mcp",
			Name:      "tool_calls_total",
			Help:      "Count of MCP tool calls by tool and result",
		}, []string{"tool", "result"}),
		gatherer: reg,
	}

	var err error
	if m.requestTotal, err = register(reg, m.requestTotal); err != nil {
		return nil, err
	}
	if m.requestLatency, err = register(reg, m.requestLatency); err != nil {
		return nil, err
	}
	if m.pipelineUnits, err = register(reg, m.pipelineUnits); err != nil {
		return nil, err
	}
	if m.pipelineLatency, err = register(reg, m.pipelineLatency); err != nil {
		return nil, err
	}
	if m.toolCalls, err = register(reg, m.toolCalls); err != nil {
		return nil, err
	}
	return m, nil
}

// register adopts an already registered collector of the same shape.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// ObserveRequest records one source request. code is the HTTP status or
// "error" for transport failures.
func (m *Metrics) ObserveRequest(source, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestTotal.With(prometheus.Labels{"source": source, "code": code}).Inc()
	m.requestLatency.With(prometheus.Labels{"source": source}).Observe(elapsed.Seconds())
}

// ObserveOutcome adds n units with outcome to pipeline.
func (m *Metrics) ObserveOutcome(pipeline, outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.pipelineUnits.With(prometheus.Labels{"pipeline": pipeline, "outcome": outcome}).Add(float64(n))
}

// ObserveRun records the duration of one pipeline run.
func (m *Metrics) ObserveRun(pipeline string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.pipelineLatency.With(prometheus.Labels{"pipeline": pipeline}).Observe(elapsed.Seconds())
}

// ObserveTool records one tool call.
func (m *Metrics) ObserveTool(tool string, isError bool) {
	if m == nil {
		return
	}
	result := "ok"
	if isError {
		result = "error"
	}
	m.toolCalls.With(prometheus.Labels{"tool": tool, "result": result}).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
