// Package metrics exposes Prometheus collectors for publish workflows, logins
// and platform API calls.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/entrhq/headline/pkg/publish"
)

const namespace = "headline"

// Metrics implements publish.Observer.
type Metrics struct {
	gatherer prometheus.Gatherer

	runs         *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	steps        *prometheus.CounterVec
	inflight     prometheus.Gauge
	logins       *prometheus.CounterVec
	rpcCalls     *prometheus.CounterVec
	batchRecords *prometheus.CounterVec
}

var _ publish.Observer = (*Metrics)(nil)

// New registers the collectors with a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return MustNew(reg, reg)
}

// MustNew registers the collectors with reg. Collectors already present in
// reg are reused, so constructing twice against the same registry is safe.
func MustNew(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	m := &Metrics{
		gatherer: gatherer,
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "runs_total",
			Help:      "Publish workflow runs by kind and result.",
		}, []string{"kind", "result"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "run_duration_seconds",
			Help:      "Wall time of publish workflow runs.",
			Buckets:   []float64{5, 15, 30, 60, 90, 120, 180, 300},
		}, []string{"kind"}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "steps_total",
			Help:      "Workflow steps by kind, step and status.",
		}, []string{"kind", "step", "status"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "inflight",
			Help:      "Workflow runs currently holding a browser.",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "login",
			Name:      "attempts_total",
			Help:      "Interactive login attempts by final state.",
		}, []string{"state"}),
		rpcCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "calls_total",
			Help:      "Procedure calls by name and result.",
		}, []string{"procedure", "result"}),
		batchRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "records_total",
			Help:      "Adapted records processed by route and result.",
		}, []string{"route", "result"}),
	}

	m.runs = register(reg, m.runs)
	m.runDuration = register(reg, m.runDuration)
	m.steps = register(reg, m.steps)
	m.inflight = register(reg, m.inflight)
	m.logins = register(reg, m.logins)
	m.rpcCalls = register(reg, m.rpcCalls)
	m.batchRecords = register(reg, m.batchRecords)
	return m
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// StepFinished counts a finished workflow step.
func (m *Metrics) StepFinished(kind publish.Kind, step string, status publish.StepStatus) {
	if m == nil {
		return
	}
	m.steps.WithLabelValues(string(kind), step, string(status)).Inc()
}

// RunFinished counts a finished workflow run and observes its duration.
func (m *Metrics) RunFinished(kind publish.Kind, succeeded bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(string(kind), result(succeeded)).Inc()
	m.runDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}

// Acquired and Released track runs holding a browser.
func (m *Metrics) Acquired() {
	if m != nil {
		m.inflight.Inc()
	}
}

func (m *Metrics) Released() {
	if m != nil {
		m.inflight.Dec()
	}
}

// LoginFinished counts an interactive login by its final state.
func (m *Metrics) LoginFinished(state string) {
	if m != nil {
		m.logins.WithLabelValues(state).Inc()
	}
}

// ProcedureCalled counts an RPC invocation.
func (m *Metrics) ProcedureCalled(name string, ok bool) {
	if m != nil {
		m.rpcCalls.WithLabelValues(name, result(ok)).Inc()
	}
}

// BatchRecord counts one adapted record processed by a batch.
func (m *Metrics) BatchRecord(route string, ok bool) {
	if m != nil {
		m.batchRecords.WithLabelValues(route, result(ok)).Inc()
	}
}

// Handler serves the exposition format for the gathered collectors.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
