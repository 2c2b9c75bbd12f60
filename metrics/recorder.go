// Package metrics exposes shutdown activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gracefulexit/shutdown"
)

const namespace = "gracefulexit"

// durationBuckets cover callbacks from a few milliseconds up to the default
// 30 second deadline.
var durationBuckets = []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// Recorder collects callback and lifecycle metrics on its own registry.
// It implements shutdown.Instrumentation, and Observe is a shutdown.Listener.
//
// Example:
//
//	rec := metrics.NewRecorder()
//	o, _ := shutdown.New(logger, shutdown.WithInstrumentation(rec))
//	o.OnAny(rec.Observe)
//	http.Handle("/metrics", rec.Handler())
type Recorder struct {
	registry *prometheus.Registry

	callbacksStarted *prometheus.CounterVec
	callbacksFailed  *prometheus.CounterVec
	callbackDuration *prometheus.HistogramVec
	drainDuration    prometheus.Histogram
	events           *prometheus.CounterVec
	inProgress       prometheus.Gauge
}

// NewRecorder creates a Recorder with Go runtime and process collectors
// registered alongside the shutdown metrics.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		callbacksStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "callbacks_started_total",
			Help:      "Shutdown callbacks invoked.",
		}, []string{"blocking"}),
		callbacksFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "callbacks_failed_total",
			Help:      "Shutdown callbacks that failed or panicked.",
		}, []string{"callback"}),
		callbackDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "callback_duration_seconds",
			Help:      "Time from invoking a callback until its work settled.",
			Buckets:   durationBuckets,
		}, []string{"callback"}),
		drainDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "drain_duration_seconds",
			Help:      "Time from the start of shutdown until all callback work settled.",
			Buckets:   durationBuckets,
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Lifecycle notifications emitted, by kind.",
		}, []string{"kind"}),
		inProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "shutdown_in_progress",
			Help:      "1 while a shutdown is running.",
		}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.callbacksStarted,
		r.callbacksFailed,
		r.callbackDuration,
		r.drainDuration,
		r.events,
		r.inProgress,
	)
	return r
}

// CallbackStarted implements shutdown.Instrumentation.
func (r *Recorder) CallbackStarted(_ string, blocking bool) {
	r.inProgress.Set(1)
	r.callbacksStarted.WithLabelValues(strconv.FormatBool(blocking)).Inc()
}

// CallbackSettled implements shutdown.Instrumentation.
func (r *Recorder) CallbackSettled(name string, elapsed time.Duration, err error) {
	r.callbackDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	if err != nil {
		r.callbacksFailed.WithLabelValues(name).Inc()
	}
}

// DrainFinished implements shutdown.Instrumentation.
func (r *Recorder) DrainFinished(elapsed time.Duration) {
	r.drainDuration.Observe(elapsed.Seconds())
}

// Observe counts ev. It has the shutdown.Listener signature.
func (r *Recorder) Observe(ev shutdown.Event) {
	kind := ev.Kind()
	r.events.WithLabelValues(kind.String()).Inc()

	switch {
	case kind == shutdown.EventBeforeShutdown:
		r.inProgress.Set(1)
	case kind.Terminal():
		r.inProgress.Set(0)
	}
}

// Registry returns the registry holding the recorder's collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
