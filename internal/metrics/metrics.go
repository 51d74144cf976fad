package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "filesentry"

// Registry holds the pipeline's Prometheus collectors. All methods are safe on
// a nil receiver so components can run without metrics.
type Registry struct {
	registry *prometheus.Registry

	EventsAccepted   *prometheus.CounterVec
	EventsSuppressed *prometheus.CounterVec
	EventsIgnored    prometheus.Counter
	CallbackFailures prometheus.Counter
	BackendErrors    prometheus.Counter
	QueueDropped     prometheus.Counter
	QueueDepth       prometheus.Gauge
	DebounceKeys     prometheus.Gauge
	EventsScored     *prometheus.CounterVec
	Deliveries       *prometheus.CounterVec
	DeliveryDuration *prometheus.HistogramVec
	BusPublished     *prometheus.CounterVec
	BusDropped       *prometheus.CounterVec
	BusSubscribers   *prometheus.GaugeVec
}

var Default = New()

// New creates a Registry backed by its own prometheus.Registry so tests and
// multiple pipelines never collide on registration.
func New() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		EventsAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_accepted_total",
			Help:      "Normalized filesystem events emitted by the watcher",
		}, []string{"action"}),
		EventsSuppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_suppressed_total",
			Help:      "Raw events suppressed by the debouncer",
		}, []string{"action"}),
		EventsIgnored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_ignored_total",
			Help:      "Raw directory events discarded by the watcher",
		}),
		CallbackFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "callback_failures_total",
			Help:      "Watcher callbacks that returned an error or panicked",
		}),
		BackendErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_errors_total",
			Help:      "Errors reported by the filesystem notification backend",
		}),
		QueueDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_dropped_total",
			Help:      "Events dropped because the bounded queue was full",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Events waiting in the queue",
		}),
		DebounceKeys: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "debounce_keys",
			Help:      "Tracked (action, path) debounce keys",
		}),
		EventsScored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_scored_total",
			Help:      "Scored events by severity level",
		}, []string{"level"}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_deliveries_total",
			Help:      "Sink delivery outcomes",
		}, []string{"sink", "result"}),
		DeliveryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sink_delivery_duration_seconds",
			Help:      "Time spent in a sink delivery",
			Buckets:   prometheus.DefBuckets,
		}, []string{"sink"}),
		BusPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_events_published_total",
			Help:      "Events published on an in-process bus",
		}, []string{"bus", "type"}),
		BusDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_events_dropped_total",
			Help:      "Events dropped for slow bus subscribers",
		}, []string{"bus", "type"}),
		BusSubscribers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bus_subscribers",
			Help:      "Active bus subscribers",
		}, []string{"bus"}),
	}
	r.registry.MustRegister(
		r.EventsAccepted,
		r.EventsSuppressed,
		r.EventsIgnored,
		r.CallbackFailures,
		r.BackendErrors,
		r.QueueDropped,
		r.QueueDepth,
		r.DebounceKeys,
		r.EventsScored,
		r.Deliveries,
		r.DeliveryDuration,
		r.BusPublished,
		r.BusDropped,
		r.BusSubscribers,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Gatherer exposes the underlying registry for tests and custom exporters.
func (r *Registry) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.registry
}

// Handler serves the Prometheus text exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Gatherer(), promhttp.HandlerOpts{})
}

func (r *Registry) IncAccepted(action string) {
	if r == nil {
		return
	}
	r.EventsAccepted.WithLabelValues(label(action)).Inc()
}

func (r *Registry) IncSuppressed(action string) {
	if r == nil {
		return
	}
	r.EventsSuppressed.WithLabelValues(label(action)).Inc()
}

func (r *Registry) IncIgnored() {
	if r == nil {
		return
	}
	r.EventsIgnored.Inc()
}

func (r *Registry) IncCallbackFailure() {
	if r == nil {
		return
	}
	r.CallbackFailures.Inc()
}

func (r *Registry) IncBackendError() {
	if r == nil {
		return
	}
	r.BackendErrors.Inc()
}

func (r *Registry) IncQueueDropped() {
	if r == nil {
		return
	}
	r.QueueDropped.Inc()
}

func (r *Registry) SetQueueDepth(depth int) {
	if r == nil {
		return
	}
	r.QueueDepth.Set(float64(depth))
}

func (r *Registry) SetDebounceKeys(count int) {
	if r == nil {
		return
	}
	r.DebounceKeys.Set(float64(count))
}

func (r *Registry) IncScored(level string) {
	if r == nil {
		return
	}
	r.EventsScored.WithLabelValues(label(level)).Inc()
}

// RecordDelivery counts one sink outcome: delivered, skipped or failed.
func (r *Registry) RecordDelivery(sink, result string, duration time.Duration) {
	if r == nil {
		return
	}
	sink = label(sink)
	r.Deliveries.WithLabelValues(sink, label(result)).Inc()
	if duration > 0 {
		r.DeliveryDuration.WithLabelValues(sink).Observe(duration.Seconds())
	}
}

func (r *Registry) IncBusPublished(bus, eventType string) {
	if r == nil {
		return
	}
	r.BusPublished.WithLabelValues(label(bus), label(eventType)).Inc()
}

func (r *Registry) IncBusDropped(bus, eventType string) {
	if r == nil {
		return
	}
	r.BusDropped.WithLabelValues(label(bus), label(eventType)).Inc()
}

func (r *Registry) SetBusSubscribers(bus string, count int) {
	if r == nil {
		return
	}
	r.BusSubscribers.WithLabelValues(label(bus)).Set(float64(count))
}

func label(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}
