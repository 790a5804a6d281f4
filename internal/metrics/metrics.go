package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "examprep"

// Metrics holds the Prometheus collectors of the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	Attempts        *prometheus.CounterVec
	LevelUps        prometheus.Counter
	QuestsCompleted *prometheus.CounterVec
	SideEffectFails *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		Attempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "attempts_total",
				Help:      "Graded quiz attempts",
			},
			[]string{"correct"},
		),
		LevelUps: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "level_ups_total",
				Help:      "Attempts that moved a student to a new level",
			},
		),
		QuestsCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quests_completed_total",
				Help:      "Daily quests that flipped to completed",
			},
			[]string{"quest_type"},
		),
		SideEffectFails: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "side_effect_failures_total",
				Help:      "Post-commit side effects that failed",
			},
			[]string{"effect"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
	}
}

func (m *Metrics) ObserveAttempt(correct, leveledUp bool) {
	if m == nil {
		return
	}
	m.Attempts.WithLabelValues(strconv.FormatBool(correct)).Inc()
	if leveledUp {
		m.LevelUps.Inc()
	}
}

func (m *Metrics) ObserveQuestCompleted(questType string) {
	if m == nil {
		return
	}
	m.QuestsCompleted.WithLabelValues(questType).Inc()
}

func (m *Metrics) ObserveSideEffectFailure(effect string) {
	if m == nil {
		return
	}
	m.SideEffectFails.WithLabelValues(effect).Inc()
}

func (m *Metrics) ObserveRequest(route, method string, started time.Time) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(route, method).Observe(time.Since(started).Seconds())
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
