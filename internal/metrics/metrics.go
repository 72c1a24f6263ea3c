// Package metrics exports clone job counters to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sumire/guildcloner/internal/domain"
)

// Sink records job outcomes. It implements cloner.Sink.
type Sink struct {
	active   prometheus.Gauge
	finished *prometheus.CounterVec
	cloned   *prometheus.CounterVec
	errors   prometheus.Counter
	duration prometheus.Histogram
	now      func() time.Time
}

// NewSink registers the clone metrics on reg.
func NewSink(reg prometheus.Registerer) *Sink {
	f := promauto.With(reg)
	return &Sink{
		active: f.NewGauge(prometheus.GaugeOpts{
			Name: "guildcloner_jobs_active",
			Help: "Clone jobs currently running",
		}),
		finished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "guildcloner_jobs_finished_total",
			Help: "Clone jobs finished, by final status",
		}, []string{"status"}),
		cloned: f.NewCounterVec(prometheus.CounterOpts{
			Name: "guildcloner_entities_cloned_total",
			Help: "Entities created in target guilds, by kind",
		}, []string{"kind"}),
		errors: f.NewCounter(prometheus.CounterOpts{
			Name: "guildcloner_errors_total",
			Help: "Errors reported by clone jobs",
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "guildcloner_job_duration_seconds",
			Help:    "Wall time of finished clone jobs",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		}),
		now: time.Now,
	}
}

// JobStarted marks a job as running.
func (s *Sink) JobStarted() { s.active.Inc() }

func (s *Sink) OnProgress(string, string, float64) {}
func (s *Sink) OnLog(string, string, time.Time)    {}

func (s *Sink) OnError(string, string, time.Time) {
	s.errors.Inc()
}

// JobFinished counts a job by its final status (completed, failed or stopped).
func (s *Sink) JobFinished(summary domain.JobSummary) {
	s.active.Dec()
	s.finished.WithLabelValues(string(summary.Status)).Inc()
}

func (s *Sink) OnComplete(_ string, _ bool, stats domain.Stats) {
	for kind, n := range map[string]int{
		"role":          stats.RolesCloned,
		"category":      stats.CategoriesCloned,
		"text_channel":  stats.TextChannelsCloned,
		"voice_channel": stats.VoiceChannelsCloned,
		"emoji":         stats.EmojisCloned,
		"webhook":       stats.WebhooksCloned,
		"message":       stats.MessagesCloned,
	} {
		if n > 0 {
			s.cloned.WithLabelValues(kind).Add(float64(n))
		}
	}
	if !stats.StartTime.IsZero() {
		s.duration.Observe(s.now().Sub(stats.StartTime).Seconds())
	}
}
