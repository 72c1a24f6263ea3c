package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/sumire/guildcloner/internal/domain"
)

func TestSink_RecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewSink(reg)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return start.Add(30 * time.Second) }

	s.JobStarted()
	assert.Equal(t, float64(1), testutil.ToFloat64(s.active))

	s.OnError("job", "Failed to create role", time.Now())
	s.OnComplete("job", true, domain.Stats{RolesCloned: 3, TextChannelsCloned: 2, StartTime: start})
	s.JobFinished(domain.JobSummary{ID: "job", Status: domain.JobStatusCompleted})

	assert.Equal(t, float64(0), testutil.ToFloat64(s.active))
	assert.Equal(t, float64(1), testutil.ToFloat64(s.errors))
	assert.Equal(t, float64(1), testutil.ToFloat64(s.finished.WithLabelValues("completed")))
	assert.Equal(t, float64(3), testutil.ToFloat64(s.cloned.WithLabelValues("role")))
	assert.Equal(t, float64(2), testutil.ToFloat64(s.cloned.WithLabelValues("text_channel")))
	assert.Equal(t, 1, testutil.CollectAndCount(s.duration))
}

func TestSink_FailedJob(t *testing.T) {
	s := NewSink(prometheus.NewRegistry())
	s.JobStarted()
	s.OnComplete("job", false, domain.Stats{})
	s.JobFinished(domain.JobSummary{ID: "job", Status: domain.JobStatusFailed})

	assert.Equal(t, float64(1), testutil.ToFloat64(s.finished.WithLabelValues("failed")))
	assert.Equal(t, 0, testutil.CollectAndCount(s.cloned))
}

func TestSink_StoppedJobHasItsOwnStatus(t *testing.T) {
	s := NewSink(prometheus.NewRegistry())
	s.JobStarted()
	s.OnComplete("job", false, domain.Stats{RolesCloned: 1})
	s.JobFinished(domain.JobSummary{ID: "job", Status: domain.JobStatusStopped, Stopped: true})

	assert.Equal(t, float64(0), testutil.ToFloat64(s.active))
	assert.Equal(t, float64(1), testutil.ToFloat64(s.finished.WithLabelValues("stopped")))
	assert.Equal(t, float64(0), testutil.ToFloat64(s.finished.WithLabelValues("failed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(s.cloned.WithLabelValues("role")))
}
