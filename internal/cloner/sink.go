package cloner

import (
	"time"

	"github.com/sumire/guildcloner/internal/domain"
)

// Sink receives the events of a clone job. Implementations must not block
// for long: they are called inline from the job's control flow.
type Sink interface {
	OnProgress(jobID, message string, percent float64)
	OnLog(jobID, message string, at time.Time)
	OnError(jobID, message string, at time.Time)
	OnComplete(jobID string, success bool, stats domain.Stats)
}

// MultiSink fans every event out to each sink in order.
type MultiSink []Sink

func (m MultiSink) OnProgress(jobID, message string, percent float64) {
	for _, s := range m {
		s.OnProgress(jobID, message, percent)
	}
}

func (m MultiSink) OnLog(jobID, message string, at time.Time) {
	for _, s := range m {
		s.OnLog(jobID, message, at)
	}
}

func (m MultiSink) OnError(jobID, message string, at time.Time) {
	for _, s := range m {
		s.OnError(jobID, message, at)
	}
}

func (m MultiSink) OnComplete(jobID string, success bool, stats domain.Stats) {
	for _, s := range m {
		s.OnComplete(jobID, success, stats)
	}
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) OnProgress(string, string, float64)    {}
func (NopSink) OnLog(string, string, time.Time)       {}
func (NopSink) OnError(string, string, time.Time)     {}
func (NopSink) OnComplete(string, bool, domain.Stats) {}
