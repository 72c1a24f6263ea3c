package events

import (
	"log/slog"
	"time"

	"github.com/sumire/guildcloner/internal/domain"
)

// LogSink writes job events to a structured logger.
type LogSink struct {
	Logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{Logger: logger}
}

func (s *LogSink) OnProgress(jobID, message string, percent float64) {
	s.Logger.Info(message, "job_id", jobID, "progress", percent)
}

func (s *LogSink) OnLog(jobID, message string, at time.Time) {
	s.Logger.Info(message, "job_id", jobID)
}

func (s *LogSink) OnError(jobID, message string, at time.Time) {
	s.Logger.Error(message, "job_id", jobID)
}

func (s *LogSink) OnComplete(jobID string, success bool, stats domain.Stats) {
	s.Logger.Info("clone job finished",
		"job_id", jobID,
		"success", success,
		"roles", stats.RolesCloned,
		"categories", stats.CategoriesCloned,
		"text_channels", stats.TextChannelsCloned,
		"voice_channels", stats.VoiceChannelsCloned,
		"emojis", stats.EmojisCloned,
		"webhooks", stats.WebhooksCloned,
		"messages", stats.MessagesCloned,
		"errors", stats.Errors,
		"elapsed", time.Since(stats.StartTime).Round(time.Second),
	)
}
