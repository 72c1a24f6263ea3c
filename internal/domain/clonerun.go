package domain

import "time"

// CloneRun is the history record written when a clone job reaches a
// terminal state.
type CloneRun struct {
	ID            string    `json:"id" db:"id"`
	SourceGuildID string    `json:"source_guild_id" db:"source_guild_id"`
	TargetGuildID string    `json:"target_guild_id" db:"target_guild_id"`
	Status        JobStatus `json:"status" db:"status"`
	Stats
	ErrorMsg   *string    `json:"error_msg,omitempty" db:"error_msg"`
	CreatedBy  *int64     `json:"created_by,omitempty" db:"created_by"`
	FinishedAt *time.Time `json:"finished_at,omitempty" db:"finished_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// WithStatus returns a new CloneRun with the given terminal status.
func (r CloneRun) WithStatus(status JobStatus, errMsg string) CloneRun {
	out := r
	out.Status = status
	out.ErrorMsg = nil
	if errMsg != "" {
		out.ErrorMsg = &errMsg
	}
	now := time.Now()
	out.FinishedAt = &now
	return out
}

// Summary converts the history record into the listing shape used for live jobs.
func (r CloneRun) Summary() JobSummary {
	return JobSummary{
		ID:            r.ID,
		SourceGuildID: r.SourceGuildID,
		TargetGuildID: r.TargetGuildID,
		Status:        r.Status,
		Stopped:       r.Status == JobStatusStopped,
		Stats:         r.Stats,
	}
}
