package domain

import "time"

// JobStatus represents the state of a clone job.
type JobStatus string

const (
	JobStatusIdle       JobStatus = "idle"
	JobStatusValidating JobStatus = "validating"
	JobStatusRunning    JobStatus = "running"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusStopped    JobStatus = "stopped"
)

// Terminal reports whether no further transitions are possible.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusStopped
}

// Stage names one ordered phase of a clone job.
type Stage string

const (
	StageServerInfo Stage = "server_info"
	StageRoles      Stage = "roles"
	StageCategories Stage = "categories"
	StageChannels   Stage = "channels"
	StageEmojis     Stage = "emojis"
	StageWebhooks   Stage = "webhooks"
	StageMessages   Stage = "messages"
)

// StageOrder is the order stages run in. Channels reads the role and
// category maps, so roles and categories must come first.
var StageOrder = []Stage{
	StageServerInfo,
	StageRoles,
	StageCategories,
	StageChannels,
	StageEmojis,
	StageWebhooks,
	StageMessages,
}

// Title returns a human readable stage name for logs.
func (s Stage) Title() string {
	switch s {
	case StageServerInfo:
		return "Server Info"
	case StageRoles:
		return "Roles"
	case StageCategories:
		return "Categories"
	case StageChannels:
		return "Channels"
	case StageEmojis:
		return "Emojis"
	case StageWebhooks:
		return "Webhooks"
	case StageMessages:
		return "Messages"
	default:
		return string(s)
	}
}

// Stats is a point-in-time snapshot of a clone job's counters.
type Stats struct {
	RolesCloned         int       `json:"rolesCloned" db:"roles_cloned"`
	CategoriesCloned    int       `json:"categoriesCloned" db:"categories_cloned"`
	TextChannelsCloned  int       `json:"textChannelsCloned" db:"text_channels_cloned"`
	VoiceChannelsCloned int       `json:"voiceChannelsCloned" db:"voice_channels_cloned"`
	MessagesCloned      int       `json:"messagesCloned" db:"messages_cloned"`
	EmojisCloned        int       `json:"emojisCloned" db:"emojis_cloned"`
	WebhooksCloned      int       `json:"webhooksCloned" db:"webhooks_cloned"`
	Errors              int       `json:"errors" db:"errors"`
	StartTime           time.Time `json:"startTime" db:"started_at"`
	Progress            float64   `json:"progress" db:"progress"`
	LastMessage         string    `json:"lastMessage" db:"last_message"`
}

// JobSummary describes a clone job for status listings.
type JobSummary struct {
	ID            string    `json:"id"`
	SourceGuildID string    `json:"source_guild_id"`
	TargetGuildID string    `json:"target_guild_id"`
	Status        JobStatus `json:"status"`
	Stage         Stage     `json:"stage,omitempty"`
	Stopped       bool      `json:"stopped"`
	Stats         Stats     `json:"stats"`
}
