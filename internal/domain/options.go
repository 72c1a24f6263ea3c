package domain

import "time"

// RateLimitPolicy selects what category and channel creation does after
// waiting out a rate limit.
type RateLimitPolicy string

const (
	// RateLimitRetry retries the same item until the API accepts it.
	RateLimitRetry RateLimitPolicy = "retry"
	// RateLimitSkip counts the item as failed and moves on.
	RateLimitSkip RateLimitPolicy = "skip"
)

const (
	DefaultMessageLimit = 50
	MaxMessageLimit     = 100
	DefaultBaseDelay    = 300 * time.Millisecond
)

// CloneOptions selects the stages of a clone job and tunes its pacing.
type CloneOptions struct {
	ServerInfo bool `json:"serverInfo"`
	Roles      bool `json:"roles"`
	Categories bool `json:"categories"`
	Channels   bool `json:"channels"`
	Emojis     bool `json:"emojis"`
	Webhooks   bool `json:"webhooks"`
	Messages   bool `json:"messages"`

	MessageLimit    int             `json:"messageLimit,omitempty" validate:"omitempty,min=1,max=100"`
	DelayMs         int             `json:"delayMs,omitempty" validate:"omitempty,min=0,max=60000"`
	RateLimitPolicy RateLimitPolicy `json:"rateLimitPolicy,omitempty" validate:"omitempty,oneof=retry skip"`
	SkipAvatars     bool            `json:"skipAvatars,omitempty"`
}

// Enabled reports whether the given stage was selected.
func (o CloneOptions) Enabled(s Stage) bool {
	switch s {
	case StageServerInfo:
		return o.ServerInfo
	case StageRoles:
		return o.Roles
	case StageCategories:
		return o.Categories
	case StageChannels:
		return o.Channels
	case StageEmojis:
		return o.Emojis
	case StageWebhooks:
		return o.Webhooks
	case StageMessages:
		return o.Messages
	}
	return false
}

// EnabledStages returns the selected stages in StageOrder.
func (o CloneOptions) EnabledStages() []Stage {
	stages := make([]Stage, 0, len(StageOrder))
	for _, s := range StageOrder {
		if o.Enabled(s) {
			stages = append(stages, s)
		}
	}
	return stages
}

// BaseDelay returns the configured inter-operation delay, or fallback when unset.
func (o CloneOptions) BaseDelay(fallback time.Duration) time.Duration {
	if o.DelayMs > 0 {
		return time.Duration(o.DelayMs) * time.Millisecond
	}
	return fallback
}

// WithDefaults returns a copy with structure stages enabled when nothing was
// selected, and with the message limit and rate limit policy filled in.
func (o CloneOptions) WithDefaults(messageLimit int, policy RateLimitPolicy) CloneOptions {
	out := o
	if len(o.EnabledStages()) == 0 {
		out.ServerInfo = true
		out.Roles = true
		out.Categories = true
		out.Channels = true
	}
	if out.MessageLimit <= 0 {
		out.MessageLimit = messageLimit
	}
	if out.MessageLimit <= 0 {
		out.MessageLimit = DefaultMessageLimit
	}
	if out.MessageLimit > MaxMessageLimit {
		out.MessageLimit = MaxMessageLimit
	}
	if out.RateLimitPolicy == "" {
		out.RateLimitPolicy = policy
	}
	if out.RateLimitPolicy == "" {
		out.RateLimitPolicy = RateLimitRetry
	}
	return out
}
