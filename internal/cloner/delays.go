package cloner

import (
	"time"

	"github.com/sumire/guildcloner/internal/domain"
)

// Delays are the pauses awaited after each remote mutation.
type Delays struct {
	RoleDelete     time.Duration
	RoleCreate     time.Duration
	CategoryDelete time.Duration
	CategoryCreate time.Duration
	ChannelDelete  time.Duration
	ChannelCreate  time.Duration
	EmojiDelete    time.Duration
	EmojiCreate    time.Duration
	Webhook        time.Duration
	Message        time.Duration
}

// DelaysFromBase scales the default pacing, tuned for a 300ms base delay, to
// base. Roles are paced slower than channels and messages slowest of all.
// A zero base disables pacing.
func DelaysFromBase(base time.Duration) Delays {
	scale := func(d time.Duration) time.Duration {
		return time.Duration(d.Milliseconds() * int64(base) / domain.DefaultBaseDelay.Milliseconds())
	}
	return Delays{
		RoleDelete:     scale(800 * time.Millisecond),
		RoleCreate:     scale(600 * time.Millisecond),
		CategoryDelete: scale(600 * time.Millisecond),
		CategoryCreate: scale(360 * time.Millisecond),
		ChannelDelete:  scale(400 * time.Millisecond),
		ChannelCreate:  scale(360 * time.Millisecond),
		EmojiDelete:    scale(300 * time.Millisecond),
		EmojiCreate:    scale(1000 * time.Millisecond),
		Webhook:        scale(1000 * time.Millisecond),
		Message:        scale(1500 * time.Millisecond),
	}
}
