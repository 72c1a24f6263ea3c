package cloner

import (
	"sync"

	"github.com/sumire/guildcloner/internal/domain"
)

// stats guards the job counters so status readers on other goroutines get a
// consistent snapshot.
type stats struct {
	mu sync.Mutex
	s  domain.Stats
}

func (c *stats) update(fn func(s *domain.Stats)) {
	c.mu.Lock()
	fn(&c.s)
	c.mu.Unlock()
}

func (c *stats) snapshot() domain.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s
}
