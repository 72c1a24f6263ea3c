// Package events delivers clone job events to live subscribers and logs.
package events

import (
	"sync"
	"time"

	"github.com/sumire/guildcloner/internal/domain"
)

const (
	historySize = 200
	sendBuffer  = 256

	// DefaultLinger is how long a finished job's backlog stays available
	// to late subscribers.
	DefaultLinger = time.Minute
)

// Subscription receives the events of one job. C is closed when the job
// completes, when the subscriber falls too far behind, or on Unsubscribe.
type Subscription struct {
	C     <-chan domain.Event
	jobID string
	send  chan domain.Event
}

// Hub fans job events out to subscribers and keeps a short backlog per job so
// late subscribers see what already happened.
type Hub struct {
	mu      sync.Mutex
	subs    map[string]map[*Subscription]struct{}
	history map[string][]domain.Event
	done    map[string]bool
	now     func() time.Time
	linger  time.Duration
}

// HubOption customizes a Hub.
type HubOption func(*Hub)

// WithLinger sets how long a finished job is kept after JobFinished. Zero
// drops it immediately.
func WithLinger(d time.Duration) HubOption {
	return func(h *Hub) { h.linger = d }
}

// NewHub creates an empty Hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		subs:    make(map[string]map[*Subscription]struct{}),
		history: make(map[string][]domain.Event),
		done:    make(map[string]bool),
		now:     time.Now,
		linger:  DefaultLinger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe registers for jobID's events. The backlog is delivered first.
// Subscribing to a finished job yields its backlog and a closed channel.
func (h *Hub) Subscribe(jobID string) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	backlog := h.history[jobID]
	send := make(chan domain.Event, sendBuffer+len(backlog))
	for _, e := range backlog {
		send <- e
	}
	sub := &Subscription{C: send, jobID: jobID, send: send}

	if h.done[jobID] {
		close(send)
		return sub
	}
	if h.subs[jobID] == nil {
		h.subs[jobID] = make(map[*Subscription]struct{})
	}
	h.subs[jobID][sub] = struct{}{}
	return sub
}

// Unsubscribe detaches sub. It is safe to call more than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detach(sub)
}

func (h *Hub) detach(sub *Subscription) {
	set := h.subs[sub.jobID]
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	close(sub.send)
	if len(set) == 0 {
		delete(h.subs, sub.jobID)
	}
}

// Publish delivers e to every subscriber of e.JobID. Subscribers whose
// buffer is full are dropped.
func (h *Hub) Publish(e domain.Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = h.now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	hist := append(h.history[e.JobID], e)
	if len(hist) > historySize {
		hist = hist[len(hist)-historySize:]
	}
	h.history[e.JobID] = hist

	for sub := range h.subs[e.JobID] {
		select {
		case sub.send <- e:
		default:
			h.detach(sub)
		}
	}

	if e.Type == domain.EventComplete {
		h.done[e.JobID] = true
		for sub := range h.subs[e.JobID] {
			h.detach(sub)
		}
	}
}

// Forget drops the backlog of a job.
func (h *Hub) Forget(jobID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.history, jobID)
	delete(h.done, jobID)
}

// JobFinished is called once a job's outcome is in history. The backlog is
// forgotten after the linger period.
func (h *Hub) JobFinished(summary domain.JobSummary) {
	id := summary.ID
	if h.linger <= 0 {
		h.Forget(id)
		return
	}
	time.AfterFunc(h.linger, func() { h.Forget(id) })
}

// Retained reports whether the hub still holds events for jobID.
func (h *Hub) Retained(jobID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.history[jobID]
	return ok || h.done[jobID]
}

// Jobs returns the number of jobs with a retained backlog.
func (h *Hub) Jobs() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.history)
}

// Subscribers returns the number of live subscribers of jobID.
func (h *Hub) Subscribers(jobID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[jobID])
}

func (h *Hub) OnProgress(jobID, message string, percent float64) {
	h.Publish(domain.Event{JobID: jobID, Type: domain.EventProgress, Message: message, Percent: percent})
}

func (h *Hub) OnLog(jobID, message string, at time.Time) {
	h.Publish(domain.Event{JobID: jobID, Type: domain.EventLog, Message: message, Timestamp: at})
}

func (h *Hub) OnError(jobID, message string, at time.Time) {
	h.Publish(domain.Event{JobID: jobID, Type: domain.EventError, Message: message, Timestamp: at})
}

func (h *Hub) OnComplete(jobID string, success bool, stats domain.Stats) {
	h.Publish(domain.Event{JobID: jobID, Type: domain.EventComplete, Success: &success, Stats: &stats, Percent: stats.Progress})
}
