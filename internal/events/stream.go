package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sumire/guildcloner/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Stream writes jobID's events to conn as JSON until the job completes, the
// client goes away or ctx ends. It closes conn before returning.
func (h *Hub) Stream(ctx context.Context, conn *websocket.Conn, jobID string) {
	sub := h.Subscribe(jobID)
	defer h.Unsubscribe(sub)
	defer conn.Close()

	gone := make(chan struct{})
	go readPump(conn, gone)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-sub.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "job finished"))
				return
			}
			if err := conn.WriteJSON(e); err != nil {
				slog.Debug("event stream write failed", "job_id", jobID, "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-gone:
			return
		case <-ctx.Done():
			return
		}
	}
}

// WriteSummary sends the final state of a job whose events are no longer
// retained as a single complete event, then closes conn.
func WriteSummary(conn *websocket.Conn, summary domain.JobSummary) {
	defer conn.Close()

	success := summary.Status == domain.JobStatusCompleted
	stats := summary.Stats
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := conn.WriteJSON(domain.Event{
		JobID:     summary.ID,
		Type:      domain.EventComplete,
		Percent:   stats.Progress,
		Success:   &success,
		Stats:     &stats,
		Timestamp: time.Now(),
	})
	if err != nil {
		slog.Debug("event stream write failed", "job_id", summary.ID, "error", err)
		return
	}
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "job finished"))
}

// readPump discards client frames so control messages are processed, and
// signals gone when the connection fails.
func readPump(conn *websocket.Conn, gone chan<- struct{}) {
	defer close(gone)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("event stream closed", "error", err)
			}
			return
		}
	}
}
