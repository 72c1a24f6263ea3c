package events

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sumire/guildcloner/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func drain(sub *Subscription) []domain.Event {
	var out []domain.Event
	for e := range sub.C {
		out = append(out, e)
	}
	return out
}

func TestHub_DeliversBacklogThenLiveEvents(t *testing.T) {
	h := NewHub()
	h.OnProgress("job", "validating", 0)

	sub := h.Subscribe("job")
	assert.Equal(t, 1, h.Subscribers("job"))

	h.OnLog("job", "hello", time.Now())
	h.OnLog("other", "ignored", time.Now())
	h.OnComplete("job", true, domain.Stats{RolesCloned: 2, Progress: 100})

	events := drain(sub)
	require.Len(t, events, 3)
	assert.Equal(t, domain.EventProgress, events[0].Type)
	assert.Equal(t, "hello", events[1].Message)
	assert.Equal(t, domain.EventComplete, events[2].Type)
	require.NotNil(t, events[2].Success)
	assert.True(t, *events[2].Success)
	assert.Equal(t, 2, events[2].Stats.RolesCloned)
	assert.Zero(t, h.Subscribers("job"))
}

func TestHub_SubscribeToFinishedJob(t *testing.T) {
	h := NewHub()
	h.OnError("job", "boom", time.Now())
	h.OnComplete("job", false, domain.Stats{})

	events := drain(h.Subscribe("job"))
	require.Len(t, events, 2)
	assert.Equal(t, "boom", events[0].Message)

	h.Forget("job")
	assert.Empty(t, drain(subscribeAndStop(h, "job")))
}

func subscribeAndStop(h *Hub, jobID string) *Subscription {
	sub := h.Subscribe(jobID)
	h.Unsubscribe(sub)
	h.Unsubscribe(sub)
	return sub
}

func TestHub_DropsSlowSubscriber(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe("job")

	for i := 0; i < sendBuffer+1; i++ {
		h.OnLog("job", "line", time.Now())
	}

	assert.Zero(t, h.Subscribers("job"))
	assert.Len(t, drain(sub), sendBuffer)
}

func TestHub_HistoryIsBounded(t *testing.T) {
	h := NewHub()
	for i := 0; i < historySize+50; i++ {
		h.OnLog("job", "line", time.Now())
	}
	sub := h.Subscribe("job")
	defer h.Unsubscribe(sub)
	assert.Len(t, sub.C, historySize)
}

func TestHub_StreamWritesEvents(t *testing.T) {
	h := NewHub()
	h.OnProgress("job", "Accessing servers...", 10)
	h.OnComplete("job", true, domain.Stats{Progress: 100})

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.Stream(context.Background(), conn, "job")
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	var first, second domain.Event
	require.NoError(t, conn.ReadJSON(&first))
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, "Accessing servers...", first.Message)
	assert.Equal(t, float64(10), first.Percent)
	assert.Equal(t, domain.EventComplete, second.Type)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}

func TestHub_FinishedJobsAreForgotten(t *testing.T) {
	h := NewHub(WithLinger(0))
	for i := 0; i < 1000; i++ {
		id := fmt.Sprintf("job-%d", i)
		for n := 0; n < historySize+50; n++ {
			h.OnLog(id, "line", time.Now())
		}
		h.OnComplete(id, true, domain.Stats{Progress: 100})
		h.JobFinished(domain.JobSummary{ID: id, Status: domain.JobStatusCompleted})
	}

	assert.Zero(t, h.Jobs())
	assert.False(t, h.Retained("job-0"))
}

func TestHub_LingerKeepsBacklogForLateSubscribers(t *testing.T) {
	h := NewHub(WithLinger(50 * time.Millisecond))
	h.OnLog("job", "hello", time.Now())
	h.OnComplete("job", true, domain.Stats{})
	h.JobFinished(domain.JobSummary{ID: "job", Status: domain.JobStatusCompleted})

	require.True(t, h.Retained("job"))
	assert.Len(t, drain(h.Subscribe("job")), 2)

	assert.Eventually(t, func() bool { return !h.Retained("job") }, time.Second, 10*time.Millisecond)
	assert.Zero(t, h.Jobs())
}

func TestWriteSummary(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		WriteSummary(conn, domain.JobSummary{
			ID:     "job",
			Status: domain.JobStatusStopped,
			Stats:  domain.Stats{RolesCloned: 4, Progress: 40},
		})
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	var e domain.Event
	require.NoError(t, conn.ReadJSON(&e))
	assert.Equal(t, domain.EventComplete, e.Type)
	assert.Equal(t, "job", e.JobID)
	require.NotNil(t, e.Success)
	assert.False(t, *e.Success)
	assert.Equal(t, 4, e.Stats.RolesCloned)
	assert.Equal(t, float64(40), e.Percent)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(slog.New(slog.NewJSONHandler(&buf, nil)))

	sink.OnError("job", "Failed to create role", time.Now())
	sink.OnComplete("job", false, domain.Stats{Errors: 1, StartTime: time.Now()})

	out := buf.String()
	assert.Contains(t, out, `"level":"ERROR"`)
	assert.Contains(t, out, `"job_id":"job"`)
	assert.Contains(t, out, `"success":false`)
	assert.Contains(t, out, `"errors":1`)
}
