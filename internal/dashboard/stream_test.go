package dashboard

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groupleads/leadbot-admin/internal/models"
)

// streamServer serves count SSE snapshots per connection, then drops it.
func streamServer(t *testing.T, connections *int32, perConnection int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(connections, 1)
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, ok := w.(http.Flusher)
		require.True(t, ok)

		for i := 0; i < perConnection; i++ {
			fmt.Fprintf(w, "data: {\"jobs\":[{\"job_id\":\"j%d\",\"bot_id\":\"b1\",\"job_type\":\"scrape\",\"status\":\"running\",\"progress\":%d}]}\n\n", i, i*10)
			flusher.Flush()
		}
	}))
}

func collectSnapshots(buf chan models.JobsSnapshot) func(models.JobsSnapshot) {
	return func(s models.JobsSnapshot) {
		select {
		case buf <- s:
		default:
		}
	}
}

func TestStreamReader_DeliversSnapshots(t *testing.T) {
	var connections int32
	server := streamServer(t, &connections, 2)
	defer server.Close()

	snapshots := make(chan models.JobsSnapshot, 10)
	reader := NewStreamReader(server.URL, collectSnapshots(snapshots), func(bool) {})
	reader.InitialDelay = 10 * time.Millisecond
	reader.Start()
	defer reader.Close()

	first := <-snapshots
	require.Len(t, first.Jobs, 1)
	assert.Equal(t, "j0", first.Jobs[0].JobID)
	assert.Equal(t, "running", first.Jobs[0].Status)

	second := <-snapshots
	assert.Equal(t, "j1", second.Jobs[0].JobID)
}

func TestStreamReader_ReconnectsAfterDrop(t *testing.T) {
	var connections int32
	server := streamServer(t, &connections, 1)
	defer server.Close()

	snapshots := make(chan models.JobsSnapshot, 10)
	var opens, closes int32
	reader := NewStreamReader(server.URL, collectSnapshots(snapshots), func(connected bool) {
		if connected {
			atomic.AddInt32(&opens, 1)
		} else {
			atomic.AddInt32(&closes, 1)
		}
	})
	reader.InitialDelay = 10 * time.Millisecond
	reader.MaxDelay = 50 * time.Millisecond
	reader.Start()
	defer reader.Close()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&connections) >= 3
	}, 5*time.Second, 10*time.Millisecond, "each drop must trigger exactly one reconnect")

	// State transitions stay paired: a disconnect per completed connection.
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&closes) >= 2
	}, 5*time.Second, 10*time.Millisecond)
	assert.LessOrEqual(t, atomic.LoadInt32(&closes), atomic.LoadInt32(&opens))
}

func TestStreamReader_NonOKStatusRetries(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	var opened int32
	reader := NewStreamReader(server.URL, func(models.JobsSnapshot) {}, func(connected bool) {
		if connected {
			atomic.AddInt32(&opened, 1)
		}
	})
	reader.InitialDelay = 10 * time.Millisecond
	reader.MaxDelay = 50 * time.Millisecond
	reader.Start()
	defer reader.Close()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&hits) >= 2
	}, 5*time.Second, 10*time.Millisecond)
	assert.Zero(t, atomic.LoadInt32(&opened), "a failed open must not report the stream as connected")
}

func TestStreamReader_CloseStopsReconnecting(t *testing.T) {
	var connections int32
	server := streamServer(t, &connections, 1)
	defer server.Close()

	reader := NewStreamReader(server.URL, func(models.JobsSnapshot) {}, func(bool) {})
	reader.InitialDelay = 10 * time.Millisecond
	reader.Start()
	reader.Close()

	settled := atomic.LoadInt32(&connections)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, settled, atomic.LoadInt32(&connections), "no connections may be opened after Close")
}

func TestStreamReader_IgnoresEventsWithoutJobs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"heartbeat\":true}\n\n")
		fmt.Fprint(w, "data: not json\n\n")
		fmt.Fprint(w, "data: {\"jobs\":[]}\n\n")
		flusher.Flush()
	}))
	defer server.Close()

	snapshots := make(chan models.JobsSnapshot, 10)
	reader := NewStreamReader(server.URL, collectSnapshots(snapshots), func(bool) {})
	reader.InitialDelay = 10 * time.Millisecond
	reader.Start()
	defer reader.Close()

	select {
	case snapshot := <-snapshots:
		require.NotNil(t, snapshot.Jobs)
		assert.Empty(t, snapshot.Jobs, "only the event carrying a jobs array may dispatch")
	case <-time.After(2 * time.Second):
		t.Fatal("expected the empty jobs array to dispatch")
	}
}
