package dashboard

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/groupleads/leadbot-admin/internal/models"
)

// Stream reconnect tuning. The first retry after a drop fires after
// InitialDelay; consecutive failures double the delay up to MaxDelay, with
// ±20% jitter. A successful open resets the delay.
const (
	defaultInitialDelay = 5 * time.Second
	defaultMaxDelay     = 60 * time.Second
	backoffJitter       = 0.2
)

// StreamReader maintains the single persistent jobs-stream connection:
// Connecting → Open → (messages)* → Closed → Connecting. There is never more
// than one live connection; the previous response body is closed before a
// reconnect is attempted, so a server event is delivered to at most one
// handler invocation.
type StreamReader struct {
	url        string
	client     *http.Client
	onSnapshot func(models.JobsSnapshot)
	onState    func(connected bool)

	// Reconnect tuning, settable before Start.
	InitialDelay time.Duration
	MaxDelay     time.Duration

	cancel    context.CancelFunc
	done      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
}

// NewStreamReader creates a reader for the SSE endpoint at url. onSnapshot is
// invoked for every decoded jobs event; onState on every connect/disconnect
// transition. Neither callback may be nil.
func NewStreamReader(url string, onSnapshot func(models.JobsSnapshot), onState func(connected bool)) *StreamReader {
	return &StreamReader{
		url:          url,
		client:       &http.Client{},
		onSnapshot:   onSnapshot,
		onState:      onState,
		InitialDelay: defaultInitialDelay,
		MaxDelay:     defaultMaxDelay,
		done:         make(chan struct{}),
	}
}

// Start launches the connection loop. It returns immediately.
func (s *StreamReader) Start() {
	s.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		go s.loop(ctx)
	})
}

// Close tears the stream down. Used only on shutdown.
func (s *StreamReader) Close() {
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		<-s.done
	})
}

func (s *StreamReader) loop(ctx context.Context) {
	defer close(s.done)

	delay := s.InitialDelay

	for {
		if ctx.Err() != nil {
			return
		}

		err := s.consume(ctx, &delay)
		if ctx.Err() != nil {
			return
		}

		logrus.Warnf("Jobs stream disconnected: %v; reconnecting in %v", err, delay)
		s.onState(false)

		// Exactly one reconnect attempt per drop.
		select {
		case <-ctx.Done():
			return
		case <-time.After(withJitter(delay)):
		}

		delay *= 2
		if delay > s.MaxDelay {
			delay = s.MaxDelay
		}
	}
}

// consume opens one connection and reads events until it breaks. The
// response body is closed before consume returns, so the next attempt never
// overlaps the previous connection.
func (s *StreamReader) consume(ctx context.Context, delay *time.Duration) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream returned status %d", resp.StatusCode)
	}

	logrus.Info("Jobs stream connected")
	s.onState(true)
	*delay = s.InitialDelay

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "data:"):
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case line == "":
			if data.Len() > 0 {
				s.dispatch(data.String())
				data.Reset()
			}
		}
		// Other SSE fields (event, id, retry) are not used by this stream.
	}

	if err := scanner.Err(); err != nil {
		return err
	}
	return fmt.Errorf("stream closed by server")
}

func (s *StreamReader) dispatch(payload string) {
	var snapshot models.JobsSnapshot
	if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
		logrus.Errorf("Failed to decode jobs stream event: %v", err)
		return
	}
	if snapshot.Jobs == nil {
		return
	}
	s.onSnapshot(snapshot)
}

func withJitter(d time.Duration) time.Duration {
	factor := 1 - backoffJitter + 2*backoffJitter*rand.Float64()
	return time.Duration(float64(d) * factor)
}
