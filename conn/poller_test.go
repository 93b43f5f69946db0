package conn

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"node.town/scribe/notify"
)

type bodies struct {
	mu  sync.Mutex
	got [][]byte
}

func (b *bodies) add(data []byte) {
	b.mu.Lock()
	b.got = append(b.got, data)
	b.mu.Unlock()
}

func (b *bodies) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.got)
}

func runPoller(t *testing.T, p *Poller, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	p.Run(ctx)
}

func TestPollerSkipsWhileConnected(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	got := &bodies{}
	p := NewPoller(srv.Client(), srv.URL, 5*time.Millisecond,
		func() bool { return true }, got.add, notify.Discard, log.New(io.Discard))

	runPoller(t, p, 60*time.Millisecond)

	assert.Zero(t, hits.Load())
	assert.Zero(t, got.len())
}

func TestPollerFeedsBodies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Write([]byte(`[{"segments":[{"text":"hi"}]}]`))
	}))
	defer srv.Close()

	got := &bodies{}
	p := NewPoller(srv.Client(), srv.URL, 5*time.Millisecond,
		func() bool { return false }, got.add, notify.Discard, log.New(io.Discard))

	runPoller(t, p, 60*time.Millisecond)

	require.NotZero(t, got.len())
	assert.JSONEq(t, `[{"segments":[{"text":"hi"}]}]`, string(got.got[0]))
}

func TestPollerNotifiesOncePerFailureRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	rec := &notify.Recorder{}
	got := &bodies{}
	p := NewPoller(srv.Client(), srv.URL, 5*time.Millisecond,
		func() bool { return false }, got.add, rec, log.New(io.Discard))

	runPoller(t, p, 60*time.Millisecond)

	assert.Zero(t, got.len())
	assert.Len(t, rec.Errors(), 1)
}
