package capture

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"node.town/scribe/audio"
	"node.town/scribe/notify"
)

type fakeSender struct {
	mu       sync.Mutex
	open     bool
	controls []string
	chunks   [][]byte

	// onControl runs after a control is recorded, outside the lock.
	onControl func(msg string)
}

func (s *fakeSender) SendControl(_ context.Context, msg string) error {
	s.mu.Lock()
	s.controls = append(s.controls, msg)
	hook := s.onControl
	s.mu.Unlock()
	if hook != nil {
		hook(msg)
	}
	return nil
}

func (s *fakeSender) SendAudio(chunk []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return false
	}
	s.chunks = append(s.chunks, chunk)
	return true
}

func (s *fakeSender) setOpen(open bool) {
	s.mu.Lock()
	s.open = open
	s.mu.Unlock()
}

// 8 kHz mono: a 100 ms slice is 1600 bytes.
var testFormat = audio.Format{SampleRate: 8000, Channels: 1}

func newTestController(fake *audio.FakeContext) (*Controller, *fakeSender, *notify.Recorder) {
	sender := &fakeSender{open: true}
	rec := &notify.Recorder{}
	c := NewController(fake, Config{Format: testFormat}, sender, rec, log.New(io.Discard))
	return c, sender, rec
}

func TestStartMicForwardsSlices(t *testing.T) {
	fake := &audio.FakeContext{}
	c, sender, rec := newTestController(fake)

	require.NoError(t, c.StartMic(context.Background()))
	assert.True(t, c.Recording())
	assert.Equal(t, []string{StartRecording}, sender.controls)

	captures := fake.Captures()
	require.Len(t, captures, 1)
	dev := captures[0]
	assert.True(t, dev.Running())

	dev.Feed(make([]byte, 1000), 500)
	assert.Empty(t, sender.chunks, "no slice before 100 ms of audio")
	dev.Feed(make([]byte, 2600), 1300)
	require.Len(t, sender.chunks, 2)
	assert.Len(t, sender.chunks[0], 1600)
	assert.Len(t, sender.chunks[1], 1600)

	require.NoError(t, c.Stop(context.Background()))
	assert.False(t, c.Recording())
	assert.True(t, dev.Closed())
	assert.Equal(t, []string{StartRecording, StopRecording}, sender.controls)
	assert.Len(t, sender.chunks, 3, "partial slice flushed on stop")
	assert.Len(t, sender.chunks[2], 400)
	assert.Empty(t, rec.Notices())
}

func TestSlicesDroppedWhileChannelClosed(t *testing.T) {
	fake := &audio.FakeContext{}
	c, sender, _ := newTestController(fake)
	require.NoError(t, c.StartMic(context.Background()))
	dev := fake.Captures()[0]

	sender.setOpen(false)
	dev.Feed(make([]byte, 3200), 1600)
	sender.setOpen(true)
	dev.Feed(make([]byte, 1600), 800)

	assert.Len(t, sender.chunks, 1)
	sent, dropped := c.Stats()
	assert.Equal(t, int64(1), sent)
	assert.Equal(t, int64(2), dropped)
}

func TestStartMicHoldsAudioUntilRecordingStarts(t *testing.T) {
	fake := &audio.FakeContext{}
	c, sender, _ := newTestController(fake)

	var chunksAtStart int
	sender.onControl = func(msg string) {
		if msg != StartRecording {
			return
		}
		// The device is already running; a full slice arrives while the
		// start command is still in flight.
		fake.Captures()[0].Feed(make([]byte, 1600), 800)
		sender.mu.Lock()
		chunksAtStart = len(sender.chunks)
		sender.mu.Unlock()
	}

	require.NoError(t, c.StartMic(context.Background()))
	assert.Zero(t, chunksAtStart, "no audio before START_RECORDING")
	assert.Empty(t, sender.chunks)

	fake.Captures()[0].Feed(make([]byte, 1600), 800)
	assert.Len(t, sender.chunks, 1)
}

func TestInterruptStopsActiveRecording(t *testing.T) {
	fake := &audio.FakeContext{}
	c, sender, rec := newTestController(fake)
	require.NoError(t, c.StartMic(context.Background()))

	c.Interrupt(context.Background(), "live connection lost")

	assert.False(t, c.Recording())
	assert.True(t, fake.Captures()[0].Closed())
	assert.Equal(t, []string{StartRecording, StopRecording}, sender.controls)
	errs := rec.Errors()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Text, "live connection lost")
}

func TestInterruptWhileIdle(t *testing.T) {
	c, sender, rec := newTestController(&audio.FakeContext{})

	c.Interrupt(context.Background(), "live connection lost")

	assert.Empty(t, sender.controls)
	assert.Empty(t, rec.Notices())
}

func TestStartMicDenied(t *testing.T) {
	fake := &audio.FakeContext{DenyCapture: true}
	c, sender, rec := newTestController(fake)

	err := c.StartMic(context.Background())
	require.ErrorIs(t, err, audio.ErrPermissionDenied)

	assert.False(t, c.Recording())
	assert.Empty(t, sender.controls)
	errs := rec.Errors()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Text, "microphone")
}

func TestStartMicTwiceKeepsOneDevice(t *testing.T) {
	fake := &audio.FakeContext{}
	c, sender, _ := newTestController(fake)

	require.NoError(t, c.StartMic(context.Background()))
	require.NoError(t, c.StartMic(context.Background()))

	assert.Len(t, fake.Captures(), 1)
	assert.Equal(t, []string{StartRecording}, sender.controls)
}

func TestStopWithoutRecording(t *testing.T) {
	c, sender, rec := newTestController(&audio.FakeContext{})

	require.NoError(t, c.Stop(context.Background()))
	assert.False(t, c.Recording())
	assert.Equal(t, []string{StopRecording}, sender.controls)
	assert.Empty(t, sender.chunks)
	assert.Empty(t, rec.Notices())
}

func TestStartStream(t *testing.T) {
	t.Run("Empty URL", func(t *testing.T) {
		c, sender, rec := newTestController(&audio.FakeContext{})
		for _, url := range []string{"", "   "} {
			assert.ErrorIs(t, c.StartStream(context.Background(), RTSP, url), ErrEmptyURL)
		}
		assert.Empty(t, sender.controls)
		assert.Len(t, rec.Errors(), 2)
	})

	t.Run("Valid URL", func(t *testing.T) {
		c, sender, rec := newTestController(&audio.FakeContext{})
		require.NoError(t, c.StartStream(context.Background(), HLS, "example.com/stream"))
		assert.Equal(t, []string{"START_STREAMING:example.com/stream"}, sender.controls)
		assert.Empty(t, rec.Notices())
	})

	t.Run("Microphone is not a stream", func(t *testing.T) {
		c, sender, _ := newTestController(&audio.FakeContext{})
		assert.ErrorIs(t, c.StartStream(context.Background(), Mic, "x"), ErrNotRemote)
		assert.Empty(t, sender.controls)
	})
}

func TestCloseReleasesSilently(t *testing.T) {
	fake := &audio.FakeContext{}
	c, sender, _ := newTestController(fake)
	require.NoError(t, c.StartMic(context.Background()))

	c.Close()
	assert.False(t, c.Recording())
	assert.True(t, fake.Captures()[0].Closed())
	assert.Equal(t, []string{StartRecording}, sender.controls)
}

func TestSourceCycle(t *testing.T) {
	assert.Equal(t, RTSP, Mic.Next())
	assert.Equal(t, HLS, RTSP.Next())
	assert.Equal(t, Mic, HLS.Next())

	src, err := ParseSource("HLS")
	require.NoError(t, err)
	assert.Equal(t, HLS, src)
	_, err = ParseSource("webrtc")
	assert.Error(t, err)
}

func TestChunkerSlicesAcrossWrites(t *testing.T) {
	var got [][]byte
	ch := NewChunker(audio.Format{SampleRate: 8000, Channels: 1}.BytesFor(10*time.Millisecond), func(b []byte) {
		got = append(got, b)
	})

	ch.Write([]byte{1, 2, 3})
	ch.Write(make([]byte, 200))
	require.Len(t, got, 1)
	assert.Equal(t, []byte{1, 2, 3}, got[0][:3])
	assert.Len(t, got[0], 160)

	ch.Flush()
	require.Len(t, got, 2)
	assert.Len(t, got[1], 43)
	ch.Flush()
	assert.Len(t, got, 2)
}
