package capture

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"node.town/scribe/audio"
	"node.town/scribe/notify"
)

const (
	StartRecording = "START_RECORDING"
	StopRecording  = "STOP_RECORDING"
	StartStreaming = "START_STREAMING:"
)

const DefaultSlice = 100 * time.Millisecond

var (
	ErrEmptyURL  = errors.New("empty stream url")
	ErrNotRemote = errors.New("source is not a remote stream")
)

type Source string

const (
	Mic  Source = "mic"
	RTSP Source = "rtsp"
	HLS  Source = "hls"
)

var Sources = []Source{Mic, RTSP, HLS}

func (s Source) Label() string {
	switch s {
	case Mic:
		return "Microphone"
	case RTSP:
		return "RTSP"
	case HLS:
		return "HLS"
	}
	return string(s)
}

// Next cycles through Sources.
func (s Source) Next() Source {
	for i, src := range Sources {
		if src == s {
			return Sources[(i+1)%len(Sources)]
		}
	}
	return Mic
}

func ParseSource(s string) (Source, error) {
	switch Source(strings.ToLower(s)) {
	case Mic:
		return Mic, nil
	case RTSP:
		return RTSP, nil
	case HLS:
		return HLS, nil
	}
	return "", fmt.Errorf("unknown input type %q", s)
}

// Sender is the outbound side of the transcription channel.
type Sender interface {
	SendControl(ctx context.Context, msg string) error
	// SendAudio reports false when the chunk was dropped.
	SendAudio(chunk []byte) bool
}

type Config struct {
	Format audio.Format
	Slice  time.Duration
	Device *audio.DeviceInfo
}

// Controller owns the microphone capture session and issues recording
// and streaming commands.
type Controller struct {
	audio    audio.Context
	cfg      Config
	sender   Sender
	notifier notify.Notifier
	logger   *log.Logger

	mu      sync.Mutex
	session *session

	sent    atomic.Int64
	dropped atomic.Int64
}

type session struct {
	device  audio.CaptureDevice
	chunker *Chunker
	live    atomic.Bool
}

func NewController(
	ctx audio.Context,
	cfg Config,
	sender Sender,
	notifier notify.Notifier,
	logger *log.Logger,
) *Controller {
	if cfg.Slice <= 0 {
		cfg.Slice = DefaultSlice
	}
	return &Controller{
		audio:    ctx,
		cfg:      cfg,
		sender:   sender,
		notifier: notifier,
		logger:   logger,
	}
}

func (c *Controller) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}

// Stats returns how many audio slices were sent and dropped.
func (c *Controller) Stats() (sent, dropped int64) {
	return c.sent.Load(), c.dropped.Load()
}

// StartMic acquires the capture device and starts forwarding slices. A
// device failure is reported once and leaves the controller idle.
func (c *Controller) StartMic(ctx context.Context) error {
	c.mu.Lock()
	if c.session != nil {
		c.mu.Unlock()
		return nil
	}

	s := &session{}
	s.chunker = NewChunker(c.cfg.Format.BytesFor(c.cfg.Slice), c.forward())

	dev, err := c.audio.NewCapture(c.cfg.Device, c.cfg.Format, func(data []byte, _ uint32) {
		if s.live.Load() {
			s.chunker.Write(data)
		}
	})
	if err == nil {
		if err = dev.Start(); err != nil {
			dev.Close()
		}
	}
	if err != nil {
		c.mu.Unlock()
		c.logger.Error("access microphone", "error", err)
		c.notifier.Notify(notify.Errorf("Error accessing microphone: %v", err))
		return fmt.Errorf("start capture: %w", err)
	}

	s.device = dev
	c.session = s
	c.mu.Unlock()

	// Slices only flow once the backend has been told to record.
	err = c.sender.SendControl(ctx, StartRecording)

	c.mu.Lock()
	if c.session == s {
		s.live.Store(true)
	}
	c.mu.Unlock()

	c.logger.Info("recording", "slice", c.cfg.Slice, "rate", c.cfg.Format.SampleRate)
	return err
}

func (c *Controller) forward() func([]byte) {
	return func(chunk []byte) {
		if c.sender.SendAudio(chunk) {
			c.sent.Add(1)
		} else {
			c.dropped.Add(1)
		}
	}
}

// Stop releases the capture device, if any, and always sends the stop
// command.
func (c *Controller) Stop(ctx context.Context) error {
	c.release(true)
	c.logger.Info("stopped", "sent", c.sent.Load(), "dropped", c.dropped.Load())
	return c.sender.SendControl(ctx, StopRecording)
}

// Interrupt ends an active microphone session after the live connection
// is lost, telling the user why. It does nothing when idle.
func (c *Controller) Interrupt(ctx context.Context, reason string) {
	if !c.Recording() {
		return
	}
	c.logger.Warn("recording interrupted", "reason", reason)
	c.notifier.Notify(notify.Errorf("Recording stopped: %s", reason))
	if err := c.Stop(ctx); err != nil {
		c.logger.Error("stop after interrupt", "error", err)
	}
}

// StartStream asks the backend to pull a remote RTSP or HLS stream.
func (c *Controller) StartStream(ctx context.Context, src Source, url string) error {
	if src != RTSP && src != HLS {
		return ErrNotRemote
	}
	url = strings.TrimSpace(url)
	if url == "" {
		c.notifier.Notify(notify.Errorf("Please enter a valid %s URL", src.Label()))
		return ErrEmptyURL
	}

	c.logger.Info("stream", "type", src, "url", url)
	return c.sender.SendControl(ctx, StartStreaming+url)
}

// Close releases the device without telling the backend; used on teardown.
func (c *Controller) Close() {
	c.release(false)
}

func (c *Controller) release(flush bool) {
	c.mu.Lock()
	s := c.session
	c.session = nil
	c.mu.Unlock()

	if s == nil {
		return
	}
	s.live.Store(false)
	s.device.Stop()
	s.device.Close()
	if flush {
		s.chunker.Flush()
	}
}
