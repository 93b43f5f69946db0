package playback

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"

	"node.town/scribe/audio"
	"node.town/scribe/notify"
)

type Sink interface {
	Play(ctx context.Context, r io.Reader) error
}

// Player plays one resource at a time, like a single <audio> element.
type Player struct {
	sink     Sink
	notifier notify.Notifier
	logger   *log.Logger

	mu      sync.Mutex
	current string
	played  int
}

func NewPlayer(sink Sink, notifier notify.Notifier, logger *log.Logger) *Player {
	return &Player{sink: sink, notifier: notifier, logger: logger}
}

// Play assigns res, attempts playback and releases res whatever the outcome.
func (p *Player) Play(ctx context.Context, res *Resource) error {
	defer func() {
		if err := res.Release(); err != nil {
			p.logger.Warn("release audio resource", "path", res.Path(), "error", err)
		}
		p.mu.Lock()
		p.current = ""
		p.mu.Unlock()
	}()

	p.mu.Lock()
	p.current = res.Path()
	p.mu.Unlock()

	err := p.play(ctx, res)
	if err != nil {
		p.notifier.Notify(notify.Errorf("Error playing audio: %v", err))
		return err
	}

	p.mu.Lock()
	p.played++
	p.mu.Unlock()
	p.logger.Info("play", "bytes", res.Size())
	return nil
}

func (p *Player) play(ctx context.Context, res *Resource) error {
	f, err := os.Open(res.Path())
	if err != nil {
		return fmt.Errorf("open audio resource: %w", err)
	}
	defer f.Close()

	return p.sink.Play(ctx, f)
}

// Current returns the path of the resource being played, if any.
func (p *Player) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *Player) Played() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.played
}

// DeviceSink decodes WAV payloads and plays them on the default output.
type DeviceSink struct {
	Audio audio.Context
}

func (s DeviceSink) Play(ctx context.Context, r io.Reader) error {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		payload, err := io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("read clip: %w", err)
		}
		rs = bytes.NewReader(payload)
	}
	format, pcm, err := audio.DecodeWAV(rs)
	if err != nil {
		return err
	}
	return s.Audio.Play(ctx, format, pcm)
}

// NopSink accepts and discards everything, for headless sessions.
type NopSink struct{}

func (NopSink) Play(_ context.Context, r io.Reader) error {
	_, err := io.Copy(io.Discard, r)
	return err
}
