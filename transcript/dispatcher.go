package transcript

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"node.town/scribe/playback"
)

type Player interface {
	Play(ctx context.Context, res *playback.Resource) error
}

// Dispatcher turns raw channel payloads into transcript records and
// playable audio.
type Dispatcher struct {
	log      *Log
	player   Player
	onRecord func(Record)
	logger   *log.Logger
	now      func() time.Time
	ctx      context.Context
}

type Option func(*Dispatcher)

// WithListener registers a function called for every appended record, in
// append order.
func WithListener(fn func(Record)) Option {
	return func(d *Dispatcher) { d.onRecord = fn }
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithContext bounds playback started by the dispatcher; cancelling ctx
// cuts off the clip being played.
func WithContext(ctx context.Context) Option {
	return func(d *Dispatcher) { d.ctx = ctx }
}

func NewDispatcher(l *Log, player Player, logger *log.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		log:    l,
		player: player,
		logger: logger,
		now:    time.Now,
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Log() *Log {
	return d.log
}

// DispatchTranscription appends the records carried by raw. Malformed
// payloads are logged and dropped.
func (d *Dispatcher) DispatchTranscription(raw []byte) {
	msgs, err := Parse(raw)
	if err != nil {
		d.logger.Error("drop transcription", "error", err, "bytes", len(raw))
		return
	}

	for _, msg := range msgs {
		records := msg.Records(d.now().UnixMilli())
		if len(records) == 0 {
			continue
		}
		d.log.append(records...)
		for _, r := range records {
			d.logger.Debug("hear", "kind", r.Kind, "txt", r.Content)
			if d.onRecord != nil {
				d.onRecord(r)
			}
		}
	}
}

// DispatchAudio hands binary payloads to the player. Text frames on the
// audio channel are ignored.
func (d *Dispatcher) DispatchAudio(messageType int, payload []byte) {
	if messageType != websocket.BinaryMessage {
		d.logger.Debug("ignore audio frame", "type", messageType)
		return
	}
	if d.player == nil {
		return
	}

	res, err := playback.NewResource(payload)
	if err != nil {
		d.logger.Error("create audio resource", "error", err)
		return
	}

	if err := d.player.Play(d.ctx, res); err != nil {
		d.logger.Error("play audio", "error", err)
	}
}
