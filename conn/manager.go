package conn

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"node.town/scribe/notify"
)

const (
	TranscriptionChannel = "transcription"
	AudioChannel         = "audio"
)

const DefaultPollInterval = time.Second

type Dispatcher interface {
	DispatchTranscription(raw []byte)
	DispatchAudio(messageType int, payload []byte)
}

type Config struct {
	BackendURL   string
	Policy       Policy
	PollInterval time.Duration
	HTTPClient   *http.Client
	Dialer       *websocket.Dialer
	// OnPolling runs once, on the channel goroutine, when the
	// transcription channel gives up and polling starts.
	OnPolling    func(ctx context.Context)
}

// Manager owns the transcription and audio channels of one dashboard
// session, plus the polling fallback.
type Manager struct {
	endpoints  Endpoints
	client     *http.Client
	dispatcher Dispatcher
	notifier   notify.Notifier
	logger     *log.Logger
	onPolling  func(ctx context.Context)

	transcription *Channel
	audio         *Channel
	aggregator    *Aggregator
	poller        *Poller

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	pollOnce sync.Once

	mu     sync.Mutex
	closed bool
}

func NewManager(
	cfg Config,
	dispatcher Dispatcher,
	notifier notify.Notifier,
	onStatus func(Snapshot),
	logger *log.Logger,
) (*Manager, error) {
	endpoints, err := ResolveEndpoints(cfg.BackendURL)
	if err != nil {
		return nil, err
	}

	policy := cfg.Policy
	if policy.MaxAttempts <= 0 {
		policy = DefaultPolicy
	}
	policy.Fallback = Polling
	audioPolicy := policy
	audioPolicy.Fallback = Disconnected

	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	m := &Manager{
		endpoints:  endpoints,
		client:     client,
		dispatcher: dispatcher,
		notifier:   notifier,
		logger:     logger,
		onPolling:  cfg.OnPolling,
	}

	m.aggregator = NewAggregator(TranscriptionChannel, AudioChannel, endpoints.Secure, onStatus)
	m.transcription = NewChannel(ChannelConfig{
		Name:   TranscriptionChannel,
		URL:    endpoints.Transcription,
		Policy: policy,
		Dialer: cfg.Dialer,
		Logger: logger,
		OnMessage: func(_ int, data []byte) {
			dispatcher.DispatchTranscription(data)
		},
		OnTransition: m.observe,
	})
	m.audio = NewChannel(ChannelConfig{
		Name:         AudioChannel,
		URL:          endpoints.Audio,
		Policy:       audioPolicy,
		Dialer:       cfg.Dialer,
		Logger:       logger,
		OnMessage:    dispatcher.DispatchAudio,
		OnTransition: m.observe,
	})
	m.poller = NewPoller(
		client,
		endpoints.Transcripts,
		interval,
		func() bool { return m.aggregator.Snapshot().Overall() == Connected },
		dispatcher.DispatchTranscription,
		notifier,
		logger.With("channel", "poll"),
	)

	return m, nil
}

func (m *Manager) Endpoints() Endpoints { return m.endpoints }

func (m *Manager) Snapshot() Snapshot { return m.aggregator.Snapshot() }

func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.mu.Unlock()

	m.transcription.Start(m.ctx)
	m.audio.Start(m.ctx)
}

func (m *Manager) observe(channel string, t Transition) {
	m.aggregator.Observe(channel, t)

	switch t.Action {
	case NotifyError:
		m.notifier.Notify(notify.Errorf("%s connection error", channel))
	case StartPolling:
		m.logger.Warn("reconnect attempts exhausted", "channel", channel, "failures", t.Failures)
		m.notifier.Notify(notify.Infof("Switched to polling mode"))
		m.startPolling()
		if m.onPolling != nil {
			m.onPolling(m.context())
		}
	case GiveUp:
		m.logger.Warn("reconnect attempts exhausted", "channel", channel, "failures", t.Failures)
	}
}

func (m *Manager) context() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx == nil {
		return context.Background()
	}
	return m.ctx
}

func (m *Manager) startPolling() {
	m.pollOnce.Do(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.closed {
			return
		}
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.poller.Run(m.ctx)
		}()
	})
}

// TranscriptionOpen reports whether control and audio frames can go out
// over the socket right now.
func (m *Manager) TranscriptionOpen() bool {
	return m.transcription.IsOpen()
}

// SendControl sends a control string over the transcription socket, or
// through the REST fallback when the socket is not open.
func (m *Manager) SendControl(ctx context.Context, msg string) error {
	if m.transcription.IsOpen() {
		err := m.transcription.WriteText(msg)
		if err == nil {
			return nil
		}
		m.logger.Warn("socket send failed, using REST", "error", err)
	}
	return m.SendMessage(ctx, msg)
}

// SendAudio forwards one captured chunk. Chunks are dropped, not queued,
// while the socket is down.
func (m *Manager) SendAudio(chunk []byte) bool {
	if !m.transcription.IsOpen() {
		return false
	}
	if err := m.transcription.WriteBinary(chunk); err != nil {
		m.logger.Debug("drop audio chunk", "error", err)
		return false
	}
	return true
}

type sendMessageRequest struct {
	Message string `json:"message"`
}

type sendMessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SendMessage posts msg to the send-message endpoint.
func (m *Manager) SendMessage(ctx context.Context, msg string) error {
	err := m.sendMessage(ctx, msg)
	if err != nil {
		m.logger.Error("send message", "error", err)
		m.notifier.Notify(notify.Errorf("Failed to send message"))
	}
	return err
}

func (m *Manager) sendMessage(ctx context.Context, msg string) error {
	body, err := json.Marshal(sendMessageRequest{Message: msg})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoints.SendMessage, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var out sendMessageResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&out)

	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && out.Error != "" {
			return fmt.Errorf("unexpected status code: %d: %s", resp.StatusCode, out.Error)
		}
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return fmt.Errorf("decode send-message response: %w", decodeErr)
	}
	return nil
}

// Close tears down both sockets, pending redials and the poller. Nothing
// started by the manager outlives it.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Unlock()

	errT := m.transcription.Close()
	errA := m.audio.Close()
	m.wg.Wait()

	if errT != nil {
		return errT
	}
	return errA
}
