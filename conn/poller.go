package conn

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"node.town/scribe/notify"
)

// Poller fetches transcripts on a fixed interval once live channels are
// gone. It never redials; polling lasts for the rest of the session.
type Poller struct {
	client    *http.Client
	url       string
	interval  time.Duration
	connected func() bool
	handle    func([]byte)
	notifier  notify.Notifier
	logger    *log.Logger

	failing bool
}

func NewPoller(
	client *http.Client,
	url string,
	interval time.Duration,
	connected func() bool,
	handle func([]byte),
	notifier notify.Notifier,
	logger *log.Logger,
) *Poller {
	return &Poller{
		client:    client,
		url:       url,
		interval:  interval,
		connected: connected,
		handle:    handle,
		notifier:  notifier,
		logger:    logger,
	}
}

func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("polling", "url", p.url, "every", p.interval)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.connected() {
				continue
			}
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	body, err := p.fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.Error("poll", "error", err)
		// One notice per run of failures.
		if !p.failing {
			p.notifier.Notify(notify.Errorf("Failed to fetch transcripts"))
		}
		p.failing = true
		return
	}
	p.failing = false
	p.handle(body)
}

func (p *Poller) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
