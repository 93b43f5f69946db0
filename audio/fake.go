package audio

import (
	"context"
	"errors"
	"sync"
)

var ErrPermissionDenied = errors.New("permission denied")

// FakeContext is an in-memory Context. Captures it opens deliver whatever
// is passed to Feed; Play records the PCM it was given.
type FakeContext struct {
	// DenyCapture makes NewCapture fail with ErrPermissionDenied.
	DenyCapture bool
	DeviceList  []DeviceInfo
	PlayErr     error

	mu       sync.Mutex
	captures []*FakeCapture
	played   [][]byte
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return f.DeviceList, nil
}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ Format, cb DataCallback) (CaptureDevice, error) {
	if f.DenyCapture {
		return nil, ErrPermissionDenied
	}
	c := &FakeCapture{cb: cb}
	f.mu.Lock()
	f.captures = append(f.captures, c)
	f.mu.Unlock()
	return c, nil
}

func (f *FakeContext) Play(_ context.Context, _ Format, pcm []byte) error {
	if f.PlayErr != nil {
		return f.PlayErr
	}
	f.mu.Lock()
	f.played = append(f.played, pcm)
	f.mu.Unlock()
	return nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) Captures() []*FakeCapture {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeCapture(nil), f.captures...)
}

func (f *FakeContext) Played() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.played...)
}

type FakeCapture struct {
	mu      sync.Mutex
	cb      DataCallback
	started bool
	closed  bool
}

func (c *FakeCapture) Start() error {
	c.mu.Lock()
	c.started = true
	c.mu.Unlock()
	return nil
}

func (c *FakeCapture) Stop() {
	c.mu.Lock()
	c.started = false
	c.mu.Unlock()
}

func (c *FakeCapture) Close() {
	c.mu.Lock()
	c.started = false
	c.closed = true
	c.mu.Unlock()
}

func (c *FakeCapture) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

func (c *FakeCapture) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Feed pushes data through the capture callback while the device runs.
func (c *FakeCapture) Feed(data []byte, frames uint32) {
	c.mu.Lock()
	cb, running := c.cb, c.started
	c.mu.Unlock()
	if running && cb != nil {
		cb(data, frames)
	}
}
