package audio

import (
	"context"
	"time"
)

type DataCallback func(data []byte, frameCount uint32)

// Format describes interleaved signed 16-bit PCM.
type Format struct {
	SampleRate uint32
	Channels   uint32
}

const BytesPerSample = 2

func (f Format) BytesPerFrame() int {
	return int(f.Channels) * BytesPerSample
}

// BytesFor returns the size of d worth of audio, rounded down to whole frames.
func (f Format) BytesFor(d time.Duration) int {
	frames := int64(f.SampleRate) * int64(d) / int64(time.Second)
	return int(frames) * f.BytesPerFrame()
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, format Format, cb DataCallback) (CaptureDevice, error)
	Play(ctx context.Context, format Format, pcm []byte) error
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
}

// FindDevice returns the device whose name or ID equals name.
func FindDevice(ctx Context, name string) (*DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, err
	}
	for _, d := range devices {
		if d.Name == name || d.ID == name {
			return &d, nil
		}
	}
	return nil, ErrNoDevice
}
