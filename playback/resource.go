package playback

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
)

// Resource is a temporary on-disk copy of an audio payload. It stays valid
// until Release.
type Resource struct {
	path string
	size int

	once sync.Once
	err  error
}

func NewResource(payload []byte) (*Resource, error) {
	f, err := os.CreateTemp("", "scribe-tts-*.wav")
	if err != nil {
		return nil, fmt.Errorf("create audio resource: %w", err)
	}

	if _, err := f.Write(payload); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("write audio resource: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("close audio resource: %w", err)
	}

	return &Resource{path: f.Name(), size: len(payload)}, nil
}

func (r *Resource) Path() string { return r.path }

func (r *Resource) Size() int { return r.size }

// Release deletes the backing file. Only the first call does any work.
func (r *Resource) Release() error {
	r.once.Do(func() {
		err := os.Remove(r.path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			r.err = err
		}
	})
	return r.err
}
