package capture

import "sync"

// Chunker cuts a PCM byte stream into fixed-size slices.
type Chunker struct {
	size int
	emit func([]byte)

	mu  sync.Mutex
	buf []byte
}

func NewChunker(size int, emit func([]byte)) *Chunker {
	if size <= 0 {
		size = 1
	}
	return &Chunker{size: size, emit: emit, buf: make([]byte, 0, size*2)}
}

func (c *Chunker) Write(p []byte) {
	c.mu.Lock()
	c.buf = append(c.buf, p...)
	var ready [][]byte
	for len(c.buf) >= c.size {
		chunk := make([]byte, c.size)
		copy(chunk, c.buf[:c.size])
		ready = append(ready, chunk)
		c.buf = append(c.buf[:0], c.buf[c.size:]...)
	}
	c.mu.Unlock()

	for _, chunk := range ready {
		c.emit(chunk)
	}
}

// Flush emits whatever partial slice is buffered.
func (c *Chunker) Flush() {
	c.mu.Lock()
	if len(c.buf) == 0 {
		c.mu.Unlock()
		return
	}
	chunk := make([]byte, len(c.buf))
	copy(chunk, c.buf)
	c.buf = c.buf[:0]
	c.mu.Unlock()

	c.emit(chunk)
}
