package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var ErrNotWAV = errors.New("not a RIFF/WAVE stream")

const wavPCM = 1

// DecodeWAV reads a 16-bit PCM WAV stream and returns its format and
// little-endian sample data.
func DecodeWAV(r io.ReadSeeker) (Format, []byte, error) {
	d := wav.NewDecoder(r)
	d.ReadInfo()
	if err := d.Err(); err != nil {
		return Format{}, nil, fmt.Errorf("%w: %v", ErrNotWAV, err)
	}
	if !d.IsValidFile() {
		return Format{}, nil, ErrNotWAV
	}
	if d.WavAudioFormat != wavPCM {
		return Format{}, nil, fmt.Errorf("unsupported WAV encoding %d", d.WavAudioFormat)
	}
	if d.BitDepth != 16 {
		return Format{}, nil, fmt.Errorf("unsupported bit depth %d", d.BitDepth)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return Format{}, nil, fmt.Errorf("read PCM data: %w", err)
	}
	pcm := make([]byte, len(buf.Data)*BytesPerSample)
	for i, v := range buf.Data {
		binary.LittleEndian.PutUint16(pcm[2*i:], uint16(int16(v)))
	}
	format := Format{SampleRate: d.SampleRate, Channels: uint32(d.NumChans)}
	return format, pcm, nil
}

// EncodeWAV wraps 16-bit little-endian pcm in a WAV container.
func EncodeWAV(format Format, pcm []byte) ([]byte, error) {
	samples := make([]int, len(pcm)/BytesPerSample)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[2*i:])))
	}
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: int(format.Channels),
			SampleRate:  int(format.SampleRate),
		},
		Data:           samples,
		SourceBitDepth: 16,
	}

	var out seekBuffer
	e := wav.NewEncoder(&out, int(format.SampleRate), 16, int(format.Channels), wavPCM)
	if err := e.Write(buf); err != nil {
		return nil, fmt.Errorf("encode WAV: %w", err)
	}
	if err := e.Close(); err != nil {
		return nil, fmt.Errorf("finish WAV: %w", err)
	}
	return out.buf, nil
}

// seekBuffer is an in-memory io.WriteSeeker; the encoder seeks back to
// patch chunk sizes once the data is written.
type seekBuffer struct {
	buf []byte
	pos int
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	if end := b.pos + len(p); end > len(b.buf) {
		b.buf = append(b.buf, make([]byte, end-len(b.buf))...)
	}
	n := copy(b.buf[b.pos:], p)
	b.pos += n
	return n, nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = int64(b.pos)
	case io.SeekEnd:
		base = int64(len(b.buf))
	default:
		return 0, fmt.Errorf("seek: invalid whence %d", whence)
	}
	pos := base + offset
	if pos < 0 {
		return 0, errors.New("seek: negative position")
	}
	b.pos = int(pos)
	return pos, nil
}
