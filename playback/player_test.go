package playback

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"node.town/scribe/audio"
	"node.town/scribe/notify"
)

type recordingSink struct {
	got  []byte
	path string
	p    *Player
	err  error
}

func (s *recordingSink) Play(_ context.Context, r io.Reader) error {
	s.path = s.p.Current()
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.got = data
	return s.err
}

func newTestPlayer(sink *recordingSink) (*Player, *notify.Recorder) {
	rec := &notify.Recorder{}
	p := NewPlayer(sink, rec, log.New(io.Discard))
	sink.p = p
	return p, rec
}

func TestPlayReleasesAfterSuccess(t *testing.T) {
	sink := &recordingSink{}
	p, rec := newTestPlayer(sink)

	res, err := NewResource([]byte("voice"))
	require.NoError(t, err)

	require.NoError(t, p.Play(context.Background(), res))

	assert.Equal(t, []byte("voice"), sink.got)
	assert.Equal(t, res.Path(), sink.path, "resource is assigned while playing")
	assert.Empty(t, p.Current())
	assert.Equal(t, 1, p.Played())
	assert.Empty(t, rec.Notices())

	_, err = os.Stat(res.Path())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPlayReleasesAfterFailure(t *testing.T) {
	sink := &recordingSink{err: errors.New("device busy")}
	p, rec := newTestPlayer(sink)

	res, err := NewResource([]byte("voice"))
	require.NoError(t, err)

	err = p.Play(context.Background(), res)
	require.Error(t, err)

	errs := rec.Errors()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Text, "device busy")
	assert.Equal(t, 0, p.Played())

	_, err = os.Stat(res.Path())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReleaseIsIdempotent(t *testing.T) {
	res, err := NewResource([]byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Size())

	require.NoError(t, res.Release())
	require.NoError(t, res.Release())
}

func TestDeviceSinkDecodesWAV(t *testing.T) {
	fake := &audio.FakeContext{}
	sink := DeviceSink{Audio: fake}
	p := NewPlayer(sink, notify.Discard, log.New(io.Discard))

	format := audio.Format{SampleRate: 16000, Channels: 1}
	clip, err := audio.EncodeWAV(format, []byte{9, 0, 8, 0})
	require.NoError(t, err)
	res, err := NewResource(clip)
	require.NoError(t, err)

	require.NoError(t, p.Play(context.Background(), res))
	assert.Equal(t, [][]byte{{9, 0, 8, 0}}, fake.Played())
}

func TestDeviceSinkRejectsGarbage(t *testing.T) {
	rec := &notify.Recorder{}
	p := NewPlayer(DeviceSink{Audio: &audio.FakeContext{}}, rec, log.New(io.Discard))

	res, err := NewResource([]byte("not audio at all"))
	require.NoError(t, err)

	assert.Error(t, p.Play(context.Background(), res))
	assert.Len(t, rec.Errors(), 1)
}
