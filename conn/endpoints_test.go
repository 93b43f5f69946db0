package conn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveEndpoints(t *testing.T) {
	t.Run("Plain page uses ws", func(t *testing.T) {
		e, err := ResolveEndpoints("http://localhost:3000/dashboard")
		require.NoError(t, err)
		assert.Equal(t, "ws://localhost:3000/api/transcription", e.Transcription)
		assert.Equal(t, "ws://localhost:3000/api/tts", e.Audio)
		assert.Equal(t, "http://localhost:3000/api/transcripts", e.Transcripts)
		assert.Equal(t, "http://localhost:3000/api/send-message", e.SendMessage)
		assert.False(t, e.Secure)
	})

	t.Run("Encrypted page uses wss", func(t *testing.T) {
		e, err := ResolveEndpoints("https://scribe.example.com")
		require.NoError(t, err)
		assert.Equal(t, "wss://scribe.example.com/api/transcription", e.Transcription)
		assert.Equal(t, "wss://scribe.example.com/api/tts", e.Audio)
		assert.Equal(t, "https://scribe.example.com/api/transcripts", e.Transcripts)
		assert.True(t, e.Secure)
	})

	for _, bad := range []string{"ftp://example.com", "localhost:3000", "http://", "::"} {
		_, err := ResolveEndpoints(bad)
		assert.Error(t, err, bad)
	}
}
