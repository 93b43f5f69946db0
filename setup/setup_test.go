package setup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"node.town/scribe/audio"
	"node.town/scribe/config"
)

func TestApplyWritesLoadableConfig(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)

	answers := Answers{
		BackendURL:        "https://scribe.example.com",
		Device:            "USB Mic",
		ReconnectAttempts: "3",
		ReconnectDelay:    "1500ms",
	}
	require.NoError(t, answers.Apply(v))

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, v.WriteConfigAs(path))

	reread := viper.New()
	config.SetDefaults(reread)
	reread.SetConfigFile(path)
	require.NoError(t, reread.ReadInConfig())

	c, err := config.Load(reread)
	require.NoError(t, err)
	assert.Equal(t, "https://scribe.example.com", c.BackendURL)
	assert.Equal(t, "USB Mic", c.Device)
	assert.Equal(t, 3, c.ReconnectAttempts)
	assert.Equal(t, 1500*time.Millisecond, c.ReconnectDelay)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestApplyRejectsBadAnswers(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)

	err := Answers{BackendURL: "http://x", ReconnectAttempts: "many", ReconnectDelay: "1s"}.Apply(v)
	assert.Error(t, err)

	err = Answers{BackendURL: "ws://x", ReconnectAttempts: "2", ReconnectDelay: "1s"}.Apply(v)
	assert.Error(t, err)
}

func TestValidators(t *testing.T) {
	assert.NoError(t, validateURL("http://localhost:8000"))
	assert.Error(t, validateURL("localhost:8000"))
	assert.NoError(t, validateInt("5"))
	assert.Error(t, validateInt("0"))
	assert.NoError(t, validateDuration("3s"))
	assert.Error(t, validateDuration("-1s"))
}

func TestDeviceOptionsStartWithDefault(t *testing.T) {
	options := deviceOptions([]audio.DeviceInfo{{ID: "01", Name: "USB Mic"}})
	require.Len(t, options, 2)
	assert.Equal(t, "", options[0].Value)
	assert.Equal(t, "USB Mic", options[1].Value)
}
