package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"

	"node.town/scribe/audio"
	"node.town/scribe/conn"
)

const (
	KeyBackendURL        = "backend_url"
	KeyReconnectAttempts = "reconnect_attempts"
	KeyReconnectDelay    = "reconnect_delay"
	KeyPollInterval      = "poll_interval"
	KeyChunkInterval     = "chunk_interval"
	KeySampleRate        = "sample_rate"
	KeyChannels          = "channels"
	KeyDevice            = "device"
	KeyLogFile           = "log_file"
	KeyHTTPPort          = "http_port"
	KeyTLSCert           = "tls_cert"
	KeyTLSKey            = "tls_key"
	KeyDemo              = "demo"
)

type Config struct {
	BackendURL        string        `mapstructure:"backend_url"`
	ReconnectAttempts int           `mapstructure:"reconnect_attempts"`
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	ChunkInterval     time.Duration `mapstructure:"chunk_interval"`
	SampleRate        uint32        `mapstructure:"sample_rate"`
	Channels          uint32        `mapstructure:"channels"`
	Device            string        `mapstructure:"device"`
	LogFile           string        `mapstructure:"log_file"`
	HTTPPort          int           `mapstructure:"http_port"`
	TLSCert           string        `mapstructure:"tls_cert"`
	TLSKey            string        `mapstructure:"tls_key"`
	Demo              bool          `mapstructure:"demo"`
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyBackendURL, "http://localhost:8000")
	v.SetDefault(KeyReconnectAttempts, conn.DefaultPolicy.MaxAttempts)
	v.SetDefault(KeyReconnectDelay, conn.DefaultPolicy.ReconnectDelay)
	v.SetDefault(KeyPollInterval, conn.DefaultPollInterval)
	v.SetDefault(KeyChunkInterval, 100*time.Millisecond)
	v.SetDefault(KeySampleRate, 16000)
	v.SetDefault(KeyChannels, 1)
	v.SetDefault(KeyDevice, "")
	v.SetDefault(KeyLogFile, "scribe.log")
	v.SetDefault(KeyHTTPPort, 8000)
	v.SetDefault(KeyTLSCert, "")
	v.SetDefault(KeyTLSKey, "")
	v.SetDefault(KeyDemo, false)
}

func Load(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.BackendURL)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("%s: %w", KeyBackendURL, err))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, fmt.Errorf("%s: scheme must be http or https, got %q", KeyBackendURL, u.Scheme))
	case u.Host == "":
		errs = append(errs, fmt.Errorf("%s: missing host", KeyBackendURL))
	}

	if c.ReconnectAttempts < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1", KeyReconnectAttempts))
	}
	if c.ReconnectDelay <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyReconnectDelay))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyPollInterval))
	}
	if c.ChunkInterval <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyChunkInterval))
	}
	if c.SampleRate == 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeySampleRate))
	}
	if c.Channels != 1 && c.Channels != 2 {
		errs = append(errs, fmt.Errorf("%s must be 1 or 2", KeyChannels))
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		errs = append(errs, fmt.Errorf("%s and %s must be set together", KeyTLSCert, KeyTLSKey))
	}

	return errors.Join(errs...)
}

func (c *Config) Policy() conn.Policy {
	return conn.Policy{
		MaxAttempts:    c.ReconnectAttempts,
		ReconnectDelay: c.ReconnectDelay,
		Fallback:       conn.Polling,
	}
}

func (c *Config) Format() audio.Format {
	return audio.Format{SampleRate: c.SampleRate, Channels: c.Channels}
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
