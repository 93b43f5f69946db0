package setup

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"node.town/scribe/audio"
	"node.town/scribe/config"
)

// Answers holds what the setup form collects.
type Answers struct {
	BackendURL        string
	Device            string
	ReconnectAttempts string
	ReconnectDelay    string
}

func (a Answers) Apply(v *viper.Viper) error {
	attempts, err := strconv.Atoi(a.ReconnectAttempts)
	if err != nil {
		return fmt.Errorf("reconnect attempts: %w", err)
	}
	delay, err := time.ParseDuration(a.ReconnectDelay)
	if err != nil {
		return fmt.Errorf("reconnect delay: %w", err)
	}

	v.Set(config.KeyBackendURL, a.BackendURL)
	v.Set(config.KeyDevice, a.Device)
	v.Set(config.KeyReconnectAttempts, attempts)
	v.Set(config.KeyReconnectDelay, delay.String())

	_, err = config.Load(v)
	return err
}

func validateURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("use an http:// or https:// URL")
	}
	return nil
}

func validateInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return errors.New("enter a whole number of at least 1")
	}
	return nil
}

func validateDuration(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return errors.New("enter a duration such as 3s")
	}
	return nil
}

func deviceOptions(devices []audio.DeviceInfo) []huh.Option[string] {
	options := []huh.Option[string]{huh.NewOption("System default", "")}
	for _, d := range devices {
		options = append(options, huh.NewOption(d.Name, d.Name))
	}
	return options
}

// RunSetup asks for the dashboard settings and writes them to path.
func RunSetup(v *viper.Viper, devices []audio.DeviceInfo, path string) error {
	log.Info("Starting Scribe setup...")

	answers := Answers{
		BackendURL:        v.GetString(config.KeyBackendURL),
		Device:            v.GetString(config.KeyDevice),
		ReconnectAttempts: strconv.Itoa(v.GetInt(config.KeyReconnectAttempts)),
		ReconnectDelay:    v.GetDuration(config.KeyReconnectDelay).String(),
	}

	fields := []huh.Field{
		huh.NewInput().
			Title("Backend URL").
			Description("Where the transcription backend is served").
			Validate(validateURL).
			Value(&answers.BackendURL),
		huh.NewInput().
			Title("Reconnect attempts before polling").
			Validate(validateInt).
			Value(&answers.ReconnectAttempts),
		huh.NewInput().
			Title("Delay between reconnect attempts").
			Validate(validateDuration).
			Value(&answers.ReconnectDelay),
	}
	if len(devices) > 0 {
		fields = append(fields, huh.NewSelect[string]().
			Title("Capture device").
			Options(deviceOptions(devices)...).
			Value(&answers.Device))
	}

	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return fmt.Errorf("setup form: %w", err)
	}

	if err := answers.Apply(v); err != nil {
		return err
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}

	log.Info("Setup completed successfully!", "path", path)
	return nil
}

// PickDevice asks which capture device to use. A nil result means the
// system default.
func PickDevice(devices []audio.DeviceInfo) (*audio.DeviceInfo, error) {
	if len(devices) == 0 {
		return nil, audio.ErrNoDevice
	}

	var selected string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Choose a capture device").
				Options(deviceOptions(devices)...).
				Value(&selected),
		),
	)
	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("form input: %w", err)
	}

	if selected == "" {
		return nil, nil
	}
	for _, d := range devices {
		if d.Name == selected {
			return &d, nil
		}
	}
	return nil, audio.ErrNoDevice
}
