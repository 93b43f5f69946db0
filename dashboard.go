package main

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"node.town/scribe/audio"
	"node.town/scribe/capture"
	"node.town/scribe/config"
	"node.town/scribe/conn"
	"node.town/scribe/playback"
	"node.town/scribe/setup"
	"node.town/scribe/transcript"
	"node.town/scribe/ui"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Open the live transcription dashboard",
	RunE:  runDashboard,
}

func init() {
	dashboardCmd.Flags().String("device", "", "Capture device name or ID")
	dashboardCmd.Flags().Bool("pick-device", false, "Choose the capture device interactively")
	dashboardCmd.Flags().Bool("mute", false, "Do not play synthesized voice")

	viper.BindPFlag(config.KeyDevice, dashboardCmd.Flags().Lookup("device"))
}

func runDashboard(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	base, closeLog, err := openFileLogger(cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	mainLogger, connLogger, hearLogger, playLogger, _ := createLoggers(base)
	sessionID := uuid.NewString()
	mainLogger = mainLogger.With("session", sessionID[:8])

	audioCtx, err := audio.NewContext()
	if err != nil {
		return err
	}
	defer audioCtx.Close()

	device, err := chooseDevice(cmd, audioCtx, cfg.Device)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	bridge := ui.NewBridge(64)

	var sink playback.Sink = playback.DeviceSink{Audio: audioCtx}
	if mute, _ := cmd.Flags().GetBool("mute"); mute {
		sink = playback.NopSink{}
	}
	player := playback.NewPlayer(sink, bridge, playLogger)

	dispatcher := transcript.NewDispatcher(
		transcript.NewLog(),
		player,
		hearLogger,
		transcript.WithListener(bridge.Record),
		transcript.WithContext(ctx),
	)

	// The controller needs the manager as its sender; the polling hook
	// only runs after Start, by which time it is set.
	var controller *capture.Controller
	manager, err := conn.NewManager(
		conn.Config{
			BackendURL:   cfg.BackendURL,
			Policy:       cfg.Policy(),
			PollInterval: cfg.PollInterval,
			OnPolling: func(ctx context.Context) {
				controller.Interrupt(ctx, "live connection lost")
			},
		},
		dispatcher,
		bridge,
		bridge.Status,
		connLogger,
	)
	if err != nil {
		return err
	}

	controller = capture.NewController(
		audioCtx,
		capture.Config{
			Format: cfg.Format(),
			Slice:  cfg.ChunkInterval,
			Device: device,
		},
		manager,
		bridge,
		mainLogger,
	)

	mainLogger.Info("start", "backend", cfg.BackendURL, "transcription", manager.Endpoints().Transcription)
	manager.Start(ctx)

	model := ui.New(ctx, controller, bridge, manager.Snapshot())
	_, runErr := tea.NewProgram(model, tea.WithAltScreen()).Run()

	// The UI is gone; nothing reads the bridge past this point.
	bridge.Close()
	controller.Close()
	cancel()
	if err := manager.Close(); err != nil {
		mainLogger.Warn("close connections", "error", err)
	}

	sent, dropped := controller.Stats()
	mainLogger.Info("end",
		"records", dispatcher.Log().Len(),
		"chunks_sent", sent,
		"chunks_dropped", dropped,
		"voice_clips", player.Played(),
	)

	if runErr != nil {
		return fmt.Errorf("dashboard: %w", runErr)
	}
	return nil
}

func chooseDevice(cmd *cobra.Command, audioCtx audio.Context, name string) (*audio.DeviceInfo, error) {
	if pick, _ := cmd.Flags().GetBool("pick-device"); pick {
		devices, err := audioCtx.Devices()
		if err != nil {
			return nil, err
		}
		return setup.PickDevice(devices)
	}
	if name == "" {
		return nil, nil
	}

	device, err := audio.FindDevice(audioCtx, name)
	if errors.Is(err, audio.ErrNoDevice) {
		return nil, fmt.Errorf("capture device %q not found, see `scribe devices`", name)
	}
	return device, err
}
