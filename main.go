package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"node.town/scribe/config"
)

var (
	logger  *log.Logger
	cfgFile string
)

func init() {
	cobra.OnInitialize(initConfig)
	config.SetDefaults(viper.GetViper())

	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(setupCmd)

	rootCmd.PersistentFlags().
		StringVar(&cfgFile, "config", "", "Config file (default ./config.yaml)")
	rootCmd.PersistentFlags().
		String("backend-url", "", "Base URL of the transcription backend")
	rootCmd.PersistentFlags().Bool("debug", false, "Log at debug level")

	viper.BindPFlag(
		config.KeyBackendURL,
		rootCmd.PersistentFlags().Lookup("backend-url"),
	)
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}
	viper.SetEnvPrefix("scribe")
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Printf("Error reading config file: %s\n", err)
		}
	}

	logger = log.New(os.Stderr)
}

var rootCmd = &cobra.Command{
	Use:   "scribe",
	Short: "Scribe is a terminal dashboard for live transcription",
	Long: `Scribe connects to a transcription backend, streams microphone audio or
points the backend at an RTSP/HLS stream, and shows the transcript as it
arrives. It also ships a stub backend for local testing.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// createLoggers styles base and derives the per-concern loggers from it.
func createLoggers(base *log.Logger) (mainLogger, connLogger, hearLogger, playLogger, httpLogger *log.Logger) {
	logLevel := log.InfoLevel
	if viper.GetBool("debug") {
		logLevel = log.DebugLevel
	}

	base.SetLevel(logLevel)
	base.SetReportCaller(true)
	base.SetCallerFormatter(
		func(file string, line int, funcName string) string {
			path, err := filepath.Rel(".", file)
			if err != nil {
				path = file
			}
			return fmt.Sprintf("%s:%d", path, line)
		},
	)

	styles := log.DefaultStyles()
	styles.Prefix = styles.Prefix.MarginTop(1).
		Bold(false).Transform(func(s string) string {
		return strings.TrimSuffix(s, ":")
	})
	styles.Levels[log.InfoLevel] = styles.Levels[log.InfoLevel].
		MaxWidth(6).
		MarginRight(1).
		Bold(false)
	styles.Levels[log.ErrorLevel] = styles.Levels[log.ErrorLevel].
		MaxWidth(6).
		MarginRight(1).
		Bold(false)
	styles.Message = styles.Message.Bold(true).Width(24)
	styles.Key = styles.Key.MarginLeft(1).
		Bold(false).
		Foreground(lipgloss.Color("#ff8800"))

	base.SetStyles(styles)

	mainLogger = base.With().WithPrefix("main")
	connLogger = base.With().WithPrefix("conn")
	hearLogger = base.With().WithPrefix("hear")
	playLogger = base.With().WithPrefix("play")
	httpLogger = base.With().WithPrefix("http")

	return
}

// openFileLogger sends logs to path, for commands that own the terminal.
func openFileLogger(path string) (*log.Logger, func(), error) {
	logFile, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	fileLogger := log.NewWithOptions(logFile, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		Level:           log.InfoLevel,
	})
	return fileLogger, func() { logFile.Close() }, nil
}
