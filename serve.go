package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"node.town/scribe/config"
	"node.town/scribe/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the stub transcription backend",
	Long: `Serve the backend API the dashboard talks to. Every endpoint is a stub:
sockets accept and discard input, and the transcript list is fixed. With
--demo the transcription socket emits sample transcripts while recording.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8000, "Port to run the HTTP server on")
	serveCmd.Flags().Bool("demo", false, "Emit sample transcripts and voice clips")
	serveCmd.Flags().String("tls-cert", "", "TLS certificate file")
	serveCmd.Flags().String("tls-key", "", "TLS private key file")

	viper.BindPFlag(config.KeyHTTPPort, serveCmd.Flags().Lookup("port"))
	viper.BindPFlag(config.KeyDemo, serveCmd.Flags().Lookup("demo"))
	viper.BindPFlag(config.KeyTLSCert, serveCmd.Flags().Lookup("tls-cert"))
	viper.BindPFlag(config.KeyTLSKey, serveCmd.Flags().Lookup("tls-key"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	_, _, _, _, httpLogger := createLoggers(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(httpLogger, server.Options{Demo: cfg.Demo})
	err = server.Serve(ctx, cfg.Addr(), cfg.TLSCert, cfg.TLSKey, srv.Router(), httpLogger)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		httpLogger.Error("serve", "error", err)
		return err
	}
	return nil
}
