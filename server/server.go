package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"node.town/scribe/refine"
	"node.town/scribe/transcript"
)

type Options struct {
	// Demo makes the sockets emit sample transcripts and voice clips
	// while the client is recording.
	Demo         bool
	DemoInterval time.Duration
}

// Server is a stand-in transcription backend. It accepts everything the
// dashboard sends and does no recognition of its own.
type Server struct {
	logger   *log.Logger
	opts     Options
	upgrader websocket.Upgrader
	refiner  *refine.Refiner
	metrics  *metrics

	mu     sync.Mutex
	voices map[*voiceConn]struct{}
}

func New(logger *log.Logger, opts Options) *Server {
	if opts.DemoInterval <= 0 {
		opts.DemoInterval = 2 * time.Second
	}
	return &Server{
		logger: logger,
		opts:   opts,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		refiner: refine.New(refine.DefaultHistory),
		metrics: newMetrics(),
		voices:  make(map[*voiceConn]struct{}),
	}
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/send-message", s.handleSendMessage)
		r.Get("/transcripts", s.handleTranscripts)
		r.Get("/transcription", s.handleTranscriptionSocket)
		r.Get("/tts", s.handleTTSSocket)
		r.Get("/websocket", s.handleUpgradeRequired)
	})
	return r
}

var sampleTranscripts = []transcript.Message{
	{Segments: []transcript.Segment{{Text: "This is a sample transcription."}}},
	{LLMOutput: []string{"This is a sample revised transcription."}},
	{LLMOutput: []string{"This is a sample voice response."}, EOS: true},
}

func (s *Server) handleTranscripts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sampleTranscripts)
}

type sendMessageRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Error("send-message", "error", err)
		s.metrics.messages.WithLabelValues("error").Inc()
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "Failed to process message",
		})
		return
	}
	if req.Message == "" {
		s.metrics.messages.WithLabelValues("error").Inc()
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "Message is required",
		})
		return
	}

	s.logger.Info("send-message", "message", req.Message)
	s.metrics.messages.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Message received",
	})
}

func (s *Server) handleUpgradeRequired(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "Expected WebSocket upgrade", http.StatusUpgradeRequired)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("encode response", "error", err)
	}
}

// Serve runs handler on addr until ctx ends. TLS is used when both cert
// and key are set.
func Serve(ctx context.Context, addr, certFile, keyFile string, handler http.Handler, logger *log.Logger) error {
	if (certFile == "") != (keyFile == "") {
		return errors.New("tls needs both a certificate and a key")
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if certFile != "" {
			logger.Info("https", "url", fmt.Sprintf("https://localhost%s", addr))
			errCh <- srv.ListenAndServeTLS(certFile, keyFile)
			return
		}
		logger.Info("http", "url", fmt.Sprintf("http://localhost%s", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}
