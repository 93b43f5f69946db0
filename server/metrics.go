package server

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"node.town/scribe/capture"
)

type metrics struct {
	registry    *prometheus.Registry
	sockets     *prometheus.GaugeVec
	audioBytes  prometheus.Counter
	controls    *prometheus.CounterVec
	messages    *prometheus.CounterVec
	voiceClips  prometheus.Counter
	demoRecords prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		sockets: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scribe_stub_open_sockets",
			Help: "Open WebSocket connections by channel.",
		}, []string{"channel"}),
		audioBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scribe_stub_audio_bytes_total",
			Help: "Binary audio bytes received on the transcription socket.",
		}),
		controls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_stub_control_messages_total",
			Help: "Control strings received, by command.",
		}, []string{"command"}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_stub_send_message_total",
			Help: "send-message requests, by result.",
		}, []string{"result"}),
		voiceClips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scribe_stub_voice_clips_total",
			Help: "Voice clips written to tts sockets in demo mode.",
		}),
		demoRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scribe_stub_demo_events_total",
			Help: "Transcription events emitted in demo mode.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		m.sockets,
		m.audioBytes,
		m.controls,
		m.messages,
		m.voiceClips,
		m.demoRecords,
	)
	return m
}

// command maps a control string to a bounded label value.
func command(msg string) string {
	switch {
	case msg == capture.StartRecording:
		return "start_recording"
	case msg == capture.StopRecording:
		return "stop_recording"
	case strings.HasPrefix(msg, capture.StartStreaming):
		return "start_streaming"
	}
	return "other"
}
