package server

import (
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"node.town/scribe/audio"
	"node.town/scribe/capture"
	"node.town/scribe/refine"
	"node.town/scribe/transcript"
)

func (s *Server) handleTranscriptionSocket(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		s.handleUpgradeRequired(w, r)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("upgrade", "error", err)
		return
	}
	defer conn.Close()

	id := uuid.NewString()
	logger := s.logger.With("conn", id[:8], "channel", "transcription")
	logger.Info("open", "remote", r.RemoteAddr)
	sockets := s.metrics.sockets.WithLabelValues("transcription")
	sockets.Inc()
	defer sockets.Dec()

	var (
		demo     *demoEmitter
		received int
	)
	defer func() {
		if demo != nil {
			demo.stop()
		}
		logger.Info("closed", "audio_bytes", received)
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType == websocket.BinaryMessage {
			received += len(data)
			s.metrics.audioBytes.Add(float64(len(data)))
			continue
		}

		msg := string(data)
		logger.Info("control", "message", msg)
		s.metrics.controls.WithLabelValues(command(msg)).Inc()
		if !s.opts.Demo {
			continue
		}
		switch {
		case msg == capture.StartRecording || strings.HasPrefix(msg, capture.StartStreaming):
			if demo == nil {
				demo = s.startDemo(conn)
			}
		case msg == capture.StopRecording:
			if demo != nil {
				demo.stop()
				demo = nil
			}
		}
	}
}

func (s *Server) handleTTSSocket(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		s.handleUpgradeRequired(w, r)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("upgrade", "error", err)
		return
	}
	defer conn.Close()

	sockets := s.metrics.sockets.WithLabelValues("tts")
	sockets.Inc()
	defer sockets.Dec()

	vc := &voiceConn{conn: conn}
	s.mu.Lock()
	s.voices[vc] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.voices, vc)
		s.mu.Unlock()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

type voiceConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *Server) broadcastVoice(clip []byte) {
	s.mu.Lock()
	conns := make([]*voiceConn, 0, len(s.voices))
	for vc := range s.voices {
		conns = append(conns, vc)
	}
	s.mu.Unlock()

	for _, vc := range conns {
		vc.mu.Lock()
		err := vc.conn.WriteMessage(websocket.BinaryMessage, clip)
		vc.mu.Unlock()
		if err != nil {
			s.logger.Warn("send voice", "error", err)
			continue
		}
		s.metrics.voiceClips.Inc()
	}
}

var demoPhrases = []string{
	"testing one two three",
	"the quick brown fox jumps over the lazy dog",
	"this   backend is only a stub",
	"nothing here is really being transcribed",
}

type demoEmitter struct {
	done chan struct{}
	wg   sync.WaitGroup
}

func (d *demoEmitter) stop() {
	close(d.done)
	d.wg.Wait()
}

// startDemo emits a segment every tick, an interim revision on the next
// and a final, voiced output on the third.
func (s *Server) startDemo(conn *websocket.Conn) *demoEmitter {
	d := &demoEmitter{done: make(chan struct{})}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(s.opts.DemoInterval)
		defer ticker.Stop()

		var heard []string
		for n := 0; ; n++ {
			select {
			case <-d.done:
				return
			case <-ticker.C:
			}

			phrase := demoPhrases[n%len(demoPhrases)]
			heard = append(heard, phrase)
			msg := transcript.Message{Segments: []transcript.Segment{{Text: phrase}}}
			switch n % 3 {
			case 1:
				msg.LLMOutput = []string{refine.Clean(phrase)}
			case 2:
				msg.LLMOutput = s.refiner.Process(heard)
				msg.EOS = true
				heard = nil
			}

			if err := conn.WriteJSON(msg); err != nil {
				s.logger.Warn("demo write", "error", err)
				return
			}
			s.metrics.demoRecords.Inc()
			if msg.EOS {
				clip, err := tone(440, 300*time.Millisecond)
				if err != nil {
					s.logger.Warn("demo tone", "error", err)
					continue
				}
				s.broadcastVoice(clip)
			}
		}
	}()
	return d
}

// tone renders a sine wave as a 16 kHz mono WAV clip.
func tone(freq float64, d time.Duration) ([]byte, error) {
	format := audio.Format{SampleRate: 16000, Channels: 1}
	n := int(int64(format.SampleRate) * int64(d) / int64(time.Second))
	pcm := make([]byte, n*audio.BytesPerSample)
	for i := 0; i < n; i++ {
		v := int16(0.3 * math.MaxInt16 * math.Sin(2*math.Pi*freq*float64(i)/float64(format.SampleRate)))
		pcm[2*i] = byte(v)
		pcm[2*i+1] = byte(uint16(v) >> 8)
	}
	return audio.EncodeWAV(format, pcm)
}
