package conn

import (
	"fmt"
	"net/url"
)

const (
	TranscriptionPath = "/api/transcription"
	AudioPath         = "/api/tts"
	TranscriptsPath   = "/api/transcripts"
	SendMessagePath   = "/api/send-message"
)

// Endpoints are the backend URLs derived from the page origin.
type Endpoints struct {
	Transcription string
	Audio         string
	Transcripts   string
	SendMessage   string
	// Secure reports whether the sockets use wss.
	Secure bool
}

// ResolveEndpoints derives socket and REST URLs from pageURL. Sockets use
// wss if and only if the page itself was loaded over https.
func ResolveEndpoints(pageURL string) (Endpoints, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return Endpoints{}, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Host == "" {
		return Endpoints{}, fmt.Errorf("backend url %q has no host", pageURL)
	}

	var wsScheme string
	switch u.Scheme {
	case "http":
		wsScheme = "ws"
	case "https":
		wsScheme = "wss"
	default:
		return Endpoints{}, fmt.Errorf("unsupported backend scheme %q", u.Scheme)
	}

	ws := url.URL{Scheme: wsScheme, Host: u.Host}
	page := url.URL{Scheme: u.Scheme, Host: u.Host}

	return Endpoints{
		Transcription: ws.JoinPath(TranscriptionPath).String(),
		Audio:         ws.JoinPath(AudioPath).String(),
		Transcripts:   page.JoinPath(TranscriptsPath).String(),
		SendMessage:   page.JoinPath(SendMessagePath).String(),
		Secure:        wsScheme == "wss",
	}, nil
}
