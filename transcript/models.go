package transcript

// Kind tags a transcript record with how it was produced.
type Kind string

const (
	Unrevised Kind = "unrevised" // raw recognizer segment
	Revised   Kind = "revised"   // interim generated output
	Voice     Kind = "voice"     // final generated output, spoken by TTS
)

func (k Kind) Known() bool {
	switch k {
	case Unrevised, Revised, Voice:
		return true
	}
	return false
}

func (k Kind) String() string {
	if !k.Known() {
		return "unknown"
	}
	return string(k)
}

// Record is one displayed unit of recognized or synthesized text.
type Record struct {
	Kind      Kind   `json:"type"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
}

// Segment is a piece of recognized speech.
type Segment struct {
	Text string `json:"text"`
}

// Message is one event from the transcription channel.
type Message struct {
	Segments  []Segment `json:"segments,omitempty"`
	LLMOutput []string  `json:"llm_output,omitempty"`
	EOS       bool      `json:"eos"`
}
