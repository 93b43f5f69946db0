package transcript

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrEmptyPayload = errors.New("empty payload")

// Parse decodes a transcription payload. Live socket frames carry a single
// object; the polling endpoint may answer with an array of them.
func Parse(raw []byte) ([]Message, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, ErrEmptyPayload
	}

	switch trimmed[0] {
	case '[':
		var msgs []Message
		if err := json.Unmarshal(trimmed, &msgs); err != nil {
			return nil, fmt.Errorf("parse message array: %w", err)
		}
		return msgs, nil
	case '{':
		var msg Message
		if err := json.Unmarshal(trimmed, &msg); err != nil {
			return nil, fmt.Errorf("parse message: %w", err)
		}
		return []Message{msg}, nil
	default:
		return nil, fmt.Errorf("unexpected payload prefix %q", trimmed[0])
	}
}

// Records expands a message into transcript records, segments first.
func (m Message) Records(timestamp int64) []Record {
	records := make([]Record, 0, len(m.Segments)+len(m.LLMOutput))
	for _, seg := range m.Segments {
		records = append(records, Record{
			Kind:      Unrevised,
			Content:   seg.Text,
			Timestamp: timestamp,
		})
	}

	kind := Revised
	if m.EOS {
		kind = Voice
	}
	for _, out := range m.LLMOutput {
		records = append(records, Record{
			Kind:      kind,
			Content:   out,
			Timestamp: timestamp,
		})
	}
	return records
}
