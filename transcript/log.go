package transcript

import "sync"

// Log is the append-only record of a session's transcript. Only the
// dispatcher appends; everyone else reads snapshots.
type Log struct {
	mu      sync.RWMutex
	records []Record
}

func NewLog() *Log {
	return &Log{records: []Record{}}
}

func (l *Log) append(records ...Record) {
	l.mu.Lock()
	l.records = append(l.records, records...)
	l.mu.Unlock()
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

func (l *Log) Records() []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}
