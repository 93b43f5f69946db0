package conn

import "sync"

// Snapshot is the combined view of both channels.
type Snapshot struct {
	Transcription Status
	Audio         Status
	Secure        bool
}

// Overall is the status shown to the user. The transcription channel
// decides it; a degraded audio channel is reported separately.
func (s Snapshot) Overall() Status {
	return s.Transcription
}

func (s Snapshot) AudioDegraded() bool {
	return s.Transcription == Connected && s.Audio != Connected
}

// Aggregator folds per-channel transitions into one Snapshot and reports
// every change, in the order the snapshots were built.
type Aggregator struct {
	transcription string
	audio         string

	// deliver spans building and reporting a snapshot.
	deliver  sync.Mutex
	mu       sync.Mutex
	snapshot Snapshot
	onChange func(Snapshot)
}

func NewAggregator(transcription, audio string, secure bool, onChange func(Snapshot)) *Aggregator {
	if onChange == nil {
		onChange = func(Snapshot) {}
	}
	return &Aggregator{
		transcription: transcription,
		audio:         audio,
		snapshot: Snapshot{
			Transcription: Connecting,
			Audio:         Connecting,
			Secure:        secure,
		},
		onChange: onChange,
	}
}

func (a *Aggregator) Observe(channel string, t Transition) {
	a.deliver.Lock()
	defer a.deliver.Unlock()

	a.mu.Lock()
	prev := a.snapshot
	switch channel {
	case a.transcription:
		a.snapshot.Transcription = t.To
	case a.audio:
		a.snapshot.Audio = t.To
	}
	cur := a.snapshot
	a.mu.Unlock()

	if cur != prev {
		a.onChange(cur)
	}
}

func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshot
}
