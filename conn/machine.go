package conn

import (
	"sync"
	"time"
)

type Status int

const (
	Connecting Status = iota
	Connected
	Disconnected
	Polling
)

func (s Status) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	case Polling:
		return "polling"
	}
	return "unknown"
}

type Event int

const (
	Dial Event = iota
	Opened
	Errored
	Closed
	// Teardown is fired once by Close. It ends supervision.
	Teardown
)

func (e Event) String() string {
	switch e {
	case Dial:
		return "dial"
	case Opened:
		return "opened"
	case Errored:
		return "errored"
	case Closed:
		return "closed"
	case Teardown:
		return "teardown"
	}
	return "unknown"
}

// Action is the side effect a transition asks its owner to perform.
type Action int

const (
	NoAction Action = iota
	Reconnect
	StartPolling
	GiveUp
	NotifyError
)

// Policy bounds reconnect attempts for one channel.
type Policy struct {
	MaxAttempts    int
	ReconnectDelay time.Duration
	// Fallback is the state entered once attempts run out. Polling for
	// the transcription channel, Disconnected for channels with no
	// request/response substitute.
	Fallback Status
}

var DefaultPolicy = Policy{
	MaxAttempts:    5,
	ReconnectDelay: 3 * time.Second,
	Fallback:       Polling,
}

type Transition struct {
	Event    Event
	From     Status
	To       Status
	Action   Action
	Failures int
}

// next is the transition function. exhausted marks a channel that has
// entered its fallback or been torn down; only Teardown moves it
// afterwards.
func next(p Policy, s Status, failures int, exhausted bool, ev Event) (Status, int, bool, Action) {
	if ev == Teardown {
		return Disconnected, failures, true, NoAction
	}
	if exhausted {
		return s, failures, true, NoAction
	}

	switch ev {
	case Dial:
		return Connecting, failures, false, NoAction
	case Opened:
		return Connected, 0, false, NoAction
	case Errored:
		return Disconnected, failures, false, NotifyError
	case Closed:
		failures++
		if failures >= p.MaxAttempts {
			if p.Fallback == Polling {
				return Polling, failures, true, StartPolling
			}
			return p.Fallback, failures, true, GiveUp
		}
		return Disconnected, failures, false, Reconnect
	}
	return s, failures, false, NoAction
}

// Machine tracks one channel's connection state. The failure counter is
// scoped to the machine, so every session starts from zero.
type Machine struct {
	policy Policy

	mu        sync.Mutex
	status    Status
	failures  int
	exhausted bool
}

func NewMachine(p Policy) *Machine {
	return &Machine{policy: p, status: Connecting}
}

func (m *Machine) Fire(ev Event) Transition {
	m.mu.Lock()
	defer m.mu.Unlock()

	from := m.status
	var action Action
	m.status, m.failures, m.exhausted, action = next(m.policy, m.status, m.failures, m.exhausted, ev)
	return Transition{
		Event:    ev,
		From:     from,
		To:       m.status,
		Action:   action,
		Failures: m.failures,
	}
}

func (m *Machine) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *Machine) Failures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures
}

func (m *Machine) Exhausted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exhausted
}
