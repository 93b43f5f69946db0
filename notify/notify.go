package notify

import (
	"fmt"
	"sync"
	"time"
)

type Level int

const (
	Info Level = iota
	Error
)

func (l Level) String() string {
	if l == Error {
		return "error"
	}
	return "info"
}

// Notice is a one-shot message meant for the person at the keyboard.
type Notice struct {
	Level Level
	Text  string
	At    time.Time
}

func Errorf(format string, args ...any) Notice {
	return Notice{Level: Error, Text: fmt.Sprintf(format, args...), At: time.Now()}
}

func Infof(format string, args ...any) Notice {
	return Notice{Level: Info, Text: fmt.Sprintf(format, args...), At: time.Now()}
}

type Notifier interface {
	Notify(n Notice)
}

type Func func(n Notice)

func (f Func) Notify(n Notice) { f(n) }

var Discard Notifier = Func(func(Notice) {})

// Recorder keeps every notice it receives.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

func (r *Recorder) Errors() []Notice {
	var out []Notice
	for _, n := range r.Notices() {
		if n.Level == Error {
			out = append(out, n)
		}
	}
	return out
}
