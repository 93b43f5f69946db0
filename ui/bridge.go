package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"node.town/scribe/conn"
	"node.town/scribe/notify"
	"node.town/scribe/transcript"
)

// RecordMsg is a newly appended transcript record.
type RecordMsg transcript.Record

// StatusMsg carries a connection status change.
type StatusMsg conn.Snapshot

// NoticeMsg is a user-visible notification.
type NoticeMsg notify.Notice

// Bridge carries events from the connection and capture goroutines into
// the bubbletea program. Posting never blocks once the bridge is closed.
type Bridge struct {
	events chan tea.Msg
	done   chan struct{}
	once   sync.Once
}

func NewBridge(size int) *Bridge {
	return &Bridge{
		events: make(chan tea.Msg, size),
		done:   make(chan struct{}),
	}
}

func (b *Bridge) Post(msg tea.Msg) {
	select {
	case b.events <- msg:
	case <-b.done:
	}
}

func (b *Bridge) Notify(n notify.Notice)     { b.Post(NoticeMsg(n)) }
func (b *Bridge) Record(r transcript.Record) { b.Post(RecordMsg(r)) }
func (b *Bridge) Status(s conn.Snapshot)     { b.Post(StatusMsg(s)) }

func (b *Bridge) Close() {
	b.once.Do(func() { close(b.done) })
}

func waitForEvent(b *Bridge) tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-b.events:
			return msg
		case <-b.done:
			return nil
		}
	}
}
