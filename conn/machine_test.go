package conn

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPolicy = Policy{MaxAttempts: 5, ReconnectDelay: time.Millisecond, Fallback: Polling}

func TestMachineEntersPollingAfterFiveFailures(t *testing.T) {
	m := NewMachine(testPolicy)
	assert.Equal(t, Connecting, m.Status())

	for i := 1; i <= 4; i++ {
		m.Fire(Dial)
		m.Fire(Errored)
		tr := m.Fire(Closed)
		assert.Equal(t, Disconnected, tr.To, "failure %d", i)
		assert.Equal(t, Reconnect, tr.Action, "failure %d", i)
		assert.Equal(t, i, tr.Failures)
	}

	m.Fire(Dial)
	tr := m.Fire(Closed)
	assert.Equal(t, Polling, tr.To)
	assert.Equal(t, StartPolling, tr.Action)
	assert.True(t, m.Exhausted())

	// Polling is permanent for the session.
	for _, ev := range []Event{Dial, Opened, Errored, Closed} {
		tr := m.Fire(ev)
		assert.Equal(t, Polling, tr.To, ev.String())
		assert.Equal(t, NoAction, tr.Action, ev.String())
	}
}

func TestMachineOpenResetsFailures(t *testing.T) {
	m := NewMachine(testPolicy)
	for i := 0; i < 4; i++ {
		m.Fire(Closed)
	}
	assert.Equal(t, 4, m.Failures())

	tr := m.Fire(Opened)
	assert.Equal(t, Connected, tr.To)
	assert.Equal(t, 0, tr.Failures)

	for i := 0; i < 4; i++ {
		assert.Equal(t, Reconnect, m.Fire(Closed).Action)
	}
	assert.Equal(t, Disconnected, m.Status())
}

func TestMachineErrorNotifiesWithoutCounting(t *testing.T) {
	m := NewMachine(testPolicy)
	m.Fire(Opened)

	tr := m.Fire(Errored)
	assert.Equal(t, Connected, tr.From)
	assert.Equal(t, Disconnected, tr.To)
	assert.Equal(t, NotifyError, tr.Action)
	assert.Equal(t, 0, tr.Failures)
}

func TestMachineWithoutPollingFallbackGivesUp(t *testing.T) {
	p := testPolicy
	p.Fallback = Disconnected
	m := NewMachine(p)

	var last Transition
	for i := 0; i < 5; i++ {
		last = m.Fire(Closed)
	}
	assert.Equal(t, Disconnected, last.To)
	assert.Equal(t, GiveUp, last.Action)
	assert.Equal(t, NoAction, m.Fire(Closed).Action)
}

func TestMachineTeardownEndsSupervision(t *testing.T) {
	m := NewMachine(testPolicy)
	m.Fire(Opened)

	tr := m.Fire(Teardown)
	assert.Equal(t, Connected, tr.From)
	assert.Equal(t, Disconnected, tr.To)
	assert.Equal(t, NoAction, tr.Action)
	assert.True(t, m.Exhausted())

	for _, ev := range []Event{Dial, Opened, Errored, Closed} {
		tr := m.Fire(ev)
		assert.Equal(t, Disconnected, tr.To, ev.String())
		assert.Equal(t, NoAction, tr.Action, ev.String())
	}
}

func TestMachineTeardownLeavesPolling(t *testing.T) {
	m := NewMachine(testPolicy)
	for i := 0; i < testPolicy.MaxAttempts; i++ {
		m.Fire(Closed)
	}
	require.Equal(t, Polling, m.Status())

	assert.Equal(t, Disconnected, m.Fire(Teardown).To)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "polling", Polling.String())
	assert.Equal(t, "unknown", Status(42).String())
	assert.Equal(t, "teardown", Teardown.String())
}
