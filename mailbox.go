package facecam

import (
	"sync"
)

// Publisher receives the render state completed by a pipeline cycle.
type Publisher interface {
	Publish(state RenderState)
}

// Mailbox is a single slot handoff between the capture side and the render loop.
// Publishing a new state overwrites the pending one instead of queuing it,
// so the render loop always draws the most recent complete state.
type Mailbox struct {
	mu         sync.Mutex
	state      RenderState
	pending    bool
	seq        uint64
	overwrites uint64
	ready      chan struct{}
}

var _ Publisher = (*Mailbox)(nil)

// NewMailbox creates an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{
		ready: make(chan struct{}, 1),
	}
}

// Publish stores the state and wakes the render loop. It never blocks.
func (m *Mailbox) Publish(state RenderState) {
	m.mu.Lock()
	if m.pending {
		m.overwrites++
	}
	m.seq++
	state.Seq = m.seq
	m.state = state
	m.pending = true
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
}

// Ready is signaled whenever a state is waiting to be taken.
func (m *Mailbox) Ready() <-chan struct{} {
	return m.ready
}

// Take consumes the pending state. The second return value is false when there is nothing new.
func (m *Mailbox) Take() (RenderState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.pending {
		return RenderState{}, false
	}
	state := m.state
	m.state = RenderState{}
	m.pending = false

	return state, true
}

// Overwrites returns the number of states replaced before the render loop could take them.
func (m *Mailbox) Overwrites() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.overwrites
}
