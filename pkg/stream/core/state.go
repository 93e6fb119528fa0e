package core

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// State represents where a conversation's reconciliation currently is
type State int

const (
	StateIdle State = iota
	StateAwaitingFirstFragment
	StateStreaming
	StateFinalizing
)

// ErrBusy is returned when a conversation already has a reconciliation in flight
var ErrBusy = errors.New("conversation is already streaming")

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingFirstFragment:
		return "awaiting_first_fragment"
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}

// allowed lists legal transitions. Errors may jump to Finalizing from any active state.
var allowed = map[State][]State{
	StateIdle:                  {StateAwaitingFirstFragment},
	StateAwaitingFirstFragment: {StateStreaming, StateFinalizing},
	StateStreaming:             {StateStreaming, StateFinalizing},
	StateFinalizing:            {StateIdle},
}

func canTransition(from, to State) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Event represents a state change for one conversation
type Event struct {
	ConversationID string
	From           State
	To             State
	Timestamp      time.Time
}

// Tracker tracks the reconciliation state of every conversation
type Tracker struct {
	states   map[string]*StreamInfo
	listener func(Event)
	mu       sync.RWMutex
}

// StreamInfo holds information about an active reconciliation
type StreamInfo struct {
	ConversationID string
	State          State
	StartTime      time.Time
	Flushes        int
}

// NewTracker creates a new state tracker
func NewTracker() *Tracker {
	return &Tracker{
		states: make(map[string]*StreamInfo),
	}
}

// OnTransition registers a listener called synchronously for every state change
func (t *Tracker) OnTransition(fn func(Event)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listener = fn
}

// Begin claims the conversation and moves it to AwaitingFirstFragment.
// It fails with ErrBusy if another reconciliation holds it.
func (t *Tracker) Begin(conversationID string) error {
	return t.begin(conversationID, false)
}

// BeginExclusive is Begin that also fails with ErrBusy while any other conversation
// is active, keeping at most one reconciliation in flight.
func (t *Tracker) BeginExclusive(conversationID string) error {
	return t.begin(conversationID, true)
}

func (t *Tracker) begin(conversationID string, exclusive bool) error {
	t.mu.Lock()
	if _, active := t.states[conversationID]; active {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrBusy, conversationID)
	}
	if exclusive && len(t.states) > 0 {
		holder := t.holder()
		t.mu.Unlock()
		return fmt.Errorf("%w: %s holds the stream", ErrBusy, holder)
	}
	t.states[conversationID] = &StreamInfo{
		ConversationID: conversationID,
		State:          StateAwaitingFirstFragment,
		StartTime:      time.Now(),
	}
	listener := t.listener
	t.mu.Unlock()

	notify(listener, conversationID, StateIdle, StateAwaitingFirstFragment)
	return nil
}

// holder returns the earliest started active conversation. Callers hold mu.
func (t *Tracker) holder() string {
	var first *StreamInfo
	for _, info := range t.states {
		if first == nil || info.StartTime.Before(first.StartTime) {
			first = info
		}
	}
	if first == nil {
		return ""
	}
	return first.ConversationID
}

// Transition moves an active conversation to state
func (t *Tracker) Transition(conversationID string, state State) error {
	t.mu.Lock()
	info, exists := t.states[conversationID]
	if !exists {
		t.mu.Unlock()
		return fmt.Errorf("conversation %s is not active", conversationID)
	}
	from := info.State
	if !canTransition(from, state) {
		t.mu.Unlock()
		return fmt.Errorf("illegal transition %s -> %s for %s", from, state, conversationID)
	}
	info.State = state
	listener := t.listener
	t.mu.Unlock()

	if from != state {
		notify(listener, conversationID, from, state)
	}
	return nil
}

// RecordFlush counts a flush against the active conversation
func (t *Tracker) RecordFlush(conversationID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if info, exists := t.states[conversationID]; exists {
		info.Flushes++
	}
}

// End releases the conversation back to Idle
func (t *Tracker) End(conversationID string) {
	t.mu.Lock()
	info, exists := t.states[conversationID]
	if !exists {
		t.mu.Unlock()
		return
	}
	from := info.State
	delete(t.states, conversationID)
	listener := t.listener
	t.mu.Unlock()

	notify(listener, conversationID, from, StateIdle)
}

// GetState returns the current state; inactive conversations are Idle
func (t *Tracker) GetState(conversationID string) State {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if info, exists := t.states[conversationID]; exists {
		return info.State
	}
	return StateIdle
}

// GetStreamInfo returns a copy of the active reconciliation's info
func (t *Tracker) GetStreamInfo(conversationID string) (StreamInfo, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	info, exists := t.states[conversationID]
	if !exists {
		return StreamInfo{}, false
	}
	return *info, true
}

// IsActive reports whether the conversation is streaming
func (t *Tracker) IsActive(conversationID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, exists := t.states[conversationID]
	return exists
}

// AnyActive reports whether any conversation is streaming
func (t *Tracker) AnyActive() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.states) > 0
}

func notify(listener func(Event), id string, from, to State) {
	if listener == nil {
		return
	}
	listener(Event{ConversationID: id, From: from, To: to, Timestamp: time.Now()})
}
