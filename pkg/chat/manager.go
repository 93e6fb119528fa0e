package chat

import (
	"context"
	"sync"

	"github.com/killallgit/cognilink/pkg/logger"
)

// Persister writes the whole histories value after each mutation
type Persister interface {
	SaveHistories(ctx context.Context, histories Histories) error
}

// Manager owns the in-memory histories of every avatar and the current selection
type Manager struct {
	histories Histories
	selected  string
	persister Persister
	mu        sync.RWMutex
}

// NewManager creates a manager seeded with previously stored histories. persister may be nil.
func NewManager(initial Histories, persister Persister) *Manager {
	if initial == nil {
		initial = Histories{}
	}
	return &Manager{
		histories: initial.Clone(),
		persister: persister,
	}
}

// History returns a copy of the conversation for id
func (m *Manager) History(id string) []Message {
	m.mu.RLock()
	defer m.mu.RUnlock()

	msgs, ok := m.histories[id]
	if !ok {
		return []Message{}
	}
	return CloneMessages(msgs)
}

// Histories returns a copy of every conversation
func (m *Manager) Histories() Histories {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.histories.Clone()
}

// Append adds msgs to the conversation in a single write
func (m *Manager) Append(id string, msgs ...Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.histories[id] = AddMessages(m.histories[id], msgs...)
	m.persistLocked()
}

// AppendToLast grows the trailing model message. Returns false if there was none.
func (m *Manager) AppendToLast(id, chunk string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	updated, ok := AppendToLast(m.histories[id], chunk)
	if !ok {
		return false
	}
	m.histories[id] = updated
	m.persistLocked()
	return true
}

// ReplaceLast swaps the trailing message. Returns false for an empty conversation.
func (m *Manager) ReplaceLast(id string, msg Message) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	updated, ok := ReplaceLast(m.histories[id], msg)
	if !ok {
		return false
	}
	m.histories[id] = updated
	m.persistLocked()
	return true
}

// Clear empties the conversation but keeps its slot
func (m *Manager) Clear(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.histories[id] = []Message{}
	m.persistLocked()
}

// Delete drops the conversation entirely
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.histories, id)
	if m.selected == id {
		m.selected = ""
	}
	m.persistLocked()
}

// Ensure creates an empty conversation for id if none exists
func (m *Manager) Ensure(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.histories[id]; ok {
		return
	}
	m.histories[id] = []Message{}
	m.persistLocked()
}

func (m *Manager) Select(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.selected != id {
		logger.Debug("Selected conversation changed from %q to %q", m.selected, id)
	}
	m.selected = id
}

func (m *Manager) Selected() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.selected
}

// Owns reports whether id is the conversation currently allowed to receive writes
func (m *Manager) Owns(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.selected == id
}

func (m *Manager) persistLocked() {
	if m.persister == nil {
		return
	}
	if err := m.persister.SaveHistories(context.Background(), m.histories.Clone()); err != nil {
		// In-memory state stays authoritative; the next successful write catches up
		logger.Error("Failed to persist chat histories: %v", err)
	}
}
