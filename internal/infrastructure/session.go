package infrastructure

import (
	"sync"
	"time"
)

// ConversationSession tracks in-flight processing for one client so rapid
// consecutive texts do not trigger overlapping pipeline runs.
type ConversationSession struct {
	Phone        string
	isProcessing bool
	lastInbound  time.Time
	mu           sync.Mutex
}

// SessionManager holds conversation sessions keyed by client phone.
type SessionManager struct {
	sessions map[string]*ConversationSession
	debounce time.Duration
	mu       sync.RWMutex
}

func NewSessionManager(debounce time.Duration) *SessionManager {
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &SessionManager{
		sessions: make(map[string]*ConversationSession),
		debounce: debounce,
	}
}

// GetOrCreate returns the session for a phone, creating it on first contact.
func (sm *SessionManager) GetOrCreate(phone string) *ConversationSession {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[phone]
	if !exists {
		session = &ConversationSession{Phone: phone}
		sm.sessions[phone] = session
	}
	return session
}

// TryStart attempts to claim the session for processing. It returns false
// when a run is already in flight or the previous message arrived inside the
// debounce window; the caller should store the message and let the active
// run pick it up from history.
func (cs *ConversationSession) TryStart(debounce time.Duration) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.isProcessing {
		cs.lastInbound = time.Now()
		return false
	}
	if time.Since(cs.lastInbound) < debounce {
		cs.lastInbound = time.Now()
		return false
	}
	cs.lastInbound = time.Now()
	cs.isProcessing = true
	return true
}

// Finish releases the session after a pipeline run.
func (cs *ConversationSession) Finish() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.isProcessing = false
}

// Debounce returns the configured debounce window.
func (sm *SessionManager) Debounce() time.Duration { return sm.debounce }
