package cryptobox

import (
	"fmt"
	"sync"
)

// Box owns the encryption sessions of one sending client. Sessions live in
// memory for the duration of a broadcast attempt and are created lazily from
// one-time prekeys.
type Box struct {
	identity *IdentityKeyPair

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewBox creates a Box for the given sender identity.
func NewBox(identity *IdentityKeyPair) *Box {
	return &Box{
		identity: identity,
		sessions: make(map[string]*Session),
	}
}

// Identity returns the sender identity key pair backing this box.
func (b *Box) Identity() *IdentityKeyPair { return b.identity }

// GetOrCreate returns the session for sessionID, establishing it from
// preKeyBundle on first use. Subsequent calls for the same ID ignore the
// bundle and return the existing session.
func (b *Box) GetOrCreate(sessionID string, preKeyBundle []byte) (*Session, error) {
	b.mu.Lock()
	sess, ok := b.sessions[sessionID]
	b.mu.Unlock()
	if ok {
		return sess, nil
	}

	sess, err := newSession(b.identity, preKeyBundle)
	if err != nil {
		return nil, fmt.Errorf("cryptobox: create session %q: %w", sessionID, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	// Another goroutine may have won the race; keep the first session so the
	// chain state stays consistent.
	if existing, ok := b.sessions[sessionID]; ok {
		return existing, nil
	}
	b.sessions[sessionID] = sess
	return sess, nil
}

// HasSession reports whether a session exists for the given ID.
func (b *Box) HasSession(sessionID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.sessions[sessionID]
	return ok
}

// DeleteSession removes the session for the given ID, if any. The next
// GetOrCreate for that ID establishes a fresh session.
func (b *Box) DeleteSession(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, sessionID)
}
