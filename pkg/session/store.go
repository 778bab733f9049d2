package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	messagebus "github.com/vardius/message-bus"

	"github.com/menta2k/meme-generator/pkg/speech"
)

// Store keeps sessions in memory keyed by ID
type Store struct {
	mu       sync.Mutex
	config   Config
	engine   speech.Engine
	bus      messagebus.MessageBus
	idleTTL  time.Duration
	now      func() time.Time
	sessions map[string]*entry
}

type entry struct {
	session  *Session
	lastSeen time.Time
}

// NewStore creates a store whose sessions share engine and bus. Sessions idle
// for longer than idleTTL are dropped by Sweep; zero keeps them forever.
func NewStore(config Config, engine speech.Engine, bus messagebus.MessageBus, idleTTL time.Duration) *Store {
	return &Store{
		config:   config,
		engine:   engine,
		bus:      bus,
		idleTTL:  idleTTL,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

// Get returns the session for id, creating a fresh one when id is unknown.
// The boolean reports whether a new session was created.
func (st *Store) Get(id string) (*Session, bool, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if e, ok := st.sessions[id]; ok && id != "" {
		e.lastSeen = st.now()
		return e.session, false, nil
	}

	newID := uuid.NewString()
	s, err := New(newID, st.config, st.engine, st.bus)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create session: %w", err)
	}
	st.sessions[newID] = &entry{session: s, lastSeen: st.now()}
	return s, true, nil
}

// Len returns the number of live sessions
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep drops idle sessions and returns how many were removed
func (st *Store) Sweep() int {
	if st.idleTTL <= 0 {
		return 0
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	cutoff := st.now().Add(-st.idleTTL)
	removed := 0
	for id, e := range st.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}
