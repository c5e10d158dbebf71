package state

import "sync"

type chatLock struct {
	mu   sync.Mutex
	refs int
}

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]*Session

	locksMu sync.Mutex
	locks   map[int64]*chatLock
}

// NewMemoryStore constructs the in-memory Store.
func NewMemoryStore() Store {
	return &memoryStore{
		sessions: make(map[int64]*Session),
		locks:    make(map[int64]*chatLock),
	}
}

// Get returns a copy of the chat's session, if any.
func (m *memoryStore) Get(chatID int64) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[chatID]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// Create replaces any existing session with a fresh one in state st.
func (m *memoryStore) Create(chatID int64, st State) *Session {
	s := &Session{ChatID: chatID, State: st, Fields: make(map[string]string)}
	m.mu.Lock()
	m.sessions[chatID] = s.Clone()
	m.mu.Unlock()
	return s
}

// Update stores a copy of s.
func (m *memoryStore) Update(s *Session) {
	if s == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ChatID] = s.Clone()
}

// Clear removes the chat's session.
func (m *memoryStore) Clear(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, chatID)
}

// Active returns the number of live sessions.
func (m *memoryStore) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Lock acquires the chat's lock. Lock entries are dropped once nobody holds
// or waits on them.
func (m *memoryStore) Lock(chatID int64) func() {
	m.locksMu.Lock()
	l, ok := m.locks[chatID]
	if !ok {
		l = &chatLock{}
		m.locks[chatID] = l
	}
	l.refs++
	m.locksMu.Unlock()

	l.mu.Lock()
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()
			m.locksMu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(m.locks, chatID)
			}
			m.locksMu.Unlock()
		})
	}
}
