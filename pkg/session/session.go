package session

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
)

// Session is the minimal view of an HTTP session the SSO core needs:
// an identity and a concurrent attribute map.
type Session interface {
	// ID returns the stable session identifier.
	ID() string

	// Value returns the attribute stored under key, or nil.
	Value(key string) interface{}

	// SetValue stores an attribute under key.
	SetValue(key string, value interface{})

	// Remove deletes the attribute stored under key.
	Remove(key string)
}

// memorySession is the in-process Session implementation
type memorySession struct {
	id     string
	mu     sync.RWMutex
	values map[string]interface{}
}

// NewMemorySession creates a standalone in-process session. Production code
// obtains sessions through a Manager; this constructor exists for tests and
// embedding hosts that manage session lifecycle themselves.
func NewMemorySession(id string) Session {
	return &memorySession{
		id:     id,
		values: make(map[string]interface{}),
	}
}

func (s *memorySession) ID() string {
	return s.id
}

func (s *memorySession) Value(key string) interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key]
}

func (s *memorySession) SetValue(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *memorySession) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// Manager tracks live sessions by cookie. Ending a session runs the
// registered hooks so dependent state (login key registry entries) is
// released with it.
type Manager struct {
	cookieName string

	mu       sync.RWMutex
	sessions map[string]Session
	onEnd    []func(Session)
}

// NewManager creates a session manager issuing the named cookie
func NewManager(cookieName string) *Manager {
	return &Manager{
		cookieName: cookieName,
		sessions:   make(map[string]Session),
	}
}

// OnEnd registers a hook invoked when a session ends
func (m *Manager) OnEnd(fn func(Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEnd = append(m.onEnd, fn)
}

// Ensure returns the request's session, creating one and setting the
// session cookie if the request does not carry a live session.
func (m *Manager) Ensure(w http.ResponseWriter, r *http.Request) Session {
	if cookie, err := r.Cookie(m.cookieName); err == nil {
		if s, ok := m.Lookup(cookie.Value); ok {
			return s
		}
	}

	s := NewMemorySession(uuid.NewString())
	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    s.ID(),
		Path:     "/",
		HttpOnly: true,
	})
	return s
}

// Lookup returns the live session with the given id
func (m *Manager) Lookup(id string) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// End terminates the session with the given id, running the end hooks.
// It is a no-op for unknown ids.
func (m *Manager) End(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	hooks := m.onEnd
	m.mu.Unlock()

	if !ok {
		return
	}
	for _, fn := range hooks {
		fn(s)
	}
}
