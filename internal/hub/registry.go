package hub

import "sync"

// Conn is one live push channel. The ws package provides the real
// implementation; tests inject fakes.
type Conn interface {
	// Handle uniquely identifies this socket within the process.
	Handle() string
	// Open reports whether the connection can still accept frames.
	Open() bool
	// Push enqueues a frame for delivery. Returns false if the frame was
	// dropped (closed connection or full send buffer).
	Push(msg []byte) bool
}

// Registry maps user ids to their live connections. Rebuilt from scratch on
// every process start; nothing here is persisted.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]map[string]Conn // userID -> handle -> conn
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]map[string]Conn)}
}

// Register adds a connection for a user. Registering the same handle twice
// is a no-op.
func (r *Registry) Register(userID string, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[userID]
	if !ok {
		set = make(map[string]Conn)
		r.conns[userID] = set
	}
	if _, exists := set[c.Handle()]; exists {
		return
	}
	set[c.Handle()] = c
}

// Unregister removes a connection and prunes the user entry when it was the
// last one. Returns the number of connections the user still has.
func (r *Registry) Unregister(userID string, c Conn) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[userID]
	if !ok {
		return 0
	}
	delete(set, c.Handle())
	if len(set) == 0 {
		delete(r.conns, userID)
		return 0
	}
	return len(set)
}

// Fanout delivers msg to every open connection the user currently has.
// Best effort: closed or saturated connections are skipped, zero connections
// means the frame is simply dropped. Returns the number of deliveries.
func (r *Registry) Fanout(userID string, msg []byte) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var sent int
	for _, c := range r.conns[userID] {
		if !c.Open() {
			continue
		}
		if c.Push(msg) {
			sent++
		}
	}
	return sent
}

// Connections reports how many live connections a user has.
func (r *Registry) Connections(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userID])
}

// Sessions reports the total live connection count across all users.
func (r *Registry) Sessions() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int
	for _, set := range r.conns {
		n += len(set)
	}
	return n
}
