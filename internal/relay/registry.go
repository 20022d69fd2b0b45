package relay

import "sync"

// UserConnection is the identity a connection has claimed: who it is and
// which room it currently belongs to.
type UserConnection struct {
	UserName string `json:"userName"`
	Room     string `json:"room"`
}

// Registry maps connection IDs to their membership record. It is the single
// shared store behind both the chat and notification handlers, so a join
// through either one is visible to the other.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]UserConnection // connID -> membership
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{conns: map[string]UserConnection{}}
}

// Upsert inserts or overwrites the record for a connection
func (r *Registry) Upsert(connID string, u UserConnection) {
	r.mu.Lock()
	r.conns[connID] = u
	r.mu.Unlock()
}

// Lookup returns the current record, or false if the connection never joined
func (r *Registry) Lookup(connID string) (UserConnection, bool) {
	r.mu.RLock()
	u, ok := r.conns[connID]
	r.mu.RUnlock()
	return u, ok
}

// Remove drops the record. Removing an unknown ID is a no-op.
func (r *Registry) Remove(connID string) {
	r.mu.Lock()
	delete(r.conns, connID)
	r.mu.Unlock()
}

// Len returns the number of joined connections
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
