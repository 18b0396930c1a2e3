package gateway

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Registry maps a connection to the room it participates in, and a
// stable display name to its live connection. The room mapping makes
// disconnect cleanup a single lookup; the name mapping carries presence
// for invitations independent of room membership. No entry exists for a
// connection until it joins a room or identifies itself.
type Registry struct {
	mu        sync.RWMutex
	connRoom  map[string]string
	roomConns map[string]map[string]bool
	nameConn  map[string]string
	connName  map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		connRoom:  make(map[string]string),
		roomConns: make(map[string]map[string]bool),
		nameConn:  make(map[string]string),
		connName:  make(map[string]string),
	}
}

// BindRoom records that the connection participates in the room.
func (r *Registry) BindRoom(connID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.connRoom[connID]; ok && prev != roomID {
		delete(r.roomConns[prev], connID)
		if len(r.roomConns[prev]) == 0 {
			delete(r.roomConns, prev)
		}
	}
	r.connRoom[connID] = roomID
	if r.roomConns[roomID] == nil {
		r.roomConns[roomID] = make(map[string]bool)
	}
	r.roomConns[roomID][connID] = true
}

// RoomFor returns the room the connection participates in, if any.
func (r *Registry) RoomFor(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roomID, ok := r.connRoom[connID]
	return roomID, ok
}

// UnbindRoom removes the connection's room participation.
func (r *Registry) UnbindRoom(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if roomID, ok := r.connRoom[connID]; ok {
		delete(r.connRoom, connID)
		delete(r.roomConns[roomID], connID)
		if len(r.roomConns[roomID]) == 0 {
			delete(r.roomConns, roomID)
		}
	}
}

// ConnsInRoom returns a snapshot of the connections in a room.
func (r *Registry) ConnsInRoom(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]string, 0, len(r.roomConns[roomID]))
	for connID := range r.roomConns[roomID] {
		conns = append(conns, connID)
	}
	return conns
}

// Identify binds a display name to its live connection, replacing any
// previous binding for either side.
func (r *Registry) Identify(name, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prevName, ok := r.connName[connID]; ok {
		delete(r.nameConn, prevName)
	}
	if prevConn, ok := r.nameConn[name]; ok {
		delete(r.connName, prevConn)
	}
	r.nameConn[name] = connID
	r.connName[connID] = name

	log.Debug().Str("name", name).Str("conn_id", connID).Msg("connection identified")
}

// ConnForName returns the live connection for an identified name.
func (r *Registry) ConnForName(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connID, ok := r.nameConn[name]
	return connID, ok
}

// Forget removes the connection's name binding, if any. Called on
// disconnect so both registry entries are gone regardless of how the
// departure resolved.
func (r *Registry) Forget(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name, ok := r.connName[connID]; ok {
		delete(r.connName, connID)
		delete(r.nameConn, name)
	}
}
