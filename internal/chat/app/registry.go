package app

import (
	"sync"

	errprocess "chat_sync_service/pkg/err"

	"github.com/google/uuid"
)

// Connection live client handle
type Connection interface {
	// Send queue a frame without blocking, DeliveryError when it cannot
	Send(frame []byte) error
	// Close terminate the connection with a close code
	Close(code int, reason string)
}

// RoomConn connection currently joined to a room
type RoomConn struct {
	ConnID string
	UserID string
	Conn   Connection
}

// Departure result of Unregister
type Departure struct {
	UserID      string
	Rooms       []string
	WentOffline bool
}

type registryEntry struct {
	userID string
	conn   Connection
	rooms  map[string]struct{}
}

// ConnectionRegistry process local presence, safe for concurrent use
type ConnectionRegistry struct {
	mu    sync.RWMutex
	conns map[string]*registryEntry
	users map[string]map[string]struct{}
	rooms map[string]map[string]struct{}
}

// NewConnectionRegistry create an empty registry
func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		conns: make(map[string]*registryEntry),
		users: make(map[string]map[string]struct{}),
		rooms: make(map[string]map[string]struct{}),
	}
}

// Register record conn for userID and return its connection id
func (r *ConnectionRegistry) Register(userID string, conn Connection) string {
	connID := uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[connID] = &registryEntry{userID: userID, conn: conn, rooms: make(map[string]struct{})}
	if r.users[userID] == nil {
		r.users[userID] = make(map[string]struct{})
	}
	r.users[userID][connID] = struct{}{}
	return connID
}

// Unregister drop connID and every room join it holds
func (r *ConnectionRegistry) Unregister(connID string) (Departure, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[connID]
	if !ok {
		return Departure{}, false
	}
	delete(r.conns, connID)

	dep := Departure{UserID: e.userID, Rooms: make([]string, 0, len(e.rooms))}
	for chatID := range e.rooms {
		dep.Rooms = append(dep.Rooms, chatID)
		r.removeFromRoom(chatID, connID)
	}

	delete(r.users[e.userID], connID)
	if len(r.users[e.userID]) == 0 {
		delete(r.users, e.userID)
		dep.WentOffline = true
	}
	return dep, true
}

// JoinRoom add connID to chatID
func (r *ConnectionRegistry) JoinRoom(connID, chatID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[connID]
	if !ok {
		return errprocess.NotFound("connection not registered")
	}
	e.rooms[chatID] = struct{}{}
	if r.rooms[chatID] == nil {
		r.rooms[chatID] = make(map[string]struct{})
	}
	r.rooms[chatID][connID] = struct{}{}
	return nil
}

// LeaveRoom remove connID from chatID, false when it was not joined
func (r *ConnectionRegistry) LeaveRoom(connID, chatID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[connID]
	if !ok {
		return false
	}
	if _, joined := e.rooms[chatID]; !joined {
		return false
	}
	delete(e.rooms, chatID)
	r.removeFromRoom(chatID, connID)
	return true
}

// LeaveRoomForUser remove every connection of userID from chatID
func (r *ConnectionRegistry) LeaveRoomForUser(userID, chatID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	left := make([]string, 0)
	for connID := range r.users[userID] {
		e := r.conns[connID]
		if _, joined := e.rooms[chatID]; !joined {
			continue
		}
		delete(e.rooms, chatID)
		r.removeFromRoom(chatID, connID)
		left = append(left, connID)
	}
	return left
}

func (r *ConnectionRegistry) removeFromRoom(chatID, connID string) {
	delete(r.rooms[chatID], connID)
	if len(r.rooms[chatID]) == 0 {
		delete(r.rooms, chatID)
	}
}

// ConnectionsInRoom snapshot of connections joined to chatID
func (r *ConnectionRegistry) ConnectionsInRoom(chatID string) []RoomConn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]RoomConn, 0, len(r.rooms[chatID]))
	for connID := range r.rooms[chatID] {
		e := r.conns[connID]
		out = append(out, RoomConn{ConnID: connID, UserID: e.userID, Conn: e.conn})
	}
	return out
}

// IsOnline at least one connection registered for userID
func (r *ConnectionRegistry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users[userID]) > 0
}

// InRoom connID joined chatID
func (r *ConnectionRegistry) InRoom(connID, chatID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[connID]
	if !ok {
		return false
	}
	_, joined := e.rooms[chatID]
	return joined
}

// Lookup user and handle of connID
func (r *ConnectionRegistry) Lookup(connID string) (string, Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[connID]
	if !ok {
		return "", nil, false
	}
	return e.userID, e.conn, true
}

// ConnectionCount registered connections
func (r *ConnectionRegistry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Shutdown close every connection, forget all state and return how many were closed
func (r *ConnectionRegistry) Shutdown(code int, reason string) int {
	r.mu.Lock()
	conns := make([]Connection, 0, len(r.conns))
	for _, e := range r.conns {
		conns = append(conns, e.conn)
	}
	r.conns = make(map[string]*registryEntry)
	r.users = make(map[string]map[string]struct{})
	r.rooms = make(map[string]map[string]struct{})
	r.mu.Unlock()

	for _, c := range conns {
		c.Close(code, reason)
	}
	return len(conns)
}
