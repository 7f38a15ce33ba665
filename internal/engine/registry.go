package engine

// Connection is the engine's view of one attached peer. Only the registry
// and the dispatcher touch it; callers get ConnectionInfo copies.
type Connection struct {
	id           ConnID
	drawReady    bool   // peer finished its first drawing
	pendingQuery string // drawable id of an unanswered GETMENU
	sentVersion  uint64 // last snapshot version pushed
	delivered    uint64 // last snapshot version acknowledged, never decreases
}

// ConnectionInfo is a read-only copy of a connection's state.
type ConnectionInfo struct {
	ID               ConnID
	DrawReady        bool
	PendingQuery     string
	SentVersion      uint64
	DeliveredVersion uint64
}

func (c *Connection) info() ConnectionInfo {
	return ConnectionInfo{
		ID:               c.id,
		DrawReady:        c.drawReady,
		PendingQuery:     c.pendingQuery,
		SentVersion:      c.sentVersion,
		DeliveredVersion: c.delivered,
	}
}

// recordDelivery applies a peer acknowledgement. Stale or duplicate
// acknowledgements leave the previous value in place.
func (c *Connection) recordDelivery(version uint64) bool {
	if version <= c.delivered {
		return false
	}
	c.delivered = version
	return true
}

// registry tracks attached peers in attach order.
type registry struct {
	conns []*Connection
	had   bool // sticky: a peer was attached at least once
}

func newRegistry() *registry {
	return &registry{}
}

// Attach appends a fresh connection. Returns nil if id is already attached.
func (r *registry) Attach(id ConnID) *Connection {
	if r.Find(id) != nil {
		return nil
	}
	c := &Connection{id: id}
	r.conns = append(r.conns, c)
	r.had = true
	return c
}

// Detach removes the connection. Returns false if it was not attached.
func (r *registry) Detach(id ConnID) bool {
	for i, c := range r.conns {
		if c.id == id {
			copy(r.conns[i:], r.conns[i+1:])
			r.conns[len(r.conns)-1] = nil
			r.conns = r.conns[:len(r.conns)-1]
			return true
		}
	}
	return false
}

// Find returns the connection with the given id, or nil.
func (r *registry) Find(id ConnID) *Connection {
	for _, c := range r.conns {
		if c.id == id {
			return c
		}
	}
	return nil
}

// All returns the connections in attach order. The slice is a copy; the
// connections are not.
func (r *registry) All() []*Connection {
	out := make([]*Connection, len(r.conns))
	copy(out, r.conns)
	return out
}

// Len returns the number of attached connections.
func (r *registry) Len() int { return len(r.conns) }

// HadConnection reports whether any peer was ever attached.
func (r *registry) HadConnection() bool { return r.had }

// MinDelivered returns the smallest delivered version, and false when there
// are no connections.
func (r *registry) MinDelivered() (uint64, bool) {
	if len(r.conns) == 0 {
		return 0, false
	}
	lowest := r.conns[0].delivered
	for _, c := range r.conns[1:] {
		if c.delivered < lowest {
			lowest = c.delivered
		}
	}
	return lowest, true
}
