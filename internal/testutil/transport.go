package testutil

import (
	"errors"
	"sync"

	"github.com/roach88/viewsync/internal/engine"
)

// Frame is one outbound frame captured by RecordingTransport.
type Frame struct {
	Conn    engine.ConnID
	Payload string
}

// ErrSendFailed is returned by Send for connections marked with FailSends.
var ErrSendFailed = errors.New("send failed")

// RecordingTransport is an engine.Transport that records every frame.
// Every connection can send unless blocked.
//
// Thread-safety: All methods are safe for concurrent use.
type RecordingTransport struct {
	mu      sync.Mutex
	frames  []Frame
	blocked map[engine.ConnID]bool
	failing map[engine.ConnID]bool
	closes  int
}

// NewRecordingTransport creates an empty transport.
func NewRecordingTransport() *RecordingTransport {
	return &RecordingTransport{
		blocked: make(map[engine.ConnID]bool),
		failing: make(map[engine.ConnID]bool),
	}
}

// CanSend reports whether conn is not blocked.
func (t *RecordingTransport) CanSend(conn engine.ConnID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.blocked[conn]
}

// Send records the frame.
func (t *RecordingTransport) Send(conn engine.ConnID, payload string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failing[conn] {
		return ErrSendFailed
	}
	t.frames = append(t.frames, Frame{Conn: conn, Payload: payload})
	return nil
}

// CloseConnections counts engine shutdowns.
func (t *RecordingTransport) CloseConnections() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closes++
}

// Block makes CanSend false for conn, as if its send buffer were full.
func (t *RecordingTransport) Block(conn engine.ConnID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.blocked[conn] = true
}

// Unblock reverses Block.
func (t *RecordingTransport) Unblock(conn engine.ConnID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.blocked, conn)
}

// FailSends makes Send return ErrSendFailed for conn.
func (t *RecordingTransport) FailSends(conn engine.ConnID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failing[conn] = true
}

// Frames returns a copy of every recorded frame.
func (t *RecordingTransport) Frames() []Frame {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Frame, len(t.frames))
	copy(out, t.frames)
	return out
}

// SentTo returns the payloads recorded for conn, in order.
func (t *RecordingTransport) SentTo(conn engine.ConnID) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []string
	for _, f := range t.frames {
		if f.Conn == conn {
			out = append(out, f.Payload)
		}
	}
	return out
}

// Last returns the most recent payload sent to conn, or "".
func (t *RecordingTransport) Last(conn engine.ConnID) string {
	sent := t.SentTo(conn)
	if len(sent) == 0 {
		return ""
	}
	return sent[len(sent)-1]
}

// Take returns and clears the recorded frames.
func (t *RecordingTransport) Take() []Frame {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.frames
	t.frames = nil
	return out
}

// Closes returns how many times CloseConnections was called.
func (t *RecordingTransport) Closes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closes
}

// BatchTransport adds engine.BatchLauncher to RecordingTransport. MakeBatch
// returns Next and, when Next is not 0, increments it.
type BatchTransport struct {
	*RecordingTransport
	Next     engine.ConnID
	Launched []engine.ConnID
}

// MakeBatch launches a pretend batch peer.
func (t *BatchTransport) MakeBatch() engine.ConnID {
	id := t.Next
	if id != 0 {
		t.Launched = append(t.Launched, id)
		t.Next++
	}
	return id
}
