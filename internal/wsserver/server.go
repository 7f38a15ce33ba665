// Package wsserver is the websocket transport of the engine. Every peer is
// one websocket connection speaking the text protocol of package protocol.
//
// Each connection runs a reader goroutine (the HTTP handler) and a writer
// goroutine draining a bounded send buffer. Lifecycle and inbound frames
// are handed to a Sink, normally the engine's event queue.
package wsserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roach88/viewsync/internal/engine"
)

var (
	// ErrNotConnected is returned by Send for unknown connections.
	ErrNotConnected = errors.New("connection not found")
	// ErrBufferFull is returned by Send when the connection cannot take more
	// data; CanSend would have reported false.
	ErrBufferFull = errors.New("send buffer full")
)

// Sink receives transport events. *engine.Engine implements it.
type Sink interface {
	Enqueue(ev engine.Event) bool
}

// Settings tune the per-connection goroutines.
type Settings struct {
	SendBuffer   int
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	PingInterval time.Duration
}

// DefaultSettings returns the settings used by serve.
func DefaultSettings() Settings {
	return Settings{
		SendBuffer:   16,
		WriteTimeout: 5 * time.Second,
		ReadTimeout:  60 * time.Second,
		PingInterval: 20 * time.Second,
	}
}

type peer struct {
	id      engine.ConnID
	ws      *websocket.Conn
	send    chan string
	stalled atomic.Bool // Send found the buffer full
	ctx     context.Context
	cancel  context.CancelFunc
}

// Server upgrades HTTP requests to peer connections and implements
// engine.Transport and engine.ConnectionCloser.
type Server struct {
	settings Settings
	upgrader websocket.Upgrader

	sinkMu sync.RWMutex
	sink   Sink

	mu     sync.Mutex
	peers  map[engine.ConnID]*peer
	nextID atomic.Uint64
	wg     sync.WaitGroup
}

// New creates a server. Events are dropped until SetSink is called.
func New(settings Settings) *Server {
	if settings.SendBuffer <= 0 {
		settings.SendBuffer = DefaultSettings().SendBuffer
	}
	return &Server{
		settings: settings,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		peers: make(map[engine.ConnID]*peer),
	}
}

// SetSink sets the receiver of transport events.
func (s *Server) SetSink(sink Sink) {
	s.sinkMu.Lock()
	defer s.sinkMu.Unlock()
	s.sink = sink
}

func (s *Server) emit(ev engine.Event) {
	s.sinkMu.RLock()
	sink := s.sink
	s.sinkMu.RUnlock()

	if sink == nil || !sink.Enqueue(ev) {
		slog.Debug("transport event dropped", "conn_id", ev.Conn, "event_type", ev.Type.String())
	}
}

// ServeHTTP upgrades the request and serves the peer until it disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &peer{
		id:     engine.ConnID(s.nextID.Add(1)),
		ws:     ws,
		send:   make(chan string, s.settings.SendBuffer),
		ctx:    ctx,
		cancel: cancel,
	}

	s.mu.Lock()
	s.peers[p.id] = p
	s.mu.Unlock()

	slog.Info("peer connected", "conn_id", p.id, "remote", r.RemoteAddr)
	s.emit(engine.Event{Type: engine.EventAttach, Conn: p.id})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.writeLoop(p)
	}()

	s.readLoop(p)

	s.mu.Lock()
	delete(s.peers, p.id)
	s.mu.Unlock()

	cancel()
	ws.Close()
	slog.Info("peer disconnected", "conn_id", p.id)
	s.emit(engine.Event{Type: engine.EventDetach, Conn: p.id})
}

func (s *Server) readLoop(p *peer) {
	defer p.cancel()

	p.ws.SetPongHandler(func(string) error {
		return p.ws.SetReadDeadline(time.Now().Add(s.settings.ReadTimeout))
	})

	for {
		p.ws.SetReadDeadline(time.Now().Add(s.settings.ReadTimeout))
		messageType, message, err := p.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("read failed", "conn_id", p.id, "error", err)
			}
			return
		}

		switch messageType {
		case websocket.TextMessage, websocket.BinaryMessage:
			if len(message) == 0 {
				continue
			}
			s.emit(engine.Event{Type: engine.EventMessage, Conn: p.id, Data: string(message)})
		}
	}
}

func (s *Server) writeLoop(p *peer) {
	defer p.cancel()

	ping := time.NewTicker(s.settings.PingInterval)
	defer ping.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return

		case message := <-p.send:
			p.ws.SetWriteDeadline(time.Now().Add(s.settings.WriteTimeout))
			if err := p.ws.WriteMessage(websocket.TextMessage, []byte(message)); err != nil {
				// a websocket write deadline cannot be recovered
				slog.Warn("write failed", "conn_id", p.id, "error", err)
				return
			}
			if len(p.send) == 0 && p.stalled.CompareAndSwap(true, false) {
				s.emit(engine.Event{Type: engine.EventWritable, Conn: p.id})
			}

		case <-ping.C:
			deadline := time.Now().Add(s.settings.WriteTimeout)
			if err := p.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				slog.Debug("ping failed", "conn_id", p.id, "error", err)
				return
			}
		}
	}
}

func (s *Server) peer(id engine.ConnID) *peer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peers[id]
}

// CanSend reports whether the connection's send buffer has room.
func (s *Server) CanSend(id engine.ConnID) bool {
	p := s.peer(id)
	if p == nil || p.ctx.Err() != nil {
		return false
	}
	if len(p.send) >= cap(p.send) {
		p.stalled.Store(true)
		return false
	}
	return true
}

// Send queues payload for the writer goroutine without blocking.
func (s *Server) Send(id engine.ConnID, payload string) error {
	p := s.peer(id)
	if p == nil || p.ctx.Err() != nil {
		return ErrNotConnected
	}
	select {
	case p.send <- payload:
		return nil
	default:
		p.stalled.Store(true)
		return ErrBufferFull
	}
}

// CloseConnections sends a close frame to every peer and stops its writer.
// The reader goroutines then report the detach.
func (s *Server) CloseConnections() {
	s.mu.Lock()
	peers := make([]*peer, 0, len(s.peers))
	for _, p := range s.peers {
		peers = append(peers, p)
	}
	s.mu.Unlock()

	for _, p := range peers {
		p.cancel()
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutdown")
		_ = p.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.settings.WriteTimeout))
		p.ws.Close()
	}
	slog.Info("connections closed", "count", len(peers))
}

// NumPeers returns the number of open connections.
func (s *Server) NumPeers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.peers)
}

// Wait blocks until every writer goroutine has exited.
func (s *Server) Wait() {
	s.wg.Wait()
}
