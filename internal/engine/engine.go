package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/viewsync/internal/protocol"
	"github.com/roach88/viewsync/internal/store"
)

// Default timing parameters.
const (
	DefaultPollInterval   = 10 * time.Millisecond
	DefaultUpdateTimeout  = 100 * time.Second
	DefaultCommandTimeout = 100 * time.Second
)

// CanvasID is the drawable id peers use for the document itself.
const CanvasID = "canvas"

// Mode selects whether a call returns immediately or waits for completion.
type Mode int

const (
	// Async returns once the work is queued; the completion fires later.
	Async Mode = iota
	// Sync blocks in WaitFor until the outcome is known or the budget ends.
	Sync
)

// Engine synchronizes one document with every attached peer.
//
// Thread-safety model:
//   - Enqueue: safe from any goroutine
//   - everything else: owner goroutine only
type Engine struct {
	transport Transport
	producer  SnapshotProducer
	lookup    DrawableLookup
	files     FileWriter
	control   ProcessControl
	journal   Journal
	execHook  ExecHook

	sessionGen SessionIDGenerator
	session    string

	reg   *registry
	cmds  *commandQueue
	sync  *snapshotSync
	queue *eventQueue
	seq   *Clock // journal sequence

	pollInterval   time.Duration
	updateTimeout  time.Duration
	commandTimeout time.Duration
	now            func() time.Time

	nextDump string // file name for the next rendered snapshot
	closed   bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithDrawableLookup sets the collaborator answering menu queries and OBJEXEC.
func WithDrawableLookup(l DrawableLookup) Option {
	return func(e *Engine) { e.lookup = l }
}

// WithFileWriter sets where image exports, SAVE frames and JSON dumps go.
func WithFileWriter(w FileWriter) Option {
	return func(e *Engine) { e.files = w }
}

// WithProcessControl sets the receiver of QUIT and INTERRUPT.
func WithProcessControl(c ProcessControl) Option {
	return func(e *Engine) { e.control = c }
}

// WithJournal records history to j.
func WithJournal(j Journal) Option {
	return func(e *Engine) { e.journal = j }
}

// WithSessionGenerator overrides the UUIDv7 session id generator.
func WithSessionGenerator(g SessionIDGenerator) Option {
	return func(e *Engine) { e.sessionGen = g }
}

// WithPollInterval sets the sleep between synchronous-wait polls.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) { e.pollInterval = d }
}

// WithUpdateTimeout sets the budget of sync-mode DocumentChanged calls.
func WithUpdateTimeout(d time.Duration) Option {
	return func(e *Engine) { e.updateTimeout = d }
}

// WithCommandTimeout sets the budget of sync-mode DoWhenReady calls.
func WithCommandTimeout(d time.Duration) Option {
	return func(e *Engine) { e.commandTimeout = d }
}

// WithExecHook is called after each successful OBJEXEC.
func WithExecHook(h ExecHook) Option {
	return func(e *Engine) { e.execHook = h }
}

// New creates an engine sending through transport and rendering with
// producer.
func New(transport Transport, producer SnapshotProducer, opts ...Option) *Engine {
	reg := newRegistry()
	e := &Engine{
		transport:      transport,
		producer:       producer,
		control:        logControl{},
		sessionGen:     UUIDv7Generator{},
		reg:            reg,
		cmds:           newCommandQueue(NewClock()),
		sync:           newSnapshotSync(producer, reg),
		queue:          newEventQueue(),
		seq:            NewClock(),
		pollInterval:   DefaultPollInterval,
		updateTimeout:  DefaultUpdateTimeout,
		commandTimeout: DefaultCommandTimeout,
		now:            time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.pollInterval <= 0 {
		e.pollInterval = DefaultPollInterval
	}
	e.session = e.sessionGen.Generate()
	e.cmds.onEnd = e.journalCommand

	return e
}

// Enqueue submits a transport event for the owner goroutine.
// Thread-safe. Returns false once the engine is closed.
func (e *Engine) Enqueue(ev Event) bool {
	return e.queue.Enqueue(ev)
}

// Poll processes every queued event without blocking and returns how many
// were handled.
func (e *Engine) Poll() int {
	n := 0
	for {
		ev, ok := e.queue.TryDequeue()
		if !ok {
			return n
		}
		e.processEvent(ev)
		n++
	}
}

// Run processes events until ctx ends or the engine is closed.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting", "session", e.session)

	for {
		if ev, ok := e.queue.TryDequeue(); ok {
			e.processEvent(ev)
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled")
			return ctx.Err()

		case <-e.queue.Wait():
			if e.queue.Closed() && e.queue.Len() == 0 {
				slog.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// RunFor processes events for d. A non-positive d drains the queue once.
func (e *Engine) RunFor(d time.Duration) error {
	if d <= 0 {
		e.Poll()
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	err := e.Run(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (e *Engine) processEvent(ev Event) {
	switch ev.Type {
	case EventAttach:
		e.HandleAttach(ev.Conn)
	case EventDetach:
		e.HandleDetach(ev.Conn)
	case EventMessage:
		e.HandleMessage(ev.Conn, ev.Data)
	case EventWritable:
		if !e.closed {
			e.dispatch()
		}
	default:
		slog.Error("unknown event type", "event_type", ev.Type, "conn_id", ev.Conn)
	}
}

// HandleAttach registers a new peer and runs a dispatch pass.
func (e *Engine) HandleAttach(id ConnID) {
	if e.closed {
		return
	}
	if e.reg.Attach(id) == nil {
		slog.Error("duplicate attach ignored", "conn_id", id)
		return
	}

	slog.Info("peer attached", "conn_id", id, "connections", e.reg.Len())
	e.journalConnection(id, store.ConnectionAttached)
	e.dispatch()
}

// HandleDetach removes a peer, cancels the commands bound to it (all
// commands when it was the last peer) and runs a dispatch pass, which also
// cancels update waiters when no peer is left.
func (e *Engine) HandleDetach(id ConnID) {
	if !e.reg.Detach(id) {
		slog.Debug("detach of unknown connection", "conn_id", id)
		return
	}

	slog.Info("peer detached", "conn_id", id, "connections", e.reg.Len())
	e.journalConnection(id, store.ConnectionDetached)

	n := e.cmds.CancelForConnection(id, CancelConnectionLost)
	if e.reg.Len() == 0 {
		n += e.cmds.CancelAll(CancelConnectionLost)
	}
	if n > 0 {
		slog.Warn("commands cancelled after detach", "conn_id", id, "count", n)
	}

	e.dispatch()
}

// HandleMessage processes one raw inbound frame from conn.
func (e *Engine) HandleMessage(id ConnID, raw string) {
	if e.closed {
		return
	}

	msg, err := protocol.Parse(raw)
	if err != nil {
		slog.Error("unrecognized message", "conn_id", id, "error", err)
		return
	}

	switch msg.(type) {
	case protocol.ConnReady:
		e.HandleAttach(id)
		return
	case protocol.ConnClosed:
		e.HandleDetach(id)
		return
	}

	conn := e.reg.Find(id)
	if conn == nil {
		slog.Debug("message from unknown connection", "conn_id", id)
		return
	}

	switch m := msg.(type) {
	case protocol.SnapDone:
		conn.drawReady = true
		if e.sync.RecordDelivery(conn, m.Version) {
			e.journalDelivery(conn)
		}

	case protocol.Ready:
		if m.Draw {
			conn.drawReady = true
		}

	case protocol.GetMenu:
		conn.pendingQuery = m.ID

	case protocol.Reply:
		if err := e.cmds.ResolveReply(id, m.CommandID, m.Payload, e.interpretReply); err != nil {
			slog.Error("reply rejected", "conn_id", id, "error", err)
		}

	case protocol.Save:
		e.saveFile(m)

	case protocol.ObjExec:
		e.execDrawable(m)

	case protocol.Reload:
		conn.sentVersion = 0

	case protocol.Quit:
		slog.Info("quit requested by peer", "conn_id", id)
		e.control.Terminate()
		return

	case protocol.Interrupt:
		slog.Info("interrupt requested by peer", "conn_id", id)
		e.control.Interrupt()
	}

	e.dispatch()
}

// DocumentChanged publishes document version to every peer. done, if not
// nil, fires once: true when every attached peer acknowledged version,
// false when the update cannot be delivered.
//
// In Sync mode the call blocks until delivery, until every peer is gone,
// until the update timeout or until ctx ends. A timeout leaves the waiter
// registered.
func (e *Engine) DocumentChanged(ctx context.Context, version uint64, mode Mode, done func(bool)) error {
	c := NewCompletion(done)

	if e.closed {
		c.Fire(false)
		return &Error{Code: ErrCodeClosed, Message: "engine closed", Version: version}
	}
	if version == 0 {
		c.Fire(false)
		return &Error{Code: ErrCodeInvalidVersion, Message: "version 0 is not a valid target"}
	}
	if e.sync.Delivered(version) {
		c.Fire(true)
		return nil
	}
	if version < e.sync.current.Version {
		c.Fire(false)
		return &Error{
			Code:    ErrCodeInvalidVersion,
			Message: fmt.Sprintf("version older than current snapshot %d", e.sync.current.Version),
			Version: version,
		}
	}

	if _, err := e.sync.NotifyDocumentChanged(version); err != nil {
		slog.Error("snapshot rendering failed", "version", version, "error", err)
		c.Fire(false)
		return err
	}
	e.dumpSnapshot()

	e.sync.waiters.Add(version, c)
	e.dispatch()

	if mode == Async {
		return nil
	}

	st := e.WaitFor(ctx, e.updateTimeout, func(time.Duration) WaitStatus {
		return e.updateStatus(c)
	})
	if st != WaitSuccess {
		slog.Warn("document update not confirmed", "version", version, "status", st.String())
	}
	return updateError(ctx, st, version)
}

func (e *Engine) updateStatus(c *Completion) WaitStatus {
	peerGone := e.reg.Len() == 0 && e.reg.HadConnection()
	if ok, done := c.Result(); done {
		switch {
		case ok:
			return WaitSuccess
		case peerGone:
			return WaitPeerGone
		}
		return WaitFailure
	}
	if peerGone {
		return WaitPeerGone
	}
	return WaitPending
}

func updateError(ctx context.Context, st WaitStatus, version uint64) error {
	switch st {
	case WaitSuccess:
		return nil
	case WaitPeerGone:
		return &Error{Code: ErrCodePeerGone, Message: "all peers detached", Version: version}
	case WaitTimeout:
		return &Error{Code: ErrCodeTimeout, Message: "update not delivered in time", Version: version}
	case WaitCancelled:
		return &Error{Code: ErrCodeCancelled, Message: "wait cancelled", Version: version, Err: ctx.Err()}
	}
	return &Error{Code: ErrCodeUpdateFailed, Message: "update cancelled", Version: version}
}

// DoWhenReady submits command name with arg. done, if not nil, fires once
// with the command's result.
//
// The special name JSON only records arg as the file the next rendered
// snapshot is dumped to; done is not called.
//
// When the transport is a BatchLauncher the command targets a freshly
// launched batch peer, otherwise any draw-ready peer. In Sync mode the call
// blocks until the command completes, loses its connection, times out or
// ctx ends.
func (e *Engine) DoWhenReady(ctx context.Context, name, arg string, mode Mode, done func(bool)) error {
	if name == CommandJSON {
		e.nextDump = arg
		return nil
	}

	c := NewCompletion(done)
	if e.closed {
		c.Fire(false)
		return &Error{Code: ErrCodeClosed, Message: "engine closed"}
	}

	target := ConnID(0)
	if bl, ok := e.transport.(BatchLauncher); ok {
		target = bl.MakeBatch()
		if target == 0 {
			c.Fire(false)
			return &Error{Code: ErrCodeNoConnection, Message: "cannot create batch connection"}
		}
	}

	cmd := e.submit(name, arg, target, c)
	e.dispatch()

	if mode == Async {
		return nil
	}

	st := e.WaitFor(ctx, e.commandTimeout, func(time.Duration) WaitStatus {
		return commandStatus(cmd)
	})
	if st != WaitSuccess {
		slog.Error("command failed", "name", name, "arg", arg, "command_id", cmd.id, "status", st.String())
	} else {
		slog.Debug("command done", "name", name, "command_id", cmd.id)
	}
	return commandError(ctx, st, cmd)
}

func commandStatus(cmd *Command) WaitStatus {
	if cmd.state != CommandCompleted {
		return WaitPending
	}
	switch {
	case cmd.result:
		return WaitSuccess
	case cmd.reason == CancelConnectionLost:
		return WaitNoConnection
	}
	return WaitFailure
}

func commandError(ctx context.Context, st WaitStatus, cmd *Command) error {
	switch st {
	case WaitSuccess:
		return nil
	case WaitNoConnection:
		return &Error{Code: ErrCodeNoConnection, Message: "connection lost", CommandID: cmd.id, ConnID: cmd.conn}
	case WaitTimeout:
		return &Error{Code: ErrCodeTimeout, Message: "command not completed in time", CommandID: cmd.id}
	case WaitCancelled:
		return &Error{Code: ErrCodeCancelled, Message: "wait cancelled", CommandID: cmd.id, Err: ctx.Err()}
	}
	return &Error{Code: ErrCodeCommandFailed, Message: cmd.name + " failed", CommandID: cmd.id}
}

// Submit queues a command for target (0 = any draw-ready peer) and returns
// its id. Dispatch happens on the next pass.
func (e *Engine) Submit(name, arg string, target ConnID, done func(bool)) string {
	c := NewCompletion(done)
	if e.closed {
		c.Fire(false)
		return ""
	}
	return e.submit(name, arg, target, c).id
}

func (e *Engine) submit(name, arg string, target ConnID, c *Completion) *Command {
	cmd := e.cmds.Submit(name, arg, target, c)
	slog.Debug("command submitted", "command_id", cmd.id, "name", name, "target", target)
	e.journalCommand(cmd)
	return cmd
}

// AddPanel asks the peers to embed the panel served at addr. The command is
// asynchronous; the peer may still refuse it.
func (e *Engine) AddPanel(addr string) error {
	if !e.reg.HadConnection() {
		slog.Error("document not yet shown in AddPanel")
		return &Error{Code: ErrCodeNotShown, Message: "document not shown"}
	}
	if addr == "" {
		slog.Error("cannot attach panel without address")
		return fmt.Errorf("add panel: empty address")
	}

	e.Submit(CommandAddPanel+addr, "", 0, nil)
	e.dispatch()
	return nil
}

// Close cancels every command and waiter, stops accepting events and
// closes the transport connections. Idempotent.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	e.closed = true

	cmds := e.cmds.CancelAll(CancelShutdown)
	waiters := e.sync.waiters.CancelAll()
	e.sync.delivered = 0
	e.queue.Close()

	if c, ok := e.transport.(ConnectionCloser); ok {
		c.CloseConnections()
	}

	slog.Info("engine closed", "session", e.session, "commands_cancelled", cmds, "waiters_cancelled", waiters)
}

func (e *Engine) dumpSnapshot() {
	if e.nextDump == "" {
		return
	}
	name := e.nextDump
	e.nextDump = ""

	if err := e.writeFile(name, []byte(e.sync.current.Payload)); err != nil {
		slog.Error("snapshot dump failed", "file", name, "error", err)
		return
	}
	slog.Info("snapshot dumped", "file", name, "version", e.sync.current.Version)
}

func (e *Engine) saveFile(m protocol.Save) {
	if err := e.writeFile(m.Filename, m.Data); err != nil {
		slog.Error("save file from peer", "file", m.Filename, "error", err)
		return
	}
	slog.Info("saved file from peer", "file", m.Filename, "length", len(m.Data))
}

func (e *Engine) execDrawable(m protocol.ObjExec) {
	if m.Expr == "" {
		return
	}

	if d, ok := e.findDrawable(m.ID); ok {
		slog.Debug("execute on drawable", "drawable_id", m.ID, "expr", m.Expr)
		if err := d.Execute(m.Expr); err != nil {
			slog.Warn("drawable execution failed", "drawable_id", m.ID, "expr", m.Expr, "error", err)
			return
		}
		if e.execHook != nil {
			e.execHook(m.ID, m.Expr)
		}
		return
	}

	if m.ID == CanvasID {
		slog.Debug("execute for canvas itself ignored", "expr", m.Expr)
		return
	}
	slog.Warn("drawable not found", "drawable_id", m.ID)
}

// findDrawable strips the '#' specifier peers append to drawable ids.
func (e *Engine) findDrawable(id string) (Drawable, bool) {
	if e.lookup == nil {
		return nil, false
	}
	search, _, _ := strings.Cut(id, "#")
	return e.lookup.FindDrawable(search)
}

// Connections returns copies of the attached connections in attach order.
func (e *Engine) Connections() []ConnectionInfo {
	all := e.reg.All()
	out := make([]ConnectionInfo, len(all))
	for i, c := range all {
		out[i] = c.info()
	}
	return out
}

// Commands returns copies of the queued and running commands.
func (e *Engine) Commands() []CommandInfo { return e.cmds.Infos() }

// PendingWaiters returns the number of registered update waiters.
func (e *Engine) PendingWaiters() int { return e.sync.waiters.Len() }

// CurrentSnapshot returns the latest rendered snapshot.
func (e *Engine) CurrentSnapshot() Snapshot { return e.sync.current }

// DeliveredVersion returns the minimum version acknowledged by every peer.
func (e *Engine) DeliveredVersion() uint64 { return e.sync.delivered }

// Modified reports whether version differs from the delivered minimum.
func (e *Engine) Modified(version uint64) bool { return e.sync.Modified(version) }

// NumDisplays returns the number of attached peers.
func (e *Engine) NumDisplays() int { return e.reg.Len() }

// HadConnection reports whether any peer was ever attached.
func (e *Engine) HadConnection() bool { return e.reg.HadConnection() }

// Session returns the id stamped on journal records.
func (e *Engine) Session() string { return e.session }

// QueueLen returns the number of transport events not yet processed.
func (e *Engine) QueueLen() int { return e.queue.Len() }

// logControl is the default ProcessControl: it only logs.
type logControl struct{}

func (logControl) Terminate() { slog.Warn("terminate requested, no process control configured") }
func (logControl) Interrupt() { slog.Warn("interrupt requested, no process control configured") }
