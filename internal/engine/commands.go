package engine

import (
	"strconv"

	"github.com/roach88/viewsync/internal/protocol"
)

// CommandState is the lifecycle state of a command.
type CommandState int

const (
	// CommandQueued waits for an eligible draw-ready peer.
	CommandQueued CommandState = iota + 1
	// CommandRunning has been sent to a peer and awaits its reply.
	CommandRunning
	// CommandCompleted has fired its completion.
	CommandCompleted
)

func (s CommandState) String() string {
	switch s {
	case CommandQueued:
		return "queued"
	case CommandRunning:
		return "running"
	case CommandCompleted:
		return "completed"
	}
	return "unknown"
}

// CancelReason records why a command completed without a reply.
type CancelReason int

const (
	// CancelNone means the command completed through a reply.
	CancelNone CancelReason = iota
	// CancelConnectionLost means its peer, or every peer, detached.
	CancelConnectionLost
	// CancelShutdown means the engine was closed.
	CancelShutdown
)

func (r CancelReason) String() string {
	switch r {
	case CancelNone:
		return ""
	case CancelConnectionLost:
		return "connection lost"
	case CancelShutdown:
		return "shutdown"
	}
	return "unknown"
}

// Command is a one-shot action executed by a single peer.
type Command struct {
	id     string
	name   string
	arg    string
	conn   ConnID // 0 until bound, unless targeted at submission
	state  CommandState
	result bool
	reason CancelReason
	done   *Completion
}

// CommandInfo is a read-only copy of a command's state.
type CommandInfo struct {
	ID     string
	Name   string
	Arg    string
	ConnID ConnID
	State  CommandState
	Result bool
	Reason CancelReason
}

func (c *Command) info() CommandInfo {
	return CommandInfo{
		ID:     c.id,
		Name:   c.name,
		Arg:    c.arg,
		ConnID: c.conn,
		State:  c.state,
		Result: c.result,
		Reason: c.reason,
	}
}

func (c *Command) complete(result bool, reason CancelReason) {
	c.state = CommandCompleted
	c.result = result
	c.reason = reason
	c.done.Fire(result)
}

// commandQueue is the FIFO of submitted commands. Only the head may run.
type commandQueue struct {
	cmds  []*Command
	ids   *Clock
	onEnd func(*Command) // observes every completion, set by the engine
}

func newCommandQueue(ids *Clock) *commandQueue {
	return &commandQueue{ids: ids}
}

// Submit appends a command. It is dispatched on the next pass.
func (q *commandQueue) Submit(name, arg string, target ConnID, done *Completion) *Command {
	cmd := &Command{
		id:    strconv.FormatUint(q.ids.Next(), 10),
		name:  name,
		arg:   arg,
		conn:  target,
		state: CommandQueued,
		done:  done,
	}
	q.cmds = append(q.cmds, cmd)
	return cmd
}

// Head returns the first command, or nil.
func (q *commandQueue) Head() *Command {
	if len(q.cmds) == 0 {
		return nil
	}
	return q.cmds[0]
}

// Len returns the number of queued and running commands.
func (q *commandQueue) Len() int { return len(q.cmds) }

// Running returns the number of commands in the Running state.
func (q *commandQueue) Running() int {
	n := 0
	for _, c := range q.cmds {
		if c.state == CommandRunning {
			n++
		}
	}
	return n
}

// TryDispatch starts the head command on conn when the head is queued,
// targets conn or any peer, and conn is draw-ready.
func (q *commandQueue) TryDispatch(conn *Connection) (protocol.CommandMessage, bool) {
	head := q.Head()
	if head == nil || head.state != CommandQueued || !conn.drawReady {
		return protocol.CommandMessage{}, false
	}
	if head.conn != 0 && head.conn != conn.id {
		return protocol.CommandMessage{}, false
	}

	head.state = CommandRunning
	head.conn = conn.id
	return protocol.CommandMessage{ID: head.id, Name: head.name, Arg: head.arg}, true
}

// CancelAll fails every command. Returns the number cancelled.
func (q *commandQueue) CancelAll(reason CancelReason) int {
	return q.cancelMatching(func(*Command) bool { return true }, reason)
}

// CancelForConnection fails every command bound to conn.
func (q *commandQueue) CancelForConnection(conn ConnID, reason CancelReason) int {
	return q.cancelMatching(func(c *Command) bool { return c.conn == conn }, reason)
}

func (q *commandQueue) cancelMatching(match func(*Command) bool, reason CancelReason) int {
	kept := q.cmds[:0]
	var cancelled []*Command
	for _, c := range q.cmds {
		if match(c) {
			cancelled = append(cancelled, c)
		} else {
			kept = append(kept, c)
		}
	}
	for i := len(kept); i < len(q.cmds); i++ {
		q.cmds[i] = nil
	}
	q.cmds = kept

	// callbacks run after the queue is consistent, they may submit again
	for _, c := range cancelled {
		c.complete(false, reason)
		q.ended(c)
	}
	return len(cancelled)
}

// ResolveReply completes the running head with the interpreted payload.
// Any mismatch is a protocol error and leaves the queue untouched.
func (q *commandQueue) ResolveReply(conn ConnID, id, payload string, interpret func(*Command, string) bool) error {
	head := q.Head()
	switch {
	case head == nil:
		return newProtocolError(conn, "reply %s without command", id)
	case head.state != CommandRunning:
		return newProtocolError(conn, "front command %s is not running when reply %s arrived", head.id, id)
	case head.id != id:
		return newProtocolError(conn, "reply %s does not match running command %s", id, head.id)
	}

	q.cmds[0] = nil
	q.cmds = q.cmds[1:]

	head.complete(interpret(head, payload), CancelNone)
	q.ended(head)
	return nil
}

func (q *commandQueue) ended(c *Command) {
	if q.onEnd != nil {
		q.onEnd(c)
	}
}

// Infos returns copies of every command in queue order.
func (q *commandQueue) Infos() []CommandInfo {
	out := make([]CommandInfo, len(q.cmds))
	for i, c := range q.cmds {
		out[i] = c.info()
	}
	return out
}
