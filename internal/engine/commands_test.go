package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readyConn(id ConnID) *Connection {
	return &Connection{id: id, drawReady: true}
}

func acceptAll(*Command, string) bool { return true }

func TestCommandQueue_SubmitAssignsSequentialIDs(t *testing.T) {
	q := newCommandQueue(NewClock())

	a := q.Submit("PNG", "a.png", 0, NewCompletion(nil))
	b := q.Submit("SVG", "b.svg", 0, NewCompletion(nil))

	assert.Equal(t, "1", a.id)
	assert.Equal(t, "2", b.id)
	assert.Equal(t, CommandQueued, a.state)
	assert.Equal(t, 2, q.Len())
}

func TestCommandQueue_DispatchRequiresDrawReady(t *testing.T) {
	q := newCommandQueue(NewClock())
	q.Submit("PNG", "a.png", 0, NewCompletion(nil))

	_, ok := q.TryDispatch(&Connection{id: 1})
	assert.False(t, ok)
	assert.Equal(t, CommandQueued, q.Head().state)

	msg, ok := q.TryDispatch(readyConn(1))
	require.True(t, ok)
	assert.Equal(t, "CMD:1:PNG:a.png", msg.Encode())
	assert.Equal(t, CommandRunning, q.Head().state)
	assert.Equal(t, ConnID(1), q.Head().conn)
}

func TestCommandQueue_TargetedCommand(t *testing.T) {
	q := newCommandQueue(NewClock())
	q.Submit("PNG", "a.png", 2, NewCompletion(nil))

	_, ok := q.TryDispatch(readyConn(1))
	assert.False(t, ok, "command bound to another connection")

	_, ok = q.TryDispatch(readyConn(2))
	assert.True(t, ok)
}

func TestCommandQueue_AtMostOneRunning(t *testing.T) {
	q := newCommandQueue(NewClock())
	q.Submit("PNG", "a.png", 0, NewCompletion(nil))
	q.Submit("SVG", "b.svg", 0, NewCompletion(nil))

	_, ok := q.TryDispatch(readyConn(1))
	require.True(t, ok)
	_, ok = q.TryDispatch(readyConn(2))
	assert.False(t, ok, "head already running")
	assert.Equal(t, 1, q.Running())
}

func TestCommandQueue_ResolveReply(t *testing.T) {
	q := newCommandQueue(NewClock())
	var got []bool
	q.Submit("PNG", "a.png", 0, NewCompletion(func(ok bool) { got = append(got, ok) }))
	q.TryDispatch(readyConn(1))

	err := q.ResolveReply(1, "1", "payload", acceptAll)
	require.NoError(t, err)
	assert.Equal(t, []bool{true}, got)
	assert.Equal(t, 0, q.Len())
}

func TestCommandQueue_ReplyMismatchLeavesQueueUnchanged(t *testing.T) {
	q := newCommandQueue(NewClock())
	fired := false
	q.Submit("PNG", "a.png", 0, NewCompletion(func(bool) { fired = true }))
	q.Submit("SVG", "b.svg", 0, NewCompletion(nil))
	q.TryDispatch(readyConn(1))

	err := q.ResolveReply(1, "7", "payload", acceptAll)
	require.Error(t, err)
	assert.True(t, IsProtocolError(err))
	assert.False(t, fired)
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, CommandRunning, q.Head().state)
	assert.Equal(t, "1", q.Head().id)
}

func TestCommandQueue_ReplyErrors(t *testing.T) {
	q := newCommandQueue(NewClock())

	err := q.ResolveReply(1, "1", "", acceptAll)
	assert.True(t, IsProtocolError(err), "reply with empty queue")

	q.Submit("PNG", "a.png", 0, NewCompletion(nil))
	err = q.ResolveReply(1, "1", "", acceptAll)
	assert.True(t, IsProtocolError(err), "reply before dispatch")
	assert.Equal(t, 1, q.Len())
}

func TestCommandQueue_CancelForConnection(t *testing.T) {
	q := newCommandQueue(NewClock())
	var results []bool
	record := func(ok bool) { results = append(results, ok) }

	q.Submit("PNG", "a.png", 0, NewCompletion(record))
	q.Submit("SVG", "b.svg", 5, NewCompletion(record))
	q.Submit("JPEG", "c.jpg", 0, NewCompletion(record))
	q.TryDispatch(readyConn(1))

	n := q.CancelForConnection(1, CancelConnectionLost)
	assert.Equal(t, 1, n)
	assert.Equal(t, []bool{false}, results)
	require.Equal(t, 2, q.Len())
	assert.Equal(t, "2", q.Head().id, "FIFO order of survivors preserved")
}

func TestCommandQueue_CancelAll(t *testing.T) {
	q := newCommandQueue(NewClock())
	var ended []*Command
	q.onEnd = func(c *Command) { ended = append(ended, c) }

	a := q.Submit("PNG", "a.png", 0, NewCompletion(nil))
	q.Submit("SVG", "b.svg", 0, NewCompletion(nil))

	assert.Equal(t, 2, q.CancelAll(CancelShutdown))
	assert.Equal(t, 0, q.Len())
	assert.Len(t, ended, 2)
	assert.Equal(t, CommandCompleted, a.state)
	assert.Equal(t, CancelShutdown, a.reason)
	assert.False(t, a.result)
}

func TestCommandQueue_CallbackMaySubmit(t *testing.T) {
	q := newCommandQueue(NewClock())
	q.Submit("PNG", "a.png", 0, NewCompletion(func(bool) {
		q.Submit("SVG", "retry.svg", 0, NewCompletion(nil))
	}))

	q.CancelAll(CancelConnectionLost)
	require.Equal(t, 1, q.Len())
	assert.Equal(t, "retry.svg", q.Head().arg)
}

func TestCommandState_String(t *testing.T) {
	assert.Equal(t, "queued", CommandQueued.String())
	assert.Equal(t, "running", CommandRunning.String())
	assert.Equal(t, "completed", CommandCompleted.String())
	assert.Equal(t, "connection lost", CancelConnectionLost.String())
	assert.Equal(t, "", CancelNone.String())
}
