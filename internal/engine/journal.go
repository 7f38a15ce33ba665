package engine

import (
	"context"
	"log/slog"

	"github.com/roach88/viewsync/internal/store"
)

// Journal writes never fail the engine; errors are logged.

func (e *Engine) journalConnection(id ConnID, event string) {
	if e.journal == nil {
		return
	}
	err := e.journal.WriteConnectionEvent(context.Background(), store.ConnectionEvent{
		Session: e.session,
		Seq:     int64(e.seq.Next()),
		ConnID:  uint64(id),
		Event:   event,
	})
	if err != nil {
		slog.Error("journal connection event", "conn_id", id, "event", event, "error", err)
	}
}

func (e *Engine) journalCommand(cmd *Command) {
	if e.journal == nil || cmd == nil {
		return
	}
	err := e.journal.WriteCommandEvent(context.Background(), store.CommandEvent{
		Session:   e.session,
		Seq:       int64(e.seq.Next()),
		CommandID: cmd.id,
		Name:      cmd.name,
		Arg:       cmd.arg,
		ConnID:    uint64(cmd.conn),
		State:     cmd.state.String(),
		Result:    cmd.result,
		Reason:    cmd.reason.String(),
	})
	if err != nil {
		slog.Error("journal command event", "command_id", cmd.id, "error", err)
	}
}

func (e *Engine) journalDelivery(conn *Connection) {
	if e.journal == nil {
		return
	}
	err := e.journal.WriteDeliveryEvent(context.Background(), store.DeliveryEvent{
		Session: e.session,
		Seq:     int64(e.seq.Next()),
		ConnID:  uint64(conn.id),
		Version: conn.delivered,
	})
	if err != nil {
		slog.Error("journal delivery event", "conn_id", conn.id, "error", err)
	}
}
