package engine

import (
	"log/slog"

	"github.com/roach88/viewsync/internal/menu"
	"github.com/roach88/viewsync/internal/protocol"
)

// dispatch gives every sendable connection at most one outbound message,
// by priority: head command, pending menu answer, newer snapshot. It then
// refreshes the delivered minimum, which resolves update waiters.
func (e *Engine) dispatch() {
	for _, conn := range e.reg.All() {
		if !e.transport.CanSend(conn.id) {
			continue
		}

		msg := e.nextMessage(conn)
		if msg == nil {
			continue
		}

		if err := e.transport.Send(conn.id, msg.Encode()); err != nil {
			slog.Warn("send failed", "conn_id", conn.id, "error", err)
		}
	}

	e.sync.Recompute()
}

func (e *Engine) nextMessage(conn *Connection) protocol.Outbound {
	if msg, ok := e.cmds.TryDispatch(conn); ok {
		slog.Debug("command sent", "conn_id", conn.id, "command_id", msg.ID, "name", msg.Name)
		e.journalCommand(e.cmds.Head())
		return msg
	}

	if conn.pendingQuery != "" {
		id := conn.pendingQuery
		conn.pendingQuery = ""
		if msg, ok := e.menuMessage(id); ok {
			return msg
		}
		return nil
	}

	if conn.sentVersion != e.sync.current.Version {
		conn.sentVersion = e.sync.current.Version
		return protocol.SnapshotMessage{
			Version: e.sync.current.Version,
			Payload: e.sync.current.Payload,
		}
	}

	return nil
}

// menuMessage builds the context menu of drawable id. Unknown drawables get
// no answer.
func (e *Engine) menuMessage(id string) (protocol.MenuMessage, bool) {
	d, ok := e.findDrawable(id)
	if !ok {
		slog.Warn("menu requested for unknown drawable", "drawable_id", id)
		return protocol.MenuMessage{}, false
	}

	items := menu.NewItems(id)
	d.PopulateMenu(items)

	body, err := items.ProduceJSON()
	if err != nil {
		slog.Error("menu encoding failed", "drawable_id", id, "error", err)
		return protocol.MenuMessage{}, false
	}
	return protocol.MenuMessage{ID: id, JSON: body}, true
}
