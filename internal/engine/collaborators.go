package engine

import (
	"context"

	"github.com/roach88/viewsync/internal/menu"
	"github.com/roach88/viewsync/internal/store"
)

// ConnID identifies one attached peer. Zero is reserved for "any peer".
type ConnID uint64

// Transport delivers outbound frames to peers. The engine never blocks on
// it: CanSend reports whether Send would be accepted right now.
type Transport interface {
	CanSend(conn ConnID) bool
	Send(conn ConnID, payload string) error
}

// ConnectionCloser is implemented by transports that can drop every peer
// when the engine is closed.
type ConnectionCloser interface {
	CloseConnections()
}

// BatchLauncher is implemented by transports that can start a dedicated
// headless peer for command execution. MakeBatch returns 0 on failure.
type BatchLauncher interface {
	MakeBatch() ConnID
}

// SnapshotProducer renders the current document into an immutable payload.
type SnapshotProducer interface {
	RenderSnapshot() (string, error)
}

// Drawable is one addressable object of the document.
type Drawable interface {
	PopulateMenu(items *menu.Items)
	Execute(expr string) error
}

// DrawableLookup finds drawables by id for menu queries and OBJEXEC.
type DrawableLookup interface {
	FindDrawable(id string) (Drawable, bool)
}

// FileWriter persists files produced by peers (image exports, SAVE frames,
// JSON dumps).
type FileWriter interface {
	WriteFile(name string, data []byte) error
}

// ProcessControl receives the QUIT and INTERRUPT signals sent by peers.
type ProcessControl interface {
	Terminate()
	Interrupt()
}

// Journal records connection, command and delivery history.
// Implemented by *store.Store.
type Journal interface {
	WriteConnectionEvent(ctx context.Context, ev store.ConnectionEvent) error
	WriteCommandEvent(ctx context.Context, ev store.CommandEvent) error
	WriteDeliveryEvent(ctx context.Context, ev store.DeliveryEvent) error
}

// ExecHook is told about every drawable expression executed on behalf of a
// peer, typically so the owner can publish the resulting document change.
type ExecHook func(id, expr string)
