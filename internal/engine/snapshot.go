package engine

import (
	"fmt"
	"log/slog"
)

// Snapshot is the latest rendered document. It is replaced wholesale.
type Snapshot struct {
	Version uint64
	Payload string
}

// snapshotSync tracks the current snapshot and the minimum version every
// attached peer has acknowledged.
type snapshotSync struct {
	producer  SnapshotProducer
	reg       *registry
	waiters   updateWaiters
	current   Snapshot
	delivered uint64 // minimum delivered over attached peers, 0 without peers
}

func newSnapshotSync(producer SnapshotProducer, reg *registry) *snapshotSync {
	return &snapshotSync{producer: producer, reg: reg}
}

// Delivered reports whether version already reached every attached peer.
func (s *snapshotSync) Delivered(version uint64) bool {
	return version != 0 && version <= s.delivered
}

// NotifyDocumentChanged renders and stores a new snapshot for version.
// Returns false without rendering when version was already delivered.
func (s *snapshotSync) NotifyDocumentChanged(version uint64) (bool, error) {
	if s.Delivered(version) {
		return false, nil
	}

	payload, err := s.producer.RenderSnapshot()
	if err != nil {
		return false, &Error{
			Code:    ErrCodeRender,
			Message: fmt.Sprintf("render snapshot: %v", err),
			Version: version,
		}
	}

	s.current = Snapshot{Version: version, Payload: payload}
	return true, nil
}

// RecordDelivery applies an acknowledgement from conn. Returns true when
// the connection's delivered version advanced.
func (s *snapshotSync) RecordDelivery(conn *Connection, version uint64) bool {
	if !conn.recordDelivery(version) {
		slog.Debug("stale snapshot acknowledgement",
			"conn_id", conn.id,
			"version", version,
			"delivered", conn.delivered,
		)
		return false
	}
	return true
}

// Recompute refreshes the delivered minimum and resolves waiters. Without
// peers every waiter fails.
func (s *snapshotSync) Recompute() {
	lowest, ok := s.reg.MinDelivered()
	if !ok {
		s.delivered = 0
		if n := s.waiters.CancelAll(); n > 0 {
			slog.Warn("no peers attached, update waiters cancelled", "count", n)
		}
		return
	}

	s.delivered = lowest
	if n := s.waiters.FireUpTo(lowest); n > 0 {
		slog.Debug("update waiters fired", "count", n, "delivered", lowest)
	}
}

// Modified reports whether version differs from the delivered minimum.
func (s *snapshotSync) Modified(version uint64) bool {
	return s.delivered != version
}
