package store

import (
	"context"
	"fmt"
)

// Writes use ON CONFLICT(session, seq) DO NOTHING: replaying a record with
// the same key is silently ignored.

// WriteConnectionEvent appends a connection event.
func (s *Store) WriteConnectionEvent(ctx context.Context, ev ConnectionEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO connection_events (session, seq, conn_id, event)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session, seq) DO NOTHING
	`,
		ev.Session,
		ev.Seq,
		int64(ev.ConnID),
		ev.Event,
	)
	if err != nil {
		return fmt.Errorf("write connection event: %w", err)
	}
	return nil
}

// WriteCommandEvent appends a command event.
func (s *Store) WriteCommandEvent(ctx context.Context, ev CommandEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO command_events
		(session, seq, command_id, name, arg, conn_id, state, result, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session, seq) DO NOTHING
	`,
		ev.Session,
		ev.Seq,
		ev.CommandID,
		ev.Name,
		ev.Arg,
		int64(ev.ConnID),
		ev.State,
		ev.Result,
		ev.Reason,
	)
	if err != nil {
		return fmt.Errorf("write command event: %w", err)
	}
	return nil
}

// WriteDeliveryEvent appends a delivery event. Version 0 is rejected by the
// schema.
func (s *Store) WriteDeliveryEvent(ctx context.Context, ev DeliveryEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO delivery_events (session, seq, conn_id, version)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session, seq) DO NOTHING
	`,
		ev.Session,
		ev.Seq,
		int64(ev.ConnID),
		int64(ev.Version),
	)
	if err != nil {
		return fmt.Errorf("write delivery event: %w", err)
	}
	return nil
}
