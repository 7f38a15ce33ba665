package store

import (
	"context"
	"fmt"
)

// ReadSessions returns every session that recorded a connection, oldest
// first (UUIDv7 ids sort by creation time).
func (s *Store) ReadSessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT session FROM connection_events
		UNION
		SELECT DISTINCT session FROM command_events
		ORDER BY 1 COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []string{}
	for rows.Next() {
		var session string
		if err := rows.Scan(&session); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ReadConnectionEvents returns the connection events of session in seq
// order. Returns an empty slice (not nil) if there are none.
func (s *Store) ReadConnectionEvents(ctx context.Context, session string) ([]ConnectionEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session, seq, conn_id, event
		FROM connection_events
		WHERE session = ?
		ORDER BY seq ASC
	`, session)
	if err != nil {
		return nil, fmt.Errorf("query connection events: %w", err)
	}
	defer rows.Close()

	events := []ConnectionEvent{}
	for rows.Next() {
		var ev ConnectionEvent
		var conn int64
		if err := rows.Scan(&ev.Session, &ev.Seq, &conn, &ev.Event); err != nil {
			return nil, fmt.Errorf("scan connection event: %w", err)
		}
		ev.ConnID = uint64(conn)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate connection events: %w", err)
	}
	return events, nil
}

// ReadCommandEvents returns the command events of session in seq order.
func (s *Store) ReadCommandEvents(ctx context.Context, session string) ([]CommandEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session, seq, command_id, name, arg, conn_id, state, result, reason
		FROM command_events
		WHERE session = ?
		ORDER BY seq ASC
	`, session)
	if err != nil {
		return nil, fmt.Errorf("query command events: %w", err)
	}
	defer rows.Close()

	events := []CommandEvent{}
	for rows.Next() {
		var ev CommandEvent
		var conn int64
		if err := rows.Scan(
			&ev.Session, &ev.Seq, &ev.CommandID, &ev.Name, &ev.Arg,
			&conn, &ev.State, &ev.Result, &ev.Reason,
		); err != nil {
			return nil, fmt.Errorf("scan command event: %w", err)
		}
		ev.ConnID = uint64(conn)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate command events: %w", err)
	}
	return events, nil
}

// ReadDeliveryEvents returns the delivery events of session in seq order.
func (s *Store) ReadDeliveryEvents(ctx context.Context, session string) ([]DeliveryEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session, seq, conn_id, version
		FROM delivery_events
		WHERE session = ?
		ORDER BY seq ASC
	`, session)
	if err != nil {
		return nil, fmt.Errorf("query delivery events: %w", err)
	}
	defer rows.Close()

	events := []DeliveryEvent{}
	for rows.Next() {
		var ev DeliveryEvent
		var conn, version int64
		if err := rows.Scan(&ev.Session, &ev.Seq, &conn, &version); err != nil {
			return nil, fmt.Errorf("scan delivery event: %w", err)
		}
		ev.ConnID = uint64(conn)
		ev.Version = uint64(version)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate delivery events: %w", err)
	}
	return events, nil
}
