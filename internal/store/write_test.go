package store

import (
	"context"
	"testing"
)

func TestWriteConnectionEvent_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	events := []ConnectionEvent{
		{Session: "s1", Seq: 1, ConnID: 7, Event: ConnectionAttached},
		{Session: "s1", Seq: 4, ConnID: 7, Event: ConnectionDetached},
		{Session: "s2", Seq: 1, ConnID: 9, Event: ConnectionAttached},
	}
	for _, ev := range events {
		if err := s.WriteConnectionEvent(ctx, ev); err != nil {
			t.Fatalf("WriteConnectionEvent() failed: %v", err)
		}
	}

	got, err := s.ReadConnectionEvents(ctx, "s1")
	if err != nil {
		t.Fatalf("ReadConnectionEvents() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	if got[0] != events[0] || got[1] != events[1] {
		t.Errorf("events = %+v, want %+v", got, events[:2])
	}
}

func TestWriteConnectionEvent_DuplicateIgnored(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ev := ConnectionEvent{Session: "s1", Seq: 1, ConnID: 1, Event: ConnectionAttached}
	for i := 0; i < 2; i++ {
		if err := s.WriteConnectionEvent(ctx, ev); err != nil {
			t.Fatalf("write %d failed: %v", i, err)
		}
	}

	got, err := s.ReadConnectionEvents(ctx, "s1")
	if err != nil {
		t.Fatalf("ReadConnectionEvents() failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d events, want 1", len(got))
	}
}

func TestWriteCommandEvent_OrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// written out of order on purpose
	writes := []CommandEvent{
		{Session: "s", Seq: 3, CommandID: "1", Name: "SVG", Arg: "out.svg", ConnID: 2, State: "completed", Result: true},
		{Session: "s", Seq: 1, CommandID: "1", Name: "SVG", Arg: "out.svg", State: "queued"},
		{Session: "s", Seq: 2, CommandID: "1", Name: "SVG", Arg: "out.svg", ConnID: 2, State: "running"},
	}
	for _, ev := range writes {
		if err := s.WriteCommandEvent(ctx, ev); err != nil {
			t.Fatalf("WriteCommandEvent() failed: %v", err)
		}
	}

	got, err := s.ReadCommandEvents(ctx, "s")
	if err != nil {
		t.Fatalf("ReadCommandEvents() failed: %v", err)
	}
	want := []string{"queued", "running", "completed"}
	if len(got) != len(want) {
		t.Fatalf("got %d events, want %d", len(got), len(want))
	}
	for i, ev := range got {
		if ev.State != want[i] {
			t.Errorf("event %d state = %q, want %q", i, ev.State, want[i])
		}
	}
	if !got[2].Result || got[2].ConnID != 2 {
		t.Errorf("completed event = %+v", got[2])
	}
}

func TestWriteDeliveryEvent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.WriteDeliveryEvent(ctx, DeliveryEvent{Session: "s", Seq: 5, ConnID: 1, Version: 3}); err != nil {
		t.Fatalf("WriteDeliveryEvent() failed: %v", err)
	}

	got, err := s.ReadDeliveryEvents(ctx, "s")
	if err != nil {
		t.Fatalf("ReadDeliveryEvents() failed: %v", err)
	}
	if len(got) != 1 || got[0].Version != 3 || got[0].ConnID != 1 {
		t.Errorf("events = %+v", got)
	}
}

func TestWriteDeliveryEvent_RejectsZeroVersion(t *testing.T) {
	s := createTestStore(t)

	err := s.WriteDeliveryEvent(context.Background(), DeliveryEvent{Session: "s", Seq: 1, ConnID: 1, Version: 0})
	if err == nil {
		t.Error("expected error for version 0")
	}
}

func TestReadEvents_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	conns, err := s.ReadConnectionEvents(ctx, "missing")
	if err != nil || conns == nil {
		t.Errorf("ReadConnectionEvents() = %v, %v; want empty slice", conns, err)
	}
	cmds, err := s.ReadCommandEvents(ctx, "missing")
	if err != nil || cmds == nil {
		t.Errorf("ReadCommandEvents() = %v, %v; want empty slice", cmds, err)
	}
	dels, err := s.ReadDeliveryEvents(ctx, "missing")
	if err != nil || dels == nil {
		t.Errorf("ReadDeliveryEvents() = %v, %v; want empty slice", dels, err)
	}
}

func TestReadSessions(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_ = s.WriteConnectionEvent(ctx, ConnectionEvent{Session: "b", Seq: 1, ConnID: 1, Event: ConnectionAttached})
	_ = s.WriteConnectionEvent(ctx, ConnectionEvent{Session: "a", Seq: 1, ConnID: 1, Event: ConnectionAttached})
	_ = s.WriteCommandEvent(ctx, CommandEvent{Session: "c", Seq: 1, CommandID: "1", Name: "PNG", State: "queued"})

	got, err := s.ReadSessions(ctx)
	if err != nil {
		t.Fatalf("ReadSessions() failed: %v", err)
	}
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("sessions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sessions = %v, want %v", got, want)
		}
	}
}
