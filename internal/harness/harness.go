package harness

import (
	"context"
	"fmt"
	"strconv"

	"github.com/roach88/viewsync/internal/document"
	"github.com/roach88/viewsync/internal/engine"
	"github.com/roach88/viewsync/internal/testutil"
)

// DefaultSession is the session id used when a scenario names none.
const DefaultSession = "scenario"

// Run executes a scenario against a fresh engine and returns the trace,
// the final state and every failed expectation.
//
// Runs are deterministic: the engine is driven from this goroutine only,
// the session id is fixed and versions come from a resettable counter.
// Replies attached to update and command steps are queued before the call,
// so a synchronous wait consumes them in order.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	h, err := newRunner(scenario)
	if err != nil {
		return nil, err
	}

	for i, step := range scenario.Steps {
		if err := h.execute(ctx, i, step); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	h.captureState()

	for _, a := range scenario.Assertions {
		if err := evaluateAssertion(h.result, a); err != nil {
			h.result.AddError(err.Error())
		}
	}
	return h.result, nil
}

// runner holds the engine and fakes for one scenario run.
type runner struct {
	scenario *Scenario
	result   *Result
	seq      *engine.Clock
	versions *testutil.VersionCounter
	files    *testutil.MemoryFiles
	control  *testutil.Control
	tr       *traceTransport
	eng      *engine.Engine
}

func newRunner(s *Scenario) (*runner, error) {
	h := &runner{
		scenario: s,
		result:   NewResult(),
		seq:      engine.NewClock(),
		versions: testutil.NewVersionCounter(),
		files:    testutil.NewMemoryFiles(),
		control:  &testutil.Control{},
	}

	session := s.Session
	if session == "" {
		session = DefaultSession
	}

	opts := []engine.Option{
		engine.WithSessionGenerator(engine.NewFixedGenerator(session)),
		engine.WithFileWriter(h.files),
		engine.WithProcessControl(h.control),
	}
	if s.UpdateTimeout > 0 {
		opts = append(opts, engine.WithUpdateTimeout(s.UpdateTimeout))
	}
	if s.CommandTimeout > 0 {
		opts = append(opts, engine.WithCommandTimeout(s.CommandTimeout))
	}

	var producer engine.SnapshotProducer = &testutil.Producer{}
	var doc *document.Document
	if s.Document != "" {
		d, err := document.Load(s.Document)
		if err != nil {
			return nil, fmt.Errorf("load document: %w", err)
		}
		doc = d
		producer = doc
		opts = append(opts,
			engine.WithDrawableLookup(doc),
			engine.WithExecHook(func(id, expr string) {
				label := "exec:" + id
				_ = h.eng.DocumentChanged(context.Background(), doc.Version(), engine.Async, h.callback(label))
			}),
		)
	} else {
		opts = append(opts, engine.WithDrawableLookup(testutil.Lookup{}))
	}

	h.tr = &traceTransport{runner: h, blocked: map[engine.ConnID]bool{}}
	var tr engine.Transport = h.tr
	if s.Batch != 0 {
		tr = &batchTraceTransport{traceTransport: h.tr, next: engine.ConnID(s.Batch)}
	}
	h.eng = engine.New(tr, producer, opts...)
	return h, nil
}

func (h *runner) record(ev TraceEvent) {
	ev.Seq = int64(h.seq.Next())
	h.result.Trace = append(h.result.Trace, ev)
}

func (h *runner) callback(label string) func(bool) {
	return func(ok bool) {
		h.record(TraceEvent{Type: TraceCallback, Label: label, Result: &ok})
	}
}

func (h *runner) returned(label, expect string, err error) {
	ev := TraceEvent{Type: TraceReturn, Label: label}
	got := "ok"
	if err != nil {
		got = errorCode(err)
		ev.Error = got
	} else {
		ok := true
		ev.Result = &ok
	}
	h.record(ev)

	if expect != "" && expect != got {
		h.result.AddError(fmt.Sprintf("%s: expected %s, got %s", label, expect, got))
	}
}

func errorCode(err error) string {
	if code := engine.ErrorCodeOf(err); code != "" {
		return string(code)
	}
	return "ERROR"
}

func (h *runner) queue(replies []MessageStep) {
	for _, r := range replies {
		h.record(TraceEvent{Type: TraceQueued, Conn: r.Conn, Payload: r.Data})
		h.eng.Enqueue(engine.Event{Type: engine.EventMessage, Conn: engine.ConnID(r.Conn), Data: r.Data})
	}
}

func modeOf(s string) engine.Mode {
	if s == "sync" {
		return engine.Sync
	}
	return engine.Async
}

func (h *runner) execute(ctx context.Context, index int, st Step) error {
	switch {
	case st.Attach != nil:
		h.record(TraceEvent{Type: TraceAttach, Conn: *st.Attach})
		h.eng.HandleAttach(engine.ConnID(*st.Attach))

	case st.Detach != nil:
		h.record(TraceEvent{Type: TraceDetach, Conn: *st.Detach})
		h.eng.HandleDetach(engine.ConnID(*st.Detach))

	case st.Message != nil:
		h.record(TraceEvent{Type: TraceRecv, Conn: st.Message.Conn, Payload: st.Message.Data})
		h.eng.HandleMessage(engine.ConnID(st.Message.Conn), st.Message.Data)

	case st.Block != nil:
		h.record(TraceEvent{Type: TraceBlock, Conn: *st.Block})
		h.tr.blocked[engine.ConnID(*st.Block)] = true

	case st.Unblock != nil:
		id := engine.ConnID(*st.Unblock)
		h.record(TraceEvent{Type: TraceUnblock, Conn: *st.Unblock})
		delete(h.tr.blocked, id)
		h.eng.Enqueue(engine.Event{Type: engine.EventWritable, Conn: id})
		h.eng.Poll()

	case st.Update != nil:
		u := st.Update
		var version uint64
		if u.Version != nil {
			version = *u.Version
		} else {
			version = h.versions.Next()
		}
		label := u.Label
		if label == "" {
			label = "update:" + strconv.FormatUint(version, 10)
		}
		h.queue(u.Replies)
		err := h.eng.DocumentChanged(ctx, version, modeOf(u.Mode), h.callback(label))
		h.returned(label, u.Expect, err)

	case st.Command != nil:
		c := st.Command
		label := c.Label
		if label == "" {
			label = "command:" + c.Name
		}
		h.queue(c.Replies)
		err := h.eng.DoWhenReady(ctx, c.Name, c.Arg, modeOf(c.Mode), h.callback(label))
		h.returned(label, c.Expect, err)

	case st.Submit != nil:
		s := st.Submit
		label := s.Label
		if label == "" {
			label = "submit:" + s.Name
		}
		id := h.eng.Submit(s.Name, s.Arg, engine.ConnID(s.Target), h.callback(label))
		h.record(TraceEvent{Type: TraceSubmit, Label: label, Payload: id})

	case st.AddPanel != nil:
		label := "add_panel:" + *st.AddPanel
		h.returned(label, "", h.eng.AddPanel(*st.AddPanel))

	case st.Close:
		h.record(TraceEvent{Type: TraceClose})
		h.eng.Close()

	default:
		return fmt.Errorf("step %d has no action", index)
	}
	return nil
}

func (h *runner) captureState() {
	running := 0
	for _, c := range h.eng.Commands() {
		if c.State == engine.CommandRunning {
			running++
		}
	}
	files := map[string]string{}
	for _, name := range h.files.Names() {
		data, _ := h.files.Get(name)
		files[name] = string(data)
	}
	h.result.State = FinalState{
		Connections: h.eng.NumDisplays(),
		Commands:    len(h.eng.Commands()),
		Running:     running,
		Waiters:     h.eng.PendingWaiters(),
		Delivered:   h.eng.DeliveredVersion(),
		Files:       files,
	}
}

// traceTransport records every frame the engine sends. Blocked connections
// report CanSend false until unblocked.
type traceTransport struct {
	runner  *runner
	blocked map[engine.ConnID]bool
}

func (t *traceTransport) CanSend(conn engine.ConnID) bool {
	return !t.blocked[conn]
}

func (t *traceTransport) Send(conn engine.ConnID, payload string) error {
	t.runner.record(TraceEvent{Type: TraceSent, Conn: uint64(conn), Payload: payload})
	return nil
}

// batchTraceTransport adds batch peer launching.
type batchTraceTransport struct {
	*traceTransport
	next engine.ConnID
}

func (t *batchTraceTransport) MakeBatch() engine.ConnID {
	id := t.next
	t.next++
	return id
}
