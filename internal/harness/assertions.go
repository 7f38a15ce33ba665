package harness

import (
	"fmt"
	"strings"
)

// AssertionError describes a failed assertion with enough context to
// debug it from the trace.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s assertion failed:\n", e.Type)
	fmt.Fprintf(&b, "  expected: %s\n", e.Expected)
	fmt.Fprintf(&b, "  actual:   %s", e.Actual)
	if len(e.Trace) > 0 {
		b.WriteString("\n  trace:")
		for _, ev := range e.Trace {
			fmt.Fprintf(&b, "\n    %s", formatEvent(ev))
		}
	}
	return b.String()
}

func formatEvent(ev TraceEvent) string {
	s := fmt.Sprintf("[%d] %s", ev.Seq, ev.Type)
	if ev.Conn != 0 {
		s += fmt.Sprintf(" conn=%d", ev.Conn)
	}
	if ev.Label != "" {
		s += " " + ev.Label
	}
	if ev.Payload != "" {
		s += fmt.Sprintf(" %q", ev.Payload)
	}
	if ev.Result != nil {
		s += fmt.Sprintf(" result=%t", *ev.Result)
	}
	if ev.Error != "" {
		s += " error=" + ev.Error
	}
	return s
}

// EvaluateAssertions checks every assertion against result and returns
// the failures. result is not modified.
func EvaluateAssertions(result *Result, assertions []Assertion) []error {
	var errs []error
	for _, a := range assertions {
		if err := evaluateAssertion(result, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func evaluateAssertion(r *Result, a Assertion) error {
	switch a.Type {
	case AssertSentContains:
		return assertSentContains(r, a)
	case AssertSentCount:
		return assertSentCount(r, a)
	case AssertSentOrder:
		return assertSentOrder(r, a)
	case AssertCallback:
		return assertCallback(r, a)
	case AssertFinalState:
		return assertFinalState(r, a)
	case AssertFileWritten:
		return assertFileWritten(r, a)
	}
	return fmt.Errorf("unknown assertion type: %s", a.Type)
}

// sentMatching returns the frames matching prefix. Conn 0 matches every
// connection.
func sentMatching(r *Result, conn uint64, prefix string) []string {
	var out []string
	for _, ev := range r.Trace {
		if ev.Type != TraceSent || (conn != 0 && ev.Conn != conn) {
			continue
		}
		if strings.HasPrefix(ev.Payload, prefix) {
			out = append(out, ev.Payload)
		}
	}
	return out
}

func describeTarget(conn uint64) string {
	if conn == 0 {
		return "any connection"
	}
	return fmt.Sprintf("conn %d", conn)
}

func assertSentContains(r *Result, a Assertion) error {
	if len(sentMatching(r, a.Conn, a.Prefix)) > 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertSentContains,
		Expected: fmt.Sprintf("frame %q... sent to %s", a.Prefix, describeTarget(a.Conn)),
		Actual:   "no matching frame",
		Trace:    r.Trace,
	}
}

func assertSentCount(r *Result, a Assertion) error {
	n := len(sentMatching(r, a.Conn, a.Prefix))
	if n == *a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertSentCount,
		Expected: fmt.Sprintf("%d frames %q... sent to %s", *a.Count, a.Prefix, describeTarget(a.Conn)),
		Actual:   fmt.Sprintf("%d frames", n),
		Trace:    r.Trace,
	}
}

// assertSentOrder checks that frames with the given prefixes were sent in
// order. Other frames may appear in between.
func assertSentOrder(r *Result, a Assertion) error {
	next := 0
	for _, f := range sentMatching(r, a.Conn, "") {
		if next < len(a.Prefixes) && strings.HasPrefix(f, a.Prefixes[next]) {
			next++
		}
	}
	if next == len(a.Prefixes) {
		return nil
	}
	return &AssertionError{
		Type:     AssertSentOrder,
		Expected: fmt.Sprintf("frames in order %v to %s", a.Prefixes, describeTarget(a.Conn)),
		Actual:   fmt.Sprintf("matched %d of %d, missing %q", next, len(a.Prefixes), a.Prefixes[next]),
		Trace:    r.Trace,
	}
}

// assertCallback checks how often a completion fired and, when Result is
// set, that every firing reported it.
func assertCallback(r *Result, a Assertion) error {
	want := 1
	if a.Count != nil {
		want = *a.Count
	}
	got := r.Callbacks(a.Label)
	if len(got) != want {
		return &AssertionError{
			Type:     AssertCallback,
			Expected: fmt.Sprintf("%s fired %d time(s)", a.Label, want),
			Actual:   fmt.Sprintf("fired %d time(s)", len(got)),
			Trace:    r.Trace,
		}
	}
	if a.Result == nil {
		return nil
	}
	for _, ok := range got {
		if ok != *a.Result {
			return &AssertionError{
				Type:     AssertCallback,
				Expected: fmt.Sprintf("%s reported %t", a.Label, *a.Result),
				Actual:   fmt.Sprintf("reported %t", ok),
				Trace:    r.Trace,
			}
		}
	}
	return nil
}

func assertFinalState(r *Result, a Assertion) error {
	st, want := r.State, a.State
	mismatch := func(field string, expected, actual any) error {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s = %v", field, expected),
			Actual:   fmt.Sprintf("%s = %v", field, actual),
		}
	}
	switch {
	case want.Connections != nil && *want.Connections != st.Connections:
		return mismatch("connections", *want.Connections, st.Connections)
	case want.Commands != nil && *want.Commands != st.Commands:
		return mismatch("commands", *want.Commands, st.Commands)
	case want.Running != nil && *want.Running != st.Running:
		return mismatch("running", *want.Running, st.Running)
	case want.Waiters != nil && *want.Waiters != st.Waiters:
		return mismatch("waiters", *want.Waiters, st.Waiters)
	case want.Delivered != nil && *want.Delivered != st.Delivered:
		return mismatch("delivered", *want.Delivered, st.Delivered)
	}
	return nil
}

func assertFileWritten(r *Result, a Assertion) error {
	content, ok := r.State.Files[a.File]
	if !ok {
		return &AssertionError{
			Type:     AssertFileWritten,
			Expected: fmt.Sprintf("file %q written", a.File),
			Actual:   "file not written",
		}
	}
	if a.Content != nil && *a.Content != content {
		return &AssertionError{
			Type:     AssertFileWritten,
			Expected: fmt.Sprintf("file %q = %q", a.File, *a.Content),
			Actual:   fmt.Sprintf("%q", content),
		}
	}
	return nil
}
