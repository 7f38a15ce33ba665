package harness

// Trace event types.
const (
	TraceAttach   = "attach"
	TraceDetach   = "detach"
	TraceRecv     = "recv"
	TraceQueued   = "queued"
	TraceSent     = "sent"
	TraceSubmit   = "submit"
	TraceCallback = "callback"
	TraceReturn   = "return"
	TraceBlock    = "block"
	TraceUnblock  = "unblock"
	TraceClose    = "close"
)

// TraceEvent is one observable step of a scenario run.
type TraceEvent struct {
	Seq     int64  `json:"seq"`
	Type    string `json:"type"`
	Conn    uint64 `json:"conn,omitempty"`
	Payload string `json:"payload,omitempty"`
	Label   string `json:"label,omitempty"`
	Result  *bool  `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// FinalState is the engine state captured after the last step.
type FinalState struct {
	Connections int               `json:"connections"`
	Commands    int               `json:"commands"`
	Running     int               `json:"running"`
	Waiters     int               `json:"waiters"`
	Delivered   uint64            `json:"delivered"`
	Files       map[string]string `json:"files,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace holds every recorded event in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	State FinalState `json:"state"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Sent returns the payloads sent to conn, in order.
func (r *Result) Sent(conn uint64) []string {
	var out []string
	for _, ev := range r.Trace {
		if ev.Type == TraceSent && ev.Conn == conn {
			out = append(out, ev.Payload)
		}
	}
	return out
}

// Callbacks returns the results reported to the completion labelled label.
func (r *Result) Callbacks(label string) []bool {
	var out []bool
	for _, ev := range r.Trace {
		if ev.Type == TraceCallback && ev.Label == label && ev.Result != nil {
			out = append(out, *ev.Result)
		}
	}
	return out
}
