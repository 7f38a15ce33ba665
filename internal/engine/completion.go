package engine

// Completion is a continuation invoked exactly once with the final outcome.
// After firing, the callback is released and the outcome stays readable.
type Completion struct {
	fn    func(bool)
	fired bool
	ok    bool
}

// NewCompletion wraps fn. A nil fn is allowed; the outcome is still tracked.
func NewCompletion(fn func(bool)) *Completion {
	return &Completion{fn: fn}
}

// Fire delivers ok to the callback. Returns false if already fired.
func (c *Completion) Fire(ok bool) bool {
	if c.fired {
		return false
	}
	c.fired = true
	c.ok = ok
	fn := c.fn
	c.fn = nil
	if fn != nil {
		fn(ok)
	}
	return true
}

// Done reports whether the completion has fired.
func (c *Completion) Done() bool { return c.fired }

// Result returns the outcome and whether it is final.
func (c *Completion) Result() (ok bool, done bool) { return c.ok, c.fired }

// ResultChan returns a callback and the channel it reports to. The channel
// is buffered so firing never blocks the engine.
func ResultChan() (func(bool), <-chan bool) {
	ch := make(chan bool, 1)
	return func(ok bool) { ch <- ok }, ch
}
