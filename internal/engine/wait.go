package engine

import (
	"context"
	"time"
)

// WaitStatus is the state of a synchronous wait.
type WaitStatus int

const (
	// WaitPending keeps the wait going.
	WaitPending WaitStatus = iota
	// WaitSuccess: the update was delivered or the command returned true.
	WaitSuccess
	// WaitFailure: the command returned false or the waiter was cancelled.
	WaitFailure
	// WaitPeerGone: every peer detached after at least one was attached.
	WaitPeerGone
	// WaitNoConnection: the command's connection disappeared.
	WaitNoConnection
	// WaitTimeout: the budget elapsed.
	WaitTimeout
	// WaitCancelled: the caller's context ended.
	WaitCancelled
)

func (s WaitStatus) String() string {
	switch s {
	case WaitPending:
		return "pending"
	case WaitSuccess:
		return "success"
	case WaitFailure:
		return "failure"
	case WaitPeerGone:
		return "peer gone"
	case WaitNoConnection:
		return "no connection"
	case WaitTimeout:
		return "timeout"
	case WaitCancelled:
		return "cancelled"
	}
	return "unknown"
}

// WaitCheck inspects the awaited condition. elapsed is measured from the
// start of the wait.
type WaitCheck func(elapsed time.Duration) WaitStatus

// WaitFor blocks until check returns a status other than WaitPending, the
// budget elapses (budget <= 0 means no budget) or ctx ends.
//
// Each iteration first drains queued transport events so that replies can
// advance the condition, then checks, then sleeps one poll interval. No
// state is held across the sleep. Must be called from the owner goroutine.
func (e *Engine) WaitFor(ctx context.Context, budget time.Duration, check WaitCheck) WaitStatus {
	start := e.now()
	timer := time.NewTimer(e.pollInterval)
	defer timer.Stop()

	for {
		e.Poll()

		elapsed := e.now().Sub(start)
		if st := check(elapsed); st != WaitPending {
			return st
		}
		if budget > 0 && elapsed > budget {
			return WaitTimeout
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(e.pollInterval)

		wake := e.queue.Wait()
		if e.queue.Closed() {
			wake = nil
		}

		select {
		case <-ctx.Done():
			return WaitCancelled
		case <-timer.C:
		case <-wake:
			// new event, loop back to Poll without waiting for the timer
		}
	}
}
