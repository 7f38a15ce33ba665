package engine

// updateWaiter waits until target has reached every attached peer.
type updateWaiter struct {
	target uint64
	done   *Completion
}

// updateWaiters is pure bookkeeping; SnapshotSync decides when they fire.
type updateWaiters struct {
	list []*updateWaiter
}

func (w *updateWaiters) Add(target uint64, done *Completion) {
	w.list = append(w.list, &updateWaiter{target: target, done: done})
}

func (w *updateWaiters) Len() int { return len(w.list) }

// FireUpTo fires with success and removes every waiter whose target is at
// or below delivered. Returns the number fired.
func (w *updateWaiters) FireUpTo(delivered uint64) int {
	var ready []*updateWaiter
	kept := w.list[:0]
	for _, u := range w.list {
		if u.target <= delivered {
			ready = append(ready, u)
		} else {
			kept = append(kept, u)
		}
	}
	for i := len(kept); i < len(w.list); i++ {
		w.list[i] = nil
	}
	w.list = kept

	for _, u := range ready {
		u.done.Fire(true)
	}
	return len(ready)
}

// CancelAll fires every waiter with failure and clears the list.
func (w *updateWaiters) CancelAll() int {
	pending := w.list
	w.list = nil
	for _, u := range pending {
		u.done.Fire(false)
	}
	return len(pending)
}
