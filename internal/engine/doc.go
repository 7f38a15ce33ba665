// Package engine implements the remote-view synchronization engine.
//
// The engine keeps any number of remote renderers (peers) consistent with
// one authoritative document, routes out-of-band commands to exactly one
// peer at a time, and correlates peer replies back to the callers waiting
// for them.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// All registry, queue and snapshot state is mutated from one goroutine, the
// owner of the Engine. Transports deliver attach, detach and message events
// through Enqueue, which is safe from any goroutine. The owner drains them
// with Run, RunFor, Poll or while blocked in a synchronous wait. Methods that
// mutate state directly (HandleAttach, HandleDetach, HandleMessage,
// DocumentChanged, DoWhenReady, Submit, AddPanel, Close) must be called from
// the owner goroutine. There is no internal locking beyond the event queue.
//
// Dispatch Pass:
// After every event and every document update the dispatcher visits the
// connections in attach order. For each connection the transport can accept
// data for, at most one message is sent, chosen by priority:
//  1. the head command, when the connection is draw-ready and eligible
//  2. the answer to a pending menu query
//  3. the current snapshot, when the connection has not been sent it yet
//
// After the pass the minimum delivered version is recomputed and update
// waiters at or below it fire.
//
// Commands:
// Commands form a strict FIFO with at most one command Running globally. A
// reply whose id does not match the running head is logged and discarded;
// the head stays Running.
//
// Synchronous Wait:
// Sync-mode updates and commands poll their status with WaitFor. Each
// iteration drains the event queue first, so the very replies the caller is
// waiting for are processed while it waits. A timeout only unblocks the
// caller; the waiter or command stays registered and may still complete.
package engine
