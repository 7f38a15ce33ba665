// Package harness runs scripted sessions against the sync engine.
//
// A scenario drives one engine through attaches, peer frames, document
// updates and commands, records every frame and completion in a trace, and
// checks assertions against the trace and the final engine state.
//
// # Scenario Format
//
//	name: two_peers_sync_update
//	description: "Both peers acknowledge before the sync update returns"
//	update_timeout: 500ms
//	steps:
//	  - attach: 1
//	  - attach: 2
//	  - update:
//	      version: 1
//	      mode: sync
//	      replies:
//	        - {conn: 1, data: "SNAPDONE:1"}
//	        - {conn: 2, data: "SNAPDONE:1"}
//	      expect: ok
//	assertions:
//	  - type: callback
//	    label: update:1
//	    result: true
//	  - type: final_state
//	    state: {connections: 2, delivered: 1}
//
// Step replies are queued before the call so a synchronous wait consumes
// them. Expect is "ok" or an engine error code such as TIMEOUT.
//
// # Assertion Types
//
//   - sent_contains: a frame with the prefix was sent (conn 0 means any)
//   - sent_count: exactly count frames with the prefix were sent
//   - sent_order: frames with the prefixes were sent in that order
//   - callback: a labelled completion fired count times (default 1)
//   - final_state: engine counters after the last step
//   - file_written: a peer-produced file exists, optionally with content
//
// # Deterministic Testing
//
// The runner never starts goroutines. The session id is fixed, trace
// sequence numbers come from an engine.Clock and automatic versions from a
// testutil.VersionCounter, so identical scenarios produce byte-identical
// canonical traces for golden comparison.
package harness
