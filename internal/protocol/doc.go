// Package protocol defines the text messages exchanged between the view
// synchronization engine and its remote renderers.
//
// Every frame is a tag optionally followed by ':'-separated fields. Inbound
// frames are parsed once at the transport boundary into one of a closed set
// of message types; the engine switches on the concrete type. Outbound
// frames are built from message structs and encoded with Encode.
//
// Inbound (peer -> engine):
//
//	CONN_READY, CONN_CLOSED          synthetic lifecycle frames from the transport
//	SNAPDONE:<version>               peer rendered <version>; peer is draw-ready
//	RREADY[:...]                     peer is draw-ready without a version
//	READY                            keep-alive, no effect
//	GETMENU:<id>                     context menu request for drawable <id>
//	REPLY:<cmdId>:<payload>          reply to the running command
//	SAVE:<filename>:<base64>         file produced by the peer
//	OBJEXEC:<id>:<expr>              execute <expr> on drawable <id>
//	RELOAD                           resend the current snapshot
//	QUIT, INTERRUPT                  process control
//
// Outbound (engine -> peer):
//
//	CMD:<id>:<name>[:<arg>]
//	MENU:<id>:<json>
//	SNAP:<version>:<payload>
package protocol
