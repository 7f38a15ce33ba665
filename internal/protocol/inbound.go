package protocol

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// Inbound is a parsed peer-to-engine message. The set of implementations is
// closed; use a type switch over the types below.
type Inbound interface {
	inbound()
}

// ConnReady is delivered by the transport when a new peer is fully attached.
type ConnReady struct{}

// ConnClosed is delivered by the transport when a peer went away.
type ConnClosed struct{}

// SnapDone acknowledges that the peer finished rendering Version.
type SnapDone struct {
	Version uint64
}

// Ready reports peer readiness. Draw is true for RREADY, false for the
// READY keep-alive.
type Ready struct {
	Draw bool
}

// GetMenu asks for the context menu of a drawable.
type GetMenu struct {
	ID string
}

// Reply carries the result of the command CommandID.
type Reply struct {
	CommandID string
	Payload   string
}

// Save delivers a file the peer wants stored locally.
type Save struct {
	Filename string
	Data     []byte
}

// ObjExec asks to run Expr against the drawable ID.
type ObjExec struct {
	ID   string
	Expr string
}

// Reload asks for the current snapshot to be sent again.
type Reload struct{}

// Quit asks the hosting process to terminate.
type Quit struct{}

// Interrupt asks the hosting process to interrupt the running work.
type Interrupt struct{}

func (ConnReady) inbound()  {}
func (ConnClosed) inbound() {}
func (SnapDone) inbound()   {}
func (Ready) inbound()      {}
func (GetMenu) inbound()    {}
func (Reply) inbound()      {}
func (Save) inbound()       {}
func (ObjExec) inbound()    {}
func (Reload) inbound()     {}
func (Quit) inbound()       {}
func (Interrupt) inbound()  {}

// Tags of inbound frames.
const (
	TagConnReady  = "CONN_READY"
	TagConnClosed = "CONN_CLOSED"
	TagSnapDone   = "SNAPDONE"
	TagDrawReady  = "RREADY"
	TagReady      = "READY"
	TagGetMenu    = "GETMENU"
	TagReply      = "REPLY"
	TagSave       = "SAVE"
	TagObjExec    = "OBJEXEC"
	TagReload     = "RELOAD"
	TagQuit       = "QUIT"
	TagInterrupt  = "INTERRUPT"
)

// ParseError reports a frame that could not be understood.
type ParseError struct {
	Raw    string
	Reason string
}

func (e *ParseError) Error() string {
	raw := e.Raw
	if len(raw) > 40 {
		raw = raw[:40] + "..."
	}
	return fmt.Sprintf("protocol: %s: %q", e.Reason, raw)
}

func parseErr(raw, format string, args ...any) *ParseError {
	return &ParseError{Raw: raw, Reason: fmt.Sprintf(format, args...)}
}

// Parse converts a raw inbound frame into its message type.
func Parse(raw string) (Inbound, error) {
	switch raw {
	case TagConnReady:
		return ConnReady{}, nil
	case TagConnClosed:
		return ConnClosed{}, nil
	case TagReload:
		return Reload{}, nil
	case TagQuit:
		return Quit{}, nil
	case TagInterrupt:
		return Interrupt{}, nil
	case TagDrawReady:
		return Ready{Draw: true}, nil
	}

	tag, body, _ := strings.Cut(raw, ":")

	switch tag {
	case TagSnapDone:
		v, err := strconv.ParseUint(body, 10, 64)
		if err != nil {
			return nil, parseErr(raw, "bad snapshot version")
		}
		return SnapDone{Version: v}, nil

	case TagDrawReady:
		return Ready{Draw: true}, nil

	case TagGetMenu:
		if body == "" {
			return nil, parseErr(raw, "missing drawable id")
		}
		return GetMenu{ID: body}, nil

	case TagReply:
		id, payload, ok := strings.Cut(body, ":")
		if !ok {
			return nil, parseErr(raw, "reply without payload separator")
		}
		return Reply{CommandID: id, Payload: payload}, nil

	case TagSave:
		name, enc, ok := strings.Cut(body, ":")
		if !ok || name == "" {
			return nil, parseErr(raw, "save without file name")
		}
		data, err := base64.StdEncoding.DecodeString(enc)
		if err != nil {
			return nil, parseErr(raw, "save payload is not base64")
		}
		return Save{Filename: name, Data: data}, nil

	case TagObjExec:
		id, expr, ok := strings.Cut(body, ":")
		if !ok || id == "" {
			return nil, parseErr(raw, "objexec without drawable id")
		}
		return ObjExec{ID: id, Expr: expr}, nil
	}

	if strings.HasPrefix(raw, TagReady) {
		return Ready{}, nil
	}

	return nil, parseErr(raw, "unrecognized message")
}
