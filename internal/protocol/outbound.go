package protocol

import (
	"strconv"
	"strings"
)

// Tags of outbound frames.
const (
	TagCommand  = "CMD"
	TagMenu     = "MENU"
	TagSnapshot = "SNAP"
)

// Outbound is an engine-to-peer message.
type Outbound interface {
	Encode() string
}

// CommandMessage asks the peer to execute a command.
type CommandMessage struct {
	ID   string
	Name string
	Arg  string
}

// Encode renders CMD:<id>:<name>[:<arg>].
func (m CommandMessage) Encode() string {
	s := TagCommand + ":" + m.ID + ":" + m.Name
	if m.Arg != "" {
		s += ":" + m.Arg
	}
	return s
}

// MenuMessage answers a GETMENU query.
type MenuMessage struct {
	ID   string
	JSON string
}

// Encode renders MENU:<id>:<json>.
func (m MenuMessage) Encode() string {
	return TagMenu + ":" + m.ID + ":" + m.JSON
}

// SnapshotMessage pushes a rendered document version.
type SnapshotMessage struct {
	Version uint64
	Payload string
}

// Encode renders SNAP:<version>:<payload>.
func (m SnapshotMessage) Encode() string {
	return TagSnapshot + ":" + strconv.FormatUint(m.Version, 10) + ":" + m.Payload
}

// ParseOutbound decodes an engine-to-peer frame. Peers and test doubles use
// it; the engine itself only encodes.
//
// CMD frames split the name at the first ':' after the id, so a command
// named ADDPANEL:<addr> without argument reads back as Name "ADDPANEL" and
// Arg "<addr>".
func ParseOutbound(raw string) (Outbound, error) {
	tag, body, ok := strings.Cut(raw, ":")
	if !ok {
		return nil, parseErr(raw, "outbound frame without body")
	}

	switch tag {
	case TagSnapshot:
		ver, payload, ok := strings.Cut(body, ":")
		if !ok {
			return nil, parseErr(raw, "snapshot without payload")
		}
		v, err := strconv.ParseUint(ver, 10, 64)
		if err != nil {
			return nil, parseErr(raw, "bad snapshot version")
		}
		return SnapshotMessage{Version: v, Payload: payload}, nil

	case TagMenu:
		id, js, ok := strings.Cut(body, ":")
		if !ok {
			return nil, parseErr(raw, "menu without json")
		}
		return MenuMessage{ID: id, JSON: js}, nil

	case TagCommand:
		id, rest, ok := strings.Cut(body, ":")
		if !ok || id == "" {
			return nil, parseErr(raw, "command without name")
		}
		name, arg, _ := strings.Cut(rest, ":")
		return CommandMessage{ID: id, Name: name, Arg: arg}, nil
	}

	return nil, parseErr(raw, "unrecognized outbound message")
}
