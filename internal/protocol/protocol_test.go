package protocol

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	png := base64.StdEncoding.EncodeToString([]byte("\x89PNG"))

	tests := []struct {
		name string
		raw  string
		want Inbound
	}{
		{"conn ready", "CONN_READY", ConnReady{}},
		{"conn closed", "CONN_CLOSED", ConnClosed{}},
		{"snapdone", "SNAPDONE:42", SnapDone{Version: 42}},
		{"rready", "RREADY", Ready{Draw: true}},
		{"rready with suffix", "RREADY:1", Ready{Draw: true}},
		{"ready keepalive", "READY", Ready{}},
		{"getmenu", "GETMENU:h1#x", GetMenu{ID: "h1#x"}},
		{"reply", "REPLY:7:abc", Reply{CommandID: "7", Payload: "abc"}},
		{"reply empty payload", "REPLY:7:", Reply{CommandID: "7"}},
		{"reply payload with colons", "REPLY:7:a:b", Reply{CommandID: "7", Payload: "a:b"}},
		{"save", "SAVE:out.png:" + png, Save{Filename: "out.png", Data: []byte("\x89PNG")}},
		{"objexec", "OBJEXEC:h1:SetTitle(\"a:b\")", ObjExec{ID: "h1", Expr: "SetTitle(\"a:b\")"}},
		{"objexec empty expr", "OBJEXEC:canvas:", ObjExec{ID: "canvas"}},
		{"reload", "RELOAD", Reload{}},
		{"quit", "QUIT", Quit{}},
		{"interrupt", "INTERRUPT", Interrupt{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []string{
		"",
		"HELLO",
		"SNAPDONE:",
		"SNAPDONE:-1",
		"SNAPDONE:abc",
		"GETMENU:",
		"REPLY:7",
		"SAVE:nofile",
		"SAVE::aGk=",
		"SAVE:f.png:!!!",
		"OBJEXEC:noexpr",
		"OBJEXEC::x",
	}

	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			_, err := Parse(raw)
			require.Error(t, err)
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, raw, pe.Raw)
		})
	}
}

func TestParseError_TruncatesRaw(t *testing.T) {
	err := &ParseError{Raw: "0123456789012345678901234567890123456789TAIL", Reason: "x"}
	assert.NotContains(t, err.Error(), "TAIL")
}

func TestOutbound_Encode(t *testing.T) {
	assert.Equal(t, "CMD:3:PNG:out.png", CommandMessage{ID: "3", Name: "PNG", Arg: "out.png"}.Encode())
	assert.Equal(t, "CMD:4:ADDPANEL:/panel/", CommandMessage{ID: "4", Name: "ADDPANEL:/panel/"}.Encode())
	assert.Equal(t, `MENU:h1:{"id":"h1"}`, MenuMessage{ID: "h1", JSON: `{"id":"h1"}`}.Encode())
	assert.Equal(t, "SNAP:9:{}", SnapshotMessage{Version: 9, Payload: "{}"}.Encode())
}

func TestParseOutbound(t *testing.T) {
	got, err := ParseOutbound("SNAP:12:{\"a\":\"b:c\"}")
	require.NoError(t, err)
	assert.Equal(t, SnapshotMessage{Version: 12, Payload: "{\"a\":\"b:c\"}"}, got)

	got, err = ParseOutbound("CMD:1:SVG:file.svg")
	require.NoError(t, err)
	assert.Equal(t, CommandMessage{ID: "1", Name: "SVG", Arg: "file.svg"}, got)

	got, err = ParseOutbound("CMD:2:PNG")
	require.NoError(t, err)
	assert.Equal(t, CommandMessage{ID: "2", Name: "PNG"}, got)

	got, err = ParseOutbound("MENU:h1:[]")
	require.NoError(t, err)
	assert.Equal(t, MenuMessage{ID: "h1", JSON: "[]"}, got)

	for _, raw := range []string{"SNAP", "SNAP:x:y", "SNAP:1", "CMD::x", "MENU:h1", "XYZ:1"} {
		_, err := ParseOutbound(raw)
		assert.Error(t, err, raw)
	}
}
