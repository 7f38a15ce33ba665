package engine

import (
	"encoding/base64"
	"errors"
	"log/slog"
	"strings"
)

// Command names with a known reply format.
const (
	CommandSVG      = "SVG"
	CommandPNG      = "PNG"
	CommandJPEG     = "JPEG"
	CommandAddPanel = "ADDPANEL:" // prefix, followed by the panel address

	// CommandJSON is not sent to peers: it names the file the next rendered
	// snapshot is dumped to.
	CommandJSON = "JSON"
)

var errNoFileWriter = errors.New("no file writer configured")

// IsImageCommand reports whether name is an image export.
func IsImageCommand(name string) bool {
	switch name {
	case CommandSVG, CommandPNG, CommandJPEG:
		return true
	}
	return false
}

// interpretReply turns a command reply into its boolean result.
func (e *Engine) interpretReply(cmd *Command, payload string) bool {
	switch {
	case IsImageCommand(cmd.name):
		return e.storeImage(cmd, payload)

	case strings.HasPrefix(cmd.name, CommandAddPanel):
		slog.Debug("reply for add panel", "command_id", cmd.id, "reply", payload)
		return payload == "true"
	}

	slog.Error("unknown command", "command_id", cmd.id, "name", cmd.name)
	return false
}

func (e *Engine) storeImage(cmd *Command, payload string) bool {
	if payload == "" {
		slog.Error("peer failed to produce image", "command_id", cmd.id, "name", cmd.name, "file", cmd.arg)
		return false
	}

	content, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		slog.Error("image reply is not base64", "command_id", cmd.id, "error", err)
		return false
	}

	if err := e.writeFile(cmd.arg, content); err != nil {
		slog.Error("write image", "command_id", cmd.id, "file", cmd.arg, "error", err)
		return false
	}

	slog.Info("image created", "name", cmd.name, "file", cmd.arg, "length", len(content))
	return true
}

func (e *Engine) writeFile(name string, data []byte) error {
	if e.files == nil {
		return errNoFileWriter
	}
	return e.files.WriteFile(name, data)
}
