package engine

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeProtocol marks an unexpected or malformed peer message.
	ErrCodeProtocol ErrorCode = "PROTOCOL_ERROR"

	// ErrCodePeerGone means every peer detached while a caller was waiting.
	ErrCodePeerGone ErrorCode = "PEER_GONE"

	// ErrCodeTimeout means a synchronous wait exceeded its budget.
	ErrCodeTimeout ErrorCode = "TIMEOUT"

	// ErrCodeNoConnection means the connection a command needed disappeared
	// or could not be created.
	ErrCodeNoConnection ErrorCode = "NO_CONNECTION"

	// ErrCodeCommandFailed means a command completed with a false result.
	ErrCodeCommandFailed ErrorCode = "COMMAND_FAILED"

	// ErrCodeUpdateFailed means an update waiter was cancelled.
	ErrCodeUpdateFailed ErrorCode = "UPDATE_FAILED"

	// ErrCodeInvalidVersion rejects version 0 and versions older than the
	// current snapshot.
	ErrCodeInvalidVersion ErrorCode = "INVALID_VERSION"

	// ErrCodeRender means the snapshot producer failed.
	ErrCodeRender ErrorCode = "RENDER_FAILED"

	// ErrCodeNotShown means no peer was ever attached.
	ErrCodeNotShown ErrorCode = "NOT_SHOWN"

	// ErrCodeCancelled means the caller's context ended the wait.
	ErrCodeCancelled ErrorCode = "CANCELLED"

	// ErrCodeClosed means the engine was already closed.
	ErrCodeClosed ErrorCode = "CLOSED"
)

// Error is the structured error returned by engine operations.
type Error struct {
	Code      ErrorCode
	Message   string
	ConnID    ConnID // zero when not tied to a connection
	CommandID string
	Version   uint64
	Err       error // underlying cause, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.CommandID != "":
		return fmt.Sprintf("%s: %s (command=%s)", e.Code, e.Message, e.CommandID)
	case e.Version != 0:
		return fmt.Sprintf("%s: %s (version=%d)", e.Code, e.Message, e.Version)
	case e.ConnID != 0:
		return fmt.Sprintf("%s: %s (conn=%d)", e.Code, e.Message, e.ConnID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCodeOf returns the code of an engine error anywhere in err's chain,
// or "" when err is not an engine error.
func ErrorCodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsTimeout reports whether err is a synchronous-wait timeout.
func IsTimeout(err error) bool { return ErrorCodeOf(err) == ErrCodeTimeout }

// IsPeerGone reports whether err means every peer went away.
func IsPeerGone(err error) bool { return ErrorCodeOf(err) == ErrCodePeerGone }

// IsNoConnection reports whether err means a command lost its connection.
func IsNoConnection(err error) bool { return ErrorCodeOf(err) == ErrCodeNoConnection }

// IsProtocolError reports whether err is a protocol error.
func IsProtocolError(err error) bool { return ErrorCodeOf(err) == ErrCodeProtocol }

func newProtocolError(conn ConnID, format string, args ...any) *Error {
	return &Error{Code: ErrCodeProtocol, Message: fmt.Sprintf(format, args...), ConnID: conn}
}
