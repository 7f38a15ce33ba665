package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"command", &Error{Code: ErrCodeTimeout, Message: "late", CommandID: "4"}, "TIMEOUT: late (command=4)"},
		{"version", &Error{Code: ErrCodePeerGone, Message: "gone", Version: 3}, "PEER_GONE: gone (version=3)"},
		{"conn", newProtocolError(2, "bad %s", "frame"), "PROTOCOL_ERROR: bad frame (conn=2)"},
		{"plain", &Error{Code: ErrCodeClosed, Message: "closed"}, "CLOSED: closed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_Helpers(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", &Error{Code: ErrCodeNoConnection})

	assert.True(t, IsNoConnection(wrapped))
	assert.False(t, IsTimeout(wrapped))
	assert.Equal(t, ErrorCode(""), ErrorCodeOf(errors.New("plain")))
	assert.True(t, IsTimeout(&Error{Code: ErrCodeTimeout}))
	assert.True(t, IsPeerGone(&Error{Code: ErrCodePeerGone}))
}

func TestError_Unwrap(t *testing.T) {
	err := &Error{Code: ErrCodeCancelled, Err: context.Canceled}
	assert.ErrorIs(t, err, context.Canceled)
}
