package session

import (
	"errors"
	"fmt"

	"github.com/ragnet-project/ragnet/internal/epoch"
)

var (
	// ErrAlreadyBound is returned when Bind is called on a connection
	// that already negotiated its epoch. Binding happens exactly once.
	ErrAlreadyBound = errors.New("session: connection already bound to an epoch")

	// ErrNotBound is returned when frames arrive before the epoch has
	// been negotiated.
	ErrNotBound = errors.New("session: connection not bound to an epoch")

	// ErrClosed is returned when sending on a closed connection.
	ErrClosed = errors.New("session: connection closed")
)

// UnknownOpcodeError reports a frame whose opcode is not in the bound
// epoch's catalog. Recoverable: the frame is dropped and the receiver
// state is untouched.
type UnknownOpcodeError struct {
	Epoch  epoch.ID
	Opcode uint16
}

func (e *UnknownOpcodeError) Error() string {
	return fmt.Sprintf("session: unknown opcode 0x%04x for epoch %s", e.Opcode, e.Epoch)
}

// MalformedFrameError reports a frame that matched a known opcode but
// failed to decode: truncated payload, trailing bytes, or an invalid
// enum tag. Whether it tears the connection down is a policy decision.
type MalformedFrameError struct {
	Epoch  epoch.ID
	Opcode uint16
	Name   string
	Err    error
}

func (e *MalformedFrameError) Error() string {
	return fmt.Sprintf("session: malformed %s frame (0x%04x, epoch %s): %v", e.Name, e.Opcode, e.Epoch, e.Err)
}

func (e *MalformedFrameError) Unwrap() error { return e.Err }
