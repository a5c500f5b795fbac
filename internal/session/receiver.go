// Package session owns the per-connection protocol machinery: the
// typed packet receiver that dispatches complete frames through an
// epoch catalog, and the TCP connection that delimits those frames,
// applies the malformed-frame policy, and carries outbound packets.
package session

import (
	"github.com/ragnet-project/ragnet/internal/codec"
	"github.com/ragnet-project/ragnet/internal/epoch"
)

// Dispatcher is the epoch-independent face of a Receiver, held by a
// Conn once bound.
type Dispatcher interface {
	Epoch() epoch.ID
	// Dispatch processes one complete, opcode-prefixed frame.
	Dispatch(frame []byte) error
}

// Receiver dispatches frames for one epoch. The handler bundle type H
// scopes it to that epoch at compile time: a Receiver built from the
// 20120307 catalog only accepts 20120307 handler implementations, so
// cross-epoch misuse is a type error, not a runtime surprise.
//
// A Receiver holds no per-frame state and is safe to share between
// connections bound to the same epoch and handler set; ordering
// guarantees come from the owning Conn, which dispatches frames
// strictly in arrival order.
type Receiver[H any] struct {
	cat      *epoch.Catalog[H]
	handlers H
}

// NewReceiver couples an epoch catalog with its handler bundle.
func NewReceiver[H any](cat *epoch.Catalog[H], handlers H) *Receiver[H] {
	return &Receiver[H]{cat: cat, handlers: handlers}
}

// Epoch implements Dispatcher.
func (rv *Receiver[H]) Epoch() epoch.ID { return rv.cat.ID() }

// Dispatch implements Dispatcher. The frame must be complete: opcode,
// length word for variable packets, payload. Errors are
// *UnknownOpcodeError or *MalformedFrameError; in either case the
// frame is abandoned whole — a failed decode never invokes a
// capability callback.
func (rv *Receiver[H]) Dispatch(frame []byte) error {
	r := codec.NewReader(frame)

	opcode, err := r.Uint16()
	if err != nil {
		return &MalformedFrameError{Epoch: rv.cat.ID(), Name: "frame_header", Err: err}
	}

	spec, ok := rv.cat.Lookup(opcode)
	if !ok {
		return &UnknownOpcodeError{Epoch: rv.cat.ID(), Opcode: opcode}
	}

	if spec.Variable() {
		length, err := r.Uint16()
		if err != nil {
			return &MalformedFrameError{Epoch: rv.cat.ID(), Opcode: opcode, Name: spec.Name, Err: err}
		}
		if int(length) != len(frame) {
			return &MalformedFrameError{Epoch: rv.cat.ID(), Opcode: opcode, Name: spec.Name, Err: codec.ErrTrailingBytes}
		}
	} else if len(frame) != spec.Size {
		err := codec.ErrShortBuffer
		if len(frame) > spec.Size {
			err = codec.ErrTrailingBytes
		}
		return &MalformedFrameError{Epoch: rv.cat.ID(), Opcode: opcode, Name: spec.Name, Err: err}
	}

	if err := spec.Handle(rv.handlers, r); err != nil {
		return &MalformedFrameError{Epoch: rv.cat.ID(), Opcode: opcode, Name: spec.Name, Err: err}
	}
	if r.Remaining() != 0 {
		return &MalformedFrameError{Epoch: rv.cat.ID(), Opcode: opcode, Name: spec.Name, Err: codec.ErrTrailingBytes}
	}
	return nil
}
