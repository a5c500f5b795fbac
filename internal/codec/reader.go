// Package codec implements the byte-level wire codec shared by every
// protocol epoch: a read/write cursor over a contiguous buffer, primitive
// field operations, struct-layout derivation, and fixed-size facts.
//
// All multi-byte integers are little-endian, matching the historical
// server protocol. The codec performs no I/O and no logging; failures
// surface as typed errors and the cursor never advances past a failed
// read.
package codec

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Reader is a decoding cursor over a byte buffer. It is exclusively
// owned by its caller and not safe for concurrent use. Every read
// either advances the position by exactly the bytes consumed or fails
// with ErrShortBuffer without advancing.
type Reader struct {
	buf []byte
	off int
}

// NewReader creates a Reader positioned at the start of buf. The Reader
// does not copy buf; the caller must not mutate it during decoding.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Len returns the total buffer length.
func (r *Reader) Len() int { return len(r.buf) }

// Pos returns the current cursor position.
func (r *Reader) Pos() int { return r.off }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

// need checks that n more bytes are available without advancing.
func (r *Reader) need(n int) error {
	if n < 0 || r.Remaining() < n {
		return ErrShortBuffer
	}
	return nil
}

// Uint8 reads one byte.
func (r *Reader) Uint8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.off]
	r.off++
	return v, nil
}

// Uint16 reads a little-endian uint16.
func (r *Reader) Uint16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v, nil
}

// Uint32 reads a little-endian uint32.
func (r *Reader) Uint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

// Uint64 reads a little-endian uint64.
func (r *Reader) Uint64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v, nil
}

// Int8 reads one signed byte.
func (r *Reader) Int8() (int8, error) {
	v, err := r.Uint8()
	return int8(v), err
}

// Int16 reads a little-endian int16.
func (r *Reader) Int16() (int16, error) {
	v, err := r.Uint16()
	return int16(v), err
}

// Int32 reads a little-endian int32.
func (r *Reader) Int32() (int32, error) {
	v, err := r.Uint32()
	return int32(v), err
}

// Float32 reads a little-endian IEEE 754 float32.
func (r *Reader) Float32() (float32, error) {
	v, err := r.Uint32()
	return math.Float32frombits(v), err
}

// Bytes reads exactly n raw bytes into a fresh slice.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, r.buf[r.off:r.off+n])
	r.off += n
	return out, nil
}

// Skip advances the cursor by n bytes without interpreting them.
func (r *Reader) Skip(n int) error {
	if err := r.need(n); err != nil {
		return err
	}
	r.off += n
	return nil
}

// FixedString reads an n-byte field holding a zero-padded string, the
// framing used by character and map name fields. Trailing NUL padding
// is stripped.
func (r *Reader) FixedString(n int) (string, error) {
	if err := r.need(n); err != nil {
		return "", err
	}
	raw := r.buf[r.off : r.off+n]
	r.off += n
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	return string(raw), nil
}

// CString reads a NUL-terminated string. The terminator is consumed
// but not included in the result. A missing terminator is ErrBadString
// and leaves the cursor unchanged.
func (r *Reader) CString() (string, error) {
	i := bytes.IndexByte(r.buf[r.off:], 0)
	if i < 0 {
		return "", ErrBadString
	}
	s := string(r.buf[r.off : r.off+i])
	r.off += i + 1
	return s, nil
}

// PrefixString reads a string framed by a one-byte length prefix.
func (r *Reader) PrefixString() (string, error) {
	if err := r.need(1); err != nil {
		return "", err
	}
	n := int(r.buf[r.off])
	if r.Remaining() < 1+n {
		return "", ErrBadString
	}
	s := string(r.buf[r.off+1 : r.off+1+n])
	r.off += 1 + n
	return s, nil
}

// Rest reads all remaining bytes.
func (r *Reader) Rest() []byte {
	out := make([]byte, r.Remaining())
	copy(out, r.buf[r.off:])
	r.off = len(r.buf)
	return out
}

// RestString reads the remaining bytes as a string, stripping a single
// trailing NUL if present. Chat packets pad their message this way.
func (r *Reader) RestString() string {
	raw := r.buf[r.off:]
	r.off = len(r.buf)
	return string(bytes.TrimRight(raw, "\x00"))
}
