package codec

import (
	"bytes"
	"encoding/binary"
)

// Decoder is implemented by packet records whose layout contains
// variable-length fields and therefore cannot be derived from field
// declarations alone.
type Decoder interface {
	DecodeFrom(r *Reader) error
}

// Encoder is the outbound counterpart of Decoder.
type Encoder interface {
	EncodeTo(w *Writer)
}

// ReadStruct decodes a fixed-layout record from the cursor. The record's
// codec is derived from its field declarations: fields are read in
// declaration order, little-endian, with fixed widths. v must be a
// pointer to a struct (or array) containing only fixed-size fields.
// On failure the cursor does not advance.
func ReadStruct(r *Reader, v any) error {
	n := binary.Size(v)
	if n < 0 {
		return ErrNotFixedSize
	}
	if r.Remaining() < n {
		return ErrShortBuffer
	}
	if err := binary.Read(bytes.NewReader(r.buf[r.off:r.off+n]), binary.LittleEndian, v); err != nil {
		return err
	}
	r.off += n
	return nil
}

// WriteStruct encodes a fixed-layout record, field by field in
// declaration order, little-endian.
func WriteStruct(w *Writer, v any) error {
	if binary.Size(v) < 0 {
		return ErrNotFixedSize
	}
	return binary.Write(&w.buf, binary.LittleEndian, v)
}

// Size reports the wire size of a fixed-layout value. The second
// result is false for types containing any variable-length field;
// such types carry no fixed-size fact and must declare themselves
// variable in their epoch catalog instead.
func Size(v any) (int, bool) {
	n := binary.Size(v)
	if n < 0 {
		return 0, false
	}
	return n, true
}

// SizeOf reports the wire size of T without an instance. The fact is a
// property of the type: the sum of its fields' fixed widths.
func SizeOf[T any]() (int, bool) {
	var v T
	return Size(&v)
}
