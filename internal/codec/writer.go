package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Writer builds the byte image of one outbound packet. Methods chain so
// packet constructors read in declaration order. The zero value is
// ready to use.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter creates an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Reset clears the Writer for reuse.
func (w *Writer) Reset() {
	w.buf.Reset()
}

// WriteUint8 writes a single byte.
func (w *Writer) WriteUint8(v uint8) *Writer {
	w.buf.WriteByte(v)
	return w
}

// WriteUint16 writes a uint16 in little-endian order.
func (w *Writer) WriteUint16(v uint16) *Writer {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
	return w
}

// WriteUint32 writes a uint32 in little-endian order.
func (w *Writer) WriteUint32(v uint32) *Writer {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
	return w
}

// WriteUint64 writes a uint64 in little-endian order.
func (w *Writer) WriteUint64(v uint64) *Writer {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
	return w
}

// WriteInt32 writes an int32 in little-endian order.
func (w *Writer) WriteInt32(v int32) *Writer {
	return w.WriteUint32(uint32(v))
}

// WriteFloat32 writes a float32 in little-endian order.
func (w *Writer) WriteFloat32(v float32) *Writer {
	return w.WriteUint32(math.Float32bits(v))
}

// WriteFixedString writes s into an n-byte field, NUL-padded. Strings
// longer than the field are truncated, matching client behavior for
// name fields.
func (w *Writer) WriteFixedString(s string, n int) *Writer {
	data := []byte(s)
	if len(data) > n {
		data = data[:n]
	}
	w.buf.Write(data)
	for i := len(data); i < n; i++ {
		w.buf.WriteByte(0)
	}
	return w
}

// WriteCString writes a NUL-terminated string.
func (w *Writer) WriteCString(s string) *Writer {
	w.buf.WriteString(s)
	w.buf.WriteByte(0)
	return w
}

// WritePrefixString writes a string framed by a one-byte length prefix.
func (w *Writer) WritePrefixString(s string) *Writer {
	data := []byte(s)
	if len(data) > 255 {
		data = data[:255]
	}
	w.buf.WriteByte(byte(len(data)))
	w.buf.Write(data)
	return w
}

// WriteBytes writes raw bytes.
func (w *Writer) WriteBytes(data []byte) *Writer {
	w.buf.Write(data)
	return w
}

// Len returns the current size of the packet body being built.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// Bytes returns the accumulated body bytes.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Frame returns the body prefixed with a 2-byte LE opcode. Used for
// packets whose total length is fixed by the opcode.
func (w *Writer) Frame(opcode uint16) []byte {
	body := w.buf.Bytes()
	out := make([]byte, 2+len(body))
	binary.LittleEndian.PutUint16(out[:2], opcode)
	copy(out[2:], body)
	return out
}

// VarFrame returns the body prefixed with a 2-byte LE opcode and a
// 2-byte LE total length word, the framing used by variable-length
// packets.
func (w *Writer) VarFrame(opcode uint16) []byte {
	body := w.buf.Bytes()
	out := make([]byte, 4+len(body))
	binary.LittleEndian.PutUint16(out[:2], opcode)
	binary.LittleEndian.PutUint16(out[2:4], uint16(4+len(body)))
	copy(out[4:], body)
	return out
}

// String returns a hex dump of the current body for debugging.
func (w *Writer) String() string {
	data := w.buf.Bytes()
	return fmt.Sprintf("Writer[%d bytes]: %x", len(data), data)
}
