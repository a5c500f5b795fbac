package codec

import (
	"bytes"
	"errors"
	"testing"
)

func TestReaderPrimitives(t *testing.T) {
	buf := []byte{
		0x2a,                   // uint8
		0x34, 0x12,             // uint16
		0x78, 0x56, 0x34, 0x12, // uint32
		0xff, 0xff, 0xff, 0xff, // int32 -1
	}
	r := NewReader(buf)

	if v, err := r.Uint8(); err != nil || v != 0x2a {
		t.Fatalf("uint8: got %d, %v", v, err)
	}
	if v, err := r.Uint16(); err != nil || v != 0x1234 {
		t.Fatalf("uint16: got %#x, %v", v, err)
	}
	if v, err := r.Uint32(); err != nil || v != 0x12345678 {
		t.Fatalf("uint32: got %#x, %v", v, err)
	}
	if v, err := r.Int32(); err != nil || v != -1 {
		t.Fatalf("int32: got %d, %v", v, err)
	}
	if r.Remaining() != 0 {
		t.Fatalf("expected empty reader, %d bytes left", r.Remaining())
	}
}

func TestReaderShortReadDoesNotAdvance(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02, 0x03})
	if err := r.Skip(2); err != nil {
		t.Fatalf("skip: %v", err)
	}

	pos := r.Pos()
	if _, err := r.Uint32(); !errors.Is(err, ErrShortBuffer) {
		t.Fatalf("expected ErrShortBuffer, got %v", err)
	}
	if r.Pos() != pos {
		t.Fatalf("cursor advanced on failed read: %d -> %d", pos, r.Pos())
	}

	// The remaining byte must still be readable.
	if v, err := r.Uint8(); err != nil || v != 0x03 {
		t.Fatalf("uint8 after failed read: got %d, %v", v, err)
	}
}

func TestFixedString(t *testing.T) {
	buf := append([]byte("Novice"), make([]byte, 18)...)
	r := NewReader(buf)

	s, err := r.FixedString(24)
	if err != nil {
		t.Fatalf("fixed string: %v", err)
	}
	if s != "Novice" {
		t.Fatalf("expected %q, got %q", "Novice", s)
	}
	if r.Remaining() != 0 {
		t.Fatalf("expected cursor at end, %d left", r.Remaining())
	}
}

func TestCString(t *testing.T) {
	r := NewReader([]byte("prontera\x00rest"))
	s, err := r.CString()
	if err != nil {
		t.Fatalf("cstring: %v", err)
	}
	if s != "prontera" {
		t.Fatalf("expected %q, got %q", "prontera", s)
	}
	if got := r.RestString(); got != "rest" {
		t.Fatalf("expected remainder %q, got %q", "rest", got)
	}
}

func TestCStringMissingTerminator(t *testing.T) {
	r := NewReader([]byte("broken"))
	pos := r.Pos()
	if _, err := r.CString(); !errors.Is(err, ErrBadString) {
		t.Fatalf("expected ErrBadString, got %v", err)
	}
	if r.Pos() != pos {
		t.Fatalf("cursor advanced on malformed string")
	}
}

func TestPrefixString(t *testing.T) {
	r := NewReader([]byte{0x05, 'h', 'e', 'l', 'l', 'o'})
	s, err := r.PrefixString()
	if err != nil || s != "hello" {
		t.Fatalf("prefix string: got %q, %v", s, err)
	}

	// Prefix pointing past the buffer end is malformed, not short.
	r = NewReader([]byte{0x10, 'x'})
	if _, err := r.PrefixString(); !errors.Is(err, ErrBadString) {
		t.Fatalf("expected ErrBadString, got %v", err)
	}
}

func TestWriterFrames(t *testing.T) {
	frame := NewWriter().
		WriteUint16(5).
		WriteUint16(3).
		Frame(0x00a0)

	want := []byte{0xa0, 0x00, 0x05, 0x00, 0x03, 0x00}
	if !bytes.Equal(frame, want) {
		t.Fatalf("fixed frame mismatch:\n got %x\nwant %x", frame, want)
	}

	vf := NewWriter().WriteBytes([]byte("hi")).VarFrame(0x008c)
	// opcode + length word + 2 body bytes = 6 total
	want = []byte{0x8c, 0x00, 0x06, 0x00, 'h', 'i'}
	if !bytes.Equal(vf, want) {
		t.Fatalf("var frame mismatch:\n got %x\nwant %x", vf, want)
	}
}

type fixedRecord struct {
	Tick  uint32
	Pos   [3]byte
	XSize uint8
	YSize uint8
}

func TestStructRoundTrip(t *testing.T) {
	in := fixedRecord{Tick: 0xdeadbeef, Pos: [3]byte{1, 2, 3}, XSize: 5, YSize: 5}

	w := NewWriter()
	if err := WriteStruct(w, &in); err != nil {
		t.Fatalf("write struct: %v", err)
	}

	size, ok := SizeOf[fixedRecord]()
	if !ok {
		t.Fatal("expected fixed size for fixedRecord")
	}
	if w.Len() != size {
		t.Fatalf("encoded %d bytes, size fact says %d", w.Len(), size)
	}

	var out fixedRecord
	r := NewReader(w.Bytes())
	if err := ReadStruct(r, &out); err != nil {
		t.Fatalf("read struct: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: %+v != %+v", out, in)
	}
	if r.Remaining() != 0 {
		t.Fatalf("expected cursor at end, %d left", r.Remaining())
	}
}

func TestStructDecodeDeterministic(t *testing.T) {
	raw := []byte{0xef, 0xbe, 0xad, 0xde, 1, 2, 3, 5, 5}

	var a, b fixedRecord
	ra, rb := NewReader(raw), NewReader(raw)
	if err := ReadStruct(ra, &a); err != nil {
		t.Fatalf("first decode: %v", err)
	}
	if err := ReadStruct(rb, &b); err != nil {
		t.Fatalf("second decode: %v", err)
	}
	if a != b || ra.Pos() != rb.Pos() {
		t.Fatalf("decode not deterministic: %+v/%d vs %+v/%d", a, ra.Pos(), b, rb.Pos())
	}
}

func TestStructTruncated(t *testing.T) {
	raw := []byte{0xef, 0xbe, 0xad, 0xde, 1, 2, 3, 5, 5}

	// Every strict prefix one byte short must fail, never decode.
	for n := 0; n < len(raw); n++ {
		var out fixedRecord
		r := NewReader(raw[:n])
		if err := ReadStruct(r, &out); !errors.Is(err, ErrShortBuffer) {
			t.Fatalf("prefix len %d: expected ErrShortBuffer, got %v", n, err)
		}
		if r.Pos() != 0 {
			t.Fatalf("prefix len %d: cursor advanced on failure", n)
		}
	}
}

type variableRecord struct {
	Name string
	Body []byte
}

func TestSizeOfVariable(t *testing.T) {
	if _, ok := SizeOf[variableRecord](); ok {
		t.Fatal("variable-layout type must not have a fixed size fact")
	}
	w := NewWriter()
	if err := WriteStruct(w, &variableRecord{}); !errors.Is(err, ErrNotFixedSize) {
		t.Fatalf("expected ErrNotFixedSize, got %v", err)
	}
}
