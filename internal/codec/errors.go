package codec

import "errors"

var (
	// ErrShortBuffer is returned when a read would pass the end of the
	// buffer. The cursor position is left unchanged.
	ErrShortBuffer = errors.New("codec: read past end of buffer")

	// ErrBadEnum is returned when an enumerated field carries a tag
	// outside its declared value set.
	ErrBadEnum = errors.New("codec: invalid enum tag")

	// ErrBadString is returned when a string field violates its framing
	// (missing terminator, length prefix past the buffer end).
	ErrBadString = errors.New("codec: malformed string field")

	// ErrTrailingBytes is returned when a frame contains bytes beyond
	// the end of its declared record.
	ErrTrailingBytes = errors.New("codec: trailing bytes after record")

	// ErrNotFixedSize is returned when a wire size is requested for a
	// type whose encoded length depends on its content.
	ErrNotFixedSize = errors.New("codec: type has no fixed wire size")
)
