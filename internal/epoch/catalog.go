package epoch

import (
	"fmt"
	"sort"

	"github.com/ragnet-project/ragnet/internal/codec"
)

// SizeVariable marks a packet whose total length is carried on the wire
// as a 2-byte LE word immediately after the opcode.
const SizeVariable = -1

// Spec describes one packet kind of one epoch: its wire tag, a
// diagnostic name, its frame size rule, and the typed handle function
// that decodes the payload and invokes the matching capability
// callback on the handler bundle H.
//
// Size is the total frame length in bytes including the opcode, or
// SizeVariable. For fixed-layout records it is 2 plus the record's
// fixed-size fact; each epoch package verifies that agreement for
// every catalog entry.
type Spec[H any] struct {
	Opcode uint16
	Name   string
	Size   int
	Handle func(h H, r *codec.Reader) error
}

// Variable reports whether the packet carries its own length word.
func (s Spec[H]) Variable() bool { return s.Size == SizeVariable }

// Catalog is one epoch's table of known packet kinds, keyed by opcode.
// It is built once at startup and read-only afterwards, so it is safe
// to share across connections bound to the same epoch.
type Catalog[H any] struct {
	id    ID
	specs map[uint16]Spec[H]
}

// Framer is the epoch-independent view of a catalog needed by the
// transport layer to delimit inbound frames.
type Framer interface {
	ID() ID
	// FrameSize returns the frame size rule for an opcode: the fixed
	// total length, or SizeVariable. ok is false for unknown opcodes.
	FrameSize(opcode uint16) (size int, ok bool)
}

// NewCatalog builds a catalog from specs. Duplicate opcodes, missing
// handle functions, and size rules below the opcode width are
// programming errors and rejected.
func NewCatalog[H any](id ID, specs []Spec[H]) (*Catalog[H], error) {
	if !id.Valid() {
		return nil, fmt.Errorf("epoch: catalog for unsupported epoch %d", id)
	}
	table := make(map[uint16]Spec[H], len(specs))
	for _, s := range specs {
		if s.Handle == nil {
			return nil, fmt.Errorf("epoch %s: packet %s (0x%04x) has no handle", id, s.Name, s.Opcode)
		}
		if s.Size != SizeVariable && s.Size < 2 {
			return nil, fmt.Errorf("epoch %s: packet %s (0x%04x) has invalid size %d", id, s.Name, s.Opcode, s.Size)
		}
		if _, dup := table[s.Opcode]; dup {
			return nil, fmt.Errorf("epoch %s: duplicate opcode 0x%04x", id, s.Opcode)
		}
		table[s.Opcode] = s
	}
	return &Catalog[H]{id: id, specs: table}, nil
}

// MustCatalog is NewCatalog for package-level catalog construction,
// where a bad table is unrecoverable.
func MustCatalog[H any](id ID, specs []Spec[H]) *Catalog[H] {
	c, err := NewCatalog(id, specs)
	if err != nil {
		panic(err)
	}
	return c
}

// ID returns the epoch this catalog describes.
func (c *Catalog[H]) ID() ID { return c.id }

// Lookup returns the spec for an opcode.
func (c *Catalog[H]) Lookup(opcode uint16) (Spec[H], bool) {
	s, ok := c.specs[opcode]
	return s, ok
}

// FrameSize implements Framer.
func (c *Catalog[H]) FrameSize(opcode uint16) (int, bool) {
	s, ok := c.specs[opcode]
	if !ok {
		return 0, false
	}
	return s.Size, true
}

// Len returns the number of packet kinds in the catalog.
func (c *Catalog[H]) Len() int { return len(c.specs) }

// Opcodes returns the catalog's opcodes in ascending order, for
// diagnostic surfaces (CLI tables, the API catalog endpoint).
func (c *Catalog[H]) Opcodes() []uint16 {
	out := make([]uint16, 0, len(c.specs))
	for op := range c.specs {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// OpcodeInfo is the handler-independent view of one catalog entry.
type OpcodeInfo struct {
	Opcode uint16 `json:"opcode"`
	Name   string `json:"name"`
	Size   int    `json:"size"` // SizeVariable for length-worded packets
}

// Describe returns the catalog's entries in ascending opcode order,
// stripped of their typed handle functions.
func (c *Catalog[H]) Describe() []OpcodeInfo {
	out := make([]OpcodeInfo, 0, len(c.specs))
	for _, op := range c.Opcodes() {
		s := c.specs[op]
		out = append(out, OpcodeInfo{Opcode: s.Opcode, Name: s.Name, Size: s.Size})
	}
	return out
}
