// Package epoch defines protocol epoch identifiers and the generic
// opcode catalog that maps one epoch's wire tags to typed packet
// handlers. Each supported server-protocol revision lives in its own
// subpackage (e20120307, e20220406) declaring the record types, the
// capability interfaces, and the catalog for that revision.
package epoch

import (
	"fmt"
	"strconv"
)

// ID identifies one historical revision of the server wire protocol.
// It is chosen once per connection during negotiation and never changes
// for the connection's lifetime. The numeric value is the revision date
// used by the original client builds.
type ID uint32

const (
	// E20120307 is the classic protocol revision with 16-bit item IDs.
	E20120307 ID = 20120307

	// E20220406 is the modern protocol revision: 32-bit item IDs,
	// widened map-entry and character-list layouts, reshuffled opcodes.
	E20220406 ID = 20220406
)

// Known lists every supported epoch, oldest first.
func Known() []ID {
	return []ID{E20120307, E20220406}
}

// Valid reports whether id is a supported epoch.
func (id ID) Valid() bool {
	switch id {
	case E20120307, E20220406:
		return true
	}
	return false
}

// String returns the revision date form, e.g. "20120307".
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Parse converts a revision date string into an epoch ID.
func Parse(s string) (ID, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("epoch: invalid identifier %q: %w", s, err)
	}
	id := ID(n)
	if !id.Valid() {
		return 0, fmt.Errorf("epoch: unsupported revision %q", s)
	}
	return id, nil
}
