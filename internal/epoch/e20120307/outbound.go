package e20120307

import (
	"github.com/ragnet-project/ragnet/internal/codec"
	"github.com/ragnet-project/ragnet/internal/epoch"
)

// Outbound packet constructors. Each returns a complete opcode-prefixed
// frame ready for the transport. The record types are scoped to this
// epoch, so a frame built here cannot be sent through a connection
// bound to another epoch's catalog by mistake.

// BuildLogin builds the credentials packet (OpLogin, 55 bytes).
func BuildLogin(version uint32, username, password string, clientType uint8) []byte {
	return codec.NewWriter().
		WriteUint32(version).
		WriteFixedString(username, 24).
		WriteFixedString(password, 24).
		WriteUint8(clientType).
		Frame(OpLogin)
}

// BuildCharEnter builds the character-server entry packet (OpCharEnter,
// 17 bytes). The session IDs must come from the login accept.
func BuildCharEnter(accountID, loginID1, loginID2 uint32, sex uint8) []byte {
	return codec.NewWriter().
		WriteUint32(accountID).
		WriteUint32(loginID1).
		WriteUint32(loginID2).
		WriteUint16(0). // client type, unused by this epoch
		WriteUint8(sex).
		Frame(OpCharEnter)
}

// BuildCharSelect builds the slot selection packet (OpCharSelect,
// 3 bytes).
func BuildCharSelect(slot uint8) []byte {
	return codec.NewWriter().WriteUint8(slot).Frame(OpCharSelect)
}

// BuildMapEnter builds the map-server entry packet (OpMapEnter,
// 19 bytes).
func BuildMapEnter(accountID, charID, loginID1, clientTick uint32, sex uint8) []byte {
	return codec.NewWriter().
		WriteUint32(accountID).
		WriteUint32(charID).
		WriteUint32(loginID1).
		WriteUint32(clientTick).
		WriteUint8(sex).
		Frame(OpMapEnter)
}

// BuildKeepalive builds the tick echo (OpKeepalive, 6 bytes).
func BuildKeepalive(clientTick uint32) []byte {
	return codec.NewWriter().WriteUint32(clientTick).Frame(OpKeepalive)
}

// BuildChat builds a public chat packet (OpRequestChat, variable).
// The wire form is "Name : message" with a terminating NUL.
func BuildChat(name, message string) []byte {
	return codec.NewWriter().
		WriteCString(name + " : " + message).
		VarFrame(OpRequestChat)
}

// BuildMove builds a walk request to the given coordinates
// (OpRequestMove, 5 bytes).
func BuildMove(x, y uint16) []byte {
	pos := epoch.PackPosition(x, y, 0)
	return codec.NewWriter().WriteBytes(pos[:]).Frame(OpRequestMove)
}
