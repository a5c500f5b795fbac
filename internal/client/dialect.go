package client

import (
	"github.com/ragnet-project/ragnet/internal/epoch/e20120307"
	"github.com/ragnet-project/ragnet/internal/epoch/e20220406"
	"github.com/ragnet-project/ragnet/internal/events"
	"github.com/ragnet-project/ragnet/internal/session"
)

type classicDialect struct {
	bus *events.Bus
}

func (d *classicDialect) bind(c *session.Conn) error {
	return bindClassic(c, newClassicAdapter(d.bus, c.Name()))
}

func (d *classicDialect) buildLogin(version uint32, username, password string, clientType uint8) []byte {
	return e20120307.BuildLogin(version, username, password, clientType)
}

func (d *classicDialect) buildCharEnter(accountID, loginID1, loginID2 uint32, sex uint8) []byte {
	return e20120307.BuildCharEnter(accountID, loginID1, loginID2, sex)
}

func (d *classicDialect) buildCharSelect(slot uint8) []byte {
	return e20120307.BuildCharSelect(slot)
}

func (d *classicDialect) buildMapEnter(accountID, charID, loginID1, clientTick uint32, sex uint8) []byte {
	return e20120307.BuildMapEnter(accountID, charID, loginID1, clientTick, sex)
}

func (d *classicDialect) buildKeepalive(clientTick uint32) []byte {
	return e20120307.BuildKeepalive(clientTick)
}

func (d *classicDialect) buildChat(name, message string) []byte {
	return e20120307.BuildChat(name, message)
}

func (d *classicDialect) buildMove(x, y uint16) []byte {
	return e20120307.BuildMove(x, y)
}

type modernDialect struct {
	bus *events.Bus
}

func (d *modernDialect) bind(c *session.Conn) error {
	return bindModern(c, newModernAdapter(d.bus, c.Name()))
}

func (d *modernDialect) buildLogin(version uint32, username, password string, clientType uint8) []byte {
	return e20220406.BuildLogin(version, username, password, clientType)
}

func (d *modernDialect) buildCharEnter(accountID, loginID1, loginID2 uint32, sex uint8) []byte {
	return e20220406.BuildCharEnter(accountID, loginID1, loginID2, sex)
}

func (d *modernDialect) buildCharSelect(slot uint8) []byte {
	return e20220406.BuildCharSelect(slot)
}

func (d *modernDialect) buildMapEnter(accountID, charID, loginID1, clientTick uint32, sex uint8) []byte {
	return e20220406.BuildMapEnter(accountID, charID, loginID1, clientTick, sex)
}

func (d *modernDialect) buildKeepalive(clientTick uint32) []byte {
	return e20220406.BuildKeepalive(clientTick)
}

func (d *modernDialect) buildChat(name, message string) []byte {
	return e20220406.BuildChat(name, message)
}

func (d *modernDialect) buildMove(x, y uint16) []byte {
	return e20220406.BuildMove(x, y)
}
