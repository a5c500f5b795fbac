package client

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/ragnet-project/ragnet/internal/epoch"
	"github.com/ragnet-project/ragnet/internal/epoch/e20120307"
	"github.com/ragnet-project/ragnet/internal/events"
	"github.com/ragnet-project/ragnet/internal/session"
)

// ipString renders a wire-order IPv4 address read as a little-endian
// word.
func ipString(ip uint32) string {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], ip)
	return fmt.Sprintf("%d.%d.%d.%d", b[0], b[1], b[2], b[3])
}

// classicAdapter translates 20120307 packet records into
// version-independent bus events. It implements all three capability
// interfaces of its epoch; packets it has no interest in fall through
// the embedded no-op bases.
type classicAdapter struct {
	e20120307.BaseLoginHandler
	e20120307.BaseCharSelectHandler
	e20120307.BaseMapHandler

	bus    *events.Bus
	source string
}

func newClassicAdapter(bus *events.Bus, source string) *classicAdapter {
	return &classicAdapter{bus: bus, source: source}
}

// handlers bundles the adapter for every capability slot of the epoch.
func (a *classicAdapter) handlers() e20120307.Handlers {
	return e20120307.Handlers{Login: a, Char: a, Map: a}
}

func (a *classicAdapter) emit(t events.EventType, payload interface{}) {
	a.bus.Emit(context.Background(), events.Event{Type: t, Source: a.source, Payload: payload})
}

func (a *classicAdapter) OnLoginAccepted(p *e20120307.LoginAccepted) {
	realms := make([]events.Realm, 0, len(p.Realms))
	for _, r := range p.Realms {
		realms = append(realms, events.Realm{
			Host:  ipString(r.IP),
			Port:  r.Port,
			Name:  r.Name,
			Users: r.Users,
			State: r.Kind,
		})
	}
	a.emit(events.EventLoginAccepted, events.LoginAcceptedPayload{
		AccountID: p.AccountID,
		LoginID1:  p.LoginID1,
		LoginID2:  p.LoginID2,
		Sex:       p.Sex,
		Realms:    realms,
	})
}

func (a *classicAdapter) OnLoginRefused(p *e20120307.LoginRefused) {
	a.emit(events.EventLoginRefused, events.LoginRefusedPayload{
		Reason:    uint32(p.Reason),
		BlockDate: p.BlockDate,
	})
}

func (a *classicAdapter) OnCharacterList(p *e20120307.CharacterList) {
	chars := make([]events.Character, 0, len(p.Characters))
	for _, c := range p.Characters {
		chars = append(chars, events.Character{
			CharID:  c.CharID,
			Slot:    uint16(c.Slot),
			Name:    c.Name,
			Class:   c.Class,
			BaseLvl: c.BaseLevel,
			JobLvl:  uint16(c.JobLevel),
			BaseExp: uint64(c.BaseExp),
			JobExp:  uint64(c.JobExp),
			HP:      uint64(c.HP),
			MaxHP:   uint64(c.MaxHP),
			SP:      uint64(c.SP),
			MaxSP:   uint64(c.MaxSP),
			Zeny:    c.Zeny,
			MapName: c.MapName,
		})
	}
	a.emit(events.EventCharacterList, events.CharacterListPayload{
		MaxSlots:     p.TotalSlots,
		PremiumSlots: p.PremiumSlots,
		Characters:   chars,
	})
}

func (a *classicAdapter) OnCharSelectRefused(p *e20120307.CharSelectRefused) {
	a.emit(events.EventCharSelectRefused, events.CharSelectRefusedPayload{Reason: p.Reason})
}

func (a *classicAdapter) OnZoneHandoff(p *e20120307.ZoneHandoff) {
	a.emit(events.EventZoneHandoff, events.ZoneHandoffPayload{
		CharID:  p.CharID,
		MapName: p.MapName,
		Host:    ipString(p.IP),
		Port:    p.Port,
	})
}

func (a *classicAdapter) OnEnterWorld(p *e20120307.EnterWorldAck) {
	x, y, dir := epoch.UnpackPosition(p.Pos)
	a.emit(events.EventEnterWorld, events.EnterWorldPayload{Tick: p.Tick, X: x, Y: y, Dir: dir})
}

func (a *classicAdapter) OnServerTick(p *e20120307.ServerTick) {
	a.emit(events.EventServerTick, events.ServerTickPayload{Tick: p.Tick})
}

func (a *classicAdapter) OnActorChat(p *e20120307.ActorChat) {
	a.emit(events.EventChat, events.ChatPayload{SourceID: p.SourceID, Message: p.Message})
}

func (a *classicAdapter) OnOwnChat(p *e20120307.OwnChat) {
	a.emit(events.EventChat, events.ChatPayload{Message: p.Message, Own: true})
}

func (a *classicAdapter) OnActorVanished(p *e20120307.ActorVanished) {
	a.emit(events.EventActorVanished, events.ActorVanishedPayload{
		ActorID: p.ActorID,
		Reason:  uint8(p.Type),
	})
}

func (a *classicAdapter) OnMapChange(p *e20120307.MapChange) {
	a.emit(events.EventMapChange, events.MapChangePayload{MapName: p.MapName, X: p.X, Y: p.Y})
}

func (a *classicAdapter) OnItemGained(p *e20120307.ItemGained) {
	a.emit(events.EventItemGained, events.ItemGainedPayload{
		Index:  p.Index,
		Amount: p.Amount,
		ItemID: uint32(p.ItemID),
		Refine: p.Refine,
	})
}

func (a *classicAdapter) OnItemRemoved(p *e20120307.ItemRemoved) {
	a.emit(events.EventItemRemoved, events.ItemRemovedPayload{Index: p.Index, Amount: p.Amount})
}

func (a *classicAdapter) OnStatusChanged(p *e20120307.StatusChange) {
	a.emit(events.EventStatusChanged, events.StatusChangedPayload{
		Param: uint16(p.Param),
		Value: uint64(p.Value),
	})
}

// bindClassic installs the adapter's dispatch table on a connection.
func bindClassic(c *session.Conn, a *classicAdapter) error {
	return session.Bind(c, e20120307.NewCatalog(), a.handlers())
}
