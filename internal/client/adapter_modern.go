package client

import (
	"context"

	"github.com/ragnet-project/ragnet/internal/epoch"
	"github.com/ragnet-project/ragnet/internal/epoch/e20220406"
	"github.com/ragnet-project/ragnet/internal/events"
	"github.com/ragnet-project/ragnet/internal/session"
)

// modernAdapter translates 20220406 packet records into bus events.
// The payloads upstream are already sized for this epoch's 64-bit
// columns, so nothing is widened here.
type modernAdapter struct {
	e20220406.BaseLoginHandler
	e20220406.BaseCharSelectHandler
	e20220406.BaseMapHandler

	bus    *events.Bus
	source string
}

func newModernAdapter(bus *events.Bus, source string) *modernAdapter {
	return &modernAdapter{bus: bus, source: source}
}

func (a *modernAdapter) handlers() e20220406.Handlers {
	return e20220406.Handlers{Login: a, Char: a, Map: a}
}

func (a *modernAdapter) emit(t events.EventType, payload interface{}) {
	a.bus.Emit(context.Background(), events.Event{Type: t, Source: a.source, Payload: payload})
}

func (a *modernAdapter) OnLoginAccepted(p *e20220406.LoginAccepted) {
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

func (a *modernAdapter) OnLoginRefused(p *e20220406.LoginRefused) {
	a.emit(events.EventLoginRefused, events.LoginRefusedPayload{
		Reason:    uint32(p.Reason),
		BlockDate: p.BlockDate,
	})
}

func (a *modernAdapter) OnCharacterList(p *e20220406.CharacterList) {
	chars := make([]events.Character, 0, len(p.Characters))
	for _, c := range p.Characters {
		chars = append(chars, events.Character{
			CharID:  c.CharID,
			Slot:    uint16(c.Slot),
			Name:    c.Name,
			Class:   c.Class,
			BaseLvl: c.BaseLevel,
			JobLvl:  uint16(c.JobLevel),
			BaseExp: c.BaseExp,
			JobExp:  c.JobExp,
			HP:      c.HP,
			MaxHP:   c.MaxHP,
			SP:      c.SP,
			MaxSP:   c.MaxSP,
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

func (a *modernAdapter) OnCharSelectRefused(p *e20220406.CharSelectRefused) {
	a.emit(events.EventCharSelectRefused, events.CharSelectRefusedPayload{Reason: p.Reason})
}

func (a *modernAdapter) OnZoneHandoff(p *e20220406.ZoneHandoff) {
	host := p.DNSHost
	if host == "" {
		host = ipString(p.IP)
	}
	a.emit(events.EventZoneHandoff, events.ZoneHandoffPayload{
		CharID:  p.CharID,
		MapName: p.MapName,
		Host:    host,
		Port:    p.Port,
	})
}

func (a *modernAdapter) OnEnterWorld(p *e20220406.EnterWorldAck) {
	x, y, dir := epoch.UnpackPosition(p.Pos)
	a.emit(events.EventEnterWorld, events.EnterWorldPayload{Tick: p.Tick, X: x, Y: y, Dir: dir})
}

func (a *modernAdapter) OnServerTick(p *e20220406.ServerTick) {
	a.emit(events.EventServerTick, events.ServerTickPayload{Tick: p.Tick})
}

func (a *modernAdapter) OnActorChat(p *e20220406.ActorChat) {
	a.emit(events.EventChat, events.ChatPayload{SourceID: p.SourceID, Message: p.Message})
}

func (a *modernAdapter) OnOwnChat(p *e20220406.OwnChat) {
	a.emit(events.EventChat, events.ChatPayload{Message: p.Message, Own: true})
}

func (a *modernAdapter) OnActorVanished(p *e20220406.ActorVanished) {
	a.emit(events.EventActorVanished, events.ActorVanishedPayload{
		ActorID: p.ActorID,
		Reason:  uint8(p.Type),
	})
}

func (a *modernAdapter) OnMapChange(p *e20220406.MapChange) {
	a.emit(events.EventMapChange, events.MapChangePayload{MapName: p.MapName, X: p.X, Y: p.Y})
}

func (a *modernAdapter) OnItemGained(p *e20220406.ItemGained) {
	a.emit(events.EventItemGained, events.ItemGainedPayload{
		Index:  p.Index,
		Amount: p.Amount,
		ItemID: p.ItemID,
		Refine: p.Refine,
	})
}

func (a *modernAdapter) OnItemRemoved(p *e20220406.ItemRemoved) {
	a.emit(events.EventItemRemoved, events.ItemRemovedPayload{Index: p.Index, Amount: p.Amount})
}

func (a *modernAdapter) OnStatusChanged(p *e20220406.StatusChange) {
	a.emit(events.EventStatusChanged, events.StatusChangedPayload{
		Param: uint16(p.Param),
		Value: uint64(p.Value),
	})
}

func (a *modernAdapter) OnStatusChangedWide(p *e20220406.StatusChangeWide) {
	a.emit(events.EventStatusChanged, events.StatusChangedPayload{
		Param: uint16(p.Param),
		Value: p.Value,
	})
}

func bindModern(c *session.Conn, a *modernAdapter) error {
	return session.Bind(c, e20220406.NewCatalog(), a.handlers())
}
