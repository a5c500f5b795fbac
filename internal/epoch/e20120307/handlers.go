package e20120307

// Capability interfaces for epoch 20120307, one per packet category.
// Each method corresponds to one server-to-client packet kind; a
// concrete receiver embeds the matching Base type and overrides only
// the callbacks it cares about. The Base bodies are no-ops, so packet
// kinds a receiver ignores fall through harmlessly.

// LoginHandler receives decoded login-session packets.
type LoginHandler interface {
	OnLoginAccepted(*LoginAccepted)
	OnLoginRefused(*LoginRefused)
}

// BaseLoginHandler is the no-op LoginHandler, meant for embedding.
type BaseLoginHandler struct{}

func (BaseLoginHandler) OnLoginAccepted(*LoginAccepted) {}
func (BaseLoginHandler) OnLoginRefused(*LoginRefused)   {}

// CharSelectHandler receives decoded character-select packets.
type CharSelectHandler interface {
	OnCharacterList(*CharacterList)
	OnCharSelectRefused(*CharSelectRefused)
	OnZoneHandoff(*ZoneHandoff)
}

// BaseCharSelectHandler is the no-op CharSelectHandler, meant for
// embedding.
type BaseCharSelectHandler struct{}

func (BaseCharSelectHandler) OnCharacterList(*CharacterList)         {}
func (BaseCharSelectHandler) OnCharSelectRefused(*CharSelectRefused) {}
func (BaseCharSelectHandler) OnZoneHandoff(*ZoneHandoff)             {}

// MapHandler receives decoded in-map packets.
type MapHandler interface {
	OnEnterWorld(*EnterWorldAck)
	OnServerTick(*ServerTick)
	OnActorChat(*ActorChat)
	OnOwnChat(*OwnChat)
	OnActorVanished(*ActorVanished)
	OnMapChange(*MapChange)
	OnItemGained(*ItemGained)
	OnItemRemoved(*ItemRemoved)
	OnStatusChanged(*StatusChange)
}

// BaseMapHandler is the no-op MapHandler, meant for embedding.
type BaseMapHandler struct{}

func (BaseMapHandler) OnEnterWorld(*EnterWorldAck)     {}
func (BaseMapHandler) OnServerTick(*ServerTick)        {}
func (BaseMapHandler) OnActorChat(*ActorChat)          {}
func (BaseMapHandler) OnOwnChat(*OwnChat)              {}
func (BaseMapHandler) OnActorVanished(*ActorVanished)  {}
func (BaseMapHandler) OnMapChange(*MapChange)          {}
func (BaseMapHandler) OnItemGained(*ItemGained)        {}
func (BaseMapHandler) OnItemRemoved(*ItemRemoved)      {}
func (BaseMapHandler) OnStatusChanged(*StatusChange)   {}

// Handlers bundles the capability implementations a connection runs
// with. Nil members fall back to the no-op Base implementations, so a
// login-only connection need not supply map handlers.
type Handlers struct {
	Login LoginHandler
	Char  CharSelectHandler
	Map   MapHandler
}

func (h Handlers) login() LoginHandler {
	if h.Login != nil {
		return h.Login
	}
	return BaseLoginHandler{}
}

func (h Handlers) char() CharSelectHandler {
	if h.Char != nil {
		return h.Char
	}
	return BaseCharSelectHandler{}
}

func (h Handlers) gameMap() MapHandler {
	if h.Map != nil {
		return h.Map
	}
	return BaseMapHandler{}
}
