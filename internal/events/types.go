// Package events defines the version-independent event vocabulary the
// protocol layer emits. Packet records are epoch-scoped; the payloads
// here are not, so everything above the session layer (journal,
// telemetry, API) consumes one shape regardless of which revision the
// wire spoke.
package events

import "time"

// EventType identifies an event emitted through the Bus.
type EventType string

const (
	// Account phase
	EventLoginAccepted EventType = "login_accepted"
	EventLoginRefused  EventType = "login_refused"

	// Character phase
	EventCharacterList     EventType = "character_list"
	EventCharSelectRefused EventType = "char_select_refused"
	EventZoneHandoff       EventType = "zone_handoff"

	// Map phase
	EventEnterWorld    EventType = "enter_world"
	EventServerTick    EventType = "server_tick"
	EventChat          EventType = "chat"
	EventActorVanished EventType = "actor_vanished"
	EventMapChange     EventType = "map_change"
	EventItemGained    EventType = "item_gained"
	EventItemRemoved   EventType = "item_removed"
	EventStatusChanged EventType = "status_changed"

	// Session lifecycle
	EventSessionConnected    EventType = "session_connected"
	EventSessionBound        EventType = "session_bound"
	EventSessionDisconnected EventType = "session_disconnected"
	EventUnknownOpcode       EventType = "unknown_opcode"
	EventMalformedFrame      EventType = "malformed_frame"
	EventSessionStale        EventType = "session_stale"

	// Health
	EventHeartbeat EventType = "heartbeat"

	// System
	EventConfigChanged EventType = "config_changed"
	EventShutdown      EventType = "shutdown"
)

// Event is a single occurrence on the bus. Source names the emitting
// connection or component.
type Event struct {
	Type    EventType
	Source  string
	Payload interface{}
}

// Realm is one world-server entry from the login roster.
type Realm struct {
	Host    string `json:"host"`
	Port    uint16 `json:"port"`
	Name    string `json:"name"`
	Users   uint16 `json:"users"`
	State   uint16 `json:"state"`
	IsAdult bool   `json:"is_adult"`
}

// LoginAcceptedPayload carries the session credentials and the realm
// roster. The IDs are opaque tokens echoed back in later phases.
type LoginAcceptedPayload struct {
	AccountID uint32  `json:"account_id"`
	LoginID1  uint32  `json:"login_id1"`
	LoginID2  uint32  `json:"login_id2"`
	Sex       uint8   `json:"sex"`
	Realms    []Realm `json:"realms"`
}

// LoginRefusedPayload carries the refusal code already widened from
// whichever integer width the epoch used on the wire.
type LoginRefusedPayload struct {
	Reason    uint32 `json:"reason"`
	BlockDate string `json:"block_date,omitempty"`
}

// Character is one roster slot, with the exp/HP columns widened to 64
// bits so both epochs fit.
type Character struct {
	CharID  uint32 `json:"char_id"`
	Slot    uint16 `json:"slot"`
	Name    string `json:"name"`
	Class   uint16 `json:"class"`
	BaseLvl uint16 `json:"base_level"`
	JobLvl  uint16 `json:"job_level"`
	BaseExp uint64 `json:"base_exp"`
	JobExp  uint64 `json:"job_exp"`
	HP      uint64 `json:"hp"`
	MaxHP   uint64 `json:"max_hp"`
	SP      uint64 `json:"sp"`
	MaxSP   uint64 `json:"max_sp"`
	Zeny    uint32 `json:"zeny"`
	MapName string `json:"map_name"`
}

// CharacterListPayload is the full roster.
type CharacterListPayload struct {
	MaxSlots     uint8       `json:"max_slots"`
	PremiumSlots uint8       `json:"premium_slots"`
	Characters   []Character `json:"characters"`
}

// CharSelectRefusedPayload carries the character-phase refusal code.
type CharSelectRefusedPayload struct {
	Reason uint8 `json:"reason"`
}

// ZoneHandoffPayload points the client at the map server that owns the
// selected character.
type ZoneHandoffPayload struct {
	CharID  uint32 `json:"char_id"`
	MapName string `json:"map_name"`
	Host    string `json:"host"`
	Port    uint16 `json:"port"`
}

// EnterWorldPayload confirms the map-server spawn.
type EnterWorldPayload struct {
	Tick uint32 `json:"tick"`
	X    uint16 `json:"x"`
	Y    uint16 `json:"y"`
	Dir  uint8  `json:"dir"`
}

// ServerTickPayload echoes the map server's clock.
type ServerTickPayload struct {
	Tick uint32 `json:"tick"`
}

// ChatPayload is one chat line. SourceID is zero for the client's own
// echoed chat.
type ChatPayload struct {
	SourceID uint32 `json:"source_id,omitempty"`
	Message  string `json:"message"`
	Own      bool   `json:"own"`
}

// ActorVanishedPayload reports an actor leaving view.
type ActorVanishedPayload struct {
	ActorID uint32 `json:"actor_id"`
	Reason  uint8  `json:"reason"`
}

// MapChangePayload reports a warp within the same map server.
type MapChangePayload struct {
	MapName string `json:"map_name"`
	X       uint16 `json:"x"`
	Y       uint16 `json:"y"`
}

// ItemGainedPayload reports an inventory addition. ItemID is widened
// to 32 bits; the classic epoch's 16-bit IDs fit without loss.
type ItemGainedPayload struct {
	Index  uint16 `json:"index"`
	Amount uint16 `json:"amount"`
	ItemID uint32 `json:"item_id"`
	Refine uint8  `json:"refine"`
}

// ItemRemovedPayload reports an inventory removal.
type ItemRemovedPayload struct {
	Index  uint16 `json:"index"`
	Amount uint16 `json:"amount"`
}

// StatusChangedPayload reports a status-parameter update, value
// widened to 64 bits to fit the modern epoch's wide variant.
type StatusChangedPayload struct {
	Param uint16 `json:"param"`
	Value uint64 `json:"value"`
}

// SessionPayload describes a connection lifecycle transition.
type SessionPayload struct {
	Conn   string    `json:"conn"`
	Remote string    `json:"remote,omitempty"`
	Epoch  string    `json:"epoch,omitempty"`
	At     time.Time `json:"at"`
}

// SessionStalePayload flags a bound connection that has not produced a
// frame within the liveness window.
type SessionStalePayload struct {
	Conn      string    `json:"conn"`
	Remote    string    `json:"remote"`
	LastFrame time.Time `json:"last_frame"`
	IdleSec   int64     `json:"idle_sec"`
}

// UnknownOpcodePayload records a dropped frame.
type UnknownOpcodePayload struct {
	Conn   string `json:"conn"`
	Epoch  string `json:"epoch"`
	Opcode uint16 `json:"opcode"`
}

// MalformedFramePayload records a frame that failed to decode.
type MalformedFramePayload struct {
	Conn   string `json:"conn"`
	Epoch  string `json:"epoch"`
	Opcode uint16 `json:"opcode"`
	Packet string `json:"packet"`
	Reason string `json:"reason"`
}

// ConfigChangedPayload is emitted when configuration changes at
// runtime.
type ConfigChangedPayload struct {
	Section string      `json:"section"`
	Key     string      `json:"key"`
	Value   interface{} `json:"value"`
}
