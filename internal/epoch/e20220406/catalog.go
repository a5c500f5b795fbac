package e20220406

import (
	"github.com/ragnet-project/ragnet/internal/codec"
	"github.com/ragnet-project/ragnet/internal/epoch"
)

// NewCatalog builds the dispatch table for epoch 20220406.
func NewCatalog() *epoch.Catalog[Handlers] {
	return epoch.MustCatalog(epoch.E20220406, []epoch.Spec[Handlers]{
		// Login session
		{Opcode: OpLoginAccepted, Name: "login_accepted", Size: epoch.SizeVariable,
			Handle: func(h Handlers, r *codec.Reader) error {
				var p LoginAccepted
				if err := p.DecodeFrom(r); err != nil {
					return err
				}
				h.login().OnLoginAccepted(&p)
				return nil
			}},
		{Opcode: OpLoginRefused, Name: "login_refused", Size: 26,
			Handle: func(h Handlers, r *codec.Reader) error {
				var p LoginRefused
				if err := p.DecodeFrom(r); err != nil {
					return err
				}
				h.login().OnLoginRefused(&p)
				return nil
			}},

		// Character-select session
		{Opcode: OpCharacterList, Name: "character_list", Size: epoch.SizeVariable,
			Handle: func(h Handlers, r *codec.Reader) error {
				var p CharacterList
				if err := p.DecodeFrom(r); err != nil {
					return err
				}
				h.char().OnCharacterList(&p)
				return nil
			}},
		{Opcode: OpCharSelectRefused, Name: "char_select_refused", Size: 3,
			Handle: func(h Handlers, r *codec.Reader) error {
				var p CharSelectRefused
				if err := codec.ReadStruct(r, &p); err != nil {
					return err
				}
				h.char().OnCharSelectRefused(&p)
				return nil
			}},
		{Opcode: OpZoneHandoff, Name: "zone_handoff", Size: 156,
			Handle: func(h Handlers, r *codec.Reader) error {
				var p ZoneHandoff
				if err := p.DecodeFrom(r); err != nil {
					return err
				}
				h.char().OnZoneHandoff(&p)
				return nil
			}},

		// In-map session
		{Opcode: OpEnterWorld, Name: "enter_world", Size: 13,
			Handle: func(h Handlers, r *codec.Reader) error {
				var p EnterWorldAck
				if err := codec.ReadStruct(r, &p); err != nil {
					return err
				}
				h.gameMap().OnEnterWorld(&p)
				return nil
			}},
		{Opcode: OpServerTick, Name: "server_tick", Size: 6,
			Handle: func(h Handlers, r *codec.Reader) error {
				var p ServerTick
				if err := codec.ReadStruct(r, &p); err != nil {
					return err
				}
				h.gameMap().OnServerTick(&p)
				return nil
			}},
		{Opcode: OpActorChat, Name: "actor_chat", Size: epoch.SizeVariable,
			Handle: func(h Handlers, r *codec.Reader) error {
				var p ActorChat
				if err := p.DecodeFrom(r); err != nil {
					return err
				}
				h.gameMap().OnActorChat(&p)
				return nil
			}},
		{Opcode: OpOwnChat, Name: "own_chat", Size: epoch.SizeVariable,
			Handle: func(h Handlers, r *codec.Reader) error {
				var p OwnChat
				if err := p.DecodeFrom(r); err != nil {
					return err
				}
				h.gameMap().OnOwnChat(&p)
				return nil
			}},
		{Opcode: OpActorVanished, Name: "actor_vanished", Size: 7,
			Handle: func(h Handlers, r *codec.Reader) error {
				var p ActorVanished
				if err := p.DecodeFrom(r); err != nil {
					return err
				}
				h.gameMap().OnActorVanished(&p)
				return nil
			}},
		{Opcode: OpMapChange, Name: "map_change", Size: 22,
			Handle: func(h Handlers, r *codec.Reader) error {
				var p MapChange
				if err := p.DecodeFrom(r); err != nil {
					return err
				}
				h.gameMap().OnMapChange(&p)
				return nil
			}},
		{Opcode: OpItemGained, Name: "item_gained", Size: 41,
			Handle: func(h Handlers, r *codec.Reader) error {
				var p ItemGained
				if err := codec.ReadStruct(r, &p); err != nil {
					return err
				}
				h.gameMap().OnItemGained(&p)
				return nil
			}},
		{Opcode: OpItemRemoved, Name: "item_removed", Size: 8,
			Handle: func(h Handlers, r *codec.Reader) error {
				var p ItemRemoved
				if err := p.DecodeFrom(r); err != nil {
					return err
				}
				h.gameMap().OnItemRemoved(&p)
				return nil
			}},
		{Opcode: OpStatusChanged, Name: "status_changed", Size: 8,
			Handle: func(h Handlers, r *codec.Reader) error {
				var p StatusChange
				if err := p.DecodeFrom(r); err != nil {
					return err
				}
				h.gameMap().OnStatusChanged(&p)
				return nil
			}},
		{Opcode: OpStatusChangedWide, Name: "status_changed_wide", Size: 12,
			Handle: func(h Handlers, r *codec.Reader) error {
				var p StatusChangeWide
				if err := p.DecodeFrom(r); err != nil {
					return err
				}
				h.gameMap().OnStatusChangedWide(&p)
				return nil
			}},
	})
}
