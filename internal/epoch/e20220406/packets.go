// Package e20220406 declares the packet catalog for protocol epoch
// 20220406, the modern revision. Item and equipment IDs are 32-bit,
// experience and HP fields widened to 64-bit, several opcodes moved,
// and the login refusal and zone handoff packets grew new fields.
//
// Record layouts are fixed by the historical wire format and must be
// preserved byte-for-byte; field order in the structs below is wire
// order. Packet kinds shared with epoch 20120307 are still distinct
// types here: the layouts differ and nothing above the capability
// callbacks may depend on a particular epoch's shapes.
package e20220406

import (
	"github.com/ragnet-project/ragnet/internal/codec"
)

// Wire tags for every packet kind this epoch knows.
const (
	// Login session
	OpLogin         uint16 = 0x0064 // client: credentials, unchanged layout
	OpLoginAccepted uint16 = 0x0ac4 // server: session IDs + widened realm list
	OpLoginRefused  uint16 = 0x083e // server: 32-bit refusal code + block date

	// Character-select session
	OpCharEnter         uint16 = 0x0065 // client: enter character server
	OpCharacterList     uint16 = 0x099d // server: widened character roster
	OpCharSelectRefused uint16 = 0x006c // server: refusal code
	OpCharSelect        uint16 = 0x0066 // client: pick a slot
	OpZoneHandoff       uint16 = 0x0ac5 // server: map server address + DNS host

	// In-map session
	OpMapEnter          uint16 = 0x0436 // client: enter map server
	OpEnterWorld        uint16 = 0x02eb // server: spawn acknowledge + font
	OpKeepalive         uint16 = 0x0360 // client: tick echo (moved opcode)
	OpServerTick        uint16 = 0x007f // server: tick broadcast
	OpActorChat         uint16 = 0x008d // server: chat from another actor
	OpOwnChat           uint16 = 0x008e // server: own chat echoed back
	OpRequestChat       uint16 = 0x00f3 // client: say in chat (moved opcode)
	OpActorVanished     uint16 = 0x0080 // server: actor left view
	OpMapChange         uint16 = 0x0091 // server: warp to another map
	OpItemGained        uint16 = 0x0a37 // server: item entered inventory, 32-bit IDs
	OpItemRemoved       uint16 = 0x07fa // server: item left inventory, with cause
	OpStatusChanged     uint16 = 0x00b0 // server: 32-bit status update
	OpStatusChangedWide uint16 = 0x0acb // server: 64-bit status update (new in this epoch)
	OpRequestMove       uint16 = 0x035f // client: walk to position
)

// RefuseReason is the login refusal code carried by OpLoginRefused,
// widened to 32 bits in this epoch.
type RefuseReason uint32

const (
	RefuseUnregistered RefuseReason = 0
	RefuseBadPassword  RefuseReason = 1
	RefuseExpired      RefuseReason = 2
	RefuseRejected     RefuseReason = 3
	RefuseBanned       RefuseReason = 4
	RefuseOutdated     RefuseReason = 5
	RefuseBlocked      RefuseReason = 6
)

func (c RefuseReason) valid() bool { return c <= RefuseBlocked }

// VanishType explains why an actor left view (OpActorVanished).
type VanishType uint8

const (
	VanishOutOfSight VanishType = 0
	VanishDied       VanishType = 1
	VanishLoggedOut  VanishType = 2
	VanishTeleported VanishType = 3
)

func (t VanishType) valid() bool { return t <= VanishTeleported }

// RemoveCause explains why an item left the inventory (OpItemRemoved).
type RemoveCause uint16

const (
	RemoveUsed      RemoveCause = 0
	RemoveDropped   RemoveCause = 1
	RemoveTraded    RemoveCause = 2
	RemoveConsumed  RemoveCause = 3
	RemoveDestroyed RemoveCause = 4
)

func (c RemoveCause) valid() bool { return c <= RemoveDestroyed }

// StatusParam identifies the parameter updated by OpStatusChanged and
// OpStatusChangedWide. An unknown tag is a decode failure: guessing
// would desynchronize the rest of the session.
type StatusParam uint16

const (
	StatusSpeed     StatusParam = 0
	StatusBaseExp   StatusParam = 1
	StatusJobExp    StatusParam = 2
	StatusHP        StatusParam = 5
	StatusMaxHP     StatusParam = 6
	StatusSP        StatusParam = 7
	StatusMaxSP     StatusParam = 8
	StatusPoints    StatusParam = 9
	StatusBaseLevel StatusParam = 11
	StatusSkillPts  StatusParam = 12
	StatusZeny      StatusParam = 20
	StatusWeight    StatusParam = 24
	StatusMaxWeight StatusParam = 25
)

func (p StatusParam) valid() bool {
	switch p {
	case StatusSpeed, StatusBaseExp, StatusJobExp, StatusHP, StatusMaxHP,
		StatusSP, StatusMaxSP, StatusPoints, StatusBaseLevel,
		StatusSkillPts, StatusZeny, StatusWeight, StatusMaxWeight:
		return true
	}
	return false
}

// RealmEntry is one game-world row in the login accept packet, 160
// bytes on the wire in this epoch.
type RealmEntry struct {
	IP       uint32
	Port     uint16
	Name     string // 20-byte zero-padded field
	Users    uint16
	Kind     uint16
	New      uint16
	Reserved [128]byte
}

const realmEntrySize = 160

// LoginAccepted is the server's answer to a successful login
// (OpLoginAccepted, variable length).
type LoginAccepted struct {
	LoginID1  uint32
	AccountID uint32
	LoginID2  uint32
	LastIP    uint32
	LastLogin string // 26-byte zero-padded timestamp field
	Sex       uint8
	Realms    []RealmEntry
}

// DecodeFrom implements codec.Decoder.
func (p *LoginAccepted) DecodeFrom(r *codec.Reader) error {
	var err error
	if p.LoginID1, err = r.Uint32(); err != nil {
		return err
	}
	if p.AccountID, err = r.Uint32(); err != nil {
		return err
	}
	if p.LoginID2, err = r.Uint32(); err != nil {
		return err
	}
	if p.LastIP, err = r.Uint32(); err != nil {
		return err
	}
	if p.LastLogin, err = r.FixedString(26); err != nil {
		return err
	}
	if p.Sex, err = r.Uint8(); err != nil {
		return err
	}
	for r.Remaining() > 0 {
		var e RealmEntry
		if e.IP, err = r.Uint32(); err != nil {
			return err
		}
		if e.Port, err = r.Uint16(); err != nil {
			return err
		}
		if e.Name, err = r.FixedString(20); err != nil {
			return err
		}
		if e.Users, err = r.Uint16(); err != nil {
			return err
		}
		if e.Kind, err = r.Uint16(); err != nil {
			return err
		}
		if e.New, err = r.Uint16(); err != nil {
			return err
		}
		raw, err := r.Bytes(len(e.Reserved))
		if err != nil {
			return err
		}
		copy(e.Reserved[:], raw)
		p.Realms = append(p.Realms, e)
	}
	return nil
}

// EncodeTo implements codec.Encoder.
func (p *LoginAccepted) EncodeTo(w *codec.Writer) {
	w.WriteUint32(p.LoginID1).
		WriteUint32(p.AccountID).
		WriteUint32(p.LoginID2).
		WriteUint32(p.LastIP).
		WriteFixedString(p.LastLogin, 26).
		WriteUint8(p.Sex)
	for i := range p.Realms {
		e := &p.Realms[i]
		w.WriteUint32(e.IP).
			WriteUint16(e.Port).
			WriteFixedString(e.Name, 20).
			WriteUint16(e.Users).
			WriteUint16(e.Kind).
			WriteUint16(e.New).
			WriteBytes(e.Reserved[:])
	}
}

// LoginRefused is the server's answer to a failed login
// (OpLoginRefused, 26 bytes). The refusal code is 32-bit here.
type LoginRefused struct {
	Reason    RefuseReason
	BlockDate string // 20-byte zero-padded field
}

// DecodeFrom implements codec.Decoder.
func (p *LoginRefused) DecodeFrom(r *codec.Reader) error {
	code, err := r.Uint32()
	if err != nil {
		return err
	}
	if !RefuseReason(code).valid() {
		return codec.ErrBadEnum
	}
	p.Reason = RefuseReason(code)
	if p.BlockDate, err = r.FixedString(20); err != nil {
		return err
	}
	return nil
}

// EncodeTo implements codec.Encoder.
func (p *LoginRefused) EncodeTo(w *codec.Writer) {
	w.WriteUint32(uint32(p.Reason)).WriteFixedString(p.BlockDate, 20)
}

// CharEntry is one 153-byte character slot in the roster packet.
// Experience, HP and SP are 64-bit and equipment IDs 32-bit in this
// epoch.
type CharEntry struct {
	CharID          uint32
	BaseExp         uint64
	Zeny            uint32
	JobExp          uint64
	JobLevel        uint32
	HP              uint64
	MaxHP           uint64
	SP              uint64
	MaxSP           uint64
	WalkSpeed       uint16
	Class           uint16
	HairStyle       uint16
	Weapon          uint32
	Shield          uint32
	BaseLevel       uint16
	SkillPoints     uint16
	HeadBottom      uint16
	HeadTop         uint16
	HeadMid         uint16
	HairColor       uint16
	ClothesColor    uint16
	Name            string // 24-byte zero-padded field
	Str             uint8
	Agi             uint8
	Vit             uint8
	Int             uint8
	Dex             uint8
	Luk             uint8
	Slot            uint8
	Renamed         uint8
	MapName         string // 16-byte zero-padded field
	DeleteDate      uint32
	RobeID          uint32
	SlotChangeCount uint32
	RenameCount     uint32
	Sex             uint8
}

const charEntrySize = 153

type charEntryHead struct {
	CharID       uint32
	BaseExp      uint64
	Zeny         uint32
	JobExp       uint64
	JobLevel     uint32
	HP           uint64
	MaxHP        uint64
	SP           uint64
	MaxSP        uint64
	WalkSpeed    uint16
	Class        uint16
	HairStyle    uint16
	Weapon       uint32
	Shield       uint32
	BaseLevel    uint16
	SkillPoints  uint16
	HeadBottom   uint16
	HeadTop      uint16
	HeadMid      uint16
	HairColor    uint16
	ClothesColor uint16
}

type charEntryTail struct {
	DeleteDate      uint32
	RobeID          uint32
	SlotChangeCount uint32
	RenameCount     uint32
	Sex             uint8
}

func (e *CharEntry) decodeFrom(r *codec.Reader) error {
	var head charEntryHead
	if err := codec.ReadStruct(r, &head); err != nil {
		return err
	}
	e.CharID = head.CharID
	e.BaseExp = head.BaseExp
	e.Zeny = head.Zeny
	e.JobExp = head.JobExp
	e.JobLevel = head.JobLevel
	e.HP = head.HP
	e.MaxHP = head.MaxHP
	e.SP = head.SP
	e.MaxSP = head.MaxSP
	e.WalkSpeed = head.WalkSpeed
	e.Class = head.Class
	e.HairStyle = head.HairStyle
	e.Weapon = head.Weapon
	e.Shield = head.Shield
	e.BaseLevel = head.BaseLevel
	e.SkillPoints = head.SkillPoints
	e.HeadBottom = head.HeadBottom
	e.HeadTop = head.HeadTop
	e.HeadMid = head.HeadMid
	e.HairColor = head.HairColor
	e.ClothesColor = head.ClothesColor

	var err error
	if e.Name, err = r.FixedString(24); err != nil {
		return err
	}
	var stats [8]uint8
	for i := range stats {
		if stats[i], err = r.Uint8(); err != nil {
			return err
		}
	}
	e.Str, e.Agi, e.Vit, e.Int, e.Dex, e.Luk = stats[0], stats[1], stats[2], stats[3], stats[4], stats[5]
	e.Slot, e.Renamed = stats[6], stats[7]
	if e.MapName, err = r.FixedString(16); err != nil {
		return err
	}
	var tail charEntryTail
	if err := codec.ReadStruct(r, &tail); err != nil {
		return err
	}
	e.DeleteDate = tail.DeleteDate
	e.RobeID = tail.RobeID
	e.SlotChangeCount = tail.SlotChangeCount
	e.RenameCount = tail.RenameCount
	e.Sex = tail.Sex
	return nil
}

func (e *CharEntry) encodeTo(w *codec.Writer) {
	head := charEntryHead{
		CharID: e.CharID, BaseExp: e.BaseExp, Zeny: e.Zeny,
		JobExp: e.JobExp, JobLevel: e.JobLevel, HP: e.HP, MaxHP: e.MaxHP,
		SP: e.SP, MaxSP: e.MaxSP, WalkSpeed: e.WalkSpeed, Class: e.Class,
		HairStyle: e.HairStyle, Weapon: e.Weapon, Shield: e.Shield,
		BaseLevel: e.BaseLevel, SkillPoints: e.SkillPoints,
		HeadBottom: e.HeadBottom, HeadTop: e.HeadTop, HeadMid: e.HeadMid,
		HairColor: e.HairColor, ClothesColor: e.ClothesColor,
	}
	_ = codec.WriteStruct(w, &head)
	w.WriteFixedString(e.Name, 24).
		WriteUint8(e.Str).WriteUint8(e.Agi).WriteUint8(e.Vit).
		WriteUint8(e.Int).WriteUint8(e.Dex).WriteUint8(e.Luk).
		WriteUint8(e.Slot).WriteUint8(e.Renamed).
		WriteFixedString(e.MapName, 16)
	tail := charEntryTail{
		DeleteDate: e.DeleteDate, RobeID: e.RobeID,
		SlotChangeCount: e.SlotChangeCount, RenameCount: e.RenameCount,
		Sex: e.Sex,
	}
	_ = codec.WriteStruct(w, &tail)
}

// CharacterList is the roster sent after entering the character server
// (OpCharacterList, variable length).
type CharacterList struct {
	TotalSlots   uint8
	PremiumSlots uint8
	BillingSlots uint8
	Characters   []CharEntry
}

// DecodeFrom implements codec.Decoder.
func (p *CharacterList) DecodeFrom(r *codec.Reader) error {
	var err error
	if p.TotalSlots, err = r.Uint8(); err != nil {
		return err
	}
	if p.PremiumSlots, err = r.Uint8(); err != nil {
		return err
	}
	if p.BillingSlots, err = r.Uint8(); err != nil {
		return err
	}
	if err = r.Skip(20); err != nil { // reserved
		return err
	}
	for r.Remaining() > 0 {
		var e CharEntry
		if err := e.decodeFrom(r); err != nil {
			return err
		}
		p.Characters = append(p.Characters, e)
	}
	return nil
}

// EncodeTo implements codec.Encoder.
func (p *CharacterList) EncodeTo(w *codec.Writer) {
	w.WriteUint8(p.TotalSlots).
		WriteUint8(p.PremiumSlots).
		WriteUint8(p.BillingSlots).
		WriteBytes(make([]byte, 20))
	for i := range p.Characters {
		p.Characters[i].encodeTo(w)
	}
}

// CharSelectRefused reports a character-server rejection
// (OpCharSelectRefused, 3 bytes).
type CharSelectRefused struct {
	Reason uint8
}

// ZoneHandoff carries the map server address for the selected
// character (OpZoneHandoff, 156 bytes). This epoch appends a DNS host
// field for deployments behind load balancers.
type ZoneHandoff struct {
	CharID  uint32
	MapName string // 16-byte zero-padded field
	IP      uint32
	Port    uint16
	DNSHost string // 128-byte zero-padded field
}

// DecodeFrom implements codec.Decoder.
func (p *ZoneHandoff) DecodeFrom(r *codec.Reader) error {
	var err error
	if p.CharID, err = r.Uint32(); err != nil {
		return err
	}
	if p.MapName, err = r.FixedString(16); err != nil {
		return err
	}
	if p.IP, err = r.Uint32(); err != nil {
		return err
	}
	if p.Port, err = r.Uint16(); err != nil {
		return err
	}
	if p.DNSHost, err = r.FixedString(128); err != nil {
		return err
	}
	return nil
}

// EncodeTo implements codec.Encoder.
func (p *ZoneHandoff) EncodeTo(w *codec.Writer) {
	w.WriteUint32(p.CharID).
		WriteFixedString(p.MapName, 16).
		WriteUint32(p.IP).
		WriteUint16(p.Port).
		WriteFixedString(p.DNSHost, 128)
}

// EnterWorldAck acknowledges the spawn into a map (OpEnterWorld,
// 13 bytes). This epoch appends the font field.
type EnterWorldAck struct {
	Tick  uint32
	Pos   [3]byte
	XSize uint8
	YSize uint8
	Font  uint16
}

// ServerTick is the periodic tick broadcast (OpServerTick, 6 bytes).
type ServerTick struct {
	Tick uint32
}

// ActorChat is public chat from another actor (OpActorChat, variable
// length).
type ActorChat struct {
	SourceID uint32
	Message  string
}

// DecodeFrom implements codec.Decoder.
func (p *ActorChat) DecodeFrom(r *codec.Reader) error {
	var err error
	if p.SourceID, err = r.Uint32(); err != nil {
		return err
	}
	p.Message = r.RestString()
	return nil
}

// EncodeTo implements codec.Encoder.
func (p *ActorChat) EncodeTo(w *codec.Writer) {
	w.WriteUint32(p.SourceID).WriteCString(p.Message)
}

// OwnChat is the client's own chat line echoed back (OpOwnChat,
// variable length).
type OwnChat struct {
	Message string
}

// DecodeFrom implements codec.Decoder.
func (p *OwnChat) DecodeFrom(r *codec.Reader) error {
	p.Message = r.RestString()
	return nil
}

// EncodeTo implements codec.Encoder.
func (p *OwnChat) EncodeTo(w *codec.Writer) {
	w.WriteCString(p.Message)
}

// ActorVanished reports an actor leaving view (OpActorVanished,
// 7 bytes).
type ActorVanished struct {
	ActorID uint32
	Type    VanishType
}

// DecodeFrom implements codec.Decoder.
func (p *ActorVanished) DecodeFrom(r *codec.Reader) error {
	var err error
	if p.ActorID, err = r.Uint32(); err != nil {
		return err
	}
	t, err := r.Uint8()
	if err != nil {
		return err
	}
	if !VanishType(t).valid() {
		return codec.ErrBadEnum
	}
	p.Type = VanishType(t)
	return nil
}

// EncodeTo implements codec.Encoder.
func (p *ActorVanished) EncodeTo(w *codec.Writer) {
	w.WriteUint32(p.ActorID).WriteUint8(uint8(p.Type))
}

// MapChange orders the client onto another map (OpMapChange, 22 bytes).
type MapChange struct {
	MapName string // 16-byte zero-padded field
	X       uint16
	Y       uint16
}

// DecodeFrom implements codec.Decoder.
func (p *MapChange) DecodeFrom(r *codec.Reader) error {
	var err error
	if p.MapName, err = r.FixedString(16); err != nil {
		return err
	}
	if p.X, err = r.Uint16(); err != nil {
		return err
	}
	if p.Y, err = r.Uint16(); err != nil {
		return err
	}
	return nil
}

// EncodeTo implements codec.Encoder.
func (p *MapChange) EncodeTo(w *codec.Writer) {
	w.WriteFixedString(p.MapName, 16).WriteUint16(p.X).WriteUint16(p.Y)
}

// ItemGained reports an item entering the inventory (OpItemGained,
// 41 bytes). ItemID and card slots are 32-bit in this epoch, and the
// packet carries rental and binding information.
type ItemGained struct {
	Index       uint16
	Amount      uint16
	ItemID      uint32
	Identified  uint8
	Damaged     uint8
	Refine      uint8
	Cards       [4]uint32
	Location    uint32
	ItemType    uint8
	Result      uint8
	ExpireDate  uint32
	BindOnEquip uint16
}

// ItemRemoved reports an item leaving the inventory (OpItemRemoved,
// 8 bytes), with the removal cause this epoch added.
type ItemRemoved struct {
	Cause  RemoveCause
	Index  uint16
	Amount uint16
}

// DecodeFrom implements codec.Decoder.
func (p *ItemRemoved) DecodeFrom(r *codec.Reader) error {
	cause, err := r.Uint16()
	if err != nil {
		return err
	}
	if !RemoveCause(cause).valid() {
		return codec.ErrBadEnum
	}
	p.Cause = RemoveCause(cause)
	if p.Index, err = r.Uint16(); err != nil {
		return err
	}
	if p.Amount, err = r.Uint16(); err != nil {
		return err
	}
	return nil
}

// EncodeTo implements codec.Encoder.
func (p *ItemRemoved) EncodeTo(w *codec.Writer) {
	w.WriteUint16(uint16(p.Cause)).WriteUint16(p.Index).WriteUint16(p.Amount)
}

// StatusChange is a 32-bit status parameter update (OpStatusChanged,
// 8 bytes).
type StatusChange struct {
	Param StatusParam
	Value uint32
}

// DecodeFrom implements codec.Decoder.
func (p *StatusChange) DecodeFrom(r *codec.Reader) error {
	tag, err := r.Uint16()
	if err != nil {
		return err
	}
	if !StatusParam(tag).valid() {
		return codec.ErrBadEnum
	}
	p.Param = StatusParam(tag)
	if p.Value, err = r.Uint32(); err != nil {
		return err
	}
	return nil
}

// EncodeTo implements codec.Encoder.
func (p *StatusChange) EncodeTo(w *codec.Writer) {
	w.WriteUint16(uint16(p.Param)).WriteUint32(p.Value)
}

// StatusChangeWide is the 64-bit status update this epoch introduced
// for experience and weight totals that outgrew 32 bits
// (OpStatusChangedWide, 12 bytes).
type StatusChangeWide struct {
	Param StatusParam
	Value uint64
}

// DecodeFrom implements codec.Decoder.
func (p *StatusChangeWide) DecodeFrom(r *codec.Reader) error {
	tag, err := r.Uint16()
	if err != nil {
		return err
	}
	if !StatusParam(tag).valid() {
		return codec.ErrBadEnum
	}
	p.Param = StatusParam(tag)
	if p.Value, err = r.Uint64(); err != nil {
		return err
	}
	return nil
}

// EncodeTo implements codec.Encoder.
func (p *StatusChangeWide) EncodeTo(w *codec.Writer) {
	w.WriteUint16(uint16(p.Param)).WriteUint64(p.Value)
}
