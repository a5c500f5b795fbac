package e20120307

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/ragnet-project/ragnet/internal/codec"
)

func TestFixedRecordSizesMatchCatalog(t *testing.T) {
	cat := NewCatalog()

	tests := []struct {
		opcode uint16
		size   int
	}{
		{OpEnterWorld, 2 + 9},
		{OpServerTick, 2 + 4},
		{OpActorVanished, 2 + 5},
		{OpMapChange, 2 + 20},
		{OpItemGained, 2 + 21},
		{OpItemRemoved, 2 + 4},
		{OpStatusChanged, 2 + 6},
		{OpZoneHandoff, 2 + 26},
		{OpLoginRefused, 2 + 21},
		{OpCharSelectRefused, 2 + 1},
	}

	for _, tt := range tests {
		spec, ok := cat.Lookup(tt.opcode)
		if !ok {
			t.Fatalf("opcode 0x%04x missing from catalog", tt.opcode)
		}
		if spec.Size != tt.size {
			t.Errorf("%s: catalog size %d, wire layout says %d", spec.Name, spec.Size, tt.size)
		}
	}

	// The size fact of the pure-scalar records must agree with the
	// catalog's framing rule.
	if n, ok := codec.SizeOf[ItemGained](); !ok || n != 21 {
		t.Errorf("ItemGained size fact = %d, %v; want 21", n, ok)
	}
	if n, ok := codec.SizeOf[EnterWorldAck](); !ok || n != 9 {
		t.Errorf("EnterWorldAck size fact = %d, %v; want 9", n, ok)
	}
}

func TestLoginAcceptedRoundTrip(t *testing.T) {
	in := LoginAccepted{
		LoginID1:  0x11111111,
		AccountID: 2000001,
		LoginID2:  0x22222222,
		LastLogin: "2012-03-07 11:22:33",
		Sex:       1,
		Realms: []RealmEntry{
			{IP: 0x0100007f, Port: 6121, Name: "Chaos", Users: 1534},
			{IP: 0x0200007f, Port: 6122, Name: "Loki", Users: 877, New: 1},
		},
	}

	w := codec.NewWriter()
	in.EncodeTo(w)

	var out LoginAccepted
	r := codec.NewReader(w.Bytes())
	if err := out.DecodeFrom(r); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch:\n in %+v\nout %+v", in, out)
	}

	// One byte short anywhere in the last realm entry must fail.
	r = codec.NewReader(w.Bytes()[:w.Len()-1])
	var short LoginAccepted
	if err := short.DecodeFrom(r); !errors.Is(err, codec.ErrShortBuffer) {
		t.Fatalf("expected ErrShortBuffer on truncated realm list, got %v", err)
	}
}

func TestCharacterListRoundTrip(t *testing.T) {
	in := CharacterList{
		TotalSlots:   9,
		PremiumSlots: 3,
		Characters: []CharEntry{{
			CharID:    150000,
			Zeny:      5000,
			JobLevel:  10,
			HP:        40,
			MaxHP:     40,
			SP:        11,
			MaxSP:     11,
			WalkSpeed: 150,
			Class:     1,
			Weapon:    1201,
			BaseLevel: 12,
			Name:      "Roan",
			Str:       5, Agi: 5, Vit: 5, Int: 5, Dex: 5, Luk: 5,
			Slot:    0,
			MapName: "prontera",
		}},
	}

	w := codec.NewWriter()
	in.EncodeTo(w)
	if want := 23 + charEntrySize; w.Len() != want {
		t.Fatalf("encoded %d bytes, want %d", w.Len(), want)
	}

	var out CharacterList
	if err := out.DecodeFrom(codec.NewReader(w.Bytes())); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch:\n in %+v\nout %+v", in, out)
	}
}

func TestStatusChangeRejectsUnknownParam(t *testing.T) {
	raw := codec.NewWriter().
		WriteUint16(0x4444). // not a StatusParam
		WriteUint32(1).
		Bytes()

	var p StatusChange
	if err := p.DecodeFrom(codec.NewReader(raw)); !errors.Is(err, codec.ErrBadEnum) {
		t.Fatalf("expected ErrBadEnum, got %v", err)
	}
}

func TestActorVanishedRejectsUnknownType(t *testing.T) {
	raw := codec.NewWriter().WriteUint32(42).WriteUint8(9).Bytes()

	var p ActorVanished
	if err := p.DecodeFrom(codec.NewReader(raw)); !errors.Is(err, codec.ErrBadEnum) {
		t.Fatalf("expected ErrBadEnum, got %v", err)
	}
}

func TestBuildLoginLayout(t *testing.T) {
	frame := BuildLogin(20120307, "novice", "secret", 0x12)
	if len(frame) != 55 {
		t.Fatalf("login frame is %d bytes, want 55", len(frame))
	}
	if frame[0] != 0x64 || frame[1] != 0x00 {
		t.Fatalf("wrong opcode bytes: %x", frame[:2])
	}
	if !bytes.Equal(frame[6:12], []byte("novice")) {
		t.Fatalf("username not at offset 6: %x", frame[6:12])
	}
	if frame[12] != 0 {
		t.Fatal("username field not zero padded")
	}
	if frame[54] != 0x12 {
		t.Fatalf("client type = %#x, want 0x12", frame[54])
	}
}

func TestBuildChatIsVariableFrame(t *testing.T) {
	frame := BuildChat("Roan", "hello")
	if got := uint16(frame[2]) | uint16(frame[3])<<8; int(got) != len(frame) {
		t.Fatalf("length word %d does not match frame length %d", got, len(frame))
	}
}

// collectMap overrides a subset of MapHandler and records what it saw.
type collectMap struct {
	BaseMapHandler
	items []*ItemGained
}

func (c *collectMap) OnItemGained(p *ItemGained) { c.items = append(c.items, p) }

func TestHandlersDefaultFallthrough(t *testing.T) {
	c := &collectMap{}
	h := Handlers{Map: c}
	cat := NewCatalog()

	// A packet kind the receiver did not override runs the no-op body.
	spec, _ := cat.Lookup(OpServerTick)
	w := codec.NewWriter()
	_ = codec.WriteStruct(w, &ServerTick{Tick: 99})
	if err := spec.Handle(h, codec.NewReader(w.Bytes())); err != nil {
		t.Fatalf("default handler: %v", err)
	}

	// An overridden kind reaches the concrete receiver.
	spec, _ = cat.Lookup(OpItemGained)
	w = codec.NewWriter()
	_ = codec.WriteStruct(w, &ItemGained{Index: 2, Amount: 3, ItemID: 501})
	if err := spec.Handle(h, codec.NewReader(w.Bytes())); err != nil {
		t.Fatalf("item handler: %v", err)
	}
	if len(c.items) != 1 || c.items[0].ItemID != 501 {
		t.Fatalf("item callback not invoked correctly: %+v", c.items)
	}

	// Nil category handlers fall back to the package defaults.
	spec, _ = cat.Lookup(OpLoginRefused)
	w = codec.NewWriter()
	(&LoginRefused{Reason: RefuseBadPassword}).EncodeTo(w)
	if err := spec.Handle(Handlers{}, codec.NewReader(w.Bytes())); err != nil {
		t.Fatalf("nil login handler: %v", err)
	}
}
