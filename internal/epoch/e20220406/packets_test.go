package e20220406

import (
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
		{OpLoginRefused, 26},
		{OpCharSelectRefused, 3},
		{OpZoneHandoff, 156},
		{OpEnterWorld, 13},
		{OpServerTick, 6},
		{OpActorVanished, 7},
		{OpMapChange, 22},
		{OpItemGained, 41},
		{OpItemRemoved, 8},
		{OpStatusChanged, 8},
		{OpStatusChangedWide, 12},
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

	if n, ok := codec.SizeOf[ItemGained](); !ok || n != 39 {
		t.Errorf("ItemGained size fact = %d, %v; want 39", n, ok)
	}
	if n, ok := codec.SizeOf[EnterWorldAck](); !ok || n != 11 {
		t.Errorf("EnterWorldAck size fact = %d, %v; want 11", n, ok)
	}
}

func TestClassicItemOpcodeNotInCatalog(t *testing.T) {
	// 0x00a0 was the classic item pickup; this epoch replaced it with
	// 0x0a37 and must not answer to the old tag.
	if _, ok := NewCatalog().Lookup(0x00a0); ok {
		t.Fatal("classic opcode 0x00a0 must not exist in epoch 20220406")
	}
}

func TestItemGainedRoundTrip(t *testing.T) {
	in := ItemGained{
		Index:      7,
		Amount:     1,
		ItemID:     490000, // beyond the 16-bit range of the classic epoch
		Identified: 1,
		Refine:     4,
		Cards:      [4]uint32{0, 0, 4001, 0},
		Location:   2,
		ItemType:   5,
	}

	w := codec.NewWriter()
	if err := codec.WriteStruct(w, &in); err != nil {
		t.Fatalf("encode: %v", err)
	}

	var out ItemGained
	r := codec.NewReader(w.Bytes())
	if err := codec.ReadStruct(r, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch:\n in %+v\nout %+v", in, out)
	}
}

func TestLoginRefusedRoundTrip(t *testing.T) {
	in := LoginRefused{Reason: RefuseBanned, BlockDate: "2022-04-06 00:00"}

	w := codec.NewWriter()
	in.EncodeTo(w)
	if w.Len() != 24 {
		t.Fatalf("encoded %d bytes, want 24", w.Len())
	}

	var out LoginRefused
	if err := out.DecodeFrom(codec.NewReader(w.Bytes())); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: %+v != %+v", out, in)
	}
}

func TestCharacterListRoundTrip(t *testing.T) {
	in := CharacterList{
		TotalSlots: 15,
		Characters: []CharEntry{{
			CharID:  150000,
			BaseExp: 9_000_000_000, // needs the widened field
			HP:      1234567,
			MaxHP:   1234567,
			Weapon:  500011,
			Name:    "Roan",
			Slot:    2,
			MapName: "prontera",
			Sex:     1,
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

func TestItemRemovedRejectsUnknownCause(t *testing.T) {
	raw := codec.NewWriter().
		WriteUint16(0x0099).
		WriteUint16(1).
		WriteUint16(1).
		Bytes()

	var p ItemRemoved
	if err := p.DecodeFrom(codec.NewReader(raw)); !errors.Is(err, codec.ErrBadEnum) {
		t.Fatalf("expected ErrBadEnum, got %v", err)
	}
}

func TestZoneHandoffRoundTrip(t *testing.T) {
	in := ZoneHandoff{
		CharID:  150000,
		MapName: "prontera",
		IP:      0x0100007f,
		Port:    5121,
		DNSHost: "map01.example.net",
	}

	w := codec.NewWriter()
	in.EncodeTo(w)
	if w.Len() != 154 {
		t.Fatalf("encoded %d bytes, want 154", w.Len())
	}

	var out ZoneHandoff
	if err := out.DecodeFrom(codec.NewReader(w.Bytes())); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch:\n in %+v\nout %+v", in, out)
	}
}
