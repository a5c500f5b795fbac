package journal

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/ragnet-project/ragnet/internal/codec"
	"github.com/ragnet-project/ragnet/internal/epoch/e20120307"
	"github.com/ragnet-project/ragnet/internal/events"
	"github.com/ragnet-project/ragnet/internal/session"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRecordAndRecent(t *testing.T) {
	j := openTestJournal(t)

	for i := 0; i < 3; i++ {
		err := j.record(context.Background(), events.Event{
			Type:    events.EventItemGained,
			Source:  "map",
			Payload: events.ItemGainedPayload{Index: uint16(i), ItemID: 501, Amount: 1},
		})
		if err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	entries, err := j.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	// Newest first.
	if entries[0].ID <= entries[1].ID {
		t.Fatalf("entries not newest-first: %d then %d", entries[0].ID, entries[1].ID)
	}
	if entries[0].Type != string(events.EventItemGained) || entries[0].Source != "map" {
		t.Fatalf("entry = %+v", entries[0])
	}
}

func TestByTypeAndStats(t *testing.T) {
	j := openTestJournal(t)

	ctx := context.Background()
	j.record(ctx, events.Event{Type: events.EventChat, Source: "map", Payload: events.ChatPayload{Message: "hi"}})
	j.record(ctx, events.Event{Type: events.EventChat, Source: "map", Payload: events.ChatPayload{Message: "bye"}})
	j.record(ctx, events.Event{Type: events.EventMapChange, Source: "map", Payload: events.MapChangePayload{MapName: "geffen"}})

	chats, err := j.ByType(string(events.EventChat), 10)
	if err != nil {
		t.Fatalf("ByType: %v", err)
	}
	if len(chats) != 2 {
		t.Fatalf("got %d chat entries, want 2", len(chats))
	}

	stats, err := j.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("got %d stat rows, want 2", len(stats))
	}
	if stats[0].Type != string(events.EventChat) || stats[0].Count != 2 {
		t.Fatalf("stats[0] = %+v", stats[0])
	}
}

func TestAttachPersistsBusEvents(t *testing.T) {
	j := openTestJournal(t)

	bus := events.NewBus()
	defer bus.Stop()
	j.Attach(bus)
	defer j.Detach(bus)

	err := bus.EmitSync(context.Background(), events.Event{
		Type:    events.EventUnknownOpcode,
		Source:  "map",
		Payload: events.UnknownOpcodePayload{Conn: "map", Epoch: "20120307", Opcode: 0x0abc},
	})
	if err != nil {
		t.Fatalf("EmitSync: %v", err)
	}

	n, err := j.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Fatalf("Count = %d, want 1", n)
	}
}

// A dispatch anomaly on a live connection must end up as a journal
// row without any glue beyond AttachBus and Attach.
func TestDispatchAnomaliesReachJournal(t *testing.T) {
	j := openTestJournal(t)

	bus := events.NewBus()
	defer bus.Stop()
	j.Attach(bus)
	defer j.Detach(bus)

	client, server := net.Pipe()
	defer server.Close()

	c := session.NewConn("map", client, session.PolicyDrop)
	c.AttachBus(bus)
	if err := session.Bind(c, e20120307.NewCatalog(), e20120307.Handlers{}); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	go func() {
		// A known opcode with an invalid status parameter, then an
		// opcode the catalog cannot size.
		var w codec.Writer
		w.WriteUint16(0x7777)
		w.WriteUint32(1)
		server.Write(w.Frame(e20120307.OpStatusChanged))
		server.Write([]byte{0xbc, 0x0a, 0x01, 0x02})
	}()

	if err := c.Run(context.Background()); err == nil {
		t.Fatal("Run() = nil for an undelimitable opcode")
	}

	waitRows := func(eventType string) []Entry {
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			entries, err := j.ByType(eventType, 10)
			if err != nil {
				t.Fatalf("ByType(%s): %v", eventType, err)
			}
			if len(entries) > 0 {
				return entries
			}
			time.Sleep(10 * time.Millisecond)
		}
		t.Fatalf("no %s journal row", eventType)
		return nil
	}

	malformed := waitRows(string(events.EventMalformedFrame))
	if malformed[0].Source != "map" {
		t.Fatalf("malformed row source = %q, want map", malformed[0].Source)
	}
	unknown := waitRows(string(events.EventUnknownOpcode))
	if unknown[0].Source != "map" {
		t.Fatalf("unknown row source = %q, want map", unknown[0].Source)
	}
}

func TestPrune(t *testing.T) {
	j := openTestJournal(t)

	j.record(context.Background(), events.Event{Type: events.EventServerTick, Source: "map"})

	// Nothing is older than an hour.
	removed, err := j.Prune(time.Hour)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 0 {
		t.Fatalf("Prune removed %d fresh entries", removed)
	}

	// A negative retention puts the cutoff in the future.
	removed, err = j.Prune(-time.Hour)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("Prune removed %d, want 1", removed)
	}
}
