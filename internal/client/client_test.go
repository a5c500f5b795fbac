package client

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/ragnet-project/ragnet/internal/codec"
	"github.com/ragnet-project/ragnet/internal/epoch"
	"github.com/ragnet-project/ragnet/internal/epoch/e20120307"
	"github.com/ragnet-project/ragnet/internal/events"
	"github.com/ragnet-project/ragnet/internal/session"
)

func TestIPString(t *testing.T) {
	// 127.0.0.1 in wire order, read as a little-endian word.
	if got := ipString(0x0100007f); got != "127.0.0.1" {
		t.Fatalf("ipString = %q, want 127.0.0.1", got)
	}
	if got := ipString(0x08080808); got != "8.8.8.8" {
		t.Fatalf("ipString = %q, want 8.8.8.8", got)
	}
}

// waitEvent subscribes for one event of the given type and returns a
// channel that yields it.
func waitEvent(bus *events.Bus, t events.EventType) <-chan events.Event {
	ch := make(chan events.Event, 1)
	bus.Subscribe(t, "test-waiter", func(_ context.Context, ev events.Event) error {
		select {
		case ch <- ev:
		default:
		}
		return nil
	})
	return ch
}

func TestClassicAdapterWidensItemID(t *testing.T) {
	bus := events.NewBus()
	defer bus.Stop()

	got := waitEvent(bus, events.EventItemGained)
	a := newClassicAdapter(bus, "map")
	a.OnItemGained(&e20120307.ItemGained{Index: 3, Amount: 2, ItemID: 501, Refine: 7})

	select {
	case ev := <-got:
		p := ev.Payload.(events.ItemGainedPayload)
		if p.ItemID != 501 || p.Index != 3 || p.Amount != 2 || p.Refine != 7 {
			t.Fatalf("payload = %+v", p)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no item_gained event")
	}
}

func TestClassicAdapterUnpacksSpawnPosition(t *testing.T) {
	bus := events.NewBus()
	defer bus.Stop()

	got := waitEvent(bus, events.EventEnterWorld)
	a := newClassicAdapter(bus, "map")
	a.OnEnterWorld(&e20120307.EnterWorldAck{
		Tick: 42,
		Pos:  epoch.PackPosition(150, 111, 4),
	})

	select {
	case ev := <-got:
		p := ev.Payload.(events.EnterWorldPayload)
		if p.X != 150 || p.Y != 111 || p.Dir != 4 {
			t.Fatalf("position = (%d,%d,%d), want (150,111,4)", p.X, p.Y, p.Dir)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no enter_world event")
	}
}

// readFrameFrom reads n bytes, failing the test on error. Test servers
// know the exact frame sizes their clients send.
func readN(t *testing.T, c net.Conn, n int) []byte {
	t.Helper()
	buf := make([]byte, n)
	if _, err := io.ReadFull(c, buf); err != nil {
		t.Errorf("server read: %v", err)
	}
	return buf
}

func TestGatewayFlowClassic(t *testing.T) {
	loginLn, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer loginLn.Close()
	charLn, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer charLn.Close()
	mapLn, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer mapLn.Close()

	charPort := uint16(charLn.Addr().(*net.TCPAddr).Port)
	mapPort := uint16(mapLn.Addr().(*net.TCPAddr).Port)
	const localhost = 0x0100007f // 127.0.0.1 wire order

	// Login server: consume the credentials frame, answer with one
	// realm pointing at the character listener.
	go func() {
		conn, err := loginLn.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		readN(t, conn, 55)

		var w codec.Writer
		(&e20120307.LoginAccepted{
			LoginID1:  11,
			AccountID: 2000001,
			LoginID2:  22,
			Sex:       1,
			Realms: []e20120307.RealmEntry{
				{IP: localhost, Port: charPort, Name: "Chaos", Users: 99},
			},
		}).EncodeTo(&w)
		conn.Write(w.VarFrame(e20120307.OpLoginAccepted))
	}()

	// Character server: roster with one character in slot 0, then the
	// zone handoff after the slot pick.
	go func() {
		conn, err := charLn.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		readN(t, conn, 17)

		var w codec.Writer
		(&e20120307.CharacterList{
			TotalSlots: 9,
			Characters: []e20120307.CharEntry{
				{CharID: 150001, Name: "Soldier", Slot: 0, BaseLevel: 78, MapName: "prontera"},
			},
		}).EncodeTo(&w)
		conn.Write(w.VarFrame(e20120307.OpCharacterList))

		readN(t, conn, 3)

		var hw codec.Writer
		(&e20120307.ZoneHandoff{
			CharID:  150001,
			MapName: "prontera",
			IP:      localhost,
			Port:    mapPort,
		}).EncodeTo(&hw)
		conn.Write(hw.Frame(e20120307.OpZoneHandoff))
	}()

	// Map server: acknowledge the spawn and hold the connection open.
	mapDone := make(chan struct{})
	go func() {
		defer close(mapDone)
		conn, err := mapLn.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		readN(t, conn, 19)

		var w codec.Writer
		w.WriteUint32(5000)
		pos := epoch.PackPosition(156, 191, 0)
		w.WriteBytes(pos[:])
		w.WriteUint8(5).WriteUint8(5)
		conn.Write(w.Frame(e20120307.OpEnterWorld))

		io.Copy(io.Discard, conn)
	}()

	bus := events.NewBus()
	defer bus.Stop()
	entered := waitEvent(bus, events.EventEnterWorld)

	g, err := NewGateway(Options{
		Epoch:         epoch.E20120307,
		LoginAddr:     loginLn.Addr().String(),
		Username:      "soldier",
		Password:      "hunter2",
		ClientVersion: 55,
		RealmIndex:    0,
		CharSlot:      0,
		Keepalive:     time.Hour,
		Policy:        session.PolicyDrop,
	}, bus)
	if err != nil {
		t.Fatal(err)
	}
	defer g.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runDone := make(chan struct{})
	go func() {
		g.Run(ctx)
		close(runDone)
	}()

	select {
	case ev := <-entered:
		p := ev.Payload.(events.EnterWorldPayload)
		if p.X != 156 || p.Y != 191 {
			t.Fatalf("spawn = (%d,%d), want (156,191)", p.X, p.Y)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("gateway never reached the map phase")
	}

	deadline := time.Now().Add(5 * time.Second)
	for !g.InWorld() {
		if time.Now().After(deadline) {
			t.Fatal("InWorld() stayed false after enter_world")
		}
		time.Sleep(10 * time.Millisecond)
	}

	infos := g.Status()
	if len(infos) != 3 {
		t.Fatalf("Status() has %d connections, want 3", len(infos))
	}
	for _, info := range infos {
		if !info.Bound {
			t.Fatalf("connection %s not bound", info.Name)
		}
		if info.Epoch != epoch.E20120307.String() {
			t.Fatalf("connection %s epoch = %s", info.Name, info.Epoch)
		}
	}

	cancel()
	select {
	case <-runDone:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewGatewayRejectsUnknownEpoch(t *testing.T) {
	if _, err := NewGateway(Options{Epoch: 19990101}, events.NewBus()); err == nil {
		t.Fatal("NewGateway accepted an unsupported epoch")
	}
}
