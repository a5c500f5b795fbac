package session

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/ragnet-project/ragnet/internal/codec"
	"github.com/ragnet-project/ragnet/internal/epoch"
	"github.com/ragnet-project/ragnet/internal/epoch/e20120307"
	"github.com/ragnet-project/ragnet/internal/epoch/e20220406"
	"github.com/ragnet-project/ragnet/internal/events"
)

type classicMap struct {
	e20120307.BaseMapHandler
	ticks []uint32
	chats []string
	items []*e20120307.ItemGained
}

func (m *classicMap) OnServerTick(p *e20120307.ServerTick)  { m.ticks = append(m.ticks, p.Tick) }
func (m *classicMap) OnActorChat(p *e20120307.ActorChat)    { m.chats = append(m.chats, p.Message) }
func (m *classicMap) OnItemGained(p *e20120307.ItemGained)  { m.items = append(m.items, p) }

type modernMap struct {
	e20220406.BaseMapHandler
	items []*e20220406.ItemGained
}

func (m *modernMap) OnItemGained(p *e20220406.ItemGained) { m.items = append(m.items, p) }

func serverTickFrame(tick uint32) []byte {
	var w codec.Writer
	w.WriteUint32(tick)
	return w.Frame(e20120307.OpServerTick)
}

func TestDispatchUnknownOpcodeIsRecoverable(t *testing.T) {
	mh := &classicMap{}
	rv := NewReceiver(e20120307.NewCatalog(), e20120307.Handlers{Map: mh})

	// 0x0abc is not a classic opcode.
	var w codec.Writer
	w.WriteUint32(99)
	err := rv.Dispatch(w.Frame(0x0abc))

	var unknown *UnknownOpcodeError
	if !errors.As(err, &unknown) {
		t.Fatalf("Dispatch() error = %v, want *UnknownOpcodeError", err)
	}
	if unknown.Opcode != 0x0abc || unknown.Epoch != epoch.E20120307 {
		t.Fatalf("UnknownOpcodeError = %+v", unknown)
	}

	// The receiver stays usable: the next frame dispatches normally.
	if err := rv.Dispatch(serverTickFrame(1234)); err != nil {
		t.Fatalf("Dispatch() after unknown opcode: %v", err)
	}
	if len(mh.ticks) != 1 || mh.ticks[0] != 1234 {
		t.Fatalf("ticks = %v, want [1234]", mh.ticks)
	}
}

// The classic item opcode 0x00a0 moved to 0x0a37 in the 20220406
// revision. Against a receiver bound to the modern catalog it must be
// reported unknown, never decoded against the nearest layout.
func TestClassicItemFrameAgainstModernEpoch(t *testing.T) {
	mh := &modernMap{}
	rv := NewReceiver(e20220406.NewCatalog(), e20220406.Handlers{Map: mh})

	var w codec.Writer
	w.WriteUint16(3)  // index
	w.WriteUint16(1)  // amount
	w.WriteUint16(501) // 16-bit item id
	w.WriteBytes(make([]byte, 15))
	err := rv.Dispatch(w.Frame(0x00a0))

	var unknown *UnknownOpcodeError
	if !errors.As(err, &unknown) {
		t.Fatalf("Dispatch() error = %v, want *UnknownOpcodeError", err)
	}
	if unknown.Opcode != 0x00a0 {
		t.Fatalf("Opcode = 0x%04x, want 0x00a0", unknown.Opcode)
	}
	if len(mh.items) != 0 {
		t.Fatalf("OnItemGained called %d times for an unknown opcode", len(mh.items))
	}
}

func TestDispatchTruncatedFixedFrame(t *testing.T) {
	rv := NewReceiver(e20120307.NewCatalog(), e20120307.Handlers{})

	frame := serverTickFrame(77)[:4]
	err := rv.Dispatch(frame)

	var malformed *MalformedFrameError
	if !errors.As(err, &malformed) {
		t.Fatalf("Dispatch() error = %v, want *MalformedFrameError", err)
	}
	if !errors.Is(err, codec.ErrShortBuffer) {
		t.Fatalf("error does not wrap ErrShortBuffer: %v", err)
	}
}

func TestDispatchTrailingBytesRejected(t *testing.T) {
	rv := NewReceiver(e20120307.NewCatalog(), e20120307.Handlers{})

	frame := append(serverTickFrame(77), 0x00)
	err := rv.Dispatch(frame)
	if !errors.Is(err, codec.ErrTrailingBytes) {
		t.Fatalf("Dispatch() error = %v, want ErrTrailingBytes", err)
	}
}

func TestDispatchVariableLengthMismatch(t *testing.T) {
	rv := NewReceiver(e20120307.NewCatalog(), e20120307.Handlers{})

	var w codec.Writer
	w.WriteUint32(2001)
	w.WriteBytes([]byte("Soldier : hello"))
	frame := w.VarFrame(e20120307.OpActorChat)
	frame = append(frame, 0xff) // byte beyond the declared length

	if err := rv.Dispatch(frame); !errors.Is(err, codec.ErrTrailingBytes) {
		t.Fatalf("Dispatch() error = %v, want ErrTrailingBytes", err)
	}
}

func TestBindExactlyOnce(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	c := NewConn("login", client, PolicyDrop)
	if c.Bound() {
		t.Fatal("new connection reports bound")
	}
	if err := Bind(c, e20120307.NewCatalog(), e20120307.Handlers{}); err != nil {
		t.Fatalf("first Bind: %v", err)
	}
	if !c.Bound() {
		t.Fatal("connection not bound after Bind")
	}
	if id, ok := c.Epoch(); !ok || id != epoch.E20120307 {
		t.Fatalf("Epoch() = %v, %v", id, ok)
	}

	// Rebinding is refused, even to a different epoch.
	if err := Bind(c, e20220406.NewCatalog(), e20220406.Handlers{}); !errors.Is(err, ErrAlreadyBound) {
		t.Fatalf("second Bind error = %v, want ErrAlreadyBound", err)
	}
	if id, _ := c.Epoch(); id != epoch.E20120307 {
		t.Fatalf("epoch changed to %v after refused rebind", id)
	}
}

func TestRunRequiresBinding(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	c := NewConn("login", client, PolicyDrop)
	if err := c.Run(context.Background()); !errors.Is(err, ErrNotBound) {
		t.Fatalf("Run() on unbound connection = %v, want ErrNotBound", err)
	}
}

func TestRunDispatchesInArrivalOrder(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	mh := &classicMap{}
	c := NewConn("map", client, PolicyDrop)
	if err := Bind(c, e20120307.NewCatalog(), e20120307.Handlers{Map: mh}); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	go func() {
		server.Write(serverTickFrame(1))

		var w codec.Writer
		w.WriteUint32(2001)
		w.WriteBytes([]byte("Soldier : hello"))
		server.Write(w.VarFrame(e20120307.OpActorChat))

		server.Write(serverTickFrame(2))
		server.Close()
	}()

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(mh.ticks) != 2 || mh.ticks[0] != 1 || mh.ticks[1] != 2 {
		t.Fatalf("ticks = %v, want [1 2]", mh.ticks)
	}
	if len(mh.chats) != 1 || mh.chats[0] != "Soldier : hello" {
		t.Fatalf("chats = %v", mh.chats)
	}

	info := c.Info()
	if info.Frames != 3 {
		t.Fatalf("Frames = %d, want 3", info.Frames)
	}
}

func statusFrame(param uint16, value uint32) []byte {
	var w codec.Writer
	w.WriteUint16(param)
	w.WriteUint32(value)
	return w.Frame(e20120307.OpStatusChanged)
}

func TestRunPolicyDropSurvivesMalformedFrame(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	mh := &classicMap{}
	c := NewConn("map", client, PolicyDrop)
	if err := Bind(c, e20120307.NewCatalog(), e20120307.Handlers{Map: mh}); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	go func() {
		server.Write(statusFrame(0x7777, 1)) // invalid status parameter
		server.Write(serverTickFrame(5))
		server.Close()
	}()

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(mh.ticks) != 1 || mh.ticks[0] != 5 {
		t.Fatalf("ticks = %v, want [5]", mh.ticks)
	}
	if info := c.Info(); info.Malformed != 1 {
		t.Fatalf("Malformed = %d, want 1", info.Malformed)
	}
}

func TestRunPolicyDisconnectTearsDown(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	c := NewConn("map", client, PolicyDisconnect)
	if err := Bind(c, e20120307.NewCatalog(), e20120307.Handlers{}); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	go func() {
		server.Write(statusFrame(0x7777, 1))
	}()

	err := c.Run(context.Background())
	var malformed *MalformedFrameError
	if !errors.As(err, &malformed) {
		t.Fatalf("Run() = %v, want *MalformedFrameError", err)
	}
	if !errors.Is(err, codec.ErrBadEnum) {
		t.Fatalf("error does not wrap ErrBadEnum: %v", err)
	}
	if err := c.Send(e20120307.BuildKeepalive(1)); !errors.Is(err, ErrClosed) {
		t.Fatalf("Send after disconnect = %v, want ErrClosed", err)
	}
}

// An opcode the catalog cannot size makes the frame boundary
// unknowable; the read loop must treat the stream as desynchronized.
func TestRunUnknownOpcodeOnWireIsFatal(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	c := NewConn("map", client, PolicyDrop)
	if err := Bind(c, e20120307.NewCatalog(), e20120307.Handlers{}); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	go func() {
		server.Write([]byte{0xbc, 0x0a, 0x01, 0x02})
	}()

	if err := c.Run(context.Background()); err == nil {
		t.Fatal("Run() = nil for an undelimitable opcode")
	}
}

func TestRunContextCancel(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	c := NewConn("map", client, PolicyDrop)
	if err := Bind(c, e20120307.NewCatalog(), e20120307.Handlers{}); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run after cancel = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestSendCountsFrames(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	defer client.Close()

	go func() {
		buf := make([]byte, 64)
		for {
			if _, err := server.Read(buf); err != nil {
				return
			}
		}
	}()

	c := NewConn("login", client, PolicyDrop)
	if err := c.Send(e20120307.BuildKeepalive(10)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := c.Send(e20120307.BuildKeepalive(20)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if info := c.Info(); info.Sent != 2 {
		t.Fatalf("Sent = %d, want 2", info.Sent)
	}
}

// watchEvents collects every bus event of the given types.
func watchEvents(bus *events.Bus, types ...events.EventType) <-chan events.Event {
	ch := make(chan events.Event, 16)
	for _, et := range types {
		bus.Subscribe(et, "collect."+string(et), func(_ context.Context, ev events.Event) error {
			ch <- ev
			return nil
		})
	}
	return ch
}

func awaitEvent(t *testing.T, ch <-chan events.Event) events.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for bus event")
		return events.Event{}
	}
}

func TestBindPublishesSessionBound(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	defer client.Close()

	bus := events.NewBus()
	defer bus.Stop()
	ch := watchEvents(bus, events.EventSessionBound)

	c := NewConn("char", client, PolicyDrop)
	c.AttachBus(bus)
	if err := Bind(c, e20120307.NewCatalog(), e20120307.Handlers{}); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	ev := awaitEvent(t, ch)
	p, ok := ev.Payload.(events.SessionPayload)
	if !ok {
		t.Fatalf("payload = %T, want SessionPayload", ev.Payload)
	}
	if p.Conn != "char" || p.Epoch != "20120307" {
		t.Fatalf("SessionPayload = %+v", p)
	}
}

func TestMalformedFramePublishesAnomaly(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	bus := events.NewBus()
	defer bus.Stop()
	ch := watchEvents(bus, events.EventMalformedFrame)

	c := NewConn("map", client, PolicyDrop)
	c.AttachBus(bus)
	if err := Bind(c, e20120307.NewCatalog(), e20120307.Handlers{}); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	go func() {
		server.Write(statusFrame(0x7777, 1)) // invalid status parameter
		server.Close()
	}()

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	ev := awaitEvent(t, ch)
	p, ok := ev.Payload.(events.MalformedFramePayload)
	if !ok {
		t.Fatalf("payload = %T, want MalformedFramePayload", ev.Payload)
	}
	if p.Conn != "map" || p.Opcode != e20120307.OpStatusChanged || p.Packet == "" || p.Reason == "" {
		t.Fatalf("MalformedFramePayload = %+v", p)
	}
}

func TestDesyncPublishesUnknownOpcode(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	bus := events.NewBus()
	defer bus.Stop()
	ch := watchEvents(bus, events.EventUnknownOpcode)

	c := NewConn("map", client, PolicyDrop)
	c.AttachBus(bus)
	if err := Bind(c, e20120307.NewCatalog(), e20120307.Handlers{}); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	go func() {
		server.Write([]byte{0xbc, 0x0a, 0x01, 0x02})
	}()

	if err := c.Run(context.Background()); err == nil {
		t.Fatal("Run() = nil for an undelimitable opcode")
	}

	ev := awaitEvent(t, ch)
	p, ok := ev.Payload.(events.UnknownOpcodePayload)
	if !ok {
		t.Fatalf("payload = %T, want UnknownOpcodePayload", ev.Payload)
	}
	if p.Conn != "map" || p.Opcode != 0x0abc || p.Epoch != "20120307" {
		t.Fatalf("UnknownOpcodePayload = %+v", p)
	}
	if info := c.Info(); info.Unknown != 1 {
		t.Fatalf("Unknown = %d, want 1", info.Unknown)
	}
}

func TestParsePolicy(t *testing.T) {
	cases := []struct {
		in      string
		want    MalformedPolicy
		wantErr bool
	}{
		{"", PolicyDrop, false},
		{"drop", PolicyDrop, false},
		{"disconnect", PolicyDisconnect, false},
		{"explode", 0, true},
	}
	for _, tc := range cases {
		got, err := ParsePolicy(tc.in)
		if tc.wantErr != (err != nil) {
			t.Fatalf("ParsePolicy(%q) error = %v", tc.in, err)
		}
		if err == nil && got != tc.want {
			t.Fatalf("ParsePolicy(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
