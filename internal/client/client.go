// Package client drives a headless game-client session: it dials the
// login server, follows the handoffs to the character and map servers,
// and emits everything the servers say as version-independent events.
// The epoch is fixed at construction; both server and client speak the
// same packet revision for the whole session.
package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ragnet-project/ragnet/internal/epoch"
	"github.com/ragnet-project/ragnet/internal/events"
	"github.com/ragnet-project/ragnet/internal/session"
	"github.com/ragnet-project/ragnet/internal/util"
)

// Options configures a Gateway.
type Options struct {
	Epoch         epoch.ID
	LoginAddr     string
	Username      string
	Password      string
	ClientVersion uint32
	ClientType    uint8

	// RealmIndex picks from the login roster; CharSlot picks from the
	// character roster.
	RealmIndex int
	CharSlot   uint8

	Keepalive time.Duration
	Policy    session.MalformedPolicy
}

// dialect is the per-epoch surface the Gateway needs: binding a
// connection to the right catalog and building outbound frames. Both
// implementations delegate to their epoch package, so the flow logic
// below never branches on the revision.
type dialect interface {
	bind(c *session.Conn) error
	buildLogin(version uint32, username, password string, clientType uint8) []byte
	buildCharEnter(accountID, loginID1, loginID2 uint32, sex uint8) []byte
	buildCharSelect(slot uint8) []byte
	buildMapEnter(accountID, charID, loginID1, clientTick uint32, sex uint8) []byte
	buildKeepalive(clientTick uint32) []byte
	buildChat(name, message string) []byte
	buildMove(x, y uint16) []byte
}

// Gateway owns the three-phase session flow. Phase transitions are
// driven by the events the adapters emit: a login accept triggers the
// character-server dial, a zone handoff triggers the map-server dial.
type Gateway struct {
	opts   Options
	bus    *events.Bus
	dial   dialect
	logger zerolog.Logger

	mu        sync.Mutex
	accountID uint32
	loginID1  uint32
	loginID2  uint32
	sex       uint8
	charID    uint32
	charName  string
	inWorld   bool
	err       error
	conns     map[string]*session.Conn

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewGateway builds a Gateway for the configured epoch. The bus is
// shared: subscribers registered on it see every event the session
// produces.
func NewGateway(opts Options, bus *events.Bus) (*Gateway, error) {
	if !opts.Epoch.Valid() {
		return nil, fmt.Errorf("client: unsupported epoch %s", opts.Epoch)
	}
	if opts.Keepalive <= 0 {
		opts.Keepalive = 12 * time.Second
	}
	g := &Gateway{
		opts:   opts,
		bus:    bus,
		logger: util.ComponentLogger("client").With().Str("epoch", opts.Epoch.String()).Logger(),
		conns:  make(map[string]*session.Conn),
	}
	switch opts.Epoch {
	case epoch.E20120307:
		g.dial = &classicDialect{bus: bus}
	case epoch.E20220406:
		g.dial = &modernDialect{bus: bus}
	}
	return g, nil
}

// Run connects to the login server and follows the session flow until
// the context is cancelled or a phase fails terminally.
func (g *Gateway) Run(ctx context.Context) error {
	ctx, g.cancel = context.WithCancel(ctx)
	defer g.cancel()

	g.bus.Subscribe(events.EventLoginAccepted, "gateway", g.onLoginAccepted(ctx))
	g.bus.Subscribe(events.EventCharacterList, "gateway", g.onCharacterList(ctx))
	g.bus.Subscribe(events.EventZoneHandoff, "gateway", g.onZoneHandoff(ctx))
	g.bus.Subscribe(events.EventEnterWorld, "gateway", g.onEnterWorld(ctx))
	defer func() {
		for _, t := range []events.EventType{
			events.EventLoginAccepted, events.EventCharacterList,
			events.EventZoneHandoff, events.EventEnterWorld,
		} {
			g.bus.Unsubscribe(t, "gateway")
		}
	}()

	if err := g.openPhase(ctx, "login", g.opts.LoginAddr, func(c *session.Conn) error {
		return c.Send(g.dial.buildLogin(g.opts.ClientVersion, g.opts.Username, g.opts.Password, g.opts.ClientType))
	}); err != nil {
		return err
	}

	// Earlier phases close naturally once their handoff is done; the
	// session ends when the map phase does, or on the first terminal
	// error.
	<-ctx.Done()
	g.wg.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

// openPhase dials, binds, sends the phase's opening frame, and runs
// the read loop in the background.
func (g *Gateway) openPhase(ctx context.Context, name, addr string, open func(*session.Conn) error) error {
	c, err := session.Dial(ctx, name, addr, g.opts.Policy)
	if err != nil {
		return err
	}
	c.AttachBus(g.bus)
	if err := g.dial.bind(c); err != nil {
		c.Close()
		return err
	}

	g.mu.Lock()
	g.conns[name] = c
	g.mu.Unlock()

	g.bus.Emit(ctx, events.Event{
		Type:   events.EventSessionConnected,
		Source: name,
		Payload: events.SessionPayload{
			Conn:   name,
			Remote: c.Info().Remote,
			Epoch:  g.opts.Epoch.String(),
			At:     time.Now(),
		},
	})

	if err := open(c); err != nil {
		c.Close()
		return err
	}

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		err := c.Run(ctx)
		g.bus.Emit(context.Background(), events.Event{
			Type:    events.EventSessionDisconnected,
			Source:  name,
			Payload: events.SessionPayload{Conn: name, At: time.Now()},
		})
		if err != nil {
			g.logger.Error().Err(err).Str("phase", name).Msg("phase connection failed")
			g.mu.Lock()
			if g.err == nil {
				g.err = err
			}
			g.mu.Unlock()
			g.cancel()
		} else if name == "map" {
			g.cancel()
		}
	}()
	return nil
}

func (g *Gateway) onLoginAccepted(ctx context.Context) events.HandlerFunc {
	return func(_ context.Context, ev events.Event) error {
		p, ok := ev.Payload.(events.LoginAcceptedPayload)
		if !ok {
			return nil
		}
		if g.opts.RealmIndex >= len(p.Realms) {
			return fmt.Errorf("client: realm index %d out of range (%d realms)", g.opts.RealmIndex, len(p.Realms))
		}
		realm := p.Realms[g.opts.RealmIndex]

		g.mu.Lock()
		g.accountID, g.loginID1, g.loginID2, g.sex = p.AccountID, p.LoginID1, p.LoginID2, p.Sex
		g.mu.Unlock()

		g.logger.Info().
			Str("realm", realm.Name).
			Uint16("users", realm.Users).
			Msg("login accepted, entering character server")

		addr := fmt.Sprintf("%s:%d", realm.Host, realm.Port)
		return g.openPhase(ctx, "char", addr, func(c *session.Conn) error {
			return c.Send(g.dial.buildCharEnter(p.AccountID, p.LoginID1, p.LoginID2, p.Sex))
		})
	}
}

func (g *Gateway) onCharacterList(ctx context.Context) events.HandlerFunc {
	return func(_ context.Context, ev events.Event) error {
		p, ok := ev.Payload.(events.CharacterListPayload)
		if !ok {
			return nil
		}
		for _, c := range p.Characters {
			if c.Slot == uint16(g.opts.CharSlot) {
				g.mu.Lock()
				g.charName = c.Name
				g.mu.Unlock()
				g.logger.Info().
					Str("name", c.Name).
					Uint16("base_level", c.BaseLvl).
					Str("map", c.MapName).
					Msg("selecting character")
				break
			}
		}
		charConn := g.conn("char")
		if charConn == nil {
			return session.ErrNotBound
		}
		return charConn.Send(g.dial.buildCharSelect(g.opts.CharSlot))
	}
}

func (g *Gateway) onZoneHandoff(ctx context.Context) events.HandlerFunc {
	return func(_ context.Context, ev events.Event) error {
		p, ok := ev.Payload.(events.ZoneHandoffPayload)
		if !ok {
			return nil
		}
		g.mu.Lock()
		g.charID = p.CharID
		accountID, loginID1, sex := g.accountID, g.loginID1, g.sex
		g.mu.Unlock()

		g.logger.Info().
			Str("map", p.MapName).
			Str("host", p.Host).
			Uint16("port", p.Port).
			Msg("zone handoff, entering map server")

		addr := fmt.Sprintf("%s:%d", p.Host, p.Port)
		return g.openPhase(ctx, "map", addr, func(c *session.Conn) error {
			tick := uint32(time.Now().UnixMilli())
			return c.Send(g.dial.buildMapEnter(accountID, p.CharID, loginID1, tick, sex))
		})
	}
}

func (g *Gateway) onEnterWorld(ctx context.Context) events.HandlerFunc {
	return func(_ context.Context, ev events.Event) error {
		p, ok := ev.Payload.(events.EnterWorldPayload)
		if !ok {
			return nil
		}
		g.mu.Lock()
		g.inWorld = true
		g.mu.Unlock()
		g.logger.Info().Uint16("x", p.X).Uint16("y", p.Y).Msg("entered world")

		mapConn := g.conn("map")
		if mapConn != nil {
			go mapConn.Keepalive(ctx, g.opts.Keepalive, g.dial.buildKeepalive)
		}
		return nil
	}
}

func (g *Gateway) conn(name string) *session.Conn {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.conns[name]
}

// Say sends a public chat line. Valid once the map phase is up.
func (g *Gateway) Say(message string) error {
	g.mu.Lock()
	name := g.charName
	inWorld := g.inWorld
	g.mu.Unlock()
	if !inWorld {
		return fmt.Errorf("client: not in world")
	}
	c := g.conn("map")
	if c == nil {
		return session.ErrClosed
	}
	return c.Send(g.dial.buildChat(name, message))
}

// Walk requests a move to the given map cell.
func (g *Gateway) Walk(x, y uint16) error {
	c := g.conn("map")
	if c == nil {
		return session.ErrClosed
	}
	return c.Send(g.dial.buildMove(x, y))
}

// InWorld reports whether the map phase reached its spawn acknowledge.
func (g *Gateway) InWorld() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inWorld
}

// Status snapshots every phase connection, in phase order.
func (g *Gateway) Status() []session.Info {
	g.mu.Lock()
	defer g.mu.Unlock()
	infos := make([]session.Info, 0, len(g.conns))
	for _, name := range []string{"login", "char", "map"} {
		if c, ok := g.conns[name]; ok {
			infos = append(infos, c.Info())
		}
	}
	return infos
}

// Close tears down every phase connection.
func (g *Gateway) Close() {
	if g.cancel != nil {
		g.cancel()
	}
	g.mu.Lock()
	conns := make([]*session.Conn, 0, len(g.conns))
	for _, c := range g.conns {
		conns = append(conns, c)
	}
	g.mu.Unlock()
	for _, c := range conns {
		c.Close()
	}
}
