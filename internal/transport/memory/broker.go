// Package memory is an in-process transport. It backs local simulations and
// tests: delivery is synchronous from the publisher's goroutine.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/bloops-games/stockrush/internal/apperr"
	"github.com/bloops-games/stockrush/internal/clock"
	"github.com/bloops-games/stockrush/internal/room"
	"github.com/bloops-games/stockrush/internal/transport"
)

var ErrClosed = fmt.Errorf("connection closed")

type subscriber struct {
	connID string
	fn     func(transport.Message)
}

type watcher struct {
	connID string
	fn     func()
}

type channelState struct {
	subs     map[int]subscriber
	watchers map[int]watcher
	members  map[string]transport.Member
}

type Broker struct {
	mtx      sync.Mutex
	clock    clock.Clock
	registry *room.Registry
	channels map[string]*channelState
	conns    map[string]*Conn
	seq      int
	failures map[string]error
}

func NewBroker(registry *room.Registry, clk clock.Clock) *Broker {
	return &Broker{
		clock:    clk,
		registry: registry,
		channels: map[string]*channelState{},
		conns:    map[string]*Conn{},
		failures: map[string]error{},
	}
}

// Connect opens a connection for clientID. Connecting the same client twice
// models a reconnect that left a stale presence record behind.
func (b *Broker) Connect(clientID string) *Conn {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	b.seq++
	c := &Conn{broker: b, clientID: clientID, connID: fmt.Sprintf("%s#%d", clientID, b.seq)}
	b.conns[c.connID] = c
	return c
}

// Disconnect drops every connection of clientID, as the liveness check of a
// real transport would.
func (b *Broker) Disconnect(clientID string) {
	b.mtx.Lock()
	var conns []*Conn
	for _, c := range b.conns {
		if c.clientID == clientID {
			conns = append(conns, c)
		}
	}
	b.mtx.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
}

// FailPublishes makes every publish of clientID fail with err until cleared
// with a nil err.
func (b *Broker) FailPublishes(clientID string, err error) {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	if err == nil {
		delete(b.failures, clientID)
		return
	}
	b.failures[clientID] = err
}

func (b *Broker) channel(name string) *channelState {
	ch, ok := b.channels[name]
	if !ok {
		ch = &channelState{
			subs:     map[int]subscriber{},
			watchers: map[int]watcher{},
			members:  map[string]transport.Member{},
		}
		b.channels[name] = ch
	}
	return ch
}

func (b *Broker) publish(c *Conn, channel, name string, data []byte) error {
	b.mtx.Lock()
	if c.closed {
		b.mtx.Unlock()
		return apperr.Transient("publish", ErrClosed)
	}
	if err, ok := b.failures[c.clientID]; ok {
		b.mtx.Unlock()
		return apperr.Transient("publish", err)
	}

	ch := b.channel(channel)
	subs := make([]subscriber, 0, len(ch.subs))
	keys := make([]int, 0, len(ch.subs))
	for k := range ch.subs {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, k := range keys {
		subs = append(subs, ch.subs[k])
	}
	b.mtx.Unlock()

	msg := transport.Message{Channel: channel, Name: name, ClientID: c.clientID, Data: append([]byte(nil), data...)}
	for _, s := range subs {
		s.fn(msg)
	}

	return nil
}

func (b *Broker) subscribe(c *Conn, channel string, fn func(transport.Message)) func() {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	b.seq++
	id := b.seq
	b.channel(channel).subs[id] = subscriber{connID: c.connID, fn: fn}

	return func() {
		b.mtx.Lock()
		defer b.mtx.Unlock()
		delete(b.channel(channel).subs, id)
	}
}

func (b *Broker) watch(c *Conn, channel string, fn func()) func() {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	b.seq++
	id := b.seq
	b.channel(channel).watchers[id] = watcher{connID: c.connID, fn: fn}

	return func() {
		b.mtx.Lock()
		defer b.mtx.Unlock()
		delete(b.channel(channel).watchers, id)
	}
}

func (b *Broker) setPresence(c *Conn, channel string, data []byte, present bool) error {
	b.mtx.Lock()
	if c.closed && present {
		b.mtx.Unlock()
		return apperr.Transient("presence", ErrClosed)
	}

	ch := b.channel(channel)
	_, had := ch.members[c.connID]
	if present {
		ch.members[c.connID] = transport.Member{
			ClientID:     c.clientID,
			ConnectionID: c.connID,
			Data:         append([]byte(nil), data...),
			UpdatedAt:    b.clock.Now(),
		}
	} else {
		delete(ch.members, c.connID)
	}

	if !present && had && b.registry != nil && !b.clientPresent(ch, c.clientID) {
		b.registry.Leave(strings.TrimPrefix(channel, "room:"), c.clientID)
	}

	watchers := make([]func(), 0, len(ch.watchers))
	for _, w := range ch.watchers {
		watchers = append(watchers, w.fn)
	}
	b.mtx.Unlock()

	if present || had {
		for _, w := range watchers {
			w()
		}
	}

	return nil
}

func (b *Broker) clientPresent(ch *channelState, clientID string) bool {
	for _, m := range ch.members {
		if m.ClientID == clientID {
			return true
		}
	}
	return false
}

func (b *Broker) members(channel string) []transport.Member {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	ch := b.channel(channel)
	out := make([]transport.Member, 0, len(ch.members))
	for _, m := range ch.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ConnectionID < out[j].ConnectionID
	})
	return out
}

func (b *Broker) close(c *Conn) []string {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	delete(b.conns, c.connID)

	var present []string
	for name, ch := range b.channels {
		for id, s := range ch.subs {
			if s.connID == c.connID {
				delete(ch.subs, id)
			}
		}
		for id, w := range ch.watchers {
			if w.connID == c.connID {
				delete(ch.watchers, id)
			}
		}
		if _, ok := ch.members[c.connID]; ok {
			present = append(present, name)
		}
	}
	return present
}

// Conn implements transport.Transport and transport.Lobby.
type Conn struct {
	broker   *Broker
	clientID string
	connID   string
	closed   bool
}

var (
	_ transport.Transport = (*Conn)(nil)
	_ transport.Lobby     = (*Conn)(nil)
)

func (c *Conn) ClientID() string {
	return c.clientID
}

func (c *Conn) Channel(name string) transport.Channel {
	return &channel{conn: c, name: name}
}

func (c *Conn) Close() error {
	for _, name := range c.broker.close(c) {
		_ = c.broker.setPresence(c, name, nil, false)
	}
	return nil
}

func (c *Conn) CreateRoom(_ context.Context, roomID string) (string, error) {
	return c.broker.registry.Create(roomID)
}

func (c *Conn) JoinRoom(_ context.Context, roomID string) error {
	_, err := c.broker.registry.Join(roomID, room.Member{ID: c.clientID})
	return err
}

type channel struct {
	conn *Conn
	name string
}

func (ch *channel) Name() string {
	return ch.name
}

func (ch *channel) Publish(_ context.Context, name string, data []byte) error {
	return ch.conn.broker.publish(ch.conn, ch.name, name, data)
}

func (ch *channel) Subscribe(fn func(transport.Message)) func() {
	return ch.conn.broker.subscribe(ch.conn, ch.name, fn)
}

func (ch *channel) Presence() transport.Presence {
	return &presence{conn: ch.conn, channel: ch.name}
}

type presence struct {
	conn    *Conn
	channel string
}

func (p *presence) Enter(_ context.Context, data []byte) error {
	return p.conn.broker.setPresence(p.conn, p.channel, data, true)
}

func (p *presence) Update(ctx context.Context, data []byte) error {
	return p.Enter(ctx, data)
}

func (p *presence) Leave(_ context.Context) error {
	return p.conn.broker.setPresence(p.conn, p.channel, nil, false)
}

func (p *presence) Members(_ context.Context) ([]transport.Member, error) {
	return p.conn.broker.members(p.channel), nil
}

func (p *presence) OnChange(fn func()) func() {
	return p.conn.broker.watch(p.conn, p.channel, fn)
}
