package wsrelay

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/bloops-games/stockrush/internal/apperr"
	"github.com/bloops-games/stockrush/internal/clock"
	"github.com/bloops-games/stockrush/internal/room"
	"github.com/bloops-games/stockrush/internal/transport"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const sendBuffer = 256

// peer is one websocket connection. Frames are queued on send and written by
// a single writer goroutine.
type peer struct {
	id       string
	clientID string
	ws       *websocket.Conn
	send     chan []byte
	done     chan struct{}
	once     sync.Once
}

func newPeer(id, clientID string, ws *websocket.Conn) *peer {
	return &peer{
		id:       id,
		clientID: clientID,
		ws:       ws,
		send:     make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
	}
}

// enqueue queues f without blocking. A peer that cannot keep up is closed.
func (p *peer) enqueue(f frame) bool {
	bytes, err := json.Marshal(f)
	if err != nil {
		return false
	}

	select {
	case <-p.done:
		return false
	case p.send <- bytes:
		return true
	default:
		p.close()
		return false
	}
}

func (p *peer) close() {
	p.once.Do(func() {
		close(p.done)
		_ = p.ws.Close()
	})
}

type channelState struct {
	peers   map[*peer]struct{}
	members map[string]transport.Member
}

// hub routes frames between peers. Peers are only closed, never unregistered,
// while the hub lock is held.
type hub struct {
	mtx      sync.Mutex
	clock    clock.Clock
	registry *room.Registry
	channels map[string]*channelState
	peers    map[*peer]struct{}
	logger   *zap.SugaredLogger
}

func newHub(registry *room.Registry, clk clock.Clock, logger *zap.SugaredLogger) *hub {
	return &hub{
		clock:    clk,
		registry: registry,
		channels: map[string]*channelState{},
		peers:    map[*peer]struct{}{},
		logger:   logger,
	}
}

func (h *hub) len() int {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	return len(h.peers)
}

func (h *hub) register(p *peer) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	h.peers[p] = struct{}{}
}

// unregister drops p from every channel and releases its presence.
func (h *hub) unregister(p *peer) {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	delete(h.peers, p)
	for name, ch := range h.channels {
		delete(ch.peers, p)
		if _, ok := ch.members[p.id]; ok {
			h.removeMember(name, ch, p)
		}
		if len(ch.peers) == 0 && len(ch.members) == 0 {
			delete(h.channels, name)
		}
	}
}

func (h *hub) channel(name string) *channelState {
	ch, ok := h.channels[name]
	if !ok {
		ch = &channelState{peers: map[*peer]struct{}{}, members: map[string]transport.Member{}}
		h.channels[name] = ch
	}
	return ch
}

// authorize allows channel operations only to members of the channel's room.
func (h *hub) authorize(p *peer, channel string) error {
	const op = "authorize"

	roomID := strings.TrimPrefix(channel, transport.ChannelName(""))
	if roomID == channel {
		return apperr.Validation(op, "unknown channel %q", channel)
	}

	info, ok := h.registry.Get(roomID)
	if !ok {
		return apperr.NotFound(op, "room %s does not exist", roomID)
	}
	for _, m := range info.Members {
		if m.ID == p.clientID {
			return nil
		}
	}
	return apperr.Validation(op, "%s has not joined room %s", p.clientID, info.ID)
}

func (h *hub) subscribe(p *peer, channel string) {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	ch := h.channel(channel)
	ch.peers[p] = struct{}{}
	p.enqueue(frame{Op: opPresence, Channel: channel, Members: snapshot(ch)})
}

func (h *hub) unsubscribe(p *peer, channel string) {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	if ch, ok := h.channels[channel]; ok {
		delete(ch.peers, p)
	}
}

func (h *hub) publish(p *peer, channel, name string, data []byte) {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	f := frame{Op: opMessage, Channel: channel, Name: name, ClientID: p.clientID, Data: data}
	for other := range h.channel(channel).peers {
		other.enqueue(f)
	}
}

func (h *hub) setPresence(p *peer, channel string, data []byte, present bool) {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	ch := h.channel(channel)
	if !present {
		if _, ok := ch.members[p.id]; ok {
			h.removeMember(channel, ch, p)
		}
		return
	}

	ch.members[p.id] = transport.Member{
		ClientID:     p.clientID,
		ConnectionID: p.id,
		Data:         append(json.RawMessage(nil), data...),
		UpdatedAt:    h.clock.Now(),
	}
	h.broadcastPresence(channel, ch)
}

func (h *hub) removeMember(channel string, ch *channelState, p *peer) {
	delete(ch.members, p.id)

	var still bool
	for _, m := range ch.members {
		if m.ClientID == p.clientID {
			still = true
			break
		}
	}
	if !still {
		roomID := strings.TrimPrefix(channel, transport.ChannelName(""))
		if h.registry.Leave(roomID, p.clientID) {
			h.logger.Infof("room %s destroyed", roomID)
		}
	}

	h.broadcastPresence(channel, ch)
}

func (h *hub) broadcastPresence(channel string, ch *channelState) {
	f := frame{Op: opPresence, Channel: channel, Members: snapshot(ch)}
	for p := range ch.peers {
		p.enqueue(f)
	}
}

func snapshot(ch *channelState) []transport.Member {
	out := make([]transport.Member, 0, len(ch.members))
	for _, m := range ch.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ConnectionID < out[j].ConnectionID
	})
	return out
}
