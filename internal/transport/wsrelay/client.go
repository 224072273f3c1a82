package wsrelay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"sync"
	"time"

	"github.com/bloops-games/stockrush/internal/apperr"
	"github.com/bloops-games/stockrush/internal/logging"
	"github.com/bloops-games/stockrush/internal/transport"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const handshakeTimeout = 10 * time.Second

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client is a relay connection. It implements transport.Transport and
// transport.Lobby; callbacks run on the read goroutine and must not block.
type Client struct {
	base     *url.URL
	clientID string
	token    string
	http     *http.Client
	ws       *websocket.Conn
	writeMtx sync.Mutex
	logger   *zap.SugaredLogger

	mtx        sync.Mutex
	seq        uint64
	nextID     uint64
	pending    map[uint64]chan error
	subs       map[string]map[uint64]func(transport.Message)
	watchers   map[string]map[uint64]func()
	members    map[string][]transport.Member
	subscribed map[string]bool
	closed     bool
	done       chan struct{}
}

var (
	_ transport.Transport = (*Client)(nil)
	_ transport.Lobby     = (*Client)(nil)
)

// Dial obtains a token for clientID and opens the websocket. An empty
// clientID lets the relay assign one.
func Dial(ctx context.Context, baseURL, clientID string, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse relay url: %w", err)
	}

	c := &Client{
		base:       base,
		clientID:   clientID,
		http:       &http.Client{Timeout: handshakeTimeout},
		logger:     logging.FromContext(ctx).Named("wsrelay.client"),
		pending:    map[uint64]chan error{},
		subs:       map[string]map[uint64]func(transport.Message){},
		watchers:   map[string]map[uint64]func(){},
		members:    map[string][]transport.Member{},
		subscribed: map[string]bool{},
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	var tok tokenResponse
	if err := c.doJSON(ctx, "token", http.MethodPost, "/token", tokenRequest{ClientID: clientID}, &tok); err != nil {
		return nil, err
	}
	c.clientID, c.token = tok.ClientID, tok.Token

	wsURL := *base
	switch base.Scheme {
	case "https":
		wsURL.Scheme = "wss"
	default:
		wsURL.Scheme = "ws"
	}
	wsURL.Path = path.Join(base.Path, "/ws")
	wsURL.RawQuery = url.Values{"token": {c.token}}.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	ws, _, err := dialer.DialContext(ctx, wsURL.String(), nil)
	if err != nil {
		return nil, apperr.Transient("dial relay", err)
	}
	c.ws = ws

	go c.readLoop()
	return c, nil
}

func (c *Client) ClientID() string {
	return c.clientID
}

func (c *Client) Channel(name string) transport.Channel {
	return &clientChannel{client: c, name: name}
}

// Done is closed when the connection is gone.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) Close() error {
	c.shutdown()
	return nil
}

func (c *Client) CreateRoom(ctx context.Context, roomID string) (string, error) {
	var out roomRequest
	if err := c.doJSON(ctx, "create room", http.MethodPost, "/rooms", roomRequest{ID: roomID}, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) JoinRoom(ctx context.Context, roomID string) error {
	var out roomResponse
	return c.doJSON(ctx, "join room", http.MethodPost, "/rooms/"+url.PathEscape(roomID)+"/join", nil, &out)
}

func (c *Client) doJSON(ctx context.Context, op, method, p string, in, out interface{}) error {
	var body bytes.Buffer
	if in != nil {
		if err := json.NewEncoder(&body).Encode(in); err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
	}

	u := *c.base
	u.Path = path.Join(c.base.Path, p)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), &body)
	if err != nil {
		return fmt.Errorf("%s: new request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Transient(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var e errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
			return apperr.Transient(op, fmt.Errorf("status %d", resp.StatusCode))
		}
		return codeError(op, e.Code, e.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Transient(op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *Client) write(f frame) error {
	bytes, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	c.writeMtx.Lock()
	defer c.writeMtx.Unlock()

	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, bytes); err != nil {
		return apperr.Transient(string(f.Op), err)
	}
	return nil
}

// request sends f and waits for the relay to acknowledge it.
func (c *Client) request(ctx context.Context, f frame) error {
	c.mtx.Lock()
	if c.closed {
		c.mtx.Unlock()
		return apperr.Transient(string(f.Op), ErrClosed)
	}
	c.seq++
	f.Seq = c.seq
	reply := make(chan error, 1)
	c.pending[f.Seq] = reply
	c.mtx.Unlock()

	if err := c.write(f); err != nil {
		c.forget(f.Seq)
		return err
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		c.forget(f.Seq)
		return apperr.Transient(string(f.Op), ctx.Err())
	case <-c.done:
		return apperr.Transient(string(f.Op), ErrClosed)
	}
}

func (c *Client) forget(seq uint64) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	delete(c.pending, seq)
}

func (c *Client) resolve(seq uint64, err error) {
	c.mtx.Lock()
	reply, ok := c.pending[seq]
	delete(c.pending, seq)
	c.mtx.Unlock()

	if ok {
		reply <- err
	}
}

// ensureSubscribed asks the relay for the channel feed once. The frame is
// written before the caller's next request, so no ack is awaited.
func (c *Client) ensureSubscribed(channel string) {
	c.mtx.Lock()
	if c.closed || c.subscribed[channel] {
		c.mtx.Unlock()
		return
	}
	c.subscribed[channel] = true
	c.mtx.Unlock()

	if err := c.write(frame{Op: opSubscribe, Channel: channel}); err != nil {
		c.logger.Warnf("subscribe %s: %v", channel, err)
		c.mtx.Lock()
		delete(c.subscribed, channel)
		c.mtx.Unlock()
	}
}

func (c *Client) readLoop() {
	defer c.shutdown()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warnf("read: %v", err)
			}
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.logger.Warnf("skip malformed frame: %v", err)
			continue
		}
		c.dispatch(f)
	}
}

func (c *Client) dispatch(f frame) {
	switch f.Op {
	case opMessage:
		c.mtx.Lock()
		fns := make([]func(transport.Message), 0, len(c.subs[f.Channel]))
		for _, fn := range c.subs[f.Channel] {
			fns = append(fns, fn)
		}
		c.mtx.Unlock()

		m := transport.Message{Channel: f.Channel, Name: f.Name, ClientID: f.ClientID, Data: []byte(f.Data)}
		for _, fn := range fns {
			fn(m)
		}
	case opPresence:
		c.mtx.Lock()
		c.members[f.Channel] = f.Members
		fns := make([]func(), 0, len(c.watchers[f.Channel]))
		for _, fn := range c.watchers[f.Channel] {
			fns = append(fns, fn)
		}
		c.mtx.Unlock()

		for _, fn := range fns {
			fn()
		}
	case opAck:
		c.resolve(f.Seq, nil)
	case opError:
		if f.Seq == 0 {
			c.logger.Warnf("relay error: %s", f.Error)
			return
		}
		c.resolve(f.Seq, codeError("relay", f.Code, f.Error))
	default:
		c.logger.Warnf("skip unknown op %q", f.Op)
	}
}

func (c *Client) shutdown() {
	c.mtx.Lock()
	if c.closed {
		c.mtx.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	pending := c.pending
	c.pending = map[uint64]chan error{}
	c.mtx.Unlock()

	for _, reply := range pending {
		reply <- apperr.Transient("relay", ErrClosed)
	}

	c.writeMtx.Lock()
	_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMtx.Unlock()
	_ = c.ws.Close()
}

func (c *Client) addSub(channel string, fn func(transport.Message)) func() {
	c.mtx.Lock()
	c.nextID++
	id := c.nextID
	if c.subs[channel] == nil {
		c.subs[channel] = map[uint64]func(transport.Message){}
	}
	c.subs[channel][id] = fn
	c.mtx.Unlock()

	c.ensureSubscribed(channel)
	return func() {
		c.mtx.Lock()
		delete(c.subs[channel], id)
		c.mtx.Unlock()
	}
}

func (c *Client) addWatcher(channel string, fn func()) func() {
	c.mtx.Lock()
	c.nextID++
	id := c.nextID
	if c.watchers[channel] == nil {
		c.watchers[channel] = map[uint64]func(){}
	}
	c.watchers[channel][id] = fn
	c.mtx.Unlock()

	c.ensureSubscribed(channel)
	return func() {
		c.mtx.Lock()
		delete(c.watchers[channel], id)
		c.mtx.Unlock()
	}
}

type clientChannel struct {
	client *Client
	name   string
}

func (ch *clientChannel) Name() string {
	return ch.name
}

func (ch *clientChannel) Publish(ctx context.Context, name string, data []byte) error {
	return ch.client.request(ctx, frame{Op: opPublish, Channel: ch.name, Name: name, Data: data})
}

func (ch *clientChannel) Subscribe(fn func(transport.Message)) func() {
	return ch.client.addSub(ch.name, fn)
}

func (ch *clientChannel) Presence() transport.Presence {
	return &clientPresence{client: ch.client, channel: ch.name}
}

type clientPresence struct {
	client  *Client
	channel string
}

func (p *clientPresence) Enter(ctx context.Context, data []byte) error {
	p.client.ensureSubscribed(p.channel)
	return p.client.request(ctx, frame{Op: opEnter, Channel: p.channel, Data: data})
}

func (p *clientPresence) Update(ctx context.Context, data []byte) error {
	return p.client.request(ctx, frame{Op: opUpdate, Channel: p.channel, Data: data})
}

func (p *clientPresence) Leave(ctx context.Context) error {
	return p.client.request(ctx, frame{Op: opLeave, Channel: p.channel})
}

// Members returns the last snapshot pushed by the relay.
func (p *clientPresence) Members(ctx context.Context) ([]transport.Member, error) {
	p.client.mtx.Lock()
	defer p.client.mtx.Unlock()

	members := make([]transport.Member, len(p.client.members[p.channel]))
	copy(members, p.client.members[p.channel])
	return members, nil
}

func (p *clientPresence) OnChange(fn func()) func() {
	return p.client.addWatcher(p.channel, fn)
}
