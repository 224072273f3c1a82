package match

import (
	"context"
	"fmt"
	"time"

	"github.com/bloops-games/stockrush/internal/apperr"
	"github.com/bloops-games/stockrush/internal/card"
	"github.com/bloops-games/stockrush/internal/catalog"
	"github.com/bloops-games/stockrush/internal/clock"
	"github.com/bloops-games/stockrush/internal/config"
	"github.com/bloops-games/stockrush/internal/database/session/model"
	"github.com/bloops-games/stockrush/internal/gauge"
	"github.com/bloops-games/stockrush/internal/logging"
	"github.com/bloops-games/stockrush/internal/market"
	"github.com/bloops-games/stockrush/internal/protocol"
	"github.com/bloops-games/stockrush/internal/rng"
	"github.com/bloops-games/stockrush/internal/room"
	"github.com/bloops-games/stockrush/internal/scheduler"
	"github.com/bloops-games/stockrush/internal/transport"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const eventsBuffer = 1024

const (
	taskAutoTick = "host.auto_tick"
	taskLottery  = "host.lottery"
	taskFinish   = "host.finish"
	taskGauge    = "local.gauge"
	taskStatus   = "local.status"
)

// ResumeStore keeps the record that lets a restarted process rejoin a running
// match under the same participant id.
type ResumeStore interface {
	Put(s model.Session) error
	Delete(roomID string) error
}

// Notification is an accepted message or a local announcement.
type Notification struct {
	Kind    protocol.Kind
	From    string
	Message protocol.Message
}

type Observer func(Notification)

type Config struct {
	RoomID        string
	ParticipantID string
	Name          string
	Game          config.Game
}

type Option func(*Session)

func WithClock(c clock.Clock) Option {
	return func(s *Session) { s.clock = c }
}

func WithRand(src rng.Source) Option {
	return func(s *Session) { s.rnd = src }
}

func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Session) { s.cards = c }
}

func WithResumeStore(store ResumeStore) Option {
	return func(s *Session) { s.store = store }
}

func WithObserver(o Observer) Option {
	return func(s *Session) { s.observers = append(s.observers, o) }
}

// Session is one participant of a room. All state is owned by a single event
// loop: transport callbacks only enqueue work, and Drain, Advance and the
// public operations must be called from that loop (see Runner).
type Session struct {
	id     string
	name   string
	roomID string
	game   config.Game

	tr    transport.Transport
	ch    transport.Channel
	cards *catalog.Catalog
	clock clock.Clock
	rnd   rng.Source
	sched *scheduler.Scheduler
	dedup *protocol.Deduper
	store ResumeStore

	logger    *zap.SugaredLogger
	events    chan func(context.Context)
	observers []Observer
	unsub     []func()

	joined bool
	left   bool
	ready  bool
	lastTS int64

	room   *room.Room
	hostID string
	isHost bool

	series      market.Series
	seriesStamp protocol.Stamp
	autoTicks   int

	table       card.Table
	names       map[string]string
	handSizes   map[string]int
	statusStamp map[string]int64
	standings   map[string]room.Standing
	cooldowns   map[string]time.Time

	endsAt time.Time
	scores []room.Score
}

func New(ctx context.Context, cfg Config, tr transport.Transport, opts ...Option) (*Session, error) {
	roomID, err := room.NormalizeID(cfg.RoomID)
	if err != nil {
		return nil, err
	}
	if err := cfg.Game.Validate(); err != nil {
		return nil, apperr.Validation("new session", "%v", err)
	}

	id := cfg.ParticipantID
	if id == "" {
		id = uuid.New().String()
	}
	if tr.ClientID() != id {
		return nil, apperr.Validation("new session", "transport client %q does not match participant %q", tr.ClientID(), id)
	}

	name := cfg.Name
	if name == "" {
		name = id
	}

	s := &Session{
		id:          id,
		name:        name,
		roomID:      roomID,
		game:        cfg.Game,
		tr:          tr,
		clock:       clock.Real{},
		rnd:         rng.Fast(),
		events:      make(chan func(context.Context), eventsBuffer),
		room:        room.New(roomID, cfg.Game.Capacity),
		table:       card.Table{},
		names:       map[string]string{},
		handSizes:   map[string]int{},
		statusStamp: map[string]int64{},
		standings:   map[string]room.Standing{},
		cooldowns:   map[string]time.Time{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cards == nil {
		s.cards = catalog.Default()
	}

	s.sched = scheduler.New(s.clock)
	if s.dedup, err = protocol.NewDeduper(cfg.Game.DedupSize, cfg.Game.DedupWindow, s.clock); err != nil {
		return nil, fmt.Errorf("new session: %w", err)
	}

	s.logger = logging.FromContext(ctx).Named("match.session").With("room", roomID, "participant", id)
	return s, nil
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) RoomID() string {
	return s.roomID
}

// Events delivers the work queued by transport callbacks.
func (s *Session) Events() <-chan func(context.Context) {
	return s.events
}

func (s *Session) enqueue(fn func(context.Context)) {
	select {
	case s.events <- fn:
	default:
		s.logger.Warnf("event queue full, dropping update")
	}
}

// Drain runs every queued event without blocking and returns how many ran.
func (s *Session) Drain(ctx context.Context) int {
	var n int
	for {
		select {
		case fn := <-s.events:
			fn(ctx)
			n++
		default:
			return n
		}
	}
}

// Advance fires the timers due at now.
func (s *Session) Advance(now time.Time) int {
	if s.left {
		return 0
	}
	return s.sched.Advance(now)
}

// Create registers a new room through the lobby and joins it.
func (s *Session) Create(ctx context.Context) error {
	lobby, ok := s.tr.(transport.Lobby)
	if !ok {
		return apperr.Validation("create room", "transport has no lobby")
	}

	id, err := lobby.CreateRoom(ctx, s.roomID)
	if err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	s.roomID = id

	return s.Join(ctx)
}

func (s *Session) Join(ctx context.Context) error {
	if s.joined {
		return nil
	}
	if s.left {
		return apperr.Validation("join", "session already left room %s", s.roomID)
	}

	if lobby, ok := s.tr.(transport.Lobby); ok {
		if err := lobby.JoinRoom(ctx, s.roomID); err != nil {
			return fmt.Errorf("join room: %w", err)
		}
	}

	s.ch = s.tr.Channel(transport.ChannelName(s.roomID))
	s.unsub = append(s.unsub,
		s.ch.Subscribe(func(m transport.Message) {
			s.enqueue(func(ctx context.Context) { s.onMessage(ctx, m) })
		}),
		s.ch.Presence().OnChange(func() {
			s.enqueue(s.onPresence)
		}),
	)

	data, err := protocol.EncodeMember(protocol.MemberData{Name: s.name})
	if err != nil {
		s.unsubscribe()
		return err
	}
	if err := s.ch.Presence().Enter(ctx, data); err != nil {
		s.unsubscribe()
		return fmt.Errorf("enter presence: %w", err)
	}

	g := gauge.New(s.game.GaugeMax, s.game.GaugeRate)
	g.Pause()
	s.table[s.id] = card.PlayerState{Cash: s.game.StartCash, Gauge: g}
	s.names[s.id] = s.name
	s.joined = true

	if s.store != nil {
		rec := model.Session{RoomID: s.roomID, ParticipantID: s.id, Name: s.name, JoinedAt: s.clock.Now()}
		if err := s.store.Put(rec); err != nil {
			s.logger.Warnf("store resume record: %v", err)
		}
	}

	s.logger.Infof("joined room as %s", s.name)
	return nil
}

// Leave cancels every timer and leaves the room. It is safe to call twice.
func (s *Session) Leave(ctx context.Context) error {
	if s.left {
		return nil
	}
	s.left = true
	s.sched.CancelAll()
	s.unsubscribe()

	if s.store != nil {
		if err := s.store.Delete(s.roomID); err != nil {
			s.logger.Warnf("delete resume record: %v", err)
		}
	}

	if !s.joined {
		return nil
	}

	if err := s.ch.Presence().Leave(ctx); err != nil {
		return apperr.Transient("leave presence", err)
	}

	s.logger.Infof("left room")
	return nil
}

func (s *Session) unsubscribe() {
	for _, fn := range s.unsub {
		fn()
	}
	s.unsub = nil
}

// stamp returns a wire timestamp strictly greater than every previous one.
func (s *Session) stamp() int64 {
	ts := clock.Millis(s.clock.Now())
	if ts <= s.lastTS {
		ts = s.lastTS + 1
	}
	s.lastTS = ts
	return ts
}

func (s *Session) publish(ctx context.Context, m protocol.Message, ts int64) error {
	if s.left || !s.joined {
		return apperr.Validation("publish", "not in a room")
	}

	bytes, err := protocol.Encode(s.id, ts, m)
	if err != nil {
		return err
	}

	if err := s.ch.Publish(ctx, string(m.Kind()), bytes); err != nil {
		if apperr.IsRetriable(err) {
			return err
		}
		return apperr.Transient("publish "+string(m.Kind()), err)
	}

	return nil
}

// publishLogged publishes and logs a failure. Periodic work retries on its
// next tick.
func (s *Session) publishLogged(ctx context.Context, m protocol.Message, ts int64) bool {
	if err := s.publish(ctx, m, ts); err != nil {
		s.logger.Warnf("publish %s: %v", m.Kind(), err)
		return false
	}
	return true
}

func (s *Session) notify(kind protocol.Kind, from string, m protocol.Message) {
	n := Notification{Kind: kind, From: from, Message: m}
	for _, o := range s.observers {
		o(n)
	}
}
