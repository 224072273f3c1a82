package wsrelay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bloops-games/stockrush/internal/apperr"
	"github.com/bloops-games/stockrush/internal/clock"
	"github.com/bloops-games/stockrush/internal/logging"
	"github.com/bloops-games/stockrush/internal/rng"
	"github.com/bloops-games/stockrush/internal/room"
	"github.com/bloops-games/stockrush/internal/server"
	"github.com/bloops-games/stockrush/internal/transport/token"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
	maxFrameSize = 1 << 20
)

type ctxKey struct{}

type Options struct {
	MaxConnections int
	SweepEvery     time.Duration
	RoomTTL        time.Duration
	Clock          clock.Clock
}

type Server struct {
	opts     Options
	router   chi.Router
	hub      *hub
	issuer   *token.Issuer
	registry *room.Registry
	upgrader websocket.Upgrader
	logger   *zap.SugaredLogger
}

func NewServer(ctx context.Context, registry *room.Registry, issuer *token.Issuer, opts Options) *Server {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.SweepEvery <= 0 {
		opts.SweepEvery = time.Minute
	}
	if opts.RoomTTL <= 0 {
		opts.RoomTTL = 10 * time.Minute
	}

	logger := logging.FromContext(ctx).Named("wsrelay.server")
	s := &Server{
		opts:     opts,
		hub:      newHub(registry, opts.Clock, logger),
		issuer:   issuer,
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Method(http.MethodGet, "/health", server.HandleHealth(ctx))
	r.Post("/token", s.handleToken)
	r.Get("/ws", s.handleWS)
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Post("/rooms", s.handleCreateRoom)
		r.Get("/rooms/{id}", s.handleGetRoom)
		r.Post("/rooms/{id}/join", s.handleJoinRoom)
	})
	s.router = r

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run sweeps rooms that stayed empty until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.SweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if removed := s.registry.Sweep(s.opts.RoomTTL); len(removed) > 0 {
				s.logger.Infof("swept %d empty rooms", len(removed))
			}
		}
	}
}

type tokenRequest struct {
	ClientID string `json:"clientId"`
}

type tokenResponse struct {
	ClientID string `json:"clientId"`
	Token    string `json:"token"`
}

type roomRequest struct {
	ID string `json:"id"`
}

type roomResponse struct {
	ID        string    `json:"id"`
	Capacity  int       `json:"capacity"`
	State     string    `json:"state"`
	Members   []string  `json:"members"`
	CreatedAt time.Time `json:"createdAt"`
}

type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var in tokenRequest
	if err := decodeBody(r, &in); err != nil {
		writeError(w, apperr.Validation("token", "%v", err))
		return
	}
	if in.ClientID == "" {
		in.ClientID = uuid.New().String()
	}

	signed, err := s.issuer.Issue(in.ClientID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{ClientID: in.ClientID, Token: signed})
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var in roomRequest
	if err := decodeBody(r, &in); err != nil {
		writeError(w, apperr.Validation("create room", "%v", err))
		return
	}
	if in.ID == "" {
		in.ID = room.GenerateID(rng.Fast())
	}

	id, err := s.registry.Create(in.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	s.logger.Infof("room %s created by %s", id, clientFromContext(r.Context()))
	writeJSON(w, http.StatusCreated, roomRequest{ID: id})
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	info, ok := s.registry.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, apperr.NotFound("get room", "room %s does not exist", chi.URLParam(r, "id")))
		return
	}
	writeJSON(w, http.StatusOK, toRoomResponse(info))
}

func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	clientID := clientFromContext(r.Context())

	info, err := s.registry.Join(chi.URLParam(r, "id"), room.Member{ID: clientID})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRoomResponse(info))
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("token")
	if raw == "" {
		raw = bearerToken(r.Header.Get("Authorization"))
	}
	clientID, err := s.issuer.Verify(raw)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if s.opts.MaxConnections > 0 && s.hub.len() >= s.opts.MaxConnections {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnf("upgrade: %v", err)
		return
	}

	p := newPeer(uuid.New().String(), clientID, ws)
	s.hub.register(p)
	s.logger.Debugf("client %s connected as %s", clientID, p.id)

	go s.writePump(p)
	s.readPump(p)
}

func (s *Server) readPump(p *peer) {
	defer func() {
		s.hub.unregister(p)
		p.close()
		s.logger.Debugf("client %s disconnected", p.clientID)
	}()

	p.ws.SetReadLimit(maxFrameSize)
	_ = p.ws.SetReadDeadline(time.Now().Add(pongWait))
	p.ws.SetPongHandler(func(string) error {
		return p.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := p.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warnf("read %s: %v", p.id, err)
			}
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			p.enqueue(frame{Op: opError, Code: codeValidation, Error: "malformed frame"})
			continue
		}
		s.handle(p, f)
	}
}

func (s *Server) handle(p *peer, f frame) {
	var err error
	switch f.Op {
	case opSubscribe:
		if err = s.hub.authorize(p, f.Channel); err == nil {
			s.hub.subscribe(p, f.Channel)
		}
	case opUnsubscribe:
		s.hub.unsubscribe(p, f.Channel)
	case opPublish:
		if err = s.hub.authorize(p, f.Channel); err == nil {
			s.hub.publish(p, f.Channel, f.Name, f.Data)
		}
	case opEnter, opUpdate:
		if err = s.hub.authorize(p, f.Channel); err == nil {
			s.hub.setPresence(p, f.Channel, f.Data, true)
		}
	case opLeave:
		s.hub.setPresence(p, f.Channel, nil, false)
	default:
		err = apperr.Validation("relay", "unknown op %q", f.Op)
	}

	if f.Seq == 0 {
		if err != nil {
			s.logger.Debugf("%s %s: %v", p.clientID, f.Op, err)
		}
		return
	}

	if err != nil {
		code, _ := errorCode(err)
		p.enqueue(frame{Op: opError, Seq: f.Seq, Code: code, Error: err.Error()})
		return
	}
	p.enqueue(frame{Op: opAck, Seq: f.Seq})
}

func (s *Server) writePump(p *peer) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.close()
	}()

	for {
		select {
		case <-p.done:
			return
		case bytes := <-p.send:
			_ = p.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.ws.WriteMessage(websocket.TextMessage, bytes); err != nil {
				return
			}
		case <-ticker.C:
			_ = p.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID, err := s.issuer.Verify(bearerToken(r.Header.Get("Authorization")))
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Code: codeValidation, Error: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, clientID)))
	})
}

func clientFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && err != io.EOF {
		return err
	}
	return nil
}

func toRoomResponse(info room.Info) roomResponse {
	resp := roomResponse{
		ID:        info.ID,
		Capacity:  info.Capacity,
		State:     info.State.String(),
		CreatedAt: info.CreatedAt,
		Members:   make([]string, 0, len(info.Members)),
	}
	for _, m := range info.Members {
		resp.Members = append(resp.Members, m.ID)
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code, status := errorCode(err)
	writeJSON(w, status, errorResponse{Code: code, Error: err.Error()})
}
