package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"notemesh/internal/core/domain"
	"notemesh/internal/core/ports"
	"notemesh/internal/core/services"
	"notemesh/internal/infrastructure/monitoring"
	"notemesh/pkg/validation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// IdentityKey is the gin context key under which the auth middleware stores
// the caller's resolved identity.
const IdentityKey = "identity"

// Options tune per-connection behavior of the WebSocket server.
type Options struct {
	PingInterval     time.Duration
	PongTimeout      time.Duration
	WriteTimeout     time.Duration
	AdmissionTimeout time.Duration
	MaxMessageBytes  int64
	AllowedOrigins   []string
}

func (o *Options) applyDefaults() {
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.PongTimeout <= 0 {
		o.PongTimeout = 60 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.AdmissionTimeout <= 0 {
		o.AdmissionTimeout = 5 * time.Second
	}
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = 1 << 20
	}
}

// WebSocketServer admits editing clients into note rooms and pumps deltas
// between them. Admission is decided before the upgrade: a denied client
// gets an HTTP error and never sees a WebSocket frame.
type WebSocketServer struct {
	access ports.AccessService
	auth   services.AuthService
	hub    *Hub

	opts     Options
	upgrader websocket.Upgrader

	metrics *monitoring.PrometheusCollector
	logger  *zap.SugaredLogger
}

func NewWebSocketServer(access ports.AccessService, auth services.AuthService, hub *Hub, opts Options, metrics *monitoring.PrometheusCollector, logger *zap.SugaredLogger) *WebSocketServer {
	opts.applyDefaults()

	s := &WebSocketServer{
		access:  access,
		auth:    auth,
		hub:     hub,
		opts:    opts,
		metrics: metrics,
		logger:  logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *WebSocketServer) checkOrigin(r *http.Request) bool {
	if len(s.opts.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.opts.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// HandleWebSocket serves GET /ws/note/:note_id and its path-token variant
// GET /ws/note/:note_id/:token. The invite token travels in the path segment
// or the token query parameter; authenticated users carry a JWT either via
// the auth middleware or, since browsers cannot set headers on WebSocket
// dials, via the auth query parameter.
func (s *WebSocketServer) HandleWebSocket(c *gin.Context) {
	noteID := domain.NoteID(c.Param("note_id"))
	if err := validation.ValidateNoteID(string(noteID)); err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	identity := s.resolveIdentity(c)
	token := c.Param("token")
	if token == "" {
		token = c.Query("token")
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.opts.AdmissionTimeout)
	admission, err := s.access.Admit(ctx, noteID, identity, token)
	cancel()
	if err != nil {
		s.rejectConnection(c, noteID, err)
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Errorw("websocket upgrade failed", "note_id", noteID, "error", err)
		return
	}

	if s.metrics != nil {
		s.metrics.ConnectionOpened()
		s.metrics.RecordAdmission(string(admission.Kind), time.Since(start))
	}

	sid := SessionID(uuid.NewString())
	s.logger.Infow("client joined note room",
		"note_id", noteID,
		"session_id", sid,
		"credential", admission.Kind,
		"user_id", admission.UserID,
	)

	send := s.hub.Join(noteID, sid)
	opened := time.Now()

	go s.writePump(conn, send, noteID, sid)
	s.readPump(conn, noteID, sid)

	s.hub.Leave(noteID, sid)
	conn.Close()

	if s.metrics != nil {
		s.metrics.ConnectionClosed(time.Since(opened))
	}
	s.logger.Infow("client left note room", "note_id", noteID, "session_id", sid)
}

// resolveIdentity prefers the identity placed in the request context by the
// auth middleware, then falls back to the auth query parameter. An invalid
// or expired JWT yields no identity rather than an error; admission then
// proceeds on whatever other credential the request carries.
func (s *WebSocketServer) resolveIdentity(c *gin.Context) *domain.Identity {
	if v, ok := c.Get(IdentityKey); ok {
		if identity, ok := v.(*domain.Identity); ok {
			return identity
		}
	}

	raw := c.Query("auth")
	if raw == "" || s.auth == nil {
		return nil
	}
	claims, err := s.auth.ValidateToken(raw)
	if err != nil {
		s.logger.Debugw("rejecting auth query parameter", "error", err)
		return nil
	}
	return claims.Identity()
}

// rejectConnection answers an admission failure before any upgrade happens.
// Policy denials and lookup failures map to different statuses so operators
// can tell "not authorized" from "could not check", but neither response
// body reveals anything about the note.
func (s *WebSocketServer) rejectConnection(c *gin.Context, noteID domain.NoteID, err error) {
	switch {
	case errors.Is(err, domain.ErrAccessDenied):
		if s.metrics != nil {
			s.metrics.RecordDenial("policy")
		}
		s.logger.Infow("connection denied", "note_id", noteID)
		c.AbortWithStatus(http.StatusForbidden)

	case errors.Is(err, context.DeadlineExceeded):
		if s.metrics != nil {
			s.metrics.RecordDenial("timeout")
		}
		s.logger.Warnw("admission check timed out", "note_id", noteID)
		c.AbortWithStatus(http.StatusServiceUnavailable)

	default:
		if s.metrics != nil {
			s.metrics.RecordDenial("error")
		}
		s.logger.Errorw("admission check failed", "note_id", noteID, "error", err)
		c.AbortWithStatus(http.StatusInternalServerError)
	}
}

// readPump consumes inbound frames until the connection errors or closes.
// Each well-formed frame is relayed to the room; malformed frames are logged
// and dropped without ending the session.
func (s *WebSocketServer) readPump(conn *websocket.Conn, noteID domain.NoteID, sid SessionID) {
	conn.SetReadLimit(s.opts.MaxMessageBytes)
	conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
		return nil
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Infow("read error", "note_id", noteID, "session_id", sid, "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.logger.Warnw("dropping malformed message", "note_id", noteID, "session_id", sid, "error", err)
			continue
		}
		if len(msg.Delta) == 0 {
			s.logger.Warnw("dropping message without delta", "note_id", noteID, "session_id", sid)
			continue
		}

		s.hub.BroadcastDelta(context.Background(), noteID, msg.Delta, msg.ClientID)
	}
}

// writePump drains the member's send channel and keeps the connection alive
// with pings. It exits when the channel is closed by the hub or a write
// fails; closing the connection unblocks the read pump, which finishes the
// teardown.
func (s *WebSocketServer) writePump(conn *websocket.Conn, send <-chan []byte, noteID domain.NoteID, sid SessionID) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()
	defer conn.Close()

	for {
		select {
		case payload, ok := <-send:
			conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.logger.Infow("write error", "note_id", noteID, "session_id", sid, "error", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
