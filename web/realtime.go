package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"imagerelay/imagegen"
	"imagerelay/logging"
)

// RealtimeConfig holds settings for the websocket channel.
type RealtimeConfig struct {
	// AllowedOrigins restricts websocket handshakes by Origin header.
	// Empty means all origins are accepted.
	AllowedOrigins []string

	// RequestTimeout bounds a single generation request end to end.
	RequestTimeout time.Duration

	// SendBufferSize is the per-session outbound message buffer.
	SendBufferSize int

	// PongWait is how long a session may stay silent before the read
	// side gives up; pings go out at a fraction of this interval.
	PongWait time.Duration
}

// DefaultRealtimeConfig returns a RealtimeConfig with sensible defaults.
func DefaultRealtimeConfig() RealtimeConfig {
	return RealtimeConfig{
		RequestTimeout: 120 * time.Second,
		SendBufferSize: 16,
		PongWait:       60 * time.Second,
	}
}

// RealtimeChannel serves generation requests over a websocket connection.
// Each connection is an isolated session: overlapping requests on one
// session run concurrently and their responses are delivered in completion
// order, not request order. The channel carries no abuse guard; only the
// HTTP endpoint is rate limited.
type RealtimeChannel struct {
	dispatcher *imagegen.Dispatcher
	logger     *logging.Logger
	config     RealtimeConfig
	upgrader   websocket.Upgrader
}

// NewRealtimeChannel creates a RealtimeChannel backed by the given dispatcher.
func NewRealtimeChannel(dispatcher *imagegen.Dispatcher, logger *logging.Logger, config RealtimeConfig) *RealtimeChannel {
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultRealtimeConfig().RequestTimeout
	}
	if config.SendBufferSize <= 0 {
		config.SendBufferSize = DefaultRealtimeConfig().SendBufferSize
	}
	if config.PongWait <= 0 {
		config.PongWait = DefaultRealtimeConfig().PongWait
	}
	ch := &RealtimeChannel{
		dispatcher: dispatcher,
		logger:     logger.Named("realtime"),
		config:     config,
	}
	ch.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     ch.checkOrigin,
	}
	return ch
}

func (ch *RealtimeChannel) checkOrigin(r *http.Request) bool {
	if len(ch.config.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range ch.config.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// session is one websocket connection. Writes go through the send channel
// so the write pump is the only goroutine touching the connection for
// writes, as required by gorilla/websocket.
type session struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

// enqueue hands a message to the write pump. Messages for a closed session
// are dropped: a client that disconnected mid-generation simply never
// receives the response.
func (s *session) enqueue(payload []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- payload:
		return true
	default:
		return false
	}
}

// close marks the session closed and releases the write pump. Safe to call
// more than once.
func (s *session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}

// ServeHTTP upgrades the request to a websocket connection and serves
// generation events until the client disconnects.
func (ch *RealtimeChannel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := ch.upgrader.Upgrade(w, r, nil)
	if err != nil {
		ch.logger.Warn("Websocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err))
		return
	}

	s := &session{
		id:   uuid.New().String()[:8],
		conn: conn,
		send: make(chan []byte, ch.config.SendBufferSize),
	}

	ch.logger.Info("Session connected",
		zap.String("session_id", s.id),
		zap.String("remote_addr", r.RemoteAddr))

	go ch.writePump(s)
	ch.readLoop(s)
}

// writePump serializes all writes for one session and keeps the
// connection alive with periodic pings.
func (ch *RealtimeChannel) writePump(s *session) {
	pingInterval := ch.config.PongWait * 9 / 10
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case payload, ok := <-s.send:
			if !ok {
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				ch.logger.Debug("Session write failed",
					zap.String("session_id", s.id),
					zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop consumes client messages until the connection drops. Each
// generation request runs in its own goroutine so a slow provider call
// does not block further requests on the same session.
func (ch *RealtimeChannel) readLoop(s *session) {
	defer func() {
		s.close()
		s.conn.Close()
		ch.logger.Info("Session disconnected", zap.String("session_id", s.id))
	}()

	_ = s.conn.SetReadDeadline(time.Now().Add(ch.config.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(ch.config.PongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				ch.logger.Debug("Session read failed",
					zap.String("session_id", s.id),
					zap.Error(err))
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			ch.logger.Warn("Discarding malformed message",
				zap.String("session_id", s.id),
				zap.Error(err))
			continue
		}

		switch env.Event {
		case EventRequestImage:
			var prompt string
			if err := json.Unmarshal(env.Data, &prompt); err != nil {
				ch.logger.Warn("Discarding request with non-string prompt",
					zap.String("session_id", s.id),
					zap.Error(err))
				continue
			}
			go ch.handleGenerate(s, prompt)
		default:
			ch.logger.Debug("Ignoring unknown event",
				zap.String("session_id", s.id),
				zap.String("event", env.Event))
		}
	}
}

// handleGenerate runs one generation request and delivers its terminal
// image-response. The interim status event is only emitted for requests
// that pass validation, so an empty prompt gets a single error response.
func (ch *RealtimeChannel) handleGenerate(s *session, prompt string) {
	if !imagegen.IsBlank(prompt) {
		ch.emit(s, EventStatus, StatusData{Status: StatusGenerating})
	}

	ctx, cancel := context.WithTimeout(context.Background(), ch.config.RequestTimeout)
	defer cancel()

	result, _ := ch.dispatcher.Dispatch(ctx, imagegen.GenerationRequest{Prompt: prompt})
	ch.emit(s, EventImageResponse, result)
}

// emit encodes and queues one event for the session's write pump.
func (ch *RealtimeChannel) emit(s *session, event string, data any) {
	payload, err := encodeEvent(event, data)
	if err != nil {
		ch.logger.Error("Failed to encode event",
			zap.String("session_id", s.id),
			zap.String("event", event),
			zap.Error(err))
		return
	}
	if !s.enqueue(payload) {
		ch.logger.Debug("Dropped event for closed session",
			zap.String("session_id", s.id),
			zap.String("event", event))
	}
}
