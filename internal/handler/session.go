package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"netviz/internal/domain"
	"netviz/internal/hub"
	"netviz/internal/metrics"
	"netviz/internal/protocol"
	"netviz/internal/service"
)

const writeWait = 10 * time.Second

var errHubStopped = errors.New("hub stopped")

// SessionState is the lifecycle stage of a session
type SessionState int32

const (
	StateConnecting SessionState = iota
	StateOpen
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("SessionState(%d)", int32(s))
	}
}

// SessionOptions tunes the WebSocket endpoint
type SessionOptions struct {
	AllowedOrigins  []string
	ReadBufferSize  int
	WriteBufferSize int
	SendBuffer      int
	MaxMessageBytes int64
	PingInterval    time.Duration
	// Acknowledge sends an Ack frame after each accepted message
	Acknowledge bool
}

// SessionHandler upgrades requests to WebSocket sessions
type SessionHandler struct {
	svc      *service.TopologyService
	hub      *hub.Hub
	upgrader websocket.Upgrader
	opts     SessionOptions
	log      logrus.FieldLogger
	metrics  *metrics.Metrics
	wg       sync.WaitGroup
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(svc *service.TopologyService, h *hub.Hub, opts SessionOptions, log logrus.FieldLogger) *SessionHandler {
	if opts.SendBuffer < 1 {
		opts.SendBuffer = 64
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}

	return &SessionHandler{
		svc: svc,
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  opts.ReadBufferSize,
			WriteBufferSize: opts.WriteBufferSize,
			CheckOrigin:     checkOrigin(opts.AllowedOrigins),
		},
		opts: opts,
		log:  log,
	}
}

// WithMetrics records session metrics on m
func (h *SessionHandler) WithMetrics(m *metrics.Metrics) *SessionHandler {
	h.metrics = m
	return h
}

// Wait blocks until every session has closed
func (h *SessionHandler) Wait() {
	h.wg.Wait()
}

func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		h.log.WithError(err).WithField("remote", getClientIP(r)).Debug("WebSocket upgrade failed")
		return
	}

	h.wg.Add(1)
	defer h.wg.Done()

	s := newSession(h, conn, getClientIP(r))
	s.run(r.Context())
}

// Session is one client connection
type Session struct {
	id      string
	conn    *websocket.Conn
	handler *SessionHandler
	client  *hub.Client
	replies chan []byte
	done    chan struct{}
	state   atomic.Int32
	log     logrus.FieldLogger
}

func newSession(h *SessionHandler, conn *websocket.Conn, remote string) *Session {
	id := uuid.NewString()
	return &Session{
		id:      id,
		conn:    conn,
		handler: h,
		client:  hub.NewClient(id, h.opts.SendBuffer),
		replies: make(chan []byte, 16),
		done:    make(chan struct{}),
		log: h.log.WithFields(logrus.Fields{
			"session": id,
			"remote":  remote,
		}),
	}
}

// ID returns the session ID
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle stage
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// run opens the session, processes frames until the connection ends and
// then closes it
func (s *Session) run(ctx context.Context) {
	snapshot, err := s.open()
	if err != nil {
		s.log.WithError(err).Error("Failed to open session")
		s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, ""),
			time.Now().Add(writeWait))
		s.conn.Close()
		s.state.Store(int32(StateClosed))
		return
	}

	s.state.Store(int32(StateOpen))
	s.handler.metrics.SessionOpened()
	s.log.Info("Session opened")

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writePump(snapshot)
	}()

	s.readPump(ctx, writerDone)

	s.state.Store(int32(StateClosed))
	close(s.done)
	s.handler.hub.Unregister(s.client)
	<-writerDone
	s.handler.metrics.SessionClosed()
	s.log.Info("Session closed")
}

// open takes the snapshot and registers with the hub while mutations are
// held off, so every change after the snapshot reaches this session
func (s *Session) open() ([]byte, error) {
	var frame []byte
	err := s.handler.svc.View(func(devices []domain.Device) error {
		var err error
		frame, err = protocol.EncodeSnapshot(devices)
		if err != nil {
			return err
		}
		if !s.handler.hub.Register(s.client) {
			return errHubStopped
		}
		return nil
	})
	return frame, err
}

// readPump handles client frames in arrival order
func (s *Session) readPump(ctx context.Context, writerDone <-chan struct{}) {
	pongWait := 2 * s.handler.opts.PingInterval

	if s.handler.opts.MaxMessageBytes > 0 {
		s.conn.SetReadLimit(s.handler.opts.MaxMessageBytes)
	}
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				s.log.WithError(err).Debug("Connection lost")
			}
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(pongWait))

		// An accepted mutation is committed even if the client leaves mid-save
		if !s.handleFrame(context.WithoutCancel(ctx), msgType, data, writerDone) {
			return
		}
	}
}

// handleFrame processes one client frame and reports whether the session
// should keep reading
func (s *Session) handleFrame(ctx context.Context, msgType int, data []byte, writerDone <-chan struct{}) bool {
	if msgType != websocket.TextMessage {
		return s.fail(fmt.Errorf("%w: binary frames are not supported", domain.ErrMalformedMessage), -1, writerDone)
	}

	msg, err := protocol.Decode(data)
	if err != nil {
		return s.fail(err, -1, writerDone)
	}
	s.handler.metrics.MessageReceived(msg.MessageType())

	result, err := s.handler.svc.Apply(ctx, s.id, msg)
	if err != nil {
		applied := -1
		var batchErr *service.BatchError
		if errors.As(err, &batchErr) {
			applied = result.Applied
		}
		return s.fail(err, applied, writerDone)
	}

	s.log.WithFields(logrus.Fields{
		"type":    msg.MessageType(),
		"applied": result.Applied,
	}).Debug("Message applied")

	if s.handler.opts.Acknowledge {
		frame, err := protocol.EncodeAck(result.Applied)
		if err != nil {
			s.log.WithError(err).Error("Failed to encode ack")
			return true
		}
		s.reply(frame, writerDone)
	}
	return true
}

// fail reports err to the client and reports whether the session survives it
func (s *Session) fail(err error, applied int, writerDone <-chan struct{}) bool {
	kind := domain.ErrorKind(err)
	s.handler.metrics.MessageFailed(kind)

	entry := s.log.WithError(err).WithField("kind", kind)
	if kind == domain.KindPersistence || !domain.IsRecoverable(err) {
		entry.Error("Message rejected")
	} else {
		entry.Warn("Message rejected")
	}

	frame, encErr := protocol.EncodeError(err, applied)
	if encErr != nil {
		s.log.WithError(encErr).Error("Failed to encode error frame")
	} else {
		s.reply(frame, writerDone)
	}
	return domain.IsRecoverable(err)
}

// reply queues a frame for this session only
func (s *Session) reply(frame []byte, writerDone <-chan struct{}) {
	select {
	case s.replies <- frame:
	case <-writerDone:
	}
}

// writePump owns all writes to the connection. It sends the snapshot first,
// then queued frames, and pings on an interval.
func (s *Session) writePump(snapshot []byte) {
	ticker := time.NewTicker(s.handler.opts.PingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	if err := s.write(websocket.TextMessage, snapshot); err != nil {
		s.log.WithError(err).Debug("Failed to send snapshot")
		return
	}

	for {
		select {
		case frame, ok := <-s.client.Send():
			if !ok {
				// Dropped by the hub (slow, or shutting down)
				s.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := s.write(websocket.TextMessage, frame); err != nil {
				return
			}

		case frame := <-s.replies:
			if err := s.write(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			if err := s.write(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-s.done:
			s.flushReplies()
			s.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// flushReplies writes replies queued before the reader stopped
func (s *Session) flushReplies() {
	for {
		select {
		case frame := <-s.replies:
			if err := s.write(websocket.TextMessage, frame); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (s *Session) write(msgType int, data []byte) error {
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(msgType, data)
}
