package chat

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"manas-backend/internal/crisis"
	"manas-backend/internal/inference"
	"manas-backend/internal/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Session lifecycle states.
const (
	stateConnecting int32 = iota
	stateAuthenticated
	stateActive
	stateClosing
	stateClosed
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 54 * time.Second
)

// inboundFrame is what the client sends per message.
type inboundFrame struct {
	Text string `json:"text"`
}

// outboundFrame is the envelope for everything the session writes.
type outboundFrame struct {
	Type       string              `json:"type"`
	SessionID  string              `json:"session_id,omitempty"`
	Emotion    string              `json:"emotion,omitempty"`
	Confidence float64             `json:"confidence,omitempty"`
	IsCrisis   bool                `json:"is_crisis"`
	AllScores  []models.LabelScore `json:"all_scores,omitempty"`
	Message    string              `json:"message,omitempty"`
	Helplines  []Helpline          `json:"helplines,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// delivery is the result slot for one inbound message. The reader enqueues
// slots in receipt order; the writer drains them in that same order, so
// responses stay ordered even when classification finishes out of order.
type delivery struct {
	result *models.EmotionResult
	errMsg string
}

// Session owns one websocket connection: a reader goroutine ingesting frames,
// classification fan-out through the shared gateway, and a writer goroutine
// that is the only one touching the outbound side of the connection.
type Session struct {
	id       string
	identity models.Identity
	conn     *websocket.Conn

	gateway  *inference.Gateway
	reporter *crisis.Reporter
	severity int

	idleTimeout time.Duration
	state       atomic.Int32
	deliveries  chan chan delivery

	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
}

func newSession(id string, identity models.Identity, conn *websocket.Conn, gateway *inference.Gateway, reporter *crisis.Reporter, severity int, idleTimeout time.Duration, logger *zap.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:          id,
		identity:    identity,
		conn:        conn,
		gateway:     gateway,
		reporter:    reporter,
		severity:    severity,
		idleTimeout: idleTimeout,
		deliveries:  make(chan chan delivery, 32),
		ctx:         ctx,
		cancel:      cancel,
		logger: logger.With(
			zap.String("session_id", id),
			zap.Int64("user_id", identity.UserID)),
	}
	s.state.Store(stateAuthenticated)
	return s
}

// run blocks until the connection is gone. Every exit path cancels the
// session context so in-flight classification stops holding resources.
func (s *Session) run() {
	defer s.close()

	s.conn.SetReadDeadline(time.Now().Add(s.idleTimeout))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(s.idleTimeout))
		return nil
	})

	go s.writeLoop()
	go s.pingLoop()

	if err := s.writeFrame(outboundFrame{Type: "connected", SessionID: s.id}); err != nil {
		s.logger.Warn("Failed to send connected frame", zap.Error(err))
		return
	}
	s.state.Store(stateActive)
	s.logger.Info("Session active", zap.String("role", s.identity.Role))

	s.readLoop()
}

func (s *Session) readLoop() {
	for {
		var frame inboundFrame
		if err := s.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("Session read error", zap.Error(err))
			}
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(s.idleTimeout))

		msg := models.ChatMessage{
			SessionID: s.id,
			SenderID:  s.identity.UserID,
			Text:      frame.Text,
			Timestamp: time.Now(),
		}

		slot := make(chan delivery, 1)
		select {
		case s.deliveries <- slot:
		case <-s.ctx.Done():
			return
		}
		go s.classify(msg, slot)
	}
}

func (s *Session) classify(msg models.ChatMessage, slot chan delivery) {
	result, err := s.gateway.Classify(s.ctx, msg.Text, 0)
	if err != nil && errors.Is(err, context.Canceled) {
		// Session closed before the model answered; nothing was detected,
		// nothing is committed.
		slot <- delivery{errMsg: "session closed"}
		return
	}

	if result != nil && result.IsCrisis {
		severity := result.Severity
		if severity <= 0 {
			severity = s.severity
		}
		// Detached from the session context: an alert for a message that
		// finished classifying is committed even if the socket drops now.
		s.reporter.Report(crisis.Detection{
			UserID:     s.identity.UserID,
			SessionID:  s.id,
			DetectedAt: msg.Timestamp,
			Severity:   severity,
		})
	}

	d := delivery{result: result}
	if err != nil && !errors.Is(err, inference.ErrModelUnavailable) {
		d.errMsg = "classification failed"
	}
	slot <- d
}

func (s *Session) writeLoop() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case slot := <-s.deliveries:
			var d delivery
			select {
			case d = <-slot:
			case <-s.ctx.Done():
				return
			}
			s.deliver(d)
		}
	}
}

func (s *Session) deliver(d delivery) {
	// Safety resources go out ahead of anything else.
	if d.result != nil && d.result.IsCrisis {
		if err := s.writeFrame(outboundFrame{
			Type:      "safety_resources",
			Message:   safetyMessage,
			Helplines: helplines,
		}); err != nil {
			s.logger.Warn("Failed to write safety frame", zap.Error(err))
			return
		}
	}

	if d.errMsg != "" {
		if err := s.writeFrame(outboundFrame{Type: "error", Error: d.errMsg}); err != nil {
			s.logger.Warn("Failed to write error frame", zap.Error(err))
		}
		return
	}
	if d.result == nil {
		return
	}

	if err := s.writeFrame(outboundFrame{
		Type:       "emotion",
		Emotion:    d.result.Emotion,
		Confidence: d.result.Confidence,
		IsCrisis:   d.result.IsCrisis,
		AllScores:  d.result.AllScores,
	}); err != nil {
		s.logger.Warn("Failed to write emotion frame", zap.Error(err))
	}
}

func (s *Session) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				s.cancel()
				return
			}
		}
	}
}

func (s *Session) writeFrame(frame outboundFrame) error {
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteJSON(frame)
}

func (s *Session) close() {
	if !s.state.CompareAndSwap(stateActive, stateClosing) {
		s.state.Store(stateClosing)
	}
	s.cancel()
	s.conn.Close()
	s.state.Store(stateClosed)
	s.logger.Info("Session closed")
}
