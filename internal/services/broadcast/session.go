// Package broadcast contains the per-connection protocol handler and
// the scheduler that drives price distribution and idle eviction.
package broadcast

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/fxwire/fxwire/internal/domain"
	"github.com/fxwire/fxwire/internal/services/registry"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Session is one connected websocket client. It owns the inbound read
// loop and serializes outbound writes; the registry holds it as the
// subscriber's transport.
type Session struct {
	id   string
	conn *websocket.Conn
	reg  *registry.Registry
	log  *zap.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewSession registers a fresh session for the connection. Session ids
// are unique per connection and assigned here.
func NewSession(conn *websocket.Conn, reg *registry.Registry, log *zap.Logger) (*Session, error) {
	s := &Session{
		id:   uuid.NewString(),
		conn: conn,
		reg:  reg,
		log:  log,
	}
	if err := reg.Register(s.id, s); err != nil {
		return nil, err
	}
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// SendJSON writes one message to the client. gorilla/websocket permits
// a single concurrent writer, so writes from the session and the
// broadcast tick share a mutex.
func (s *Session) SendJSON(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(v)
}

// Close shuts the underlying connection. Safe to call from both the
// session itself and the eviction sweep; repeated calls are no-ops.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

// Run reads inbound messages until the connection drops, then removes
// the subscriber. Blocking; call from the connection's handler
// goroutine.
func (s *Session) Run() {
	defer func() {
		s.reg.Remove(s.id)
		_ = s.Close()
		s.log.Info("client disconnected", zap.String("session", s.id))
	}()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		s.handle(data)
	}
}

// handle dispatches one inbound message. Malformed messages are logged
// and ignored; they never terminate the session.
func (s *Session) handle(data []byte) {
	var msg domain.InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.log.Warn("ignoring malformed message",
			zap.String("session", s.id), zap.Error(err))
		return
	}

	switch msg.Type {
	case domain.MsgSubscribe:
		subscribed := s.reg.Subscribe(s.id, msg.Symbols)
		if subscribed == nil {
			// evicted concurrently, nothing to acknowledge
			return
		}
		s.log.Info("client subscribed",
			zap.String("session", s.id), zap.Strings("symbols", msg.Symbols))
		if err := s.SendJSON(domain.SubscribedMessage{
			Type:      domain.MsgSubscribed,
			Symbols:   subscribed,
			Timestamp: time.Now().UnixMilli(),
		}); err != nil {
			s.log.Warn("failed to send subscribe ack",
				zap.String("session", s.id), zap.Error(err))
		}

	case domain.MsgUnsubscribe:
		s.reg.Unsubscribe(s.id, msg.Symbols)
		s.log.Info("client unsubscribed",
			zap.String("session", s.id), zap.Strings("symbols", msg.Symbols))

	case domain.MsgHeartbeat:
		s.reg.Touch(s.id)
		if err := s.SendJSON(domain.HeartbeatAckMessage{
			Type:      domain.MsgHeartbeatAck,
			Timestamp: time.Now().UnixMilli(),
		}); err != nil {
			s.log.Warn("failed to send heartbeat ack",
				zap.String("session", s.id), zap.Error(err))
		}

	default:
		s.log.Warn("ignoring message of unknown type",
			zap.String("session", s.id), zap.String("type", msg.Type))
	}
}
