package broadcast

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fxwire/fxwire/internal/domain"
	"github.com/fxwire/fxwire/internal/services/registry"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// dialSession spins up a websocket endpoint backed by a fresh session
// per connection and dials it.
func dialSession(t *testing.T, reg *registry.Registry) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		sess, err := NewSession(conn, reg, zap.NewNop())
		if err != nil {
			_ = conn.Close()
			return
		}
		sess.Run()
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return reg.Len() == 1 },
		time.Second, 5*time.Millisecond, "session should register on connect")
	return conn
}

func readMessage[T any](t *testing.T, conn *websocket.Conn) T {
	t.Helper()
	var msg T
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestSessionSubscribeFlow(t *testing.T) {
	reg := registry.New()
	conn := dialSession(t, reg)

	require.NoError(t, conn.WriteJSON(domain.InboundMessage{
		Type:    domain.MsgSubscribe,
		Symbols: []string{"USD/JPY"},
	}))

	ack := readMessage[domain.SubscribedMessage](t, conn)
	assert.Equal(t, domain.MsgSubscribed, ack.Type)
	assert.Equal(t, []string{"USD/JPY"}, ack.Symbols)
	assert.NotZero(t, ack.Timestamp)

	// one manual tick delivers exactly one update with the subscribed pair
	s := newTestScheduler(t, reg, newBatchPricer())
	s.Broadcast(context.Background())

	update := readMessage[domain.PriceUpdateMessage](t, conn)
	assert.Equal(t, domain.MsgPriceUpdate, update.Type)
	require.Len(t, update.Prices, 1)
	assert.Equal(t, "USD/JPY", update.Prices[0].Symbol)
	assert.True(t, update.Prices[0].Ask.GreaterThanOrEqual(update.Prices[0].Bid))
}

func TestSessionSubscribeAckEchoesFullSet(t *testing.T) {
	reg := registry.New()
	conn := dialSession(t, reg)

	require.NoError(t, conn.WriteJSON(domain.InboundMessage{
		Type:    domain.MsgSubscribe,
		Symbols: []string{"USD/JPY"},
	}))
	first := readMessage[domain.SubscribedMessage](t, conn)
	assert.Equal(t, []string{"USD/JPY"}, first.Symbols)

	require.NoError(t, conn.WriteJSON(domain.InboundMessage{
		Type:    domain.MsgSubscribe,
		Symbols: []string{"EUR/USD"},
	}))
	second := readMessage[domain.SubscribedMessage](t, conn)
	assert.Equal(t, []string{"EUR/USD", "USD/JPY"}, second.Symbols,
		"ack carries the full set after the union")
}

func TestSessionHeartbeat(t *testing.T) {
	reg := registry.New()
	conn := dialSession(t, reg)

	require.NoError(t, conn.WriteJSON(domain.InboundMessage{Type: domain.MsgHeartbeat}))

	ack := readMessage[domain.HeartbeatAckMessage](t, conn)
	assert.Equal(t, domain.MsgHeartbeatAck, ack.Type)
	assert.NotZero(t, ack.Timestamp)
}

func TestSessionIgnoresMalformedMessages(t *testing.T) {
	reg := registry.New()
	conn := dialSession(t, reg)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("this is not json")))
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "launch_missiles"}))

	// the session survives and still answers heartbeats
	require.NoError(t, conn.WriteJSON(domain.InboundMessage{Type: domain.MsgHeartbeat}))
	ack := readMessage[domain.HeartbeatAckMessage](t, conn)
	assert.Equal(t, domain.MsgHeartbeatAck, ack.Type)
	assert.Equal(t, 1, reg.Len())
}

func TestSessionDisconnectRemovesSubscriber(t *testing.T) {
	reg := registry.New()
	conn := dialSession(t, reg)

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool { return reg.Len() == 0 },
		time.Second, 5*time.Millisecond, "disconnect should remove the registry entry")
}

func TestSessionUnsubscribe(t *testing.T) {
	reg := registry.New()
	conn := dialSession(t, reg)

	require.NoError(t, conn.WriteJSON(domain.InboundMessage{
		Type:    domain.MsgSubscribe,
		Symbols: []string{"USD/JPY", "EUR/USD"},
	}))
	readMessage[domain.SubscribedMessage](t, conn)

	require.NoError(t, conn.WriteJSON(domain.InboundMessage{
		Type:    domain.MsgUnsubscribe,
		Symbols: []string{"USD/JPY"},
	}))

	// no ack for unsubscribe; poll the registry instead
	require.Eventually(t, func() bool {
		snap := reg.Snapshot()
		return len(snap) == 1 && len(snap[0].Symbols) == 1 && snap[0].Symbols[0] == "EUR/USD"
	}, time.Second, 5*time.Millisecond)
}
