package domain

// Message types accepted from clients.
const (
	MsgSubscribe   = "subscribe"
	MsgUnsubscribe = "unsubscribe"
	MsgHeartbeat   = "heartbeat"
)

// Message types sent to clients.
const (
	MsgSubscribed   = "subscribed"
	MsgPriceUpdate  = "price_update"
	MsgHeartbeatAck = "heartbeat_ack"
)

// InboundMessage is the envelope for client to server messages.
type InboundMessage struct {
	Type    string   `json:"type"`
	Symbols []string `json:"symbols,omitempty"`
}

// SubscribedMessage acknowledges a subscribe request, echoing the full
// set of symbols the client is now subscribed to.
type SubscribedMessage struct {
	Type      string   `json:"type"`
	Symbols   []string `json:"symbols"`
	Timestamp int64    `json:"timestamp"`
}

// PriceUpdateMessage delivers the quotes relevant to one subscriber for
// one broadcast tick.
type PriceUpdateMessage struct {
	Type      string       `json:"type"`
	Prices    []PriceQuote `json:"prices"`
	Timestamp int64        `json:"timestamp"`
}

// HeartbeatAckMessage answers a client heartbeat.
type HeartbeatAckMessage struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}
