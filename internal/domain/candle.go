package domain

import "github.com/shopspring/decimal"

// CandleBar is one OHLC bar of a price series.
//
// Invariants: Low <= min(Open, Close), High >= max(Open, Close), and a
// series is strictly ascending in Time.
type CandleBar struct {
	// Time is the bar open time in unix milliseconds.
	Time   int64           `json:"time"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}
