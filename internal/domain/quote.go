package domain

import "github.com/shopspring/decimal"

// PriceQuote is one bid/ask observation for a currency pair. Quotes are
// value objects: constructed once by the quote source and only read
// downstream.
type PriceQuote struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	Bid           decimal.Decimal `json:"bid"`
	Ask           decimal.Decimal `json:"ask"`
	Spread        decimal.Decimal `json:"spread"`
	Timestamp     int64           `json:"timestamp"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"changePercent"`
}

// QuoteResult carries a quote together with its provenance, so callers
// can tell live data from locally synthesized fallback without digging
// through logs.
type QuoteResult struct {
	Quote PriceQuote
	// Synthetic is true when the upstream call failed and the quote was
	// generated locally.
	Synthetic bool
	// Reason describes why fallback data was served. Empty for live quotes.
	Reason string
}
