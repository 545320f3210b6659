// Package quote implements the upstream forex quote source: a rate
// limited Alpha Vantage style REST client that degrades to locally
// synthesized data when the provider fails, plus the pricers that feed
// the broadcast tick.
package quote

import (
	"context"

	"github.com/fxwire/fxwire/internal/domain"
	"github.com/pkg/errors"
)

// ErrNoDailyData is returned when the upstream has no daily history for
// a pair. Daily history is the one path that surfaces upstream absence
// instead of falling back to synthetic data: end of day bars are
// treated as non-optional history, not a best effort live feed.
var ErrNoDailyData = errors.New("no daily data available")

// Source provides realtime and historical forex quotes.
//
// Realtime and intraday calls never fail on upstream trouble; they
// serve synthetic data instead. Malformed symbols fail fast with
// domain.ErrInvalidPair before any upstream call is attempted.
type Source interface {
	// RealtimeQuote returns the current quote for a pair. The result
	// reports whether the quote is live or synthetic.
	RealtimeQuote(ctx context.Context, symbol string) (domain.QuoteResult, error)

	// RealtimeQuotes fetches quotes for several pairs sequentially,
	// respecting the shared call budget. Pairs that fail validation are
	// omitted; the rest are always present.
	RealtimeQuotes(ctx context.Context, symbols []string) map[string]domain.QuoteResult

	// IntradayCandles returns an ascending intraday series. The bool
	// reports whether the series is synthetic.
	IntradayCandles(ctx context.Context, symbol, interval string) ([]domain.CandleBar, bool, error)

	// DailyCandles returns an ascending daily series or fails.
	DailyCandles(ctx context.Context, symbol string) ([]domain.CandleBar, error)
}
