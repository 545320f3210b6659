package quote

import (
	"context"
	"sync"

	"github.com/fxwire/fxwire/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// LocalPricer serves broadcast ticks from the synthetic generator. It
// keeps the previous quote per symbol so consecutive updates carry real
// change figures, which the stateless quote source leaves at zero.
type LocalPricer struct {
	mu   sync.Mutex
	prev map[string]domain.PriceQuote
}

// NewLocalPricer creates a pricer that never touches the upstream.
func NewLocalPricer() *LocalPricer {
	return &LocalPricer{prev: make(map[string]domain.PriceQuote)}
}

// BatchQuotes generates one quote per valid symbol. Invalid symbols are
// skipped.
func (p *LocalPricer) BatchQuotes(_ context.Context, symbols []string) map[string]domain.PriceQuote {
	out := make(map[string]domain.PriceQuote, len(symbols))

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, symbol := range symbols {
		pair, err := domain.ParsePair(symbol)
		if err != nil {
			continue
		}
		q := SyntheticQuote(pair)
		if prev, ok := p.prev[symbol]; ok && !prev.Price.IsZero() {
			q.Change = q.Price.Sub(prev.Price)
			q.ChangePercent = q.Change.Div(prev.Price).Mul(hundred).Round(4)
		}
		p.prev[symbol] = q
		out[symbol] = q
	}
	return out
}

// UpstreamPricer adapts the rate limited client to the broadcast tick.
// With live data the tick effectively slows to the call budget, which
// is acceptable for low-subscriber deployments that want real rates.
type UpstreamPricer struct {
	src  Source
	mu   sync.Mutex
	prev map[string]domain.PriceQuote
}

// NewUpstreamPricer wraps a quote source for broadcast use.
func NewUpstreamPricer(src Source) *UpstreamPricer {
	return &UpstreamPricer{src: src, prev: make(map[string]domain.PriceQuote)}
}

// BatchQuotes fetches live quotes and computes change figures by
// diffing against the previous batch.
func (p *UpstreamPricer) BatchQuotes(ctx context.Context, symbols []string) map[string]domain.PriceQuote {
	results := p.src.RealtimeQuotes(ctx, symbols)

	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]domain.PriceQuote, len(results))
	for symbol, res := range results {
		q := res.Quote
		if prev, ok := p.prev[symbol]; ok && !res.Synthetic && !prev.Price.IsZero() {
			q.Change = q.Price.Sub(prev.Price)
			q.ChangePercent = q.Change.Div(prev.Price).Mul(hundred).Round(4)
		}
		p.prev[symbol] = q
		out[symbol] = q
	}
	return out
}
