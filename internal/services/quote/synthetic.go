package quote

import (
	"math"
	"math/rand"
	"time"

	"github.com/fxwire/fxwire/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	baseJPY     = 150.0
	baseDefault = 1.1
	volatility  = 0.001

	// defaultBars is the length of a synthetic candle series.
	defaultBars = 100
)

func basePrice(pair domain.Pair) float64 {
	if pair.IsJPY() {
		return baseJPY
	}
	return baseDefault
}

// SyntheticQuote generates a plausible quote around the pair's base
// price with a one pip spread, rounded to the pair's precision.
// ask >= bid holds by construction.
func SyntheticQuote(pair domain.Pair) domain.PriceQuote {
	base := basePrice(pair)
	places := pair.Places()

	price := base + (rand.Float64()-0.5)*volatility*base
	spread := price * 0.0001

	bid := decimal.NewFromFloat(price - spread/2).Round(places)
	ask := decimal.NewFromFloat(price + spread/2).Round(places)

	return domain.PriceQuote{
		Symbol:        pair.String(),
		Price:         decimal.NewFromFloat(price).Round(places),
		Bid:           bid,
		Ask:           ask,
		Spread:        ask.Sub(bid),
		Timestamp:     time.Now().UnixMilli(),
		Change:        decimal.NewFromFloat((rand.Float64() - 0.5) * 0.01).Round(places),
		ChangePercent: decimal.NewFromFloat(rand.Float64() - 0.5).Round(4),
	}
}

// SyntheticCandles generates an ascending series of n one-minute bars
// ending now. The walk is clamped to within five percent of the pair's
// base price so the series always looks renderable.
func SyntheticCandles(pair domain.Pair, n int) []domain.CandleBar {
	base := basePrice(pair)
	places := pair.Places()
	now := time.Now().UnixMilli()

	bars := make([]domain.CandleBar, 0, n)
	price := base
	for i := n - 1; i >= 0; i-- {
		price += (rand.Float64() - 0.5) * volatility * price
		price = math.Max(price, base*0.95)
		price = math.Min(price, base*1.05)

		open := price
		cls := open + (rand.Float64()-0.5)*volatility*open
		high := math.Max(open, cls) + rand.Float64()*volatility*open*0.5
		low := math.Min(open, cls) - rand.Float64()*volatility*open*0.5

		bars = append(bars, domain.CandleBar{
			Time:  now - int64(i)*time.Minute.Milliseconds(),
			Open:  decimal.NewFromFloat(open).Round(places),
			High:  decimal.NewFromFloat(high).Round(places),
			Low:   decimal.NewFromFloat(low).Round(places),
			Close: decimal.NewFromFloat(cls).Round(places),
		})
		price = cls
	}
	return bars
}

func fallbackQuote(pair domain.Pair, reason string) domain.QuoteResult {
	return domain.QuoteResult{
		Quote:     SyntheticQuote(pair),
		Synthetic: true,
		Reason:    reason,
	}
}
