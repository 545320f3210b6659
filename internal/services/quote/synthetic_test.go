package quote

import (
	"testing"

	"github.com/fxwire/fxwire/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyntheticQuoteInvariants(t *testing.T) {
	tests := []struct {
		name string
		pair domain.Pair
		base float64
	}{
		{name: "non-JPY pair", pair: domain.Pair{Base: "EUR", Quote: "USD"}, base: 1.1},
		{name: "JPY pair", pair: domain.Pair{Base: "USD", Quote: "JPY"}, base: 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// the generator is random, so sample it repeatedly
			for i := 0; i < 200; i++ {
				q := SyntheticQuote(tt.pair)

				assert.Equal(t, tt.pair.String(), q.Symbol)
				assert.True(t, q.Bid.IsPositive(), "bid must be positive, got %s", q.Bid)
				assert.True(t, q.Ask.GreaterThanOrEqual(q.Bid), "ask %s < bid %s", q.Ask, q.Bid)
				assert.True(t, q.Spread.Equal(q.Ask.Sub(q.Bid)), "spread %s != ask-bid", q.Spread)

				base := decimal.NewFromFloat(tt.base)
				assert.True(t, q.Price.Sub(base).Abs().LessThan(base.Mul(decimal.NewFromFloat(0.01))),
					"price %s strayed from base %s", q.Price, base)

				assert.GreaterOrEqual(t, q.Bid.Exponent(), -tt.pair.Places())
				assert.GreaterOrEqual(t, q.Ask.Exponent(), -tt.pair.Places())
			}
		})
	}
}

func TestSyntheticCandlesInvariants(t *testing.T) {
	pair := domain.Pair{Base: "EUR", Quote: "USD"}
	bars := SyntheticCandles(pair, defaultBars)
	require.Len(t, bars, defaultBars)

	lo := decimal.NewFromFloat(1.1 * 0.94)
	hi := decimal.NewFromFloat(1.1 * 1.06)

	for i, bar := range bars {
		if i > 0 {
			assert.Greater(t, bar.Time, bars[i-1].Time, "series must be strictly ascending at bar %d", i)
		}

		minOC := decimal.Min(bar.Open, bar.Close)
		maxOC := decimal.Max(bar.Open, bar.Close)
		assert.True(t, bar.Low.LessThanOrEqual(minOC), "bar %d: low %s above open/close", i, bar.Low)
		assert.True(t, bar.High.GreaterThanOrEqual(maxOC), "bar %d: high %s below open/close", i, bar.High)

		assert.True(t, bar.Close.GreaterThan(lo) && bar.Close.LessThan(hi),
			"bar %d: close %s outside the walk bounds", i, bar.Close)
	}
}
