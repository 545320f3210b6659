package quote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"sync/atomic"
	"time"

	"github.com/fxwire/fxwire/internal/domain"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultBaseURL     = "https://www.alphavantage.co/query"
	defaultMinInterval = 12 * time.Second // free tier allows 5 calls/min
	defaultTimeout     = 10 * time.Second

	refreshedLayout = "2006-01-02 15:04:05"
	dailyLayout     = "2006-01-02"

	// maxBars caps every candle series at the latest bars, live or synthetic.
	maxBars = defaultBars
)

// Config holds the upstream client settings.
type Config struct {
	APIKey string
	// BaseURL of the Alpha Vantage compatible endpoint.
	BaseURL string
	// MinInterval is the minimum spacing between upstream calls.
	MinInterval time.Duration
	// Timeout bounds a single upstream request.
	Timeout time.Duration
}

// Client talks to an Alpha Vantage compatible forex API. Every call is
// serialized through a shared budget so the provider's rate limit is
// respected regardless of how many callers there are.
type Client struct {
	cfg    Config
	http   *http.Client
	budget *callBudget
	log    *zap.Logger

	lastFetch atomic.Int64 // unix ms of the last successful upstream response
}

// NewClient creates an upstream quote client. Zero config fields get
// the documented defaults.
func NewClient(cfg Config, log *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = defaultMinInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		budget: newCallBudget(cfg.MinInterval),
		log:    log,
	}
}

// LastFetch returns when the last successful upstream response arrived,
// in unix milliseconds. Zero means no call has succeeded yet.
func (c *Client) LastFetch() int64 {
	return c.lastFetch.Load()
}

func (c *Client) call(ctx context.Context, params url.Values, out any) error {
	if err := c.budget.wait(ctx); err != nil {
		return err
	}

	params.Set("apikey", c.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return errors.Wrap(err, "build upstream request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "upstream request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("upstream returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode upstream response")
	}

	c.lastFetch.Store(time.Now().UnixMilli())
	return nil
}

type exchangeRatePayload struct {
	Rate map[string]string `json:"Realtime Currency Exchange Rate"`
}

// RealtimeQuote fetches the current rate for a pair. Upstream failures
// of any kind (transport, HTTP status, missing or non-numeric fields)
// are absorbed: the caller always gets a quote, flagged synthetic when
// the provider could not supply one.
func (c *Client) RealtimeQuote(ctx context.Context, symbol string) (domain.QuoteResult, error) {
	pair, err := domain.ParsePair(symbol)
	if err != nil {
		return domain.QuoteResult{}, err
	}

	params := url.Values{}
	params.Set("function", "CURRENCY_EXCHANGE_RATE")
	params.Set("from_currency", pair.Base)
	params.Set("to_currency", pair.Quote)

	var payload exchangeRatePayload
	if err := c.call(ctx, params, &payload); err != nil {
		c.log.Warn("realtime quote fetch failed, serving synthetic data",
			zap.String("pair", pair.String()), zap.Error(err))
		return fallbackQuote(pair, err.Error()), nil
	}
	if len(payload.Rate) == 0 {
		c.log.Warn("realtime quote response missing rate object, serving synthetic data",
			zap.String("pair", pair.String()))
		return fallbackQuote(pair, "missing rate object"), nil
	}

	price, errP := decimal.NewFromString(payload.Rate["5. Exchange Rate"])
	bid, errB := decimal.NewFromString(payload.Rate["8. Bid Price"])
	ask, errA := decimal.NewFromString(payload.Rate["9. Ask Price"])
	if errP != nil || errB != nil || errA != nil {
		c.log.Warn("realtime quote response carries non-numeric prices, serving synthetic data",
			zap.String("pair", pair.String()))
		return fallbackQuote(pair, "non-numeric price fields"), nil
	}

	ts := time.Now().UnixMilli()
	if t, err := time.Parse(refreshedLayout, payload.Rate["6. Last Refreshed"]); err == nil {
		ts = t.UnixMilli()
	}

	// Change figures are the caller's job: they require a previous quote
	// and the client is stateless across symbols.
	return domain.QuoteResult{Quote: domain.PriceQuote{
		Symbol:    pair.String(),
		Price:     price,
		Bid:       bid,
		Ask:       ask,
		Spread:    ask.Sub(bid),
		Timestamp: ts,
	}}, nil
}

// RealtimeQuotes fetches quotes for several pairs strictly sequentially
// so the shared budget is respected. A failure on one symbol never
// aborts the rest: that symbol is simply omitted.
func (c *Client) RealtimeQuotes(ctx context.Context, symbols []string) map[string]domain.QuoteResult {
	out := make(map[string]domain.QuoteResult, len(symbols))
	for _, symbol := range symbols {
		res, err := c.RealtimeQuote(ctx, symbol)
		if err != nil {
			c.log.Warn("skipping symbol in batch fetch",
				zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		out[symbol] = res
	}
	return out
}

// IntradayCandles fetches an intraday series at the given interval
// (1min, 5min, 15min, 30min or 60min; empty defaults to 1min). On any
// upstream failure or an empty series, a synthetic series of the
// default length is returned instead so consumers always have
// renderable data; the bool reports that substitution.
func (c *Client) IntradayCandles(ctx context.Context, symbol, interval string) ([]domain.CandleBar, bool, error) {
	pair, err := domain.ParsePair(symbol)
	if err != nil {
		return nil, false, err
	}
	if interval == "" {
		interval = "1min"
	}

	params := url.Values{}
	params.Set("function", "FX_INTRADAY")
	params.Set("from_symbol", pair.Base)
	params.Set("to_symbol", pair.Quote)
	params.Set("interval", interval)

	var payload map[string]json.RawMessage
	if err := c.call(ctx, params, &payload); err != nil {
		c.log.Warn("intraday fetch failed, serving synthetic series",
			zap.String("pair", pair.String()), zap.Error(err))
		return SyntheticCandles(pair, defaultBars), true, nil
	}

	bars := parseSeries(payload["Time Series FX ("+interval+")"], refreshedLayout)
	if len(bars) == 0 {
		c.log.Warn("intraday response missing time series, serving synthetic series",
			zap.String("pair", pair.String()))
		return SyntheticCandles(pair, defaultBars), true, nil
	}
	return bars, false, nil
}

// DailyCandles fetches the end of day series for a pair. Unlike the
// realtime and intraday paths this one propagates upstream absence:
// transport errors come back as-is and a missing series is
// ErrNoDailyData.
func (c *Client) DailyCandles(ctx context.Context, symbol string) ([]domain.CandleBar, error) {
	pair, err := domain.ParsePair(symbol)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("function", "FX_DAILY")
	params.Set("from_symbol", pair.Base)
	params.Set("to_symbol", pair.Quote)

	var payload map[string]json.RawMessage
	if err := c.call(ctx, params, &payload); err != nil {
		return nil, errors.Wrapf(err, "fetch daily history for %s", pair.String())
	}

	bars := parseSeries(payload["Time Series FX (Daily)"], dailyLayout)
	if len(bars) == 0 {
		return nil, errors.Wrap(ErrNoDailyData, pair.String())
	}
	return bars, nil
}

// parseSeries converts an upstream time series object (timestamp keyed,
// newest first by convention) into an ascending slice capped at the
// latest maxBars bars. Unparseable entries are skipped.
func parseSeries(raw json.RawMessage, layout string) []domain.CandleBar {
	if len(raw) == 0 {
		return nil
	}
	var series map[string]map[string]string
	if err := json.Unmarshal(raw, &series); err != nil {
		return nil
	}

	bars := make([]domain.CandleBar, 0, len(series))
	for stamp, fields := range series {
		t, err := time.Parse(layout, stamp)
		if err != nil {
			continue
		}
		open, errO := decimal.NewFromString(fields["1. open"])
		high, errH := decimal.NewFromString(fields["2. high"])
		low, errL := decimal.NewFromString(fields["3. low"])
		cls, errC := decimal.NewFromString(fields["4. close"])
		if errO != nil || errH != nil || errL != nil || errC != nil {
			continue
		}
		bars = append(bars, domain.CandleBar{
			Time:  t.UnixMilli(),
			Open:  open,
			High:  high,
			Low:   low,
			Close: cls,
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time < bars[j].Time })
	if len(bars) > maxBars {
		bars = bars[len(bars)-maxBars:]
	}
	return bars
}
