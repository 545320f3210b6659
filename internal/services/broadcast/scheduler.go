package broadcast

import (
	"context"
	"sync"
	"time"

	"github.com/fxwire/fxwire/internal/domain"
	"github.com/fxwire/fxwire/internal/services/registry"
	"go.uber.org/zap"
)

// Pricer computes one batch of quotes for the symbols currently under
// subscription. One batch per tick, never one fetch per subscriber.
type Pricer interface {
	BatchQuotes(ctx context.Context, symbols []string) map[string]domain.PriceQuote
}

// UpstreamStatus reports the last successful upstream fetch in unix
// milliseconds, for the health surface.
type UpstreamStatus interface {
	LastFetch() int64
}

// Config holds the scheduler periods.
type Config struct {
	// TickInterval is the price broadcast cadence.
	TickInterval time.Duration
	// SweepInterval is the idle eviction cadence.
	SweepInterval time.Duration
	// IdleTimeout is how long a subscriber may stay silent before the
	// sweep disconnects it.
	IdleTimeout time.Duration
}

// Scheduler drives the two periodic activities of the service: the
// price broadcast tick and the idle eviction sweep. Both share the
// registry and a single cancellation signal.
type Scheduler struct {
	cfg    Config
	reg    *registry.Registry
	pricer Pricer
	status UpstreamStatus
	log    *zap.Logger

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a scheduler. Zero periods get the documented defaults:
// 1s tick, 60s sweep, 5m idle timeout.
func New(cfg Config, reg *registry.Registry, pricer Pricer, status UpstreamStatus, log *zap.Logger) *Scheduler {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 5 * time.Minute
	}
	return &Scheduler{
		cfg:    cfg,
		reg:    reg,
		pricer: pricer,
		status: status,
		log:    log,
	}
}

// Start launches both periodic loops. They run until Stop is called or
// ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(2)
	go s.priceLoop(ctx)
	go s.sweepLoop(ctx)
	s.log.Info("broadcast scheduler started",
		zap.Duration("tick", s.cfg.TickInterval),
		zap.Duration("sweep", s.cfg.SweepInterval),
		zap.Duration("idleTimeout", s.cfg.IdleTimeout))
}

func (s *Scheduler) priceLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Broadcast(ctx)
		}
	}
}

func (s *Scheduler) sweepLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(time.Now())
		}
	}
}

// Broadcast runs one price tick: one batched quote computation for all
// symbols under subscription, then a filtered delivery per subscriber.
// Subscribers with no relevant quotes receive nothing at all.
func (s *Scheduler) Broadcast(ctx context.Context) {
	snapshot := s.reg.Snapshot()

	seen := make(map[string]struct{})
	symbols := make([]string, 0)
	for _, rec := range snapshot {
		for _, sym := range rec.Symbols {
			if _, ok := seen[sym]; !ok {
				seen[sym] = struct{}{}
				symbols = append(symbols, sym)
			}
		}
	}
	if len(symbols) == 0 {
		return
	}

	quotes := s.pricer.BatchQuotes(ctx, symbols)
	if len(quotes) == 0 {
		return
	}
	now := time.Now().UnixMilli()

	for _, rec := range snapshot {
		prices := make([]domain.PriceQuote, 0, len(rec.Symbols))
		for _, sym := range rec.Symbols {
			if q, ok := quotes[sym]; ok {
				prices = append(prices, q)
			}
		}
		if len(prices) == 0 {
			continue
		}
		err := rec.Transport.SendJSON(domain.PriceUpdateMessage{
			Type:      domain.MsgPriceUpdate,
			Prices:    prices,
			Timestamp: now,
		})
		if err != nil {
			// one broken subscriber must not stop the tick
			s.log.Warn("price update delivery failed",
				zap.String("session", rec.ID), zap.Error(err))
		}
	}
}

// Sweep evicts subscribers idle longer than the timeout and closes
// their transports. Removal happens before close so a concurrent tick
// cannot address a transport mid-close.
func (s *Scheduler) Sweep(now time.Time) {
	for _, rec := range s.reg.EvictStale(now, s.cfg.IdleTimeout) {
		if err := rec.Transport.Close(); err != nil {
			s.log.Warn("failed to close evicted transport",
				zap.String("session", rec.ID), zap.Error(err))
		}
		s.log.Info("evicted idle client", zap.String("session", rec.ID))
	}
}

// Stop halts both loops, closes all live transports and clears the
// registry. Safe to call more than once; later calls are no-ops.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
		for _, rec := range s.reg.Clear() {
			_ = rec.Transport.Close()
		}
		s.log.Info("broadcast scheduler stopped")
	})
}

// SubscriberCount returns the number of connected subscribers.
func (s *Scheduler) SubscriberCount() int {
	return s.reg.Len()
}

// LastFetch returns the timestamp of the last successful upstream
// fetch, unix milliseconds, zero if none.
func (s *Scheduler) LastFetch() int64 {
	if s.status == nil {
		return 0
	}
	return s.status.LastFetch()
}
