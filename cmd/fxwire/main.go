// Command fxwire runs the real-time forex price distribution service.
// It broadcasts live currency pair quotes to websocket subscribers and
// serves market data over REST, backed by a rate limited Alpha Vantage
// compatible upstream with local synthetic fallback.
//
// Usage:
//
//	fxwire --config config.yaml
//	fxwire --listen :8080
//
// Environment variables:
//
//	ALPHA_VANTAGE_API_KEY   upstream API key
//	ALPHA_VANTAGE_BASE_URL  upstream endpoint override
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fxwire/fxwire/config"
	"github.com/fxwire/fxwire/internal/services/broadcast"
	"github.com/fxwire/fxwire/internal/services/quote"
	"github.com/fxwire/fxwire/internal/services/registry"
	"github.com/fxwire/fxwire/internal/web"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	source := quote.NewClient(quote.Config{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		MinInterval: cfg.MinCallInterval,
		Timeout:     cfg.UpstreamTimeout,
	}, logger)

	reg := registry.New()

	var pricer broadcast.Pricer
	switch cfg.BroadcastSource {
	case "upstream":
		pricer = quote.NewUpstreamPricer(source)
	default:
		pricer = quote.NewLocalPricer()
	}

	sched := broadcast.New(broadcast.Config{
		TickInterval:  cfg.PriceTickInterval,
		SweepInterval: cfg.EvictionInterval,
		IdleTimeout:   cfg.EvictionTimeout,
	}, reg, pricer, source, logger)

	srv := web.NewServer(cfg.ListenAddr, cfg.Environment, reg, sched, source, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched.Start(ctx)

	logger.Info("fxwire listening",
		zap.String("addr", cfg.ListenAddr),
		zap.String("broadcastSource", cfg.BroadcastSource))

	if err := srv.Start(ctx); err != nil {
		logger.Error("http server failed", zap.Error(err))
	}

	sched.Stop()
	logger.Info("shutdown complete")
}
