// Package web exposes the websocket endpoint, the liveness endpoint and
// the REST market data API.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fxwire/fxwire/internal/domain"
	"github.com/fxwire/fxwire/internal/services/broadcast"
	"github.com/fxwire/fxwire/internal/services/quote"
	"github.com/fxwire/fxwire/internal/services/registry"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Server serves client connections and market data over HTTP.
type Server struct {
	addr     string
	env      string
	reg      *registry.Registry
	sched    *broadcast.Scheduler
	source   quote.Source
	log      *zap.Logger
	started  time.Time
	upgrader websocket.Upgrader
}

// NewServer creates the HTTP server.
func NewServer(addr, env string, reg *registry.Registry, sched *broadcast.Scheduler, source quote.Source, log *zap.Logger) *Server {
	return &Server{
		addr:    addr,
		env:     env,
		reg:     reg,
		sched:   sched,
		source:  source,
		log:     log,
		started: time.Now(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/market/quote", s.handleQuote)
	mux.HandleFunc("/api/market/candles", s.handleCandles)
	return mux
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	sess, err := broadcast.NewSession(conn, s.reg, s.log)
	if err != nil {
		s.log.Error("failed to register session", zap.Error(err))
		_ = conn.Close()
		return
	}
	s.log.Info("client connected",
		zap.String("session", sess.ID()), zap.String("remote", r.RemoteAddr))
	sess.Run()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "OK",
		"timestamp":         time.Now().UnixMilli(),
		"uptimeSeconds":     int64(time.Since(s.started).Seconds()),
		"environment":       s.env,
		"subscribers":       s.sched.SubscriberCount(),
		"lastUpstreamFetch": s.sched.LastFetch(),
	})
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("pair")
	res, err := s.source.RealtimeQuote(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidPair) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"quote":     res.Quote,
		"synthetic": res.Synthetic,
	})
}

func (s *Server) handleCandles(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("pair")

	switch r.URL.Query().Get("range") {
	case "daily":
		bars, err := s.source.DailyCandles(r.Context(), symbol)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrInvalidPair):
				writeError(w, http.StatusBadRequest, err)
			case errors.Is(err, quote.ErrNoDailyData):
				writeError(w, http.StatusNotFound, err)
			default:
				s.log.Error("daily candles fetch failed",
					zap.String("pair", symbol), zap.Error(err))
				writeError(w, http.StatusBadGateway, err)
			}
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"candles": bars, "synthetic": false})

	default:
		bars, synthetic, err := s.source.IntradayCandles(r.Context(), symbol, r.URL.Query().Get("interval"))
		if err != nil {
			// only invalid input can fail this path
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"candles": bars, "synthetic": synthetic})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
