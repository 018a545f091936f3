// Package api provides the read-only HTTP and WebSocket surface over the
// running primitives. Mutating operations stay in-process; this server is
// the observability layer only.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/firattale/damn-vulnerable-defi/pkg/bank"
	"github.com/firattale/damn-vulnerable-defi/pkg/core"
	"github.com/firattale/damn-vulnerable-defi/pkg/lending"
	"github.com/firattale/damn-vulnerable-defi/pkg/logging"
	"github.com/firattale/damn-vulnerable-defi/pkg/market"
	"github.com/firattale/damn-vulnerable-defi/pkg/metrics"
	"github.com/firattale/damn-vulnerable-defi/pkg/oracle"
)

// Server is the read-only HTTP API server.
type Server struct {
	addr    string
	symbol  string
	oracle  *oracle.Oracle
	market  *market.Marketplace
	pool    *lending.Pool
	reserve lending.ReserveView
	ledger  *bank.Ledger
	server  *http.Server
	logger  *logging.Logger
	ws      *WebSocketServer
}

// NewServer creates an HTTP API server over the running components.
func NewServer(addr, symbol string, o *oracle.Oracle, m *market.Marketplace, p *lending.Pool, r lending.ReserveView, l *bank.Ledger, logger *logging.Logger) *Server {
	return &Server{
		addr:    addr,
		symbol:  symbol,
		oracle:  o,
		market:  m,
		pool:    p,
		reserve: r,
		ledger:  l,
		logger:  logger,
	}
}

// SetWebSocketServer attaches a WebSocket server for event streaming at /ws.
func (s *Server) SetWebSocketServer(ws *WebSocketServer) {
	s.ws = ws
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/price", s.handlePrice)
	mux.HandleFunc("/v1/prices", s.handlePrices)
	mux.HandleFunc("/v1/pool", s.handlePool)
	mux.HandleFunc("/v1/market", s.handleMarket)
	if s.ws != nil {
		mux.HandleFunc("/ws", s.ws.handleWebSocket)
	}

	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("Starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		s.logger.Info("Stopping HTTP server")
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	defer func() {
		metrics.RecordHTTPRequest("/health", "200", time.Since(start))
	}()

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// symbolParam reads the symbol query parameter, defaulting to the
// marketplace symbol.
func (s *Server) symbolParam(r *http.Request) string {
	if sym := r.URL.Query().Get("symbol"); sym != "" {
		return sym
	}
	return s.symbol
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "200"
	defer func() {
		metrics.RecordHTTPRequest("/v1/price", status, time.Since(start))
	}()

	symbol := s.symbolParam(r)
	price, err := s.oracle.ConsensusPrice(symbol)
	if err != nil {
		status = "503"
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	s.sendJSON(w, map[string]interface{}{
		"symbol":    symbol,
		"consensus": price,
	})
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		metrics.RecordHTTPRequest("/v1/prices", "200", time.Since(start))
	}()

	symbol := s.symbolParam(r)
	sources := s.oracle.Sources()

	type sourcePrice struct {
		Source core.Address    `json:"source"`
		Price  decimal.Decimal `json:"price"`
	}
	out := make([]sourcePrice, len(sources))
	for i, source := range sources {
		out[i] = sourcePrice{Source: source, Price: s.oracle.PriceOf(symbol, source)}
	}

	s.sendJSON(w, map[string]interface{}{
		"symbol":  symbol,
		"sources": out,
	})
}

func (s *Server) handlePool(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	status := "200"
	defer func() {
		metrics.RecordHTTPRequest("/v1/pool", status, time.Since(start))
	}()

	implied, err := s.pool.ImpliedPrice()
	if err != nil {
		status = "503"
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	s.sendJSON(w, map[string]interface{}{
		"reference_balance": s.reserve.ReferenceBalance(),
		"asset_balance":     s.reserve.AssetBalance(),
		"implied_price":     implied,
	})
}

func (s *Server) handleMarket(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	defer func() {
		metrics.RecordHTTPRequest("/v1/market", "200", time.Since(start))
	}()

	s.sendJSON(w, map[string]interface{}{
		"assets":  s.market.Assets().Count(),
		"balance": s.ledger.BalanceOf(s.market.Address()),
	})
}

func (s *Server) sendJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode response", "error", err.Error())
	}
}
