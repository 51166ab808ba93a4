// Package api provides the HTTP and WebSocket surface consumed by the
// dashboard.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quantdesk/quant-backend/internal/backtester"
	"github.com/quantdesk/quant-backend/internal/config"
	"github.com/quantdesk/quant-backend/internal/data"
	"github.com/quantdesk/quant-backend/internal/indicator"
	"github.com/quantdesk/quant-backend/internal/quant"
	"github.com/quantdesk/quant-backend/internal/strategy"
	"github.com/quantdesk/quant-backend/pkg/types"
)

// Server is the HTTP/WebSocket API server.
type Server struct {
	mu         sync.RWMutex
	logger     *zap.Logger
	config     *types.ServerConfig
	router     *mux.Router
	httpServer *http.Server
	clients    map[string]*Client

	store     data.Loader
	engine    *backtester.Engine
	generator *quant.Generator
	defaults  config.BacktestDefaults
	backtests map[string]*BacktestState
}

// BacktestState tracks one submitted backtest.
type BacktestState struct {
	ID      string
	Config  *types.BacktestConfig
	Status  string
	Started time.Time
	Result  *types.BacktestResult
	Error   string
	cancel  context.CancelFunc
}

// NewServer creates the API server.
func NewServer(logger *zap.Logger, serverConfig *types.ServerConfig, store data.Loader, engine *backtester.Engine, generator *quant.Generator, defaults config.BacktestDefaults) *Server {
	s := &Server{
		logger:    logger,
		config:    serverConfig,
		router:    mux.NewRouter(),
		clients:   make(map[string]*Client),
		store:     store,
		engine:    engine,
		generator: generator,
		defaults:  defaults,
		backtests: make(map[string]*BacktestState),
	}
	s.setupRoutes()
	return s
}

// Router exposes the mux router, primarily for tests.
func (s *Server) Router() *mux.Router {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/v1/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/api/v1/strategies", s.handleStrategies).Methods("GET")
	s.router.HandleFunc("/api/v1/data/{symbol}", s.handleGetData).Methods("GET")
	s.router.HandleFunc("/api/v1/backtest/run", s.handleRunBacktest).Methods("POST")
	s.router.HandleFunc("/api/v1/backtest/{id}", s.handleGetBacktest).Methods("GET")
	s.router.HandleFunc("/api/v1/backtest/{id}/cancel", s.handleCancelBacktest).Methods("POST")
	s.router.HandleFunc("/api/v1/quant/signal", s.handleQuantSignal).Methods("POST")
	s.router.HandleFunc("/api/v1/quant/pairs", s.handleQuantPairs).Methods("GET")
	s.router.Handle("/metrics", promhttp.Handler())
	s.router.HandleFunc(s.config.WebSocketPath, s.handleWebSocket)
}

// Start starts the HTTP server and blocks until it exits.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	handler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(s.router)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("starting API server", zap.String("addr", addr))
	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	for _, client := range s.clients {
		client.Conn.Close()
	}
	s.mu.Unlock()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("response encoding failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// handleStrategies returns the strategy catalog.
func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"strategies": strategy.Catalog(),
	})
}

// handleGetData returns candle history for a symbol.
func (s *Server) handleGetData(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	q := r.URL.Query()

	interval := q.Get("interval")
	if interval == "" {
		interval = "1h"
	}
	from, _ := strconv.ParseInt(q.Get("from"), 10, 64)
	to, _ := strconv.ParseInt(q.Get("to"), 10, 64)

	candles, err := s.store.Load(r.Context(), symbol, interval, from, to)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, data.ErrNoData) {
			status = http.StatusNotFound
		}
		s.writeError(w, status, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"symbol":   symbol,
		"interval": interval,
		"candles":  candles,
		"count":    len(candles),
	})
}

// handleRunBacktest starts a backtest in the background and returns its id.
func (s *Server) handleRunBacktest(w http.ResponseWriter, r *http.Request) {
	var config types.BacktestConfig
	if err := json.NewDecoder(r.Body).Decode(&config); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if config.ID == "" {
		config.ID = uuid.New().String()
	}
	s.applyDefaults(&config)
	if _, err := strategy.New(config.Strategy, config.Params); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	state := &BacktestState{
		ID:      config.ID,
		Config:  &config,
		Status:  "running",
		Started: time.Now(),
		cancel:  cancel,
	}
	s.mu.Lock()
	s.backtests[config.ID] = state
	s.mu.Unlock()

	go s.runBacktest(ctx, state)

	s.writeJSON(w, http.StatusAccepted, map[string]any{
		"id":      config.ID,
		"status":  state.Status,
		"started": state.Started.Unix(),
	})
}

// applyDefaults fills configured defaults into request fields left at zero.
func (s *Server) applyDefaults(config *types.BacktestConfig) {
	if config.InitialCapital.IsZero() {
		config.InitialCapital = decimal.NewFromFloat(s.defaults.InitialCapital)
	}
	if config.PositionPct <= 0 {
		config.PositionPct = s.defaults.PositionPct
	}
	if config.MaxLeverage <= 0 {
		config.MaxLeverage = s.defaults.MaxLeverage
	}
	if config.StopLossPct <= 0 {
		config.StopLossPct = s.defaults.StopLossPct
	}
	if config.FeeRate <= 0 {
		config.FeeRate = s.defaults.FeeRate
	}
	if config.SlippageRate <= 0 {
		config.SlippageRate = s.defaults.SlippageRate
	}
	if config.Interval == "" {
		config.Interval = "1h"
	}
}

func (s *Server) runBacktest(ctx context.Context, state *BacktestState) {
	config := state.Config
	candles, err := s.store.Load(ctx, config.Symbol, config.Interval, config.From, config.To)

	var result *types.BacktestResult
	if err == nil {
		result, err = s.engine.Run(ctx, config, candles)
	}

	s.mu.Lock()
	switch {
	case err != nil && state.Status == "cancelled":
		// Keep the cancelled status; the context error is expected.
	case err != nil:
		state.Status = "failed"
		state.Error = err.Error()
		s.logger.Error("backtest failed", zap.String("id", config.ID), zap.Error(err))
	default:
		state.Status = "completed"
		state.Result = result
	}
	status := state.Status
	s.mu.Unlock()

	s.broadcast(&Message{
		ID:        uuid.New().String(),
		Type:      "event",
		Method:    "backtest:complete",
		Payload:   map[string]any{"id": config.ID, "status": status},
		Timestamp: time.Now().UnixMilli(),
	})
}

func (s *Server) handleGetBacktest(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.RLock()
	state, ok := s.backtests[id]
	s.mu.RUnlock()
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("backtest %s not found", id))
		return
	}

	response := map[string]any{
		"id":      state.ID,
		"status":  state.Status,
		"started": state.Started.Unix(),
	}
	if state.Result != nil {
		response["result"] = state.Result
	}
	if state.Error != "" {
		response["error"] = state.Error
	}
	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleCancelBacktest(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	state, ok := s.backtests[id]
	if ok && state.Status == "running" {
		state.cancel()
		state.Status = "cancelled"
	}
	s.mu.Unlock()

	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("backtest %s not found", id))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": state.Status})
}

// QuantSignalRequest asks for a live signal over the stored candle history.
type QuantSignalRequest struct {
	Symbol      string           `json:"symbol"`
	Interval    string           `json:"interval"`
	Equity      float64          `json:"equity"`
	BaseRiskPct float64          `json:"baseRiskPct"`
	OrderBook   *types.OrderBook `json:"orderBook,omitempty"`
}

// handleQuantSignal generates a unified quant signal for a symbol.
func (s *Server) handleQuantSignal(w http.ResponseWriter, r *http.Request) {
	var req QuantSignalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.Interval == "" {
		req.Interval = "1h"
	}
	if req.BaseRiskPct <= 0 {
		req.BaseRiskPct = 2
	}

	candles, err := s.store.Load(r.Context(), req.Symbol, req.Interval, 0, 0)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, data.ErrNoData) {
			status = http.StatusNotFound
		}
		s.writeError(w, status, err)
		return
	}

	ind := indicator.NewSeries(candles)
	for _, c := range candles {
		s.generator.UpdatePriceHistory(req.Symbol, c.Close)
	}

	sig := s.generator.GenerateSignal(req.Symbol, ind.Closes, ind.Volumes, req.OrderBook, req.Equity, req.BaseRiskPct, ind)
	s.writeJSON(w, http.StatusOK, sig)
}

// handleQuantPairs returns the pairs-trading candidates from rolling history.
func (s *Server) handleQuantPairs(w http.ResponseWriter, r *http.Request) {
	pairs := s.generator.Pairs()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"pairs": pairs,
		"count": len(pairs),
	})
}
