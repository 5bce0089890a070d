package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohamedkhairy/market-pulse/internal/config"
	"github.com/mohamedkhairy/market-pulse/internal/market"
	"github.com/mohamedkhairy/market-pulse/internal/models"
	"github.com/mohamedkhairy/market-pulse/internal/monitor"
	"github.com/mohamedkhairy/market-pulse/pkg/logger"
)

// Controller applies a replacement symbol universe: it reconciles the
// sentiment registry, seeds baselines for new symbols and resubscribes
// the feed.
type Controller interface {
	SetSymbols(ctx context.Context, sentiments map[string]models.Sentiment) error
}

// Server is the local dashboard HTTP server. It exposes the live
// indicator table, breakout level management and the update stream.
type Server struct {
	config     config.DashboardConfig
	store      *market.Store
	sentiments *market.Sentiments
	levels     *monitor.LevelsStore
	hub        *Hub
	controller Controller
	httpServer *http.Server
}

// NewServer creates a new dashboard server
func NewServer(cfg config.DashboardConfig, store *market.Store, sentiments *market.Sentiments, levels *monitor.LevelsStore, hub *Hub, controller Controller) *Server {
	s := &Server{
		config:     cfg,
		store:      store,
		sentiments: sentiments,
		levels:     levels,
		hub:        hub,
		controller: controller,
	}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/api/indicators", s.handleIndicators).Methods(http.MethodGet)
	router.HandleFunc("/api/breakouts", s.handleListBreakouts).Methods(http.MethodGet)
	router.HandleFunc("/api/breakouts", s.handleSetBreakout).Methods(http.MethodPost)
	router.HandleFunc("/api/symbols", s.handleSetSymbols).Methods(http.MethodPost)
	router.HandleFunc("/ws", hub.ServeWS)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// Start starts the HTTP server and blocks until it exits
func (s *Server) Start() error {
	logger.Info("Starting dashboard server", logger.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Stopping dashboard server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"clients": s.hub.ClientCount(),
		"time":    time.Now().UTC(),
	})
}

// handleIndicators returns the current indicator row for every tracked
// symbol, sorted by symbol so the table order is stable.
func (s *Server) handleIndicators(w http.ResponseWriter, r *http.Request) {
	snapshots := s.store.SnapshotAll()

	symbols := make([]string, 0, len(snapshots))
	for symbol := range snapshots {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	updates := make([]models.IndicatorUpdate, 0, len(symbols))
	for _, symbol := range symbols {
		updates = append(updates, market.BuildUpdate(snapshots[symbol], s.sentiments.Get(symbol)))
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"indicators": updates,
		"count":      len(updates),
	})
}

func (s *Server) handleListBreakouts(w http.ResponseWriter, r *http.Request) {
	levels := s.levels.Levels()

	symbols := make([]string, 0, len(levels))
	for symbol := range levels {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	ordered := make([]models.BreakoutLevels, 0, len(symbols))
	for _, symbol := range symbols {
		ordered = append(ordered, levels[symbol])
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"breakouts": ordered,
		"count":     len(ordered),
	})
}

func (s *Server) handleSetBreakout(w http.ResponseWriter, r *http.Request) {
	var levels models.BreakoutLevels
	if err := json.NewDecoder(r.Body).Decode(&levels); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.levels.Set(levels); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	logger.Info("Breakout levels updated",
		logger.String("symbol", levels.Symbol),
		logger.Float64("breakout_up", levels.BreakoutUp),
		logger.Float64("breakout_down", levels.BreakoutDown),
	)

	respondWithJSON(w, http.StatusOK, levels)
}

// symbolsRequest is the POST /api/symbols payload: a full replacement
// watchlist grouped by sentiment.
type symbolsRequest struct {
	Positive []string `json:"positive"`
	Neutral  []string `json:"neutral"`
	Negative []string `json:"negative"`
}

func (s *Server) handleSetSymbols(w http.ResponseWriter, r *http.Request) {
	var req symbolsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sentiments := make(map[string]models.Sentiment)
	for _, symbol := range req.Positive {
		sentiments[symbol] = models.SentimentPositive
	}
	for _, symbol := range req.Neutral {
		sentiments[symbol] = models.SentimentNeutral
	}
	for _, symbol := range req.Negative {
		sentiments[symbol] = models.SentimentNegative
	}
	if len(sentiments) == 0 {
		respondWithError(w, http.StatusBadRequest, "At least one symbol is required")
		return
	}

	if err := s.controller.SetSymbols(r.Context(), sentiments); err != nil {
		logger.Error("Failed to apply symbol update", logger.ErrorField(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to apply symbol update")
		return
	}

	logger.Info("Symbol universe replaced", logger.Int("symbols", len(sentiments)))
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"symbols": len(sentiments),
	})
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": message,
		"code":  code,
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
