// Package gateway serves the dashboard-facing HTTP API: the REST
// surface, the websocket feed, and the per-venue CORS proxies.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"sharkspread/internal/adapter"
	"sharkspread/internal/apperr"
	"sharkspread/internal/domain"
	"sharkspread/internal/feed"
	"sharkspread/internal/proxy"
	"sharkspread/internal/report"
	"sharkspread/internal/stats"
	"sharkspread/internal/storage"
)

// Server is the dashboard gateway with all routes configured.
type Server struct {
	source  adapter.Source
	latest  storage.LatestCache // may be nil
	hub     *feed.Hub           // may be nil
	mux     *http.ServeMux
	server  *http.Server
	limiter *proxy.RateLimiter
	log     *zap.Logger
}

// ServerOptions configures the gateway.
type ServerOptions struct {
	Addr        string
	Source      adapter.Source
	Latest      storage.LatestCache // optional read-through for /api/v1/spread
	Hub         *feed.Hub           // optional: /ws is absent without it
	Proxies     []*proxy.Handler    // mounted under their own prefixes
	ProxyRPS    int                 // default 10
	ProxyBurst  int                 // default 20
	CORSOrigins []string            // empty allows all
	Logger      *zap.Logger
}

// NewServer creates the gateway with its routes registered.
func NewServer(opts ServerOptions) *Server {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	rps := opts.ProxyRPS
	if rps == 0 {
		rps = 10
	}
	burst := opts.ProxyBurst
	if burst == 0 {
		burst = 20
	}

	mux := http.NewServeMux()
	s := &Server{
		source:  opts.Source,
		latest:  opts.Latest,
		hub:     opts.Hub,
		mux:     mux,
		limiter: proxy.NewRateLimiter(rps, burst, log),
		log:     log,
		server: &http.Server{
			Addr:         opts.Addr,
			Handler:      CORS(opts.CORSOrigins)(mux),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
	s.registerRoutes(opts.Proxies)
	return s
}

func (s *Server) registerRoutes(proxies []*proxy.Handler) {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/api/v1/tokens", s.handleTokens)
	s.mux.HandleFunc("/api/v1/price", s.handlePrice)
	s.mux.HandleFunc("/api/v1/spread", s.handleSpread)
	s.mux.HandleFunc("/api/v1/spread/history", s.handleHistory)
	s.mux.HandleFunc("/api/v1/spread/stats", s.handleStats)
	s.mux.HandleFunc("/api/v1/spread/export", s.handleExport)

	if s.hub != nil {
		s.mux.HandleFunc("/ws", s.hub.Handler())
	}
	for _, p := range proxies {
		s.mux.Handle(p.Prefix(), s.limiter.Handler(p))
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("gateway listening", zap.String("addr", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("gateway shutdown: %w", err)
	}
	s.log.Info("gateway stopped")
	return nil
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	tokens, err := s.source.Tokens(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	dtos := make([]adapter.TokenDTO, 0, len(tokens))
	for _, tok := range tokens {
		dtos = append(dtos, adapter.TokenToDTO(tok))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	venue, err := domain.ParseVenue(r.URL.Query().Get("venue"))
	if err != nil {
		s.writeError(w, apperr.Wrap(apperr.KindBadInput, "invalid venue", err))
		return
	}
	tok, err := s.findToken(r.Context(), r.URL.Query().Get("symbol"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	p, err := s.source.Price(r.Context(), venue, tok)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, adapter.PriceToDTO(p))
}

func (s *Server) handleSpread(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	symbol := r.URL.Query().Get("symbol")

	if symbol == "" {
		// Without a symbol, serve every cached snapshot.
		if s.latest == nil {
			s.writeError(w, apperr.New(apperr.KindBadInput, "symbol is required"))
			return
		}
		snaps, err := s.latest.GetAllSnapshots(r.Context())
		if err != nil {
			s.writeError(w, err)
			return
		}
		dtos := make([]adapter.SnapshotDTO, 0, len(snaps))
		for _, snap := range snaps {
			dtos = append(dtos, adapter.SnapshotToDTO(snap))
		}
		writeJSON(w, http.StatusOK, dtos)
		return
	}

	if s.latest != nil {
		if snap, err := s.latest.GetSnapshot(r.Context(), symbol); err == nil {
			writeJSON(w, http.StatusOK, adapter.SnapshotToDTO(snap))
			return
		}
	}

	tok, err := s.findToken(r.Context(), symbol)
	if err != nil {
		s.writeError(w, err)
		return
	}
	snap, err := s.source.Snapshot(r.Context(), tok)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, adapter.SnapshotToDTO(snap))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	symbol, tf, err := historyParams(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.writeError(w, apperr.New(apperr.KindBadInput, "invalid limit"))
			return
		}
	}

	points, err := s.source.History(r.Context(), symbol, tf, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	dtos := make([]adapter.PointDTO, 0, len(points))
	for _, p := range points {
		dtos = append(dtos, adapter.PointToDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	symbol, tf, err := historyParams(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	points, err := s.source.History(r.Context(), symbol, tf, 0)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats.Compute(symbol, points))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	symbol, tf, err := historyParams(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	points, err := s.source.History(r.Context(), symbol, tf, 0)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("spread_%s_%s.csv", symbol, tf)))
	_, _ = w.Write([]byte(report.RenderCSV(points)))
}

// findToken resolves a symbol against the catalog.
func (s *Server) findToken(ctx context.Context, symbol string) (domain.Token, error) {
	if symbol == "" {
		return domain.Token{}, apperr.New(apperr.KindBadInput, "symbol is required")
	}
	tokens, err := s.source.Tokens(ctx)
	if err != nil {
		return domain.Token{}, err
	}
	for _, tok := range tokens {
		if tok.Symbol == symbol {
			return tok, nil
		}
	}
	return domain.Token{}, apperr.New(apperr.KindNotFound, fmt.Sprintf("unknown symbol %s", symbol))
}

func historyParams(r *http.Request) (string, domain.Timeframe, error) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		return "", "", apperr.New(apperr.KindBadInput, "symbol is required")
	}
	tf, err := domain.ParseTimeframe(r.URL.Query().Get("timeframe"))
	if err != nil {
		return "", "", apperr.Wrap(apperr.KindBadInput, "invalid timeframe", err)
	}
	return symbol, tf, nil
}

func requireGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := apperr.StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": apperr.Message(err)})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
