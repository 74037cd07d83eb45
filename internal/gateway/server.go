// Package gateway exposes the simulation over HTTP: REST endpoints for
// snapshots, order submission and lifecycle control, and a websocket
// stream of market states.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/bus"
	"main/internal/engine"
	"main/internal/model"
	"main/internal/obs"
	"main/internal/sim"
)

// Config controls the HTTP listener.
type Config struct {
	Addr  string
	Scale int
}

// Server is the HTTP/websocket gateway in front of the scheduler.
type Server struct {
	cfg     Config
	sched   *sim.Scheduler
	states  *bus.Broadcaster
	metrics *obs.Metrics

	latest atomic.Value
	runCtx context.Context
	server *http.Server
}

// NewServer wires the gateway around a scheduler and the snapshot bus.
func NewServer(cfg Config, sched *sim.Scheduler, states *bus.Broadcaster, metrics *obs.Metrics) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	s := &Server{
		cfg:     cfg,
		sched:   sched,
		states:  states,
		metrics: metrics,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/snapshot", s.handleSnapshot)
	mux.HandleFunc("/orders", s.handleOrder)
	mux.HandleFunc("/control/start", s.handleStart)
	mux.HandleFunc("/control/stop", s.handleStop)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/healthz", s.handleHealth)

	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Prime stores the snapshot served before the first simulated tick.
func (s *Server) Prime(state model.MarketState) {
	s.latest.Store(state)
}

// Start serves HTTP until Stop is called. ctx bounds the lifetime of
// simulation runs started through /control/start.
func (s *Server) Start(ctx context.Context) error {
	s.runCtx = ctx

	go s.trackLatest(ctx)

	logs.Infof("gateway listening on %s", s.cfg.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the listener down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) trackLatest(ctx context.Context) {
	ch, cancel := s.states.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-ch:
			if !ok {
				return
			}
			s.latest.Store(state)
		}
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	v := s.latest.Load()
	if v == nil {
		http.Error(w, "no snapshot yet", http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, http.StatusOK, stateToDTO(v.(model.MarketState), s.cfg.Scale))
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, OrderResponse{Error: "invalid JSON: " + err.Error()})
		return
	}

	var err error
	switch req.Type {
	case "market":
		side, perr := parseTradeSide(req.Side)
		if perr != nil {
			err = perr
			break
		}
		err = s.sched.SubmitMarketOrder(r.Context(), side, model.Quantity(req.Volume))
	case "limit":
		side, perr := parseBookSide(req.Side)
		if perr != nil {
			err = perr
			break
		}
		price, perr := parsePrice(req.Price, s.cfg.Scale)
		if perr != nil {
			err = perr
			break
		}
		err = s.sched.SubmitLimitOrder(r.Context(), side, price, model.Quantity(req.Volume))
	default:
		err = errors.New("type must be 'market' or 'limit'")
	}

	if err != nil {
		s.writeJSON(w, statusForError(err), OrderResponse{Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, OrderResponse{Success: true})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.sched.Start(s.runCtx); err != nil && !errors.Is(err, sim.ErrAlreadyRunning) {
		s.writeJSON(w, http.StatusInternalServerError, OrderResponse{Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, ControlResponse{Running: true})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.sched.Stop()
	s.writeJSON(w, http.StatusOK, ControlResponse{Running: false})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logs.Errorf("encode response, err: %+v", err)
	}
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, engine.ErrInvalidVolume),
		errors.Is(err, engine.ErrMisalignedPrice),
		errors.Is(err, engine.ErrUnknownSide):
		return http.StatusBadRequest
	case errors.Is(err, sim.ErrNotRunning):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusBadRequest
	}
}
