package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opd-ai/go-aerocontrol/pkg/flight"
	"github.com/opd-ai/go-aerocontrol/pkg/health"
	"github.com/opd-ai/go-aerocontrol/pkg/input"
	"github.com/opd-ai/go-aerocontrol/pkg/logging"
	"github.com/opd-ai/go-aerocontrol/pkg/validation"
)

// StateSource supplies the snapshots served on /state.
type StateSource interface {
	State() []flight.Snapshot
	Lookup(id uint64) (flight.Snapshot, bool)
}

// ServerOptions wires the server to the rest of the session. Only Recorder
// and State are required. POST /controls is served only when Controls is
// set; Limiter defaults to validation.MaxControlRequestsPer per minute.
type ServerOptions struct {
	Recorder *Recorder
	State    StateSource
	Health   *health.Checker
	Controls *input.Controls
	Limiter  *validation.RateLimiter
	Logger   *logging.Logger
}

// Server serves metrics, flight state and health probes.
type Server struct {
	router   *mux.Router
	opts     ServerOptions
	logger   *logging.Logger
	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
}

// NewServer builds the router.
func NewServer(opts ServerOptions) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Server{
		router: mux.NewRouter(),
		opts:   opts,
		logger: logger.Component("telemetry"),
	}

	s.router.Handle("/metrics", promhttp.HandlerFor(opts.Recorder.Registry(), promhttp.HandlerOpts{})).Methods("GET")
	s.router.HandleFunc("/state", s.getState).Methods("GET")
	s.router.HandleFunc("/state/{id:[0-9]+}", s.getAircraft).Methods("GET")
	if opts.Controls != nil {
		if s.opts.Limiter == nil {
			s.opts.Limiter = validation.NewRateLimiter(validation.MaxControlRequestsPer, time.Minute)
		}
		s.router.HandleFunc("/controls", s.postControls).Methods("POST", "OPTIONS")
	}
	if opts.Health != nil {
		s.router.HandleFunc("/healthz", opts.Health.LivenessHandler).Methods("GET")
		s.router.HandleFunc("/readyz", opts.Health.ReadinessHandler).Methods("GET")
	}
	return s
}

// Handler returns the router for embedding or tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start listens on addr and serves in the background until ctx is done or
// Shutdown is called.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return errors.New("telemetry server already started")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return logging.WrapError(err, "failed to listen", "addr", addr)
	}
	s.listener = ln
	s.srv = &http.Server{Handler: s.router, ReadHeaderTimeout: 5 * time.Second}

	srv := s.srv
	if s.opts.Limiter != nil {
		go s.opts.Limiter.Run(ctx)
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(ctx, "telemetry server stopped", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "telemetry server listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or "" when not listening.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.listener = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.opts.State.State())
}

func (s *Server) getAircraft(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid aircraft id", http.StatusBadRequest)
		return
	}
	snap, ok := s.opts.State.Lookup(id)
	if !ok {
		http.Error(w, "aircraft not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, r, http.StatusOK, snap)
}

func (s *Server) postControls(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	if !s.opts.Limiter.Allow(clientKey(r)) {
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}
	req, err := validation.DecodeControlRequest(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Throttle != nil {
		s.opts.Controls.SetThrottle(*req.Throttle)
	}
	if req.AoAHeld != nil {
		s.opts.Controls.SetAoAHeld(*req.AoAHeld)
	}

	throttle, _ := s.opts.Controls.Throttle()
	s.logger.Debug(r.Context(), "controls updated", "client", clientKey(r), "throttle", throttle, "aoa_held", s.opts.Controls.AoAHeld())
	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"throttle": throttle,
		"aoa_held": s.opts.Controls.AoAHeld(),
	})
}

// clientKey identifies the caller by remote host.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeJSON encodes v after the status line is sent, so encode failures
// can only be logged.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error(r.Context(), "failed to encode response", err, "path", r.URL.Path)
	}
}
