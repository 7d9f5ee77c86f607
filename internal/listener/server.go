// Package listener serves the inbound HTTP surface the relay pushes to.
package listener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"hedge_sync/internal/bridge"
	"hedge_sync/internal/config"
	"hedge_sync/internal/core"
	apperrors "hedge_sync/pkg/errors"
)

// State is the listener lifecycle state.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateListening
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateListening:
		return "listening"
	case StateStopping:
		return "stopping"
	default:
		return "stopped"
	}
}

// Inbound is the handler for remote close notifications.
type Inbound interface {
	HandleRemoteClose(ctx context.Context, n bridge.HedgeCloseNotification) error
}

// Server accepts relay pushes on a fixed local port.
type Server struct {
	name    string
	addr    string
	inbound Inbound
	onPing  func()
	limiter *rate.Limiter
	logger  core.ILogger

	state    atomic.Int32
	listener net.Listener
	srv      *http.Server
}

// NewServer builds a listener. onPing may be nil; it is invoked on every
// liveness probe so the caller can track relay connectivity.
func NewServer(name string, cfg config.ListenerConfig, inbound Inbound, onPing func(), logger core.ILogger) *Server {
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return &Server{
		name:    name,
		addr:    cfg.Addr(),
		inbound: inbound,
		onPing:  onPing,
		limiter: limiter,
		logger:  logger.WithField("component", "listener"),
	}
}

// Start binds the port and serves in the background. A bind failure leaves
// the listener stopped; there is no internal retry.
func (s *Server) Start() error {
	if !s.state.CompareAndSwap(int32(StateStopped), int32(StateStarting)) {
		return fmt.Errorf("listener already running (state %s)", s.State())
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.state.Store(int32(StateStopped))
		return fmt.Errorf("failed to bind listener on %s: %w", s.addr, err)
	}
	s.listener = ln
	s.srv = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.state.Store(int32(StateListening))
	s.logger.Info("Listener started", "addr", ln.Addr().String())

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Listener serve loop exited", "error", err)
		}
		s.state.Store(int32(StateStopped))
	}()
	return nil
}

// Stop shuts the listener down. The running state flips before the socket
// closes so in-flight accepts fail fast instead of handing out work.
func (s *Server) Stop(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateListening), int32(StateStopping)) {
		return nil
	}
	s.logger.Info("Stopping listener")
	err := s.srv.Shutdown(ctx)
	s.state.Store(int32(StateStopped))
	return err
}

// State returns the current lifecycle state.
func (s *Server) State() State {
	return State(s.state.Load())
}

// Addr returns the bound address, valid once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Healthy reports whether the listener is accepting connections.
func (s *Server) Healthy() error {
	if st := s.State(); st != StateListening {
		return fmt.Errorf("%w: state %s", apperrors.ErrListenerStopped, st)
	}
	return nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping_msm", s.handlePing)
	mux.HandleFunc("/notify_hedge_closed", s.handleNotifyClosed)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"status":  "error",
			"message": "unknown endpoint",
		})
	})
	return mux
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"status":  "error",
			"message": "unknown endpoint",
		})
		return
	}
	if s.onPing != nil {
		s.onPing()
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    s.name + "_active",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleNotifyClosed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"status":  "error",
			"message": "unknown endpoint",
		})
		return
	}
	if s.limiter != nil && !s.limiter.Allow() {
		s.logger.Warn("Inbound notification rate limited", "remote", r.RemoteAddr)
		writeJSON(w, http.StatusTooManyRequests, map[string]string{
			"status":  "error",
			"message": apperrors.ErrRateLimitExceeded.Error(),
		})
		return
	}

	var n bridge.HedgeCloseNotification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"status":  "error",
			"message": "invalid JSON body: " + err.Error(),
		})
		return
	}

	if err := s.inbound.HandleRemoteClose(r.Context(), n); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, apperrors.ErrMalformedRequest) {
			status = http.StatusBadRequest
		}
		s.logger.Error("Failed to handle close notification",
			"base_id", n.BaseID, "status", status, "error", err)
		writeJSON(w, status, map[string]string{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "notification accepted",
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
