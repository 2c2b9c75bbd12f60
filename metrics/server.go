package metrics

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server serves /metrics and /healthz for a Recorder.
type Server struct {
	server   *http.Server
	listener net.Listener
	logger   *zap.Logger
	onError  func(error)
}

// NewServer creates a metrics server bound to addr once started.
func NewServer(addr string, recorder *Recorder, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start binds the listen address and serves in the background. Bind errors
// are returned; serve errors after startup are logged.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}
	s.listener = ln

	go func() {
		s.logger.Info("Metrics server started", zap.String("address", ln.Addr().String()))
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Metrics server failed", zap.Error(err))
			if s.onError != nil {
				s.onError(err)
			}
		}
	}()
	return nil
}

// OnError sets fn to receive serve errors that occur after Start. It must
// be called before Start.
func (s *Server) OnError(fn func(error)) {
	s.onError = fn
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.server.Addr
}

// HTTPServer returns the underlying server, for registration as a shutdown
// callback.
func (s *Server) HTTPServer() *http.Server {
	return s.server
}
