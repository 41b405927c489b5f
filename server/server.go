// Package server exposes a Janitor environment to editors and remote
// clients: an LSP server on stdio and a script service over gRPC and
// Connect on one port.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/tliron/commonlog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/eischet/janitor-sub000/env"
)

var log = commonlog.GetLogger("janitor.server")

// Server serves the script service over gRPC (binary protobuf) and Connect
// (HTTP/JSON) on the same port.
type Server struct {
	worker   *Worker
	sessions *SessionStore
	service  *ScriptService
	grpc     *grpc.Server
	mux      *http.ServeMux
	http     *http.Server

	stopSweeper func()
}

// Option configures a Server.
type Option func(*config)

type config struct {
	sweepInterval time.Duration
	sessionTTL    time.Duration
}

// WithSessionTTL drops sessions unused for ttl, checking every interval.
func WithSessionTTL(interval, ttl time.Duration) Option {
	return func(c *config) {
		c.sweepInterval = interval
		c.sessionTTL = ttl
	}
}

// New creates a Server for e.
func New(e *env.Environment, opts ...Option) *Server {
	cfg := &config{sweepInterval: 5 * time.Minute, sessionTTL: 30 * time.Minute}
	for _, opt := range opts {
		opt(cfg)
	}

	worker := NewWorker(e)
	sessions := NewSessionStore(e)
	s := &Server{
		worker:   worker,
		sessions: sessions,
		service:  NewScriptService(worker, sessions),
		grpc:     grpc.NewServer(),
		mux:      http.NewServeMux(),
	}

	s.grpc.RegisterService(&scriptServiceDesc, s.service)
	reflection.Register(s.grpc)

	path, handler := s.service.connectHandler()
	s.mux.Handle(path, handler)

	s.stopSweeper = sessions.StartSweeper(cfg.sweepInterval, cfg.sessionTTL)
	return s
}

// Service returns the script service.
func (s *Server) Service() *ScriptService { return s.service }

// Sessions returns the session store.
func (s *Server) Sessions() *SessionStore { return s.sessions }

// ServeHTTP routes native gRPC calls to the gRPC server and everything else
// to the Connect handlers.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if isGRPC(r) {
		s.grpc.ServeHTTP(w, r)
		return
	}
	s.mux.ServeHTTP(w, r)
}

// Serve accepts connections on l until Shutdown is called. HTTP/2 without
// TLS is enabled for gRPC clients.
func (s *Server) Serve(l net.Listener) error {
	var protocols http.Protocols
	protocols.SetHTTP1(true)
	protocols.SetUnencryptedHTTP2(true)
	s.http = &http.Server{Handler: s, Protocols: &protocols, ReadHeaderTimeout: 10 * time.Second}

	log.Infof("script service listening on %s", l.Addr())
	log.Infof("  Connect (HTTP/JSON): http://%s/%s/%s", l.Addr(), ScriptServiceName, MethodEval)
	log.Infof("  gRPC (binary):       grpc://%s", l.Addr())
	err := s.http.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ListenAndServe listens on addr ("host:port" or ":port") and serves.
func (s *Server) ListenAndServe(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(l)
}

// Shutdown stops accepting connections and waits for running calls.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.http != nil {
		err = s.http.Shutdown(ctx)
	}
	s.Stop()
	return err
}

// Stop releases the worker and the session sweeper.
func (s *Server) Stop() {
	if s.stopSweeper != nil {
		s.stopSweeper()
		s.stopSweeper = nil
		s.worker.Stop()
	}
}
