package httpx

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sobelfarm/sobelfarm/pkg/logger"
)

type Server struct {
	http.Server

	opts     Options
	listener *Listener
	log      *logger.Logger
}

type (
	Handler        = http.Handler
	HandlerFunc    = http.HandlerFunc
	ResponseWriter = http.ResponseWriter
	Request        = http.Request
)

func NewServeMux() *http.ServeMux { return http.NewServeMux() }

// NewServer binds the address right away so that bind errors surface
// before anything is started. Websocket handlers outlive the read/write
// timeouts of plain HTTP, so these are off unless set explicitly.
func NewServer(address string, handler func(*Server) Handler, options ...Option) (*Server, error) {
	opts := &Options{IdleTimeout: 120 * time.Second}
	opts.override(options...)

	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}

	server := &Server{
		Server: http.Server{
			Addr:         address,
			IdleTimeout:  opts.IdleTimeout,
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
		},
		opts: *opts,
		log:  opts.Logger,
	}
	// (╯°□°)╯︵ ┻━┻
	server.Handler = handler(server)

	addr := server.Addr
	if addr == "" {
		addr = ":http"
		opts.Logger.Warn().Msgf("Empty server address has been changed to %v", addr)
	}
	listener, err := NewListener(addr, server.opts.PortRoll)
	if err != nil {
		return nil, err
	}
	server.listener = listener
	server.Addr = mergeAddresses(server.Addr, *listener)
	opts.Logger.Debug().Msgf("httpx %v", server.Addr)
	return server, nil
}

func (s *Server) Run() { go s.run() }

func (s *Server) run() {
	s.log.Debug().Msgf("Starting http server on %s", s.Addr)
	err := s.Serve(*s.listener)
	if errors.Is(err, http.ErrServerClosed) {
		s.log.Debug().Msgf("http server %s was closed", s.Addr)
		return
	}
	s.log.Error().Err(err).Msg("http server failure")
}

func (s *Server) Shutdown(ctx context.Context) error { return s.Server.Shutdown(ctx) }

// Close stops the server right away, also when it was never run.
func (s *Server) Close() error {
	_ = s.listener.Close()
	return s.Server.Close()
}

// Port returns the real port the server listens on.
func (s *Server) Port() int { return s.listener.GetPort() }

func (s *Server) String() string { return "http://" + s.Addr }
