package trigger

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Server owns the listener socket so bind failures surface from Start.
type Server struct {
	srv *http.Server
	log *zap.Logger

	mu   sync.Mutex
	addr net.Addr
}

func NewServer(cfg Config, handler http.Handler, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	addr := cfg.Addr
	if addr == "" {
		addr = DefaultAddr
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		log: log,
	}
}

func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	s.log.Info("trigger listener starting", zap.String("addr", ln.Addr().String()))
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("trigger listener failed", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("trigger listener stopping")
	return s.srv.Shutdown(ctx)
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addr == nil {
		return ""
	}
	return s.addr.String()
}

func provideServer(cfg Config, d *Dispatcher, log *zap.Logger) *Server {
	return NewServer(cfg, NewRouter(cfg, d, log), log)
}

func registerHooks(lc fx.Lifecycle, s *Server) {
	lc.Append(fx.Hook{
		OnStart: s.Start,
		OnStop:  s.Stop,
	})
}

// Module wires the listener into an fx application. It expects a Config,
// a *Dispatcher and a *zap.Logger to be supplied.
var Module = fx.Options(
	fx.Provide(provideServer),
	fx.Invoke(registerHooks),
)

// NewApp assembles the trigger listener application.
func NewApp(cfg Config, d *Dispatcher, log *zap.Logger, opts ...fx.Option) *fx.App {
	if log == nil {
		log = zap.NewNop()
	}
	return fx.New(
		fx.Supply(cfg, d, log),
		Module,
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		fx.Options(opts...),
	)
}
