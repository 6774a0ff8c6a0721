package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"PricePulse/pkg/http/middleware"
	applogger "PricePulse/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler mounts a group of routes on the server.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}

type ServerOption func(*serverSettings)

type serverSettings struct {
	host        string
	port        int
	read        time.Duration
	write       time.Duration
	shutdown    time.Duration
	slow        time.Duration
	cors        bool
	metricsPath string
	registerer  prometheus.Registerer
	gatherer    prometheus.Gatherer
	quiet       []string
	extra       []echo.MiddlewareFunc
}

// Server serves the pricing API and the Prometheus scrape endpoint.
type Server struct {
	echo *echo.Echo
	set  serverSettings
	log  *applogger.Logger

	mu   sync.Mutex
	addr net.Addr
	done chan struct{}
}

func NewServer(log *applogger.Logger, handler Handler, opts ...ServerOption) *Server {
	set := serverSettings{
		host:        "0.0.0.0",
		port:        8080,
		read:        10 * time.Second,
		write:       10 * time.Second,
		shutdown:    10 * time.Second,
		slow:        time.Second,
		cors:        true,
		metricsPath: "/metrics",
		registerer:  prometheus.DefaultRegisterer,
		gatherer:    prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(&set)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = set.read
	e.Server.WriteTimeout = set.write

	// request id first so the recover and log lines carry it
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover(log))
	e.Use(middleware.RequestLogging(log, append(set.quiet, set.metricsPath)...))
	e.Use(middleware.NewHTTPMetrics(set.registerer).Middleware(log, set.slow))
	if set.cors {
		e.Use(middleware.CORS(apiCORS()))
	}
	e.Use(set.extra...)

	if handler != nil {
		handler.RegisterRoutes(e)
	}
	if set.metricsPath != "" {
		e.GET(set.metricsPath, echo.WrapHandler(promhttp.HandlerFor(set.gatherer, promhttp.HandlerOpts{})))
	}

	return &Server{echo: e, set: set, log: log}
}

func apiCORS() middleware.CORSConfig {
	return middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderXRequestID,
		},
		ExposeHeaders: []string{echo.HeaderXRequestID, "X-Cache"},
		MaxAge:        10 * time.Minute,
	}
}

// Start binds the listener and serves in the background. Bind errors are
// returned; serve errors after that are only logged.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", net.JoinHostPort(s.set.host, strconv.Itoa(s.set.port)))
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	s.log.Info("http server listening", applogger.String("addr", ln.Addr().String()))
	go func() {
		defer close(done)
		if err := s.echo.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server stopped unexpectedly", applogger.Error(err))
		}
	}()
	return nil
}

// Addr is the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addr == nil {
		return ""
	}
	return s.addr.String()
}

// Stop drains in-flight requests, bounded by the shutdown timeout.
func (s *Server) Stop(ctx context.Context) error {
	if s.set.shutdown > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.set.shutdown)
		defer cancel()
	}
	if err := s.echo.Server.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}

	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
	s.log.Info("http server stopped")
	return nil
}

func WithHost(host string) ServerOption {
	return func(s *serverSettings) { s.host = host }
}

// WithPort sets the listen port; 0 picks a free one.
func WithPort(port int) ServerOption {
	return func(s *serverSettings) { s.port = port }
}

// WithTimeouts sets read, write and shutdown timeouts. Zero keeps a default.
func WithTimeouts(read, write, shutdown time.Duration) ServerOption {
	return func(s *serverSettings) {
		if read > 0 {
			s.read = read
		}
		if write > 0 {
			s.write = write
		}
		if shutdown > 0 {
			s.shutdown = shutdown
		}
	}
}

func WithCORS(enabled bool) ServerOption {
	return func(s *serverSettings) { s.cors = enabled }
}

// WithMetricsPath sets the scrape path. Empty disables it.
func WithMetricsPath(path string) ServerOption {
	return func(s *serverSettings) { s.metricsPath = path }
}

// WithRegistry registers and serves HTTP metrics from reg instead of the
// default registry.
func WithRegistry(reg *prometheus.Registry) ServerOption {
	return func(s *serverSettings) {
		s.registerer = reg
		s.gatherer = reg
	}
}

// WithSlowThreshold logs requests at or above d as slow. Zero disables it.
func WithSlowThreshold(d time.Duration) ServerOption {
	return func(s *serverSettings) { s.slow = d }
}

// WithQuietPaths keeps health check routes out of the request log.
func WithQuietPaths(paths ...string) ServerOption {
	return func(s *serverSettings) { s.quiet = append(s.quiet, paths...) }
}

// WithMiddleware appends middlewares after the built-in ones.
func WithMiddleware(m ...echo.MiddlewareFunc) ServerOption {
	return func(s *serverSettings) { s.extra = append(s.extra, m...) }
}
