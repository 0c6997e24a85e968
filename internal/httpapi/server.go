// Package httpapi is the HTTP ingress: event webhook, test message, settings
// admin, health, status and metrics.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"tgnotifier/internal/dispatch"
	"tgnotifier/internal/notifier"
	"tgnotifier/internal/shop"
	"tgnotifier/internal/storage"
	"tgnotifier/internal/telegram"
	logx "tgnotifier/pkg/logx"
)

const DefaultAddr = "127.0.0.1:8089"

type Config struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	ShutdownTimeout   time.Duration
	// APIKey, when set, is required as "Authorization: Bearer <key>" on
	// every route except /healthz and /metrics.
	APIKey string
	// MaxBodyBytes caps request bodies; 0 means 1 MiB.
	MaxBodyBytes int64
}

type Dispatcher interface {
	Dispatch(ctx context.Context, ev shop.Event) dispatch.Outcome
}

type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (telegram.BotInfo, error)
}

type Deps struct {
	Dispatcher Dispatcher
	Store      storage.Store
	Verifier   TokenVerifier
	History    func() []notifier.HistoryItem
	Metrics    http.Handler
	Version    string
}

type Server struct {
	cfg  Config
	deps Deps
	log  logx.Logger

	engine *gin.Engine
	start  time.Time
}

func New(cfg Config, deps Deps, log logx.Logger) *Server {
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 5 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Server{
		cfg:   cfg,
		deps:  deps,
		log:   log.With(logx.String("comp", "http")),
		start: time.Now(),
	}
	s.engine = s.routes()
	return s
}

// Handler exposes the router (tests).
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(s.recovery(), s.requestID(), s.accessLog(), s.limitBody())

	r.GET("/healthz", s.healthz)
	if s.deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.deps.Metrics))
	}

	api := r.Group("/", s.auth())
	api.POST("/events", s.postEvent)
	api.POST("/test", s.postTest)
	api.GET("/status", s.status)
	api.GET("/settings", s.getSettings)
	api.PUT("/settings", s.putSettings)
	api.POST("/settings/verify-token", s.verifyToken)
	return r
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.log.Info("http listening", logx.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		s.log.Warn("http shutdown", logx.Err(err))
		return err
	}
	return nil
}
