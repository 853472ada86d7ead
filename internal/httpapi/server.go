// Package httpapi serves the read API over stored matches, videos and NER audit logs.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/meneses-pt/goals.zone/internal/auth"
	"github.com/meneses-pt/goals.zone/internal/db"
	"github.com/meneses-pt/goals.zone/internal/resolver"
)

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AdminKeyHash    string
	AllowedOrigins  []string
}

// Store is the read side the handlers need.
type Store interface {
	Ping(ctx context.Context) error
	QueryStats(ctx context.Context, dayStart, dayEnd time.Time) (*db.Stats, error)
	ListRecentVideoGoals(ctx context.Context, limit int) ([]db.VideoGoalRow, error)
	GetMatchState(ctx context.Context, matchID int64) (db.MatchState, error)
	ListMatchVideoGoals(ctx context.Context, matchID int64) ([]db.VideoGoalRow, error)
	ListMatchMirrors(ctx context.Context, matchID int64) (map[int64][]db.MirrorRow, error)
	ListNerLogs(ctx context.Context, limit, offset int, onlyUnreviewed bool) ([]db.NerLogRow, error)
	MarkNerLogReviewed(ctx context.Context, id int64) error
}

// Resolver runs the title resolution pipeline without storing anything.
type Resolver interface {
	Resolve(ctx context.Context, title string, postCreatedAt, searchUntil time.Time) (resolver.Outcome, error)
}

type Server struct {
	store    Store
	resolver Resolver
	logger   zerolog.Logger
	opts     Options
}

// NewServer builds a Server. A nil resolver disables POST /api/v1/resolve.
func NewServer(store Store, r Resolver, logger zerolog.Logger, opts Options) *Server {
	if strings.TrimSpace(opts.Host) == "" {
		opts.Host = "0.0.0.0"
	}
	if opts.Port <= 0 {
		opts.Port = 8090
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 10 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 30 * time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	return &Server{
		store:    store,
		resolver: r,
		logger:   logger.With().Str("component", "httpapi").Logger(),
		opts:     opts,
	}
}

// Handler builds the echo router. Start serves it; tests drive it directly.
func (s *Server) Handler() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.opts.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", auth.HeaderName},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := s.logger.Info()
			msg := "http request"
			if v.Error != nil {
				event = s.logger.Error().Err(v.Error)
				msg = "http request failed"
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg(msg)
			return nil
		},
	}))

	e.GET("/healthz", s.handleHealth)

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/stats", s.handleStats)
	api.GET("/videos/recent", s.handleRecentVideos)
	api.GET("/matches/:id/videos", s.handleMatchVideos)

	admin := api.Group("", s.requireAdminKey)
	admin.GET("/ner-logs", s.handleNerLogs)
	admin.POST("/ner-logs/:id/review", s.handleReviewNerLog)
	admin.POST("/resolve", s.handleResolve)
	return e
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := s.Handler()
	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("goals-zone api started")
	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("goals-zone api stopped")
	return nil
}

// requireAdminKey rejects requests without a key matching ADMIN_API_KEY_HASH. With no hash
// configured the admin routes are closed.
func (s *Server) requireAdminKey(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if strings.TrimSpace(s.opts.AdminKeyHash) == "" {
			return fail(c, http.StatusForbidden, "Admin API is disabled", nil)
		}
		if !auth.VerifyAPIKey(c.Request().Header.Get(auth.HeaderName), s.opts.AdminKeyHash) {
			return failUnauthorized(c)
		}
		return next(c)
	}
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if v, ok := he.Message.(string); ok && strings.TrimSpace(v) != "" {
			message = v
		} else if text := http.StatusText(status); text != "" {
			message = text
		}
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}
