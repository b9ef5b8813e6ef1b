// Package server exposes the escape room over an HTTP JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/verte-zerg/escaperoom/internal/leaderboard"
	"github.com/verte-zerg/escaperoom/internal/model"
)

// Store is the persistence behind the API.
type Store interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, in model.NewUser) (model.User, error)
	GetUser(ctx context.Context, id string) (model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)

	CreateStage(ctx context.Context, in model.StageInput) (model.Stage, error)
	ListStages(ctx context.Context) ([]model.Stage, error)
	GetStage(ctx context.Context, id int64) (model.Stage, error)
	UpdateStage(ctx context.Context, id int64, patch model.StagePatch) (model.Stage, error)
	DeleteStage(ctx context.Context, id int64) error

	CreateSession(ctx context.Context, in model.NewSession) (model.GameSession, error)
	UpdateSession(ctx context.Context, id string, upd model.SessionUpdate) (model.GameSession, error)
	GetSession(ctx context.Context, id string) (model.SessionDetail, error)
	ListSessions(ctx context.Context, userID string) ([]model.GameSession, error)
	ListSessionsByUser(ctx context.Context, userID string) ([]model.SessionDetail, error)

	CreateAttempt(ctx context.Context, in model.NewAttempt) (model.StageAttempt, error)
	ListAttemptsBySession(ctx context.Context, sessionID string) ([]model.StageAttempt, error)
}

// Server serves the API.
type Server struct {
	store   Store
	board   leaderboard.Board
	log     *zap.Logger
	metrics *Metrics
	engine  *gin.Engine
}

// New builds the router. mode is a gin mode; empty keeps the current one.
func New(store Store, board leaderboard.Board, log *zap.Logger, mode string) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if mode != "" {
		gin.SetMode(mode)
	}
	s := &Server{
		store:   store,
		board:   board,
		log:     log,
		metrics: NewMetrics(),
	}
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), s.metrics.Middleware())

	r.GET("/health", s.health)
	r.GET("/metrics", s.metrics.Handler())

	api := r.Group("/api")
	{
		api.GET("/users", s.listUsers)
		api.POST("/users", s.createUser)
		api.GET("/users/:id", s.getUser)

		api.GET("/stages", s.listStages)
		api.POST("/stages", s.createStage)
		api.GET("/stages/:id", s.getStage)
		api.PUT("/stages/:id", s.updateStage)
		api.DELETE("/stages/:id", s.deleteStage)
		api.POST("/stages/:id/validate", s.validateStage)

		api.GET("/sessions", s.listSessions)
		api.POST("/sessions", s.createSession)
		api.GET("/sessions/user/:userId", s.listUserSessions)
		api.GET("/sessions/:id", s.getSession)
		api.PUT("/sessions/:id", s.updateSession)

		api.POST("/attempts", s.createAttempt)
		api.GET("/attempts/session/:sessionId", s.listSessionAttempts)

		api.GET("/leaderboard", s.topLeaderboard)
		api.POST("/leaderboard", s.recordCompletion)
		api.GET("/leaderboard/user/:userId", s.userRank)
	}
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("api listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	s.log.Info("api stopped")
	return nil
}
