package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/verte-zerg/escaperoom/internal/model"
	"github.com/verte-zerg/escaperoom/internal/validate"
)

const defaultLeaderboardLimit = 10

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "down"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "up"})
}

func (s *Server) listUsers(c *gin.Context) {
	users, err := s.store.ListUsers(c.Request.Context())
	if err != nil {
		s.storeError(c, err, "Failed to fetch users")
		return
	}
	ok(c, users)
}

func (s *Server) createUser(c *gin.Context) {
	var req model.NewUser
	if err := c.ShouldBindJSON(&req); err != nil {
		badInput(c, err)
		return
	}
	user, err := s.store.CreateUser(c.Request.Context(), req)
	if err != nil {
		s.storeError(c, err, "Failed to create user")
		return
	}
	created(c, user)
}

func (s *Server) getUser(c *gin.Context) {
	user, err := s.store.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.storeError(c, err, "Failed to fetch user")
		return
	}
	ok(c, user)
}

func (s *Server) listStages(c *gin.Context) {
	stages, err := s.store.ListStages(c.Request.Context())
	if err != nil {
		s.storeError(c, err, "Failed to fetch stages")
		return
	}
	ok(c, stages)
}

func (s *Server) createStage(c *gin.Context) {
	var req model.StageInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badInput(c, err)
		return
	}
	stage, err := s.store.CreateStage(c.Request.Context(), req)
	if err != nil {
		s.storeError(c, err, "Failed to create stage")
		return
	}
	created(c, stage)
}

func stageID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "Invalid stage ID", nil)
		return 0, false
	}
	return id, true
}

func (s *Server) getStage(c *gin.Context) {
	id, valid := stageID(c)
	if !valid {
		return
	}
	stage, err := s.store.GetStage(c.Request.Context(), id)
	if err != nil {
		s.storeError(c, err, "Failed to fetch stage")
		return
	}
	ok(c, stage)
}

func (s *Server) updateStage(c *gin.Context) {
	id, valid := stageID(c)
	if !valid {
		return
	}
	var req model.StagePatch
	if err := c.ShouldBindJSON(&req); err != nil {
		badInput(c, err)
		return
	}
	stage, err := s.store.UpdateStage(c.Request.Context(), id, req)
	if err != nil {
		s.storeError(c, err, "Failed to update stage")
		return
	}
	ok(c, stage)
}

func (s *Server) deleteStage(c *gin.Context) {
	id, valid := stageID(c)
	if !valid {
		return
	}
	if err := s.store.DeleteStage(c.Request.Context(), id); err != nil {
		s.storeError(c, err, "Failed to delete stage")
		return
	}
	ok(c, gin.H{"message": "Stage deleted successfully"})
}

type validateRequest struct {
	Code string `json:"code"`
}

type validateResponse struct {
	StageID int64  `json:"stageId"`
	Passed  bool   `json:"passed"`
	Verdict string `json:"verdict"`
	Message string `json:"message"`
}

func (s *Server) validateStage(c *gin.Context) {
	id, valid := stageID(c)
	if !valid {
		return
	}
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badInput(c, err)
		return
	}
	stage, err := s.store.GetStage(c.Request.Context(), id)
	if err != nil {
		s.storeError(c, err, "Failed to fetch stage")
		return
	}
	verdict := validate.CheckStage(stage, req.Code)
	ok(c, validateResponse{
		StageID: stage.ID,
		Passed:  verdict.Passed(),
		Verdict: verdict.String(),
		Message: verdict.Message(),
	})
}

func (s *Server) listSessions(c *gin.Context) {
	sessions, err := s.store.ListSessions(c.Request.Context(), c.Query("userId"))
	if err != nil {
		s.storeError(c, err, "Failed to fetch sessions")
		return
	}
	ok(c, sessions)
}

func (s *Server) createSession(c *gin.Context) {
	var req model.NewSession
	if err := c.ShouldBindJSON(&req); err != nil {
		badInput(c, err)
		return
	}
	session, err := s.store.CreateSession(c.Request.Context(), req)
	if err != nil {
		s.storeError(c, err, "Failed to create session")
		return
	}
	created(c, session)
}

func (s *Server) getSession(c *gin.Context) {
	session, err := s.store.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.storeError(c, err, "Failed to fetch session")
		return
	}
	ok(c, session)
}

func (s *Server) updateSession(c *gin.Context) {
	var req model.SessionUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badInput(c, err)
		return
	}
	session, err := s.store.UpdateSession(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		s.storeError(c, err, "Failed to update session")
		return
	}
	ok(c, session)
}

func (s *Server) listUserSessions(c *gin.Context) {
	sessions, err := s.store.ListSessionsByUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		s.storeError(c, err, "Failed to fetch user sessions")
		return
	}
	ok(c, sessions)
}

func (s *Server) createAttempt(c *gin.Context) {
	var req model.NewAttempt
	if err := c.ShouldBindJSON(&req); err != nil {
		badInput(c, err)
		return
	}
	attempt, err := s.store.CreateAttempt(c.Request.Context(), req)
	if err != nil {
		s.storeError(c, err, "Failed to create attempt")
		return
	}
	s.metrics.observeAttempt(attempt.Successful)
	created(c, attempt)
}

func (s *Server) listSessionAttempts(c *gin.Context) {
	attempts, err := s.store.ListAttemptsBySession(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		s.storeError(c, err, "Failed to fetch attempts")
		return
	}
	ok(c, attempts)
}

func (s *Server) topLeaderboard(c *gin.Context) {
	limit := defaultLeaderboardLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			fail(c, http.StatusBadRequest, "Invalid limit", nil)
			return
		}
		limit = n
	}
	entries, err := s.board.Top(c.Request.Context(), limit)
	if err != nil {
		s.storeError(c, err, "Failed to fetch leaderboard")
		return
	}
	ok(c, entries)
}

type completionRequest struct {
	UserID         string `json:"userId" binding:"required"`
	CompletionTime *int   `json:"completionTime" binding:"required,gte=0"`
}

func (s *Server) recordCompletion(c *gin.Context) {
	var req completionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badInput(c, err)
		return
	}
	entry, err := s.board.RecordCompletion(c.Request.Context(), req.UserID, *req.CompletionTime, time.Time{})
	if err != nil {
		s.storeError(c, err, "Failed to create leaderboard entry")
		return
	}
	s.metrics.observeCompletion(entry.CompletionTime)
	created(c, entry)
}

func (s *Server) userRank(c *gin.Context) {
	entry, err := s.board.RankOf(c.Request.Context(), c.Param("userId"))
	if err != nil {
		s.storeError(c, err, "Failed to fetch user leaderboard")
		return
	}
	ok(c, entry)
}
