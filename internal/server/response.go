package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/verte-zerg/escaperoom/internal/model"
)

// Response is the envelope of every API reply.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
}

// FieldError describes one rejected request field.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

func fail(c *gin.Context, status int, message string, details any) {
	c.AbortWithStatusJSON(status, Response{Success: false, Error: message, Details: details})
}

// badInput replies 400 with per-field details when binding failed validation.
func badInput(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, FieldError{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()})
		}
		fail(c, http.StatusBadRequest, "Invalid input", details)
		return
	}
	fail(c, http.StatusBadRequest, "Invalid input", err.Error())
}

// storeError maps the error taxonomy to a status. Unexpected failures are
// logged and reported with message.
func (s *Server) storeError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		fail(c, http.StatusNotFound, notFoundMessage(err), nil)
	case errors.Is(err, model.ErrInvalidInput):
		fail(c, http.StatusBadRequest, "Invalid input", err.Error())
	case errors.Is(err, model.ErrConflict):
		fail(c, http.StatusConflict, err.Error(), nil)
	default:
		s.log.Error(message, zap.String("path", c.FullPath()), zap.Error(err))
		fail(c, http.StatusInternalServerError, message, nil)
	}
}

func notFoundMessage(err error) string {
	msg := err.Error()
	if msg == "" {
		return "Not found"
	}
	return msg
}
