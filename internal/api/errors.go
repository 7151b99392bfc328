package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/judyrop/storefront-api/internal/middleware"
	"github.com/judyrop/storefront-api/internal/schema"
	"github.com/judyrop/storefront-api/internal/store"
)

// RequestError is a business rule failure with a message meant for clients.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}

func badRequest(format string, args ...interface{}) *RequestError {
	return &RequestError{Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func notFound(what string) *RequestError {
	return &RequestError{Status: http.StatusNotFound, Message: what + " not found"}
}

func forbidden(message string) *RequestError {
	return &RequestError{Status: http.StatusForbidden, Message: message}
}

// respondError maps every error a handler can produce onto {code, message}.
func (s *Server) respondError(c *gin.Context, err error) {
	var (
		validationErr *schema.ValidationError
		constraintErr *store.ConstraintError
		requestErr    *RequestError
	)

	switch {
	case errors.As(err, &validationErr):
		respond(c, http.StatusBadRequest, validationErr.Message)
	case errors.As(err, &constraintErr):
		s.metrics.ConstraintViolation(constraintErr.Kind.String())
		s.log.Info("constraint violation",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Stringer("kind", constraintErr.Kind),
			zap.String("constraint", constraintErr.Constraint),
			zap.Error(constraintErr.Err),
		)
		respond(c, http.StatusBadRequest, constraintErr.Message)
	case errors.As(err, &requestErr):
		respond(c, requestErr.Status, requestErr.Message)
	case errors.Is(err, gorm.ErrRecordNotFound):
		respond(c, http.StatusNotFound, "not found")
	default:
		_ = c.Error(err)
		s.log.Error("request failed",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
		respond(c, http.StatusInternalServerError, "internal server error")
	}
}

func respond(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"code":    status,
		"message": message,
	})
}
