package handlers

import (
	"chatapp/internal/services"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	userIDKey = "userID"
	tokenKey  = "token"
)

type Envelope struct {
	StatusCode int         `json:"statusCode"`
	Data       interface{} `json:"data"`
	Message    string      `json:"message"`
	Success    bool        `json:"success"`
}

func respond(c *gin.Context, status int, data interface{}, message string) {
	c.JSON(status, Envelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	})
}

// respondError maps service errors to a status code. Unknown errors are
// logged and hidden from the client.
func respondError(c *gin.Context, span trace.Span, logger *slog.Logger, err error) {
	status, message := statusFor(err)

	logger = services.RequestLogger(c, logger)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "path", c.FullPath(), "status", status, "error", err)
	} else {
		logger.Warn("request rejected", "path", c.FullPath(), "status", status, "error", err)
	}

	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, message)
	}

	c.AbortWithStatusJSON(status, Envelope{
		StatusCode: status,
		Data:       nil,
		Message:    message,
		Success:    false,
	})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest, detail(err, services.ErrInvalidInput)
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid email or password"
	case errors.Is(err, services.ErrTokenRevoked):
		return http.StatusUnauthorized, "not authorized, token revoked"
	case errors.Is(err, services.ErrInvalidToken):
		return http.StatusUnauthorized, "not authorized, token failed"
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, detail(err, services.ErrForbidden)
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrChatNotFound),
		errors.Is(err, services.ErrMessageNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, services.ErrEmailTaken):
		return http.StatusConflict, err.Error()
	case errors.Is(err, services.ErrUpstream):
		return http.StatusBadGateway, "upstream service unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// detail strips the sentinel prefix so clients only see the reason.
func detail(err, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
	if msg == "" {
		return sentinel.Error()
	}
	return msg
}

func currentUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

func badRequest(reason string) error {
	return fmt.Errorf("%w: %s", services.ErrInvalidInput, reason)
}
