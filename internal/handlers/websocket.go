package handlers

import (
	"chatapp/internal/services"
	internalWebsocket "chatapp/internal/websocet"
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type WebsocketHandler struct {
	hub         *internalWebsocket.Hub
	authService *services.AuthService
	logger      *slog.Logger
	tracer      trace.Tracer
}

func NewWebSocketHandler(hub *internalWebsocket.Hub, authService *services.AuthService, logger *slog.Logger, tracer trace.Tracer) *WebsocketHandler {
	return &WebsocketHandler{
		hub:         hub,
		authService: authService,
		logger:      logger,
		tracer:      tracer,
	}
}

// HandleWebSocket authenticates before the upgrade. The token may come from
// the query string, a bearer header or the token cookie.
func (h *WebsocketHandler) HandleWebSocket(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "WebsocketHandler.HandleWebSocket")
	defer span.End()

	token := c.Query("token")
	if token == "" {
		token = bearerToken(c)
	}
	if token == "" {
		if cookie, err := c.Request.Cookie("token"); err == nil {
			token = cookie.Value
		}
	}
	if token == "" {
		respondError(c, span, h.logger, fmt.Errorf("%w: no token", services.ErrInvalidToken))
		return
	}

	userID, err := h.authService.ValidateToken(ctx, token)
	if err != nil {
		respondError(c, span, h.logger, err)
		return
	}

	conn, err := internalWebsocket.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	h.hub.Serve(conn, userID)

	span.SetAttributes(attribute.String("user.id", userID))
	h.logger.Info("websocket connection established", "userID", userID)
}
