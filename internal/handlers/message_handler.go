package handlers

import (
	"chatapp/internal/services"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type MessageHandler struct {
	service *services.MessageService
	logger  *slog.Logger
	tracer  trace.Tracer
}

func NewMessageHandler(service *services.MessageService, logger *slog.Logger, tracer trace.Tracer) *MessageHandler {
	return &MessageHandler{service: service, logger: logger, tracer: tracer}
}

func (h *MessageHandler) SendMessage(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "MessageHandler.SendMessage")
	defer span.End()

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, span, h.logger, badRequest("invalid data passed in request"))
		return
	}

	message, err := h.service.SendMessage(ctx, currentUserID(c), req.ChatID, req.Content)
	if err != nil {
		respondError(c, span, h.logger, err)
		return
	}

	span.SetAttributes(
		attribute.String("chat.id", req.ChatID),
		attribute.String("message.id", message.ID.Hex()),
	)
	respond(c, http.StatusOK, message, "message sent")
}

func (h *MessageHandler) GetChatMessages(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "MessageHandler.GetChatMessages")
	defer span.End()

	chatID := c.Param("chatId")
	span.SetAttributes(attribute.String("chat.id", chatID))

	messages, err := h.service.GetChatMessages(ctx, currentUserID(c), chatID)
	if err != nil {
		respondError(c, span, h.logger, err)
		return
	}

	respond(c, http.StatusOK, messages, "messages fetched")
}

func (h *MessageHandler) MarkRead(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "MessageHandler.MarkRead")
	defer span.End()

	message, err := h.service.MarkRead(ctx, currentUserID(c), c.Param("messageId"))
	if err != nil {
		respondError(c, span, h.logger, err)
		return
	}

	respond(c, http.StatusOK, message, "message marked as read")
}
