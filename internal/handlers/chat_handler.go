package handlers

import (
	"chatapp/internal/services"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type ChatHandler struct {
	service *services.ChatService
	logger  *slog.Logger
	tracer  trace.Tracer
}

func NewChatHandler(service *services.ChatService, logger *slog.Logger, tracer trace.Tracer) *ChatHandler {
	return &ChatHandler{service: service, logger: logger, tracer: tracer}
}

func (h *ChatHandler) AccessChat(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "ChatHandler.AccessChat")
	defer span.End()

	var req AccessChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		respondError(c, span, h.logger, badRequest("userId param not sent with request"))
		return
	}

	chat, err := h.service.AccessChat(ctx, currentUserID(c), req.UserID)
	if err != nil {
		respondError(c, span, h.logger, err)
		return
	}

	span.SetAttributes(attribute.String("chat.id", chat.ID.Hex()))
	respond(c, http.StatusOK, chat, "chat fetched")
}

func (h *ChatHandler) GetUserChats(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "ChatHandler.GetUserChats")
	defer span.End()

	chats, err := h.service.GetUserChats(ctx, currentUserID(c))
	if err != nil {
		respondError(c, span, h.logger, err)
		return
	}

	span.SetAttributes(attribute.Int("chats.count", len(chats)))
	respond(c, http.StatusOK, chats, "chats fetched")
}

func (h *ChatHandler) CreateGroupChat(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "ChatHandler.CreateGroupChat")
	defer span.End()

	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, span, h.logger, badRequest("please fill all the fields"))
		return
	}

	chat, err := h.service.CreateGroupChat(ctx, currentUserID(c), req.Name, req.Users)
	if err != nil {
		respondError(c, span, h.logger, err)
		return
	}

	respond(c, http.StatusOK, chat, "group chat created")
}

func (h *ChatHandler) RenameGroup(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "ChatHandler.RenameGroup")
	defer span.End()

	var req RenameGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, span, h.logger, badRequest("chatId and chatName are required"))
		return
	}

	chat, err := h.service.RenameGroup(ctx, currentUserID(c), req.ChatID, req.ChatName)
	if err != nil {
		respondError(c, span, h.logger, err)
		return
	}

	respond(c, http.StatusOK, chat, "group renamed")
}

func (h *ChatHandler) AddToGroup(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "ChatHandler.AddToGroup")
	defer span.End()

	var req GroupMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, span, h.logger, badRequest("chatId and userId are required"))
		return
	}

	chat, err := h.service.AddMember(ctx, currentUserID(c), req.ChatID, req.Member())
	if err != nil {
		respondError(c, span, h.logger, err)
		return
	}

	respond(c, http.StatusOK, chat, "user added to group")
}

func (h *ChatHandler) RemoveFromGroup(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "ChatHandler.RemoveFromGroup")
	defer span.End()

	var req GroupMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, span, h.logger, badRequest("chatId and userId are required"))
		return
	}

	chat, err := h.service.RemoveMember(ctx, currentUserID(c), req.ChatID, req.Member())
	if err != nil {
		respondError(c, span, h.logger, err)
		return
	}

	respond(c, http.StatusOK, chat, "user removed from group")
}
