package services

import (
	"chatapp/internal/models"
	"chatapp/internal/ports"
	"context"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MessageService struct {
	messageRepo ports.IMessageRepository
	chatRepo    ports.IChatRepository
	populate    populator
	publisher   ports.IEventPublisher
	logger      *slog.Logger
}

func NewMessageService(messageRepo ports.IMessageRepository, chatRepo ports.IChatRepository, userRepo ports.IUserRepository, publisher ports.IEventPublisher, logger *slog.Logger) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		chatRepo:    chatRepo,
		populate:    populator{userRepo: userRepo, messageRepo: messageRepo},
		publisher:   publisher,
		logger:      logger,
	}
}

func (s *MessageService) SendMessage(ctx context.Context, senderID, chatID, content string) (*models.MessageView, error) {
	content = strings.TrimSpace(content)
	if content == "" || chatID == "" {
		return nil, invalid("invalid data passed in request")
	}

	sender, err := parseID(senderID, "user id")
	if err != nil {
		return nil, err
	}

	chat, err := s.memberChat(ctx, chatID, sender)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	message := &models.Message{
		Sender:    sender,
		Content:   content,
		Chat:      chat.ID,
		ReadBy:    []primitive.ObjectID{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.messageRepo.CreateMessage(ctx, message); err != nil {
		s.logger.Error("failed to send message", "chatID", chatID, "senderID", senderID, "error", err)
		return nil, err
	}

	if err := s.chatRepo.SetLatestMessage(ctx, chat.ID, message.ID, now); err != nil {
		s.logger.Error("failed to update latest message", "chatID", chatID, "messageID", message.ID.Hex(), "error", err)
		return nil, err
	}

	s.publish(ctx, message, chat)

	chatView, err := s.populate.chat(ctx, chat, false)
	if err != nil {
		return nil, err
	}
	views, err := s.populate.messages(ctx, []models.Message{*message}, chatView)
	if err != nil {
		return nil, err
	}

	s.logger.Info("message sent successfully", "chatID", chatID, "senderID", senderID, "messageID", message.ID.Hex())
	return &views[0], nil
}

func (s *MessageService) publish(ctx context.Context, message *models.Message, chat *models.Chat) {
	if s.publisher == nil {
		return
	}

	event := models.MessageCreated{
		MessageID: message.ID.Hex(),
		ChatID:    chat.ID.Hex(),
		SenderID:  message.Sender.Hex(),
		Members:   hexIDs(chat.Users),
		Content:   message.Content,
		CreatedAt: message.CreatedAt,
	}
	if err := s.publisher.PublishMessageCreated(ctx, event); err != nil {
		s.logger.Warn("failed to publish message event", "messageID", event.MessageID, "error", err)
	}
}

// GetChatMessages returns the full history of a chat, oldest first.
func (s *MessageService) GetChatMessages(ctx context.Context, requesterID, chatID string) ([]models.MessageView, error) {
	requester, err := parseID(requesterID, "user id")
	if err != nil {
		return nil, err
	}

	chat, err := s.memberChat(ctx, chatID, requester)
	if err != nil {
		return nil, err
	}

	messages, err := s.messageRepo.GetChatMessages(ctx, chat.ID)
	if err != nil {
		s.logger.Error("failed to get chat messages", "chatID", chatID, "error", err)
		return nil, err
	}

	chatView, err := s.populate.chat(ctx, chat, false)
	if err != nil {
		return nil, err
	}
	views, err := s.populate.messages(ctx, messages, chatView)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("retrieved chat messages", "chatID", chatID, "messageCount", len(views))
	return views, nil
}

func (s *MessageService) MarkRead(ctx context.Context, requesterID, messageID string) (*models.MessageView, error) {
	requester, err := parseID(requesterID, "user id")
	if err != nil {
		return nil, err
	}
	id, err := parseID(messageID, "messageId")
	if err != nil {
		return nil, err
	}

	message, err := s.messageRepo.GetMessageByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if message == nil {
		return nil, ErrMessageNotFound
	}

	if _, err := s.memberChat(ctx, message.Chat.Hex(), requester); err != nil {
		return nil, err
	}

	updated, err := s.messageRepo.MarkRead(ctx, id, requester)
	if err != nil {
		s.logger.Error("failed to mark message read", "messageID", messageID, "error", err)
		return nil, err
	}
	if updated == nil {
		return nil, ErrMessageNotFound
	}

	views, err := s.populate.messages(ctx, []models.Message{*updated}, nil)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *MessageService) memberChat(ctx context.Context, chatID string, userID primitive.ObjectID) (*models.Chat, error) {
	id, err := parseID(chatID, "chatId")
	if err != nil {
		return nil, err
	}

	chat, err := s.chatRepo.GetChatByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to check chat existence", "chatID", chatID, "error", err)
		return nil, err
	}
	if chat == nil {
		s.logger.Warn("chat not found", "chatID", chatID)
		return nil, ErrChatNotFound
	}
	if !chat.HasMember(userID) {
		s.logger.Warn("user is not a member of the chat", "userID", userID.Hex(), "chatID", chatID)
		return nil, ErrNotChatMember
	}
	return chat, nil
}
