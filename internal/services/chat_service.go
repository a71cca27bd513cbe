package services

import (
	"chatapp/internal/models"
	"chatapp/internal/ports"
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const EventChatUpdated = "chat updated"

type ChatService struct {
	chatRepo ports.IChatRepository
	userRepo ports.IUserRepository
	populate populator
	logger   *slog.Logger
	notifier ports.INotifier
}

func NewChatService(chatRepo ports.IChatRepository, messageRepo ports.IMessageRepository, userRepo ports.IUserRepository, logger *slog.Logger) *ChatService {
	return &ChatService{
		chatRepo: chatRepo,
		userRepo: userRepo,
		populate: populator{userRepo: userRepo, messageRepo: messageRepo},
		logger:   logger,
	}
}

func (s *ChatService) SetNotifier(notifier ports.INotifier) {
	s.notifier = notifier
}

func (s *ChatService) notifyChatUpdated(chat *models.ChatView, actor primitive.ObjectID, extra ...primitive.ObjectID) {
	if s.notifier == nil {
		return
	}

	recipients := make([]primitive.ObjectID, 0, len(chat.Users)+len(extra))
	for _, member := range chat.Users {
		recipients = append(recipients, member.ID)
	}
	recipients = append(recipients, extra...)

	for _, id := range uniqueIDs(recipients) {
		if id != actor {
			s.notifier.BroadcastToUser(id.Hex(), EventChatUpdated, chat)
		}
	}

	s.logger.Debug("notified chat members", "chatID", chat.ID.Hex(), "members", len(recipients))
}

// AccessChat returns the direct chat between the two users, creating it on
// first contact.
func (s *ChatService) AccessChat(ctx context.Context, requesterID, targetID string) (*models.ChatView, error) {
	requester, err := parseID(requesterID, "user id")
	if err != nil {
		return nil, err
	}
	target, err := parseID(targetID, "userId")
	if err != nil {
		return nil, err
	}
	if requester == target {
		return nil, invalid("cannot open a chat with yourself")
	}

	user, err := s.userRepo.GetUserByID(ctx, target)
	if err != nil {
		s.logger.Error("failed to check user existence", "userID", targetID, "error", err)
		return nil, err
	}
	if user == nil {
		s.logger.Warn("user not found", "userID", targetID)
		return nil, ErrUserNotFound
	}

	chat, err := s.chatRepo.FindOrCreateDirectChat(ctx, requester, target)
	if err != nil {
		s.logger.Error("failed to access direct chat", "requester", requesterID, "target", targetID, "error", err)
		return nil, err
	}

	view, err := s.populate.chat(ctx, chat, true)
	if err != nil {
		return nil, err
	}

	s.logger.Info("direct chat accessed", "chatID", chat.ID.Hex(), "requester", requesterID)
	return view, nil
}

func (s *ChatService) GetUserChats(ctx context.Context, userID string) ([]models.ChatView, error) {
	id, err := parseID(userID, "user id")
	if err != nil {
		return nil, err
	}

	chats, err := s.chatRepo.GetUserChats(ctx, id)
	if err != nil {
		s.logger.Error("failed to get user chats", "userID", userID, "error", err)
		return nil, err
	}

	views, err := s.populate.chats(ctx, chats, true)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("retrieved user chats", "userID", userID, "chatCount", len(views))
	return views, nil
}

func (s *ChatService) CreateGroupChat(ctx context.Context, requesterID, name string, memberIDs []string) (*models.ChatView, error) {
	requester, err := parseID(requesterID, "user id")
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" || memberIDs == nil {
		return nil, invalid("please fill all the fields")
	}

	members := make([]primitive.ObjectID, 0, len(memberIDs)+1)
	for _, raw := range memberIDs {
		id, err := parseID(raw, "users")
		if err != nil {
			return nil, err
		}
		if id != requester {
			members = append(members, id)
		}
	}
	members = uniqueIDs(members)

	if len(members) < 2 {
		return nil, ErrInsufficientMembers
	}

	found, err := s.userRepo.GetUsersByIDs(ctx, members)
	if err != nil {
		s.logger.Error("failed to check user existence", "error", err)
		return nil, err
	}
	if len(found) != len(members) {
		s.logger.Warn("group member not found", "requested", len(members), "found", len(found))
		return nil, ErrUserNotFound
	}

	now := time.Now().UTC()
	chat := &models.Chat{
		Name:        name,
		IsGroupChat: true,
		Users:       append(members, requester),
		GroupAdmin:  &requester,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.chatRepo.CreateChat(ctx, chat); err != nil {
		s.logger.Error("failed to create chat in repository", "error", err)
		return nil, err
	}

	view, err := s.populate.chat(ctx, chat, false)
	if err != nil {
		return nil, err
	}

	s.notifyChatUpdated(view, requester)

	s.logger.Info("group chat created", "chatID", chat.ID.Hex(), "chatName", name, "memberCount", len(chat.Users))
	return view, nil
}

func (s *ChatService) RenameGroup(ctx context.Context, requesterID, chatID, name string) (*models.ChatView, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("chat name is required")
	}

	requester, chat, err := s.adminChat(ctx, requesterID, chatID)
	if err != nil {
		return nil, err
	}

	updated, err := s.chatRepo.RenameChat(ctx, chat.ID, name)
	if err != nil {
		s.logger.Error("failed to rename chat", "chatID", chatID, "error", err)
		return nil, err
	}
	if updated == nil {
		return nil, ErrChatNotFound
	}

	return s.finishGroupUpdate(ctx, updated, requester)
}

func (s *ChatService) AddMember(ctx context.Context, requesterID, chatID, userID string) (*models.ChatView, error) {
	requester, chat, err := s.adminChat(ctx, requesterID, chatID)
	if err != nil {
		return nil, err
	}

	member, err := parseID(userID, "userId")
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetUserByID(ctx, member)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	updated, err := s.chatRepo.AddMember(ctx, chat.ID, member)
	if err != nil {
		s.logger.Error("failed to add member", "chatID", chatID, "userID", userID, "error", err)
		return nil, err
	}
	if updated == nil {
		return nil, ErrChatNotFound
	}

	s.logger.Info("member added", "chatID", chatID, "userID", userID, "by", requesterID)
	return s.finishGroupUpdate(ctx, updated, requester)
}

// RemoveMember lets the admin remove anyone but themself, and any member
// leave on their own.
func (s *ChatService) RemoveMember(ctx context.Context, requesterID, chatID, userID string) (*models.ChatView, error) {
	requester, err := parseID(requesterID, "user id")
	if err != nil {
		return nil, err
	}
	member, err := parseID(userID, "userId")
	if err != nil {
		return nil, err
	}

	chat, err := s.groupChat(ctx, chatID)
	if err != nil {
		return nil, err
	}

	if member != requester && !chat.IsAdmin(requester) {
		s.logger.Warn("non-admin tried to remove member", "chatID", chatID, "requester", requesterID)
		return nil, ErrNotGroupAdmin
	}
	if chat.IsAdmin(member) {
		return nil, invalid("the group admin cannot be removed")
	}
	if !chat.HasMember(member) {
		return nil, invalid("user is not a member of this group")
	}
	if len(chat.Users) <= 2 {
		return nil, invalid("a group chat needs at least 2 members")
	}

	// The checks above read a snapshot; the repository re-applies them
	// atomically, so a concurrent removal can still turn this one down.
	updated, err := s.chatRepo.RemoveMember(ctx, chat.ID, member)
	if errors.Is(err, ports.ErrMemberNotRemoved) {
		s.logger.Warn("member removal rejected", "chatID", chatID, "userID", userID)
		return nil, invalid("a group chat needs at least 2 members")
	}
	if err != nil {
		s.logger.Error("failed to remove member", "chatID", chatID, "userID", userID, "error", err)
		return nil, err
	}

	view, err := s.populate.chat(ctx, updated, false)
	if err != nil {
		return nil, err
	}
	s.notifyChatUpdated(view, requester, member)

	s.logger.Info("member removed", "chatID", chatID, "userID", userID, "by", requesterID)
	return view, nil
}

func (s *ChatService) IsChatMember(ctx context.Context, chatID, userID string) (bool, error) {
	cid, err := parseID(chatID, "chat id")
	if err != nil {
		return false, err
	}
	uid, err := parseID(userID, "user id")
	if err != nil {
		return false, err
	}

	chat, err := s.chatRepo.GetChatByID(ctx, cid)
	if err != nil {
		return false, err
	}
	return chat != nil && chat.HasMember(uid), nil
}

func (s *ChatService) groupChat(ctx context.Context, chatID string) (*models.Chat, error) {
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
	if !chat.IsGroupChat {
		return nil, invalid("not a group chat")
	}
	return chat, nil
}

func (s *ChatService) adminChat(ctx context.Context, requesterID, chatID string) (primitive.ObjectID, *models.Chat, error) {
	requester, err := parseID(requesterID, "user id")
	if err != nil {
		return primitive.NilObjectID, nil, err
	}

	chat, err := s.groupChat(ctx, chatID)
	if err != nil {
		return primitive.NilObjectID, nil, err
	}

	if !chat.IsAdmin(requester) {
		s.logger.Warn("non-admin tried to modify group", "chatID", chatID, "requester", requesterID)
		return primitive.NilObjectID, nil, ErrNotGroupAdmin
	}
	return requester, chat, nil
}

func (s *ChatService) finishGroupUpdate(ctx context.Context, chat *models.Chat, actor primitive.ObjectID) (*models.ChatView, error) {
	view, err := s.populate.chat(ctx, chat, false)
	if err != nil {
		return nil, err
	}
	s.notifyChatUpdated(view, actor)
	return view, nil
}
