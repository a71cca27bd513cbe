package services

import (
	"chatapp/internal/models"
	"chatapp/internal/ports"
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// populator resolves user and message references with one batched lookup
// per collection instead of one query per reference.
type populator struct {
	userRepo    ports.IUserRepositoryReader
	messageRepo ports.IMessageRepository
}

func (p populator) users(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	users, err := p.userRepo.GetUsersByIDs(ctx, uniqueIDs(ids))
	if err != nil {
		return nil, err
	}

	byID := make(map[primitive.ObjectID]models.User, len(users))
	for _, user := range users {
		user.Password = ""
		byID[user.ID] = user
	}
	return byID, nil
}

// chats builds views for chats. Latest messages are resolved only when
// withLatest is set.
func (p populator) chats(ctx context.Context, chats []models.Chat, withLatest bool) ([]models.ChatView, error) {
	var userIDs, messageIDs []primitive.ObjectID
	for _, chat := range chats {
		userIDs = append(userIDs, chat.Users...)
		if chat.GroupAdmin != nil {
			userIDs = append(userIDs, *chat.GroupAdmin)
		}
		if withLatest && chat.LatestMessage != nil {
			messageIDs = append(messageIDs, *chat.LatestMessage)
		}
	}

	latest := map[primitive.ObjectID]models.Message{}
	if len(messageIDs) > 0 {
		messages, err := p.messageRepo.GetMessagesByIDs(ctx, uniqueIDs(messageIDs))
		if err != nil {
			return nil, err
		}
		for _, message := range messages {
			latest[message.ID] = message
			userIDs = append(userIDs, message.Sender)
		}
	}

	users, err := p.users(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	views := make([]models.ChatView, 0, len(chats))
	for _, chat := range chats {
		view := chatView(chat, users)
		if withLatest && chat.LatestMessage != nil {
			if message, ok := latest[*chat.LatestMessage]; ok {
				view.LatestMessage = messageView(message, users, nil)
			}
		}
		views = append(views, view)
	}
	return views, nil
}

func (p populator) chat(ctx context.Context, chat *models.Chat, withLatest bool) (*models.ChatView, error) {
	views, err := p.chats(ctx, []models.Chat{*chat}, withLatest)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (p populator) messages(ctx context.Context, messages []models.Message, chat *models.ChatView) ([]models.MessageView, error) {
	senderIDs := make([]primitive.ObjectID, 0, len(messages))
	for _, message := range messages {
		senderIDs = append(senderIDs, message.Sender)
	}

	users, err := p.users(ctx, senderIDs)
	if err != nil {
		return nil, err
	}

	views := make([]models.MessageView, 0, len(messages))
	for _, message := range messages {
		views = append(views, *messageView(message, users, chat))
	}
	return views, nil
}

func chatView(chat models.Chat, users map[primitive.ObjectID]models.User) models.ChatView {
	view := models.ChatView{
		ID:          chat.ID,
		Name:        chat.Name,
		IsGroupChat: chat.IsGroupChat,
		Users:       make([]models.User, 0, len(chat.Users)),
		CreatedAt:   chat.CreatedAt,
		UpdatedAt:   chat.UpdatedAt,
	}
	for _, id := range chat.Users {
		if user, ok := users[id]; ok {
			view.Users = append(view.Users, user)
		}
	}
	if chat.GroupAdmin != nil {
		if admin, ok := users[*chat.GroupAdmin]; ok {
			view.GroupAdmin = &admin
		}
	}
	return view
}

func messageView(message models.Message, users map[primitive.ObjectID]models.User, chat *models.ChatView) *models.MessageView {
	view := &models.MessageView{
		ID:        message.ID,
		Content:   message.Content,
		Chat:      chat,
		ReadBy:    message.ReadBy,
		CreatedAt: message.CreatedAt,
		UpdatedAt: message.UpdatedAt,
	}
	if view.ReadBy == nil {
		view.ReadBy = []primitive.ObjectID{}
	}
	if sender, ok := users[message.Sender]; ok {
		view.Sender = &sender
	} else {
		view.Sender = &models.User{ID: message.Sender}
	}
	return view
}

func uniqueIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
