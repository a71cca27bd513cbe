package services_test

import (
	"chatapp/app/tests"
	"chatapp/internal/models"
	"chatapp/internal/services"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newMessageService(messageRepo *tests.MockMessageRepository, chatRepo *tests.MockChatRepository, userRepo *tests.MockRepository, publisher *tests.MockEventPublisher) *services.MessageService {
	if publisher == nil {
		return services.NewMessageService(messageRepo, chatRepo, userRepo, nil, slog.Default())
	}
	return services.NewMessageService(messageRepo, chatRepo, userRepo, publisher, slog.Default())
}

func TestMessageService_SendMessage(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture()

	ts := []struct {
		name          string
		senderID      primitive.ObjectID
		content       string
		chatID        func(chat *models.Chat) string
		setupMocks    func(chat *models.Chat, messageRepo *tests.MockMessageRepository, chatRepo *tests.MockChatRepository, userRepo *tests.MockRepository, publisher *tests.MockEventPublisher)
		expectedError error
	}{
		{
			name:     "Member sends message",
			senderID: f.alice,
			content:  "  hello  ",
			chatID:   func(chat *models.Chat) string { return chat.ID.Hex() },
			setupMocks: func(chat *models.Chat, messageRepo *tests.MockMessageRepository, chatRepo *tests.MockChatRepository, userRepo *tests.MockRepository, publisher *tests.MockEventPublisher) {
				chatRepo.On("GetChatByID", ctx, chat.ID).Return(chat, nil)
				messageRepo.On("CreateMessage", ctx, mock.MatchedBy(func(m *models.Message) bool {
					return m.Content == "hello" && m.Sender == f.alice && m.Chat == chat.ID && m.ReadBy != nil
				})).Run(func(args mock.Arguments) {
					args.Get(1).(*models.Message).ID = primitive.NewObjectID()
				}).Return(nil)
				chatRepo.On("SetLatestMessage", ctx, chat.ID, mock.AnythingOfType("primitive.ObjectID"), mock.AnythingOfType("time.Time")).Return(nil)
				publisher.On("PublishMessageCreated", ctx, mock.MatchedBy(func(e models.MessageCreated) bool {
					return e.ChatID == chat.ID.Hex() && e.SenderID == f.alice.Hex() && len(e.Members) == 3
				})).Return(nil)
				userRepo.On("GetUsersByIDs", ctx, mock.Anything).Return(f.users, nil)
			},
		},
		{
			name:     "Publisher failure does not fail the send",
			senderID: f.alice,
			content:  "hello",
			chatID:   func(chat *models.Chat) string { return chat.ID.Hex() },
			setupMocks: func(chat *models.Chat, messageRepo *tests.MockMessageRepository, chatRepo *tests.MockChatRepository, userRepo *tests.MockRepository, publisher *tests.MockEventPublisher) {
				chatRepo.On("GetChatByID", ctx, chat.ID).Return(chat, nil)
				messageRepo.On("CreateMessage", ctx, mock.AnythingOfType("*models.Message")).Return(nil)
				chatRepo.On("SetLatestMessage", ctx, chat.ID, mock.Anything, mock.Anything).Return(nil)
				publisher.On("PublishMessageCreated", ctx, mock.Anything).Return(errors.New("broker down"))
				userRepo.On("GetUsersByIDs", ctx, mock.Anything).Return(f.users, nil)
			},
		},
		{
			name:          "Empty content",
			senderID:      f.alice,
			content:       "   ",
			chatID:        func(chat *models.Chat) string { return chat.ID.Hex() },
			setupMocks:    func(*models.Chat, *tests.MockMessageRepository, *tests.MockChatRepository, *tests.MockRepository, *tests.MockEventPublisher) {},
			expectedError: services.ErrInvalidInput,
		},
		{
			name:          "Missing chat id",
			senderID:      f.alice,
			content:       "hello",
			chatID:        func(*models.Chat) string { return "" },
			setupMocks:    func(*models.Chat, *tests.MockMessageRepository, *tests.MockChatRepository, *tests.MockRepository, *tests.MockEventPublisher) {},
			expectedError: services.ErrInvalidInput,
		},
		{
			name:     "Non-member is rejected",
			senderID: primitive.NewObjectID(),
			content:  "hello",
			chatID:   func(chat *models.Chat) string { return chat.ID.Hex() },
			setupMocks: func(chat *models.Chat, messageRepo *tests.MockMessageRepository, chatRepo *tests.MockChatRepository, userRepo *tests.MockRepository, publisher *tests.MockEventPublisher) {
				chatRepo.On("GetChatByID", ctx, chat.ID).Return(chat, nil)
			},
			expectedError: services.ErrForbidden,
		},
		{
			name:     "Unknown chat",
			senderID: f.alice,
			content:  "hello",
			chatID:   func(chat *models.Chat) string { return chat.ID.Hex() },
			setupMocks: func(chat *models.Chat, messageRepo *tests.MockMessageRepository, chatRepo *tests.MockChatRepository, userRepo *tests.MockRepository, publisher *tests.MockEventPublisher) {
				chatRepo.On("GetChatByID", ctx, chat.ID).Return(nil, nil)
			},
			expectedError: services.ErrChatNotFound,
		},
	}

	for _, tt := range ts {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			chat := f.group()
			messageRepo := &tests.MockMessageRepository{}
			chatRepo := &tests.MockChatRepository{}
			userRepo := &tests.MockRepository{}
			publisher := &tests.MockEventPublisher{}

			tt.setupMocks(chat, messageRepo, chatRepo, userRepo, publisher)

			service := newMessageService(messageRepo, chatRepo, userRepo, publisher)
			message, err := service.SendMessage(ctx, tt.senderID.Hex(), tt.chatID(chat), tt.content)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, message)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "hello", message.Content)
				require.NotNil(t, message.Sender)
				assert.Equal(t, "alice", message.Sender.Name)
				require.NotNil(t, message.Chat)
				assert.Len(t, message.Chat.Users, 3)
				assert.NotNil(t, message.ReadBy)
			}

			messageRepo.AssertExpectations(t)
			chatRepo.AssertExpectations(t)
			userRepo.AssertExpectations(t)
			publisher.AssertExpectations(t)
		})
	}
}

func TestMessageService_SendMessageWithoutPublisher(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture()
	chat := f.group()

	messageRepo := &tests.MockMessageRepository{}
	chatRepo := &tests.MockChatRepository{}
	userRepo := &tests.MockRepository{}

	chatRepo.On("GetChatByID", ctx, chat.ID).Return(chat, nil)
	messageRepo.On("CreateMessage", ctx, mock.AnythingOfType("*models.Message")).Return(nil)
	chatRepo.On("SetLatestMessage", ctx, chat.ID, mock.Anything, mock.Anything).Return(nil)
	userRepo.On("GetUsersByIDs", ctx, mock.Anything).Return(f.users, nil)

	service := newMessageService(messageRepo, chatRepo, userRepo, nil)
	_, err := service.SendMessage(ctx, f.bob.Hex(), chat.ID.Hex(), "hey")

	require.NoError(t, err)
}

func TestMessageService_GetChatMessages(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture()
	chat := f.group()

	now := time.Now().UTC()
	history := []models.Message{
		{ID: primitive.NewObjectID(), Sender: f.alice, Content: "first", Chat: chat.ID, CreatedAt: now},
		{ID: primitive.NewObjectID(), Sender: f.bob, Content: "second", Chat: chat.ID, CreatedAt: now.Add(time.Second)},
		{ID: primitive.NewObjectID(), Sender: primitive.NewObjectID(), Content: "from a deleted user", Chat: chat.ID, CreatedAt: now.Add(2 * time.Second)},
	}

	messageRepo := &tests.MockMessageRepository{}
	chatRepo := &tests.MockChatRepository{}
	userRepo := &tests.MockRepository{}

	chatRepo.On("GetChatByID", ctx, chat.ID).Return(chat, nil)
	messageRepo.On("GetChatMessages", ctx, chat.ID).Return(history, nil)
	userRepo.On("GetUsersByIDs", ctx, mock.Anything).Return(f.users, nil)

	service := newMessageService(messageRepo, chatRepo, userRepo, nil)

	messages, err := service.GetChatMessages(ctx, f.requester.Hex(), chat.ID.Hex())
	require.NoError(t, err)
	require.Len(t, messages, 3)

	assert.Equal(t, "first", messages[0].Content)
	assert.Equal(t, "alice", messages[0].Sender.Name)
	assert.Equal(t, "second", messages[1].Content)
	assert.Equal(t, history[2].Sender, messages[2].Sender.ID)
	assert.Empty(t, messages[2].Sender.Name)

	outsider := primitive.NewObjectID()
	_, err = service.GetChatMessages(ctx, outsider.Hex(), chat.ID.Hex())
	assert.ErrorIs(t, err, services.ErrForbidden)

	_, err = service.GetChatMessages(ctx, f.requester.Hex(), "bad-id")
	assert.ErrorIs(t, err, services.ErrInvalidInput)
}

func TestMessageService_MarkRead(t *testing.T) {
	ctx := context.Background()
	f := newChatFixture()
	chat := f.group()

	message := &models.Message{ID: primitive.NewObjectID(), Sender: f.alice, Content: "hi", Chat: chat.ID}
	read := *message
	read.ReadBy = []primitive.ObjectID{f.bob}
	missing := primitive.NewObjectID()

	messageRepo := &tests.MockMessageRepository{}
	chatRepo := &tests.MockChatRepository{}
	userRepo := &tests.MockRepository{}

	messageRepo.On("GetMessageByID", ctx, message.ID).Return(message, nil)
	messageRepo.On("GetMessageByID", ctx, missing).Return(nil, nil)
	messageRepo.On("MarkRead", ctx, message.ID, f.bob).Return(&read, nil)
	chatRepo.On("GetChatByID", ctx, chat.ID).Return(chat, nil)
	userRepo.On("GetUsersByIDs", ctx, mock.Anything).Return(f.users, nil)

	service := newMessageService(messageRepo, chatRepo, userRepo, nil)

	view, err := service.MarkRead(ctx, f.bob.Hex(), message.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{f.bob}, view.ReadBy)

	_, err = service.MarkRead(ctx, f.bob.Hex(), missing.Hex())
	assert.ErrorIs(t, err, services.ErrMessageNotFound)

	_, err = service.MarkRead(ctx, primitive.NewObjectID().Hex(), message.ID.Hex())
	assert.ErrorIs(t, err, services.ErrForbidden)
}
