package ports

import (
	"chatapp/internal/models"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrDuplicate is returned by writers when a unique index rejects the record.
var ErrDuplicate = errors.New("duplicate key")

// ErrMemberNotRemoved is returned by RemoveMember when its guard rejects the
// update: the user is not a member, is the admin, or the group is at 2 members.
var ErrMemberNotRemoved = errors.New("member not removed")

// Lookups return (nil, nil) when the record does not exist.
type IChatRepository interface {
	FindOrCreateDirectChat(ctx context.Context, a, b primitive.ObjectID) (*models.Chat, error)
	CreateChat(ctx context.Context, chat *models.Chat) error
	GetChatByID(ctx context.Context, id primitive.ObjectID) (*models.Chat, error)
	GetUserChats(ctx context.Context, userID primitive.ObjectID) ([]models.Chat, error)
	RenameChat(ctx context.Context, id primitive.ObjectID, name string) (*models.Chat, error)
	AddMember(ctx context.Context, id, userID primitive.ObjectID) (*models.Chat, error)
	RemoveMember(ctx context.Context, id, userID primitive.ObjectID) (*models.Chat, error)
	SetLatestMessage(ctx context.Context, chatID, messageID primitive.ObjectID, at time.Time) error
}

type IMessageRepository interface {
	CreateMessage(ctx context.Context, message *models.Message) error
	GetMessageByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error)
	GetMessagesByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Message, error)
	GetChatMessages(ctx context.Context, chatID primitive.ObjectID) ([]models.Message, error)
	MarkRead(ctx context.Context, messageID, userID primitive.ObjectID) (*models.Message, error)
}
