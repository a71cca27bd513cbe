package ports

import (
	"chatapp/internal/models"
	"context"
	"io"
)

type IEmailService interface {
	SendWelcomeEmail(email, name string) error
}

// INotifier pushes a relay event into a user's personal room.
type INotifier interface {
	BroadcastToUser(userID string, event string, data interface{})
}

type IEventPublisher interface {
	PublishMessageCreated(ctx context.Context, event models.MessageCreated) error
}

type IAvatarStorage interface {
	UploadAvatar(ctx context.Context, userID, fileName, contentType string, body io.Reader, size int64) (string, error)
}
