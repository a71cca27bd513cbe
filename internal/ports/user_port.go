package ports

import (
	"chatapp/internal/models"
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type IUserRepository interface {
	IUserRepositoryReader
	IUserRepositoryWriter
}

// Readers return (nil, nil) when the user does not exist.
type IUserRepositoryReader interface {
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	SearchUsers(ctx context.Context, query string, exclude primitive.ObjectID) ([]models.User, error)
}

type IUserRepositoryWriter interface {
	CreateUser(ctx context.Context, user *models.User) error
	UpdateAvatar(ctx context.Context, id primitive.ObjectID, avatar string) (*models.User, error)
}
