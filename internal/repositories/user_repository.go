package repositories

import (
	"chatapp/internal/models"
	"chatapp/internal/ports"
	"context"
	"errors"
	"log/slog"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var withoutPassword = bson.D{{Key: "password", Value: 0}}

type UserRepository struct {
	users  *mongo.Collection
	logger *slog.Logger
}

func NewUserRepository(ctx context.Context, db *mongo.Database, logger *slog.Logger) (*UserRepository, error) {
	var repo = UserRepository{users: db.Collection("users"), logger: logger}

	_, err := repo.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		logger.Error("failed to create users index", "error", err)
		return nil, err
	}

	return &repo, nil
}

func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}

	_, err := r.users.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return ports.ErrDuplicate
	}
	return err
}

func (r *UserRepository) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(withoutPassword))
}

// GetUserByEmail keeps the password hash; it backs the login check.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email}, options.FindOne())
}

func (r *UserRepository) GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetProjection(withoutPassword))
}

func (r *UserRepository) SearchUsers(ctx context.Context, query string, exclude primitive.ObjectID) ([]models.User, error) {
	return r.find(ctx, searchFilter(query, exclude), options.Find().
		SetProjection(withoutPassword).
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetLimit(50))
}

func (r *UserRepository) UpdateAvatar(ctx context.Context, id primitive.ObjectID, avatar string) (*models.User, error) {
	var user models.User
	err := r.users.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"avatar": avatar, "updatedAt": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After).SetProjection(withoutPassword),
	).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (*models.User, error) {
	var user models.User
	err := r.users.FindOne(ctx, filter, opts).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.User, error) {
	cursor, err := r.users.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// searchFilter matches name or email case-insensitively and never returns
// the caller.
func searchFilter(query string, exclude primitive.ObjectID) bson.M {
	filter := bson.M{"_id": bson.M{"$ne": exclude}}
	if query == "" {
		return filter
	}

	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}
	filter["$or"] = bson.A{
		bson.M{"name": pattern},
		bson.M{"email": pattern},
	}
	return filter
}
