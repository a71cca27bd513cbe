package repositories

import (
	"chatapp/internal/models"
	"context"
	"errors"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MessageRepository struct {
	messages *mongo.Collection
	logger   *slog.Logger
}

func NewMessageRepository(ctx context.Context, db *mongo.Database, logger *slog.Logger) (*MessageRepository, error) {
	var repo = MessageRepository{messages: db.Collection("messages"), logger: logger}

	_, err := repo.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "chat", Value: 1}, {Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}},
		Options: options.Index().SetName("chat_created"),
	})
	if err != nil {
		logger.Error("failed to create messages index", "error", err)
		return nil, err
	}

	return &repo, nil
}

func (r *MessageRepository) CreateMessage(ctx context.Context, message *models.Message) error {
	if message.ID.IsZero() {
		message.ID = primitive.NewObjectID()
	}
	// $addToSet needs an array, never null.
	if message.ReadBy == nil {
		message.ReadBy = []primitive.ObjectID{}
	}
	_, err := r.messages.InsertOne(ctx, message)
	return err
}

func (r *MessageRepository) GetMessageByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error) {
	var message models.Message
	err := r.messages.FindOne(ctx, bson.M{"_id": id}).Decode(&message)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *MessageRepository) GetMessagesByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Message, error) {
	if len(ids) == 0 {
		return []models.Message{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find())
}

// GetChatMessages returns the chat history oldest first.
func (r *MessageRepository) GetChatMessages(ctx context.Context, chatID primitive.ObjectID) ([]models.Message, error) {
	return r.find(ctx, bson.M{"chat": chatID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}))
}

func (r *MessageRepository) MarkRead(ctx context.Context, messageID, userID primitive.ObjectID) (*models.Message, error) {
	var message models.Message
	err := r.messages.FindOneAndUpdate(ctx,
		bson.M{"_id": messageID},
		bson.M{
			"$addToSet": bson.M{"readBy": userID},
			"$set":      bson.M{"updatedAt": time.Now().UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&message)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *MessageRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Message, error) {
	cursor, err := r.messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	messages := []models.Message{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}
