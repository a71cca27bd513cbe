package repositories

import (
	"chatapp/internal/models"
	"chatapp/internal/ports"
	"context"
	"errors"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ChatRepository struct {
	chats  *mongo.Collection
	logger *slog.Logger
}

func NewChatRepository(ctx context.Context, db *mongo.Database, logger *slog.Logger) (*ChatRepository, error) {
	var repo = ChatRepository{chats: db.Collection("chats"), logger: logger}

	_, err := repo.chats.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "directKey", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("direct_key_unique").
				SetPartialFilterExpression(bson.M{"isGroupChat": false}),
		},
		{
			Keys:    bson.D{{Key: "users", Value: 1}, {Key: "updatedAt", Value: -1}},
			Options: options.Index().SetName("users_updated"),
		},
	})
	if err != nil {
		logger.Error("failed to create chats indexes", "error", err)
		return nil, err
	}

	return &repo, nil
}

// FindOrCreateDirectChat upserts on the pair key so two concurrent callers
// always end up with the same chat.
func (r *ChatRepository) FindOrCreateDirectChat(ctx context.Context, a, b primitive.ObjectID) (*models.Chat, error) {
	filter, update := directChatUpsert(a, b, time.Now().UTC())

	var chat models.Chat
	err := r.chats.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&chat)

	// The losing side of a concurrent upsert hits the unique index; the
	// winner's document is there now.
	if mongo.IsDuplicateKeyError(err) {
		r.logger.Debug("direct chat upsert raced, reading winner", "directKey", filter["directKey"])
		err = r.chats.FindOne(ctx, filter).Decode(&chat)
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// directChatUpsert keys the direct chat on the ordered pair, so (a, b) and
// (b, a) select the same document. Filter equalities are copied into an
// inserted document by the server.
func directChatUpsert(a, b primitive.ObjectID, now time.Time) (bson.M, bson.M) {
	filter := bson.M{"directKey": models.DirectKey(a, b), "isGroupChat": false}
	update := bson.M{"$setOnInsert": bson.M{
		"chatName":  "",
		"users":     bson.A{a, b},
		"createdAt": now,
		"updatedAt": now,
	}}
	return filter, update
}

func (r *ChatRepository) CreateChat(ctx context.Context, chat *models.Chat) error {
	if chat.ID.IsZero() {
		chat.ID = primitive.NewObjectID()
	}
	_, err := r.chats.InsertOne(ctx, chat)
	return err
}

func (r *ChatRepository) GetChatByID(ctx context.Context, id primitive.ObjectID) (*models.Chat, error) {
	var chat models.Chat
	err := r.chats.FindOne(ctx, bson.M{"_id": id}).Decode(&chat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *ChatRepository) GetUserChats(ctx context.Context, userID primitive.ObjectID) ([]models.Chat, error) {
	cursor, err := r.chats.Find(ctx,
		memberFilter(userID),
		options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}

	chats := []models.Chat{}
	if err := cursor.All(ctx, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

func (r *ChatRepository) RenameChat(ctx context.Context, id primitive.ObjectID, name string) (*models.Chat, error) {
	return r.update(ctx, id, bson.M{"$set": bson.M{"chatName": name, "updatedAt": time.Now().UTC()}})
}

func (r *ChatRepository) AddMember(ctx context.Context, id, userID primitive.ObjectID) (*models.Chat, error) {
	return r.update(ctx, id, bson.M{
		"$addToSet": bson.M{"users": userID},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	})
}

// RemoveMember pulls userID out of a group in a single guarded update. It
// returns ErrMemberNotRemoved when the group is gone, userID is not a member
// or its admin, or the group would drop below 2 members.
func (r *ChatRepository) RemoveMember(ctx context.Context, id, userID primitive.ObjectID) (*models.Chat, error) {
	var chat models.Chat
	err := r.chats.FindOneAndUpdate(ctx, removeMemberFilter(id, userID), bson.M{
		"$pull": bson.M{"users": userID},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&chat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ports.ErrMemberNotRemoved
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func memberFilter(userID primitive.ObjectID) bson.M {
	return bson.M{"users": userID}
}

// removeMemberFilter only matches while the group still has a third member,
// so two racing removals cannot leave fewer than 2.
func removeMemberFilter(id, userID primitive.ObjectID) bson.M {
	return bson.M{
		"_id":         id,
		"isGroupChat": true,
		"users":       userID,
		"groupAdmin":  bson.M{"$ne": userID},
		"users.2":     bson.M{"$exists": true},
	}
}

func (r *ChatRepository) SetLatestMessage(ctx context.Context, chatID, messageID primitive.ObjectID, at time.Time) error {
	_, err := r.chats.UpdateByID(ctx, chatID, bson.M{
		"$set": bson.M{"latestMessage": messageID, "updatedAt": at},
	})
	return err
}

func (r *ChatRepository) update(ctx context.Context, id primitive.ObjectID, update bson.M) (*models.Chat, error) {
	var chat models.Chat
	err := r.chats.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&chat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}
