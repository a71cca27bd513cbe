package repositories

import (
	"chatapp/internal/models"
	"chatapp/internal/ports"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestDirectChatUpsert(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	now := time.Now().UTC()

	forward, forwardUpdate := directChatUpsert(a, b, now)
	backward, _ := directChatUpsert(b, a, now)

	assert.Equal(t, forward, backward)
	assert.Equal(t, bson.M{"directKey": models.DirectKey(a, b), "isGroupChat": false}, forward)

	insert, ok := forwardUpdate["$setOnInsert"].(bson.M)
	require.True(t, ok)
	assert.Len(t, forwardUpdate, 1)
	assert.Equal(t, bson.A{a, b}, insert["users"])
	assert.Equal(t, now, insert["createdAt"])
}

func TestChatFilters(t *testing.T) {
	chatID, userID := primitive.NewObjectID(), primitive.NewObjectID()

	ts := []struct {
		name     string
		filter   bson.M
		expected bson.M
	}{
		{
			name:     "Chat list only matches chats the user belongs to",
			filter:   memberFilter(userID),
			expected: bson.M{"users": userID},
		},
		{
			name:   "Removal needs a member who is not the admin and a third member",
			filter: removeMemberFilter(chatID, userID),
			expected: bson.M{
				"_id":         chatID,
				"isGroupChat": true,
				"users":       userID,
				"groupAdmin":  bson.M{"$ne": userID},
				"users.2":     bson.M{"$exists": true},
			},
		},
	}

	for _, tt := range ts {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.filter)
		})
	}
}

func chatDocument(id primitive.ObjectID, group bool, users ...primitive.ObjectID) bson.D {
	members := bson.A{}
	for _, u := range users {
		members = append(members, u)
	}
	doc := bson.D{
		{Key: "_id", Value: id},
		{Key: "chatName", Value: ""},
		{Key: "isGroupChat", Value: group},
		{Key: "users", Value: members},
	}
	if !group && len(users) == 2 {
		doc = append(doc, bson.E{Key: "directKey", Value: models.DirectKey(users[0], users[1])})
	}
	return doc
}

func TestChatRepository_Mongo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	a, b := primitive.NewObjectID(), primitive.NewObjectID()

	mt.Run("direct chat upsert returns the stored chat", func(mt *mtest.T) {
		repo := &ChatRepository{chats: mt.Coll, logger: slog.Default()}
		id := primitive.NewObjectID()

		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: chatDocument(id, false, a, b)}))

		chat, err := repo.FindOrCreateDirectChat(context.Background(), a, b)
		require.NoError(mt, err)
		assert.Equal(mt, id, chat.ID)
		assert.Equal(mt, models.DirectKey(a, b), chat.DirectKey)
		assert.False(mt, chat.IsGroupChat)
	})

	mt.Run("losing a concurrent upsert reads the winner", func(mt *mtest.T) {
		repo := &ChatRepository{chats: mt.Coll, logger: slog.Default()}
		id := primitive.NewObjectID()

		mt.AddMockResponses(
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 11000, Name: "DuplicateKey", Message: "E11000 duplicate key error"}),
			mtest.CreateCursorResponse(0, "chatapp.chats", mtest.FirstBatch, chatDocument(id, false, a, b)),
		)

		chat, err := repo.FindOrCreateDirectChat(context.Background(), b, a)
		require.NoError(mt, err)
		assert.Equal(mt, id, chat.ID)
	})

	mt.Run("user chats decode every returned chat", func(mt *mtest.T) {
		repo := &ChatRepository{chats: mt.Coll, logger: slog.Default()}
		first, second := primitive.NewObjectID(), primitive.NewObjectID()

		mt.AddMockResponses(mtest.CreateCursorResponse(0, "chatapp.chats", mtest.FirstBatch,
			chatDocument(first, false, a, b),
			chatDocument(second, true, a, b, primitive.NewObjectID()),
		))

		chats, err := repo.GetUserChats(context.Background(), a)
		require.NoError(mt, err)
		require.Len(mt, chats, 2)
		for _, chat := range chats {
			assert.True(mt, chat.HasMember(a))
		}
	})

	mt.Run("guarded removal that matches nothing is rejected", func(mt *mtest.T) {
		repo := &ChatRepository{chats: mt.Coll, logger: slog.Default()}

		mt.AddMockResponses(mtest.CreateSuccessResponse())

		chat, err := repo.RemoveMember(context.Background(), primitive.NewObjectID(), a)
		assert.ErrorIs(mt, err, ports.ErrMemberNotRemoved)
		assert.Nil(mt, chat)
	})

	mt.Run("guarded removal returns the shrunk group", func(mt *mtest.T) {
		repo := &ChatRepository{chats: mt.Coll, logger: slog.Default()}
		id := primitive.NewObjectID()

		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: chatDocument(id, true, b, primitive.NewObjectID())}))

		chat, err := repo.RemoveMember(context.Background(), id, a)
		require.NoError(mt, err)
		assert.False(mt, chat.HasMember(a))
		assert.Len(mt, chat.Users, 2)
	})
}
