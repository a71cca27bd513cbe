package repositories

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestNewRepositoryAdapter_DisconnectsWhenIndexesFail(t *testing.T) {
	ctx := context.Background()

	// Connect is lazy; nothing listens on this port so index creation fails.
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI("mongodb://127.0.0.1:1").
		SetServerSelectionTimeout(100*time.Millisecond))
	require.NoError(t, err)

	adapter, err := newRepositoryAdapter(ctx, client, "chatapp", slog.Default())
	assert.Error(t, err)
	assert.Nil(t, adapter)

	assert.ErrorIs(t, client.Disconnect(ctx), mongo.ErrClientDisconnected)
}
