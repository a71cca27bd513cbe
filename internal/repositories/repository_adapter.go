package repositories

import (
	"chatapp/app/config"
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const connectAttempts = 5

type RepositoryAdapter struct {
	User    *UserRepository
	Chat    *ChatRepository
	Message *MessageRepository

	client *mongo.Client
}

func NewRepositoryAdapter(cfg config.MongoConfig, logger *slog.Logger) (*RepositoryAdapter, error) {
	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetTimeout(cfg.Timeout).
		SetMaxPoolSize(25).
		SetMinPoolSize(2).
		SetMaxConnIdleTime(2 * time.Minute)

	client, err := connectWithRetry(clientOptions, logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("adapter initialization: connected", "database", cfg.Database)

	return newRepositoryAdapter(ctx, client, cfg.Database, logger)
}

// newRepositoryAdapter takes ownership of client: it is disconnected when
// the collections cannot be prepared.
func newRepositoryAdapter(ctx context.Context, client *mongo.Client, database string, logger *slog.Logger) (*RepositoryAdapter, error) {
	userRepo, chatRepo, messageRepo, err := newRepositories(ctx, client.Database(database), logger)
	if err != nil {
		logger.Error("adapter initialization: index setup failed", "error", err)
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logger.Info("adapter initialization: indexes ready")

	return &RepositoryAdapter{User: userRepo, Chat: chatRepo, Message: messageRepo, client: client}, nil
}

func newRepositories(ctx context.Context, db *mongo.Database, logger *slog.Logger) (*UserRepository, *ChatRepository, *MessageRepository, error) {
	userRepo, err := NewUserRepository(ctx, db, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	chatRepo, err := NewChatRepository(ctx, db, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	messageRepo, err := NewMessageRepository(ctx, db, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return userRepo, chatRepo, messageRepo, nil
}

// connectWithRetry is the only retried operation in the service: the
// database may still be starting when the app boots.
func connectWithRetry(opts *options.ClientOptions, logger *slog.Logger) (*mongo.Client, error) {
	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		client, err := connect(opts)
		if err == nil {
			return client, nil
		}
		lastErr = err
		if attempt == connectAttempts {
			break
		}
		logger.Warn("database not reachable, retrying", "attempt", attempt, "error", err)
		time.Sleep(time.Duration(attempt) * time.Second)
	}
	return nil, lastErr
}

func connect(opts *options.ClientOptions) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect failed: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return client, nil
}

func (r *RepositoryAdapter) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (r *RepositoryAdapter) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return r.client.Ping(ctx, readpref.Primary())
}
