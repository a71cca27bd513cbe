package main

import (
	"chatapp/app/config"
	"chatapp/internal/adapters"
	"chatapp/internal/handlers"
	"chatapp/internal/ports"
	"chatapp/internal/repositories"
	"chatapp/internal/services"
	websocket "chatapp/internal/websocet"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	otelgin "go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.12.0"
	"go.opentelemetry.io/otel/trace"
)

type Container struct {
	isShuttingDown atomic.Bool
	stopBackground context.CancelFunc

	GinEngine   *gin.Engine
	Config      *config.Config
	Redis       *redis.Client
	Blacklist   *adapters.RedisTokenBlacklist
	RateLimiter *RateLimiter

	Metrics        *Metrics
	Logger         *slog.Logger
	TracerProvider *tracesdk.TracerProvider
	Tracer         trace.Tracer

	Server *http.Server

	Repository *repositories.RepositoryAdapter
	Avatars    *adapters.MinioAvatarStorage
	Publisher  *adapters.KafkaEventPublisher

	AuthService    *services.AuthService
	EmailService   *services.EmailService
	ChatService    *services.ChatService
	MessageService *services.MessageService

	AuthHandler      *handlers.AuthHandler
	ChatHandler      *handlers.ChatHandler
	MessageHandler   *handlers.MessageHandler
	WebSocketHandler *handlers.WebsocketHandler

	WsHub *websocket.Hub
}

func NewContainer() (*Container, error) {
	container := &Container{}

	if err := container.initCore(); err != nil {
		return nil, err
	}

	if err := container.initProductionFeatures(); err != nil {
		return nil, err
	}

	return container, nil
}

func (c *Container) initCore() error {
	var cfg, err = config.LoadConfig()
	if err != nil {
		return err
	}
	c.Config = &cfg

	c.Logger = c.initLogger()
	c.Redis = c.initRedis()
	c.Blacklist = adapters.NewRedisTokenBlacklist(c.Redis)
	c.Metrics = NewMetrics(prometheus.DefaultRegisterer)

	if err = c.initTracing(); err != nil {
		return err
	}

	c.Repository, err = repositories.NewRepositoryAdapter(cfg.Mongo, c.Logger)
	if err != nil {
		c.Logger.Error("repository initialize error", "error", err.Error())
		return err
	}

	c.EmailService = services.NewEmailService(cfg.Email, c.Logger)

	c.ChatService = services.NewChatService(c.Repository.Chat, c.Repository.Message, c.Repository.User, c.Logger)
	c.MessageService = services.NewMessageService(c.Repository.Message, c.Repository.Chat, c.Repository.User, c.initPublisher(), c.Logger)

	c.WsHub = websocket.NewHub(c.ChatService, c.Metrics.ActiveWebSockets, c.Logger)
	c.ChatService.SetNotifier(c.WsHub)

	c.RateLimiter = NewRateLimiter(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)

	c.AuthService = services.NewAuthService(
		c.Repository.User,
		c.EmailService,
		services.NewBcryptHasher(cfg.Password.BcryptCost),
		c.Blacklist,
		c.initAvatarStorage(),
		services.AuthSettings{
			JWTKey:            []byte(cfg.JWT.SecretKey),
			TokenTTL:          cfg.JWT.TTL,
			PlaceholderAvatar: cfg.Avatar.PlaceholderURL,
		},
		c.Logger,
	)

	c.AuthHandler = handlers.NewAuthHandler(c.AuthService, cfg.Server.MaxUploadSize, c.Logger, c.Tracer)
	c.ChatHandler = handlers.NewChatHandler(c.ChatService, c.Logger, c.Tracer)
	c.MessageHandler = handlers.NewMessageHandler(c.MessageService, c.Logger, c.Tracer)
	c.WebSocketHandler = handlers.NewWebSocketHandler(c.WsHub, c.AuthService, c.Logger, c.Tracer)

	c.Server = c.initServer()
	c.GinEngine = c.initGinEngine()
	c.Server.Handler = c.GinEngine

	return nil
}

func (c *Container) initProductionFeatures() error {
	c.initHealthRoutes(c.GinEngine)

	c.GinEngine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	ctx, cancel := context.WithCancel(context.Background())
	c.stopBackground = cancel
	go c.RateLimiter.RunPruner(ctx)

	return nil
}

// initAvatarStorage returns nil when uploads are disabled or the bucket is
// unreachable, in which case users get placeholder avatars.
func (c *Container) initAvatarStorage() ports.IAvatarStorage {
	if c.Config.Storage.Endpoint == "" {
		c.Logger.Info("avatar storage disabled")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	storage, err := adapters.NewMinioAvatarStorage(ctx, c.Config.Storage, c.Logger)
	if err != nil {
		c.Logger.Warn("avatar storage unavailable", "error", err)
		return nil
	}

	c.Avatars = storage
	return storage
}

func (c *Container) initPublisher() ports.IEventPublisher {
	if c.Config.Kafka.Brokers == "" {
		c.Logger.Info("message events disabled")
		return nil
	}

	c.Publisher = adapters.NewKafkaEventPublisher(c.Config.Kafka.Brokers, c.Config.Kafka.Topic)
	c.Logger.Info("publishing message events", "brokers", c.Config.Kafka.Brokers, "topic", c.Config.Kafka.Topic)
	return c.Publisher
}

func (c *Container) initTracing() error {
	if !c.Config.Tracing.Enabled {
		c.Tracer = trace.NewNoopTracerProvider().Tracer("")
		c.Logger.Info("tracing disabled")
		return nil
	}

	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(c.Config.Tracing.Endpoint)))
	if err != nil {
		return err
	}

	c.TracerProvider = tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exp),
		tracesdk.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(c.Config.Tracing.ServiceName),
			attribute.String("environment", c.Config.Environment.Current),
		)),
	)

	otel.SetTracerProvider(c.TracerProvider)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	c.Tracer = c.TracerProvider.Tracer("chatapp")

	c.Logger.Info("tracing initialized", "endpoint", c.Config.Tracing.Endpoint)
	return nil
}

func (c *Container) initHealthRoutes(eng *gin.Engine) {
	eng.GET("/health", func(ctx *gin.Context) {
		health := map[string]string{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}

		if err := c.Repository.HealthCheck(ctx.Request.Context()); err != nil {
			c.Metrics.DependencyErrors.WithLabelValues("mongo").Inc()
			health["database"] = "unhealthy"
			health["status"] = "degraded"
			ctx.JSON(http.StatusServiceUnavailable, health)
			return
		}

		if err := c.Blacklist.Ping(ctx.Request.Context()); err != nil {
			c.Metrics.DependencyErrors.WithLabelValues("redis").Inc()
			health["redis"] = "unhealthy"
			health["status"] = "degraded"
			ctx.JSON(http.StatusServiceUnavailable, health)
			return
		}

		health["database"] = "healthy"
		health["redis"] = "healthy"
		ctx.JSON(http.StatusOK, health)
	})

	eng.GET("/ready", func(ctx *gin.Context) {
		if c.isShuttingDown.Load() {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "shutting down"})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	eng.GET("/live", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "live"})
	})
}

func (c *Container) initGinEngine() *gin.Engine {
	if c.Config.Environment.Current != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	var eng = gin.New()

	eng.Use(gin.Recovery())
	eng.Use(otelgin.Middleware(c.Config.Tracing.ServiceName))
	eng.Use(services.RequestIDMiddleware())
	eng.Use(services.SecurityMiddleware())
	eng.Use(MetricsMiddleware(c.Metrics))

	api := eng.Group("/api")
	api.Use(RateLimitMiddleware(c.RateLimiter))
	{
		userGroup := api.Group("/user")
		{
			userGroup.POST("/register", c.AuthHandler.Register)
			userGroup.POST("/login", c.AuthHandler.Login)

			authorized := userGroup.Group("")
			authorized.Use(c.AuthHandler.AuthMiddleware())
			authorized.POST("/logout", c.AuthHandler.Logout)
			authorized.GET("", c.AuthHandler.SearchUsers)
			authorized.GET("/search", c.AuthHandler.SearchUsers)
			authorized.PATCH("/avatar", c.AuthHandler.UpdateAvatar)
		}

		chatGroup := api.Group("/chat")
		chatGroup.Use(c.AuthHandler.AuthMiddleware())
		{
			chatGroup.POST("", c.ChatHandler.AccessChat)
			chatGroup.GET("", c.ChatHandler.GetUserChats)
			chatGroup.POST("/group", c.ChatHandler.CreateGroupChat)
			chatGroup.PUT("/rename", c.ChatHandler.RenameGroup)
			chatGroup.PUT("/groupAdd", c.ChatHandler.AddToGroup)
			chatGroup.PUT("/groupRemove", c.ChatHandler.RemoveFromGroup)
		}

		messageGroup := api.Group("/message")
		messageGroup.Use(c.AuthHandler.AuthMiddleware())
		{
			messageGroup.POST("", c.MessageHandler.SendMessage)
			messageGroup.GET("/:chatId", c.MessageHandler.GetChatMessages)
			messageGroup.PUT("/:messageId/read", c.MessageHandler.MarkRead)
		}

		api.GET("/ws", c.WebSocketHandler.HandleWebSocket)
	}

	return eng
}

func (c *Container) initLogger() *slog.Logger {
	var logger *slog.Logger
	if c.Config.Environment.Current == "development" {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	} else {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	slog.SetDefault(logger)
	return logger
}

func (c *Container) initRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Addr,
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	})
}

func (c *Container) initServer() *http.Server {
	return &http.Server{
		Addr:         ":" + c.Config.Server.Port,
		ReadTimeout:  time.Duration(c.Config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(c.Config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(c.Config.Server.IdleTimeout) * time.Second,
	}
}

// Close releases everything the container opened. The HTTP server must be
// shut down first.
func (c *Container) Close(ctx context.Context) error {
	c.isShuttingDown.Store(true)

	if c.stopBackground != nil {
		c.stopBackground()
	}

	if c.WsHub != nil {
		c.WsHub.Close()
	}

	var errs []error

	if c.Repository != nil {
		if err := c.Repository.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if c.Publisher != nil {
		if err := c.Publisher.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if c.TracerProvider != nil {
		if err := c.TracerProvider.Shutdown(ctx); err != nil {
			c.Logger.Error("failed to shutdown tracer provider", "error", err)
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
