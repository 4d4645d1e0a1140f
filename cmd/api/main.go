package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/huddle-api/internal/config"
	"github.com/noah-isme/huddle-api/internal/database"
	"github.com/noah-isme/huddle-api/internal/handler"
	"github.com/noah-isme/huddle-api/internal/middleware"
	"github.com/noah-isme/huddle-api/internal/repository"
	"github.com/noah-isme/huddle-api/internal/router"
	"github.com/noah-isme/huddle-api/internal/service"
	"github.com/noah-isme/huddle-api/pkg/ai"
	cloud "github.com/noah-isme/huddle-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()
	if cfg.AppEnv == "development" {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	db, err := database.Connect(cfg.DatabaseURL, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("%v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
	} else {
		logger.Warn().Msg("redis not configured; unread counts are uncached and live events stay on this node")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
	}

	var storage service.FileStorage
	if cfg.UploadsEnabled() {
		cloudStorage, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		storage = cloudStorage
	} else {
		logger.Warn().Msg("cloudinary not configured; file uploads are disabled")
	}

	assistant := newAssistant(cfg, logger)

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	channelRepo := repository.NewChannelRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	reactionRepo := repository.NewReactionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	uploadRepo := repository.NewUploadRepository(db)
	searchRepo := repository.NewSearchRepository(db)

	liveService := service.NewLiveService(redisClient, cfg.RealtimeChannel, natsConn, logger)
	notificationService := service.NewNotificationService(notificationRepo, redisClient, cfg.RealtimeChannel, natsConn, validate, logger)
	feedService := service.NewFeedService(messageRepo, userRepo, reactionRepo, channelRepo, conversationRepo, validate, cfg.FeedPageLimit, logger)
	unreadService := service.NewUnreadService(messageRepo, channelRepo, conversationRepo, redisClient, cfg.UnreadCacheTTL, logger)
	messageService := service.NewMessageService(service.MessageServiceDeps{
		Messages:      messageRepo,
		Channels:      channelRepo,
		Conversations: conversationRepo,
		Enricher:      feedService,
		Unread:        unreadService,
		Live:          liveService,
		Notifications: notificationService,
	}, validate, logger)
	reactionService := service.NewReactionService(reactionRepo, messageRepo, channelRepo, conversationRepo, validate, logger)
	channelService := service.NewChannelService(channelRepo, userRepo, conversationRepo, liveService, validate, logger)
	conversationService := service.NewConversationService(conversationRepo, messageRepo, userRepo, feedService, validate, logger)
	userService := service.NewUserService(userRepo, validate, logger)
	searchService := service.NewSearchService(searchRepo, feedService, validate, logger)
	assistantService := service.NewAssistantService(assistant, messageRepo, channelRepo, conversationRepo, feedService, validate, logger)
	uploadService := service.NewUploadService(storage, uploadRepo, cfg.UploadMaxMB, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	liveService.Start(ctx)
	notificationService.Start(ctx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.UploadMaxMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: logger, AllowOrigins: cfg.CORSOrigins})
	router.Register(app, cfg, router.Dependencies{
		MessageHandler:      handler.NewMessageHandler(feedService, messageService, reactionService, logger),
		ChannelHandler:      handler.NewChannelHandler(channelService, unreadService, logger),
		ConversationHandler: handler.NewConversationHandler(conversationService, unreadService, logger),
		UserHandler:         handler.NewUserHandler(userService, logger),
		UnreadHandler:       handler.NewUnreadHandler(unreadService, logger),
		SearchHandler:       handler.NewSearchHandler(searchService, logger),
		AIHandler:           handler.NewAIHandler(assistantService, logger),
		UploadHandler:       handler.NewUploadHandler(uploadService, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger, cfg.SSEKeepAlive),
		LiveHandler:         handler.NewLiveHandler(liveService, feedService, logger),
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
		IdentityMiddleware:  middleware.SyncUser(userService.Sync, logger),
		WriteLimiter:        middleware.RateLimit("writes", cfg.SendRatePerSecond, time.Second),
	})

	go func() {
		logger.Info().Str("address", cfg.HTTPAddress()).Msg("starting http server")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, logger)

	cancel()
	if natsConn != nil {
		if err := natsConn.Drain(); err != nil {
			logger.Warn().Err(err).Msg("failed to drain nats connection")
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close redis client")
		}
	}
	if err := database.Close(db); err != nil {
		logger.Warn().Err(err).Msg("failed to close database")
	}
}

func newAssistant(cfg config.Config, logger zerolog.Logger) ai.Assistant {
	if cfg.AIProvider != "openai" {
		logger.Warn().Str("provider", cfg.AIProvider).Msg("unsupported ai provider; assistant disabled")
		return ai.Disabled{}
	}
	if cfg.OpenAIAPIKey == "" {
		logger.Info().Msg("openai api key not set; assistant disabled")
		return ai.Disabled{}
	}

	assistant, err := ai.NewOpenAIAssistant(ai.OpenAIConfig{
		APIKey: cfg.OpenAIAPIKey,
		Model:  cfg.AIModel,
		Logger: logger,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("failed to initialise openai assistant; assistant disabled")
		return ai.Disabled{}
	}
	return assistant
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
