package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	api "alarmbell-backend/cmd/api"
	alarmDelivery "alarmbell-backend/internal/alarm/delivery"
	alarmdomain "alarmbell-backend/internal/alarm/domain"
	alarmRepo "alarmbell-backend/internal/alarm/repository"
	authdomain "alarmbell-backend/internal/auth/domain"
	authRepo "alarmbell-backend/internal/auth/repository"
	authUsecase "alarmbell-backend/internal/auth/usecase"
	"alarmbell-backend/internal/notification"
	notificationDelivery "alarmbell-backend/internal/notification/delivery"
	"alarmbell-backend/internal/notification/scheduler"
	"alarmbell-backend/pkg/config"
	"alarmbell-backend/pkg/database"
	"alarmbell-backend/pkg/fcm"
	"alarmbell-backend/pkg/logger"
	"alarmbell-backend/pkg/queue"

	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logr := logger.NewWithWriter(os.Stdout, logger.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(&authdomain.UserProfile{}, &alarmdomain.Alarm{}, &alarmdomain.Group{}, &alarmdomain.GroupMember{}, &alarmdomain.PendingJoinRequest{}, &alarmdomain.ActivityEvent{}); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	userRepo := authRepo.NewUserRepository(db)
	pushTokenRepo := authRepo.NewPushTokenRepository(db)
	groupRepo := alarmRepo.NewGormGroupRepository(db)
	alarmRepository := alarmRepo.NewGormAlarmRepository(db, groupRepo)

	authUsecaseInstance := authUsecase.NewAuthUsecase(pushTokenRepo, cfg.JWTSecret)
	syncHandler := alarmDelivery.NewSyncHandler(alarmRepository, cfg.SyncInterval, logr)

	// Stale token sweep runs with or without push delivery
	sweeper := scheduler.NewTokenSweeper(pushTokenRepo, cfg.TokenSweepCron, cfg.TokenMaxAge, logr)
	if err := sweeper.Start(); err != nil {
		logr.Warn("[TokenSweeper] Disabled: %v", err)
	}
	defer sweeper.Stop()

	// Push delivery is optional; without FCM the rest of the API keeps working
	var eventHandler *notificationDelivery.EventHandler
	fcmClient, err := newFCMClient(ctx, cfg)
	if err != nil {
		logr.Warn("[FCM] Push notifications disabled: %v", err)
	} else {
		intake := newIntake(ctx, cfg, logr, fcmClient, pushTokenRepo, groupRepo, userRepo)
		if cfg.InternalEventToken != "" {
			eventHandler = notificationDelivery.NewEventHandler(intake, cfg.InternalEventToken)
		}
		startEventSource(ctx, cfg, logr, intake)
	}

	// Initialize HTTP handler
	handler := api.NewHandler(authUsecaseInstance, syncHandler, eventHandler, cfg, logr)

	if err := handler.Start(ctx, ":"+cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

func newFCMClient(ctx context.Context, cfg *config.Config) (*fcm.Client, error) {
	if cfg.FirebaseCredentials == "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		return nil, config.ErrMissing
	}
	return fcm.NewClient(ctx, cfg.FirebaseCredentials)
}

func newIntake(ctx context.Context, cfg *config.Config, logr *logger.Logger, fcmClient *fcm.Client, tokens authRepo.PushTokenRepository, groups alarmRepo.GroupRepository, users authRepo.UserRepository) *notification.Intake {
	resolver := notification.NewResolver(tokens, cfg.FanoutConcurrency, logr)
	invalidator := notification.NewInvalidator(tokens, logr)
	sender := notification.NewSender(fcmClient, invalidator, cfg.AppOrigin, logr)
	dispatcher := notification.NewDispatcher(groups, resolver, sender, cfg.Location(), cfg.FanoutConcurrency, logr).
		WithProfiles(users)

	var dedup notification.Deduper = notification.NewMemoryDeduper(cfg.EventDedupTTL)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logr.Warn("[Redis] Unreachable at %s, using in-memory event dedup: %v", cfg.RedisAddr, err)
		} else {
			dedup = notification.NewRedisDeduper(redisClient, cfg.EventDedupTTL)
			logr.Info("[Redis] Event dedup enabled at %s", cfg.RedisAddr)
		}
	}

	return notification.NewIntake(dispatcher, dedup, logr)
}

func startEventSource(ctx context.Context, cfg *config.Config, logr *logger.Logger, intake *notification.Intake) {
	switch cfg.EventSource {
	case config.EventSourcePubSub:
		if cfg.GoogleProjectID == "" {
			logr.Warn("[PubSub] GOOGLE_PROJECT_ID not configured, record event listener disabled")
			return
		}
		svc, err := notification.NewService(ctx, cfg.GoogleProjectID, cfg.PubSubTopic, cfg.Subscription(), cfg.GoogleCredentials, intake, logr)
		if err != nil {
			logr.Error("[PubSub] Failed to initialize record event listener: %v", err)
			return
		}
		go func() {
			defer svc.Close()
			svc.Start(ctx)
		}()

	case config.EventSourceRabbitMQ:
		client, err := queue.NewRabbitMQClient(cfg.RabbitMQURL, logr)
		if err != nil {
			logr.Error("[RABBITMQ] Record event consumer disabled: %v", err)
			return
		}
		go func() {
			defer client.Close()
			err := client.ConsumeRecordEvents(ctx, func(ctx context.Context, body []byte) error {
				_, err := intake.ProcessRaw(ctx, body)
				return err
			})
			if err != nil && ctx.Err() == nil {
				logr.Error("[RABBITMQ] Consumer stopped: %v", err)
			}
		}()

	default:
		if cfg.InternalEventToken == "" {
			logr.Warn("[Intake] INTERNAL_EVENT_TOKEN not set, POST /api/internal/events disabled")
		}
	}
}
