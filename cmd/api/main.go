package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"meetup/internal/adapter/api"
	"meetup/internal/adapter/api/handler"
	apimiddleware "meetup/internal/adapter/api/middleware"
	"meetup/internal/adapter/api/router"
	"meetup/internal/adapter/repository"
	domainrepo "meetup/internal/domain/repository"
	"meetup/internal/infrastructure/firebase"
	natsinfra "meetup/internal/infrastructure/nats"
	"meetup/internal/infrastructure/push"
	"meetup/internal/infrastructure/ratelimit"
	"meetup/internal/infrastructure/treestore"
	"meetup/internal/infrastructure/websocket"
	"meetup/internal/usecase"
	"meetup/pkg/config"
	"meetup/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration: %v", err)
		return
	}
	logger.Configure(cfg.LogLevel, cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, verifier, closeStore, err := setupStore(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize store: %v", err)
		return
	}
	defer closeStore()

	activityRepo := repository.NewTreeActivityRepository(store)
	chatRepo := repository.NewTreeChatRepository(store)
	reviewRepo := repository.NewTreeReviewRepository(store)
	userRepo := repository.NewTreeUserRepository(store)
	notificationRepo := repository.NewTreeNotificationRepository(store)

	var pushSender usecase.PushSender
	if cfg.ExpoPushEnabled {
		pushSender = push.NewExpoSender()
		logger.Info("Expo push delivery enabled")
	}

	notificationUseCase := usecase.NewNotificationUseCase(notificationRepo, userRepo, pushSender)
	userUseCase := usecase.NewUserUseCase(userRepo)
	friendUseCase := usecase.NewFriendUseCase(userRepo, notificationUseCase)
	chatUseCase := usecase.NewChatUseCase(chatRepo, userRepo)
	reviewUseCase := usecase.NewReviewUseCase(reviewRepo, userRepo, notificationUseCase)
	membershipUseCase := usecase.NewMembershipUseCase(activityRepo)
	activityUseCase := usecase.NewActivityUseCase(activityRepo, userRepo, membershipUseCase, chatUseCase, reviewUseCase, notificationUseCase)

	relay := usecase.NewEventRelay(store)
	wsManager := websocket.NewManager(chatUseCase, relay)
	wsManager.Start(ctx)
	relay.AddPublisher(wsManager)

	var natsClient *natsinfra.Client
	if cfg.NATSURL != "" {
		natsClient, err = natsinfra.NewClient(cfg.NATSURL)
		if err != nil {
			logger.Error("Failed to connect to NATS: %v", err)
			return
		}
		defer natsClient.Close()
		relay.AddPublisher(natsinfra.NewEventPublisher(natsClient.Conn(), cfg.NATSSubjectPrefix))
		logger.Info("Publishing events to NATS under %s", cfg.NATSSubjectPrefix)
	}

	go func() {
		if err := relay.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("Event relay stopped: %v", err)
		}
	}()

	janitor := usecase.NewActivityJanitor(activityRepo, activityUseCase, cfg.ActivityEndGrace)
	janitor.Start(ctx, cfg.CleanupInterval)

	limiter := ratelimit.NewRateLimiter(ratelimit.DefaultRules(cfg.ChatRatePerSecond, cfg.ChatRateBurst))
	limiter.StartCleanupRoutine(ctx.Done())

	handler.Setup(activityUseCase, chatUseCase, reviewUseCase, userUseCase, friendUseCase, notificationUseCase)
	if natsClient != nil {
		handler.SetupHealthHandler(store, cfg.StoreBackend, natsClient)
	} else {
		handler.SetupHealthHandler(store, cfg.StoreBackend, nil)
	}

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(verifier)
	wsHandler := handler.NewWebSocketHandler(ctx, wsManager, authMiddleware)

	router.Setup(e, authMiddleware, limiter)
	router.SetupWebSocketRouter(e, wsHandler)

	go func() {
		logger.Info("Starting server on port %s (store: %s)...", cfg.ServerPort, cfg.StoreBackend)
		if err := e.Start(":" + cfg.ServerPort); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error: %v", err)
	}
	logger.Info("Server stopped")
}

// setupStore builds the configured store backend and the token verifier.
// Development against the in-memory store accepts "dev:<uid>" tokens and
// needs no Firebase project.
func setupStore(ctx context.Context, cfg *config.Config) (domainrepo.Store, usecase.TokenVerifier, func(), error) {
	noop := func() {}

	if cfg.StoreBackend == config.BackendMemory && cfg.IsDevelopment() {
		logger.Warn("Using in-memory store with development tokens; data is lost on restart")
		return treestore.NewMemory(), firebase.DevTokenVerifier{}, noop, nil
	}

	opt, err := firebase.ClientOption(cfg)
	if err != nil {
		return nil, nil, noop, err
	}
	app, err := firebase.NewApp(ctx, cfg, opt)
	if err != nil {
		return nil, nil, noop, err
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, nil, noop, err
	}
	verifier := firebase.NewFirebaseAuthClient(authClient)

	switch cfg.StoreBackend {
	case config.BackendRTDB:
		dbClient, err := app.Database(ctx)
		if err != nil {
			return nil, nil, noop, err
		}
		return treestore.NewRTDB(dbClient, cfg.RTDBPollInterval), verifier, noop, nil

	case config.BackendFirestore:
		firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opt)
		if err != nil {
			return nil, nil, noop, err
		}
		return treestore.NewFirestore(firestoreClient), verifier, func() { firestoreClient.Close() }, nil

	default:
		return treestore.NewMemory(), verifier, noop, nil
	}
}
