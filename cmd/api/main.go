package main

import (
	"context"
	"log"

	"cloud.google.com/go/firestore"
	fb "firebase.google.com/go/v4"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	"taskmate/internal/adapter/api"
	"taskmate/internal/adapter/api/handler"
	"taskmate/internal/adapter/api/middleware"
	"taskmate/internal/adapter/api/router"
	"taskmate/internal/adapter/repository"
	infrafirebase "taskmate/internal/infrastructure/firebase"
	"taskmate/internal/infrastructure/notification"
	"taskmate/internal/infrastructure/realtime"
	"taskmate/internal/infrastructure/websocket"
	"taskmate/internal/usecase"
	"taskmate/pkg/config"
	"taskmate/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	var opts []option.ClientOption
	if cfg.ServiceAccountJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.ServiceAccountJSON)))
	} else if cfg.ServiceAccountPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.ServiceAccountPath))
	}

	app, err := fb.NewApp(ctx, &fb.Config{ProjectID: cfg.FirebaseProject}, opts...)
	if err != nil {
		log.Fatalf("Failed to initialize firebase app: %v", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize auth client: %v", err)
	}

	messagingClient, err := app.Messaging(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize messaging client: %v", err)
	}

	firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
	if err != nil {
		log.Fatalf("Failed to initialize firestore client: %v", err)
	}
	defer firestoreClient.Close()

	chatRepo := repository.NewFirestoreChatRepository(firestoreClient)
	messageRepo := repository.NewFirestoreMessageRepository(firestoreClient)
	userRepo := repository.NewFirestoreUserRepository(firestoreClient)
	taskRepo := repository.NewFirestoreTaskRepository(firestoreClient)

	authProvider := infrafirebase.NewAuthProvider(authClient)
	feedSource := realtime.NewFirestoreFeedSource(firestoreClient, cfg.MessageFeedBuffer)
	notifier := notification.NewFCMNotifier(messagingClient, userRepo)

	wsManager := websocket.NewManager(userRepo)
	wsManager.Start(ctx)

	chatUseCase := usecase.NewChatUseCase(chatRepo, messageRepo, userRepo, taskRepo, wsManager, notifier)
	wsManager.Bind(chatUseCase)

	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	authMW := middleware.NewAuthMiddleware(authProvider)

	chatHandler := handler.NewChatHandler(chatUseCase)
	taskHandler := handler.NewTaskHandler(chatUseCase)
	wsHandler := handler.NewWebSocketHandler(wsManager, authProvider, feedSource, messageRepo, userRepo)
	healthHandler := handler.NewHealthHandler()

	router.SetupChatRoutes(e, chatHandler, authMW)
	router.SetupTaskRoutes(e, taskHandler, authMW)
	router.SetupWebSocketRoutes(e, wsHandler)
	router.SetupHealthRoutes(e, healthHandler)

	logger.Info("Starting server on port %s", cfg.ServerPort)
	if err := e.Start(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
