package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"hamsafar_backend/database"
	"hamsafar_backend/internal/auth"
	"hamsafar_backend/internal/config"
	"hamsafar_backend/internal/handlers"
	"hamsafar_backend/internal/logger"
	"hamsafar_backend/internal/middleware"
	"hamsafar_backend/internal/routes"
	"hamsafar_backend/internal/services"
	"hamsafar_backend/internal/validator"
	"hamsafar_backend/pkg/apperrors"
	"hamsafar_backend/ws"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Version проставляется при сборке через -ldflags.
var Version = "dev"

// App - собранный сервер: роутер, realtime-хаб и сервисы.
type App struct {
	cfg       *config.Config
	db        *gorm.DB
	Router    *gin.Engine
	WSManager *ws.WebSocketManager
	Services  *services.ServiceContainer
}

// Run подключается к БД и обслуживает запросы до отмены ctx.
func Run(ctx context.Context, cfg *config.Config) error {
	logger.Info("Connecting to database...", "driver", cfg.Database.Driver)
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			logger.Warn("Failed to close database", "error", err)
		}
	}()
	logger.Info("Database connected")

	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			return err
		}
		logger.Info("Database schema migrated")
	}

	return New(cfg, db).Serve(ctx)
}

// New собирает приложение поверх открытой БД. Хаб запускает Serve.
func New(cfg *config.Config, db *gorm.DB) *App {
	apperrors.SetDebug(cfg.IsDevelopment())
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	wsManager := ws.NewWebSocketManager(ws.OptionsFromConfig(cfg))
	serviceContainer := services.NewServiceContainer(wsManager)

	return &App{
		cfg:       cfg,
		db:        db,
		Router:    SetupRouter(cfg, db, serviceContainer, wsManager),
		WSManager: wsManager,
		Services:  serviceContainer,
	}
}

func SetupRouter(cfg *config.Config, db *gorm.DB, serviceContainer *services.ServiceContainer, wsManager *ws.WebSocketManager) *gin.Engine {
	customValidator := validator.New()
	verifier := auth.NewVerifier(cfg.JWT.Secret, cfg.JWT.Issuer)

	appHandlers := initializeHandlers(serviceContainer, customValidator)
	wsHandler := ws.NewWebSocketHandler(wsManager, serviceContainer.ChatService, customValidator, cfg.Server.AllowedOrigins)

	ginRouter := initializeGinRouter(cfg, db)
	routes.RegisterRoutes(ginRouter, appHandlers, wsHandler, verifier)

	return ginRouter
}

func initializeHandlers(serviceContainer *services.ServiceContainer, v *validator.Validator) *handlers.AppHandlers {
	baseHandler := handlers.NewBaseHandler(v)

	return &handlers.AppHandlers{
		ChatHandler:   handlers.NewChatHandler(baseHandler, serviceContainer.ChatService),
		HealthHandler: handlers.NewHealthHandler(baseHandler, Version),
	}
}

func initializeGinRouter(cfg *config.Config, db *gorm.DB) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))
	router.Use(middleware.DBMiddleware(db))

	router.NoRoute(func(c *gin.Context) {
		apperrors.HandleError(c, apperrors.ErrNotFound(errors.New("route not found")))
	})
	return router
}

// Serve запускает хаб и HTTP-сервер. При отмене ctx сервер перестает принимать
// соединения, хаб закрывает сокеты, активные запросы получают ShutdownTimeout.
func (a *App) Serve(ctx context.Context) error {
	server := &http.Server{
		Addr:              a.cfg.Address(),
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.WSManager.Run(gctx)
		return nil
	})

	g.Go(func() error {
		logger.Info("Server starting", "address", server.Addr, "env", a.cfg.Server.Env, "version", Version)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}
