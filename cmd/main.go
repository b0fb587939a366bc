package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"matchchat/backend/internal/api/handler"
	"matchchat/backend/internal/auth"
	"matchchat/backend/internal/chat"
	"matchchat/backend/internal/chathub"
	"matchchat/backend/internal/compat"
	"matchchat/backend/internal/config"
	"matchchat/backend/internal/localization"
	"matchchat/backend/internal/logger"
	"matchchat/backend/internal/match"
	"matchchat/backend/internal/moderation"
	"matchchat/backend/internal/notify"
	"matchchat/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupStorage picks the durable store and the broadcast bus. Empty
// connection settings fall back to in-process implementations.
func setupStorage(ctx context.Context, cfg config.Config) (storage.Storage, storage.Bus, error) {
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			return nil, nil, errors.Wrap(err, "connect redis")
		}
	}

	var bus storage.Bus = storage.NewLocalBus()
	if rdb != nil {
		bus = storage.NewRedisBus(rdb)
	}

	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using the in-memory store")
		return storage.NewMemory(), bus, nil
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		return nil, nil, errors.Wrap(err, "connect postgres")
	}
	if rdb == nil {
		logger.Warn("REDIS_ADDR not set, notification markers use postgres and broadcast stays local")
	}

	s := storage.NewStorageService(db, rdb)
	if err := s.AutoMigrate(); err != nil {
		return nil, nil, errors.Wrap(err, "run migrations")
	}
	logger.Info("database connections established, migrations complete")
	return s, bus, nil
}

func setupNotifier(cfg config.Config) (notify.Notifier, func(), error) {
	l, err := localization.New()
	if err != nil {
		return nil, nil, err
	}
	if cfg.NATSURL == "" {
		return &notify.Titled{Next: notify.LogNotifier{}, Localizer: l}, func() {}, nil
	}
	nn, err := notify.NewNATSNotifier(cfg.NATSURL, cfg.NATSSubjectPrefix)
	if err != nil {
		return nil, nil, err
	}
	return &notify.Titled{Next: nn, Localizer: l}, nn.Close, nil
}

func main() {
	cfg, envLoaded := config.Load()
	logger.SetLevel(cfg.LogLevel)
	defer logger.Sync()

	if !envLoaded {
		logger.Warn("no .env file loaded, using the process environment")
	}
	if cfg.JWTSecret == "" {
		logger.Log.Fatal("JWT_SECRET is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, bus, err := setupStorage(ctx, cfg)
	if err != nil {
		logger.Log.Fatal("failed to initialize storage", zap.Error(err))
	}
	notifier, closeNotifier, err := setupNotifier(cfg)
	if err != nil {
		logger.Log.Fatal("failed to initialize notifications", zap.Error(err))
	}
	defer closeNotifier()

	matches := match.NewService(store, compat.NewScorer(nil), notifier)
	chatSvc := chat.NewService(store, matches, notifier)
	hub := chathub.NewManagerService(chatSvc, bus)
	verifier := auth.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	handler.NewHandler(hub, matches, chatSvc, moderation.NewService(store), verifier).RegisterRoutes(r)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(r)

	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        corsHandler,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(gCtx)
	})
	g.Go(func() error {
		logger.Info("starting HTTP server", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}
