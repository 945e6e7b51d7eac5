package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/pathwise/pathwise-backend/internal/data/db"
	"github.com/pathwise/pathwise-backend/internal/data/repos"
	"github.com/pathwise/pathwise-backend/internal/engine"
	"github.com/pathwise/pathwise-backend/internal/handlers"
	"github.com/pathwise/pathwise-backend/internal/middleware"
	"github.com/pathwise/pathwise-backend/internal/platform/envutil"
	"github.com/pathwise/pathwise-backend/internal/platform/logger"
	"github.com/pathwise/pathwise-backend/internal/platform/redislock"
	"github.com/pathwise/pathwise-backend/internal/server"
	"github.com/pathwise/pathwise-backend/internal/services"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := envutil.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	httpPort := envutil.GetEnv("HTTP_PORT", "8080", log)
	paramsFile := envutil.GetEnv("ADAPT_PARAMS_FILE", "", log)
	redisAddr := envutil.GetEnv("REDIS_ADDR", "", log)
	allowOrigins := envutil.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000", log)

	// Engine params
	params, err := engine.LoadParams(paramsFile)
	if err != nil {
		log.Error("Could not load engine params", "error", err)
		os.Exit(1)
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Per-learner write lock
	var locker redislock.Locker
	if redisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: envutil.GetEnv("REDIS_PASSWORD", "", log),
			DB:       envutil.GetEnvAsInt("REDIS_DB", 0, log),
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Error("Redis ping failed", "addr", redisAddr, "error", err)
			os.Exit(1)
		}
		locker = redislock.NewRedisLocker(redisClient, log)
	} else {
		log.Warn("REDIS_ADDR unset, using in-process learner locking")
		locker = redislock.NewLocalLocker()
	}

	// Repos
	log.Info("Setting up Repos from main...")
	profileRepo := repos.NewProfileRepo(thePG, log, params.MasteryHistoryCap)
	ruleRepo := repos.NewRuleRepo(thePG, log)
	eventRepo := repos.NewEventRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	adaptationService := services.NewAdaptationService(thePG, log, params, locker, profileRepo, ruleRepo, eventRepo)

	// Handlers
	log.Info("Setting up handlers from main...")
	adaptationHandler := handlers.NewAdaptationHandler(log, adaptationService)
	authMiddleware := middleware.NewAuthMiddleware(log, jwtSecretKey)

	router := server.NewRouter(server.RouterConfig{
		AdaptationHandler: adaptationHandler,
		AuthMiddleware:    authMiddleware,
		AllowOrigins:      strings.Split(allowOrigins, ","),
	})

	srv := &http.Server{
		Addr:    ":" + httpPort,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("HTTP server listening", "port", httpPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("Shutting down HTTP server...")
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("Server stopped")
}
