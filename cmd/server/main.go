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

	"compass/internal/config"
	"compass/internal/handler"
	"compass/internal/keywords"
	"compass/internal/logger"
	"compass/internal/model"
	"compass/internal/repository"
	"compass/internal/service"
	"compass/internal/validation"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer log.Sync()

	log.Info("starting filter resolver",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)
	for _, w := range cfg.Warnings {
		log.Warn(w)
	}

	gin.SetMode(cfg.Server.GinMode)

	whitelist := keywords.Default()
	validator, err := validation.NewFilterValidator(cfg.Resolver.DefaultLocation, whitelist)
	if err != nil {
		log.Fatal("failed to build filter validator", zap.Error(err))
	}

	var (
		gateway service.Gateway
		lister  service.ModelLister
	)
	if cfg.LLM.Enabled {
		gw := service.NewOpenRouterGateway(&cfg.LLM, log)
		gateway, lister = gw, gw
		log.Info("language model gateway initialized",
			zap.String("api_base", cfg.LLM.APIBase),
			zap.String("model", cfg.LLM.Model),
			zap.Float64("temperature", cfg.LLM.Temperature),
			zap.Int("max_tokens", cfg.LLM.MaxTokens),
			zap.Duration("timeout", cfg.LLMTimeout()),
		)
	} else {
		log.Warn("OPENROUTER_API_KEY not set, only local commands such as \"clear all filters\" will resolve")
	}

	resolver := service.NewResolver(gateway, whitelist, cfg.Resolver.DefaultLocation, log)

	var turnLog service.TurnLog
	if cfg.PostgreSQL.Enabled {
		pg, err := repository.NewPostgresTurnLog(
			cfg.GetPostgreSQLDSN(),
			cfg.PostgreSQL.MaxConnections,
			cfg.PostgreSQL.MaxIdleConnections,
		)
		if err != nil {
			log.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pg.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = pg.EnsureSchema(ctx)
		cancel()
		if err != nil {
			log.Fatal("failed to prepare turn log", zap.Error(err))
		}
		turnLog = pg
		log.Info("connected to PostgreSQL turn log")
	}

	var sessions *service.SessionService
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		store := repository.NewRedisSessionStore(client, cfg.Redis.SessionTTL)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := store.Ping(ctx)
		cancel()
		if err != nil {
			log.Fatal("failed to connect to redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		sessions = service.NewSessionService(store, turnLog, resolver, validator, log)
		defer sessions.Wait()
		log.Info("connected to redis session store", zap.Duration("session_ttl", cfg.Redis.SessionTTL))
	} else {
		log.Warn("REDIS_ADDR not set, session endpoints are disabled")
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(cfg.Server.AllowedOrigins, ",")
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":           "healthy",
			"service":          "filter-resolver",
			"version":          Version,
			"llm_enabled":      cfg.LLM.Enabled,
			"sessions_enabled": sessions != nil,
			"turn_log_enabled": turnLog != nil,
		})
	})
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	promptHandler := handler.NewPromptHandler(resolver, validator, cfg.LLMTimeout(), log)
	modelsHandler := handler.NewModelsHandler(lister, log)

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/parse-prompt", promptHandler.ParsePrompt)
		apiV1.GET("/models", modelsHandler.List)

		if sessions != nil {
			sessionHandler := handler.NewSessionHandler(sessions, validator, cfg.LLMTimeout(), log)
			apiV1.POST("/sessions", sessionHandler.Start)
			apiV1.GET("/sessions/:id", sessionHandler.Get)
			apiV1.POST("/sessions/:id/messages", sessionHandler.Message)
			apiV1.GET("/sessions/:id/turns", sessionHandler.Turns)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "Not found"})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("starting server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.LLMTimeout()+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
