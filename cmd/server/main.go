// Package main runs the Aether membership HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aether-community/backend/config"
	"github.com/aether-community/backend/internal/auth"
	"github.com/aether-community/backend/internal/events"
	"github.com/aether-community/backend/internal/knowledge"
	"github.com/aether-community/backend/internal/membership"
	"github.com/aether-community/backend/internal/middleware"
	"github.com/aether-community/backend/internal/notify"
	"github.com/aether-community/backend/internal/oauth"
	"github.com/aether-community/backend/internal/pages"
	"github.com/aether-community/backend/internal/profile"
	"github.com/aether-community/backend/internal/session"
	"github.com/aether-community/backend/internal/store"
	"github.com/aether-community/backend/internal/store/airtable"
	"github.com/aether-community/backend/internal/store/memory"
	"github.com/aether-community/backend/internal/support"
	"github.com/aether-community/backend/internal/updates"
	"github.com/aether-community/backend/pkg/queue"
	"github.com/aether-community/backend/pkg/redis"
	"github.com/aether-community/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if cfg.App.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	st, err := newStore(cfg, logger)
	if err != nil {
		logger.Fatal("store", zap.Error(err))
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = redis.NewClient(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
	}

	metrics := middleware.NewMetrics()

	var transport notify.Transport
	if cfg.Email.UseQueue {
		transport = notify.NewQueueTransport(queue.NewQueue(rdb.Client, logger))
		logger.Info("email delivery queued to worker")
	} else {
		transport = notify.TransportFromConfig(cfg.Email.Transport(), logger)
	}
	sender := notify.NewSender(transport, notify.Address{Email: cfg.Email.FromAddress, Name: cfg.Email.FromName}, logger)
	sender.OnSent(metrics.EmailSent)

	cacheTTL := time.Duration(cfg.Redis.ProfileCacheSec) * time.Second
	var cache profile.Cache
	if rdb != nil {
		cache = profile.NewRedisCache(rdb.Client, cacheTTL)
	} else {
		cache = profile.NewMemoryCache(cacheTTL)
	}

	members := membership.NewService(st, sender, membership.Config{
		BaseURL:         cfg.App.BaseURL,
		VerificationTTL: cfg.VerificationTTL(),
		LoginTTL:        cfg.LoginTTL(),
	}, logger)
	members.SetInvalidator(cache)

	cookies := session.NewCookies(session.NewManager(cfg.Session.Secret, cfg.SessionTTL()), cfg.Session.CookieName, cfg.App.Production())
	google := oauth.NewGoogle(oauth.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.RedirectURL,
	})

	eventSvc := events.NewService(st, sender, logger)
	catalog := knowledge.NewCatalog(st)
	feed := updates.NewFeed(st)
	content, err := pages.LoadContent()
	if err != nil {
		logger.Fatal("page content", zap.Error(err))
	}

	authHandler := auth.NewHandler(members, cookies, cfg.App.BaseURL, logger)
	googleHandler := auth.NewGoogleHandler(authHandler, google)
	profileHandler := profile.NewHandler(members, cache, cookies, logger)
	eventsHandler := events.NewHandler(eventSvc, logger)
	knowledgeHandler := knowledge.NewHandler(catalog, logger)
	updatesHandler := updates.NewHandler(feed, logger)
	supportHandler := support.NewHandler(st, logger)
	pagesHandler := pages.NewHandler(content, eventSvc, catalog, feed, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(metrics.Middleware())
	router.Use(middleware.Session(cookies))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	router.GET("/auth/verify", authHandler.Verify)
	router.GET("/auth/google/login", googleHandler.Login)
	router.GET("/auth/google/callback", googleHandler.Callback)

	api := router.Group("/api")
	{
		api.POST("/join", authHandler.Join)
		api.POST("/login-link", authHandler.LoginLink)
		api.POST("/logout", authHandler.Logout)

		api.GET("/events", eventsHandler.List)
		api.GET("/events/:code", eventsHandler.Get)
		api.POST("/events/:code/rsvp", eventsHandler.RSVP)
		api.GET("/resources", knowledgeHandler.List)
		api.GET("/updates", updatesHandler.List)
		api.POST("/support", supportHandler.Create)

		me := api.Group("/profile", middleware.RequireMember())
		me.GET("", profileHandler.Get)
		me.POST("", profileHandler.Complete)
	}

	pagesHandler.Register(router)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

// newStore returns the Airtable store when credentials are set, otherwise
// an in-memory store seeded with the development catalog.
func newStore(cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	if cfg.Airtable.Enabled() {
		logger.Info("using Airtable record store", zap.String("base_id", cfg.Airtable.BaseID))
		return airtable.New(airtable.Config{
			APIKey:  cfg.Airtable.APIKey,
			BaseID:  cfg.Airtable.BaseID,
			BaseURL: cfg.Airtable.URL,
			Timeout: time.Duration(cfg.Airtable.TimeoutSec) * time.Second,
			Tables: airtable.Tables{
				Members:   cfg.Airtable.MembersTable,
				Events:    cfg.Airtable.EventsTable,
				RSVPs:     cfg.Airtable.RSVPsTable,
				Resources: cfg.Airtable.ResourcesTable,
				Updates:   cfg.Airtable.UpdatesTable,
				Support:   cfg.Airtable.SupportTable,
			},
		}, logger), nil
	}
	if cfg.App.Production() {
		logger.Warn("Airtable is not configured; members will not survive a restart")
	}
	st := memory.New()
	if err := st.Seed(); err != nil {
		return nil, err
	}
	logger.Info("using in-memory record store")
	return st, nil
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
