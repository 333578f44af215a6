package chat

import (
	"context"
	"net/http"
	"time"

	"github.com/juicy-forest/server/chat/api"
	"github.com/juicy-forest/server/chat/models"
	"github.com/juicy-forest/server/chat/repository"
	"github.com/juicy-forest/server/chat/service"
	"github.com/juicy-forest/server/chat/ws"
	"github.com/juicy-forest/server/pkg/cache"
	"github.com/juicy-forest/server/pkg/config"
	"github.com/juicy-forest/server/pkg/health"
	jwtpkg "github.com/juicy-forest/server/pkg/jwt"
	"github.com/juicy-forest/server/pkg/logger"
	"github.com/juicy-forest/server/pkg/secrets"
	sharedredis "github.com/juicy-forest/server/shared/redis"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// App owns the chat service's wiring: database, caches, hub, and HTTP server
type App struct {
	cfg    *config.Config
	log    *logger.Logger
	db     *gorm.DB
	redis  *sharedredis.Client
	hub    *ws.Hub
	health *health.Checker
	server *http.Server
}

// NewApp assembles the chat service from configuration. Redis is optional;
// when it is disabled or unreachable the history cache degrades to
// database-only reads.
func NewApp(cfg *config.Config, log *logger.Logger) (*App, error) {
	db, err := config.NewDB()
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&models.Channel{}, &models.Message{}); err != nil {
		return nil, err
	}

	var redisClient *sharedredis.Client
	if cfg.Redis.Enabled {
		redisClient = sharedredis.NewClient(cfg.Redis.Addr, cfg.Redis.DB)

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx); err != nil {
			log.Warn("redis unreachable, history cache disabled", "addr", cfg.Redis.Addr, "error", err.Error())
			redisClient.Close()
			redisClient = nil
		}
		cancel()
	}

	var history *service.HistoryCache
	if redisClient != nil {
		history = service.NewHistoryCache(redisClient, cfg.Chat.HistoryCacheTTL, log)
	}

	var listCache *cache.Cache
	if cfg.Cache.Enabled {
		listCache = cache.NewCache(cache.Options{
			DefaultExpiration: cfg.Cache.TTL,
			CleanupInterval:   cfg.Cache.PurgeWindow,
			MaxItems:          cfg.Cache.MaxSize,
		})
	}

	messageRepo := repository.NewGormMessageRepository(db)
	channelRepo := repository.NewGormChannelRepository(db)

	messages := service.NewMessageService(messageRepo, history, cfg.Chat.MaxMessageLength)
	channels := service.NewChannelService(channelRepo, listCache)

	hub := ws.NewHub(messages, channels, log)

	jwtSecret := secrets.GetSecretWithDefault(context.Background(), "JWT_SECRET", cfg.JWT.Secret)
	tokens := jwtpkg.NewService(jwtSecret, cfg.JWT.ExpiryHours)

	handler := api.NewHandler(channels, log)
	router := api.NewRouter(cfg, handler, hub, tokens, log)

	checker := health.NewChecker(log, 30*time.Second)
	checker.RegisterDatabaseCheck(func() error {
		return config.TestConnection(db)
	})
	if redisClient != nil {
		checker.RegisterRedisCheck(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisClient.Ping(ctx)
		})
	}
	router.GET("/health", gin.WrapF(checker.HTTPHandler()))

	return &App{
		cfg:    cfg,
		log:    log,
		db:     db,
		redis:  redisClient,
		hub:    hub,
		health: checker,
		server: &http.Server{
			Addr:         ":" + cfg.Server.Port,
			Handler:      router,
			ReadTimeout:  cfg.Server.Timeout,
			WriteTimeout: cfg.Server.Timeout,
		},
	}, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (a *App) Run(ctx context.Context) error {
	a.health.Start()

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("chat service listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.log.LogError(err, "chat service shutdown failed")
	}
	if a.redis != nil {
		a.redis.Close()
	}

	a.log.Info("chat service stopped")
	return nil
}
