package api

import (
	"github.com/juicy-forest/server/chat/ws"
	"github.com/juicy-forest/server/pkg/config"
	apperrors "github.com/juicy-forest/server/pkg/errors"
	jwtpkg "github.com/juicy-forest/server/pkg/jwt"
	"github.com/juicy-forest/server/pkg/logger"
	"github.com/juicy-forest/server/pkg/middleware"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// NewRouter assembles the chat service's HTTP surface: liveness, the
// channel directory, and the websocket endpoint.
func NewRouter(cfg *config.Config, handler *Handler, hub *ws.Hub, tokens *jwtpkg.Service, log *logger.Logger) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.RequestIDMiddleware())
	router.Use(logger.Middleware(log))
	router.Use(apperrors.RecoveryWithLogger())
	router.Use(apperrors.ErrorHandler())

	limiterOpts := middleware.DefaultRateLimiterOptions()
	limiterOpts.Limit = rate.Limit(cfg.Security.RateLimit)
	limiterOpts.Burst = cfg.Security.RateLimitBurst
	rateLimiter := middleware.NewRateLimiter(log, limiterOpts)

	router.GET("/", handler.Liveness)

	channels := router.Group("/channel")
	channels.Use(rateLimiter.Middleware())
	{
		channels.GET("", handler.ListChannels)
		channels.POST("", handler.CreateChannel)
	}

	router.GET("/ws", ws.ServeWS(hub, tokens, cfg.Chat.SendBufferSize, log))

	return router
}
