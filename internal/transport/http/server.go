package http

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	appsvc "gopher-auth/internal/app"
	"gopher-auth/internal/bootstrap"
	"gopher-auth/internal/cache"
	"gopher-auth/internal/config"
	"gopher-auth/internal/logging"
	"gopher-auth/internal/platform/rabbitmq"
	"gopher-auth/internal/repository"
	"gopher-auth/internal/transport/http/handler"
	"gopher-auth/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) (*gin.Engine, error) {
	cfg := app.Config
	router, err := newEngine(cfg, app.Logger)
	if err != nil {
		return nil, err
	}

	healthHandler := handler.NewHealthHandler(cfg.App.Name, cfg.App.Env, app.StartedAt, map[string]handler.HealthCheck{
		"mysql": func(ctx context.Context) error {
			sqlDB, err := app.MySQL.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"redis": func(ctx context.Context) error {
			return app.Redis.Ping(ctx).Err()
		},
		"rabbitmq": func(context.Context) error {
			if app.MQConn == nil || app.MQConn.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		},
	})
	router.GET("/healthz", healthHandler.Check)

	userRepo := repository.NewUserRepository(app.MySQL)
	profileCache := cache.NewProfileCache(app.Redis, time.Duration(cfg.Auth.ProfileCacheTTLSeconds)*time.Second)
	denylist := cache.NewTokenDenylist(app.Redis)
	publisher := rabbitmq.NewEventPublisher(app.MQConn, cfg.RabbitMQ.AccountEventQueue)
	authService := appsvc.NewAuthService(
		userRepo,
		app.Policy,
		profileCache,
		denylist,
		publisher,
		appsvc.AuthServiceConfig{
			JWTSecret:     cfg.Auth.JWTSecret,
			JWTExpiration: time.Duration(cfg.Auth.JWTExpireMinute) * time.Minute,
			BcryptCost:    cfg.Auth.BcryptCost,
		},
		app.Logger,
	)
	authHandler := handler.NewAuthHandler(authService, handler.CookieConfig{
		Name:   cfg.Auth.CookieName,
		Secure: cfg.Auth.CookieSecure,
	}, app.Logger)

	requireAuth := middleware.AuthJWT(cfg.Auth.JWTSecret, cfg.Auth.CookieName, denylist, app.Logger)
	throttle := middleware.NewIPRateLimiter(cfg.Auth.LoginRatePerMinute, cfg.Auth.LoginBurst).Middleware()

	authGroup := router.Group("/api/auth")
	authGroup.POST("/signup", throttle, authHandler.Signup)
	authGroup.POST("/login", throttle, authHandler.Login)
	authGroup.POST("/logout", authHandler.Logout)
	authGroup.GET("/check", requireAuth, authHandler.Check)
	authGroup.DELETE("/delete", requireAuth, authHandler.DeleteAccount)

	return router, nil
}

// newEngine builds the gin engine with the global middleware. X-Forwarded-For
// is honored only from app.trusted_proxies; otherwise ClientIP is the peer address.
func newEngine(cfg *config.Config, logger zerolog.Logger) (*gin.Engine, error) {
	gin.SetMode(cfg.App.GinMode)
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.TrustedProxies()); err != nil {
		return nil, fmt.Errorf("set trusted proxies failed: %w", err)
	}
	router.Use(logging.RequestLogger(logger), gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins()
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))
	return router, nil
}
