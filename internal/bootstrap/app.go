package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"gopher-auth/internal/config"
	"gopher-auth/internal/logging"
	mysqlClient "gopher-auth/internal/platform/mysql"
	rabbitmqClient "gopher-auth/internal/platform/rabbitmq"
	redisClient "gopher-auth/internal/platform/redis"
	"gopher-auth/internal/repository"
	"gopher-auth/internal/validation"
	"gopher-auth/internal/worker"
)

type App struct {
	Config      *config.Config
	Logger      zerolog.Logger
	Policy      *validation.Policy
	MySQL       *gorm.DB
	Redis       *redis.Client
	MQConn      *amqp.Connection
	EventWorker *worker.AccountEventWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	logger := logging.New(cfg.App.Env, cfg.App.LogLevel).With().Str("app", cfg.App.Name).Logger()

	policy, err := validation.NewPolicy(cfg.Policy)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:    cfg,
		Logger:    logger,
		Policy:    policy,
		StartedAt: time.Now(),
	}

	app.MySQL, err = mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlClient.Migrate(ctx, app.MySQL); err != nil {
		_ = app.Close()
		return nil, err
	}

	app.Redis, err = redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	app.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	eventRepo := repository.NewAccountEventRepository(app.MySQL)
	app.EventWorker = worker.NewAccountEventWorker(app.MQConn, eventRepo, cfg.RabbitMQ.AccountEventQueue, logger)
	if err := app.EventWorker.Start(ctx); err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("start account event worker failed: %w", err)
	}

	return app, nil
}

func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.EventWorker != nil {
		a.EventWorker.Close()
	}
	if a.MQConn != nil && !a.MQConn.IsClosed() {
		if err := a.MQConn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
