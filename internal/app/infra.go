package app

import (
	"context"

	"auth-portal/internal/config"
	"auth-portal/internal/db"
	"auth-portal/internal/logger"
	"auth-portal/internal/mailer"
	"auth-portal/internal/redis"
)

type Infra struct {
	DB     *db.DB
	Redis  *redis.Client
	Mailer mailer.Transport
}

func setupInfra(ctx context.Context, cfg config.Config) (*Infra, error) {
	if err := db.Migrate(cfg.DatabaseDSN, db.DirectionUp); err != nil {
		return nil, err
	}

	database, err := db.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	logger.Info("database ready", nil)

	redisClient, err := redis.New(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		_ = database.Close()
		return nil, err
	}

	logger.Info("redis ready", map[string]any{"addr": cfg.RedisAddr})

	var transport mailer.Transport = mailer.Unconfigured{}
	if cfg.SMTP.Host != "" {
		client, err := mailer.NewTransport(cfg.SMTP)
		if err != nil {
			_ = database.Close()
			_ = redisClient.Close()
			return nil, err
		}
		transport = client
		logger.Info("smtp ready", map[string]any{"host": cfg.SMTP.Host, "port": cfg.SMTP.Port})
	} else {
		logger.Warn("SMTP_HOST not set, one-time codes cannot be delivered", nil)
	}

	return &Infra{
		DB:     database,
		Redis:  redisClient,
		Mailer: transport,
	}, nil
}

func (i *Infra) Close() error {
	redisErr := i.Redis.Close()
	if err := i.DB.Close(); err != nil {
		return err
	}
	return redisErr
}
