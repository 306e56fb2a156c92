package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ConnectOptions controla el reintento inicial contra Redis.
type ConnectOptions struct {
	Addr     string
	User     string
	Password string
	DB       int

	ConnectTimeout time.Duration // tiempo total para conectar (ej: 20s)
	RetryInterval  time.Duration // primera espera, crece x2
	MaxWait        time.Duration
	PingTimeout    time.Duration
}

func (o *ConnectOptions) defaults() {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 20 * time.Second
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = time.Second
	}
	if o.MaxWait <= 0 {
		o.MaxWait = 5 * time.Second
	}
	if o.PingTimeout <= 0 {
		o.PingTimeout = 2 * time.Second
	}
}

// Connect abre el cliente y hace ping con backoff exponencial hasta ConnectTimeout.
func Connect(ctx context.Context, opts ConnectOptions, log *zap.Logger) (*redis.Client, error) {
	opts.defaults()
	if log == nil {
		log = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Username:     opts.User,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.PingTimeout,
		ReadTimeout:  opts.PingTimeout,
		WriteTimeout: opts.PingTimeout,
	})

	ctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	wait := opts.RetryInterval
	for attempt := 1; ; attempt++ {
		pingCtx, pingCancel := context.WithTimeout(ctx, opts.PingTimeout)
		err := client.Ping(pingCtx).Err()
		pingCancel()
		if err == nil {
			log.Info("connected to redis", zap.String("addr", opts.Addr), zap.Int("attempts", attempt))
			return client, nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			_ = client.Close()
			return nil, fmt.Errorf("redis unavailable at %s after %d attempts: %w", opts.Addr, attempt, err)
		case <-timer.C:
			log.Warn("redis connection failed, retrying",
				zap.String("addr", opts.Addr), zap.Int("attempt", attempt), zap.Duration("next_retry_in", wait), zap.Error(err))
			wait *= 2
			if wait > opts.MaxWait {
				wait = opts.MaxWait
			}
		}
	}
}
