// Package app wires the LNbits gateway, the directory and payment readers
// and the feed, transfer and allowance services from one Config. The API
// server and the CLI both start from here.
package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/kislikjeka/zapfeed/internal/infra/gateway/lnbits"
	"github.com/kislikjeka/zapfeed/internal/infra/metrics"
	infraRedis "github.com/kislikjeka/zapfeed/internal/infra/redis"
	"github.com/kislikjeka/zapfeed/internal/module/allowance"
	"github.com/kislikjeka/zapfeed/internal/module/feed"
	"github.com/kislikjeka/zapfeed/internal/module/reconcile"
	"github.com/kislikjeka/zapfeed/internal/module/transfer"
	"github.com/kislikjeka/zapfeed/internal/platform/credential"
	"github.com/kislikjeka/zapfeed/internal/platform/directory"
	"github.com/kislikjeka/zapfeed/internal/platform/payment"
	"github.com/kislikjeka/zapfeed/pkg/config"
	"github.com/kislikjeka/zapfeed/pkg/logger"
)

// App holds the wired services
type App struct {
	Config    *config.Config
	Logger    *logger.Logger
	Client    *lnbits.Client
	Gateway   *lnbits.Adapter
	Tokens    *credential.Provider
	Directory *directory.Service
	Payments  *payment.Fetcher
	Engine    *reconcile.Engine
	Feed      *feed.Service
	Transfers *transfer.Service
	Allowance *allowance.Job
	Metrics   *metrics.Metrics

	redis *redis.Client
}

// New builds the service graph. Redis is only contacted when REDIS_URL is
// set; an unreachable Redis is logged and the directory runs uncached.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: log, Metrics: metrics.New()}

	a.Client = lnbits.NewClient(cfg.LNbitsURL, cfg.LNbitsTimeout, log)
	a.Client.SetMetrics(a.Metrics.HTTPClient())
	a.Tokens = credential.NewProvider(a.Client, cfg.LNbitsUsername, cfg.LNbitsPassword, log)
	a.Client.SetTokenSource(a.Tokens)
	a.Gateway = lnbits.NewAdapter(a.Client, log)

	var cache directory.Cache
	if cfg.RedisURL != "" {
		rc, err := newRedisClient(ctx, cfg)
		if err != nil {
			log.Warn("directory cache disabled", "error", err)
		} else {
			a.redis = rc
			if err := a.Metrics.RegisterRedis(rc); err != nil {
				log.Warn("redis metrics not registered", "error", err)
			}
			cache = infraRedis.NewDirectoryCache(rc, cfg.DirectoryCacheTTL, log)
			log.Info("directory cache enabled", "ttl", cfg.DirectoryCacheTTL)
		}
	}

	a.Directory = directory.NewService(a.Gateway, cache, cfg.FetchConcurrency, log)
	a.Payments = payment.NewFetcher(a.Gateway, cfg.LNbitsPageSize, cfg.FetchConcurrency, log)
	a.Engine = reconcile.NewEngine(log)
	a.Feed = feed.NewService(a.Directory, a.Payments, a.Engine, cfg.FeedMaxRecords, log)
	a.Feed.SetMetrics(a.Metrics.Service())
	a.Transfers = transfer.NewService(a.Gateway, a.Directory, log)
	a.Transfers.SetMetrics(a.Metrics.Service())

	jobCfg := &allowance.Config{
		Interval:     cfg.AllowanceInterval,
		AmountSats:   cfg.AllowanceAmountSats,
		HostUserID:   cfg.HostUserID,
		HostWalletID: cfg.HostWalletID,
		Enabled:      cfg.AllowanceEnabled,
	}
	if cfg.AllowanceEnabled {
		if err := jobCfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid allowance configuration: %w", err)
		}
	}
	a.Allowance = allowance.NewJob(jobCfg, a.Directory, a.Transfers, a.Gateway, log)
	a.Allowance.SetMetrics(a.Metrics.Service())

	return a, nil
}

func newRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		// plain host:port, as older deployments configure it
		opts = &redis.Options{Addr: cfg.RedisURL}
	}
	if cfg.RedisPassword != "" {
		opts.Password = cfg.RedisPassword
	}

	rc := redis.NewClient(opts)
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rc, nil
}

// Close releases the Redis connection, if any
func (a *App) Close() error {
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}
