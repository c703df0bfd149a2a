package cli

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/chaos-io/yeezyframe/cache"
	"github.com/chaos-io/yeezyframe/config"
	"github.com/chaos-io/yeezyframe/metrics"
	"github.com/chaos-io/yeezyframe/rembg"
	"github.com/chaos-io/yeezyframe/util"
)

const pingTimeout = 3 * time.Second

// newRemover 按配置组装抠图服务：remove.bg + 熔断 + Redis 缓存
func newRemover(ctx context.Context, cfg *config.Config, m *metrics.Collector, passthrough bool) (rembg.Remover, cache.Store) {
	if passthrough {
		util.Logger.Info("background removal disabled, using the source image as cutout")
		return rembg.NewPassthrough(), cache.NopStore{}
	}

	opts := []rembg.Option{rembg.WithMetrics(m)}
	if cfg.Breaker.Enabled {
		opts = append(opts, rembg.WithBreaker(rembg.BreakerOptions{
			MaxRequests:  cfg.Breaker.MaxRequests,
			Interval:     cfg.Breaker.Interval,
			Timeout:      cfg.Breaker.Timeout,
			MinRequests:  cfg.Breaker.MinRequests,
			FailureRatio: cfg.Breaker.FailureRatio,
		}))
	}

	var remover rembg.Remover = rembg.NewRemoveBG(rembg.Options{
		APIURL:  cfg.Removal.APIURL,
		APIKey:  cfg.Removal.APIKey,
		Size:    cfg.Removal.Size,
		Timeout: cfg.Removal.Timeout,
	}, opts...)

	store := newStore(ctx, cfg.Redis)
	if _, ok := store.(cache.NopStore); !ok {
		remover = rembg.NewCachedRemover(remover, store, cfg.Removal.Size, m)
	}
	return remover, store
}

// newStore Redis 不可用时退回 NopStore，缓存只是优化
func newStore(ctx context.Context, cfg config.RedisConfig) cache.Store {
	if !cfg.Enabled {
		return cache.NopStore{}
	}

	store := cache.NewRedisStore(cache.RedisOptions{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		TTL:      cfg.TTL,
	})

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		util.Logger.Warn("redis connection failed, cache disabled", zap.String("addr", cfg.Addr), zap.Error(err))
		_ = store.Close()
		return cache.NopStore{}
	}

	util.Logger.Info("redis connected successfully", zap.String("addr", cfg.Addr))
	return store
}
