package rembg

import (
	"context"

	"go.uber.org/zap"

	"github.com/chaos-io/yeezyframe/cache"
	"github.com/chaos-io/yeezyframe/metrics"
	"github.com/chaos-io/yeezyframe/model"
	"github.com/chaos-io/yeezyframe/util"
)

// CachedRemover 按原图 MD5 缓存抠图结果；缓存故障只记录日志
type CachedRemover struct {
	next    Remover
	store   cache.Store
	size    string
	metrics *metrics.Collector
}

func NewCachedRemover(next Remover, store cache.Store, size string, m *metrics.Collector) *CachedRemover {
	if size == "" {
		size = defaultSize
	}
	return &CachedRemover{next: next, store: store, size: size, metrics: m}
}

func (c *CachedRemover) Remove(ctx context.Context, src model.SourceImage) (*model.CutoutImage, error) {
	key := util.BytesMD5(src.Data) + ":" + c.size

	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		util.Logger.Warn("failed to get cache", zap.String("key", key), zap.Error(err))
	}
	if ok {
		cutout, err := NewCutout(data, src.Name)
		if err == nil {
			util.Logger.Info("cache hit", zap.String("key", key))
			c.metrics.ObserveCacheHit()
			return cutout, nil
		}
		util.Logger.Warn("discarding invalid cached cutout", zap.String("key", key), zap.Error(err))
	}

	cutout, err := c.next.Remove(ctx, src)
	if err != nil {
		return nil, err
	}

	if err := c.store.Set(ctx, key, cutout.Data); err != nil {
		util.Logger.Warn("failed to set cache", zap.String("key", key), zap.Error(err))
	}
	return cutout, nil
}
