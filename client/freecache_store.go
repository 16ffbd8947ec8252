package client

import (
	"context"
	"time"

	"github.com/coocood/freecache"
)

type FreeCacheStoreOptions struct {
	// Size 缓存字节数，freecache 最小 512KB
	Size       int           `cfg:"size" def:"33554432"`
	DefaultTTL time.Duration `cfg:"defaultTTL" def:"1m"`
}

// FreeCacheStore 进程内缓存
type FreeCacheStore struct {
	cache      *freecache.Cache
	defaultTTL time.Duration
}

func NewFreeCacheStoreWithOptions(options *FreeCacheStoreOptions) *FreeCacheStore {
	return &FreeCacheStore{
		cache:      freecache.NewCache(options.Size),
		defaultTTL: options.DefaultTTL,
	}
}

func (s *FreeCacheStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.cache.Get([]byte(key))
	if err != nil {
		return nil, ErrCacheMiss
	}
	return value, nil
}

func (s *FreeCacheStore) Set(ctx context.Context, key string, value []byte) error {
	return s.cache.Set([]byte(key), value, int(s.defaultTTL.Seconds()))
}

func (s *FreeCacheStore) Close() error {
	s.cache.Clear()
	return nil
}
