package client

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type RedisStoreOptions struct {
	// host:port 地址
	Endpoint string `cfg:"endpoint" validate:"required"`

	Username string `cfg:"username"`
	Password string `cfg:"password"`
	DB       int    `cfg:"db"`

	// KeyPrefix 写入 redis 的键前缀
	KeyPrefix string `cfg:"keyPrefix" def:"esagg:"`

	DefaultTTL time.Duration `cfg:"defaultTTL" def:"1m"`

	// 放弃前的最大重试次数，-1 禁用重试
	MaxRetries   int           `cfg:"maxRetries" def:"3"`
	DialTimeout  time.Duration `cfg:"dialTimeout" def:"5s"`
	ReadTimeout  time.Duration `cfg:"readTimeout" def:"3s"`
	WriteTimeout time.Duration `cfg:"writeTimeout" def:"3s"`
	PoolSize     int           `cfg:"poolSize" def:"10"`
}

// RedisStore 跨进程共享的缓存
type RedisStore struct {
	client     *redis.Client
	keyPrefix  string
	defaultTTL time.Duration
}

func NewRedisStoreWithOptions(options *RedisStoreOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         options.Endpoint,
		Username:     options.Username,
		Password:     options.Password,
		DB:           options.DB,
		MaxRetries:   options.MaxRetries,
		DialTimeout:  options.DialTimeout,
		ReadTimeout:  options.ReadTimeout,
		WriteTimeout: options.WriteTimeout,
		PoolSize:     options.PoolSize,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, errors.WithMessage(err, "redis.client.Ping failed")
	}

	return &RedisStore{
		client:     client,
		keyPrefix:  options.KeyPrefix,
		defaultTTL: options.DefaultTTL,
	}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, errors.WithMessage(err, "redis.client.Get failed")
	}
	return value, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.keyPrefix+key, value, s.defaultTTL).Err(); err != nil {
		return errors.WithMessage(err, "redis.client.Set failed")
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
