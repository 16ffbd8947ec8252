package client

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/hatlonely/esagg/log"
	"github.com/hatlonely/esagg/ref"
	"github.com/hatlonely/esagg/response"
	"github.com/pkg/errors"
)

// Store 缓存响应的存储，键不存在时返回 ErrCacheMiss
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// NewStoreWithOptions 按 TypeOptions 构造存储，Namespace 为空时使用本包
func NewStoreWithOptions(options *ref.TypeOptions) (Store, error) {
	if options == nil {
		return nil, errors.New("store options is nil")
	}

	namespace := options.Namespace
	if namespace == "" {
		namespace = Namespace
	}

	obj, err := ref.New(namespace, options.Type, options.Options)
	if err != nil {
		return nil, errors.WithMessagef(err, "ref.New %s failed", options.Type)
	}

	s, ok := obj.(Store)
	if !ok {
		return nil, errors.Errorf("%s is not a store", options.Type)
	}
	return s, nil
}

type CachedClientOptions struct {
	Client *ref.TypeOptions `cfg:"client" validate:"required"`
	Store  *ref.TypeOptions `cfg:"store" validate:"required"`

	// Logger 存储读写失败时输出告警，为空时使用 log.Default()
	Logger *log.Options `cfg:"logger"`
}

// CachedClient 相同的 index、文档类型和请求体直接返回缓存的响应
// 存储读写失败只记录告警，不影响搜索
type CachedClient struct {
	client Client
	store  Store
	logger log.Logger
}

type CachedClientOption func(*CachedClient)

func WithCacheLogger(logger log.Logger) CachedClientOption {
	return func(c *CachedClient) {
		c.logger = logger
	}
}

func NewCachedClient(c Client, store Store, opts ...CachedClientOption) *CachedClient {
	cached := &CachedClient{client: c, store: store, logger: log.Default()}
	for _, opt := range opts {
		opt(cached)
	}
	cached.logger = cached.logger.WithGroup("cachedClient")
	return cached
}

func NewCachedClientWithOptions(options *CachedClientOptions) (*CachedClient, error) {
	c, err := NewClientWithOptions(options.Client)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create underlying client")
	}

	store, err := NewStoreWithOptions(options.Store)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create store")
	}

	var opts []CachedClientOption
	if options.Logger != nil {
		logger, err := log.NewLogWithOptions(options.Logger)
		if err != nil {
			return nil, errors.WithMessage(err, "failed to create logger")
		}
		opts = append(opts, WithCacheLogger(logger))
	}

	return NewCachedClient(c, store, opts...), nil
}

// CacheKey 请求的 sha256
func CacheKey(req *SearchRequest) (string, error) {
	buf, err := json.Marshal(map[string]any{
		"index": req.Index,
		"type":  req.DocumentType,
		"body":  req.Body,
	})
	if err != nil {
		return "", errors.Wrap(err, "json.Marshal request failed")
	}

	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:]), nil
}

func (c *CachedClient) Search(ctx context.Context, req *SearchRequest) (map[string]any, error) {
	key, err := CacheKey(req)
	if err != nil {
		return nil, err
	}

	buf, err := c.store.Get(ctx, key)
	if err == nil {
		res, err := response.Decode(buf)
		if err == nil {
			return res, nil
		}
		c.logger.WarnContext(ctx, "decode cached response failed", "index", req.Index, "key", key, "error", err.Error())
	} else if !errors.Is(err, ErrCacheMiss) {
		c.logger.WarnContext(ctx, "cache get failed", "index", req.Index, "key", key, "error", err.Error())
	}

	res, err := c.client.Search(ctx, req)
	if err != nil {
		return nil, err
	}

	buf, err = json.Marshal(res)
	if err != nil {
		c.logger.WarnContext(ctx, "marshal response failed", "index", req.Index, "error", err.Error())
		return res, nil
	}
	if err := c.store.Set(ctx, key, buf); err != nil {
		c.logger.WarnContext(ctx, "cache set failed", "index", req.Index, "key", key, "error", err.Error())
	}

	return res, nil
}

func (c *CachedClient) Close() error {
	return c.store.Close()
}
