package client

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hatlonely/esagg/log"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKey(t *testing.T) {
	k1, err := CacheKey(&SearchRequest{Index: "posts", DocumentType: "post", Body: searchBody()})
	require.NoError(t, err)
	k2, err := CacheKey(&SearchRequest{Index: "posts", DocumentType: "post", Body: searchBody()})
	require.NoError(t, err)
	k3, err := CacheKey(&SearchRequest{Index: "posts", Body: searchBody()})
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.Len(t, k1, 64)

	_, err = CacheKey(&SearchRequest{Body: map[string]any{"bad": make(chan int)}})
	assert.Error(t, err)
}

func TestFreeCacheStore(t *testing.T) {
	ctx := context.Background()
	store := NewFreeCacheStoreWithOptions(&FreeCacheStoreOptions{Size: 1024 * 1024, DefaultTTL: time.Minute})
	defer store.Close()

	_, err := store.Get(ctx, "missing")
	assert.True(t, errors.Is(err, ErrCacheMiss))

	require.NoError(t, store.Set(ctx, "key", []byte(`{"a":1}`)))
	value, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(value))
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	store, err := NewRedisStoreWithOptions(&RedisStoreOptions{
		Endpoint:   mr.Addr(),
		KeyPrefix:  "esagg:",
		DefaultTTL: time.Minute,
	})
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Get(ctx, "missing")
	assert.True(t, errors.Is(err, ErrCacheMiss))

	require.NoError(t, store.Set(ctx, "key", []byte(`{"a":1}`)))
	assert.True(t, mr.Exists("esagg:key"))

	value, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(value))

	mr.FastForward(2 * time.Minute)
	_, err = store.Get(ctx, "key")
	assert.True(t, errors.Is(err, ErrCacheMiss))

	_, err = NewRedisStoreWithOptions(&RedisStoreOptions{Endpoint: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	assert.Error(t, err)
}

func mustMarshal(t *testing.T, v any) string {
	buf, err := json.Marshal(v)
	require.NoError(t, err)
	return string(buf)
}

func testCachedClient(t *testing.T, store Store) {
	ctx := context.Background()
	memory := NewMemoryClient(
		map[string]any{"aggregations": map[string]any{"user_agg": map[string]any{"buckets": []any{}}}},
	)
	c := NewCachedClient(memory, store, WithCacheLogger(log.Discard()))

	req := &SearchRequest{Index: "posts", DocumentType: "post", Body: searchBody()}
	first, err := c.Search(ctx, req)
	require.NoError(t, err)
	second, err := c.Search(ctx, req)
	require.NoError(t, err)

	assert.Len(t, memory.Requests(), 1)
	assert.Equal(t, mustMarshal(t, first), mustMarshal(t, second))

	_, err = c.Search(ctx, &SearchRequest{Index: "other", Body: searchBody()})
	require.NoError(t, err)
	assert.Len(t, memory.Requests(), 2)

	memory.SetError(errors.New("connection refused"))
	_, err = c.Search(ctx, &SearchRequest{Index: "failed", Body: searchBody()})
	assert.Error(t, err)

	_, err = c.Search(ctx, req)
	assert.NoError(t, err)
}

func TestCachedClient(t *testing.T) {
	t.Run("freecache", func(t *testing.T) {
		store := NewFreeCacheStoreWithOptions(&FreeCacheStoreOptions{Size: 1024 * 1024, DefaultTTL: time.Minute})
		testCachedClient(t, store)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		store, err := NewRedisStoreWithOptions(&RedisStoreOptions{Endpoint: mr.Addr(), DefaultTTL: time.Minute})
		require.NoError(t, err)
		defer store.Close()
		testCachedClient(t, store)
	})
}

// brokenStore 读写都失败的存储
type brokenStore struct {
	getErr error
	setErr error
}

func (s *brokenStore) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, s.getErr
}

func (s *brokenStore) Set(ctx context.Context, key string, value []byte) error {
	return s.setErr
}

func (s *brokenStore) Close() error {
	return nil
}

func TestCachedClient_StoreFailure(t *testing.T) {
	ctx := context.Background()
	req := &SearchRequest{Index: "posts", Body: searchBody()}

	newLogger := func(buf *bytes.Buffer) log.Logger {
		logger, err := log.NewLogWithOptions(&log.Options{Format: "json", Writer: buf})
		require.NoError(t, err)
		return logger
	}

	t.Run("store error", func(t *testing.T) {
		var buf bytes.Buffer
		memory := NewMemoryClient(map[string]any{"aggregations": map[string]any{}})
		store := &brokenStore{getErr: errors.New("connection reset"), setErr: errors.New("out of memory")}
		c := NewCachedClient(memory, store, WithCacheLogger(newLogger(&buf)))

		_, err := c.Search(ctx, req)
		require.NoError(t, err)
		assert.Len(t, memory.Requests(), 1)
		assert.Contains(t, buf.String(), `"msg":"cache get failed"`)
		assert.Contains(t, buf.String(), `"msg":"cache set failed"`)
		assert.Contains(t, buf.String(), "out of memory")
		assert.Contains(t, buf.String(), `"cachedClient":`)
	})

	t.Run("cache miss is silent", func(t *testing.T) {
		var buf bytes.Buffer
		memory := NewMemoryClient(map[string]any{"aggregations": map[string]any{}})
		store := &brokenStore{getErr: errors.WithMessage(ErrCacheMiss, "key not found")}
		c := NewCachedClient(memory, store, WithCacheLogger(newLogger(&buf)))

		_, err := c.Search(ctx, req)
		require.NoError(t, err)
		assert.Empty(t, buf.String())
	})

	t.Run("corrupted entry", func(t *testing.T) {
		var buf bytes.Buffer
		memory := NewMemoryClient(map[string]any{"aggregations": map[string]any{}})
		store := NewFreeCacheStoreWithOptions(&FreeCacheStoreOptions{Size: 1024 * 1024, DefaultTTL: time.Minute})
		defer store.Close()
		key, err := CacheKey(req)
		require.NoError(t, err)
		require.NoError(t, store.Set(ctx, key, []byte("not json")))

		c := NewCachedClient(memory, store, WithCacheLogger(newLogger(&buf)))
		_, err = c.Search(ctx, req)
		require.NoError(t, err)
		assert.Len(t, memory.Requests(), 1)
		assert.Contains(t, buf.String(), `"msg":"decode cached response failed"`)
	})
}
