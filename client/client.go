package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/hatlonely/esagg/ref"
	"github.com/hatlonely/esagg/response"
	"github.com/pkg/errors"
)

var (
	ErrSearchFailed = errors.New("search failed")
	ErrCacheMiss    = errors.New("cache miss")
)

// Namespace 本包构造函数在 ref 中的注册命名空间
const Namespace = "github.com/hatlonely/esagg/client"

// SearchRequest 一次搜索请求
type SearchRequest struct {
	Index string

	// DocumentType 仅 ES7 及以下版本使用
	DocumentType string

	Body map[string]any
}

// Client 搜索引擎客户端，返回解码后的响应，数字为 json.Number
type Client interface {
	Search(ctx context.Context, req *SearchRequest) (map[string]any, error)
}

func init() {
	ref.MustRegisterT[*ESClient](NewESClientWithOptions)
	ref.MustRegisterT[*ES7Client](NewES7ClientWithOptions)
	ref.MustRegisterT[*OpenSearchClient](NewOpenSearchClientWithOptions)
	ref.MustRegisterT[*MemoryClient](NewMemoryClientWithOptions)
	ref.MustRegisterT[*ObservableClient](NewObservableClientWithOptions)
	ref.MustRegisterT[*CachedClient](NewCachedClientWithOptions)

	ref.MustRegisterT[*FreeCacheStore](NewFreeCacheStoreWithOptions)
	ref.MustRegisterT[*RedisStore](NewRedisStoreWithOptions)
}

// NewClientWithOptions 按 TypeOptions 构造客户端，Namespace 为空时使用本包
func NewClientWithOptions(options *ref.TypeOptions) (Client, error) {
	if options == nil {
		return nil, errors.New("client options is nil")
	}

	namespace := options.Namespace
	if namespace == "" {
		namespace = Namespace
	}

	obj, err := ref.New(namespace, options.Type, options.Options)
	if err != nil {
		return nil, errors.WithMessagef(err, "ref.New %s failed", options.Type)
	}

	c, ok := obj.(Client)
	if !ok {
		return nil, errors.Errorf("%s is not a client", options.Type)
	}
	return c, nil
}

func marshalBody(body map[string]any) ([]byte, error) {
	if body == nil {
		body = map[string]any{}
	}
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "json.Marshal body failed")
	}
	return buf, nil
}

func encodeBody(body map[string]any) (io.Reader, error) {
	buf, err := marshalBody(body)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(buf), nil
}

// decodeResponse 读取响应体，非 2xx 返回 ErrSearchFailed
func decodeResponse(statusCode int, body io.Reader) (map[string]any, error) {
	buf, err := io.ReadAll(body)
	if err != nil {
		return nil, errors.Wrap(err, "read response body failed")
	}

	if statusCode < 200 || statusCode > 299 {
		return nil, errors.WithMessagef(ErrSearchFailed, "status %d: %s", statusCode, bytes.TrimSpace(buf))
	}

	return response.Decode(buf)
}
