package client

import (
	"context"
	"sync"

	"github.com/hatlonely/esagg/response"
	"github.com/pkg/errors"
)

type MemoryClientOptions struct {
	// Responses 按顺序返回的响应，用完后重复最后一个
	Responses []map[string]any `cfg:"responses"`

	// Echo 没有预设响应时原样返回请求体
	Echo bool `cfg:"echo"`
}

// MemoryClient 内存客户端，记录收到的请求，用于测试
type MemoryClient struct {
	mu        sync.Mutex
	responses []map[string]any
	echo      bool
	err       error
	requests  []*SearchRequest
}

// NewMemoryClient 依次返回 responses；responses 为空时回显请求体
func NewMemoryClient(responses ...map[string]any) *MemoryClient {
	return &MemoryClient{responses: responses, echo: len(responses) == 0}
}

func NewMemoryClientWithOptions(options *MemoryClientOptions) *MemoryClient {
	return &MemoryClient{responses: options.Responses, echo: options.Echo}
}

// SetError 之后的请求都返回 err
func (c *MemoryClient) SetError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

func (c *MemoryClient) Requests() []*SearchRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*SearchRequest(nil), c.requests...)
}

func (c *MemoryClient) Search(ctx context.Context, req *SearchRequest) (map[string]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}

	if len(c.responses) > 0 {
		res := c.responses[0]
		if len(c.responses) > 1 {
			c.responses = c.responses[1:]
		}
		return res, nil
	}

	if !c.echo {
		return nil, errors.WithMessage(ErrSearchFailed, "no response prepared")
	}

	buf, err := marshalBody(req.Body)
	if err != nil {
		return nil, err
	}
	return response.Decode(buf)
}
