package client

import (
	"context"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/pkg/errors"
)

// ESOptions Elasticsearch 连接选项
type ESOptions struct {
	Addresses  []string      `cfg:"addresses" def:"http://localhost:9200"`
	Username   string        `cfg:"username"`
	Password   string        `cfg:"password"`
	APIKey     string        `cfg:"apiKey"`
	Timeout    time.Duration `cfg:"timeout" def:"30s"`
	MaxRetries int           `cfg:"maxRetries" def:"3"`

	// Ping 创建时请求一次集群信息以检查连接
	Ping bool `cfg:"ping"`
}

// ESClient Elasticsearch 8 客户端，不发送文档类型
type ESClient struct {
	client *elasticsearch.Client
}

func NewESClientWithOptions(options *ESOptions) (*ESClient, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: options.Addresses,
		Username:  options.Username,
		Password:  options.Password,
		APIKey:    options.APIKey,
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: options.Timeout,
		},
		MaxRetries: options.MaxRetries,
	})
	if err != nil {
		return nil, errors.Wrap(err, "elasticsearch.NewClient failed")
	}

	if options.Ping {
		res, err := client.Info()
		if err != nil {
			return nil, errors.Wrap(err, "elasticsearch info failed")
		}
		defer res.Body.Close()
		if res.IsError() {
			return nil, errors.Errorf("elasticsearch connection error: %s", res.String())
		}
	}

	return &ESClient{client: client}, nil
}

func (c *ESClient) Search(ctx context.Context, req *SearchRequest) (map[string]any, error) {
	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	search := esapi.SearchRequest{
		Index: []string{req.Index},
		Body:  body,
	}
	res, err := search.Do(ctx, c.client)
	if err != nil {
		return nil, errors.Wrap(err, "execute search failed")
	}
	defer res.Body.Close()

	return decodeResponse(res.StatusCode, res.Body)
}
