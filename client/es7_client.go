package client

import (
	"context"
	"net/http"

	elasticsearch7 "github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/pkg/errors"
)

// ES7Client Elasticsearch 7 客户端，文档类型非空时写入请求路径
type ES7Client struct {
	client *elasticsearch7.Client
}

func NewES7ClientWithOptions(options *ESOptions) (*ES7Client, error) {
	client, err := elasticsearch7.NewClient(elasticsearch7.Config{
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
		return nil, errors.Wrap(err, "elasticsearch7.NewClient failed")
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

	return &ES7Client{client: client}, nil
}

func (c *ES7Client) Search(ctx context.Context, req *SearchRequest) (map[string]any, error) {
	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	search := esapi.SearchRequest{
		Index: []string{req.Index},
		Body:  body,
	}
	if req.DocumentType != "" {
		search.DocumentType = []string{req.DocumentType}
	}

	res, err := search.Do(ctx, c.client)
	if err != nil {
		return nil, errors.Wrap(err, "execute search failed")
	}
	defer res.Body.Close()

	return decodeResponse(res.StatusCode, res.Body)
}
