package client

import (
	"context"
	"crypto/tls"
	"net/http"

	"github.com/opensearch-project/opensearch-go"
	"github.com/opensearch-project/opensearch-go/opensearchapi"
	"github.com/pkg/errors"
)

type OpenSearchOptions struct {
	Addresses          []string `cfg:"addresses" def:"http://localhost:9200"`
	Username           string   `cfg:"username"`
	Password           string   `cfg:"password"`
	InsecureSkipVerify bool     `cfg:"insecureSkipVerify"`
	MaxIdleConns       int      `cfg:"maxIdleConns" def:"10"`
	MaxRetries         int      `cfg:"maxRetries" def:"3"`
	RetryOnStatus      []int    `cfg:"retryOnStatus"`
}

// OpenSearchClient OpenSearch 客户端，没有文档类型
type OpenSearchClient struct {
	client *opensearch.Client
}

func NewOpenSearchClientWithOptions(options *OpenSearchOptions) (*OpenSearchClient, error) {
	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: options.Addresses,
		Username:  options.Username,
		Password:  options.Password,
		Transport: &http.Transport{
			MaxIdleConnsPerHost: options.MaxIdleConns,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: options.InsecureSkipVerify,
			},
		},
		RetryOnStatus: options.RetryOnStatus,
		MaxRetries:    options.MaxRetries,
	})
	if err != nil {
		return nil, errors.Wrap(err, "opensearch.NewClient failed")
	}

	return &OpenSearchClient{client: client}, nil
}

func (c *OpenSearchClient) Search(ctx context.Context, req *SearchRequest) (map[string]any, error) {
	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	search := opensearchapi.SearchRequest{
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
