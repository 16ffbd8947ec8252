package esagg

import (
	"context"

	"github.com/hatlonely/esagg/cfg"
	"github.com/hatlonely/esagg/client"
	"github.com/hatlonely/esagg/log"
	"github.com/hatlonely/esagg/ref"
	"github.com/hatlonely/esagg/response"
	"github.com/pkg/errors"
)

// DefaultQuerySize WithQuery 未指定 size 时返回的文档数
const DefaultQuerySize = 10

type Options struct {
	// Index 查询的索引
	Index string `cfg:"index" validate:"required"`

	// Client 搜索引擎客户端，如 {type: ESClient, options: {addresses: [...]}}
	Client *ref.TypeOptions `cfg:"client" validate:"required"`

	// Logger 为空时使用 log.Default()
	Logger *log.Options `cfg:"logger"`
}

// LoadOptions 从 yaml/toml/json 文件读取配置
func LoadOptions(path string) (*Options, error) {
	options := &Options{}
	if err := cfg.Load(path, options); err != nil {
		return nil, errors.WithMessagef(err, "load options from %s failed", path)
	}
	return options, nil
}

// Aggregator 构造请求、执行一次搜索并展开聚合结果
//
//	agg := esagg.NewAggregator(c, "posts")
//	agg.Aggregate("terms", "user").Stats("post_length")
//	result, err := agg.Exec(ctx, "post")
type Aggregator struct {
	*AggregationQuery

	client client.Client
	index  string
	logger log.Logger
}

type AggregatorOption func(*Aggregator)

func WithLogger(logger log.Logger) AggregatorOption {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

func NewAggregator(c client.Client, index string, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		AggregationQuery: NewAggregationQuery(),
		client:           c,
		index:            index,
		logger:           log.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func NewAggregatorWithOptions(options *Options) (*Aggregator, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}

	c, err := client.NewClientWithOptions(options.Client)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create client")
	}

	var opts []AggregatorOption
	if options.Logger != nil {
		logger, err := log.NewLogWithOptions(options.Logger)
		if err != nil {
			return nil, errors.WithMessage(err, "failed to create logger")
		}
		opts = append(opts, WithLogger(logger))
	}

	return NewAggregator(c, options.Index, opts...), nil
}

type execOptions struct {
	getSearch    bool
	getResponse  bool
	query        map[string]any
	size         int
	object2array bool
}

type ExecOption func(*execOptions)

// WithGetSearch 只返回将要提交的请求，不访问搜索引擎
func WithGetSearch() ExecOption {
	return func(o *execOptions) {
		o.getSearch = true
	}
}

// WithGetResponse 返回原始响应，不解析聚合
func WithGetResponse() ExecOption {
	return func(o *execOptions) {
		o.getResponse = true
	}
}

// WithQuery 在 query.filtered.query 中加入查询条件并返回 size 个文档，size <= 0 时为 DefaultQuerySize
func WithQuery(query map[string]any, size int) ExecOption {
	return func(o *execOptions) {
		o.query = query
		o.size = size
		if o.size <= 0 {
			o.size = DefaultQuerySize
		}
	}
}

// WithObject2Array 聚合结果转换为有序的 []response.Entry
func WithObject2Array() ExecOption {
	return func(o *execOptions) {
		o.object2array = true
	}
}

type Result struct {
	// Search 提交的请求
	Search *client.SearchRequest

	// Response 原始响应，WithGetSearch 时为空
	Response map[string]any

	// Aggregations 展开后的聚合，*response.Object 或 WithObject2Array 时的 []response.Entry
	Aggregations any

	// Hits WithQuery 时返回的文档
	Hits []response.Hit
}

// Exec 使用内嵌的 AggregationQuery 执行
func (a *Aggregator) Exec(ctx context.Context, documentType string, opts ...ExecOption) (*Result, error) {
	return a.ExecQuery(ctx, a.AggregationQuery, documentType, opts...)
}

// ExecQuery 使用 q 生成请求体，构造失败时不访问搜索引擎
func (a *Aggregator) ExecQuery(ctx context.Context, q BodyBuilder, documentType string, opts ...ExecOption) (*Result, error) {
	options := &execOptions{}
	for _, opt := range opts {
		opt(options)
	}

	body, err := q.BuildBody()
	if err != nil {
		a.logger.WarnContext(ctx, "build body failed", "index", a.index, "error", err.Error())
		return nil, err
	}
	if options.query != nil {
		mergeQuery(body, options.query, options.size)
	}

	req := &client.SearchRequest{
		Index:        a.index,
		DocumentType: documentType,
		Body:         body,
	}
	if options.getSearch {
		return &Result{Search: req}, nil
	}

	a.logger.DebugContext(ctx, "search", "index", a.index, "documentType", documentType)
	resp, err := a.client.Search(ctx, req)
	if err != nil {
		a.logger.ErrorContext(ctx, "search failed", "index", a.index, "error", err.Error())
		return nil, errors.WithMessagef(err, "search %s failed", a.index)
	}

	result := &Result{Search: req, Response: resp}
	if options.getResponse {
		return result, nil
	}

	if options.query != nil {
		result.Hits = response.ParseHits(resp)
	}

	_, hasAggs := body["aggs"]
	aggs, err := response.ParseResponse(resp)
	if err != nil {
		if !hasAggs && errors.Is(err, response.ErrMissingAggregations) {
			return result, nil
		}
		a.logger.ErrorContext(ctx, "parse response failed", "index", a.index, "error", err.Error())
		return nil, errors.WithMessage(err, "parse response failed")
	}

	if obj, ok := aggs.(*response.Object); ok && options.object2array {
		result.Aggregations = obj.ToArray()
	} else {
		result.Aggregations = aggs
	}

	return result, nil
}

// mergeQuery body.query.filtered.query = query，body.size = size
func mergeQuery(body map[string]any, query map[string]any, size int) {
	body["size"] = size

	q, ok := body["query"].(map[string]any)
	if !ok {
		q = map[string]any{}
		body["query"] = q
	}
	f, ok := q["filtered"].(map[string]any)
	if !ok {
		f = map[string]any{}
		q["filtered"] = f
	}
	f["query"] = query
}
