package esagg

import (
	"reflect"

	"github.com/hatlonely/esagg/aggregation"
	"github.com/hatlonely/esagg/filter"
	"github.com/pkg/errors"
)

// BodyBuilder 生成搜索请求体
type BodyBuilder interface {
	BuildBody() (map[string]any, error)
}

// AggregationQuery 链式构造过滤条件和嵌套聚合
//
// 调用出错时记录第一个错误，之后的调用被忽略，错误由 Err 和 BuildBody 返回。
// BuildBody 之后状态清空，可以继续构造下一个请求。非并发安全。
type AggregationQuery struct {
	filters []filter.Filter
	steps   aggregation.Steps
	err     error
}

func NewAggregationQuery() *AggregationQuery {
	return &AggregationQuery{}
}

// Filter 按类型和配置添加过滤条件
func (q *AggregationQuery) Filter(kind string, config any) *AggregationQuery {
	if q.err != nil {
		return q
	}

	f, err := filter.New(kind, config)
	if err != nil {
		q.err = errors.WithMessage(err, "filter failed")
		return q
	}
	q.filters = append(q.filters, f)
	return q
}

// Where 添加已构造的过滤条件，如 filter.Term("user", "User 1")
func (q *AggregationQuery) Where(f filter.Filter) *AggregationQuery {
	if q.err != nil {
		return q
	}

	if isNil(f) {
		q.err = errors.WithMessage(filter.ErrInvalidFilterConfig, "where requires a filter")
		return q
	}
	q.filters = append(q.filters, f)
	return q
}

// Aggregate 添加一层聚合，后添加的嵌套在先添加的之内
func (q *AggregationQuery) Aggregate(kind string, config any) *AggregationQuery {
	return q.addStep(func(index int) (*aggregation.Step, error) {
		return aggregation.New(kind, config, index)
	}, "aggregate failed")
}

// AggregateRaw 添加一层自定义聚合，如 AggregateRaw("no_tag", {"missing": {"field": "tag"}})
func (q *AggregationQuery) AggregateRaw(name string, aggs map[string]any) *AggregationQuery {
	return q.addStep(func(index int) (*aggregation.Step, error) {
		return aggregation.NewRaw(name, aggs, index)
	}, "aggregate raw failed")
}

// Metric 在当前层添加单指标聚合
func (q *AggregationQuery) Metric(kind string, config any) *AggregationQuery {
	return q.addStep(func(index int) (*aggregation.Step, error) {
		return aggregation.NewMetric(kind, config, index)
	}, "metric failed")
}

// Stats 在当前层添加字段统计
//
//	Stats("post_length", "num_of_tags")
//	Stats(aggregation.StatSpec{Field: "num_of_tags", Type: "avg"})
//	Stats([]any{map[string]any{"type": "max", "field": "num_of_tags"}})
func (q *AggregationQuery) Stats(fields ...any) *AggregationQuery {
	return q.addStep(func(index int) (*aggregation.Step, error) {
		return aggregation.NewStats(flatten(fields), index)
	}, "stats failed")
}

func (q *AggregationQuery) addStep(newStep func(index int) (*aggregation.Step, error), message string) *AggregationQuery {
	if q.err != nil {
		return q
	}

	step, err := newStep(q.steps.Next())
	if err != nil {
		q.err = errors.WithMessage(err, message)
		return q
	}
	q.steps = append(q.steps, step)
	return q
}

// Err 第一个构造错误
func (q *AggregationQuery) Err() error {
	return q.err
}

// Reset 清空过滤条件、聚合和错误
func (q *AggregationQuery) Reset() {
	q.filters = nil
	q.steps = nil
	q.err = nil
}

// BuildBody 生成 {size: 0, aggs, query} 请求体，无论成功与否都会清空状态
func (q *AggregationQuery) BuildBody() (map[string]any, error) {
	defer q.Reset()

	if q.err != nil {
		return nil, q.err
	}

	body := map[string]any{"size": 0}
	if aggs := q.steps.Build(); aggs != nil {
		body["aggs"] = aggs
	}

	switch len(q.filters) {
	case 0:
	case 1:
		body["query"] = filtered(filter.Render(q.filters[0]))
	default:
		and := make([]any, 0, len(q.filters))
		for _, f := range q.filters {
			and = append(and, filter.Render(f))
		}
		body["query"] = filtered(map[string]any{"and": and})
	}

	return body, nil
}

func filtered(f map[string]any) map[string]any {
	return map[string]any{
		"filtered": map[string]any{"filter": f},
	}
}

func isNil(f filter.Filter) bool {
	if f == nil {
		return true
	}
	rv := reflect.ValueOf(f)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}

// flatten 展开作为单个参数传入的列表
func flatten(fields []any) []any {
	var result []any
	for _, f := range fields {
		if _, ok := f.(string); ok {
			result = append(result, f)
			continue
		}
		rv := reflect.ValueOf(f)
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			for i := 0; i < rv.Len(); i++ {
				result = append(result, rv.Index(i).Interface())
			}
			continue
		}
		result = append(result, f)
	}
	return result
}
