package aggregation

import (
	"github.com/pkg/errors"
)

// newFieldStep terms/significant_terms/percentile_ranks
// 字符串配置是 {"field": config} 的简写，map 配置原样作为聚合参数
func newFieldStep(kind Kind, config any, index int) (*Step, error) {
	field, m, ok := fieldOf(config)
	if !ok {
		return nil, errors.WithMessagef(ErrInvalidAggregationConfig, "%s aggregation requires field", kind)
	}

	params := map[string]any{"field": field}
	if m != nil {
		params = copyMap(m)
	}

	return newStep(kind, key(field+"_agg", index), field, map[string]any{
		string(kind): params,
	}), nil
}

// newHistogramStep histogram/date_histogram，min_doc_count 缺省为 0
func newHistogramStep(kind Kind, config any, index int) (*Step, error) {
	m, ok := config.(map[string]any)
	if !ok {
		return nil, errors.WithMessagef(ErrInvalidAggregationConfig, "%s aggregation expects a map, got %T", kind, config)
	}
	field, _ := m["field"].(string)
	if field == "" {
		return nil, errors.WithMessagef(ErrInvalidAggregationConfig, "%s aggregation requires field", kind)
	}

	params := copyMap(m)
	if _, ok := params["min_doc_count"]; !ok {
		params["min_doc_count"] = 0
	}
	if v, ok := params["extended_bounds"]; ok && v == nil {
		delete(params, "extended_bounds")
	}

	return newStep(kind, key(field+"_agg", index), field, map[string]any{
		string(kind): params,
	}), nil
}

// newTopHitsStep field 只用于命名，不写入 top_hits 参数
func newTopHitsStep(config any, index int) (*Step, error) {
	params := map[string]any{}
	if config != nil {
		m, ok := config.(map[string]any)
		if !ok {
			return nil, errors.WithMessagef(ErrInvalidAggregationConfig, "top_hits aggregation expects a map, got %T", config)
		}
		params = copyMap(m)
	}

	name := string(KindTopHits)
	field, _ := params["field"].(string)
	if field != "" {
		name = field
		delete(params, "field")
	}

	return newStep(KindTopHits, key(name+"_agg", index), field, map[string]any{
		string(KindTopHits): params,
	}), nil
}

// newNestedStep 字符串配置即 path
func newNestedStep(config any, index int) (*Step, error) {
	var path string
	switch v := config.(type) {
	case string:
		path = v
	case map[string]any:
		path, _ = v["path"].(string)
	}
	if path == "" {
		return nil, errors.WithMessage(ErrInvalidAggregationConfig, "nested aggregation requires path")
	}

	return newStep(KindNested, key(path+"_agg", index), path, map[string]any{
		"nested": map[string]any{"path": path},
	}), nil
}

// newReverseNestedStep 回到父文档，子聚合结果在响应中位于 parent 键下
// Name 固定为 ParentName 而不是由 Key 去掉序号得到的 _parent，响应解析按 parent 识别 ParentLink
func newReverseNestedStep(index int) *Step {
	step := newStep(KindReverseNested, key("_parent", index), "", map[string]any{
		"reverse_nested": map[string]any{},
	})
	step.Name = ParentName
	return step
}
