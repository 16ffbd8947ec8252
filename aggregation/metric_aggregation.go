package aggregation

import (
	"github.com/pkg/errors"
)

// NewMetric 单指标聚合步骤，如 avg/max/cardinality
// 输出名称在 Build 时确定：<field>_metric，同字段多个时为 <field>_metric_<序号>
func NewMetric(kind string, config any, index int) (*Step, error) {
	if kind == "" {
		return nil, errors.WithMessage(ErrInvalidAggregationConfig, "metric requires kind")
	}

	field, m, ok := fieldOf(config)
	if !ok {
		return nil, errors.WithMessagef(ErrInvalidAggregationConfig, "%s metric requires field", kind)
	}

	params := map[string]any{"field": field}
	if m != nil {
		params = copyMap(m)
	}

	return newStep(KindMetric, key("_metric", index), field, map[string]any{
		kind: params,
	}), nil
}

// StatSpec 指定统计类型的字段，如 {Field: "num_of_tags", Type: "avg"}
type StatSpec struct {
	Field string
	Type  string
}

// NewStats 合并多个字段统计为一个步骤，输出时作为并列的兄弟聚合
//
//	"post_length"                   => post_length_stats: {stats: {field: post_length}}
//	StatSpec{"num_of_tags", "avg"}  => num_of_tags_avg: {avg: {field: num_of_tags}}
func NewStats(fields []any, index int) (*Step, error) {
	if len(fields) == 0 {
		return nil, errors.WithMessage(ErrInvalidAggregationConfig, "stats requires at least one field")
	}

	body := make(map[string]any, len(fields))
	for _, f := range fields {
		spec, err := statSpecOf(f)
		if err != nil {
			return nil, err
		}
		body[spec.Field+"_"+spec.Type] = map[string]any{
			spec.Type: map[string]any{"field": spec.Field},
		}
	}

	return newStep(KindMerged, key("_merged", index), "", body), nil
}

func statSpecOf(v any) (StatSpec, error) {
	var spec StatSpec
	switch f := v.(type) {
	case string:
		spec = StatSpec{Field: f, Type: "stats"}
	case StatSpec:
		spec = f
	case *StatSpec:
		if f != nil {
			spec = *f
		}
	case map[string]any:
		spec.Field, _ = f["field"].(string)
		spec.Type, _ = f["type"].(string)
	default:
		return spec, errors.WithMessagef(ErrInvalidAggregationConfig, "unsupported stats entry %T", v)
	}

	if spec.Field == "" {
		return spec, errors.WithMessage(ErrInvalidAggregationConfig, "stats entry requires field")
	}
	if spec.Type == "" {
		spec.Type = "stats"
	}
	return spec, nil
}
