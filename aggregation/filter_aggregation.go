package aggregation

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/pkg/errors"
)

// newFilterStep {"field": f, "subtype": "term", "condition": c} => {"filter": {"term": {f: c}}}
func newFilterStep(config any, index int) (*Step, error) {
	m, ok := config.(map[string]any)
	if !ok {
		return nil, errors.WithMessagef(ErrInvalidAggregationConfig, "filter aggregation expects a map, got %T", config)
	}
	field, _ := m["field"].(string)
	subtype, _ := m["subtype"].(string)
	if field == "" || subtype == "" {
		return nil, errors.WithMessage(ErrInvalidAggregationConfig, "filter aggregation requires field and subtype")
	}

	return newStep(KindFilter, key(field+"_filter", index), field, map[string]any{
		"filter": map[string]any{
			subtype: map[string]any{field: m["condition"]},
		},
	}), nil
}

// newFiltersStep 原样使用 filters 聚合参数
func newFiltersStep(config any, index int) (*Step, error) {
	m, ok := config.(map[string]any)
	if !ok {
		return nil, errors.WithMessagef(ErrInvalidAggregationConfig, "filters aggregation expects a map, got %T", config)
	}

	return newStep(KindFilters, key("filters_agg", index), "", map[string]any{
		"filters": copyMap(m),
	}), nil
}

// RangeClause 区间过滤条件
type RangeClause struct {
	// Label 桶名，如 *-10、10-20、20-*
	Label     string
	Condition map[string]any
}

// GenerateRanges 将边界 b[0..n-1] 展开为 n+1 个左开右闭区间
//
//	{lte: b0}, {gt: b0, lte: b1}, ..., {gt: b[n-1]}
func GenerateRanges(boundaries []any) ([]RangeClause, error) {
	if len(boundaries) == 0 {
		return nil, errors.WithMessage(ErrInvalidAggregationConfig, "ranges require at least one boundary")
	}

	type boundary struct {
		value any
		num   float64
	}
	sorted := make([]boundary, len(boundaries))
	for i, b := range boundaries {
		num, ok := toFloat(b)
		if !ok {
			return nil, errors.WithMessagef(ErrInvalidAggregationConfig, "boundary %v is not a number", b)
		}
		sorted[i] = boundary{value: b, num: num}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].num < sorted[j].num })

	n := len(sorted)
	clauses := make([]RangeClause, 0, n+1)
	clauses = append(clauses, RangeClause{
		Label:     fmt.Sprintf("*-%v", sorted[0].value),
		Condition: map[string]any{"lte": sorted[0].value},
	})
	for j := 1; j < n; j++ {
		clauses = append(clauses, RangeClause{
			Label:     fmt.Sprintf("%v-%v", sorted[j-1].value, sorted[j].value),
			Condition: map[string]any{"gt": sorted[j-1].value, "lte": sorted[j].value},
		})
	}
	clauses = append(clauses, RangeClause{
		Label:     fmt.Sprintf("%v-*", sorted[n-1].value),
		Condition: map[string]any{"gt": sorted[n-1].value},
	})

	return clauses, nil
}

// newGenerateStep {"field": f, "boundaries": [10, 20]} 生成一个带命名桶的 filters 聚合
func newGenerateStep(config any, index int) (*Step, error) {
	m, ok := config.(map[string]any)
	if !ok {
		return nil, errors.WithMessagef(ErrInvalidAggregationConfig, "_generate expects a map, got %T", config)
	}
	field, _ := m["field"].(string)
	if field == "" {
		return nil, errors.WithMessage(ErrInvalidAggregationConfig, "_generate requires field")
	}
	boundaries, ok := toList(m["boundaries"])
	if !ok {
		return nil, errors.WithMessage(ErrInvalidAggregationConfig, "_generate requires boundaries")
	}

	clauses, err := GenerateRanges(boundaries)
	if err != nil {
		return nil, err
	}

	filters := make(map[string]any, len(clauses))
	for _, clause := range clauses {
		filters[clause.Label] = map[string]any{
			"range": map[string]any{field: clause.Condition},
		}
	}

	return newStep(KindGenerate, key(field+"_agg", index), field, map[string]any{
		"filters": map[string]any{"filters": filters},
	}), nil
}

func toList(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	if l, ok := v.([]any); ok {
		return l, true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	l := make([]any, rv.Len())
	for i := range l {
		l[i] = rv.Index(i).Interface()
	}
	return l, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	}
	return 0, false
}
