package aggregation

import (
	"regexp"
	"strconv"

	"github.com/pkg/errors"
)

var (
	ErrInvalidAggregationKind   = errors.New("invalid aggregation kind")
	ErrInvalidAggregationConfig = errors.New("invalid aggregation config")
)

// Kind 聚合步骤类型
type Kind string

const (
	KindTerms            Kind = "terms"
	KindSignificantTerms Kind = "significant_terms"
	KindPercentileRanks  Kind = "percentile_ranks"
	KindHistogram        Kind = "histogram"
	KindDateHistogram    Kind = "date_histogram"
	KindTopHits          Kind = "top_hits"
	KindNested           Kind = "nested"
	KindReverseNested    Kind = "reverse_nested"
	KindGenerate         Kind = "_generate"
	KindFilters          Kind = "filters"
	KindFilter           Kind = "filter"
	KindMetric           Kind = "metric"
	KindMerged           Kind = "merged"
	KindRaw              Kind = "raw"
)

// ParentName reverse_nested 步骤在请求和响应中的固定名称
const ParentName = "parent"

// Step 聚合步骤
type Step struct {
	// Key 唯一键，带插入序号后缀，如 user_agg_1
	Key string

	// Name 写入请求的名称，即去掉序号后缀的 Key
	Name string

	Kind  Kind
	Field string

	// Body 聚合定义，不含子聚合；merged 步骤为多个并列的聚合
	Body map[string]any
}

var suffixPattern = regexp.MustCompile(`_[0-9]+$`)

// StripSuffix 去掉键末尾的 _<序号>
func StripSuffix(key string) string {
	return suffixPattern.ReplaceAllString(key, "")
}

func newStep(kind Kind, key string, field string, body map[string]any) *Step {
	return &Step{
		Key:   key,
		Name:  StripSuffix(key),
		Kind:  kind,
		Field: field,
		Body:  body,
	}
}

// New 根据类型和配置构造第 index 个聚合步骤（从 1 开始）
func New(kind string, config any, index int) (*Step, error) {
	switch k := Kind(kind); k {
	case KindTerms, KindSignificantTerms, KindPercentileRanks:
		return newFieldStep(k, config, index)
	case KindHistogram, KindDateHistogram:
		return newHistogramStep(k, config, index)
	case KindTopHits:
		return newTopHitsStep(config, index)
	case KindNested:
		return newNestedStep(config, index)
	case KindReverseNested:
		return newReverseNestedStep(index), nil
	case KindGenerate:
		return newGenerateStep(config, index)
	case KindFilters:
		return newFiltersStep(config, index)
	case KindFilter:
		return newFilterStep(config, index)
	}

	return nil, errors.WithMessagef(ErrInvalidAggregationKind, "aggregation kind %q", kind)
}

// NewRaw 原样使用调用方提供的聚合定义，用于未内置的聚合类型
func NewRaw(name string, aggs map[string]any, index int) (*Step, error) {
	if name == "" {
		return nil, errors.WithMessage(ErrInvalidAggregationConfig, "raw aggregation requires name")
	}
	return newStep(KindRaw, key(name, index), "", copyMap(aggs)), nil
}

func key(name string, index int) string {
	return name + "_" + strconv.Itoa(index)
}

func copyMap(m map[string]any) map[string]any {
	result := make(map[string]any, len(m))
	for k, v := range m {
		result[k] = v
	}
	return result
}

// fieldOf 解析字段配置：字符串即字段名，map 取 field 键
func fieldOf(config any) (string, map[string]any, bool) {
	switch v := config.(type) {
	case string:
		return v, nil, v != ""
	case map[string]any:
		field, _ := v["field"].(string)
		return field, v, field != ""
	}
	return "", nil, false
}
