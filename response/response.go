package response

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

var (
	ErrMissingAggregations = errors.New("missing aggregations")
	ErrMalformedBucket     = errors.New("malformed bucket")
)

var noiseKeys = map[string]struct{}{
	"doc_count_error_upper_bound": {},
	"sum_other_doc_count":         {},
}

// Decode 解析引擎返回的 json，数字保留为 json.Number
func Decode(data []byte) (map[string]any, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var result map[string]any
	if err := decoder.Decode(&result); err != nil {
		return nil, errors.Wrap(err, "decode response failed")
	}
	return result, nil
}

// StripNoise 递归去掉 doc_count_error_upper_bound 和 sum_other_doc_count，返回副本
func StripNoise(v any) any {
	switch val := v.(type) {
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, child := range val {
			if _, ok := noiseKeys[k]; ok {
				continue
			}
			result[k] = StripNoise(child)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i := range val {
			result[i] = StripNoise(val[i])
		}
		return result
	}
	return v
}

// ParseResponse 解析完整响应中的 aggregations
func ParseResponse(resp map[string]any) (any, error) {
	aggs, ok := resp["aggregations"].(map[string]any)
	if !ok {
		return nil, ErrMissingAggregations
	}

	return Parse(StripNoise(aggs).(map[string]any))
}

// Hit 返回的文档
type Hit struct {
	ID     string         `json:"_id"`
	Index  string         `json:"_index"`
	Score  any            `json:"_score"`
	Source map[string]any `json:"_source"`
}

// ParseHits 提取 hits.hits，没有命中时返回空
func ParseHits(resp map[string]any) []Hit {
	hits, _ := resp["hits"].(map[string]any)
	list, _ := hits["hits"].([]any)

	result := make([]Hit, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		hit := Hit{Score: m["_score"]}
		hit.ID, _ = m["_id"].(string)
		hit.Index, _ = m["_index"].(string)
		hit.Source, _ = m["_source"].(map[string]any)
		result = append(result, hit)
	}
	return result
}
