package response

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Shape 聚合节点的形态
type Shape int

const (
	// LeafMap 叶子节点，如 stats 结果
	LeafMap Shape = iota
	// BucketList 唯一子节点带 buckets
	BucketList
	// SingleChildWrapper 唯一子节点带 doc_count 和其他子聚合，如 nested/filter
	SingleChildWrapper
	// ParentLink 带 reverse_nested 的 parent 兄弟节点
	ParentLink
	// ScalarCount 只剩 doc_count
	ScalarCount
)

func (s Shape) String() string {
	switch s {
	case BucketList:
		return "BucketList"
	case SingleChildWrapper:
		return "SingleChildWrapper"
	case ParentLink:
		return "ParentLink"
	case ScalarCount:
		return "ScalarCount"
	}
	return "LeafMap"
}

const parentKey = "parent"

const dateFormat = "2006-01-02 15:04:05"

// Classify 按固定顺序判断节点形态
func Classify(node map[string]any) Shape {
	if len(node) == 1 {
		for _, v := range node {
			child, ok := v.(map[string]any)
			if !ok {
				break
			}
			if _, ok := child["buckets"]; ok {
				return BucketList
			}
			if _, ok := child["doc_count"]; ok && len(child) > 1 {
				return SingleChildWrapper
			}
		}
	} else if _, ok := node[parentKey]; ok {
		return ParentLink
	}

	if v, ok := node["doc_count"]; ok && len(node) == 1 && !isContainer(v) {
		return ScalarCount
	}
	return LeafMap
}

// Parse 将聚合树展开为以桶键为索引的结果
func Parse(node map[string]any) (any, error) {
	switch Classify(node) {
	case BucketList:
		return parseBuckets(node)
	case SingleChildWrapper:
		for _, v := range node {
			child := copyWithout(v.(map[string]any), "doc_count")
			return Parse(child)
		}
	case ParentLink:
		return parseParentLink(node)
	case ScalarCount:
		return node["doc_count"], nil
	}
	return parseLeaf(node), nil
}

func parseBuckets(node map[string]any) (any, error) {
	var name string
	var container map[string]any
	for k, v := range node {
		name, container = k, v.(map[string]any)
	}

	result := NewObject()
	switch buckets := container["buckets"].(type) {
	case []any:
		for i, item := range buckets {
			bucket, ok := item.(map[string]any)
			if !ok {
				return nil, errors.WithMessagef(ErrMalformedBucket, "%s bucket %d is %T", name, i, item)
			}
			k, ok := bucket["key"]
			if !ok {
				return nil, errors.WithMessagef(ErrMalformedBucket, "%s bucket %d has no key", name, i)
			}
			_, hasKeyAsString := bucket["key_as_string"]
			value, err := parseBucket(copyWithout(bucket, "key", "key_as_string"))
			if err != nil {
				return nil, errors.WithMessagef(err, "parse %s bucket %d failed", name, i)
			}
			result.Set(BucketKey(k, hasKeyAsString), value)
		}
	case map[string]any:
		keys := make([]string, 0, len(buckets))
		for k := range buckets {
			keys = append(keys, k)
		}
		sortBucketKeys(keys)
		for _, k := range keys {
			bucket, ok := buckets[k].(map[string]any)
			if !ok {
				return nil, errors.WithMessagef(ErrMalformedBucket, "%s bucket %q is %T", name, k, buckets[k])
			}
			value, err := parseBucket(copyWithout(bucket, "key", "key_as_string"))
			if err != nil {
				return nil, errors.WithMessagef(err, "parse %s bucket %q failed", name, k)
			}
			result.Set(k, value)
		}
	default:
		return nil, errors.WithMessagef(ErrMalformedBucket, "%s buckets is %T", name, container["buckets"])
	}

	return result, nil
}

// sortBucketKeys 区间桶（*-5、5-10、10-*）按下界排序，其他按字典序
func sortBucketKeys(keys []string) {
	bounds := make(map[string]float64, len(keys))
	for _, k := range keys {
		b, ok := rangeLowerBound(k)
		if !ok {
			sort.Strings(keys)
			return
		}
		bounds[k] = b
	}
	sort.Slice(keys, func(i, j int) bool {
		if bounds[keys[i]] != bounds[keys[j]] {
			return bounds[keys[i]] < bounds[keys[j]]
		}
		return keys[i] < keys[j]
	})
}

// rangeLowerBound 解析 <lower>-<upper> 形式的桶名，* 表示无界
func rangeLowerBound(label string) (float64, bool) {
	if len(label) < 3 {
		return 0, false
	}
	// 下界可能是负数，从第二个字符开始找分隔符
	i := strings.Index(label[1:], "-")
	if i < 0 {
		return 0, false
	}
	lower, upper := label[:i+1], label[i+2:]
	if upper != "*" {
		if _, err := strconv.ParseFloat(upper, 64); err != nil {
			return 0, false
		}
	}
	if lower == "*" {
		return math.Inf(-1), true
	}
	b, err := strconv.ParseFloat(lower, 64)
	return b, err == nil
}

func parseBucket(bucket map[string]any) (any, error) {
	if len(bucket) > 1 {
		delete(bucket, "doc_count")
	}
	return Parse(bucket)
}

func parseParentLink(node map[string]any) (any, error) {
	base, err := Parse(copyWithout(node, parentKey))
	if err != nil {
		return nil, err
	}
	parent, err := Parse(map[string]any{parentKey: node[parentKey]})
	if err != nil {
		return nil, errors.WithMessage(err, "parse parent failed")
	}

	obj, ok := base.(*Object)
	if !ok {
		obj = NewObject()
	}
	obj.Set(parentKey, parent)
	return obj, nil
}

func parseLeaf(node map[string]any) *Object {
	keys := make([]string, 0, len(node))
	for k := range node {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := NewObject()
	for _, k := range keys {
		result.Set(strings.TrimSuffix(k, "_stats"), node[k])
	}
	return result
}

// BucketKey 桶键的字符串形式
// 带 key_as_string 且为 1000 整数倍的键视为毫秒时间戳，格式化为 UTC 时间
func BucketKey(key any, hasKeyAsString bool) string {
	if hasKeyAsString {
		if ms, ok := toInt(key); ok && ms%1000 == 0 {
			return time.Unix(ms/1000, 0).UTC().Format(dateFormat)
		}
	}

	switch k := key.(type) {
	case string:
		return k
	case json.Number:
		return k.String()
	case float64:
		return strconv.FormatFloat(k, 'f', -1, 64)
	}
	return fmt.Sprint(key)
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

func isContainer(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}

func copyWithout(m map[string]any, keys ...string) map[string]any {
	result := make(map[string]any, len(m))
	for k, v := range m {
		result[k] = v
	}
	for _, k := range keys {
		delete(result, k)
	}
	return result
}
