package aggregation

import (
	"strconv"
)

// Steps 按插入顺序保存的聚合步骤
type Steps []*Step

// Next 下一个步骤的序号
func (s Steps) Next() int {
	return len(s) + 1
}

// Build 从最新的步骤开始向前折叠，生成嵌套的 aggs 树
// 后加入的步骤嵌套得更深；metric 和 merged 步骤作为所在层级的兄弟节点，不增加深度
// 没有步骤时返回 nil
func (s Steps) Build() map[string]any {
	if len(s) == 0 {
		return nil
	}

	metricNames := s.metricNames()

	var aggs map[string]any
	for i := len(s) - 1; i >= 0; i-- {
		step := s[i]

		switch step.Kind {
		case KindMetric:
			if aggs == nil {
				aggs = map[string]any{}
			}
			aggs[metricNames[i]] = step.Body
		case KindMerged:
			if aggs == nil {
				aggs = map[string]any{}
			}
			for name, body := range step.Body {
				aggs[name] = body
			}
		default:
			body := copyMap(step.Body)
			if len(aggs) > 0 {
				body["aggs"] = aggs
			}
			aggs = map[string]any{step.Name: body}
		}
	}

	return aggs
}

// metricNames 计算每个 metric 步骤的输出名称，同字段的序号按加入顺序从 1 开始
func (s Steps) metricNames() map[int]string {
	total := map[string]int{}
	for _, step := range s {
		if step.Kind == KindMetric {
			total[step.Field]++
		}
	}

	names := map[int]string{}
	seen := map[string]int{}
	for i, step := range s {
		if step.Kind != KindMetric {
			continue
		}
		seen[step.Field]++
		name := step.Field + "_metric"
		if total[step.Field] > 1 {
			name += "_" + strconv.Itoa(seen[step.Field])
		}
		names[i] = name
	}
	return names
}

// Depth 请求中 aggs 树的嵌套层数
func Depth(aggs map[string]any) int {
	depth := 0
	for len(aggs) > 0 {
		depth++
		var next map[string]any
		for _, v := range aggs {
			body, ok := v.(map[string]any)
			if !ok {
				continue
			}
			if child, ok := body["aggs"].(map[string]any); ok {
				next = child
				break
			}
		}
		aggs = next
	}
	return depth
}
