package filter

import (
	"github.com/pkg/errors"
)

// NotFilter 取反
type NotFilter struct {
	Filter Filter
}

func Not(f Filter) *NotFilter {
	return &NotFilter{Filter: f}
}

func newNot(config any) (Filter, error) {
	m, ok := asMap(config)
	if !ok {
		return nil, errors.WithMessagef(ErrInvalidFilterConfig, "not filter expects a map, got %T", config)
	}

	inner, err := fromType(m["type"], m["condition"])
	if err != nil {
		return nil, errors.WithMessage(err, "not filter")
	}
	return Not(inner), nil
}

func (f *NotFilter) Kind() Kind {
	return KindNot
}

func (f *NotFilter) ToES(prefix string) map[string]any {
	return map[string]any{
		"not": f.Filter.ToES(prefix),
	}
}

// OrFilter 任一分支满足，分支顺序保持不变
type OrFilter struct {
	Filters []Filter
}

func Or(filters ...Filter) *OrFilter {
	return &OrFilter{Filters: filters}
}

func newOr(config any) (Filter, error) {
	branches, ok := asList(config)
	if !ok {
		return nil, errors.WithMessagef(ErrInvalidFilterConfig, "or filter expects a list, got %T", config)
	}

	filters := make([]Filter, 0, len(branches))
	for i, branch := range branches {
		m, ok := asMap(branch)
		if !ok {
			return nil, errors.WithMessagef(ErrInvalidFilterConfig, "or filter branch %d expects a map, got %T", i, branch)
		}
		f, err := fromType(m["type"], m["condition"])
		if err != nil {
			return nil, errors.WithMessagef(err, "or filter branch %d", i)
		}
		filters = append(filters, f)
	}
	return Or(filters...), nil
}

func (f *OrFilter) Kind() Kind {
	return KindOr
}

func (f *OrFilter) ToES(prefix string) map[string]any {
	branches := make([]any, len(f.Filters))
	for i, branch := range f.Filters {
		branches[i] = branch.ToES(prefix)
	}
	return map[string]any{
		"or": branches,
	}
}

// NestedFilter 在 nested 文档上过滤，内部 passthrough 过滤器的字段名加上 path 前缀
// 多层 nested 时前缀逐层累加，输出的 path 保持调用方给出的原值
type NestedFilter struct {
	Path   string
	Filter Filter
}

func Nested(path string, f Filter) *NestedFilter {
	return &NestedFilter{Path: path, Filter: f}
}

func newNested(config any) (Filter, error) {
	m, ok := asMap(config)
	if !ok {
		return nil, errors.WithMessagef(ErrInvalidFilterConfig, "nested filter expects a map, got %T", config)
	}

	path, _ := m["path"].(string)
	if path == "" {
		return nil, errors.WithMessage(ErrInvalidFilterConfig, "nested filter requires path")
	}

	inner, err := fromType(m["type"], m["condition"])
	if err != nil {
		return nil, errors.WithMessagef(err, "nested filter %s", path)
	}
	return Nested(path, inner), nil
}

func (f *NestedFilter) Kind() Kind {
	return KindNested
}

func (f *NestedFilter) ToES(prefix string) map[string]any {
	return map[string]any{
		"nested": map[string]any{
			"path":   f.Path,
			"filter": f.Filter.ToES(prefix + f.Path + "."),
		},
	}
}

// RawFilter 原样输出的过滤器，用于未内置的过滤器类型
type RawFilter struct {
	Body map[string]any
}

func Raw(body map[string]any) *RawFilter {
	return &RawFilter{Body: body}
}

func (f *RawFilter) Kind() Kind {
	return KindRaw
}

func (f *RawFilter) ToES(prefix string) map[string]any {
	return f.Body
}
