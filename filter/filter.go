package filter

import (
	"github.com/pkg/errors"
)

var (
	ErrInvalidFilterKind   = errors.New("invalid filter kind")
	ErrInvalidFilterConfig = errors.New("invalid filter config")
)

// Kind 过滤器类型
type Kind string

const (
	KindTerm   Kind = "term"
	KindTerms  Kind = "terms"
	KindRange  Kind = "range"
	KindPrefix Kind = "prefix"
	KindNot    Kind = "not"
	KindOr     Kind = "or"
	KindNested Kind = "nested"
	KindRaw    Kind = "raw"
)

// Filter 过滤器节点
type Filter interface {
	Kind() Kind

	// ToES 渲染为 ES filter DSL
	// prefix 是当前 nested 作用域的字段前缀（如 "link."），顶层为空字符串
	ToES(prefix string) map[string]any
}

// New 根据过滤器类型和配置构造过滤器
//
//	term/terms/range/prefix: {"field": f, "condition": c} 或单键 {f: c}
//	not:                     {"type": kind, "condition": c}
//	or:                      [{"type": kind, "condition": c}, {"type": {...原始过滤器}}]
//	nested:                  {"path": p, "type": kind, "condition": c}
func New(kind string, config any) (Filter, error) {
	switch Kind(kind) {
	case KindTerm, KindTerms, KindRange, KindPrefix:
		return newPassthrough(Kind(kind), config), nil
	case KindNot:
		return newNot(config)
	case KindOr:
		return newOr(config)
	case KindNested:
		return newNested(config)
	}

	return nil, errors.WithMessagef(ErrInvalidFilterKind, "filter kind %q", kind)
}

// Render 在顶层作用域渲染过滤器
func Render(f Filter) map[string]any {
	return f.ToES("")
}

// fromType 解析复合过滤器中的 type 字段：字符串为过滤器类型，map 为原始过滤器
func fromType(t any, condition any) (Filter, error) {
	switch v := t.(type) {
	case string:
		return New(v, condition)
	case map[string]any:
		return Raw(v), nil
	case nil:
		return nil, errors.WithMessage(ErrInvalidFilterConfig, "missing type")
	}
	return nil, errors.WithMessagef(ErrInvalidFilterConfig, "unsupported type %T", t)
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []map[string]any:
		list := make([]any, len(l))
		for i := range l {
			list[i] = l[i]
		}
		return list, true
	}
	return nil, false
}
