package filter

// PassthroughFilter term/terms/range/prefix 过滤器
// 条件直接引用字段名，字段名会加上 nested 作用域前缀
type PassthroughFilter struct {
	kind      Kind
	Field     string
	Condition any

	// Field 为空时原样输出
	Body any
}

func Term(field string, value any) *PassthroughFilter {
	return &PassthroughFilter{kind: KindTerm, Field: field, Condition: value}
}

func Terms(field string, values any) *PassthroughFilter {
	return &PassthroughFilter{kind: KindTerms, Field: field, Condition: values}
}

// Range 范围过滤，condition 形如 {"gt": 10, "lte": 20}
func Range(field string, condition map[string]any) *PassthroughFilter {
	return &PassthroughFilter{kind: KindRange, Field: field, Condition: condition}
}

func Prefix(field string, value any) *PassthroughFilter {
	return &PassthroughFilter{kind: KindPrefix, Field: field, Condition: value}
}

func newPassthrough(kind Kind, config any) *PassthroughFilter {
	f := &PassthroughFilter{kind: kind}

	m, ok := asMap(config)
	if !ok {
		f.Body = config
		return f
	}

	if field, ok := m["field"].(string); ok {
		f.Field = field
		f.Condition = m["condition"]
		return f
	}

	if len(m) == 1 {
		for field, condition := range m {
			f.Field = field
			f.Condition = condition
		}
		return f
	}

	f.Body = config
	return f
}

func (f *PassthroughFilter) Kind() Kind {
	return f.kind
}

func (f *PassthroughFilter) ToES(prefix string) map[string]any {
	if f.Field == "" {
		return map[string]any{string(f.kind): f.Body}
	}

	return map[string]any{
		string(f.kind): map[string]any{
			prefix + f.Field: f.Condition,
		},
	}
}
