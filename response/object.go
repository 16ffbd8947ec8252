package response

import (
	"bytes"
	"encoding/json"
)

// Entry 有序结果中的一个键值对
type Entry struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Object 保持插入顺序的结果映射
type Object struct {
	keys   []string
	values map[string]any
}

func NewObject() *Object {
	return &Object{values: map[string]any{}}
}

// Set 已存在的键保留原位置
func (o *Object) Set(key string, value any) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

func (o *Object) Get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

func (o *Object) Keys() []string {
	return append([]string(nil), o.keys...)
}

func (o *Object) Len() int {
	return len(o.keys)
}

// ToMap 递归转换为普通 map，丢失顺序
func (o *Object) ToMap() map[string]any {
	result := make(map[string]any, len(o.keys))
	for _, k := range o.keys {
		result[k] = toPlain(o.values[k], func(obj *Object) any { return obj.ToMap() })
	}
	return result
}

// ToArray 递归转换为有序的键值对列表
func (o *Object) ToArray() []Entry {
	result := make([]Entry, 0, len(o.keys))
	for _, k := range o.keys {
		result = append(result, Entry{
			Key:   k,
			Value: toPlain(o.values[k], func(obj *Object) any { return obj.ToArray() }),
		})
	}
	return result
}

func toPlain(v any, convert func(*Object) any) any {
	switch val := v.(type) {
	case *Object:
		return convert(val)
	case []any:
		l := make([]any, len(val))
		for i := range val {
			l[i] = toPlain(val[i], convert)
		}
		return l
	}
	return v
}

// MarshalJSON 按插入顺序输出键
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kbuf, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kbuf)
		buf.WriteByte(':')
		vbuf, err := json.Marshal(o.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vbuf)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
