package ref

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/hatlonely/esagg/cfg"
)

var errorInterface = reflect.TypeOf((*error)(nil)).Elem()

type constructor struct {
	originalFunc any
	newFunc      reflect.Value
	optionsType  reflect.Type
	returnsError bool
}

func newConstructor(newFunc any) (*constructor, error) {
	funcValue := reflect.ValueOf(newFunc)
	if funcValue.Kind() != reflect.Func {
		return nil, fmt.Errorf("newFunc must be a function")
	}

	funcType := funcValue.Type()
	numIn := funcType.NumIn()
	numOut := funcType.NumOut()

	// 0 个或 1 个参数
	if numIn != 0 && numIn != 1 {
		return nil, fmt.Errorf("newFunc must have 0 or 1 input parameters, got %d", numIn)
	}

	// 1 个或 2 个返回值，第二个必须是 error
	if numOut != 1 && numOut != 2 {
		return nil, fmt.Errorf("newFunc must have 1 or 2 return values, got %d", numOut)
	}
	if numOut == 2 && !funcType.Out(1).Implements(errorInterface) {
		return nil, fmt.Errorf("second return value must be error type")
	}

	c := &constructor{
		originalFunc: newFunc,
		newFunc:      funcValue,
		returnsError: numOut == 2,
	}
	if numIn == 1 {
		c.optionsType = funcType.In(0)
	}
	return c, nil
}

func (c *constructor) new(options any) (any, error) {
	var args []reflect.Value

	if c.optionsType != nil {
		value, err := c.convertOptions(options)
		if err != nil {
			return nil, err
		}
		args = []reflect.Value{value}
	}

	results := c.newFunc.Call(args)

	if c.returnsError {
		if errResult := results[1].Interface(); errResult != nil {
			return nil, errResult.(error)
		}
	}

	return results[0].Interface(), nil
}

// convertOptions 将 options 转换为构造函数期望的参数类型
// 类型匹配时直接使用；map 等通用数据通过 cfg 映射到目标结构体，并填充默认值、执行校验
func (c *constructor) convertOptions(options any) (reflect.Value, error) {
	if options != nil {
		value := reflect.ValueOf(options)
		if value.Type().AssignableTo(c.optionsType) {
			return value, nil
		}
	}

	isPtr := c.optionsType.Kind() == reflect.Ptr
	elemType := c.optionsType
	if isPtr {
		elemType = c.optionsType.Elem()
	}

	target := reflect.New(elemType)
	if options != nil {
		if err := cfg.Decode(options, target.Interface()); err != nil {
			return reflect.Value{}, fmt.Errorf("failed to convert options to %v: %w", c.optionsType, err)
		}
	}
	if elemType.Kind() == reflect.Struct {
		if err := cfg.SetDefaults(target.Interface()); err != nil {
			return reflect.Value{}, fmt.Errorf("failed to set defaults for %v: %w", c.optionsType, err)
		}
		if err := cfg.Validate(target.Interface()); err != nil {
			return reflect.Value{}, fmt.Errorf("invalid options for %v: %w", c.optionsType, err)
		}
	}

	if isPtr {
		return target, nil
	}
	return target.Elem(), nil
}

var nameConstructorMap sync.Map

func isSameFunc(func1, func2 any) bool {
	if func1 == nil || func2 == nil {
		return func1 == func2
	}
	return reflect.ValueOf(func1).Pointer() == reflect.ValueOf(func2).Pointer()
}

// Register 注册构造函数，同一个 key 重复注册相同函数时忽略
func Register(namespace string, type_ string, newFunc any) error {
	key := namespace + ":" + type_

	if existingValue, ok := nameConstructorMap.Load(key); ok {
		if existing, ok := existingValue.(*constructor); ok {
			if isSameFunc(existing.originalFunc, newFunc) {
				return nil
			}
			return fmt.Errorf("constructor for %s:%s already registered with different function", namespace, type_)
		}
	}

	constructor, err := newConstructor(newFunc)
	if err != nil {
		return fmt.Errorf("failed to create constructor: %w", err)
	}

	nameConstructorMap.Store(key, constructor)
	return nil
}

// RegisterT 以类型 T 的包路径和类型名作为 namespace 和 type 注册
func RegisterT[T any](newFunc any) error {
	namespace, type_, err := typeKey[T]()
	if err != nil {
		return err
	}
	return Register(namespace, type_, newFunc)
}

func MustRegister(namespace string, type_ string, newFunc any) {
	if err := Register(namespace, type_, newFunc); err != nil {
		panic(err)
	}
}

func MustRegisterT[T any](newFunc any) {
	if err := RegisterT[T](newFunc); err != nil {
		panic(err)
	}
}

type TypeOptions struct {
	Namespace string `cfg:"namespace"`
	Type      string `cfg:"type" validate:"required"`
	Options   any    `cfg:"options"`
}

func New(namespace string, type_ string, options any) (any, error) {
	key := namespace + ":" + type_
	value, ok := nameConstructorMap.Load(key)
	if !ok {
		return nil, fmt.Errorf("constructor not found for %s:%s", namespace, type_)
	}

	return value.(*constructor).new(options)
}

func NewT[T any](options any) (T, error) {
	var t T

	namespace, type_, err := typeKey[T]()
	if err != nil {
		return t, err
	}

	obj, err := New(namespace, type_, options)
	if err != nil {
		return t, err
	}

	result, ok := obj.(T)
	if !ok {
		return t, fmt.Errorf("created object is not of type %T", t)
	}
	return result, nil
}

func typeKey[T any]() (string, string, error) {
	tType := reflect.TypeOf((*T)(nil)).Elem()
	for tType.Kind() == reflect.Ptr {
		tType = tType.Elem()
	}

	if tType.PkgPath() == "" || tType.Name() == "" {
		return "", "", fmt.Errorf("cannot determine package path or type name for type %v", tType)
	}
	return tType.PkgPath(), tType.Name(), nil
}
