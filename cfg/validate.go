package cfg

import (
	"reflect"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate 使用 validate tag 校验结构体，非结构体和 nil 指针直接通过
func Validate(object any) error {
	rv := reflect.ValueOf(object)
	if !rv.IsValid() {
		return nil
	}
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	return validate.Struct(rv.Interface())
}
