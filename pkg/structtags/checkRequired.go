package structtags

import (
	"errors"
	"fmt"
	"reflect"
	"time"
)

// ErrRequired is wrapped by every error returned from CheckRequired.
var ErrRequired = errors.New("required field is empty")

// recursively goes through the struct s and check if all fields that have the `required` tag set are not empty/nil
// the tag value is used as the error message; `required:"true"` produces a generic message naming the field
// for pointers, the item is considered empty if the pointer is nil
// for slices and maps, it is considered to be empty if nil or len=0
// for strings (not pointers), it is considered to be empty if string is empty (len=0)
// numbers and bools are never considered empty, as zero is a legal value for every numeric parameter we carry
// for time.Time (not pointers), it is considered to be empty if time is zero value (time.IsZero() check)
func CheckRequired(s any) error {
	val := reflect.ValueOf(s)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return fmt.Errorf("input must not be nil")
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return fmt.Errorf("input must be a struct")
	}

	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		if !fieldType.IsExported() {
			continue
		}

		if msg := fieldType.Tag.Get("required"); msg != "" {
			if isEmpty(field) {
				if msg == "true" {
					return fmt.Errorf("%w: %s", ErrRequired, fieldType.Name)
				}
				return fmt.Errorf("%w: %s", ErrRequired, msg)
			}
		}

		// recursively check nested structs
		if field.Type() != reflect.TypeOf(time.Time{}) {
			if field.Kind() == reflect.Struct {
				if err := CheckRequired(field.Interface()); err != nil {
					return err
				}
			} else if field.Kind() == reflect.Ptr && !field.IsNil() && field.Elem().Kind() == reflect.Struct {
				if err := CheckRequired(field.Interface()); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.Slice, reflect.Map:
		return v.IsNil() || v.Len() == 0
	case reflect.String:
		return v.String() == ""
	case reflect.Struct:
		if v.Type() == reflect.TypeOf(time.Time{}) {
			return v.Interface().(time.Time).IsZero()
		}
	}
	return false
}
