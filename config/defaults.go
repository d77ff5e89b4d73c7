package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"
)

var durationType = reflect.TypeFor[time.Duration]()

// ProcessDefaults sets every zero-valued field that carries a `default`
// tag. Nested structs are walked.
func ProcessDefaults(cfg any) error {
	if !isStructPointer(cfg) {
		return ErrInvalidTarget
	}
	return processStructDefaults(reflect.ValueOf(cfg).Elem())
}

func processStructDefaults(v reflect.Value) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)
		if !fieldType.IsExported() {
			continue
		}

		if field.Kind() == reflect.Struct {
			if err := processStructDefaults(field); err != nil {
				return err
			}
			continue
		}

		defaultVal, ok := fieldType.Tag.Lookup("default")
		if !ok || !field.IsZero() {
			continue
		}
		if err := setDefaultValue(field, defaultVal); err != nil {
			return fmt.Errorf("failed to set default for field '%s': %w", fieldType.Name, err)
		}
	}
	return nil
}

func setDefaultValue(field reflect.Value, defaultVal string) error {
	switch field.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return setFromString(field, defaultVal)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("%w: %s", ErrUnsupportedDefault, field.Type())
		}
		var strs []string
		if err := json.Unmarshal([]byte(defaultVal), &strs); err != nil {
			return fmt.Errorf("failed to unmarshal JSON array: %w", err)
		}
		slice := reflect.MakeSlice(field.Type(), len(strs), len(strs))
		for i, s := range strs {
			slice.Index(i).SetString(s)
		}
		field.Set(slice)
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedDefault, field.Kind())
	}
}

// ValidateRequired reports every field tagged `required:"true"` that is
// still zero.
func ValidateRequired(cfg any) error {
	if !isStructPointer(cfg) {
		return ErrInvalidTarget
	}

	var missing []string
	collectMissing(reflect.ValueOf(cfg).Elem(), "", &missing)
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrRequiredFieldMissing, strings.Join(missing, ", "))
	}
	return nil
}

func collectMissing(v reflect.Value, prefix string, missing *[]string) {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)
		if !fieldType.IsExported() {
			continue
		}

		name := prefix + fieldType.Name
		if field.Kind() == reflect.Struct {
			collectMissing(field, name+".", missing)
			continue
		}
		if fieldType.Tag.Get("required") == "true" && field.IsZero() {
			*missing = append(*missing, name)
		}
	}
}
