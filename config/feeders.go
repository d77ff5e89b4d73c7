package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/golobby/cast"
	gconfig "github.com/golobby/config/v3"
	"github.com/golobby/config/v3/pkg/feeder"
	"gopkg.in/yaml.v3"
)

// YAMLFile feeds configuration from a YAML file.
type YAMLFile struct {
	feeder.Yaml
}

// NewYAMLFile creates a feeder reading path.
func NewYAMLFile(path string) YAMLFile {
	return YAMLFile{feeder.Yaml{Path: path}}
}

// File implements FileFeeder.
func (y YAMLFile) File() string { return y.Path }

// FeedKey reads the file and feeds target from the value under key. A
// missing key leaves target untouched.
func (y YAMLFile) FeedKey(key string, target any) error {
	var all map[string]any
	if err := y.Feed(&all); err != nil {
		return fmt.Errorf("failed to read YAML: %w", err)
	}

	value, exists := all[key]
	if !exists {
		return nil
	}

	valueBytes, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	if err = yaml.Unmarshal(valueBytes, target); err != nil {
		return fmt.Errorf("failed to unmarshal value to target: %w", err)
	}
	return nil
}

// TOMLFile feeds configuration from a TOML file.
type TOMLFile struct {
	feeder.Toml
}

// NewTOMLFile creates a feeder reading path.
func NewTOMLFile(path string) TOMLFile {
	return TOMLFile{feeder.Toml{Path: path}}
}

// File implements FileFeeder.
func (t TOMLFile) File() string { return t.Path }

// FeedKey reads the file and feeds target from the table under key.
func (t TOMLFile) FeedKey(key string, target any) error {
	var all map[string]any
	if err := t.Feed(&all); err != nil {
		return fmt.Errorf("failed to read TOML: %w", err)
	}

	value, exists := all[key]
	if !exists {
		return nil
	}

	valueBytes, err := toml.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	if err = toml.Unmarshal(valueBytes, target); err != nil {
		return fmt.Errorf("failed to unmarshal value to target: %w", err)
	}
	return nil
}

// JSONFile feeds configuration from a JSON file. It has no section
// support and feeds the whole document into each target.
type JSONFile struct {
	feeder.Json
}

// NewJSONFile creates a feeder reading path.
func NewJSONFile(path string) JSONFile {
	return JSONFile{feeder.Json{Path: path}}
}

// File implements FileFeeder.
func (j JSONFile) File() string { return j.Path }

// DotEnvFile feeds fields tagged `env:"NAME"` from a .env file.
type DotEnvFile struct {
	feeder.DotEnv
}

// NewDotEnvFile creates a feeder reading path.
func NewDotEnvFile(path string) DotEnvFile {
	return DotEnvFile{feeder.DotEnv{Path: path}}
}

// File implements FileFeeder.
func (d DotEnvFile) File() string { return d.Path }

// Env feeds fields tagged `env:"NAME"` from the environment.
type Env struct{}

// Feed implements Feeder.
func (Env) Feed(target any) error {
	if err := gconfig.New().AddFeeder(feeder.Env{}).AddStruct(target).Feed(); err != nil {
		return fmt.Errorf("env: %w", err)
	}
	return nil
}

// PrefixedEnv feeds fields tagged `env:"NAME"` from PREFIX_NAME variables.
// Nested structs share the prefix.
type PrefixedEnv struct {
	Prefix string
}

// NewPrefixedEnv creates a feeder for prefix. The prefix is upper-cased.
func NewPrefixedEnv(prefix string) PrefixedEnv {
	return PrefixedEnv{Prefix: strings.ToUpper(strings.TrimSuffix(prefix, "_"))}
}

// Feed implements Feeder.
func (p PrefixedEnv) Feed(target any) error {
	if p.Prefix == "" {
		return ErrEmptyEnvPrefix
	}
	if !isStructPointer(target) {
		return ErrInvalidTarget
	}
	return p.fillStruct(reflect.ValueOf(target).Elem())
}

func (p PrefixedEnv) fillStruct(rv reflect.Value) error {
	for i := 0; i < rv.NumField(); i++ {
		field := rv.Field(i)
		fieldType := rv.Type().Field(i)
		if !fieldType.IsExported() {
			continue
		}

		switch {
		case field.Kind() == reflect.Struct:
			if err := p.fillStruct(field); err != nil {
				return err
			}
		case field.Kind() == reflect.Pointer && !field.IsNil() && field.Elem().Kind() == reflect.Struct:
			if err := p.fillStruct(field.Elem()); err != nil {
				return err
			}
		default:
			tag, ok := fieldType.Tag.Lookup("env")
			if !ok {
				continue
			}
			value, ok := os.LookupEnv(p.Prefix + "_" + strings.ToUpper(tag))
			if !ok || value == "" {
				continue
			}
			if err := setFromString(field, value); err != nil {
				return fmt.Errorf("error in field '%s': %w", fieldType.Name, err)
			}
		}
	}
	return nil
}

// setFromString converts value to the field's type with cast and assigns it.
// Durations are parsed with time.ParseDuration since cast has no support
// for them.
func setFromString(field reflect.Value, value string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("failed to parse duration: %w", err)
		}
		field.SetInt(int64(d))
		return nil
	}

	converted, err := cast.FromType(value, field.Type())
	if err != nil {
		return fmt.Errorf("cannot convert value to type %v: %w", field.Type(), err)
	}
	field.Set(reflect.ValueOf(converted).Convert(field.Type()))
	return nil
}
