// Package config loads application configuration sections from files and
// environment variables and wires loading into the configure phase.
package config

import (
	"fmt"
	"reflect"
	"slices"
)

type section struct {
	name   string
	target any
}

// Loader feeds registered sections from its feeders, in the order they
// were added. Later feeders override earlier ones.
type Loader struct {
	feeders  []Feeder
	sections []section
}

// NewLoader creates a loader with the given feeders.
func NewLoader(feeders ...Feeder) *Loader {
	return &Loader{feeders: feeders}
}

// AddFeeder appends a feeder.
func (l *Loader) AddFeeder(f Feeder) *Loader {
	l.feeders = append(l.feeders, f)
	return l
}

// Register adds a section. An empty name feeds target from the whole source
// instead of a single key.
func (l *Loader) Register(name string, target any) error {
	if !isStructPointer(target) {
		return fmt.Errorf("%w: section %q", ErrInvalidTarget, name)
	}
	if slices.ContainsFunc(l.sections, func(s section) bool { return s.name == name }) {
		return fmt.Errorf("%w: %q", ErrSectionAlreadyRegistered, name)
	}
	l.sections = append(l.sections, section{name: name, target: target})
	return nil
}

// Section returns the target registered under name.
func (l *Loader) Section(name string) (any, bool) {
	for _, s := range l.sections {
		if s.name == name {
			return s.target, true
		}
	}
	return nil, false
}

// Sections returns the registered section names in registration order.
func (l *Loader) Sections() []string {
	names := make([]string, len(l.sections))
	for i, s := range l.sections {
		names[i] = s.name
	}
	return names
}

// Files returns the paths of all file backed feeders.
func (l *Loader) Files() []string {
	var files []string
	for _, f := range l.feeders {
		if ff, ok := f.(FileFeeder); ok {
			files = append(files, ff.File())
		}
	}
	return files
}

// Load applies defaults, runs every feeder over every section and then
// checks required fields.
func (l *Loader) Load() error {
	for _, s := range l.sections {
		if err := ProcessDefaults(s.target); err != nil {
			return fmt.Errorf("section %q: failed to process defaults: %w", s.name, err)
		}
		for _, f := range l.feeders {
			if err := feed(f, s); err != nil {
				return fmt.Errorf("section %q: %w", s.name, err)
			}
		}
		if err := ValidateRequired(s.target); err != nil {
			return fmt.Errorf("section %q: %w", s.name, err)
		}
	}
	return nil
}

func feed(f Feeder, s section) error {
	if kf, ok := f.(KeyFeeder); ok && s.name != "" {
		if err := kf.FeedKey(s.name, s.target); err != nil {
			return fmt.Errorf("feeder %T: %w", f, err)
		}
		return nil
	}
	if err := f.Feed(s.target); err != nil {
		return fmt.Errorf("feeder %T: %w", f, err)
	}
	return nil
}

func isStructPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && !rv.IsNil() && rv.Elem().Kind() == reflect.Struct
}
