package appkit

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
)

// singleton guards the construction of one blueprint type's application.
type singleton struct {
	once sync.Once
	app  atomic.Pointer[Application]
	err  error
}

// singletons maps a blueprint's reflect.Type to its *singleton.
var singletons sync.Map

// Instance returns the application for blueprint type T, building it on the
// first call: a zero T is allocated, options are applied and the create
// phase runs. Every later call returns the same *Application and ignores
// opts. If the first construction failed, later calls return the same error.
//
//	app, err := appkit.Instance[Service]()
//	if err != nil {
//		return err
//	}
//	return app.Main(ctx)
func Instance[T any, PT interface {
	*T
	Blueprint
}](opts ...Option) (*Application, error) {
	return getOrCreate(reflect.TypeFor[PT](), func() Blueprint { return PT(new(T)) }, opts)
}

// InstanceOf is Instance keyed by the dynamic type of bp. On the first call
// for that type bp becomes the application's blueprint; afterwards bp is
// ignored and the existing application is returned.
func InstanceOf(bp Blueprint, opts ...Option) (*Application, error) {
	if bp == nil {
		return nil, ErrNilBlueprint
	}
	return getOrCreate(reflect.TypeOf(bp), func() Blueprint { return bp }, opts)
}

// Lookup returns the application for blueprint type T if it has been built.
func Lookup[T any, PT interface {
	*T
	Blueprint
}]() (*Application, bool) {
	v, ok := singletons.Load(reflect.TypeFor[PT]())
	if !ok {
		return nil, false
	}
	app := v.(*singleton).app.Load()
	return app, app != nil
}

func getOrCreate(key reflect.Type, newBlueprint func() Blueprint, opts []Option) (*Application, error) {
	v, _ := singletons.LoadOrStore(key, &singleton{})
	s := v.(*singleton)

	s.once.Do(func() {
		app, err := build(newBlueprint(), opts)
		if err != nil {
			s.err = fmt.Errorf("build application %s: %w", key, err)
			return
		}
		s.app.Store(app)
	})

	if s.err != nil {
		return nil, s.err
	}
	return s.app.Load(), nil
}

func build(bp Blueprint, opts []Option) (*Application, error) {
	if bp == nil {
		return nil, ErrNilBlueprint
	}
	if bp.Name() == "" {
		return nil, fmt.Errorf("%w: %T has no name", ErrInvalidBlueprint, bp)
	}
	if bp.Version() == "" {
		return nil, fmt.Errorf("%w: %T has no version", ErrInvalidBlueprint, bp)
	}

	app := newApplication(bp)
	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, fmt.Errorf("failed to apply application option: %w", err)
		}
	}

	if err := app.create(); err != nil {
		return nil, err
	}
	return app, nil
}
