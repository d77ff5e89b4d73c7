package config

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sync"

	"github.com/GoCodeAlone/appkit"
	"github.com/fsnotify/fsnotify"
)

// Extension loads configuration before the configure phase body runs and
// optionally watches the loaded files while the application runs.
type Extension struct {
	loader   *Loader
	onChange func(path string)

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// ExtensionOption configures an Extension.
type ExtensionOption func(*Extension)

// WithWatch calls onChange whenever one of the loader's files is written
// or replaced between run and shutdown. The callback runs on the watcher
// goroutine.
func WithWatch(onChange func(path string)) ExtensionOption {
	return func(e *Extension) {
		e.onChange = onChange
	}
}

// NewExtension creates a configuration extension around loader.
func NewExtension(loader *Loader, opts ...ExtensionOption) *Extension {
	e := &Extension{loader: loader}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements appkit.Extension.
func (e *Extension) Name() string { return "config" }

// Loader returns the wrapped loader.
func (e *Extension) Loader() *Loader { return e.loader }

// ConfigurePre loads every registered section.
func (e *Extension) ConfigurePre(_ context.Context, _ appkit.Event, app *appkit.Application) error {
	if err := e.loader.Load(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	app.Logger().Info("Configuration loaded", "app", app.Name(), "sections", e.loader.Sections(), "files", e.loader.Files())
	return nil
}

// RunPre starts the file watcher when WithWatch was given.
func (e *Extension) RunPre(_ context.Context, _ appkit.Event, app *appkit.Application) error {
	if e.onChange == nil {
		return nil
	}
	files := e.loader.Files()
	if len(files) == 0 {
		return nil
	}
	return e.watch(app.Logger(), files)
}

// ShutdownPost stops the file watcher.
func (e *Extension) ShutdownPost(context.Context, appkit.Event, *appkit.Application, appkit.Result) error {
	return e.Close()
}

// Close stops the file watcher if it is running. It is safe to call more
// than once.
func (e *Extension) Close() error {
	e.mu.Lock()
	w, done := e.watcher, e.done
	e.watcher, e.done = nil, nil
	e.mu.Unlock()

	if w == nil {
		return nil
	}
	err := w.Close()
	<-done
	if err != nil {
		return fmt.Errorf("failed to close config watcher: %w", err)
	}
	return nil
}

func (e *Extension) watch(logger appkit.Logger, files []string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}

	// Directories are watched so that editors replacing the file are seen.
	watched := make([]string, 0, len(files))
	var dirs []string
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			_ = w.Close()
			return fmt.Errorf("failed to resolve %s: %w", f, err)
		}
		watched = append(watched, abs)
		if dir := filepath.Dir(abs); !slices.Contains(dirs, dir) {
			dirs = append(dirs, dir)
		}
	}
	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	done := make(chan struct{})
	e.mu.Lock()
	e.watcher, e.done = w, done
	e.mu.Unlock()

	go func() {
		defer close(done)
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				name, err := filepath.Abs(ev.Name)
				if err != nil || !slices.Contains(watched, name) {
					continue
				}
				logger.Info("Configuration file changed", "file", name)
				e.onChange(name)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("Configuration watch error", "error", err)
			}
		}
	}()

	logger.Debug("Watching configuration files", "files", watched)
	return nil
}

var (
	_ appkit.ConfigurePreHook = (*Extension)(nil)
	_ appkit.RunPreHook       = (*Extension)(nil)
	_ appkit.ShutdownPostHook = (*Extension)(nil)
)
