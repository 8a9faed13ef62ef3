package internal

import "github.com/starford/sowilo/internal/watch"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	tenant    string
	onRebuild watch.RebuildCallback
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithTenant restricts the run to a single tenant instead of every tenant
// found on disk.
func WithTenant(tenant string) Option {
	return func(a *application) {
		a.tenant = tenant
	}
}

// WithOnRebuild registers a callback invoked after every watcher-triggered
// rebuild, with the rebuild error if any.
func WithOnRebuild(cb watch.RebuildCallback) Option {
	return func(a *application) {
		a.onRebuild = cb
	}
}
