/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package build drives a compiler over the entries of a registry, once or in
// watch mode, and persists the resulting manifest and resource map.
package build

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"

	"bennypowers.dev/assetpipe/compiler"
	"bennypowers.dev/assetpipe/entry"
	"bennypowers.dev/assetpipe/fs"
	"bennypowers.dev/assetpipe/manifest"
)

// Logger is an interface for logging messages during builds.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warning(format string, args ...any)
	Error(format string, args ...any)
}

// Orchestrator owns the compiler and watch session for one registry.
// Construct one per build pipeline and share it with every file event source.
type Orchestrator struct {
	fs       fs.FileSystem
	registry *entry.Registry
	factory  compiler.Factory
	opts     Options
	logger   Logger
	resolver *manifest.Resolver

	mu       sync.Mutex
	compiler compiler.Compiler
	session  compiler.Session
	ready    chan struct{} // closed after the first watch cycle completes
	done     chan struct{} // closed by Close
	closed   bool

	assetsMu     sync.Mutex
	moduleAssets map[string]string // emitted file -> module request

	persistMu sync.Mutex
	last      manifest.Manifest
}

// New creates an Orchestrator. The compiler is not created until the first
// build is requested.
func New(fsys fs.FileSystem, reg *entry.Registry, factory compiler.Factory, opts Options) (*Orchestrator, error) {
	if reg == nil {
		return nil, fmt.Errorf("%w: nil entry registry", ErrConfiguration)
	}
	if factory == nil {
		return nil, fmt.Errorf("%w: nil compiler factory", ErrConfiguration)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	resolver := manifest.NewResolver()
	if opts.ExtraExtensions != nil {
		resolver = resolver.WithExtraExtensions(opts.ExtraExtensions)
	}

	return &Orchestrator{
		fs:           fsys,
		registry:     reg,
		factory:      factory,
		opts:         opts,
		logger:       opts.Logger,
		resolver:     resolver,
		done:         make(chan struct{}),
		moduleAssets: make(map[string]string),
	}, nil
}

// Registry returns the registry builds run against.
func (o *Orchestrator) Registry() *entry.Registry {
	return o.registry
}

// Manifest returns a copy of the last persisted manifest, or nil before the
// first successful cycle.
func (o *Orchestrator) Manifest() manifest.Manifest {
	o.persistMu.Lock()
	defer o.persistMu.Unlock()
	return o.last.Clone()
}

// Handle applies a single file event to the registry.
// Init and Add register the file; Unlink unregisters it.
func (o *Orchestrator) Handle(ev Event) error {
	switch ev.Kind {
	case Init, Add:
		name, err := o.registry.Add(ev.Path)
		if err != nil {
			return err
		}
		if name != "" && o.logger != nil {
			o.logger.Debug("Tracking %s as %s", ev.Path, name)
		}
	case Unlink:
		for _, name := range o.registry.Remove(ev.Path) {
			if o.logger != nil {
				o.logger.Debug("Untracked %s (%s)", ev.Path, name)
			}
		}
	default:
		return fmt.Errorf("unknown file event %v", ev.Kind)
	}
	return nil
}

// Process handles one batch of file events and requests a build.
//
// In watch mode the watch session is started first, if it is not running
// yet, and invalidated after the events are applied. Otherwise the events
// are applied and a one-shot build runs. The resource map is written once
// the build request succeeds.
func (o *Orchestrator) Process(ctx context.Context, events []Event, watch bool) error {
	if watch {
		if err := o.ensureWatching(ctx); err != nil {
			return err
		}
	}

	var errs []error
	for _, ev := range events {
		if err := o.Handle(ev); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ev, err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	var err error
	if watch {
		err = o.invalidate(ctx)
	} else {
		err = o.Run(ctx)
	}
	if err != nil {
		return err
	}

	o.persistMu.Lock()
	defer o.persistMu.Unlock()
	return o.writeResources(o.registry.Resources())
}

// Run performs a one-shot build. A hard compiler failure is returned as a
// *CompilerError and leaves the previous manifest on disk untouched.
func (o *Orchestrator) Run(ctx context.Context) error {
	c, err := o.getCompiler()
	if err != nil {
		return err
	}

	stats, err := c.Run(ctx)
	o.logStats(stats, err)
	if err != nil {
		return &CompilerError{Op: "run", Err: err}
	}
	return o.complete(stats)
}

// Watch starts the watch session on first use and otherwise asks the
// running session to rebuild with the current entries.
func (o *Orchestrator) Watch(ctx context.Context) error {
	if err := o.ensureWatching(ctx); err != nil {
		return err
	}
	return o.invalidate(ctx)
}

// Close stops the watch session, if any. Further builds fail with ErrClosed.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	close(o.done)
	if o.session != nil {
		return o.session.Close()
	}
	return nil
}

// getCompiler returns the compiler, creating it on first use.
func (o *Orchestrator) getCompiler() (compiler.Compiler, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.compilerLocked()
}

func (o *Orchestrator) compilerLocked() (compiler.Compiler, error) {
	if o.closed {
		return nil, ErrClosed
	}
	if o.compiler != nil {
		return o.compiler, nil
	}
	c, err := o.factory(compiler.Config{
		Mode:       o.registry.Mode(),
		Entries:    o.registry,
		ContextDir: o.registry.BaseDir(),
		OutputDir:  o.opts.OutputDir,
		PublicPath: o.opts.PublicPath,
		Compress:   o.opts.Compress,
		Splitting:  o.opts.Splitting,
		Hooks: compiler.Hooks{
			ModuleAsset: o.recordModuleAsset,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating compiler: %w", ErrConfiguration, err)
	}
	o.compiler = c
	return c, nil
}

// ensureWatching starts the single watch session and waits for its first
// cycle. Concurrent callers share the same session.
func (o *Orchestrator) ensureWatching(ctx context.Context) error {
	o.mu.Lock()
	if o.session == nil {
		c, err := o.compilerLocked()
		if err != nil {
			o.mu.Unlock()
			return err
		}
		ready := make(chan struct{})
		var first sync.Once
		session, err := c.Watch(ctx, func(stats compiler.Stats, err error) {
			o.onWatchBuild(stats, err)
			first.Do(func() { close(ready) })
		})
		if err != nil {
			o.mu.Unlock()
			return &CompilerError{Op: "watch", Err: err}
		}
		o.session = session
		o.ready = ready
	}
	ready := o.ready
	o.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-o.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) invalidate(ctx context.Context) error {
	o.mu.Lock()
	session, closed := o.session, o.closed
	o.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if session == nil {
		return nil
	}
	if err := session.Invalidate(ctx); err != nil {
		return &CompilerError{Op: "invalidate", Err: err}
	}
	return nil
}

// onWatchBuild handles a completed watch cycle. Failures are logged only;
// the session stays alive for the next change.
func (o *Orchestrator) onWatchBuild(stats compiler.Stats, err error) {
	o.logStats(stats, err)
	if err != nil {
		return
	}
	if err := o.complete(stats); err != nil && o.logger != nil {
		o.logger.Error("%v", err)
	}
}

// complete resolves the manifest for a finished build and persists it
// together with the resource map.
func (o *Orchestrator) complete(stats compiler.Stats) error {
	if stats == nil {
		return &CompilerError{Op: "emit", Err: errors.New("compiler reported no stats")}
	}
	m := o.resolver.Resolve(stats.Output(), o.moduleAssetIndex())
	resources := o.registry.Resources()

	o.persistMu.Lock()
	defer o.persistMu.Unlock()

	if err := o.persist(m, resources); err != nil {
		return err
	}
	if o.last != nil && o.logger != nil {
		switch diff, err := manifest.Diff(o.last, m); {
		case err != nil:
			o.logger.Debug("Could not diff manifests: %v", err)
		case diff != "":
			o.logger.Debug("Manifest changed:\n%s", diff)
		}
	}
	o.last = m
	return nil
}

func (o *Orchestrator) recordModuleAsset(request, file string) {
	o.assetsMu.Lock()
	defer o.assetsMu.Unlock()
	o.moduleAssets[file] = request
}

func (o *Orchestrator) moduleAssetIndex() map[string]string {
	o.assetsMu.Lock()
	defer o.assetsMu.Unlock()
	return maps.Clone(o.moduleAssets)
}

func (o *Orchestrator) logStats(stats compiler.Stats, err error) {
	if o.logger == nil {
		return
	}
	if err != nil {
		o.logger.Error("Build failed: %v", err)
		return
	}
	if stats == nil {
		return
	}
	if stats.HasErrors() {
		for _, msg := range stats.Errors() {
			o.logger.Error("%s", msg)
		}
	}
	if stats.HasWarnings() {
		for _, msg := range stats.Warnings() {
			o.logger.Warning("%s", msg)
		}
	}
	if report := stats.String(); report != "" {
		o.logger.Info("%s", report)
	}
}
