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
package watch

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"bennypowers.dev/assetpipe/build"
)

// DefaultDebounce is how long the watcher waits for further changes before
// delivering a batch.
const DefaultDebounce = 100 * time.Millisecond

// BatchFunc receives one debounced batch of events. An error is logged and
// watching continues.
type BatchFunc func(ctx context.Context, events []build.Event) error

// Watcher turns file additions and removals under a directory tree into
// Add and Unlink events. Content changes are not reported; the compiler
// tracks those itself.
type Watcher struct {
	baseDir  string
	matcher  Matcher
	debounce time.Duration
	logger   build.Logger

	fw    *fsnotify.Watcher
	known map[string]struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the batching delay.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger for watch errors and rejected batches.
func WithLogger(l build.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// New watches every directory under baseDir that the matcher does not ignore.
func New(baseDir string, m Matcher, opts ...Option) (*Watcher, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("invalid base directory: %w", err)
	}
	if info, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("invalid base directory: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("invalid base directory: %s is not a directory", abs)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	w := &Watcher{
		baseDir:  abs,
		matcher:  m,
		debounce: DefaultDebounce,
		fw:       fw,
		known:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	files, err := w.addTree(abs)
	if err != nil {
		fw.Close()
		return nil, err
	}
	for _, f := range files {
		w.known[f] = struct{}{}
	}
	return w, nil
}

// Run delivers batches to handle until ctx is done, then closes the watcher.
// Run must not be called more than once.
func (w *Watcher) Run(ctx context.Context, handle BatchFunc) error {
	defer w.fw.Close()

	pending := make(map[string]build.EventKind)
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if w.collect(ev, pending) {
				timer.Reset(w.debounce)
				fire = timer.C
			}

		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.warn("File watcher error: %v", err)

		case <-fire:
			fire = nil
			batch := drain(pending)
			if len(batch) == 0 {
				continue
			}
			if err := handle(ctx, batch); err != nil && w.logger != nil {
				w.logger.Error("%v", err)
			}
		}
	}
}

// Close stops watching. Run closes the watcher itself when it returns.
func (w *Watcher) Close() error {
	return w.fw.Close()
}

// collect folds one notification into pending and reports whether anything
// changed.
func (w *Watcher) collect(ev fsnotify.Event, pending map[string]build.EventKind) bool {
	rel, err := filepath.Rel(w.baseDir, ev.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	rel = filepath.ToSlash(rel)

	switch {
	case ev.Has(fsnotify.Create):
		info, err := os.Stat(ev.Name)
		if err != nil {
			return false
		}
		if info.IsDir() {
			if w.matcher.Ignored(rel) {
				return false
			}
			files, err := w.addTree(ev.Name)
			if err != nil {
				w.warn("Watching %s: %v", rel, err)
			}
			for _, f := range files {
				w.track(f, pending)
			}
			return len(files) > 0
		}
		if !w.matcher.Match(rel) {
			return false
		}
		w.track(rel, pending)
		return true

	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		changed := false
		prefix := rel + "/"
		for p := range w.known {
			if p == rel || strings.HasPrefix(p, prefix) {
				delete(w.known, p)
				pending[p] = build.Unlink
				changed = true
			}
		}
		return changed
	}
	return false
}

func (w *Watcher) track(rel string, pending map[string]build.EventKind) {
	w.known[rel] = struct{}{}
	pending[rel] = build.Add
}

// addTree watches dir and its subdirectories, returning the candidate files
// found in them.
func (w *Watcher) addTree(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d iofs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			return nil
		}
		rel, relErr := filepath.Rel(w.baseDir, p)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if rel != "." && w.matcher.Ignored(rel) {
				return filepath.SkipDir
			}
			return w.fw.Add(p)
		}
		if w.matcher.Match(rel) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil && !errors.Is(err, iofs.ErrNotExist) {
		return files, fmt.Errorf("watching %s: %w", dir, err)
	}
	return files, nil
}

func (w *Watcher) warn(format string, args ...any) {
	if w.logger != nil {
		w.logger.Warning(format, args...)
	}
}

// drain empties pending into path-ordered events.
func drain(pending map[string]build.EventKind) []build.Event {
	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	events := make([]build.Event, len(paths))
	for i, p := range paths {
		events[i] = build.Event{Kind: pending[p], Path: p}
		delete(pending, p)
	}
	return events
}
