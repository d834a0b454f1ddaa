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
package entry

import (
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"strings"
	"sync"
)

var (
	// ErrNameCollision is returned when two distinct source paths produce
	// the same entry name.
	ErrNameCollision = errors.New("entry name collision")
	// ErrNoBaseDir is returned when a registry is created without a base directory.
	ErrNoBaseDir = errors.New("entry registry requires a base directory")
)

// CollisionError describes a rejected add. It matches ErrNameCollision.
type CollisionError struct {
	Name     string
	Existing string
	Incoming string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("%v: %q already names %s, cannot also name %s", ErrNameCollision, e.Name, e.Existing, e.Incoming)
}

func (e *CollisionError) Is(target error) bool {
	return target == ErrNameCollision
}

// Predicate decides whether a relative path is an entry.
type Predicate func(relativePath string) bool

// AcceptAll is the default Predicate.
func AcceptAll(string) bool { return true }

// Registry maps entry names to absolute source paths, along with the inverse
// index from relative source path to entry name.
//
// A Registry is safe for concurrent use. The compiler holds the Registry
// itself (as a Source) and reads Entries at build time, so mutations made
// after the compiler was created are seen by the next build.
type Registry struct {
	baseDir string
	mode    Mode
	namer   Namer
	isEntry Predicate

	mu        sync.RWMutex
	entries   map[string]string // name -> absolute path
	resources map[string]string // relative path -> name
}

// Source is the live view of entries a compiler builds against.
type Source interface {
	// Entries returns the entries at the time of the call, name -> absolute path.
	Entries() map[string]string
}

var _ Source = (*Registry)(nil)

// Option configures a Registry.
type Option func(*Registry)

// WithNamer replaces the default HashNamer.
func WithNamer(n Namer) Option {
	return func(r *Registry) {
		if n != nil {
			r.namer = n
		}
	}
}

// WithPredicate sets the isEntry predicate. Paths it rejects are ignored by Add.
func WithPredicate(p Predicate) Option {
	return func(r *Registry) {
		if p != nil {
			r.isEntry = p
		}
	}
}

// NewRegistry creates an empty Registry rooted at baseDir.
func NewRegistry(baseDir string, mode Mode, opts ...Option) (*Registry, error) {
	if baseDir == "" {
		return nil, ErrNoBaseDir
	}
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("invalid base directory: %w", err)
	}
	r := &Registry{
		baseDir:   absBase,
		mode:      mode,
		namer:     HashNamer{},
		isEntry:   AcceptAll,
		entries:   make(map[string]string),
		resources: make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// BaseDir returns the absolute base directory.
func (r *Registry) BaseDir() string {
	return r.baseDir
}

// Mode returns the environment mode names are generated for.
func (r *Registry) Mode() Mode {
	return r.mode
}

// Add registers relativePath as an entry and returns its name.
// If the predicate rejects the path, Add returns "" and no error.
// Adding a path that is already registered is a no-op returning the same name.
// If the generated name already belongs to a different path, Add returns a
// *CollisionError and leaves the registry unchanged.
func (r *Registry) Add(relativePath string) (string, error) {
	rel, abs := r.resolve(relativePath)
	if !r.isEntry(rel) {
		return "", nil
	}

	name := r.namer.Name(rel, r.mode)

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[name]; ok && existing != abs {
		return "", &CollisionError{Name: name, Existing: existing, Incoming: abs}
	}
	r.entries[name] = abs
	r.resources[rel] = name
	return name, nil
}

// Remove unregisters an entry by name or by path and returns the names removed.
// Removing something that is not registered is a no-op.
func (r *Registry) Remove(nameOrPath string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var names []string
	if _, ok := r.entries[nameOrPath]; ok {
		names = append(names, nameOrPath)
	} else {
		_, abs := r.resolve(nameOrPath)
		for name, p := range r.entries {
			if p == abs {
				names = append(names, name)
			}
		}
	}
	if len(names) == 0 {
		return nil
	}

	removed := make(map[string]struct{}, len(names))
	for _, name := range names {
		delete(r.entries, name)
		removed[name] = struct{}{}
	}
	for rel, name := range r.resources {
		if _, ok := removed[name]; ok {
			delete(r.resources, rel)
		}
	}
	return names
}

// Entries returns a copy of the current entries, name -> absolute path.
// Compilers hold the Registry as a Source and call this at build time, never
// caching the result, so entries added after a compiler was created are
// part of its next build.
func (r *Registry) Entries() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.entries)
}

// Resources returns a copy of the resource index, relative path -> name.
func (r *Registry) Resources() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.resources)
}

// Lookup returns the absolute path registered under name.
func (r *Registry) Lookup(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.entries[name]
	return p, ok
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// resolve returns the normalized relative path and the absolute path for p,
// which may be relative to the base directory or absolute.
func (r *Registry) resolve(p string) (rel, abs string) {
	native := filepath.FromSlash(strings.ReplaceAll(p, "\\", "/"))
	if filepath.IsAbs(native) {
		abs = filepath.Clean(native)
		if relPath, err := filepath.Rel(r.baseDir, abs); err == nil {
			rel = filepath.ToSlash(relPath)
		} else {
			rel = filepath.ToSlash(abs)
		}
		return rel, abs
	}
	abs = filepath.Join(r.baseDir, native)
	if relPath, err := filepath.Rel(r.baseDir, abs); err == nil {
		rel = filepath.ToSlash(relPath)
	} else {
		rel = NormalizePath(p)
	}
	return rel, abs
}
