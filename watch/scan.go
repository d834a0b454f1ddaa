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

// Package watch discovers candidate source files under a base directory and
// turns file-system changes into build events.
package watch

import (
	"fmt"
	iofs "io/fs"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"bennypowers.dev/assetpipe/build"
	"bennypowers.dev/assetpipe/fs"
)

var (
	// DefaultPatterns select every script under the base directory.
	DefaultPatterns = []string{"**/*.js", "**/*.mjs"}
	// DefaultExtensions are the source extensions routed to the registry.
	DefaultExtensions = []string{".mjs", ".js"}
	// DefaultIgnore skips dependency and VCS directories.
	DefaultIgnore = []string{"**/node_modules/**", "**/.git/**"}
)

// Matcher selects candidate files by relative, forward-slash path.
type Matcher struct {
	// Patterns are doublestar globs; a file must match one of them.
	Patterns []string
	// Extensions a file must end in. Empty accepts any extension.
	Extensions []string
	// Ignore are doublestar globs for files and directories to skip.
	Ignore []string
}

// DefaultMatcher returns a Matcher with the default patterns, extensions and
// ignore list.
func DefaultMatcher() Matcher {
	return Matcher{
		Patterns:   slices.Clone(DefaultPatterns),
		Extensions: slices.Clone(DefaultExtensions),
		Ignore:     slices.Clone(DefaultIgnore),
	}
}

// Validate reports malformed glob patterns.
func (m Matcher) Validate() error {
	for _, p := range slices.Concat(m.Patterns, m.Ignore) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid glob pattern %q", p)
		}
	}
	return nil
}

// Match reports whether rel is a candidate file.
func (m Matcher) Match(rel string) bool {
	rel = filepath.ToSlash(rel)
	if m.Ignored(rel) {
		return false
	}
	if len(m.Extensions) > 0 && !slices.Contains(m.Extensions, path.Ext(rel)) {
		return false
	}
	for _, p := range m.Patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// Ignored reports whether rel, a file or directory, is excluded.
func (m Matcher) Ignored(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, p := range m.Ignore {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
		// "dir/**" also covers "dir" itself.
		if base, ok := strings.CutSuffix(p, "/**"); ok {
			if ok, _ := doublestar.Match(base, rel); ok {
				return true
			}
		}
	}
	return false
}

// Scan finds the candidate files under baseDir and returns one Init event
// per file, in path order.
func Scan(fsys fs.FileSystem, baseDir string, m Matcher) ([]build.Event, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	root := dirFS{fsys: fsys, dir: baseDir}

	seen := make(map[string]struct{})
	for _, pattern := range m.Patterns {
		matches, err := doublestar.Glob(root, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("scanning %s for %s: %w", baseDir, pattern, err)
		}
		for _, rel := range matches {
			if m.Match(rel) {
				seen[rel] = struct{}{}
			}
		}
	}

	paths := make([]string, 0, len(seen))
	for rel := range seen {
		paths = append(paths, rel)
	}
	slices.Sort(paths)

	events := make([]build.Event, len(paths))
	for i, rel := range paths {
		events[i] = build.Event{Kind: build.Init, Path: rel}
	}
	return events, nil
}

// dirFS exposes a directory of a FileSystem as an io/fs.FS rooted at dir.
type dirFS struct {
	fsys fs.FileSystem
	dir  string
}

func (d dirFS) join(name string) (string, error) {
	if !iofs.ValidPath(name) {
		return "", &iofs.PathError{Op: "open", Path: name, Err: iofs.ErrInvalid}
	}
	return filepath.Join(d.dir, filepath.FromSlash(name)), nil
}

func (d dirFS) Open(name string) (iofs.File, error) {
	p, err := d.join(name)
	if err != nil {
		return nil, err
	}
	return d.fsys.Open(p)
}

func (d dirFS) ReadDir(name string) ([]iofs.DirEntry, error) {
	p, err := d.join(name)
	if err != nil {
		return nil, err
	}
	return d.fsys.ReadDir(p)
}

func (d dirFS) Stat(name string) (iofs.FileInfo, error) {
	p, err := d.join(name)
	if err != nil {
		return nil, err
	}
	return d.fsys.Stat(p)
}
