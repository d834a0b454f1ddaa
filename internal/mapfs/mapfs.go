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

// Package mapfs is an in-memory fs.FileSystem for tests.
package mapfs

import (
	"errors"
	"io/fs"
	"path"
	"slices"
	"strings"
	"sync"
	"testing/fstest"
	"time"

	assetfs "bennypowers.dev/assetpipe/fs"
)

// errNotDir is reported when a path component is a regular file.
var errNotDir = errors.New("not a directory")

// keep marks an otherwise empty directory.
const keep = ".keep"

// MapFileSystem stores files in an fstest.MapFS keyed by unrooted,
// slash-separated paths. Absolute and relative names address the same file.
type MapFileSystem struct {
	mu      sync.RWMutex
	files   fstest.MapFS
	modTime time.Time
}

var _ assetfs.FileSystem = (*MapFileSystem)(nil)

// New returns an empty filesystem.
func New() *MapFileSystem {
	return &MapFileSystem{
		files:   make(fstest.MapFS),
		modTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// AddFile stores content at name without checking parent directories.
func (m *MapFileSystem) AddFile(name, content string, mode fs.FileMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[key(name)] = &fstest.MapFile{Data: []byte(content), Mode: mode, ModTime: m.modTime}
}

// AddDir creates an empty directory.
func (m *MapFileSystem) AddDir(name string, mode fs.FileMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path.Join(key(name), keep)] = &fstest.MapFile{Mode: mode.Perm(), ModTime: m.modTime}
}

// Paths lists every stored file, excluding directory markers, in order.
func (m *MapFileSystem) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for p := range m.files {
		if path.Base(p) != keep {
			out = append(out, "/"+p)
		}
	}
	slices.Sort(out)
	return out
}

func (m *MapFileSystem) WriteFile(name string, data []byte, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(name)
	if err := m.checkParentsLocked("write", k); err != nil {
		return err
	}
	m.files[k] = &fstest.MapFile{Data: slices.Clone(data), Mode: perm, ModTime: m.modTime}
	return nil
}

func (m *MapFileSystem) ReadFile(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fs.ReadFile(m.files, key(name))
}

func (m *MapFileSystem) Rename(oldpath, newpath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	from, to := key(oldpath), key(newpath)
	f, ok := m.files[from]
	if !ok {
		return &fs.PathError{Op: "rename", Path: oldpath, Err: fs.ErrNotExist}
	}
	if err := m.checkParentsLocked("rename", to); err != nil {
		return err
	}
	delete(m.files, from)
	m.files[to] = f
	return nil
}

func (m *MapFileSystem) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(name)
	if _, ok := m.files[k]; !ok {
		return &fs.PathError{Op: "remove", Path: name, Err: fs.ErrNotExist}
	}
	delete(m.files, k)
	return nil
}

func (m *MapFileSystem) MkdirAll(name string, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(name)
	if f, ok := m.files[k]; ok && !f.Mode.IsDir() {
		return &fs.PathError{Op: "mkdir", Path: name, Err: errNotDir}
	}
	if err := m.checkParentsLocked("mkdir", k); err != nil {
		return err
	}
	m.files[path.Join(k, keep)] = &fstest.MapFile{Mode: perm.Perm(), ModTime: m.modTime}
	return nil
}

func (m *MapFileSystem) ReadDir(name string) ([]fs.DirEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fs.ReadDir(m.files, key(name))
}

func (m *MapFileSystem) Stat(name string) (fs.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fs.Stat(m.files, key(name))
}

func (m *MapFileSystem) Exists(name string) bool {
	_, err := m.Stat(name)
	return err == nil
}

func (m *MapFileSystem) Open(name string) (fs.File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.files.Open(key(name))
}

// checkParentsLocked fails when any ancestor of k is a regular file.
func (m *MapFileSystem) checkParentsLocked(op, k string) error {
	for dir := path.Dir(k); dir != "." && dir != "/"; dir = path.Dir(dir) {
		if f, ok := m.files[dir]; ok && !f.Mode.IsDir() {
			return &fs.PathError{Op: op, Path: "/" + k, Err: errNotDir}
		}
	}
	return nil
}

// key maps a name to its fstest.MapFS key.
func key(name string) string {
	k := strings.TrimPrefix(path.Clean("/"+strings.ReplaceAll(name, "\\", "/")), "/")
	if k == "" {
		return "."
	}
	return k
}
