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
package build

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// DefaultManifestFile is the manifest file name.
	DefaultManifestFile = "manifest.json"
	// DefaultResourcesFile is the resource-to-entry map file name.
	DefaultResourcesFile = "resources.json"
	// DefaultPublicPath is the URL prefix for emitted files.
	DefaultPublicPath = "/"
)

var (
	// ErrConfiguration marks invalid or missing configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrClosed is returned by operations on a closed Orchestrator.
	ErrClosed = errors.New("orchestrator is closed")
	// ErrCompilerFailure marks a hard compiler failure.
	ErrCompilerFailure = errors.New("compiler failure")
)

// CompilerError wraps a hard failure reported by the compiler.
// It matches ErrCompilerFailure.
type CompilerError struct {
	Op  string
	Err error
}

func (e *CompilerError) Error() string {
	return fmt.Sprintf("%v during %s: %v", ErrCompilerFailure, e.Op, e.Err)
}

func (e *CompilerError) Unwrap() error { return e.Err }

func (e *CompilerError) Is(target error) bool { return target == ErrCompilerFailure }

// PersistenceError reports a failure writing a build output file.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("writing %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Options configures an Orchestrator.
type Options struct {
	// OutputDir receives the compiler's output. Required.
	OutputDir string
	// ManifestDir receives the manifest and resource map.
	// Defaults to OutputDir.
	ManifestDir string
	// ManifestFile is the manifest file name within ManifestDir.
	ManifestFile string
	// ResourcesFile is the resource map file name within ManifestDir.
	ResourcesFile string
	// PublicPath is the URL prefix emitted files are served from.
	PublicPath string
	// ExtraExtensions are side-artifact extensions for manifest resolution.
	// Nil means manifest.DefaultExtraExtensions.
	ExtraExtensions []string
	// Compress asks the compiler for gzip variants.
	Compress bool
	// Splitting asks the compiler to extract shared chunks.
	Splitting bool
	// Logger receives build statistics and diagnostics. May be nil.
	Logger Logger
}

// Validate checks required settings and reports problems as ErrConfiguration.
func (o Options) Validate() error {
	var errs []error
	if strings.TrimSpace(o.OutputDir) == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	for _, name := range []string{o.ManifestFile, o.ResourcesFile} {
		if name != "" && filepath.IsAbs(name) {
			errs = append(errs, fmt.Errorf("%s must be relative to the manifest directory", name))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrConfiguration, errors.Join(errs...))
	}
	return nil
}

func (o Options) withDefaults() Options {
	if o.ManifestDir == "" {
		o.ManifestDir = o.OutputDir
	}
	if o.ManifestFile == "" {
		o.ManifestFile = DefaultManifestFile
	}
	if o.ResourcesFile == "" {
		o.ResourcesFile = DefaultResourcesFile
	}
	if o.PublicPath == "" {
		o.PublicPath = DefaultPublicPath
	}
	return o
}

// ManifestPath returns the path the manifest is written to.
func (o Options) ManifestPath() string {
	o = o.withDefaults()
	return filepath.Join(o.ManifestDir, o.ManifestFile)
}

// ResourcesPath returns the path the resource map is written to.
func (o Options) ResourcesPath() string {
	o = o.withDefaults()
	return filepath.Join(o.ManifestDir, o.ResourcesFile)
}
