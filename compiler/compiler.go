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

// Package compiler defines the boundary between the build orchestrator and
// the bundler that turns entries into output files.
package compiler

import (
	"context"

	"bennypowers.dev/assetpipe/entry"
)

// Compiler builds the entries of a Source, once or continuously.
type Compiler interface {
	// Run performs a single build and blocks until it completes.
	// A non-nil error is a hard failure; diagnostics are reported in Stats.
	Run(ctx context.Context) (Stats, error)

	// Watch starts a watch session. onBuild is called after every completed
	// build cycle, including the first, from a goroutine owned by the compiler.
	// ctx governs startup only; the session runs until it is closed.
	Watch(ctx context.Context, onBuild BuildFunc) (Session, error)
}

// BuildFunc receives the result of one completed build cycle.
type BuildFunc func(stats Stats, err error)

// Session is a running watch session.
type Session interface {
	// Invalidate asks the session to rebuild when ready, picking up the
	// current entries. It returns once the request has been acknowledged;
	// the rebuild itself is reported through the session's BuildFunc.
	Invalidate(ctx context.Context) error

	// Close stops watching.
	Close() error
}

// Stats describes one completed build.
type Stats interface {
	HasErrors() bool
	HasWarnings() bool
	Errors() []string
	Warnings() []string
	// Output is the raw description of emitted chunks and assets.
	Output() Output
	// String is a human-readable report.
	String() string
}

// Output is the raw per-build output description.
type Output struct {
	Chunks []Chunk `json:"chunks"`
	Assets []Asset `json:"assets"`
}

// Chunk is a named group of emitted files. Files are in emission order and
// relative to the output directory.
type Chunk struct {
	Name  string   `json:"name"`
	Files []string `json:"files"`
}

// Asset is any file emitted by a build, relative to the output directory.
type Asset struct {
	Name string `json:"name"`
}

// Hooks are the observation points a compiler reports to during a build.
type Hooks struct {
	// ModuleAsset is called for each auxiliary file emitted by a source
	// module rather than by a chunk. request is the module's path relative
	// to the context directory; file is relative to the output directory.
	ModuleAsset func(request, file string)
}

// Config is everything a Factory needs to construct a Compiler.
type Config struct {
	Mode entry.Mode
	// Entries is read at build time, never copied at construction.
	Entries entry.Source
	// ContextDir is the directory source paths are resolved against.
	ContextDir string
	// OutputDir receives the emitted files.
	OutputDir string
	// PublicPath is the URL prefix emitted files are served from.
	PublicPath string
	// Compress emits gzip variants of script and style outputs.
	Compress bool
	// Splitting extracts shared code into separate chunks.
	Splitting bool
	Hooks     Hooks
}

// Factory constructs a Compiler.
type Factory func(cfg Config) (Compiler, error)

// StaticStats is a plain Stats value.
type StaticStats struct {
	ErrorMessages   []string
	WarningMessages []string
	Raw             Output
	Report          string
}

var _ Stats = (*StaticStats)(nil)

func (s *StaticStats) HasErrors() bool    { return len(s.ErrorMessages) > 0 }
func (s *StaticStats) HasWarnings() bool  { return len(s.WarningMessages) > 0 }
func (s *StaticStats) Errors() []string   { return s.ErrorMessages }
func (s *StaticStats) Warnings() []string { return s.WarningMessages }
func (s *StaticStats) Output() Output     { return s.Raw }
func (s *StaticStats) String() string     { return s.Report }
