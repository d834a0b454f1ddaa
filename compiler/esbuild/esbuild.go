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

// Package esbuild implements compiler.Compiler on top of esbuild's Go API.
//
// Outputs are collected in memory and written through an fs.FileSystem, so
// that gzip variants can be produced next to them. The esbuild metafile is
// translated into chunks (one per entry, plus shared chunks when splitting)
// and assets.
package esbuild

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/klauspost/compress/gzip"

	"bennypowers.dev/assetpipe/compiler"
	"bennypowers.dev/assetpipe/fs"
)

var (
	// ErrBuildFailed is returned when esbuild reports errors and emits nothing.
	ErrBuildFailed = errors.New("esbuild failed")
	// ErrSessionClosed is returned by Invalidate after Close.
	ErrSessionClosed = errors.New("watch session closed")
)

// Name templates for emitted files.
const (
	EntryNames = "[name].[hash]"
	ChunkNames = "[name].[hash]"
	AssetNames = "[dir]/[name].[hash]"
)

// DefaultLoaders maps asset extensions to esbuild's file loader, so imported
// images and fonts are emitted as module assets.
var DefaultLoaders = map[string]api.Loader{
	".png":   api.LoaderFile,
	".jpg":   api.LoaderFile,
	".jpeg":  api.LoaderFile,
	".gif":   api.LoaderFile,
	".svg":   api.LoaderFile,
	".webp":  api.LoaderFile,
	".avif":  api.LoaderFile,
	".woff":  api.LoaderFile,
	".woff2": api.LoaderFile,
	".ttf":   api.LoaderFile,
	".eot":   api.LoaderFile,
}

// Compiler builds the entries of a compiler.Config with esbuild.
type Compiler struct {
	fs  fs.FileSystem
	cfg compiler.Config
}

var _ compiler.Compiler = (*Compiler)(nil)

// NewFactory returns a compiler.Factory whose compilers write through fsys.
func NewFactory(fsys fs.FileSystem) compiler.Factory {
	return func(cfg compiler.Config) (compiler.Compiler, error) {
		return New(fsys, cfg)
	}
}

// New creates a Compiler. ContextDir and OutputDir must be absolute.
func New(fsys fs.FileSystem, cfg compiler.Config) (*Compiler, error) {
	var errs []error
	if fsys == nil {
		errs = append(errs, errors.New("nil filesystem"))
	}
	if cfg.Entries == nil {
		errs = append(errs, errors.New("nil entry source"))
	}
	if !filepath.IsAbs(cfg.ContextDir) {
		errs = append(errs, fmt.Errorf("context directory %q is not absolute", cfg.ContextDir))
	}
	if !filepath.IsAbs(cfg.OutputDir) {
		errs = append(errs, fmt.Errorf("output directory %q is not absolute", cfg.OutputDir))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &Compiler{fs: fsys, cfg: cfg}, nil
}

// Run implements compiler.Compiler.
func (c *Compiler) Run(ctx context.Context) (compiler.Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries := c.cfg.Entries.Entries()
	if len(entries) == 0 {
		return emptyStats(), nil
	}
	start := time.Now()
	result := api.Build(c.options(entries))
	return c.finish(&result, entries, time.Since(start))
}

// Watch implements compiler.Compiler. ctx only governs startup; the session
// lives until Close.
func (c *Compiler) Watch(ctx context.Context, onBuild compiler.BuildFunc) (compiler.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := &session{compiler: c, onBuild: onBuild}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refreshLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

// options builds the esbuild options for an entry snapshot.
func (c *Compiler) options(entries map[string]string) api.BuildOptions {
	points := make([]api.EntryPoint, 0, len(entries))
	for _, name := range sortedKeys(entries) {
		points = append(points, api.EntryPoint{InputPath: entries[name], OutputPath: name})
	}

	opts := api.BuildOptions{
		EntryPointsAdvanced: points,
		AbsWorkingDir:       c.cfg.ContextDir,
		Outdir:              c.cfg.OutputDir,
		EntryNames:          EntryNames,
		ChunkNames:          ChunkNames,
		AssetNames:          AssetNames,
		PublicPath:          c.cfg.PublicPath,
		Bundle:              true,
		Format:              api.FormatESModule,
		Platform:            api.PlatformBrowser,
		Splitting:           c.cfg.Splitting,
		Metafile:            true,
		Write:               false,
		LogLevel:            api.LogLevelSilent,
		Loader:              DefaultLoaders,
	}

	if c.cfg.Mode.IsDevelopment() {
		opts.Sourcemap = api.SourceMapLinked
	} else {
		opts.MinifyWhitespace = true
		opts.MinifyIdentifiers = true
		opts.MinifySyntax = true
		opts.Define = map[string]string{
			"process.env.NODE_ENV": `"production"`,
		}
	}
	return opts
}

// finish writes a build result and turns it into stats.
func (c *Compiler) finish(result *api.BuildResult, entries map[string]string, elapsed time.Duration) (*compiler.StaticStats, error) {
	errs := api.FormatMessages(result.Errors, api.FormatMessagesOptions{Kind: api.ErrorMessage})
	warnings := api.FormatMessages(result.Warnings, api.FormatMessagesOptions{Kind: api.WarningMessage})

	if len(result.Errors) > 0 && result.Metafile == "" {
		return nil, fmt.Errorf("%w:\n%s", ErrBuildFailed, strings.Join(errs, "\n"))
	}

	l := layout{contextDir: c.cfg.ContextDir, outputDir: c.cfg.OutputDir}
	compressed, err := c.write(result.OutputFiles, l)
	if err != nil {
		return nil, err
	}

	meta, err := parseMetafile(result.Metafile)
	if err != nil {
		return nil, err
	}
	t := translate(meta, l, entries, compressed)

	if c.cfg.Hooks.ModuleAsset != nil {
		for file, request := range t.moduleAssets {
			c.cfg.Hooks.ModuleAsset(request, file)
		}
	}

	return &compiler.StaticStats{
		ErrorMessages:   errs,
		WarningMessages: warnings,
		Raw:             t.output,
		Report: fmt.Sprintf("Built %d entries into %d files in %s",
			len(entries), len(t.output.Assets), elapsed.Round(time.Millisecond)),
	}, nil
}

// write persists the output files and, when compressing, a gzip variant of
// each script and stylesheet. It returns the metafile paths that were
// compressed.
func (c *Compiler) write(files []api.OutputFile, l layout) (map[string]bool, error) {
	compressed := make(map[string]bool)
	for _, f := range files {
		if err := c.fs.MkdirAll(filepath.Dir(f.Path), 0755); err != nil {
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
		if err := c.fs.WriteFile(f.Path, f.Contents, 0644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", f.Path, err)
		}
		if !c.cfg.Compress || !compressible(f.Path) {
			continue
		}
		data, err := gzipBytes(f.Contents)
		if err != nil {
			return nil, fmt.Errorf("compressing %s: %w", f.Path, err)
		}
		if err := c.fs.WriteFile(f.Path+".gz", data, 0644); err != nil {
			return nil, fmt.Errorf("writing %s.gz: %w", f.Path, err)
		}
		compressed[l.fromContextDir(f.Path)] = true
	}
	return compressed, nil
}

func compressible(p string) bool {
	switch filepath.Ext(p) {
	case ".js", ".css", ".svg":
		return true
	}
	return false
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func emptyStats() *compiler.StaticStats {
	return &compiler.StaticStats{Report: "No entries to build"}
}
