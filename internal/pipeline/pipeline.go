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

// Package pipeline assembles the registry, compiler and orchestrator from
// CLI configuration.
package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/viper"

	"bennypowers.dev/assetpipe/build"
	"bennypowers.dev/assetpipe/compiler/esbuild"
	"bennypowers.dev/assetpipe/entry"
	"bennypowers.dev/assetpipe/fs"
	"bennypowers.dev/assetpipe/manifest"
	"bennypowers.dev/assetpipe/watch"
)

// Configuration keys, shared by flags, the config file and ASSETPIPE_*
// environment variables.
const (
	KeyBaseDir         = "basedir"
	KeyEnv             = "env"
	KeyOutputDir       = "output-dir"
	KeyManifestDir     = "manifest-dir"
	KeyManifestFile    = "manifest-file"
	KeyResourcesFile   = "resources-file"
	KeyEntries         = "entries"
	KeyEntryPattern    = "entry-pattern"
	KeyExtensions      = "extensions"
	KeyExtraExtensions = "extra-extensions"
	KeyPublicPath      = "public-path"
	KeyCompress        = "compress"
	KeySplitting       = "splitting"
	KeyVerbose         = "verbose"
)

// SetDefaults registers the default for every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyBaseDir, ".")
	v.SetDefault(KeyEnv, string(entry.Production))
	v.SetDefault(KeyManifestFile, build.DefaultManifestFile)
	v.SetDefault(KeyResourcesFile, build.DefaultResourcesFile)
	v.SetDefault(KeyEntries, watch.DefaultPatterns)
	v.SetDefault(KeyExtensions, watch.DefaultExtensions)
	v.SetDefault(KeyExtraExtensions, manifest.DefaultExtraExtensions)
	v.SetDefault(KeyPublicPath, build.DefaultPublicPath)
}

// Config is the resolved pipeline configuration. Directories are absolute.
type Config struct {
	BaseDir         string
	Mode            entry.Mode
	OutputDir       string
	ManifestDir     string
	ManifestFile    string
	ResourcesFile   string
	Entries         []string
	EntryPattern    string
	Extensions      []string
	ExtraExtensions []string
	PublicPath      string
	Compress        bool
	Splitting       bool
}

// FromViper reads and validates a Config. Relative directories are resolved
// against the base directory.
func FromViper(v *viper.Viper) (Config, error) {
	var errs []error

	base, err := filepath.Abs(v.GetString(KeyBaseDir))
	if err != nil {
		errs = append(errs, fmt.Errorf("base directory: %w", err))
	}

	mode, err := entry.ParseMode(v.GetString(KeyEnv))
	if err != nil {
		errs = append(errs, err)
	}

	cfg := Config{
		BaseDir:         base,
		Mode:            mode,
		OutputDir:       resolveDir(base, v.GetString(KeyOutputDir)),
		ManifestDir:     resolveDir(base, v.GetString(KeyManifestDir)),
		ManifestFile:    v.GetString(KeyManifestFile),
		ResourcesFile:   v.GetString(KeyResourcesFile),
		Entries:         v.GetStringSlice(KeyEntries),
		EntryPattern:    v.GetString(KeyEntryPattern),
		Extensions:      normalizeExtensions(v.GetStringSlice(KeyExtensions)),
		ExtraExtensions: v.GetStringSlice(KeyExtraExtensions),
		PublicPath:      v.GetString(KeyPublicPath),
		Compress:        v.GetBool(KeyCompress),
		Splitting:       v.GetBool(KeySplitting),
	}

	if cfg.EntryPattern != "" && !doublestar.ValidatePattern(cfg.EntryPattern) {
		errs = append(errs, fmt.Errorf("invalid entry pattern %q", cfg.EntryPattern))
	}
	if err := cfg.Options(nil).Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := cfg.Matcher().Validate(); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		if errors.Is(err, build.ErrConfiguration) {
			return cfg, err
		}
		return cfg, fmt.Errorf("%w: %w", build.ErrConfiguration, err)
	}
	return cfg, nil
}

// Options returns the orchestrator options.
func (c Config) Options(logger build.Logger) build.Options {
	return build.Options{
		OutputDir:       c.OutputDir,
		ManifestDir:     c.ManifestDir,
		ManifestFile:    c.ManifestFile,
		ResourcesFile:   c.ResourcesFile,
		PublicPath:      c.PublicPath,
		ExtraExtensions: c.ExtraExtensions,
		Compress:        c.Compress,
		Splitting:       c.Splitting,
		Logger:          logger,
	}
}

// Matcher returns the discovery matcher. Output and manifest directories
// inside the base directory are ignored so emitted files never become entries.
func (c Config) Matcher() watch.Matcher {
	m := watch.DefaultMatcher()
	if len(c.Entries) > 0 {
		m.Patterns = c.Entries
	}
	m.Extensions = c.Extensions
	for _, dir := range []string{c.OutputDir, c.ManifestDir} {
		if dir == "" {
			continue
		}
		rel, err := filepath.Rel(c.BaseDir, dir)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		m.Ignore = append(m.Ignore, filepath.ToSlash(rel)+"/**")
	}
	return m
}

// Predicate returns the isEntry predicate for the entry pattern.
func (c Config) Predicate() entry.Predicate {
	if c.EntryPattern == "" {
		return entry.AcceptAll
	}
	pattern := c.EntryPattern
	return func(rel string) bool {
		ok, _ := doublestar.Match(pattern, rel)
		return ok
	}
}

// Pipeline is an assembled build pipeline.
type Pipeline struct {
	Config       Config
	FS           fs.FileSystem
	Registry     *entry.Registry
	Orchestrator *build.Orchestrator
}

// New assembles a pipeline backed by esbuild.
func New(fsys fs.FileSystem, cfg Config, logger build.Logger) (*Pipeline, error) {
	reg, err := entry.NewRegistry(cfg.BaseDir, cfg.Mode, entry.WithPredicate(cfg.Predicate()))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", build.ErrConfiguration, err)
	}
	orch, err := build.New(fsys, reg, esbuild.NewFactory(fsys), cfg.Options(logger))
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		Config:       cfg,
		FS:           fsys,
		Registry:     reg,
		Orchestrator: orch,
	}, nil
}

// Scan discovers the initial entries.
func (p *Pipeline) Scan() ([]build.Event, error) {
	return watch.Scan(p.FS, p.Config.BaseDir, p.Config.Matcher())
}

// Close stops the orchestrator.
func (p *Pipeline) Close() error {
	return p.Orchestrator.Close()
}

func resolveDir(base, dir string) string {
	if dir == "" {
		return ""
	}
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(base, dir)
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}
