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
package pipeline_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/spf13/viper"

	"bennypowers.dev/assetpipe/build"
	"bennypowers.dev/assetpipe/entry"
	"bennypowers.dev/assetpipe/internal/pipeline"
	"bennypowers.dev/assetpipe/testutil"
)

func newViper(settings map[string]any) *viper.Viper {
	v := viper.New()
	pipeline.SetDefaults(v)
	for k, val := range settings {
		v.Set(k, val)
	}
	return v
}

func TestFromViperDefaults(t *testing.T) {
	cfg, err := pipeline.FromViper(newViper(map[string]any{
		pipeline.KeyBaseDir:   "/project",
		pipeline.KeyOutputDir: "dist",
	}))
	if err != nil {
		t.Fatalf("FromViper failed: %v", err)
	}

	if cfg.Mode != entry.Production {
		t.Errorf("Expected production mode, got %s", cfg.Mode)
	}
	if cfg.OutputDir != "/project/dist" {
		t.Errorf("Expected output dir resolved against base, got %s", cfg.OutputDir)
	}
	if cfg.ManifestFile != "manifest.json" || cfg.ResourcesFile != "resources.json" {
		t.Errorf("Unexpected file names: %s, %s", cfg.ManifestFile, cfg.ResourcesFile)
	}
	if !slices.Equal(cfg.Extensions, []string{".mjs", ".js"}) {
		t.Errorf("Unexpected extensions: %v", cfg.Extensions)
	}
	if got := cfg.Options(nil).ManifestPath(); got != "/project/dist/manifest.json" {
		t.Errorf("Expected manifest in output dir, got %s", got)
	}
}

func TestFromViperErrors(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]any
		target   error
	}{
		{
			name:     "missing output dir",
			settings: map[string]any{pipeline.KeyBaseDir: "/project"},
			target:   build.ErrConfiguration,
		},
		{
			name: "unknown env",
			settings: map[string]any{
				pipeline.KeyBaseDir:   "/project",
				pipeline.KeyOutputDir: "dist",
				pipeline.KeyEnv:       "staging",
			},
			target: entry.ErrInvalidMode,
		},
		{
			name: "bad entry pattern",
			settings: map[string]any{
				pipeline.KeyBaseDir:      "/project",
				pipeline.KeyOutputDir:    "dist",
				pipeline.KeyEntryPattern: "src/[*.js",
			},
			target: build.ErrConfiguration,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := pipeline.FromViper(newViper(tt.settings))
			if !errors.Is(err, tt.target) {
				t.Errorf("Expected %v, got %v", tt.target, err)
			}
			if !errors.Is(err, build.ErrConfiguration) {
				t.Errorf("Expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestMatcherIgnoresOutput(t *testing.T) {
	cfg, err := pipeline.FromViper(newViper(map[string]any{
		pipeline.KeyBaseDir:     "/project",
		pipeline.KeyOutputDir:   "public/assets",
		pipeline.KeyManifestDir: "/elsewhere",
	}))
	if err != nil {
		t.Fatalf("FromViper failed: %v", err)
	}

	m := cfg.Matcher()
	if m.Match("public/assets/app.1a2b.js") {
		t.Error("Expected emitted files to be ignored")
	}
	if !m.Match("src/app.js") {
		t.Error("Expected sources to match")
	}
	if slices.Contains(m.Ignore, "../elsewhere/**") {
		t.Error("Expected directories outside the base to be skipped")
	}
}

func TestPredicate(t *testing.T) {
	cfg := pipeline.Config{EntryPattern: "src/entries/**/*.js"}
	isEntry := cfg.Predicate()
	if !isEntry("src/entries/app.js") {
		t.Error("Expected entry pattern to match")
	}
	if isEntry("src/lib/util.js") {
		t.Error("Expected non-entry to be rejected")
	}
	if !(pipeline.Config{}).Predicate()("anything.js") {
		t.Error("Expected empty pattern to accept all")
	}
}

func TestScan(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "watch/project", "/project")
	cfg, err := pipeline.FromViper(newViper(map[string]any{
		pipeline.KeyBaseDir:   "/project",
		pipeline.KeyOutputDir: "dist",
		pipeline.KeyEnv:       "development",
	}))
	if err != nil {
		t.Fatalf("FromViper failed: %v", err)
	}

	p, err := pipeline.New(mfs, cfg, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer p.Close()

	events, err := p.Scan()
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("Expected 3 files, got %v", events)
	}
	for _, ev := range events {
		if err := p.Orchestrator.Handle(ev); err != nil {
			t.Fatalf("Handle(%s) failed: %v", ev, err)
		}
	}
	if p.Registry.Len() != 3 {
		t.Errorf("Expected 3 entries, got %d", p.Registry.Len())
	}
	if name := p.Registry.Resources()["src/app.js"]; name == "" {
		t.Error("Expected src/app.js to be registered")
	}
}
