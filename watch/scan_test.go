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
package watch_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"bennypowers.dev/assetpipe/build"
	"bennypowers.dev/assetpipe/testutil"
	"bennypowers.dev/assetpipe/watch"
)

func TestMatcher(t *testing.T) {
	m := watch.DefaultMatcher()

	tests := []struct {
		path string
		want bool
	}{
		{"app.js", true},
		{"src/app.mjs", true},
		{"src/deep/nested/widget.js", true},
		{"src/styles.css", false},
		{"src/app.ts", false},
		{"node_modules/lit/index.js", false},
		{"packages/a/node_modules/b/index.js", false},
		{".git/hooks/pre-commit.js", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := m.Match(tt.path); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestMatcherIgnoresDirectories(t *testing.T) {
	m := watch.DefaultMatcher()
	if !m.Ignored("node_modules") {
		t.Error("Expected node_modules directory to be ignored")
	}
	if !m.Ignored("packages/a/node_modules") {
		t.Error("Expected nested node_modules directory to be ignored")
	}
	if m.Ignored("src") {
		t.Error("Expected src to be watched")
	}
}

func TestMatcherValidate(t *testing.T) {
	m := watch.Matcher{Patterns: []string{"src/[*.js"}}
	if err := m.Validate(); err == nil {
		t.Error("Expected error for malformed pattern")
	}
}

func TestScan(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "watch/project", "/project")

	events, err := watch.Scan(mfs, "/project", watch.DefaultMatcher())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	want := []build.Event{
		{Kind: build.Init, Path: "src/admin.mjs"},
		{Kind: build.Init, Path: "src/app.js"},
		{Kind: build.Init, Path: "src/components/button.js"},
	}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Errorf("Scan mismatch (-want +got):\n%s", diff)
	}
}

func TestScanWithEntryPatterns(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "watch/project", "/project")

	m := watch.DefaultMatcher()
	m.Patterns = []string{"src/*.js"}
	events, err := watch.Scan(mfs, "/project", m)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(events) != 1 || events[0].Path != "src/app.js" {
		t.Errorf("Expected only src/app.js, got %v", events)
	}
}
