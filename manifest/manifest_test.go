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
package manifest_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"bennypowers.dev/assetpipe/manifest"
)

func TestParse(t *testing.T) {
	m, err := manifest.Parse([]byte(`{"app": "app.1.js"}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if m["app"] != "app.1.js" {
		t.Errorf("Expected app entry, got %v", m)
	}

	empty, err := manifest.Parse([]byte(`null`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("Expected empty non-nil manifest, got %#v", empty)
	}

	if _, err := manifest.Parse([]byte(`{`)); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestMerge(t *testing.T) {
	base := manifest.Manifest{"a": "a.1.js", "b": "b.1.js"}
	override := manifest.Manifest{"b": "b.2.js", "c": "c.1.js"}

	got := base.Merge(override)
	want := manifest.Manifest{"a": "a.1.js", "b": "b.2.js", "c": "c.1.js"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Merge mismatch (-want +got):\n%s", diff)
	}
	if base["b"] != "b.1.js" {
		t.Error("Merge modified its receiver")
	}
}

func TestClone(t *testing.T) {
	m := manifest.Manifest{"a": "a.1.js"}
	c := m.Clone()
	c["a"] = "changed"
	if m["a"] != "a.1.js" {
		t.Error("Clone should be independent of the original")
	}
	if manifest.Manifest(nil).Clone() != nil {
		t.Error("Clone of nil should be nil")
	}
}

func TestToJSON(t *testing.T) {
	m := manifest.Manifest{"b": "b.js", "a": "a.js"}
	data, err := m.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}
	want := "{\n  \"a\": \"a.js\",\n  \"b\": \"b.js\"\n}"
	if string(data) != want {
		t.Errorf("ToJSON =\n%s\nwant\n%s", data, want)
	}

	data, err = manifest.Manifest(nil).ToJSON()
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}
	if string(data) != "{}" {
		t.Errorf("Expected {} for nil manifest, got %s", data)
	}
}

func TestDiff(t *testing.T) {
	before := manifest.Manifest{"app": "app.1.js", "app.js": "app.1.js"}
	after := manifest.Manifest{"app": "app.2.js", "app.js": "app.2.js"}

	d, err := manifest.Diff(before, before.Clone())
	if err != nil || d != "" {
		t.Errorf("Expected no diff for equal manifests, got %q (%v)", d, err)
	}

	d, err = manifest.Diff(before, after)
	if err != nil {
		t.Fatalf("Diff failed: %v", err)
	}
	if !strings.Contains(d, `-  "app": "app.1.js",`) || !strings.Contains(d, `+  "app": "app.2.js",`) {
		t.Errorf("Unexpected diff:\n%s", d)
	}

	d, err = manifest.Diff(nil, manifest.Manifest{"app": "app.1.js"})
	if err != nil {
		t.Fatalf("Diff from nil failed: %v", err)
	}
	if !strings.Contains(d, `-{}`) || !strings.Contains(d, `+  "app": "app.1.js"`) {
		t.Errorf("Expected diff from an empty manifest, got:\n%s", d)
	}
}
