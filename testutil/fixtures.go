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

// Package testutil loads fixtures and golden files from the repository's
// testdata directory.
package testutil

import (
	"flag"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"bennypowers.dev/assetpipe/internal/mapfs"
)

var updateGolden = flag.Bool("update", false, "update golden files with actual output")

// testdataDir returns the testdata directory, which is the package's own or
// one of its ancestors' depending on where go test runs.
func testdataDir(t *testing.T) string {
	t.Helper()
	for _, dir := range []string{"testdata", "../testdata", "../../testdata", "../../../testdata"} {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}
	t.Fatal("Could not find testdata directory")
	return ""
}

// NewFixtureFS copies testdata/<fixtureDir> into a MapFileSystem under
// rootPath.
func NewFixtureFS(t *testing.T, fixtureDir string, rootPath string) *mapfs.MapFileSystem {
	t.Helper()

	src := filepath.Join(testdataDir(t), fixtureDir)
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("Could not find fixtures at %s: %v", fixtureDir, err)
	}

	mfs := mapfs.New()
	err := filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		content, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		mfs.AddFile(filepath.Join(rootPath, rel), string(content), 0644)
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to load fixtures from %s: %v", fixtureDir, err)
	}
	return mfs
}

// LoadFixtureFile reads testdata/<fixturePath>.
func LoadFixtureFile(t *testing.T, fixturePath string) []byte {
	t.Helper()
	content, err := os.ReadFile(filepath.Join(testdataDir(t), fixturePath))
	if err != nil {
		t.Fatalf("Failed to read fixture %s: %v", fixturePath, err)
	}
	return content
}

// CheckGolden compares actual with testdata/<goldenPath>. With -update it
// rewrites the golden file instead.
func CheckGolden(t *testing.T, goldenPath string, actual []byte) {
	t.Helper()
	target := filepath.Join(testdataDir(t), goldenPath)

	if *updateGolden {
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			t.Fatalf("Failed to create directory for golden file %s: %v", goldenPath, err)
		}
		if err := os.WriteFile(target, actual, 0644); err != nil {
			t.Fatalf("Failed to write golden file %s: %v", goldenPath, err)
		}
		t.Logf("Updated golden file: %s", target)
		return
	}

	expected, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("Failed to read golden file %s (run with -update to create it): %v", goldenPath, err)
	}
	if string(expected) != string(actual) {
		t.Errorf("Output does not match %s\nexpected:\n%s\nactual:\n%s", goldenPath, expected, actual)
	}
}
