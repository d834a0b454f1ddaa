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
package main

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestMain(m *testing.M) {
	// Build the binary before running tests
	wd := mustGetwd()
	cmd := exec.Command("go", "build", "-o", "assetpipe_test", ".")
	cmd.Dir = wd
	if out, err := cmd.CombinedOutput(); err != nil {
		panic("failed to build test binary: " + err.Error() + "\n" + string(out))
	}
	code := m.Run()
	_ = os.Remove(filepath.Join(wd, "assetpipe_test"))
	os.Exit(code)
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	return wd
}

func runCLI(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()
	binary := filepath.Join(mustGetwd(), "assetpipe_test")
	cmd := exec.Command(binary, args...)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			t.Fatalf("Failed to run CLI: %v", err)
		}
	}

	return stdout, stderr, exitCode
}

func readJSON(t *testing.T, path string) map[string]string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}
	var result map[string]string
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("Failed to parse %s: %v\n%s", path, err, data)
	}
	return result
}

func TestBuild(t *testing.T) {
	fixtureDir := filepath.Join("testdata", "cli", "site")
	outDir := filepath.Join(t.TempDir(), "dist")

	_, stderr, code := runCLI(t, "build",
		"--basedir", fixtureDir,
		"--output-dir", outDir,
		"--env", "development",
		"--entry-pattern", "src/*",
	)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}

	resources := readJSON(t, filepath.Join(outDir, "resources.json"))
	if len(resources) != 2 {
		t.Fatalf("Expected 2 entries in resource map, got %v", resources)
	}
	if !strings.HasPrefix(resources["src/app.js"], "src-app.js-") {
		t.Errorf("Expected development name for src/app.js, got %q", resources["src/app.js"])
	}
	if _, ok := resources["src/lib/greet.js"]; ok {
		t.Error("Expected src/lib/greet.js to be excluded by the entry pattern")
	}

	m := readJSON(t, filepath.Join(outDir, "manifest.json"))
	for source, name := range resources {
		file, ok := m[name]
		if !ok {
			t.Errorf("Expected manifest key %s for %s, got %v", name, source, m)
			continue
		}
		if _, err := os.Stat(filepath.Join(outDir, file)); err != nil {
			t.Errorf("Expected %s on disk: %v", file, err)
		}
		if _, ok := m[name+".js.map"]; !ok {
			t.Errorf("Expected source map key for %s", name)
		}
	}
}

func TestBuildManifestDirAndPrint(t *testing.T) {
	fixtureDir := filepath.Join("testdata", "cli", "site")
	tmp := t.TempDir()
	outDir := filepath.Join(tmp, "dist")
	manifestDir := filepath.Join(tmp, "config")

	stdout, stderr, code := runCLI(t, "build",
		"-C", fixtureDir,
		"-o", outDir,
		"--manifest-dir", manifestDir,
		"--entry-pattern", "src/*",
		"--print",
	)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}

	printed := map[string]string{}
	if err := json.Unmarshal([]byte(stdout), &printed); err != nil {
		t.Fatalf("Failed to parse printed manifest: %v\nstdout: %s", err, stdout)
	}
	written := readJSON(t, filepath.Join(manifestDir, "manifest.json"))
	if len(printed) == 0 || len(printed) != len(written) {
		t.Errorf("Printed manifest %v does not match written %v", printed, written)
	}
	if _, err := os.Stat(filepath.Join(outDir, "manifest.json")); err == nil {
		t.Error("Expected no manifest in the output directory")
	}
}

func TestBuildEmptyProject(t *testing.T) {
	tmpDir := t.TempDir()
	outDir := filepath.Join(tmpDir, "dist")

	_, stderr, code := runCLI(t, "build", "--basedir", tmpDir, "--output-dir", outDir)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	if !strings.Contains(stderr, "No entry files found") {
		t.Errorf("Expected empty project warning, got: %s", stderr)
	}
	if m := readJSON(t, filepath.Join(outDir, "manifest.json")); len(m) != 0 {
		t.Errorf("Expected empty manifest, got %v", m)
	}
}

func TestBuildConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, "src"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "src", "main.js"), []byte("console.log(1);\n"), 0644); err != nil {
		t.Fatal(err)
	}
	config := "output-dir: out\nmanifest-file: assets.json\n"
	if err := os.WriteFile(filepath.Join(tmpDir, "assetpipe.yaml"), []byte(config), 0644); err != nil {
		t.Fatal(err)
	}

	_, stderr, code := runCLI(t, "build", "--basedir", tmpDir)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	m := readJSON(t, filepath.Join(tmpDir, "out", "assets.json"))
	if len(m) == 0 {
		t.Error("Expected manifest entries from config file settings")
	}
}

func TestBuildMissingOutputDir(t *testing.T) {
	_, stderr, code := runCLI(t, "build", "--basedir", t.TempDir())
	if code == 0 {
		t.Error("Expected non-zero exit code without an output directory")
	}
	if !strings.Contains(stderr, "configuration error") {
		t.Errorf("Expected configuration error, got: %s", stderr)
	}
}

func TestBuildInvalidEnv(t *testing.T) {
	_, stderr, code := runCLI(t, "build", "--basedir", t.TempDir(), "--output-dir", "dist", "--env", "staging")
	if code == 0 {
		t.Error("Expected non-zero exit code for unknown environment")
	}
	if !strings.Contains(stderr, "invalid environment mode") {
		t.Errorf("Expected invalid environment error, got: %s", stderr)
	}
}

func TestVersion(t *testing.T) {
	stdout, stderr, code := runCLI(t, "version", "--format", "json")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	var info map[string]string
	if err := json.Unmarshal([]byte(stdout), &info); err != nil {
		t.Fatalf("Failed to parse version JSON: %v", err)
	}
	for _, key := range []string{"version", "gitCommit", "buildTime", "esbuild", "go"} {
		if info[key] == "" {
			t.Errorf("Expected %s field, got %v", key, info)
		}
	}
	if !strings.HasPrefix(info["esbuild"], "v") {
		t.Errorf("Expected the linked esbuild module version, got %q", info["esbuild"])
	}

	stdout, _, code = runCLI(t, "version")
	if code != 0 {
		t.Fatalf("Expected exit code 0 for text report, got %d", code)
	}
	for _, label := range []string{"assetpipe", "esbuild", "commit", "built", "go"} {
		if !strings.Contains(stdout, label+" ") {
			t.Errorf("Expected %q row in report:\n%s", label, stdout)
		}
	}
}

func TestVersionShort(t *testing.T) {
	stdout, stderr, code := runCLI(t, "version", "--short")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	fields := strings.Fields(stdout)
	if len(fields) != 2 || !strings.HasPrefix(fields[1], "esbuild/v") {
		t.Errorf("Expected \"<version> esbuild/<version>\", got %q", stdout)
	}

	stdout, _, code = runCLI(t, "version", "--short", "--format", "json")
	if code != 0 {
		t.Fatalf("Expected exit code 0 for short json, got %d", code)
	}
	var info map[string]string
	if err := json.Unmarshal([]byte(stdout), &info); err != nil {
		t.Fatalf("Failed to parse version JSON: %v", err)
	}
	if len(info) != 2 || info["version"] == "" || info["esbuild"] == "" {
		t.Errorf("Expected only version and esbuild, got %v", info)
	}
}

func TestVersionUnknownFormat(t *testing.T) {
	_, stderr, code := runCLI(t, "version", "--format", "yaml")
	if code == 0 {
		t.Error("Expected non-zero exit code for unknown format")
	}
	if !strings.Contains(stderr, `unknown format "yaml"`) {
		t.Errorf("Expected unknown format error, got: %s", stderr)
	}
}

func TestHelp(t *testing.T) {
	stdout, _, code := runCLI(t, "--help")
	if code != 0 {
		t.Fatalf("Expected exit code 0 for help, got %d", code)
	}

	expectedStrings := []string{
		"assetpipe",
		"build",
		"watch",
		"--output-dir",
		"--env",
		"--manifest-dir",
	}

	for _, s := range expectedStrings {
		if !strings.Contains(stdout, s) {
			t.Errorf("Expected %q in help output", s)
		}
	}
}

func TestWatchHelp(t *testing.T) {
	stdout, _, code := runCLI(t, "watch", "--help")
	if code != 0 {
		t.Fatalf("Expected exit code 0 for help, got %d", code)
	}
	if !strings.Contains(stdout, "--debounce") {
		t.Error("Expected --debounce in watch help output")
	}
}

func TestUnknownCommand(t *testing.T) {
	_, stderr, code := runCLI(t, "unknown")
	if code == 0 {
		t.Error("Expected non-zero exit code for unknown command")
	}

	if !strings.Contains(stderr, "unknown command") {
		t.Errorf("Expected 'unknown command' error, got: %s", stderr)
	}
}
