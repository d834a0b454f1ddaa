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
package esbuild

import (
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"bennypowers.dev/assetpipe/compiler"
)

// metafile is the subset of esbuild's metafile JSON we read.
type metafile struct {
	Inputs  map[string]metafileInput  `json:"inputs"`
	Outputs map[string]metafileOutput `json:"outputs"`
}

type metafileInput struct {
	Bytes int `json:"bytes"`
}

type metafileOutput struct {
	Bytes      int                     `json:"bytes"`
	Inputs     map[string]inputContrib `json:"inputs"`
	EntryPoint string                  `json:"entryPoint,omitempty"`
	CSSBundle  string                  `json:"cssBundle,omitempty"`
}

type inputContrib struct {
	BytesInOutput int `json:"bytesInOutput"`
}

func parseMetafile(data string) (*metafile, error) {
	var m metafile
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, fmt.Errorf("parsing metafile: %w", err)
	}
	return &m, nil
}

// layout locates metafile paths, which are relative to the working
// directory, on disk and within the output directory.
type layout struct {
	contextDir string
	outputDir  string
}

// fromOutputDir returns a metafile output path relative to the output
// directory, with forward slashes.
func (l layout) fromOutputDir(metaPath string) string {
	abs := filepath.Join(l.contextDir, filepath.FromSlash(metaPath))
	rel, err := filepath.Rel(l.outputDir, abs)
	if err != nil {
		return filepath.ToSlash(metaPath)
	}
	return filepath.ToSlash(rel)
}

// fromContextDir returns an absolute or working-directory relative path as
// a forward-slash path relative to the working directory.
func (l layout) fromContextDir(p string) string {
	if filepath.IsAbs(p) {
		if rel, err := filepath.Rel(l.contextDir, p); err == nil {
			return filepath.ToSlash(rel)
		}
	}
	return path.Clean(filepath.ToSlash(p))
}

// translation is the compiler output derived from one metafile.
type translation struct {
	output compiler.Output
	// moduleAssets maps emitted files to the request that produced them.
	moduleAssets map[string]string
}

// translate turns a metafile into chunks and assets. entries is the entry
// snapshot the build ran with; compressed reports which outputs (by metafile
// path) got a ".gz" sibling.
func translate(meta *metafile, l layout, entries map[string]string, compressed map[string]bool) translation {
	byInput := make(map[string]string, len(entries))
	for name, abs := range entries {
		byInput[l.fromContextDir(abs)] = name
	}

	t := translation{moduleAssets: make(map[string]string)}
	claimed := make(map[string]bool)

	files := func(metaPath string) []string {
		var out []string
		for _, p := range []string{metaPath, metaPath + ".map"} {
			if _, ok := meta.Outputs[p]; !ok || claimed[p] {
				continue
			}
			claimed[p] = true
			out = append(out, l.fromOutputDir(p))
			if compressed[p] {
				out = append(out, l.fromOutputDir(p)+".gz")
			}
		}
		return out
	}

	outputs := sortedKeys(meta.Outputs)

	for _, p := range outputs {
		o := meta.Outputs[p]
		if o.EntryPoint == "" {
			continue
		}
		name, ok := byInput[l.fromContextDir(o.EntryPoint)]
		if !ok {
			continue
		}
		chunk := compiler.Chunk{Name: name, Files: files(p)}
		if o.CSSBundle != "" {
			chunk.Files = append(chunk.Files, files(o.CSSBundle)...)
		}
		t.output.Chunks = append(t.output.Chunks, chunk)
	}

	for _, p := range outputs {
		if claimed[p] || strings.HasSuffix(p, ".map") {
			continue
		}
		o := meta.Outputs[p]
		switch ext := path.Ext(p); ext {
		case ".js", ".css":
			if o.EntryPoint != "" {
				continue
			}
			base := path.Base(p)
			t.output.Chunks = append(t.output.Chunks, compiler.Chunk{
				Name:  strings.TrimSuffix(base, ext),
				Files: files(p),
			})
		default:
			if len(o.Inputs) != 1 {
				continue
			}
			// The request is the source path relative to the context directory
			// whatever AssetNames is. The emitted file mirrors that layout only
			// while AssetNames starts with "[dir]/[name]".
			for input := range o.Inputs {
				t.moduleAssets[l.fromOutputDir(p)] = l.fromContextDir(input)
			}
		}
	}

	for _, p := range outputs {
		t.output.Assets = append(t.output.Assets, compiler.Asset{Name: l.fromOutputDir(p)})
		if compressed[p] {
			t.output.Assets = append(t.output.Assets, compiler.Asset{Name: l.fromOutputDir(p) + ".gz"})
		}
	}

	slices.SortStableFunc(t.output.Chunks, func(a, b compiler.Chunk) int {
		return strings.Compare(a.Name, b.Name)
	})
	return t
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
