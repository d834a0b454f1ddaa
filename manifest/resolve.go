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
package manifest

import (
	"slices"
	"strings"

	"bennypowers.dev/assetpipe/compiler"
)

// DefaultExtraExtensions are side artifacts that never count as a chunk's
// primary output.
var DefaultExtraExtensions = []string{"map", "gz"}

// DefaultHotUpdateMarker identifies transient hot-reload files.
const DefaultHotUpdateMarker = "hot-update"

// Resolver derives a Manifest from a build's raw output.
type Resolver struct {
	extraExtensions []string
	hotUpdateMarker string
}

// NewResolver creates a Resolver with the default extra extensions.
func NewResolver() *Resolver {
	return &Resolver{
		extraExtensions: slices.Clone(DefaultExtraExtensions),
		hotUpdateMarker: DefaultHotUpdateMarker,
	}
}

// WithExtraExtensions returns a new Resolver treating exts (without the
// leading dot) as side artifacts.
func (r *Resolver) WithExtraExtensions(exts []string) *Resolver {
	cleaned := make([]string, 0, len(exts))
	for _, ext := range exts {
		if ext = strings.TrimPrefix(ext, "."); ext != "" {
			cleaned = append(cleaned, ext)
		}
	}
	return &Resolver{
		extraExtensions: cleaned,
		hotUpdateMarker: r.hotUpdateMarker,
	}
}

// WithHotUpdateMarker returns a new Resolver that drops files whose name
// contains marker.
func (r *Resolver) WithHotUpdateMarker(marker string) *Resolver {
	return &Resolver{
		extraExtensions: r.extraExtensions,
		hotUpdateMarker: marker,
	}
}

// Resolve builds the manifest for out. moduleAssets maps an emitted file to
// the request path of the module that emitted it.
//
// Every chunk file gets a "<chunk>.<ext>" key. The bare "<chunk>" key holds
// the chunk's primary output: the first file fills it, a primary file
// replaces a side artifact, and two primary files remove it for good.
// Module assets are applied last and win on identical keys. Files containing
// the hot update marker never enter the manifest.
func (r *Resolver) Resolve(out compiler.Output, moduleAssets map[string]string) Manifest {
	m := make(Manifest)

	for _, chunk := range out.Chunks {
		ambiguous := false
		for _, file := range chunk.Files {
			if r.hotUpdateMarker != "" && strings.Contains(file, r.hotUpdateMarker) {
				continue
			}

			m[chunk.Name+"."+r.logicalExtension(file)] = file

			if ambiguous {
				continue
			}
			held, ok := m[chunk.Name]
			switch {
			case !ok:
				m[chunk.Name] = file
			case r.isExtra(file):
				// side artifacts never displace whatever is held
			case r.isExtra(held):
				m[chunk.Name] = file
			default:
				delete(m, chunk.Name)
				ambiguous = true
			}
		}
	}

	for _, asset := range out.Assets {
		if r.hotUpdateMarker != "" && strings.Contains(asset.Name, r.hotUpdateMarker) {
			continue
		}
		if request, ok := moduleAssets[asset.Name]; ok && request != "" {
			m[request] = asset.Name
		}
	}

	return m
}

// logicalExtension returns "js" for "app.1a2b.js" and "js.map" for
// "app.1a2b.js.map" when map is an extra extension.
func (r *Resolver) logicalExtension(file string) string {
	parts := strings.Split(file, ".")
	last := parts[len(parts)-1]
	if len(parts) > 2 && slices.Contains(r.extraExtensions, last) {
		return parts[len(parts)-2] + "." + last
	}
	return last
}

func (r *Resolver) isExtra(file string) bool {
	i := strings.LastIndexByte(file, '.')
	if i < 0 {
		return false
	}
	return slices.Contains(r.extraExtensions, file[i+1:])
}
