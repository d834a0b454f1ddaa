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

// Package manifest maps logical asset names to the files a build emitted.
package manifest

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/pmezard/go-difflib/difflib"
)

// Manifest maps logical keys ("app", "app.js", "images/logo.png") to output
// files relative to the output directory.
type Manifest map[string]string

// Parse parses JSON data into a Manifest.
func Parse(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = Manifest{}
	}
	return m, nil
}

// Clone creates a copy of the manifest.
func (m Manifest) Clone() Manifest {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}

// Merge combines this manifest with another, with the other taking precedence.
// Neither input is modified.
func (m Manifest) Merge(other Manifest) Manifest {
	result := make(Manifest, len(m)+len(other))
	maps.Copy(result, m)
	maps.Copy(result, other)
	return result
}

// ToJSON converts the manifest to an indented JSON document with sorted keys.
// A nil manifest encodes as an empty object.
func (m Manifest) ToJSON() ([]byte, error) {
	if m == nil {
		m = Manifest{}
	}
	return json.MarshalIndent(map[string]string(m), "", "  ")
}

// Diff returns a unified diff between the JSON forms of two manifests,
// or "" when they are equal.
func Diff(before, after Manifest) (string, error) {
	a, err := before.ToJSON()
	if err != nil {
		return "", fmt.Errorf("encoding previous manifest: %w", err)
	}
	b, err := after.ToJSON()
	if err != nil {
		return "", fmt.Errorf("encoding current manifest: %w", err)
	}
	if string(a) == string(b) {
		return "", nil
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(a) + "\n"),
		B:        difflib.SplitLines(string(b) + "\n"),
		FromFile: "manifest (previous)",
		ToFile:   "manifest (current)",
		Context:  1,
	})
}
