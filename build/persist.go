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
package build

import (
	"encoding/json"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"bennypowers.dev/assetpipe/manifest"
)

// persist rewrites the manifest and the resource map in full.
// Callers hold persistMu.
func (o *Orchestrator) persist(m manifest.Manifest, resources map[string]string) error {
	var g errgroup.Group
	g.Go(func() error {
		data, err := m.ToJSON()
		if err != nil {
			return &PersistenceError{Path: o.opts.ManifestPath(), Err: err}
		}
		return o.writeFile(o.opts.ManifestPath(), data)
	})
	g.Go(func() error {
		return o.writeResources(resources)
	})
	return g.Wait()
}

func (o *Orchestrator) writeResources(resources map[string]string) error {
	if resources == nil {
		resources = map[string]string{}
	}
	data, err := json.MarshalIndent(resources, "", "  ")
	if err != nil {
		return &PersistenceError{Path: o.opts.ResourcesPath(), Err: err}
	}
	return o.writeFile(o.opts.ResourcesPath(), data)
}

// writeFile replaces path via a temporary sibling, so readers never see a
// partially written file.
func (o *Orchestrator) writeFile(path string, data []byte) error {
	if err := o.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &PersistenceError{Path: path, Err: err}
	}
	tmp := path + ".tmp"
	if err := o.fs.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return &PersistenceError{Path: path, Err: err}
	}
	if err := o.fs.Rename(tmp, path); err != nil {
		_ = o.fs.Remove(tmp)
		return &PersistenceError{Path: path, Err: err}
	}
	return nil
}
