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

// Package build provides the build command for assetpipe.
package build

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/assetpipe/fs"
	"bennypowers.dev/assetpipe/internal/output"
	"bennypowers.dev/assetpipe/internal/pipeline"
)

// Cmd is the build command.
var Cmd = &cobra.Command{
	Use:   "build",
	Short: "Build all entries once and write the manifest",
	Long: `Discover entry files under the base directory, compile them once and
write the manifest and resource map.

The manifest maps each entry name to its hashed output file. The resource map
maps each source path to its entry name.`,
	Example: `  # Production build into dist/
  assetpipe build --output-dir dist

  # Development build with source maps, manifest written elsewhere
  assetpipe build --env development --output-dir public/assets --manifest-dir config

  # Only treat files under src/entries as entries
  assetpipe build --output-dir dist --entry-pattern "src/entries/**"`,
	RunE: run,
}

func init() {
	Cmd.Flags().Bool("print", false, "Print the manifest to stdout after building")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := pipeline.FromViper(viper.GetViper())
	if err != nil {
		return err
	}
	logger := output.Stderr()

	p, err := pipeline.New(fs.NewOSFileSystem(), cfg, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	events, err := p.Scan()
	if err != nil {
		return err
	}
	if len(events) == 0 {
		logger.Warning("No entry files found under %s", cfg.BaseDir)
	}

	if err := p.Orchestrator.Process(cmd.Context(), events, false); err != nil {
		return err
	}
	logger.Info("Wrote %s", cfg.Options(nil).ManifestPath())

	if printManifest, _ := cmd.Flags().GetBool("print"); printManifest {
		return output.Manifest(p.Orchestrator.Manifest())
	}
	return nil
}
