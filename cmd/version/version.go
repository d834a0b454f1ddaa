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

// Package version provides the version command for assetpipe.
package version

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"bennypowers.dev/assetpipe/internal/version"
)

// Cmd is the version command.
var Cmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print the assetpipe version and the esbuild version it bundles with.

Output file names and the manifest depend on the bundler, so a build is only
reproducible with the same pair of versions. --short prints just that pair.`,
	Example: `  # Full report
  assetpipe version

  # Pair for cache keys, e.g. "v1.2.0 esbuild/v0.25.5"
  assetpipe version --short`,
	RunE: run,
}

func init() {
	Cmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
	Cmd.Flags().Bool("short", false, "Print only the assetpipe and esbuild versions")
}

// shortInfo is the --short form of version.Info.
type shortInfo struct {
	Version string `json:"version"`
	Esbuild string `json:"esbuild"`
}

func run(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("error reading format flag: %w", err)
	}
	short, err := cmd.Flags().GetBool("short")
	if err != nil {
		return fmt.Errorf("error reading short flag: %w", err)
	}

	info := version.GetBuildInfo()
	w := cmd.OutOrStdout()
	switch format {
	case "json":
		var v any = info
		if short {
			v = shortInfo{Version: info.Version, Esbuild: info.Esbuild}
		}
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("error marshaling version info: %w", err)
		}
		fmt.Fprintln(w, string(out))
		return nil
	case "text":
		if short {
			_, err := fmt.Fprintf(w, "%s esbuild/%s\n", info.Version, info.Esbuild)
			return err
		}
		return writeReport(w, info)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func writeReport(w io.Writer, info version.Info) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "assetpipe\t%s\n", info.Version)
	fmt.Fprintf(tw, "esbuild\t%s\n", info.Esbuild)
	fmt.Fprintf(tw, "commit\t%s\n", info.GitCommit)
	fmt.Fprintf(tw, "built\t%s\n", info.BuildTime)
	fmt.Fprintf(tw, "go\t%s\n", info.Go)
	return tw.Flush()
}
