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

// Command assetpipe bundles entry files and maintains a manifest of their
// hashed outputs.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/assetpipe/cmd/build"
	"bennypowers.dev/assetpipe/cmd/version"
	"bennypowers.dev/assetpipe/cmd/watch"
	"bennypowers.dev/assetpipe/internal/pipeline"
)

var (
	cpuprofile     string
	cpuprofileFile *os.File
	rootCmd        = &cobra.Command{
		Use:   "assetpipe",
		Short: "Bundle entry files and maintain an asset manifest",
		Long: `assetpipe compiles the entry files under a directory with esbuild and
writes a manifest mapping each entry name to its hashed output files.

Settings may come from flags, an assetpipe.{yaml,json,toml} file in the base
directory, or ASSETPIPE_* environment variables.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(); err != nil {
				return err
			}
			if cpuprofile != "" {
				f, err := os.Create(cpuprofile)
				if err != nil {
					return fmt.Errorf("could not create CPU profile: %w", err)
				}
				cpuprofileFile = f
				if err := pprof.StartCPUProfile(f); err != nil {
					closeErr := f.Close()
					return errors.Join(
						fmt.Errorf("could not start CPU profile: %w", err),
						closeErr,
					)
				}
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if cpuprofileFile != nil {
				pprof.StopCPUProfile()
				if err := cpuprofileFile.Close(); err != nil {
					return fmt.Errorf("closing CPU profile: %w", err)
				}
			}
			return nil
		},
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringP(pipeline.KeyBaseDir, "C", ".", "Base directory entries are discovered and named from")
	flags.StringP(pipeline.KeyEnv, "e", "production", "Environment (development, production)")
	flags.StringP(pipeline.KeyOutputDir, "o", "", "Compiler output directory (required)")
	flags.String(pipeline.KeyManifestDir, "", "Directory for the manifest and resource map (default: output directory)")
	flags.String(pipeline.KeyManifestFile, "manifest.json", "Manifest file name")
	flags.String(pipeline.KeyResourcesFile, "resources.json", "Resource map file name")
	flags.StringSlice(pipeline.KeyEntries, nil, "Globs selecting candidate files (default: **/*.js, **/*.mjs)")
	flags.String(pipeline.KeyEntryPattern, "", "Glob a candidate file must match to become an entry")
	flags.StringSlice(pipeline.KeyExtensions, nil, "Accepted source extensions (default: .mjs, .js)")
	flags.StringSlice(pipeline.KeyExtraExtensions, nil, "Side-artifact extensions (default: map, gz)")
	flags.String(pipeline.KeyPublicPath, "/", "URL prefix emitted files are served from")
	flags.Bool(pipeline.KeyCompress, false, "Write gzip variants of scripts and stylesheets")
	flags.Bool(pipeline.KeySplitting, false, "Extract code shared between entries into chunks")
	flags.BoolP(pipeline.KeyVerbose, "v", false, "Log debug output")
	flags.StringVar(&cpuprofile, "cpuprofile", "", "Write CPU profile to file")

	pipeline.SetDefaults(viper.GetViper())
	for _, key := range []string{
		pipeline.KeyBaseDir,
		pipeline.KeyEnv,
		pipeline.KeyOutputDir,
		pipeline.KeyManifestDir,
		pipeline.KeyManifestFile,
		pipeline.KeyResourcesFile,
		pipeline.KeyEntries,
		pipeline.KeyEntryPattern,
		pipeline.KeyExtensions,
		pipeline.KeyExtraExtensions,
		pipeline.KeyPublicPath,
		pipeline.KeyCompress,
		pipeline.KeySplitting,
		pipeline.KeyVerbose,
	} {
		_ = viper.BindPFlag(key, flags.Lookup(key))
	}

	rootCmd.AddCommand(build.Cmd)
	rootCmd.AddCommand(watch.Cmd)
	rootCmd.AddCommand(version.Cmd)
}

// initConfig reads the optional config file from the base directory and
// enables ASSETPIPE_* environment overrides.
func initConfig() error {
	viper.SetEnvPrefix("ASSETPIPE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName("assetpipe")
	viper.AddConfigPath(viper.GetString(pipeline.KeyBaseDir))
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config file: %w", err)
		}
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
