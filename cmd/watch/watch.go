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

// Package watch provides the watch command for assetpipe.
package watch

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/assetpipe/build"
	"bennypowers.dev/assetpipe/fs"
	"bennypowers.dev/assetpipe/internal/output"
	"bennypowers.dev/assetpipe/internal/pipeline"
	"bennypowers.dev/assetpipe/watch"
)

// Cmd is the watch command.
var Cmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild continuously as entry files change",
	Long: `Start a single watch session over the discovered entries and keep the
manifest and resource map up to date as files are added or removed.

Content changes are rebuilt by the bundler's own watcher; added and removed
files update the entry set and trigger a rebuild. Build failures are logged
and the session keeps running. Stop with Ctrl-C.`,
	Example: `  # Development watch into public/assets
  assetpipe watch --env development --output-dir public/assets

  # Batch file events over half a second
  assetpipe watch --output-dir dist --debounce 500ms`,
	RunE: run,
}

func init() {
	Cmd.Flags().Duration("debounce", watch.DefaultDebounce, "Delay before a batch of file events is processed")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := pipeline.FromViper(viper.GetViper())
	if err != nil {
		return err
	}
	logger := output.Stderr()
	debounce, _ := cmd.Flags().GetDuration("debounce")

	p, err := pipeline.New(fs.NewOSFileSystem(), cfg, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	// Start watching before the initial scan so nothing added meanwhile is missed.
	w, err := watch.New(cfg.BaseDir, cfg.Matcher(),
		watch.WithDebounce(debounce),
		watch.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer w.Close()

	events, err := p.Scan()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if err := p.Orchestrator.Process(ctx, events, true); err != nil {
		return err
	}
	logger.Info("Watching %s (%d entries)", cfg.BaseDir, p.Registry.Len())

	return w.Run(ctx, func(ctx context.Context, batch []build.Event) error {
		for _, ev := range batch {
			logger.Debug("%s", ev)
		}
		return p.Orchestrator.Process(ctx, batch, true)
	})
}
