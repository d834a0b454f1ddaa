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
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/evanw/esbuild/pkg/api"

	"bennypowers.dev/assetpipe/compiler"
)

// session is a running esbuild watch context. esbuild fixes the entry
// points of a context when it is created, so an invalidation with a changed
// entry set replaces the context; otherwise it asks for a rebuild.
type session struct {
	compiler *Compiler
	onBuild  compiler.BuildFunc

	mu      sync.Mutex
	ctx     api.BuildContext
	entries map[string]string
	closed  bool
	wg      sync.WaitGroup
}

var _ compiler.Session = (*session)(nil)

// Invalidate implements compiler.Session. The rebuild runs in the
// background; its result arrives through the session's BuildFunc.
func (s *session) Invalidate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return
		}
		if err := s.refreshLocked(); err != nil {
			s.onBuild(nil, err)
		}
	}()
	return nil
}

// Close implements compiler.Session.
func (s *session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.ctx != nil {
		s.ctx.Dispose()
		s.ctx = nil
	}
	s.mu.Unlock()
	s.wg.Wait()
	return nil
}

// refreshLocked rebuilds with the current entries, replacing the esbuild
// context when the entry set changed.
func (s *session) refreshLocked() error {
	entries := s.compiler.cfg.Entries.Entries()

	if s.ctx != nil && maps.Equal(entries, s.entries) {
		s.wg.Add(1)
		go func(bc api.BuildContext) {
			defer s.wg.Done()
			bc.Rebuild()
		}(s.ctx)
		return nil
	}

	if s.ctx != nil {
		s.ctx.Dispose()
		s.ctx = nil
	}
	s.entries = entries

	if len(entries) == 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.onBuild(emptyStats(), nil)
		}()
		return nil
	}

	opts := s.compiler.options(entries)
	opts.Plugins = []api.Plugin{s.reporter(entries)}

	bc, ctxErr := api.Context(opts)
	if ctxErr != nil {
		msgs := api.FormatMessages(ctxErr.Errors, api.FormatMessagesOptions{Kind: api.ErrorMessage})
		return fmt.Errorf("%w:\n%s", ErrBuildFailed, strings.Join(msgs, "\n"))
	}
	if err := bc.Watch(api.WatchOptions{}); err != nil {
		bc.Dispose()
		return fmt.Errorf("starting esbuild watch: %w", err)
	}
	s.ctx = bc
	return nil
}

// reporter delivers every finished build of a context to onBuild.
func (s *session) reporter(entries map[string]string) api.Plugin {
	return api.Plugin{
		Name: "assetpipe-reporter",
		Setup: func(pb api.PluginBuild) {
			var mu sync.Mutex
			var start time.Time
			pb.OnStart(func() (api.OnStartResult, error) {
				mu.Lock()
				start = time.Now()
				mu.Unlock()
				return api.OnStartResult{}, nil
			})
			pb.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				mu.Lock()
				elapsed := time.Since(start)
				mu.Unlock()
				stats, err := s.compiler.finish(result, entries, elapsed)
				if err != nil {
					s.onBuild(nil, err)
				} else {
					s.onBuild(stats, nil)
				}
				return api.OnEndResult{}, nil
			})
		},
	}
}
