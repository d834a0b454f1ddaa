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

// Package compilertest provides an in-memory compiler for testing.
package compilertest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"bennypowers.dev/assetpipe/compiler"
)

// ErrSessionClosed is returned by Invalidate after Close.
var ErrSessionClosed = errors.New("compilertest: session closed")

// OutputFunc computes the raw output for a set of entries.
type OutputFunc func(entries map[string]string) compiler.Output

// DefaultOutput emits "<name>.js" and "<name>.js.map" per entry, in name order.
func DefaultOutput(entries map[string]string) compiler.Output {
	var out compiler.Output
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		files := []string{name + ".js", name + ".js.map"}
		out.Chunks = append(out.Chunks, compiler.Chunk{Name: name, Files: files})
		for _, f := range files {
			out.Assets = append(out.Assets, compiler.Asset{Name: f})
		}
	}
	return out
}

// Factory records every Compiler it creates.
type Factory struct {
	// Output overrides DefaultOutput for created compilers.
	Output OutputFunc
	// Err, if set, is returned instead of a compiler.
	Err error
	// Gate is handed to every created compiler.
	Gate chan struct{}

	mu        sync.Mutex
	compilers []*Compiler
}

// New implements compiler.Factory.
func (f *Factory) New(cfg compiler.Config) (compiler.Compiler, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	output := f.Output
	if output == nil {
		output = DefaultOutput
	}
	c := &Compiler{cfg: cfg, output: output, Gate: f.Gate}
	f.compilers = append(f.compilers, c)
	return c, nil
}

// Created returns the number of compilers created.
func (f *Factory) Created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.compilers)
}

// Last returns the most recently created compiler.
func (f *Factory) Last() *Compiler {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.compilers) == 0 {
		return nil
	}
	return f.compilers[len(f.compilers)-1]
}

// Compiler builds by calling its OutputFunc over the live entries.
type Compiler struct {
	cfg    compiler.Config
	output OutputFunc

	// RunErr, if set, makes Run fail.
	RunErr error
	// Diagnostics are attached to every Stats produced.
	Errors, Warnings []string
	// ModuleAssets are announced through the ModuleAsset hook on each
	// build, request keyed by file.
	ModuleAssets map[string]string
	// Gate, if set, delays the first watch cycle until it is closed.
	Gate chan struct{}

	runs          atomic.Int32
	watches       atomic.Int32
	invalidations atomic.Int32

	mu       sync.Mutex
	sessions []*Session
}

var _ compiler.Compiler = (*Compiler)(nil)

// Config returns the configuration the compiler was created with.
func (c *Compiler) Config() compiler.Config {
	return c.cfg
}

// Run implements compiler.Compiler.
func (c *Compiler) Run(ctx context.Context) (compiler.Stats, error) {
	c.runs.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.RunErr != nil {
		return nil, c.RunErr
	}
	return c.build(), nil
}

// Watch implements compiler.Compiler. The first cycle runs on its own
// goroutine, after Gate is closed when one is set.
func (c *Compiler) Watch(ctx context.Context, onBuild compiler.BuildFunc) (compiler.Session, error) {
	c.watches.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := &Session{compiler: c, onBuild: onBuild, done: make(chan struct{})}
	c.mu.Lock()
	c.sessions = append(c.sessions, s)
	c.mu.Unlock()

	gate := c.Gate
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if gate != nil {
			select {
			case <-gate:
			case <-s.done:
				return
			}
		}
		s.cycle()
	}()
	return s, nil
}

// Runs returns how many times Run was called.
func (c *Compiler) Runs() int { return int(c.runs.Load()) }

// Watches returns how many watch sessions were started.
func (c *Compiler) Watches() int { return int(c.watches.Load()) }

// Invalidations returns how many times a session was invalidated.
func (c *Compiler) Invalidations() int { return int(c.invalidations.Load()) }

// Session returns the most recent watch session.
func (c *Compiler) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sessions) == 0 {
		return nil
	}
	return c.sessions[len(c.sessions)-1]
}

func (c *Compiler) build() *compiler.StaticStats {
	entries := c.cfg.Entries.Entries()
	if c.cfg.Hooks.ModuleAsset != nil {
		for file, request := range c.ModuleAssets {
			c.cfg.Hooks.ModuleAsset(request, file)
		}
	}
	out := c.output(entries)
	for file := range c.ModuleAssets {
		out.Assets = append(out.Assets, compiler.Asset{Name: file})
	}
	return &compiler.StaticStats{
		ErrorMessages:   slices.Clone(c.Errors),
		WarningMessages: slices.Clone(c.Warnings),
		Raw:             out,
		Report:          fmt.Sprintf("compilertest: %d entries", len(entries)),
	}
}

// Session is a fake watch session. Each Invalidate triggers one rebuild.
type Session struct {
	compiler *Compiler
	onBuild  compiler.BuildFunc

	mu       sync.Mutex
	failNext error
	cycles   int
	closed   bool
	done     chan struct{}
	wg       sync.WaitGroup
}

var _ compiler.Session = (*Session)(nil)

// Invalidate implements compiler.Session. It acknowledges immediately and
// rebuilds on another goroutine.
func (s *Session) Invalidate(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.wg.Add(1)
	s.mu.Unlock()

	s.compiler.invalidations.Add(1)
	go func() {
		defer s.wg.Done()
		s.cycle()
	}()
	return ctx.Err()
}

// Close implements compiler.Session and waits for in-flight cycles.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()
	s.wg.Wait()
	return nil
}

// Wait blocks until all triggered cycles have completed.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Cycles returns the number of completed cycles.
func (s *Session) Cycles() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cycles
}

func (s *Session) cycle() {
	s.mu.Lock()
	failure := s.failNext
	s.failNext = nil
	s.mu.Unlock()

	if failure != nil {
		s.onBuild(nil, failure)
	} else {
		s.onBuild(s.compiler.build(), nil)
	}

	s.mu.Lock()
	s.cycles++
	s.mu.Unlock()
}

// SetFailNext makes the next cycle report err instead of stats.
func (s *Session) SetFailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}
