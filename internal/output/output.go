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

// Package output provides shared output utilities for assetpipe CLI commands.
package output

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/viper"

	"bennypowers.dev/assetpipe/manifest"
)

// Logger writes build messages to stderr with colored level prefixes.
// Debug messages are only shown in verbose mode.
type Logger struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool

	debug, info, warning, fail *color.Color
}

// NewLogger creates a Logger writing to w.
func NewLogger(w io.Writer, verbose bool) *Logger {
	return &Logger{
		w:       w,
		verbose: verbose,
		debug:   color.New(color.Faint),
		info:    color.New(color.FgCyan),
		warning: color.New(color.FgYellow, color.Bold),
		fail:    color.New(color.FgRed, color.Bold),
	}
}

// Stderr returns a Logger on stderr, verbose when viper's "verbose" is set.
func Stderr() *Logger {
	return NewLogger(color.Error, viper.GetBool("verbose"))
}

func (l *Logger) Debug(format string, args ...any) {
	if l.verbose {
		l.print(l.debug, "debug", format, args...)
	}
}

func (l *Logger) Info(format string, args ...any) {
	l.print(l.info, "info", format, args...)
}

func (l *Logger) Warning(format string, args ...any) {
	l.print(l.warning, "warning", format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.print(l.fail, "error", format, args...)
}

func (l *Logger) print(c *color.Color, level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, "%s %s\n", c.Sprint(level+":"), fmt.Sprintf(format, args...))
}

// Manifest prints a manifest as JSON to stdout.
func Manifest(m manifest.Manifest) error {
	data, err := m.ToJSON()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, string(data))
	return err
}
