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

// Package entry names build entries and tracks which source files are entries.
package entry

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Mode selects development or production naming and compilation.
type Mode string

const (
	Development Mode = "development"
	Production  Mode = "production"
)

// ErrInvalidMode is returned for an environment mode other than
// development or production.
var ErrInvalidMode = errors.New("invalid environment mode")

// ParseMode parses an environment name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case Development, Production:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w: %q (must be %q or %q)", ErrInvalidMode, s, Development, Production)
}

// IsDevelopment reports whether m is development mode.
func (m Mode) IsDevelopment() bool {
	return m == Development
}

// DefaultHashLength is the number of hex characters kept from the path hash.
const DefaultHashLength = 8

// Namer generates an entry name for a path relative to the base directory.
// Implementations must be pure: the same inputs always produce the same name.
type Namer interface {
	Name(relativePath string, mode Mode) string
}

// NamerFunc adapts a function to the Namer interface.
type NamerFunc func(relativePath string, mode Mode) string

// Name calls f.
func (f NamerFunc) Name(relativePath string, mode Mode) string {
	return f(relativePath, mode)
}

// HashNamer names entries by a sha1 hash of their relative path.
// In development the readable path is prefixed, e.g. "src-app.js-1a2b3c4d";
// in production only the hash is used.
type HashNamer struct {
	// Length is the number of hex characters to keep.
	// Values below DefaultHashLength use DefaultHashLength.
	Length int
}

// Name implements Namer.
func (n HashNamer) Name(relativePath string, mode Mode) string {
	rel := NormalizePath(relativePath)
	sum := sha1.Sum([]byte(rel))
	hash := hex.EncodeToString(sum[:])

	length := n.Length
	if length < DefaultHashLength {
		length = DefaultHashLength
	}
	if length < len(hash) {
		hash = hash[:length]
	}

	if mode.IsDevelopment() {
		return strings.ReplaceAll(rel, "/", "-") + "-" + hash
	}
	return hash
}

// NormalizePath cleans a relative path and converts separators to forward
// slashes so names do not depend on the host OS.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return filepath.ToSlash(filepath.Clean(filepath.FromSlash(p)))
}
