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
package entry_test

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"bennypowers.dev/assetpipe/entry"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    entry.Mode
		wantErr bool
	}{
		{"development", entry.Development, false},
		{"production", entry.Production, false},
		{"staging", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := entry.ParseMode(tt.in)
			if tt.wantErr {
				if !errors.Is(err, entry.ErrInvalidMode) {
					t.Fatalf("ParseMode(%q): expected ErrInvalidMode, got %v", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMode(%q) failed: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestHashNamerProduction(t *testing.T) {
	n := entry.HashNamer{}
	name := n.Name("src/app.js", entry.Production)

	if !regexp.MustCompile(`^[0-9a-f]{8}$`).MatchString(name) {
		t.Fatalf("Expected 8 hex characters, got %q", name)
	}
	if again := n.Name("src/app.js", entry.Production); again != name {
		t.Errorf("Name is not stable: %q then %q", name, again)
	}
}

func TestHashNamerDevelopment(t *testing.T) {
	n := entry.HashNamer{}
	prod := n.Name("src/pages/home.js", entry.Production)
	dev := n.Name("src/pages/home.js", entry.Development)

	want := "src-pages-home.js-" + prod
	if dev != want {
		t.Errorf("Development name = %q, want %q", dev, want)
	}
}

func TestHashNamerNormalizesSeparators(t *testing.T) {
	n := entry.HashNamer{}
	a := n.Name("src/pages/home.js", entry.Development)
	b := n.Name(`src\pages\home.js`, entry.Development)
	c := n.Name("./src/pages/../pages/home.js", entry.Development)
	if a != b || a != c {
		t.Errorf("Expected equal names, got %q, %q, %q", a, b, c)
	}
}

func TestHashNamerLength(t *testing.T) {
	if got := len(entry.HashNamer{Length: 12}.Name("a.js", entry.Production)); got != 12 {
		t.Errorf("Expected 12 characters, got %d", got)
	}
	if got := len(entry.HashNamer{Length: 4}.Name("a.js", entry.Production)); got != entry.DefaultHashLength {
		t.Errorf("Expected minimum of %d characters, got %d", entry.DefaultHashLength, got)
	}
}

func TestHashNamerDistinct(t *testing.T) {
	n := entry.HashNamer{}
	seen := make(map[string]string)
	for i := range 2000 {
		p := fmt.Sprintf("src/components/c%04d/index.js", i)
		name := n.Name(p, entry.Production)
		if other, ok := seen[name]; ok {
			t.Fatalf("Collision between %s and %s on %s", other, p, name)
		}
		seen[name] = p
	}
}

func TestNamerFunc(t *testing.T) {
	n := entry.NamerFunc(func(p string, m entry.Mode) string {
		return strings.ToUpper(p) + string(m)
	})
	if got := n.Name("a", entry.Production); got != "Aproduction" {
		t.Errorf("NamerFunc returned %q", got)
	}
}
