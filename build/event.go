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

import "fmt"

// EventKind is the kind of a file event.
type EventKind int

const (
	// Init reports a file found during initial discovery.
	Init EventKind = iota
	// Add reports a file created while watching.
	Add
	// Unlink reports a file removed while watching.
	Unlink
)

func (k EventKind) String() string {
	switch k {
	case Init:
		return "init"
	case Add:
		return "add"
	case Unlink:
		return "unlink"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is a file event. Path is relative to the registry's base directory.
type Event struct {
	Kind EventKind
	Path string
}

func (e Event) String() string {
	return e.Kind.String() + " " + e.Path
}
