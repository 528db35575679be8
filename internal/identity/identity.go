// Package identity decides when two stored stock records are the same stock.
//
// A record's logical identity is the tuple of its normalized project, part
// name, description, unit of measure and location. Keys are derived on every
// call from the raw stored strings; nothing here is persisted.
package identity

import (
	"strings"
)

// Normalize trims, lowercases and collapses internal whitespace runs to a
// single space. It is total: the empty string normalizes to itself.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Key is the normalized identity tuple. It is comparable and can be used as a
// map key.
type Key struct {
	Project     string `json:"project"`
	PartName    string `json:"part_name"`
	Description string `json:"description"`
	UOM         string `json:"uom"`
	Location    string `json:"location"`
}

// Fields carries the raw identity attributes of a record or an import row.
type Fields interface {
	IdentityFields() (project, partName, description, uom, location string)
}

// New builds a key from raw attribute strings.
func New(project, partName, description, uom, location string) Key {
	return Key{
		Project:     Normalize(project),
		PartName:    Normalize(partName),
		Description: Normalize(description),
		UOM:         Normalize(uom),
		Location:    Normalize(location),
	}
}

// Of derives the key of anything exposing identity fields.
func Of(f Fields) Key {
	return New(f.IdentityFields())
}

// String serializes the key with a unit separator between fields. Used as a
// lock name, so it must stay stable.
func (k Key) String() string {
	return strings.Join([]string{k.Project, k.PartName, k.Description, k.UOM, k.Location}, "\x1f")
}

// Diff names the fields in which k and other differ, in tuple order.
func (k Key) Diff(other Key) []string {
	var out []string
	if k.Project != other.Project {
		out = append(out, "project")
	}
	if k.PartName != other.PartName {
		out = append(out, "part_name")
	}
	if k.Description != other.Description {
		out = append(out, "description")
	}
	if k.UOM != other.UOM {
		out = append(out, "uom")
	}
	if k.Location != other.Location {
		out = append(out, "location")
	}
	return out
}
