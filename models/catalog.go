// Package models is the catalog of built-in example models.
package models

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gofmu/gofmu/fmi"
	"github.com/gofmu/gofmu/models/bouncingball"
	"github.com/gofmu/gofmu/models/lineartransform"
)

// Entry describes one built-in model.
type Entry struct {
	Name        string
	Description string
	// Versions lists the FMI versions the model can be described in; the first is the default.
	Versions []fmi.Version
	New      func() fmi.Model
}

// Supports reports whether the model can be described in version v.
func (e Entry) Supports(v fmi.Version) bool {
	for _, s := range e.Versions {
		if s == v {
			return true
		}
	}
	return false
}

// DefaultVersion is the first listed version.
func (e Entry) DefaultVersion() fmi.Version { return e.Versions[0] }

var catalog = map[string]Entry{
	"bouncingball": {
		Name:        "bouncingball",
		Description: "ball dropped from 1 m, bouncing until it rests",
		Versions:    []fmi.Version{fmi.FMI2, fmi.FMI3},
		New:         func() fmi.Model { return bouncingball.New() },
	},
	"lineartransform": {
		Name:        "lineartransform",
		Description: "y = scalar*A*u + offset with array variables sized by m",
		Versions:    []fmi.Version{fmi.FMI3},
		New:         func() fmi.Model { return lineartransform.New() },
	},
}

// Names returns the catalog names in sorted order.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for n := range catalog {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the entry registered under name.
func Lookup(name string) (Entry, error) {
	e, ok := catalog[name]
	if !ok {
		return Entry{}, fmt.Errorf("unknown model %q; valid: %s", name, strings.Join(Names(), ", "))
	}
	return e, nil
}
