// Package icons holds the closed catalog of icon names an element may
// reference. The catalog is loaded once and is read-only afterwards.
package icons

import (
	_ "embed"
	"fmt"
	"slices"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed icons.cue
var catalogSource []byte

// Catalog is an immutable set of icon names.
type Catalog struct {
	names []string
	set   map[string]struct{}
}

// New builds a catalog from the given names. Duplicates are ignored.
func New(names ...string) *Catalog {
	c := &Catalog{set: make(map[string]struct{}, len(names))}
	for _, n := range names {
		if _, dup := c.set[n]; dup {
			continue
		}
		c.set[n] = struct{}{}
		c.names = append(c.names, n)
	}
	slices.Sort(c.names)
	return c
}

// IsValid reports whether name is in the catalog. Matching is case-sensitive.
func (c *Catalog) IsValid(name string) bool {
	_, ok := c.set[name]
	return ok
}

// Names returns the catalog in sorted order.
func (c *Catalog) Names() []string {
	return slices.Clone(c.names)
}

// Len returns the number of icons.
func (c *Catalog) Len() int { return len(c.names) }

// Load decodes the "icons" list from CUE source.
func Load(src []byte) (*Catalog, error) {
	val := cuecontext.New().CompileBytes(src, cue.Filename("icons.cue"))
	if err := val.Err(); err != nil {
		return nil, fmt.Errorf("compiling icon catalog: %w", err)
	}
	var names []string
	if err := val.LookupPath(cue.ParsePath("icons")).Decode(&names); err != nil {
		return nil, fmt.Errorf("decoding icon catalog: %w", err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("icon catalog is empty")
	}
	return New(names...), nil
}

// Default returns the embedded catalog.
var Default = sync.OnceValues(func() (*Catalog, error) {
	return Load(catalogSource)
})

// MustDefault is Default, panicking on a malformed embedded catalog.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}
