package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// AllTarget expands to every registered descriptor.
const AllTarget = "all"

// Catalog is the immutable set of descriptors and category aliases loaded at
// process start.
type Catalog struct {
	descriptors map[string]Descriptor
	categories  map[string][]string
}

// New validates the descriptors and builds a catalog. Category members must
// name registered descriptors.
func New(descriptors []Descriptor, categories map[string][]string) (*Catalog, error) {
	c := &Catalog{
		descriptors: make(map[string]Descriptor, len(descriptors)),
		categories:  map[string][]string{},
	}

	var errs []error
	for _, d := range descriptors {
		if err := d.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		key := d.Key()
		if _, dup := c.descriptors[key]; dup {
			errs = append(errs, fmt.Errorf("duplicate descriptor %q", d.Name))
			continue
		}
		c.descriptors[key] = d
	}

	for name, members := range categories {
		c.addCategory(name, members...)
	}
	for _, key := range c.Names() {
		d := c.descriptors[key]
		for _, cat := range d.Categories {
			c.addCategory(cat, d.Key())
		}
	}

	for name, members := range c.categories {
		if name == AllTarget {
			errs = append(errs, fmt.Errorf("category %q is reserved", AllTarget))
			continue
		}
		if _, clash := c.descriptors[name]; clash {
			errs = append(errs, fmt.Errorf("category %q shadows a tool of the same name", name))
		}
		for _, member := range members {
			if _, ok := c.descriptors[member]; !ok {
				errs = append(errs, fmt.Errorf("category %q references unknown tool %q", name, member))
			}
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return c, nil
}

func (c *Catalog) addCategory(name string, members ...string) {
	key := normalizeName(name)
	if key == "" {
		return
	}
	existing := c.categories[key]
	for _, m := range members {
		m = normalizeName(m)
		if m == "" || containsString(existing, m) {
			continue
		}
		existing = append(existing, m)
	}
	c.categories[key] = existing
}

// Get returns the descriptor registered under name.
func (c *Catalog) Get(name string) (Descriptor, bool) {
	d, ok := c.descriptors[normalizeName(name)]
	return d, ok
}

// Names returns every descriptor key in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.descriptors))
	for name := range c.descriptors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Descriptors returns every descriptor sorted by key.
func (c *Catalog) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(c.descriptors))
	for _, name := range c.Names() {
		out = append(out, c.descriptors[name])
	}
	return out
}

// Category returns the members of a category alias in declaration order.
func (c *Catalog) Category(name string) ([]string, bool) {
	members, ok := c.categories[normalizeName(name)]
	if !ok {
		return nil, false
	}
	return append([]string(nil), members...), true
}

// CategoryNames returns every category alias in sorted order.
func (c *Catalog) CategoryNames() []string {
	names := make([]string, 0, len(c.categories))
	for name := range c.categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len reports the number of descriptors.
func (c *Catalog) Len() int {
	return len(c.descriptors)
}

func containsString(values []string, v string) bool {
	for _, existing := range values {
		if strings.EqualFold(existing, v) {
			return true
		}
	}
	return false
}
