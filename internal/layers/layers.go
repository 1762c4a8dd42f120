// Package layers defines the ordered layer hierarchy that governs which
// imports are legal between the parts of a project.
package layers

import (
	"fmt"
	"strings"
)

// Layer is one level of the hierarchy. Rank 0 is the most foundational
// layer; higher ranks may depend on lower ones, never the reverse.
type Layer struct {
	Name      string
	Rank      int
	HasSlices bool
}

// Definition describes a layer as it appears in configuration. Position
// in the slice determines rank.
type Definition struct {
	Name      string
	HasSlices bool
}

// DefaultDefinitions returns the canonical hierarchy from shared up to app.
func DefaultDefinitions() []Definition {
	return []Definition{
		{Name: "shared"},
		{Name: "entities", HasSlices: true},
		{Name: "features", HasSlices: true},
		{Name: "widgets", HasSlices: true},
		{Name: "views", HasSlices: true},
		{Name: "app"},
	}
}

// Model is an immutable, validated layer hierarchy.
type Model struct {
	ordered []Layer
	byName  map[string]Layer
}

// NewModel builds a Model from ordered definitions. Names must be
// non-empty and unique.
func NewModel(defs []Definition) (*Model, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("at least one layer must be configured")
	}
	m := &Model{
		ordered: make([]Layer, 0, len(defs)),
		byName:  make(map[string]Layer, len(defs)),
	}
	for i, def := range defs {
		name := strings.TrimSpace(def.Name)
		if name == "" {
			return nil, fmt.Errorf("layer %d has an empty name", i)
		}
		if _, dup := m.byName[name]; dup {
			return nil, fmt.Errorf("duplicate layer %q", name)
		}
		l := Layer{Name: name, Rank: i, HasSlices: def.HasSlices}
		m.ordered = append(m.ordered, l)
		m.byName[name] = l
	}
	return m, nil
}

// Default returns the model for the canonical hierarchy.
func Default() *Model {
	m, err := NewModel(DefaultDefinitions())
	if err != nil {
		panic(err)
	}
	return m
}

// Layers returns the hierarchy from rank 0 upward.
func (m *Model) Layers() []Layer {
	out := make([]Layer, len(m.ordered))
	copy(out, m.ordered)
	return out
}

// Len returns the number of configured layers.
func (m *Model) Len() int { return len(m.ordered) }

// Shared returns the rank-0 foundation layer.
func (m *Model) Shared() Layer { return m.ordered[0] }

// Lookup returns the layer with the given name.
func (m *Model) Lookup(name string) (Layer, bool) {
	l, ok := m.byName[name]
	return l, ok
}

// RankOf returns the rank of a configured layer name, or an
// *UnknownLayerError for names outside the model.
func (m *Model) RankOf(name string) (int, error) {
	l, ok := m.byName[name]
	if !ok {
		return 0, &UnknownLayerError{Name: name, Known: m.Names()}
	}
	return l.Rank, nil
}

// Names returns the configured layer names from rank 0 upward.
func (m *Model) Names() []string {
	names := make([]string, len(m.ordered))
	for i, l := range m.ordered {
		names[i] = l.Name
	}
	return names
}

// Allowed reports whether an import from one layer into another respects
// the hierarchy: the target must sit strictly below the source. Imports
// inside a single layer are allowed here; slice isolation within a layer
// is a separate concern.
func (m *Model) Allowed(from, to Layer) bool {
	if from.Name == to.Name {
		return true
	}
	return to.Rank < from.Rank
}
