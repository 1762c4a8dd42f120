// Package project builds the import graph of a source tree: it scans
// files, classifies each one into the layer hierarchy, extracts import
// statements, and resolves them into module-to-module edges.
package project

import "sort"

// SegmentUnknown marks a directory inside a slice that is not one of
// the configured segment names.
const SegmentUnknown = "unknown"

// Module is one source file classified into the layer hierarchy.
type Module struct {
	// Path is the absolute file path. It is environment specific and
	// never serialized.
	Path string `json:"-"`
	// RelPath is the root-relative path, slash separated.
	RelPath string `json:"path"`

	Layer   string `json:"layer,omitempty"`
	Slice   string `json:"slice,omitempty"`
	Segment string `json:"segment,omitempty"`

	// IsEntry marks the public-API file of its slice (or of a layer or
	// segment in layers without slices).
	IsEntry bool `json:"is_entry,omitempty"`
	// IsCrossRef marks a sanctioned cross-slice reference file.
	IsCrossRef bool `json:"is_cross_ref,omitempty"`
	// Unclassified marks files outside any configured layer.
	Unclassified bool `json:"unclassified,omitempty"`
}

// Import is one import edge. To is empty for external imports.
type Import struct {
	From      string `json:"from"`
	To        string `json:"to,omitempty"`
	Specifier string `json:"specifier"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	External  bool   `json:"external,omitempty"`
}

// WarningKind labels non-fatal problems found while building the graph.
type WarningKind string

const (
	WarnParse      WarningKind = "parse"
	WarnUnresolved WarningKind = "unresolved-import"
)

// Warning is a non-fatal problem tied to one file.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	File    string      `json:"file"`
	Line    int         `json:"line,omitempty"`
	Message string      `json:"message"`
}

// Graph is the closed result of one build: every module under the
// root, every resolved edge between them, and everything that could
// not be resolved. All slices are fully sorted, so two builds over the
// same tree produce identical graphs.
type Graph struct {
	Root      string    `json:"root"`
	Modules   []Module  `json:"modules"`
	Imports   []Import  `json:"imports"`
	Externals []Import  `json:"externals,omitempty"`
	Warnings  []Warning `json:"warnings,omitempty"`

	byRel map[string]int
}

// NewGraph assembles and sorts a graph. Tests construct graphs through
// this as well, so ordering is structural rather than incidental.
func NewGraph(root string, modules []Module, imports, externals []Import, warnings []Warning) *Graph {
	g := &Graph{
		Root:      root,
		Modules:   modules,
		Imports:   imports,
		Externals: externals,
		Warnings:  warnings,
		byRel:     make(map[string]int, len(modules)),
	}

	sort.Slice(g.Modules, func(i, j int) bool { return g.Modules[i].RelPath < g.Modules[j].RelPath })
	sortImports(g.Imports)
	sortImports(g.Externals)
	sort.Slice(g.Warnings, func(i, j int) bool {
		a, b := g.Warnings[i], g.Warnings[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Message < b.Message
	})

	for i := range g.Modules {
		g.byRel[g.Modules[i].RelPath] = i
	}
	return g
}

func sortImports(imports []Import) {
	sort.Slice(imports, func(i, j int) bool {
		a, b := imports[i], imports[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		return a.To < b.To
	})
}

// Module returns the module at a root-relative path.
func (g *Graph) Module(rel string) (Module, bool) {
	i, ok := g.byRel[rel]
	if !ok {
		return Module{}, false
	}
	return g.Modules[i], true
}

// UnknownSegmentCount counts modules sitting under unrecognized segment
// directories. They are a structure smell surfaced in the summary, not
// a violation.
func (g *Graph) UnknownSegmentCount() int {
	n := 0
	for i := range g.Modules {
		if g.Modules[i].Segment == SegmentUnknown {
			n++
		}
	}
	return n
}
