package project

import (
	"path"
	"strings"

	"fsdlint/internal/layers"
)

// classifier derives a Module's layer, slice, segment, and entry flags
// from its root-relative path. It is read-only after construction and
// safe for concurrent use.
type classifier struct {
	model       *layers.Model
	segments    map[string]struct{}
	entry       string
	crossRefDir string
}

func newClassifier(model *layers.Model, segments []string, entry, crossRefDir string) *classifier {
	set := make(map[string]struct{}, len(segments))
	for _, s := range segments {
		set[s] = struct{}{}
	}
	return &classifier{
		model:       model,
		segments:    set,
		entry:       entry,
		crossRefDir: crossRefDir,
	}
}

// Classify maps one root-relative path into the hierarchy.
func (c *classifier) Classify(rel string) Module {
	m := Module{RelPath: rel}

	parts := strings.Split(rel, "/")
	if len(parts) == 1 {
		// A file directly under the root belongs to no layer.
		m.Unclassified = true
		return m
	}

	m.Layer = parts[0]
	layer, ok := c.model.Lookup(parts[0])
	if !ok {
		m.Unclassified = true
		return m
	}

	rest := parts[1:]
	if layer.HasSlices {
		if len(rest) == 1 {
			// A single file forms a slice of its own and is its own
			// public API.
			m.Slice = stem(rest[0])
			m.IsEntry = true
			return m
		}

		m.Slice = rest[0]
		rest = rest[1:]

		if rest[0] == c.crossRefDir && c.crossRefDir != "" {
			m.IsCrossRef = true
			return m
		}
		if len(rest) == 1 {
			switch s := stem(rest[0]); {
			case s == c.entry:
				m.IsEntry = true
			case s == c.crossRefDir && c.crossRefDir != "":
				m.IsCrossRef = true
			}
			return m
		}

		m.Segment = c.segmentName(rest[0])
		return m
	}

	// Layers without slices hold segments directly.
	if len(rest) == 1 {
		if stem(rest[0]) == c.entry {
			m.IsEntry = true
		}
		return m
	}
	m.Segment = c.segmentName(rest[0])
	if len(rest) == 2 && stem(rest[1]) == c.entry {
		m.IsEntry = true
	}
	return m
}

func (c *classifier) segmentName(dir string) string {
	if _, ok := c.segments[dir]; ok {
		return dir
	}
	return SegmentUnknown
}

func stem(name string) string {
	return strings.TrimSuffix(name, path.Ext(name))
}
