package rules

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"fsdlint/internal/layers"
	"fsdlint/internal/project"
)

// propModule fabricates a module in a layer of the default hierarchy.
// Sliced layers get the given slice and segment; sliceless layers fold
// both into plain path components.
func propModule(l layers.Layer, slice, segment, name string) project.Module {
	if l.HasSlices {
		return project.Module{
			RelPath: l.Name + "/" + slice + "/" + segment + "/" + name,
			Layer:   l.Name,
			Slice:   slice,
			Segment: segment,
		}
	}
	return project.Module{
		RelPath: l.Name + "/" + segment + "/" + name,
		Layer:   l.Name,
		Segment: segment,
	}
}

func countRule(vs []Violation, r Rule) int {
	n := 0
	for _, v := range vs {
		if v.Rule == r {
			n++
		}
	}
	return n
}

// checkPair runs the default checker over a single edge between two
// fabricated modules.
func checkPair(c *Checker, from, to project.Module) []Violation {
	g := project.NewGraph("src",
		[]project.Module{from, to},
		[]project.Import{{From: from.RelPath, To: to.RelPath, Specifier: to.RelPath, Line: 1, Column: 1}},
		nil, nil)
	return c.Check(g)
}

func TestLayerOrderProperties(t *testing.T) {
	model := layers.Default()
	all := model.Layers()
	checker := NewChecker(model, DefaultOptions())

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	layerIdx := gen.IntRange(0, len(all)-1)
	segments := gen.OneConstOf("ui", "model", "api", "lib")
	slices := gen.OneConstOf("alpha", "beta", "gamma")

	properties.Property("downward imports never break the layer order", prop.ForAll(
		func(i, j int, seg string) bool {
			if i == j {
				return true
			}
			hi, lo := all[max(i, j)], all[min(i, j)]
			vs := checkPair(checker, propModule(hi, "alpha", seg, "a.ts"), propModule(lo, "beta", seg, "b.ts"))
			return countRule(vs, RuleLayerOrder) == 0
		},
		layerIdx, layerIdx, segments,
	))

	properties.Property("upward imports always break the layer order", prop.ForAll(
		func(i, j int, seg string) bool {
			if i == j {
				return true
			}
			lo, hi := all[min(i, j)], all[max(i, j)]
			vs := checkPair(checker, propModule(lo, "alpha", seg, "a.ts"), propModule(hi, "beta", seg, "b.ts"))
			return countRule(vs, RuleLayerOrder) == 1
		},
		layerIdx, layerIdx, segments,
	))

	properties.Property("edges into the foundation layer are never order violations", prop.ForAll(
		func(i int, seg string) bool {
			from := all[i]
			if from.Name == model.Shared().Name {
				return true
			}
			vs := checkPair(checker, propModule(from, "alpha", seg, "a.ts"), propModule(model.Shared(), "", seg, "b.ts"))
			return countRule(vs, RuleLayerOrder) == 0
		},
		layerIdx, segments,
	))

	properties.Property("edges out of the foundation layer are always order violations", prop.ForAll(
		func(i int, seg string) bool {
			to := all[i]
			if to.Name == model.Shared().Name {
				return true
			}
			vs := checkPair(checker, propModule(model.Shared(), "", seg, "a.ts"), propModule(to, "alpha", seg, "b.ts"))
			return countRule(vs, RuleLayerOrder) == 1
		},
		layerIdx, segments,
	))

	properties.Property("same slice edges trigger neither isolation nor boundary rules", prop.ForAll(
		func(i int, slice, fromSeg, toSeg string) bool {
			l := all[i]
			if !l.HasSlices {
				return true
			}
			vs := checkPair(checker, propModule(l, slice, fromSeg, "a.ts"), propModule(l, slice, toSeg, "b.ts"))
			return countRule(vs, RuleCrossSlice) == 0 && countRule(vs, RuleDeepImport) == 0
		},
		layerIdx, slices, segments, segments,
	))

	properties.Property("sibling slice edges are always isolation violations", prop.ForAll(
		func(i int, toSeg string) bool {
			l := all[i]
			if !l.HasSlices {
				return true
			}
			vs := checkPair(checker, propModule(l, "alpha", "ui", "a.ts"), propModule(l, "beta", toSeg, "b.ts"))
			return countRule(vs, RuleCrossSlice) == 1
		},
		layerIdx, segments,
	))

	properties.TestingRun(t)
}
