package rules

import (
	"fmt"
	"runtime"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"fsdlint/internal/layers"
	"fsdlint/internal/logging"
	"fsdlint/internal/project"
)

// shardThreshold is the edge count below which evaluation stays on one
// goroutine.
const shardThreshold = 256

// Checker evaluates a graph's edges against the rule families. It is
// stateless between runs; the same graph and options always yield the
// same violation list in the same order.
type Checker struct {
	model *layers.Model
	opts  Options
}

// NewChecker builds a checker over the given layer model.
func NewChecker(model *layers.Model, opts Options) *Checker {
	return &Checker{model: model, opts: opts}
}

// Check evaluates every module and resolved edge. No edge's outcome
// depends on another's, so the edge range is split into shards and
// evaluated in parallel; the concatenated results are sorted by
// (file, line, column, rule) before being returned.
func (c *Checker) Check(g *project.Graph) []Violation {
	timer := logging.StartTimer(logging.CategoryRules, "check graph")
	defer timer.Stop()

	var out []Violation
	if c.opts.Unclassified.Enabled {
		for _, m := range g.Modules {
			if m.Unclassified {
				out = append(out, c.unclassified(m))
			}
		}
	}

	edges := g.Imports
	shards := shardCount(len(edges))
	results := make([][]Violation, shards)
	if shards == 1 {
		var vs []Violation
		for _, e := range edges {
			vs = c.edgeViolations(vs, g, e)
		}
		results[0] = vs
	} else if shards > 1 {
		var eg errgroup.Group
		chunk := (len(edges) + shards - 1) / shards
		for s := 0; s < shards; s++ {
			lo := s * chunk
			hi := min(lo+chunk, len(edges))
			s := s
			eg.Go(func() error {
				var vs []Violation
				for _, e := range edges[lo:hi] {
					vs = c.edgeViolations(vs, g, e)
				}
				results[s] = vs
				return nil
			})
		}
		// Shard workers only collect values; they cannot fail.
		_ = eg.Wait()
	}

	for _, vs := range results {
		out = append(out, vs...)
	}
	sortViolations(out)

	logging.L(logging.CategoryRules).Debug("graph checked",
		zap.Int("edges", len(edges)), zap.Int("violations", len(out)))
	return out
}

func shardCount(edges int) int {
	if edges == 0 {
		return 0
	}
	if edges < shardThreshold {
		return 1
	}
	n := runtime.NumCPU()
	if n > 16 {
		n = 16
	}
	if n < 1 {
		n = 1
	}
	return n
}

// edgeViolations appends every violation for one edge. Edges touching
// an unclassified module are excluded from all families; rank
// comparisons against an unknown layer mean nothing.
func (c *Checker) edgeViolations(vs []Violation, g *project.Graph, e project.Import) []Violation {
	from, ok := g.Module(e.From)
	if !ok || from.Unclassified {
		return vs
	}
	to, ok := g.Module(e.To)
	if !ok || to.Unclassified {
		return vs
	}
	fromLayer, ok := c.model.Lookup(from.Layer)
	if !ok {
		return vs
	}
	toLayer, ok := c.model.Lookup(to.Layer)
	if !ok {
		return vs
	}

	sameLayer := fromLayer.Name == toLayer.Name

	if c.opts.LayerOrder.Enabled && !sameLayer {
		// Same-layer edges never break the ordering: sliceless layers
		// may compose freely and sliced ones belong to cross-slice.
		switch {
		case fromLayer.Rank == 0:
			// The foundation layer must have zero dependencies among
			// the other layers, independent of rank arithmetic.
			vs = append(vs, c.violation(e, RuleLayerOrder, c.opts.LayerOrder.Severity,
				fmt.Sprintf("%q is the foundation layer and must not import %q", fromLayer.Name, toLayer.Name)))
		case !c.model.Allowed(fromLayer, toLayer):
			vs = append(vs, c.violation(e, RuleLayerOrder, c.opts.LayerOrder.Severity,
				fmt.Sprintf("%q (rank %d) must not import higher layer %q (rank %d)",
					fromLayer.Name, fromLayer.Rank, toLayer.Name, toLayer.Rank)))
		}
	}

	crossSlice := sameLayer && fromLayer.HasSlices && from.Slice != to.Slice
	if c.opts.CrossSlice.Enabled && crossSlice && !to.IsCrossRef {
		vs = append(vs, c.violation(e, RuleCrossSlice, c.opts.CrossSlice.Severity,
			fmt.Sprintf("slice %q must not import sibling slice %q in layer %q",
				from.Slice, to.Slice, fromLayer.Name)))
	}

	if c.opts.DeepImport.Enabled && c.deepImportApplies(sameLayer, crossSlice) && !to.IsCrossRef {
		switch {
		case toLayer.HasSlices && !to.IsEntry:
			vs = append(vs, c.violation(e, RuleDeepImport, c.opts.DeepImport.Severity,
				fmt.Sprintf("import bypasses the public API of slice %q", toLayer.Name+"/"+to.Slice)))
		case !toLayer.HasSlices && c.opts.CheckSlicelessSegments && to.Segment != "" && !to.IsEntry:
			vs = append(vs, c.violation(e, RuleDeepImport, c.opts.DeepImport.Severity,
				fmt.Sprintf("import bypasses the public API of segment %q", toLayer.Name+"/"+to.Segment)))
		}
	}

	return vs
}

// deepImportApplies limits the public-API rule to external consumers:
// cross-layer edges always qualify; same-slice composition never does.
// Cross-slice edges are left to the slice-isolation family while it is
// enabled, and re-covered here when it is not.
func (c *Checker) deepImportApplies(sameLayer, crossSlice bool) bool {
	if !sameLayer {
		return true
	}
	return crossSlice && !c.opts.CrossSlice.Enabled
}

func (c *Checker) unclassified(m project.Module) Violation {
	msg := "file sits outside every configured layer"
	if m.Layer != "" {
		msg = fmt.Sprintf("%q is not a configured layer (configured: %s)",
			m.Layer, strings.Join(c.model.Names(), ", "))
	}
	return Violation{
		File:     m.RelPath,
		Rule:     RuleUnclassified,
		Severity: c.opts.Unclassified.Severity,
		Message:  msg,
	}
}

func (c *Checker) violation(e project.Import, rule Rule, sev Severity, msg string) Violation {
	return Violation{
		File:     e.From,
		Line:     e.Line,
		Column:   e.Column,
		Rule:     rule,
		Severity: sev,
		Message:  msg,
	}
}

func sortViolations(vs []Violation) {
	sort.Slice(vs, func(i, j int) bool {
		a, b := vs[i], vs[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		return a.Rule < b.Rule
	})
}
