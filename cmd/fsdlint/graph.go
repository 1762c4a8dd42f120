package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/awalterschulze/gographviz"
	"github.com/spf13/cobra"

	"fsdlint/internal/layers"
	"fsdlint/internal/project"
	"fsdlint/internal/rules"
)

// runGraph builds the module graph and exports it as DOT or JSON.
func runGraph(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	root := cfg.Root
	if len(args) > 0 {
		root = args[0]
	}

	model, err := layers.NewModel(cfg.LayerDefinitions())
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	g, err := project.NewBuilder(model, buildOptions(cfg, root)).Build(ctx)
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}

	var out string
	switch graphFormat {
	case "dot", "":
		violations := rules.NewChecker(model, checkerOptions(cfg)).Check(g)
		out, err = renderDOT(model, g, violations)
		if err != nil {
			return failf("building DOT graph: %v", err)
		}
	case "json":
		data, err := json.MarshalIndent(g, "", "  ")
		if err != nil {
			return failf("encoding graph: %v", err)
		}
		out = string(data) + "\n"
	default:
		return failf("unknown graph format %q (want dot or json)", graphFormat)
	}

	if graphOut == "" {
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	}
	if err := os.WriteFile(graphOut, []byte(out), 0644); err != nil {
		return failf("writing %s: %v", graphOut, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", graphOut)
	return nil
}

// graphName is the DOT graph identifier, pre-quoted the way gographviz
// expects.
const graphName = `"fsdlint"`

// renderDOT draws the architecture: one cluster per layer in rank
// order, sliced layers aggregated to one node per slice, and edges
// that violate a rule in red. Modules and imports arrive sorted, so
// output is stable across runs.
func renderDOT(model *layers.Model, g *project.Graph, violations []rules.Violation) (string, error) {
	dot := gographviz.NewGraph()
	if err := dot.SetName(graphName); err != nil {
		return "", err
	}
	if err := dot.SetDir(true); err != nil {
		return "", err
	}
	if err := dot.AddAttr(graphName, "rankdir", q("TB")); err != nil {
		return "", err
	}

	units := make(map[string]bool)
	for _, l := range model.Layers() {
		cluster := q("cluster_" + l.Name)
		clusterAdded := false
		for _, m := range g.Modules {
			if m.Unclassified || m.Layer != l.Name {
				continue
			}
			unit := unitOf(m)
			if units[unit] {
				continue
			}
			if !clusterAdded {
				if err := dot.AddSubGraph(graphName, cluster, map[string]string{"label": q(l.Name)}); err != nil {
					return "", err
				}
				clusterAdded = true
			}
			label := l.Name
			if m.Slice != "" {
				label = m.Slice
			}
			if err := dot.AddNode(cluster, q(unit), map[string]string{
				"label": q(label),
				"shape": q("box"),
			}); err != nil {
				return "", err
			}
			units[unit] = true
		}
	}

	// Edge-level violations keyed by import position; module-level
	// findings have no edge to color.
	flagged := make(map[string]bool, len(violations))
	for _, v := range violations {
		if v.Rule == rules.RuleUnclassified {
			continue
		}
		flagged[fmt.Sprintf("%s:%d:%d", v.File, v.Line, v.Column)] = true
	}

	type edge struct {
		from, to  string
		violating bool
	}
	var order []string
	agg := make(map[string]*edge)
	for _, imp := range g.Imports {
		from, okFrom := g.Module(imp.From)
		to, okTo := g.Module(imp.To)
		if !okFrom || !okTo || from.Unclassified || to.Unclassified {
			continue
		}
		fromUnit, toUnit := unitOf(from), unitOf(to)
		if fromUnit == toUnit {
			continue
		}
		key := fromUnit + " -> " + toUnit
		e, ok := agg[key]
		if !ok {
			e = &edge{from: fromUnit, to: toUnit}
			agg[key] = e
			order = append(order, key)
		}
		if flagged[fmt.Sprintf("%s:%d:%d", imp.From, imp.Line, imp.Column)] {
			e.violating = true
		}
	}

	for _, key := range order {
		e := agg[key]
		attrs := map[string]string{"color": q("gray50")}
		if e.violating {
			attrs = map[string]string{"color": q("red"), "penwidth": "2"}
		}
		if err := dot.AddEdge(q(e.from), q(e.to), true, attrs); err != nil {
			return "", err
		}
	}

	return dot.String(), nil
}

// unitOf names a module's aggregation unit: its slice for sliced
// layers, the layer itself otherwise.
func unitOf(m project.Module) string {
	if m.Slice != "" {
		return m.Layer + "/" + m.Slice
	}
	return m.Layer
}

// q quotes a DOT identifier. gographviz emits names verbatim, and
// slice units contain slashes.
func q(s string) string { return `"` + s + `"` }
