// Package report assembles lint results into the final run report and
// renders it for humans or machines.
package report

import (
	"fsdlint/internal/project"
	"fsdlint/internal/rules"
)

// Summary aggregates one run's counts.
type Summary struct {
	Modules         int `json:"modules"`
	Imports         int `json:"imports"`
	Externals       int `json:"externals"`
	Unresolved      int `json:"unresolved"`
	ParseWarnings   int `json:"parse_warnings"`
	UnknownSegments int `json:"unknown_segments"`
	Errors          int `json:"errors"`
	Warnings        int `json:"warnings"`
}

// Report is the complete, order-stable result of one run. It carries
// only deterministic data, so repeat runs over an unchanged tree render
// byte-identically.
type Report struct {
	Root       string            `json:"root"`
	Violations []rules.Violation `json:"violations"`
	Warnings   []project.Warning `json:"warnings,omitempty"`
	Summary    Summary           `json:"summary"`
}

// New assembles a report from a built graph and its violations. Both
// inputs arrive sorted and are kept as-is.
func New(g *project.Graph, violations []rules.Violation) *Report {
	if violations == nil {
		violations = []rules.Violation{}
	}

	s := Summary{
		Modules:         len(g.Modules),
		Imports:         len(g.Imports),
		Externals:       len(g.Externals),
		UnknownSegments: g.UnknownSegmentCount(),
	}
	for _, w := range g.Warnings {
		switch w.Kind {
		case project.WarnParse:
			s.ParseWarnings++
		case project.WarnUnresolved:
			s.Unresolved++
		}
	}
	for _, v := range violations {
		if v.Severity == rules.SeverityError {
			s.Errors++
		} else {
			s.Warnings++
		}
	}

	return &Report{
		Root:       g.Root,
		Violations: violations,
		Warnings:   g.Warnings,
		Summary:    s,
	}
}

// ExceedsThreshold reports whether any violation sits at or above the
// given severity. It drives the CLI's exit code.
func (r *Report) ExceedsThreshold(threshold rules.Severity) bool {
	for _, v := range r.Violations {
		if v.Severity.AtLeast(threshold) {
			return true
		}
	}
	return false
}
