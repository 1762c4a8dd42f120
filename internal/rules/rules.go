// Package rules evaluates the import graph against the architecture
// rules: layer direction, slice isolation, and public-API boundaries.
// Violations are the checker's output payload, never control-flow
// errors.
package rules

// Rule identifies one family of checks.
type Rule string

const (
	// RuleLayerOrder flags imports pointing upward in the layer ranking.
	RuleLayerOrder Rule = "layer-order"
	// RuleCrossSlice flags imports between sibling slices of one layer.
	RuleCrossSlice Rule = "cross-slice"
	// RuleDeepImport flags imports reaching past a slice's public API.
	RuleDeepImport Rule = "deep-import"
	// RuleUnclassified flags modules outside every configured layer.
	RuleUnclassified Rule = "unclassified-module"
)

// Severity grades a violation.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// AtLeast reports whether s is at or above the threshold severity.
func (s Severity) AtLeast(threshold Severity) bool {
	if threshold == SeverityWarning {
		return true
	}
	return s == SeverityError
}

// Violation is one broken rule, tied to the import (or module) that
// broke it. Module-level violations carry line 0.
type Violation struct {
	File     string   `json:"file"`
	Line     int      `json:"line"`
	Column   int      `json:"column,omitempty"`
	Rule     Rule     `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// RuleOptions enables one rule family and sets its severity.
type RuleOptions struct {
	Enabled  bool
	Severity Severity
}

// Options configures the checker. Every family is independently
// toggleable.
type Options struct {
	LayerOrder   RuleOptions
	CrossSlice   RuleOptions
	DeepImport   RuleOptions
	Unclassified RuleOptions

	// CheckSlicelessSegments extends the public-API rule to segment
	// index files in layers without slices, so shared/ui must be
	// entered through its index as well.
	CheckSlicelessSegments bool
}

// DefaultOptions enables all families with their default severities.
func DefaultOptions() Options {
	return Options{
		LayerOrder:   RuleOptions{Enabled: true, Severity: SeverityError},
		CrossSlice:   RuleOptions{Enabled: true, Severity: SeverityError},
		DeepImport:   RuleOptions{Enabled: true, Severity: SeverityWarning},
		Unclassified: RuleOptions{Enabled: true, Severity: SeverityWarning},
	}
}
