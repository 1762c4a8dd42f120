package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"fsdlint/internal/history"
)

var styleTrendHeader = lipgloss.NewStyle().Bold(true)

// runTrend lists recorded runs, newest first.
func runTrend(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}
	defer store.Close()

	runs, err := store.Recent(trendLimit)
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no recorded runs yet; run `fsdlint check --history` to record one")
		return nil
	}

	var b strings.Builder
	b.WriteString(styleTrendHeader.Render(fmt.Sprintf("%-16s  %-24s  %8s  %6s  %6s  %8s",
		"WHEN", "ROOT", "MODULES", "EDGES", "ERRORS", "WARNINGS")) + "\n")
	for _, r := range runs {
		b.WriteString(fmt.Sprintf("%-16s  %-24s  %8d  %6d  %6d  %8d\n",
			r.CreatedAt.Format("2006-01-02 15:04"),
			truncate(r.Root, 24),
			r.Modules, r.Edges, r.Errors, r.Warnings))
	}
	fmt.Fprint(cmd.OutOrStdout(), b.String())
	return nil
}

// truncate shortens long roots from the left, keeping the tail that
// distinguishes them.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "…" + s[len(s)-max+1:]
}
