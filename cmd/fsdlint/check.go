package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fsdlint/internal/config"
	"fsdlint/internal/history"
	"fsdlint/internal/layers"
	"fsdlint/internal/logging"
	"fsdlint/internal/project"
	"fsdlint/internal/report"
	"fsdlint/internal/rules"
	"fsdlint/internal/watch"
)

// runCheck builds the import graph, evaluates the rules, and renders
// the report. With --watch it keeps re-linting until interrupted.
func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	root := cfg.Root
	if len(args) > 0 {
		root = args[0]
	}

	format := cfg.Output.Format
	if outputFormat != "" {
		format = outputFormat
	}
	renderer, err := report.NewRenderer(format, verbose)
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}

	threshold := cfg.Output.SeverityThreshold
	if severityThreshold != "" {
		threshold = severityThreshold
	}
	switch threshold {
	case "error", "warning":
	default:
		return failf("invalid severity threshold %q (want error or warning)", threshold)
	}

	model, err := layers.NewModel(cfg.LayerDefinitions())
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}
	checker := rules.NewChecker(model, checkerOptions(cfg))

	runOnce := func(ctx context.Context) (*report.Report, error) {
		g, err := project.NewBuilder(model, buildOptions(cfg, root)).Build(ctx)
		if err != nil {
			return nil, &ExitError{Code: 2, Err: err}
		}
		return report.New(g, checker.Check(g)), nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rep, err := runOnce(ctx)
	if err != nil {
		return err
	}
	out, err := renderer.Render(rep)
	if err != nil {
		return failf("rendering report: %v", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), out)

	recordRun(cfg, root, rep)

	if watchMode {
		return watchLoop(ctx, cmd, cfg, root, renderer, runOnce)
	}

	if rep.ExceedsThreshold(rules.Severity(threshold)) {
		return &ExitError{Code: 1}
	}
	return nil
}

// buildOptions maps the config onto the graph builder.
func buildOptions(cfg *config.Config, root string) project.Options {
	return project.Options{
		Root:         root,
		Aliases:      cfg.Aliases,
		Exclude:      cfg.Exclude,
		Segments:     cfg.Segments,
		EntryName:    cfg.PublicAPI.Entry,
		CrossRefDir:  cfg.PublicAPI.CrossRefDir,
		Workers:      cfg.Scanner.Workers,
		ParseTimeout: cfg.GetParseTimeout(),
		MaxFileBytes: cfg.Scanner.MaxFileBytes,
	}
}

// checkerOptions maps the config onto the rule checker.
func checkerOptions(cfg *config.Config) rules.Options {
	return rules.Options{
		LayerOrder: ruleOptions(cfg.Rules.LayerOrder),
		CrossSlice: ruleOptions(cfg.Rules.CrossSlice),
		DeepImport: rules.RuleOptions{
			Enabled:  cfg.Rules.DeepImport.Enabled,
			Severity: rules.Severity(cfg.Rules.DeepImport.Severity),
		},
		Unclassified:           ruleOptions(cfg.Rules.Unclassified),
		CheckSlicelessSegments: cfg.Rules.DeepImport.CheckSlicelessSegments,
	}
}

func ruleOptions(rc config.RuleConfig) rules.RuleOptions {
	return rules.RuleOptions{Enabled: rc.Enabled, Severity: rules.Severity(rc.Severity)}
}

// watchLoop re-lints on file changes until interrupted. A clean
// shutdown exits 0 regardless of the last run's findings; watch mode
// is a feedback tool, not a gate.
func watchLoop(ctx context.Context, cmd *cobra.Command, cfg *config.Config, root string, renderer report.Renderer, runOnce func(context.Context) (*report.Report, error)) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logging.L(logging.CategoryWatch)
	w, err := watch.New(watch.Options{
		Root:    root,
		Exclude: cfg.Exclude,
		OnChange: func(changed []string) {
			log.Debug("re-linting", zap.Int("changed", len(changed)))
			rep, err := runOnce(ctx)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "fsdlint:", err)
				return
			}
			out, rerr := renderer.Render(rep)
			if rerr != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "fsdlint:", rerr)
				return
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			recordRun(cfg, root, rep)
		},
	})
	if err != nil {
		return &ExitError{Code: 2, Err: err}
	}
	if err := w.Start(ctx); err != nil {
		return &ExitError{Code: 2, Err: err}
	}
	defer w.Stop()

	fmt.Fprintln(cmd.ErrOrStderr(), "watching for changes, press Ctrl-C to stop")
	<-ctx.Done()
	return nil
}

// recordRun snapshots the run summary when history is on. Failures are
// logged, never fatal: the lint result matters more than the ledger.
func recordRun(cfg *config.Config, root string, rep *report.Report) {
	enabled := cfg.History.Enabled || recordHistory
	if noHistory {
		enabled = false
	}
	if !enabled {
		return
	}

	log := logging.L(logging.CategoryHistory)
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		log.Warn("history store unavailable", zap.Error(err))
		return
	}
	defer store.Close()

	run, err := store.Record(history.Run{
		Root:     root,
		Modules:  rep.Summary.Modules,
		Edges:    rep.Summary.Imports,
		Errors:   rep.Summary.Errors,
		Warnings: rep.Summary.Warnings,
	})
	if err != nil {
		log.Warn("failed to record run", zap.Error(err))
		return
	}
	log.Debug("run recorded", zap.String("id", run.ID))
}
