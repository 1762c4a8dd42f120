package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"fsdlint/internal/layers"
	"fsdlint/internal/logging"
)

// Builder turns a source tree into a Graph.
type Builder struct {
	opts  Options
	model *layers.Model
}

func NewBuilder(model *layers.Model, opts Options) *Builder {
	return &Builder{opts: opts, model: model}
}

type fileResult struct {
	module  Module
	imports []RawImport
	errs    []ParseError
}

// Build scans, classifies and parses the tree under opts.Root. Parsing
// fans out over a worker pool; each worker owns its own parser and
// writes into indexed slots, so the merge is deterministic regardless
// of scheduling.
func (b *Builder) Build(ctx context.Context) (*Graph, error) {
	timer := logging.StartTimer(logging.CategoryScan, "build graph")
	defer timer.Stop()

	absRoot, err := filepath.Abs(b.opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving source root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("source root %s: %w", b.opts.Root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source root %s is not a directory", b.opts.Root)
	}

	files, err := collectFiles(absRoot, b.opts.Exclude)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", b.opts.Root, err)
	}

	cls := newClassifier(b.model, b.opts.Segments, b.opts.EntryName, b.opts.CrossRefDir)
	results := make([]fileResult, len(files))

	workers := b.opts.workers()
	if workers > len(files) {
		workers = len(files)
	}
	if workers > 0 {
		eg, egCtx := errgroup.WithContext(ctx)
		for w := 0; w < workers; w++ {
			w := w
			eg.Go(func() error {
				parser := NewImportParser(b.opts.ParseTimeout)
				for i := w; i < len(files); i += workers {
					if err := egCtx.Err(); err != nil {
						return err
					}
					results[i] = b.processFile(egCtx, parser, cls, absRoot, files[i])
				}
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}
	}

	return b.assemble(results), nil
}

func (b *Builder) processFile(ctx context.Context, parser *ImportParser, cls *classifier, absRoot string, f scanFile) fileResult {
	mod := cls.Classify(f.rel)
	mod.Path = filepath.Join(absRoot, filepath.FromSlash(f.rel))

	res := fileResult{module: mod}
	if b.opts.MaxFileBytes > 0 && f.size > b.opts.MaxFileBytes {
		res.errs = append(res.errs, ParseError{
			Message: fmt.Sprintf("file exceeds %d bytes, imports skipped", b.opts.MaxFileBytes),
		})
		return res
	}
	content, err := os.ReadFile(mod.Path)
	if err != nil {
		res.errs = append(res.errs, ParseError{Message: fmt.Sprintf("unreadable file: %v", err)})
		return res
	}
	res.imports, res.errs = parser.Parse(ctx, mod.Path, content)
	return res
}

// assemble resolves every raw import against the scanned module set
// and folds the per-file results into one graph.
func (b *Builder) assemble(results []fileResult) *Graph {
	modules := make([]Module, 0, len(results))
	byRel := make(map[string]struct{}, len(results))
	for _, r := range results {
		modules = append(modules, r.module)
		byRel[r.module.RelPath] = struct{}{}
	}
	resolver := NewResolver(b.opts.Aliases, func(rel string) bool {
		_, ok := byRel[rel]
		return ok
	})

	var imports, externals []Import
	var warnings []Warning
	for _, r := range results {
		from := r.module.RelPath
		for _, pe := range r.errs {
			warnings = append(warnings, Warning{Kind: WarnParse, File: from, Line: pe.Line, Message: pe.Message})
		}
		for _, raw := range r.imports {
			to, res := resolver.Resolve(from, raw.Specifier)
			switch res {
			case ResolvedModule:
				imports = append(imports, Import{
					From: from, To: to, Specifier: raw.Specifier,
					Line: raw.Line, Column: raw.Column,
				})
			case ResolvedExternal:
				externals = append(externals, Import{
					From: from, Specifier: raw.Specifier,
					Line: raw.Line, Column: raw.Column, External: true,
				})
			case ResolvedAsset:
				// Styles and assets are not modules.
			case ResolutionFailed:
				warnings = append(warnings, Warning{
					Kind: WarnUnresolved, File: from, Line: raw.Line,
					Message: fmt.Sprintf("cannot resolve import %q", raw.Specifier),
				})
			}
		}
	}

	g := NewGraph(filepath.ToSlash(filepath.Clean(b.opts.Root)), modules, imports, externals, warnings)
	logging.L(logging.CategoryScan).Debug("graph built",
		zap.Int("modules", len(g.Modules)),
		zap.Int("imports", len(g.Imports)),
		zap.Int("externals", len(g.Externals)),
		zap.Int("warnings", len(g.Warnings)))
	return g
}
