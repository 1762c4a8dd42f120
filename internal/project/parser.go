package project

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"go.uber.org/zap"

	"fsdlint/internal/logging"
)

// RawImport is an import specifier as written in a source file,
// before resolution.
type RawImport struct {
	Specifier string
	Line      int
	Column    int
}

// ParseError is a non-fatal problem found while parsing one file.
// Imports extracted before the problem are kept.
type ParseError struct {
	Line    int
	Message string
}

// ImportParser extracts import specifiers from TypeScript and
// JavaScript sources via Tree-sitter. It is not safe for concurrent
// use; each worker owns its own instance.
type ImportParser struct {
	ts      *sitter.Parser
	tsx     *sitter.Parser
	js      *sitter.Parser
	timeout time.Duration
}

// NewImportParser creates a parser with the given per-file timeout.
// Zero disables the timeout.
func NewImportParser(timeout time.Duration) *ImportParser {
	tsParser := sitter.NewParser()
	tsParser.SetLanguage(typescript.GetLanguage())
	tsxParser := sitter.NewParser()
	tsxParser.SetLanguage(tsx.GetLanguage())
	jsParser := sitter.NewParser()
	jsParser.SetLanguage(javascript.GetLanguage())
	return &ImportParser{ts: tsParser, tsx: tsxParser, js: jsParser, timeout: timeout}
}

// SupportedExtensions returns the extensions Parse understands.
func SupportedExtensions() []string {
	return []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"}
}

// Parse extracts every statically analyzable import: import statements
// (including type-only and side-effect forms), re-exports, and dynamic
// import() and require() calls with literal arguments. The file is
// never executed. Syntax problems and timeouts surface as ParseErrors
// alongside whatever was extracted.
func (p *ImportParser) Parse(ctx context.Context, path string, content []byte) ([]RawImport, []ParseError) {
	parser := p.ts
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsx":
		parser = p.tsx
	case ".js", ".jsx", ".mjs", ".cjs":
		parser = p.js
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, []ParseError{{Message: fmt.Sprintf("parse aborted: %v", err)}}
	}
	defer tree.Close()

	var (
		imports []RawImport
		errs    []ParseError
	)
	walkImports(tree.RootNode(), content, &imports, &errs)

	if len(errs) > 0 {
		logging.L(logging.CategoryParse).Debug("partial parse",
			zap.String("file", filepath.Base(path)), zap.Int("imports", len(imports)))
	}
	return imports, errs
}

// walkImports recursively collects import edges from the AST.
func walkImports(node *sitter.Node, content []byte, imports *[]RawImport, errs *[]ParseError) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)

		switch child.Type() {
		case "import_statement":
			if spec, ok := sourceSpecifier(child, content); ok {
				*imports = append(*imports, rawImportAt(child, spec))
			}

		case "export_statement":
			// Re-exports carry a source; plain exports do not.
			if spec, ok := sourceSpecifier(child, content); ok {
				*imports = append(*imports, rawImportAt(child, spec))
			}
			walkImports(child, content, imports, errs)

		case "call_expression":
			if spec, ok := callSpecifier(child, content); ok {
				*imports = append(*imports, rawImportAt(child, spec))
			}
			walkImports(child, content, imports, errs)

		case "ERROR":
			if len(*errs) == 0 {
				*errs = append(*errs, ParseError{
					Line:    int(child.StartPoint().Row) + 1,
					Message: "syntax error",
				})
			}
			walkImports(child, content, imports, errs)

		default:
			walkImports(child, content, imports, errs)
		}
	}
}

// sourceSpecifier reads the "source" field of an import or export
// statement.
func sourceSpecifier(node *sitter.Node, content []byte) (string, bool) {
	source := node.ChildByFieldName("source")
	if source == nil {
		return "", false
	}
	spec := strings.Trim(string(content[source.StartByte():source.EndByte()]), "\"'`")
	return spec, spec != ""
}

// callSpecifier reads the literal argument of a dynamic import() or a
// require() call. Non-literal arguments cannot be resolved statically
// and are skipped.
func callSpecifier(node *sitter.Node, content []byte) (string, bool) {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return "", false
	}
	switch fn.Type() {
	case "import":
	case "identifier":
		if string(content[fn.StartByte():fn.EndByte()]) != "require" {
			return "", false
		}
	default:
		return "", false
	}

	args := node.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return "", false
	}
	first := args.NamedChild(0)
	if first.Type() != "string" {
		return "", false
	}
	spec := strings.Trim(string(content[first.StartByte():first.EndByte()]), "\"'")
	return spec, spec != ""
}

func rawImportAt(node *sitter.Node, spec string) RawImport {
	return RawImport{
		Specifier: spec,
		Line:      int(node.StartPoint().Row) + 1,
		Column:    int(node.StartPoint().Column) + 1,
	}
}
