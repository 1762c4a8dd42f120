package project

import (
	"path"
	"sort"
	"strings"
)

// Resolution classifies the outcome of resolving one specifier.
type Resolution int

const (
	// ResolvedModule means the specifier names another module in the tree.
	ResolvedModule Resolution = iota
	// ResolvedAsset means the specifier names a style or asset file;
	// those are not modules and produce no edge.
	ResolvedAsset
	// ResolvedExternal means the specifier names a package outside the
	// tree, e.g. "react".
	ResolvedExternal
	// ResolutionFailed means a relative or aliased specifier matched
	// nothing under the root.
	ResolutionFailed
)

// extPriority is the probe order for extensionless specifiers.
var extPriority = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"}

var assetExts = map[string]struct{}{
	".css": {}, ".scss": {}, ".sass": {}, ".less": {},
	".svg": {}, ".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".webp": {}, ".ico": {},
	".json": {}, ".woff": {}, ".woff2": {}, ".ttf": {}, ".eot": {},
	".mp3": {}, ".mp4": {}, ".webm": {},
}

type aliasRule struct {
	prefix string
	target string
}

// Resolver maps import specifiers onto root-relative module paths. It
// never touches the filesystem; membership comes from the exists
// callback over the already-scanned module set.
type Resolver struct {
	aliases []aliasRule
	exists  func(rel string) bool
}

// NewResolver builds a resolver. Aliases map specifier prefixes to
// root-relative directories; longer prefixes win.
func NewResolver(aliases map[string]string, exists func(rel string) bool) *Resolver {
	rules := make([]aliasRule, 0, len(aliases))
	for prefix, target := range aliases {
		rules = append(rules, aliasRule{
			prefix: prefix,
			target: strings.Trim(strings.TrimPrefix(target, "./"), "/"),
		})
	}
	sort.Slice(rules, func(i, j int) bool {
		if len(rules[i].prefix) != len(rules[j].prefix) {
			return len(rules[i].prefix) > len(rules[j].prefix)
		}
		return rules[i].prefix < rules[j].prefix
	})
	return &Resolver{aliases: rules, exists: exists}
}

// Resolve maps one specifier, as written in fromRel, onto a module
// path. Candidates are probed as the exact path, then with each known
// extension, then as a directory index file.
func (r *Resolver) Resolve(fromRel, spec string) (string, Resolution) {
	if spec == "" {
		return "", ResolutionFailed
	}

	if ext := strings.ToLower(path.Ext(spec)); ext != "" {
		if _, asset := assetExts[ext]; asset {
			return "", ResolvedAsset
		}
	}

	if strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") || spec == "." || spec == ".." {
		joined := path.Join(path.Dir(fromRel), spec)
		if joined == ".." || strings.HasPrefix(joined, "../") {
			// Escapes the source root.
			return "", ResolutionFailed
		}
		return r.probe(joined)
	}

	for _, a := range r.aliases {
		if rest, ok := matchAlias(spec, a.prefix); ok {
			return r.probe(path.Join(a.target, rest))
		}
	}

	return "", ResolvedExternal
}

func (r *Resolver) probe(rel string) (string, Resolution) {
	if hasSupportedExt(rel) && r.exists(rel) {
		return rel, ResolvedModule
	}
	for _, ext := range extPriority {
		if cand := rel + ext; r.exists(cand) {
			return cand, ResolvedModule
		}
	}
	for _, ext := range extPriority {
		if cand := path.Join(rel, "index"+ext); r.exists(cand) {
			return cand, ResolvedModule
		}
	}
	return "", ResolutionFailed
}

func matchAlias(spec, prefix string) (string, bool) {
	if spec == prefix || spec+"/" == prefix {
		return "", true
	}
	p := prefix
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	if strings.HasPrefix(spec, p) {
		return spec[len(p):], true
	}
	return "", false
}

func hasSupportedExt(p string) bool {
	ext := strings.ToLower(path.Ext(p))
	for _, e := range extPriority {
		if ext == e {
			return true
		}
	}
	return false
}
