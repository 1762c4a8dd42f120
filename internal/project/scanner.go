package project

import (
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"
)

// Options carries everything Build needs beyond the layer model. Zero
// values fall back to sensible defaults where noted.
type Options struct {
	// Root is the source tree to scan, absolute or relative.
	Root string
	// Aliases maps specifier prefixes to root-relative directories.
	Aliases map[string]string
	// Exclude lists glob patterns for files and directories to skip.
	Exclude []string
	// Segments names the conventional segment directories.
	Segments []string
	// EntryName is the extensionless public API file name, e.g. "index".
	EntryName string
	// CrossRefDir is the cross-reference directory name, e.g. "@x".
	CrossRefDir string
	// Workers is the parse pool size; 0 picks one per CPU, clamped.
	Workers int
	// ParseTimeout bounds a single file parse; 0 means no limit.
	ParseTimeout time.Duration
	// MaxFileBytes skips import extraction for larger files; 0 means no limit.
	MaxFileBytes int64
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	n := runtime.NumCPU()
	if n < 4 {
		n = 4
	}
	if n > 20 {
		n = 20
	}
	return n
}

type scanFile struct {
	rel  string
	size int64
}

// Excluder matches root-relative paths against normalized exclude
// patterns. Read-only after construction and safe for concurrent use.
type Excluder struct {
	patterns []string
}

// NewExcluder normalizes the configured exclude patterns.
func NewExcluder(exclude []string) *Excluder {
	patterns := make([]string, 0, len(exclude))
	for _, p := range exclude {
		patterns = append(patterns, normalizePattern(p))
	}
	return &Excluder{patterns: patterns}
}

// Match reports whether a root-relative path is excluded.
func (e *Excluder) Match(rel string) bool {
	return isExcludedRel(rel, path.Base(rel), e.patterns)
}

// collectFiles walks root and returns the source files to analyze,
// sorted by root-relative path. Dot files, unsupported extensions and
// excluded patterns are skipped; excluded directories are pruned.
func collectFiles(root string, exclude []string) ([]scanFile, error) {
	ex := NewExcluder(exclude)

	var files []scanFile
	err := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		name := info.Name()

		if info.IsDir() {
			if strings.HasPrefix(name, ".") || ex.Match(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !hasSupportedExt(name) {
			return nil
		}
		if ex.Match(rel) {
			return nil
		}
		files = append(files, scanFile{rel: rel, size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].rel < files[j].rel })
	return files, nil
}

// isExcludedRel matches one root-relative path against the exclude
// patterns. "**/" prefixes match on the base name alone since
// path.Match has no globstar.
func isExcludedRel(rel, name string, patterns []string) bool {
	for _, pat := range patterns {
		if trimmed, ok := strings.CutPrefix(pat, "**/"); ok {
			if matched, _ := path.Match(trimmed, name); matched {
				return true
			}
			continue
		}
		if strings.ContainsAny(pat, "*?[") {
			if matched, _ := path.Match(pat, rel); matched {
				return true
			}
			if strings.HasSuffix(pat, "/*") {
				if strings.HasPrefix(rel, strings.TrimSuffix(pat, "/*")+"/") {
					return true
				}
			}
			continue
		}
		if rel == pat || name == pat || strings.HasPrefix(rel, pat+"/") {
			return true
		}
	}
	return false
}

func normalizePattern(p string) string {
	p = filepath.ToSlash(strings.TrimSpace(p))
	p = strings.TrimPrefix(p, "./")
	return strings.TrimSuffix(p, "/")
}
