package lspsession

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/axivo/mcp-lsp/internal/config"
)

// defaultExcludes are directory names skipped at any depth during project
// file discovery.
var defaultExcludes = []string{
	"bin", "build", "cache", "coverage", "dist", "log", "node_modules",
	"obj", "out", "target", "temp", "tmp", "venv",
}

// discoverProjectFiles walks project.Path recursively, collecting absolute
// paths whose suffix matches one of extensions, honoring the fixed
// exclude list, hidden-dotfile exclusion, and the project's own
// include/exclude glob patterns (doublestar supports "**" matching that
// path/filepath.Match cannot express).
func discoverProjectFiles(project config.ProjectSpec, extensions []string) ([]string, error) {
	if len(extensions) == 0 {
		return nil, nil
	}

	var includeOverridesExclude = map[string]bool{}
	var includePatterns, excludePatterns []string
	if project.Patterns != nil {
		includePatterns = project.Patterns.Include
		excludePatterns = project.Patterns.Exclude
		for _, inc := range includePatterns {
			for _, seg := range strings.Split(filepath.ToSlash(inc), "/") {
				for _, ex := range defaultExcludes {
					if seg == ex {
						includeOverridesExclude[ex] = true
					}
				}
			}
		}
	}

	var out []string
	err := filepath.WalkDir(project.Path, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // best-effort: skip unreadable entries, don't abort discovery
		}
		rel, relErr := filepath.Rel(project.Path, path)
		if relErr != nil {
			rel = path
		}
		if rel == "." {
			return nil
		}
		base := d.Name()

		if d.IsDir() {
			if isHiddenDotfile(base) {
				return filepath.SkipDir
			}
			if defaultExcludeHit(base, includeOverridesExclude) {
				return filepath.SkipDir
			}
			return nil
		}

		if isHiddenDotfile(base) {
			return nil
		}
		if anyAncestorExcluded(rel, includeOverridesExclude) {
			return nil
		}
		if !hasAnyExtension(path, extensions) {
			return nil
		}
		if matchesAny(excludePatterns, rel) {
			return nil
		}
		if len(includePatterns) > 0 && !matchesAny(includePatterns, rel) {
			return nil
		}
		abs, absErr := filepath.Abs(path)
		if absErr != nil {
			abs = path
		}
		out = append(out, abs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func isHiddenDotfile(name string) bool {
	return len(name) > 1 && strings.HasPrefix(name, ".")
}

func defaultExcludeHit(name string, overridden map[string]bool) bool {
	if overridden[name] {
		return false
	}
	for _, ex := range defaultExcludes {
		if name == ex {
			return true
		}
	}
	return false
}

func anyAncestorExcluded(rel string, overridden map[string]bool) bool {
	for _, seg := range strings.Split(filepath.ToSlash(filepath.Dir(rel)), "/") {
		if defaultExcludeHit(seg, overridden) || isHiddenDotfile(seg) {
			return true
		}
	}
	return false
}

func hasAnyExtension(path string, extensions []string) bool {
	for _, ext := range extensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

func matchesAny(patterns []string, rel string) bool {
	slashRel := filepath.ToSlash(rel)
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, slashRel); ok {
			return true
		}
	}
	return false
}
