// --- START OF FINAL REVISED FILE pkg/util/util.go ---
// Package util holds path helpers shared by the converter and the CLI.
package util

import (
	"path"
	"path/filepath"
	"strings"
)

// MatchesGitignore reports whether pathToMatchRel, a path relative to
// walkerBaseAbsPath, matches a gitignore-style pattern defined in
// patternBaseAbsPath (the directory holding the ignore file, or the walk root
// for configured patterns).
//
// A pattern without a slash matches any path element. Rooted patterns, and
// patterns containing a slash, match the path relative to the pattern base.
// "**" matches any number of path elements. A path also matches when one of
// its parent directories does. Paths outside the pattern base never match.
func MatchesGitignore(pattern, patternBaseAbsPath, walkerBaseAbsPath, pathToMatchRel string, isRooted bool) bool {
	pattern = strings.Trim(filepath.ToSlash(pattern), "/")
	pathToMatchRel = filepath.ToSlash(pathToMatchRel)
	if pattern == "" || pathToMatchRel == "" || pathToMatchRel == "." {
		return false
	}

	rel, err := filepath.Rel(patternBaseAbsPath, filepath.Join(walkerBaseAbsPath, filepath.FromSlash(pathToMatchRel)))
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return false
	}

	pathSegs := strings.Split(rel, "/")
	if !isRooted && !strings.Contains(pattern, "/") {
		for _, seg := range pathSegs {
			if ok, _ := path.Match(pattern, seg); ok {
				return true
			}
		}
		return false
	}
	patternSegs := strings.Split(pattern, "/")
	for n := len(pathSegs); n > 0; n-- {
		if matchSegments(patternSegs, pathSegs[:n]) {
			return true
		}
	}
	return false
}

// matchSegments matches path elements against pattern elements, where a "**"
// element matches zero or more path elements.
func matchSegments(pattern, name []string) bool {
	for len(pattern) > 0 {
		if pattern[0] == "**" {
			rest := pattern[1:]
			for i := 0; i <= len(name); i++ {
				if matchSegments(rest, name[i:]) {
					return true
				}
			}
			return false
		}
		if len(name) == 0 {
			return false
		}
		if ok, _ := path.Match(pattern[0], name[0]); !ok {
			return false
		}
		pattern, name = pattern[1:], name[1:]
	}
	return len(name) == 0
}

// --- END OF FINAL REVISED FILE pkg/util/util.go ---
