// Package pathmatch implements the glob dialect used by contract
// applies_to scopes and exemption file patterns: filepath.Match
// semantics per path segment, plus "**" matching any number of
// segments (including zero).
package pathmatch

import (
	"path"
	"path/filepath"
	"strings"
)

// Match reports whether the slash-separated relative path matches the
// pattern. Patterns without a separator match against the basename as
// well, so "*.py" matches "pkg/util.py".
func Match(pattern, relPath string) bool {
	pattern = filepath.ToSlash(pattern)
	relPath = filepath.ToSlash(relPath)

	if !strings.Contains(pattern, "/") && !strings.Contains(pattern, "**") {
		if ok, _ := path.Match(pattern, path.Base(relPath)); ok {
			return true
		}
	}
	return matchSegments(strings.Split(pattern, "/"), strings.Split(relPath, "/"))
}

// MatchAny reports whether any pattern matches; an empty pattern list
// matches everything.
func MatchAny(patterns []string, relPath string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if Match(p, relPath) {
			return true
		}
	}
	return false
}

func matchSegments(pat, segs []string) bool {
	for len(pat) > 0 {
		if pat[0] == "**" {
			// "**" may swallow zero or more leading segments.
			if len(pat) == 1 {
				return true
			}
			for i := 0; i <= len(segs); i++ {
				if matchSegments(pat[1:], segs[i:]) {
					return true
				}
			}
			return false
		}
		if len(segs) == 0 {
			return false
		}
		ok, err := path.Match(pat[0], segs[0])
		if err != nil || !ok {
			return false
		}
		pat = pat[1:]
		segs = segs[1:]
	}
	return len(segs) == 0
}
