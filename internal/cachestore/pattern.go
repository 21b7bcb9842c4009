package cachestore

import (
	"path"
	"strings"
)

// matchGlob reports whether key matches the glob-style pattern. Keys
// never contain path separators, so path.Match's segment rule does not
// get in the way.
func matchGlob(pattern, key string) bool {
	ok, err := path.Match(pattern, key)
	if err != nil {
		// Malformed pattern: fall back to prefix matching up to the
		// first wildcard, which covers the "namespace::*" callers.
		prefix, _, _ := strings.Cut(pattern, "*")
		return strings.HasPrefix(key, prefix)
	}
	return ok
}

// globToLike translates a glob-style pattern into a SQL LIKE pattern,
// escaping LIKE metacharacters with backslash.
func globToLike(pattern string) string {
	var b strings.Builder
	for _, r := range pattern {
		switch r {
		case '%', '_', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '*':
			b.WriteByte('%')
		case '?':
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
