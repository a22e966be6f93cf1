// Package path implements the POSIX-style path algebra used to address objects
// in the remote store: trimming, joining, parent/relative computation, and the
// restricted glob syntax accepted by FileSystem.Glob.
package path

import (
	"regexp"
	"strings"
	"sync"
)

// Clean removes a leading "/", an "azure://" scheme prefix together with the
// store segment that follows it, and a trailing "/", and collapses doubled
// separators, returning the wire form used in REST calls.
//
// Example usage:
//
//	path.Clean("azure://store//a/b/") // "a/b"
func Clean(p string) string {
	if strings.HasPrefix(p, "azure://") {
		rest := p[len("azure://"):]
		if i := strings.Index(rest, "/"); i >= 0 {
			p = rest[i:]
		} else {
			p = ""
		}
	}
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	p = strings.TrimPrefix(p, "/")
	p = strings.TrimSuffix(p, "/")
	return p
}

// Trim is an alias for Clean kept for readability at call sites that only
// care about stripping the leading anchor.
func Trim(p string) string {
	return Clean(p)
}

// Parent returns the path's containing directory, or "" if p has no parent
// (p is the root or a single top-level segment).
func Parent(p string) string {
	p = Clean(p)
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return ""
	}
	return p[:i]
}

// Base returns the final path segment.
func Base(p string) string {
	p = Clean(p)
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return p
	}
	return p[i+1:]
}

// Join concatenates segments with "/" and normalizes the result.
func Join(elems ...string) string {
	parts := make([]string, 0, len(elems))
	for _, e := range elems {
		e = Clean(e)
		if e != "" {
			parts = append(parts, e)
		}
	}
	return strings.Join(parts, "/")
}

// RelativeTo returns p with the base prefix removed, or p unchanged if base
// is not a prefix of p.
func RelativeTo(p, base string) string {
	p, base = Clean(p), Clean(base)
	if base == "" {
		return p
	}
	if p == base {
		return ""
	}
	if strings.HasPrefix(p, base+"/") {
		return p[len(base)+1:]
	}
	return p
}

// GloblessPrefix returns the longest ancestor of pattern whose segments
// contain neither "*" nor "?". Walk starts here when resolving a Glob.
func GloblessPrefix(pattern string) string {
	segs := strings.Split(Clean(pattern), "/")
	out := make([]string, 0, len(segs))
	for _, s := range segs {
		if strings.ContainsAny(s, "*?") {
			break
		}
		out = append(out, s)
	}
	return strings.Join(out, "/")
}

// HasGlob reports whether p contains glob metacharacters.
func HasGlob(p string) bool {
	return strings.ContainsAny(p, "*?")
}

var (
	matchCacheMu sync.Mutex
	matchCache   = map[string]*regexp.Regexp{}
)

// Match reports whether name satisfies pattern, where "*" matches any run of
// characters not containing "/" and "?" matches exactly one character not
// equal to "/". The match is anchored at both ends of the full path.
func Match(pattern, name string) bool {
	re := compilePattern(pattern)
	return re.MatchString(Clean(name))
}

func compilePattern(pattern string) *regexp.Regexp {
	pattern = Clean(pattern)

	matchCacheMu.Lock()
	if re, ok := matchCache[pattern]; ok {
		matchCacheMu.Unlock()
		return re
	}
	matchCacheMu.Unlock()

	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString("[^/]*")
		case '?':
			b.WriteString("[^/]")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	re := regexp.MustCompile(b.String())

	matchCacheMu.Lock()
	matchCache[pattern] = re
	matchCacheMu.Unlock()
	return re
}
