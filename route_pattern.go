package router

import "strings"

// StaticCatchAllParam is the name of the wildcard parameter static
// routes capture the remainder of the path into.
const StaticCatchAllParam = "path"

// RoutePattern is a path prefix followed by a single trailing
// catch-all segment.
type RoutePattern struct {
	Prefix   string
	CatchAll string
}

// StaticPattern builds the pattern for a static route bound at prefix.
func StaticPattern(prefix string) RoutePattern {
	return RoutePattern{
		Prefix:   NormalizePrefix(prefix),
		CatchAll: StaticCatchAllParam,
	}
}

// NormalizePrefix returns prefix with a single leading slash and no
// trailing slash. The root prefix normalizes to "".
func NormalizePrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return "/" + prefix
}

// String renders the pattern using the httprouter syntax, e.g.
// "/assets/*path".
func (p RoutePattern) String() string {
	return p.Prefix + "/*" + p.CatchAll
}

// FiberPath renders the pattern using the fiber wildcard syntax.
func (p RoutePattern) FiberPath() string {
	return p.Prefix + "/*"
}

// Match reports whether requestPath falls under the pattern prefix and
// returns the captured remainder. The prefix itself matches with an
// empty capture.
func (p RoutePattern) Match(requestPath string) (string, bool) {
	if p.Prefix != "" {
		if !strings.HasPrefix(requestPath, p.Prefix) {
			return "", false
		}
		requestPath = requestPath[len(p.Prefix):]
		if requestPath == "" {
			return "", true
		}
	}

	if !strings.HasPrefix(requestPath, "/") {
		return "", false
	}
	return requestPath[1:], true
}
