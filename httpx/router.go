package httpx

import (
	"regexp"
	"strings"
)

// Handler responds to a matched request.
type Handler func(*Context)

type simpleRoute struct {
	prefix  string
	handler Handler
}

type regexRoute struct {
	pattern *regexp.Regexp
	handler Handler
}

// Router dispatches requests by path: literal prefixes are tried first,
// matched by longest prefix with a path-separator boundary check so "/foo"
// doesn't match "/foobar"; regular-expression routes are tried next, in
// the order they were added. An unmatched request gets a 404 via
// Context.SendError.
type Router struct {
	simple []simpleRoute
	regex  []regexRoute
}

// NewRouter returns an empty router.
func NewRouter() *Router { return &Router{} }

// AddRoute registers a literal path-prefix route.
func (r *Router) AddRoute(prefix string, handler Handler) {
	r.simple = append(r.simple, simpleRoute{prefix: prefix, handler: handler})
}

// AddRegexRoute registers a regular-expression route, compiled with Go's
// stdlib regexp engine.
func (r *Router) AddRegexRoute(pattern string, handler Handler) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	r.regex = append(r.regex, regexRoute{pattern: re, handler: handler})
	return nil
}

// HandleRequest dispatches ctx.Message().Path to the best-matching route,
// or sends a 404 if nothing matches.
func (r *Router) HandleRequest(ctx *Context) {
	msg := ctx.Message()
	if msg == nil {
		ctx.SendError(400)
		return
	}
	path := msg.Path

	var best *simpleRoute
	for i := range r.simple {
		route := &r.simple[i]
		if !pathHasPrefixBoundary(path, route.prefix) {
			continue
		}
		if best == nil || len(route.prefix) > len(best.prefix) {
			best = route
		}
	}
	if best != nil {
		best.handler(ctx)
		return
	}

	for _, route := range r.regex {
		if route.pattern.MatchString(path) {
			route.handler(ctx)
			return
		}
	}

	ctx.SendError(404)
}

// pathHasPrefixBoundary reports whether path starts with prefix and either
// ends exactly there, continues with a path separator, or prefix itself
// ends in "/", so a route registered for "/foo" never matches a request
// for "/foobar".
func pathHasPrefixBoundary(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	if len(path) == len(prefix) {
		return true
	}
	return prefix != "" && prefix[len(prefix)-1] == '/' || path[len(prefix)] == '/'
}
