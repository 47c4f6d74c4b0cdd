// Package router maps client-side paths onto views.
//
// # Routes
//
// Patterns are slash-separated segments; a segment starting with ":" captures a parameter ("/video/:id").
// A [Handler] turns a matched [Request] into an [Outcome]: render the view, redirect elsewhere, or wait.
//
// # Middleware
//
// [Middleware] wraps handlers. Router-wide middleware registered with [Router.Use] is applied in the order it is
// added (the first added runs first); per-route middleware passed to [Router.Handle] runs after it. Guards such
// as an authentication gate are expressed as middleware returning a redirect or a wait.
//
// # History
//
// [History] is a stack of visited paths. [Router.Navigate] resolves a path, follows redirects and records the
// result, so a guarded path that redirected never appears in the stack.
package router

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound     = errors.New("route not found")
	ErrRedirectLoop = errors.New("too many redirects")
	ErrInvalidRoute = errors.New("invalid route pattern")
)

const (
	maxRedirectHops  = 8
	paramPrefix      = ":"
	pathSeparator    = "/"
	defaultRootRoute = "/"
)

// Action is what the caller should do with a resolved path.
type Action int

const (
	Render Action = iota
	Redirect
	Wait
)

func (a Action) String() string {
	switch a {
	case Redirect:
		return "redirect"
	case Wait:
		return "wait"
	default:
		return "render"
	}
}

// Request is a path matched against a registered pattern.
type Request struct {
	Path    string
	Pattern string
	Params  map[string]string
}

// Param returns the named path parameter or "".
func (r Request) Param(name string) string {
	return r.Params[name]
}

// Outcome is the result of handling a [Request].
type Outcome struct {
	Action   Action
	Request  Request
	Location string // redirect target
	Replace  bool   // redirect replaces the navigation that triggered it
}

// Handler decides the [Outcome] for a matched request.
type Handler func(Request) Outcome

// Middleware wraps a [Handler] with additional behavior.
type Middleware func(Handler) Handler

// RenderView is the terminal handler: it renders whatever matched.
func RenderView(req Request) Outcome {
	return Outcome{Action: Render, Request: req}
}

// RedirectTo builds a redirect outcome for req.
func RedirectTo(req Request, location string, replace bool) Outcome {
	return Outcome{Action: Redirect, Request: req, Location: location, Replace: replace}
}

// WaitFor builds an outcome that defers req until the caller can decide.
func WaitFor(req Request) Outcome {
	return Outcome{Action: Wait, Request: req}
}

type route struct {
	pattern  string
	segments []string
	handler  Handler
}

// Router is a path router with a middleware stack.
type Router struct {
	routes      []route
	middlewares []Middleware
}

// New creates an empty [Router].
func New() *Router {
	return &Router{routes: []route{}, middlewares: []Middleware{}}
}

// Use adds router-wide [Middleware], applied in the order it's added.
func (r *Router) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// Handle registers handler for pattern, wrapped with the route's own middleware.
//
// Router-wide middleware is applied at resolve time, so [Router.Use] may be called after routes are registered.
func (r *Router) Handle(pattern string, handler Handler, middleware ...Middleware) error {
	segments, err := split(pattern)
	if err != nil {
		return err
	}
	for _, existing := range r.routes {
		if existing.pattern == pattern {
			return fmt.Errorf("%w: %s registered twice", ErrInvalidRoute, pattern)
		}
	}

	r.routes = append(r.routes, route{pattern: pattern, segments: segments, handler: chain(handler, middleware)})
	return nil
}

// Apply wraps a handler with all router-wide middleware.
func (r *Router) Apply(handler Handler) Handler {
	return chain(handler, r.middlewares)
}

func chain(handler Handler, middleware []Middleware) Handler {
	wrapped := handler
	for i := len(middleware) - 1; i >= 0; i-- {
		wrapped = middleware[i](wrapped)
	}
	return wrapped
}

func (r *Router) match(path string) (Request, Handler, bool) {
	path = clean(path)
	parts := strings.Split(strings.Trim(path, pathSeparator), pathSeparator)
	if path == defaultRootRoute {
		parts = []string{}
	}

	for _, rt := range r.routes {
		if len(rt.segments) != len(parts) {
			continue
		}

		params := map[string]string{}
		matched := true
		for i, seg := range rt.segments {
			if name, ok := strings.CutPrefix(seg, paramPrefix); ok {
				if parts[i] == "" {
					matched = false
					break
				}
				params[name] = parts[i]
				continue
			}
			if seg != parts[i] {
				matched = false
				break
			}
		}

		if matched {
			return Request{Path: path, Pattern: rt.pattern, Params: params}, rt.handler, true
		}
	}
	return Request{Path: path}, nil, false
}

// Resolve matches path and runs its handler chain.
func (r *Router) Resolve(path string) (Outcome, error) {
	req, handler, ok := r.match(path)
	if !ok {
		return Outcome{Request: req}, fmt.Errorf("%w: %s", ErrNotFound, req.Path)
	}
	return r.Apply(handler)(req), nil
}

// Navigate resolves path and records it in h, following redirects.
//
// A redirect with Replace stands in for the path that triggered it, so that path is never recorded. A Wait
// outcome leaves h untouched; the caller should navigate again once it can decide.
func (r *Router) Navigate(h *History, path string, replace bool) (Outcome, error) {
	for range maxRedirectHops {
		outcome, err := r.Resolve(path)
		if err != nil {
			return outcome, err
		}

		switch outcome.Action {
		case Wait:
			return outcome, nil
		case Redirect:
			if !outcome.Replace {
				h.record(outcome.Request.Path, replace)
				replace = false
			}
			path = outcome.Location
		default:
			h.record(outcome.Request.Path, replace)
			return outcome, nil
		}
	}
	return Outcome{}, fmt.Errorf("%w: last target %s", ErrRedirectLoop, path)
}

func split(pattern string) ([]string, error) {
	if !strings.HasPrefix(pattern, pathSeparator) {
		return nil, fmt.Errorf("%w: %q must start with /", ErrInvalidRoute, pattern)
	}
	if pattern == defaultRootRoute {
		return []string{}, nil
	}

	segments := strings.Split(strings.Trim(pattern, pathSeparator), pathSeparator)
	for _, seg := range segments {
		if seg == "" || seg == paramPrefix {
			return nil, fmt.Errorf("%w: %q has an empty segment", ErrInvalidRoute, pattern)
		}
	}
	return segments, nil
}

func clean(path string) string {
	if path == "" {
		return defaultRootRoute
	}
	if !strings.HasPrefix(path, pathSeparator) {
		path = pathSeparator + path
	}
	if trimmed := strings.TrimRight(path, pathSeparator); trimmed != "" {
		return trimmed
	}
	return defaultRootRoute
}
