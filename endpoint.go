package router

import (
	"context"
	"sync"
)

// Constraint decides whether a captured route parameter value is
// acceptable. Returning false makes the route not match so the host
// router moves on to the next candidate.
type Constraint func(ctx context.Context, value string) bool

// ConditionalRoute is a route whose match additionally depends on the
// constraints attached to its captured parameters.
type ConditionalRoute struct {
	Name        string
	Methods     []HTTPMethod
	Pattern     RoutePattern
	Constraints map[string]Constraint
	Handler     HandlerFunc
}

// RouteRegistrar is implemented by host routers able to register
// conditional routes.
type RouteRegistrar interface {
	MapConditional(route ConditionalRoute) (*Endpoint, error)
}

// Endpoint is the registration record for a route. Conventions mutate
// it at startup; adapters read it per request.
type Endpoint struct {
	mu          sync.RWMutex
	name        string
	methods     []HTTPMethod
	pattern     RoutePattern
	constraints map[string]Constraint
	handler     HandlerFunc
	metadata    map[string]any
	middleware  []MiddlewareFunc
}

// NewEndpoint creates the endpoint record for route.
func NewEndpoint(route ConditionalRoute) *Endpoint {
	methods := append([]HTTPMethod(nil), route.Methods...)
	if len(methods) == 0 {
		methods = []HTTPMethod{GET, HEAD}
	}

	constraints := make(map[string]Constraint, len(route.Constraints))
	for k, v := range route.Constraints {
		constraints[k] = v
	}

	return &Endpoint{
		name:        route.Name,
		methods:     methods,
		pattern:     route.Pattern,
		constraints: constraints,
		handler:     route.Handler,
		metadata:    map[string]any{},
	}
}

func (e *Endpoint) Name() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.name
}

func (e *Endpoint) SetName(name string) *Endpoint {
	e.mu.Lock()
	e.name = name
	e.mu.Unlock()
	return e
}

func (e *Endpoint) Pattern() RoutePattern {
	return e.pattern
}

func (e *Endpoint) Methods() []HTTPMethod {
	return append([]HTTPMethod(nil), e.methods...)
}

// AllowsMethod reports whether the endpoint is registered for method.
func (e *Endpoint) AllowsMethod(method string) bool {
	for _, m := range e.methods {
		if string(m) == method {
			return true
		}
	}
	return false
}

// SetMetadata attaches a metadata entry, e.g. an authorization policy
// name, to the endpoint.
func (e *Endpoint) SetMetadata(key string, value any) *Endpoint {
	e.mu.Lock()
	e.metadata[key] = value
	e.mu.Unlock()
	return e
}

func (e *Endpoint) Metadata(key string) (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.metadata[key]
	return v, ok
}

// Use appends endpoint middleware. It runs after the route matched and
// before the route handler.
func (e *Endpoint) Use(mw ...MiddlewareFunc) *Endpoint {
	e.mu.Lock()
	e.middleware = append(e.middleware, mw...)
	e.mu.Unlock()
	return e
}

// Accept runs every constraint against its captured value.
func (e *Endpoint) Accept(ctx context.Context, params map[string]string) bool {
	for name, constraint := range e.constraints {
		if constraint == nil {
			continue
		}
		if !constraint(ctx, params[name]) {
			return false
		}
	}
	return true
}

// Handler returns the route handler wrapped with endpoint middleware.
func (e *Endpoint) Handler() HandlerFunc {
	e.mu.RLock()
	mw := append([]MiddlewareFunc(nil), e.middleware...)
	h := e.handler
	e.mu.RUnlock()
	return Chain(h, mw...)
}

// RouteHandle is returned when binding a route. It lets callers attach
// conventions to the route after it has been registered.
type RouteHandle struct {
	endpoint *Endpoint
}

func newRouteHandle(e *Endpoint) *RouteHandle {
	return &RouteHandle{endpoint: e}
}

// Add applies convention to the underlying endpoint.
func (h *RouteHandle) Add(convention func(*Endpoint)) error {
	if convention == nil {
		return newArgumentError("convention", "route convention cannot be nil")
	}
	convention(h.endpoint)
	return nil
}

// Endpoint returns the endpoint registered for the route.
func (h *RouteHandle) Endpoint() *Endpoint {
	return h.endpoint
}
