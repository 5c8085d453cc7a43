package router

import "context"

type contextKey int

const (
	contextKeyRouteDecision contextKey = iota
)

// RouteDecision is the routing outcome attached to a request once a
// host router selected an endpoint for it.
type RouteDecision struct {
	Endpoint *Endpoint
	Params   map[string]string
}

// WithRouteDecision attaches the selected endpoint and its captured
// params to ctx.
func WithRouteDecision(ctx context.Context, endpoint *Endpoint, params map[string]string) context.Context {
	return context.WithValue(ctx, contextKeyRouteDecision, &RouteDecision{
		Endpoint: endpoint,
		Params:   params,
	})
}

// WithoutRouteDecision returns a context where no routing decision is
// visible, shadowing any decision attached by a parent context.
func WithoutRouteDecision(ctx context.Context) context.Context {
	if _, ok := RouteDecisionFromContext(ctx); !ok {
		return ctx
	}
	return context.WithValue(ctx, contextKeyRouteDecision, (*RouteDecision)(nil))
}

// RouteDecisionFromContext returns the routing decision attached to ctx.
func RouteDecisionFromContext(ctx context.Context) (*RouteDecision, bool) {
	if ctx == nil {
		return nil, false
	}
	d, ok := ctx.Value(contextKeyRouteDecision).(*RouteDecision)
	if !ok || d == nil {
		return nil, false
	}
	return d, true
}

// ClearRouteDecision drops the routing decision from the request before
// calling the next handler. Static file serving treats a request that
// still carries a decision as already routed elsewhere and skips it, so
// nested pipelines mounted behind a route need this as their first stage.
func ClearRouteDecision() MiddlewareFunc {
	return func(next HandlerFunc) HandlerFunc {
		return func(c Context) error {
			c.SetContext(WithoutRouteDecision(c.Context()))
			return next(c)
		}
	}
}

func routeNameFromContext(ctx context.Context) string {
	d, ok := RouteDecisionFromContext(ctx)
	if !ok || d.Endpoint == nil {
		return ""
	}
	return d.Endpoint.Name()
}

func routeParamsFromContext(ctx context.Context) map[string]string {
	d, ok := RouteDecisionFromContext(ctx)
	if !ok {
		return map[string]string{}
	}
	params := make(map[string]string, len(d.Params))
	for k, v := range d.Params {
		params[k] = v
	}
	return params
}
