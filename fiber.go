package router

import (
	"context"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/utils"
)

// FiberServer serves requests with gofiber. Routes are tried in
// registration order; a conditional route whose constraints reject the
// request hands it to the next matching route with c.Next().
type FiberServer struct {
	app       *fiber.App
	logger    Logger
	mu        sync.RWMutex
	endpoints []*Endpoint
}

func NewFiberServer(opts ...func(*fiber.App) *fiber.App) *FiberServer {
	app := fiber.New(fiber.Config{
		UnescapePath:          true,
		StrictRouting:         false,
		DisableStartupMessage: true,
	})

	if len(opts) == 0 {
		opts = append(opts, DefaultFiberOptions)
	}

	for _, opt := range opts {
		app = opt(app)
	}

	return &FiberServer{app: app, logger: getLogger()}
}

func DefaultFiberOptions(app *fiber.App) *fiber.App {
	app.Use(recover.New())
	app.Use(logger.New())
	return app
}

func (s *FiberServer) WithLogger(l Logger) *FiberServer {
	if l != nil {
		s.logger = l
	}
	return s
}

// Handle registers a plain route.
func (s *FiberServer) Handle(method HTTPMethod, path string, handler HandlerFunc, mw ...MiddlewareFunc) {
	h := Chain(handler, mw...)
	endpoint := NewEndpoint(ConditionalRoute{Name: path, Methods: []HTTPMethod{method}})

	s.app.Add(string(method), path, func(c *fiber.Ctx) error {
		ctx := NewFiberContext(c)
		ctx.SetContext(WithRouteDecision(ctx.Context(), endpoint, copyParams(c.AllParams())))
		return s.run(h, ctx)
	})
}

func (s *FiberServer) Get(path string, handler HandlerFunc, mw ...MiddlewareFunc) {
	s.Handle(GET, path, handler, mw...)
}

func (s *FiberServer) Post(path string, handler HandlerFunc, mw ...MiddlewareFunc) {
	s.Handle(POST, path, handler, mw...)
}

// MapConditional registers route on the fiber app. It is matched in
// registration order relative to the other routes.
func (s *FiberServer) MapConditional(route ConditionalRoute) (*Endpoint, error) {
	if route.Handler == nil {
		return nil, newArgumentError("handler", "conditional route handler cannot be nil")
	}
	endpoint := NewEndpoint(route)
	pattern := endpoint.Pattern()

	handler := func(c *fiber.Ctx) error {
		// fiber param values alias the request buffer
		params := map[string]string{pattern.CatchAll: utils.CopyString(c.Params("*"))}

		ctx := NewFiberContext(c)
		if !endpoint.Accept(ctx.Context(), params) {
			return c.Next()
		}

		ctx.SetContext(WithRouteDecision(ctx.Context(), endpoint, params))
		return s.run(endpoint.Handler(), ctx)
	}

	for _, method := range endpoint.Methods() {
		s.app.Add(string(method), pattern.FiberPath(), handler)
	}

	s.mu.Lock()
	s.endpoints = append(s.endpoints, endpoint)
	s.mu.Unlock()

	s.logger.Debug("registered conditional route", "pattern", pattern.FiberPath(), "methods", route.Methods)
	return endpoint, nil
}

// Endpoints returns the conditional endpoints in registration order.
func (s *FiberServer) Endpoints() []*Endpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Endpoint(nil), s.endpoints...)
}

func copyParams(params map[string]string) map[string]string {
	out := make(map[string]string, len(params))
	for k, v := range params {
		out[k] = utils.CopyString(v)
	}
	return out
}

func (s *FiberServer) run(h HandlerFunc, ctx Context) error {
	if err := h(ctx); err != nil {
		s.logger.Error("request handler failed", "method", ctx.Method(), "path", ctx.Path(), "error", err)
		return fiber.NewError(statusFromError(err), err.Error())
	}
	return nil
}

func (s *FiberServer) WrappedRouter() *fiber.App {
	return s.app
}

func (s *FiberServer) Serve(address string) error {
	return s.app.Listen(address)
}

func (s *FiberServer) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
