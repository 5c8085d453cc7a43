package router

import (
	"context"
	"net/http"
	"sync"

	"github.com/julienschmidt/httprouter"
)

// HTTPServer serves net/http requests. Plain routes are registered on a
// julienschmidt/httprouter router; conditional routes are tried, in
// registration order, for requests httprouter has no route for, including
// paths whose plain routes only answer other methods. Requests
// nothing matches go to the fallback handler.
type HTTPServer struct {
	router      *httprouter.Router
	server      *http.Server
	logger      Logger
	mu          sync.RWMutex
	conditional []*Endpoint
	fallback    HandlerFunc
}

func NewHTTPServer(opts ...func(*httprouter.Router) *httprouter.Router) *HTTPServer {
	router := httprouter.New()

	if len(opts) == 0 {
		opts = append(opts, DefaultHTTPRouterOptions)
	}

	for _, opt := range opts {
		router = opt(router)
	}

	s := &HTTPServer{
		router: router,
		logger: getLogger(),
	}
	router.NotFound = http.HandlerFunc(s.dispatchConditional)
	if router.HandleMethodNotAllowed {
		next := router.MethodNotAllowed
		if next == nil {
			next = http.HandlerFunc(methodNotAllowed)
		}
		router.MethodNotAllowed = s.dispatchMethodNotAllowed(next)
	}
	return s
}

func DefaultHTTPRouterOptions(router *httprouter.Router) *httprouter.Router {
	router.HandleMethodNotAllowed = true
	router.HandleOPTIONS = true
	return router
}

func (s *HTTPServer) WithLogger(logger Logger) *HTTPServer {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Handle registers a plain route. Plain routes take precedence over
// conditional ones.
func (s *HTTPServer) Handle(method HTTPMethod, path string, handler HandlerFunc, mw ...MiddlewareFunc) {
	h := Chain(handler, mw...)
	s.router.Handle(string(method), path, func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		params := make(map[string]string, len(ps))
		for _, p := range ps {
			params[p.Key] = p.Value
		}
		endpoint := NewEndpoint(ConditionalRoute{Name: path, Methods: []HTTPMethod{method}})
		r = r.WithContext(WithRouteDecision(r.Context(), endpoint, params))
		s.run(h, w, r, ps)
	})
}

func (s *HTTPServer) Get(path string, handler HandlerFunc, mw ...MiddlewareFunc) {
	s.Handle(GET, path, handler, mw...)
}

func (s *HTTPServer) Post(path string, handler HandlerFunc, mw ...MiddlewareFunc) {
	s.Handle(POST, path, handler, mw...)
}

// Fallback sets the handler for requests no route matched. The default
// responds 404.
func (s *HTTPServer) Fallback(handler HandlerFunc) {
	s.mu.Lock()
	s.fallback = handler
	s.mu.Unlock()
}

// MapConditional registers route behind the plain routes.
func (s *HTTPServer) MapConditional(route ConditionalRoute) (*Endpoint, error) {
	if route.Handler == nil {
		return nil, newArgumentError("handler", "conditional route handler cannot be nil")
	}
	endpoint := NewEndpoint(route)

	s.mu.Lock()
	s.conditional = append(s.conditional, endpoint)
	s.mu.Unlock()

	s.logger.Debug("registered conditional route", "pattern", route.Pattern.String(), "methods", route.Methods)
	return endpoint, nil
}

// Endpoints returns the conditional endpoints in registration order.
func (s *HTTPServer) Endpoints() []*Endpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Endpoint(nil), s.conditional...)
}

func (s *HTTPServer) dispatchConditional(w http.ResponseWriter, r *http.Request) {
	if s.tryConditional(w, r) {
		return
	}
	http.NotFound(w, r)
}

// dispatchMethodNotAllowed runs when a plain route exists at the path for
// other methods only. Conditional routes and the fallback still get the
// request; next answers only if none of them take it.
func (s *HTTPServer) dispatchMethodNotAllowed(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// httprouter sets Allow before calling us, it only belongs on a 405
		allow := w.Header().Get("Allow")
		w.Header().Del("Allow")

		if s.tryConditional(w, r) {
			return
		}
		if allow != "" {
			w.Header().Set("Allow", allow)
		}
		next.ServeHTTP(w, r)
	})
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}

// tryConditional serves r with the first conditional route that accepts
// it, or with the fallback. It reports false when neither exists.
func (s *HTTPServer) tryConditional(w http.ResponseWriter, r *http.Request) bool {
	s.mu.RLock()
	endpoints := append([]*Endpoint(nil), s.conditional...)
	fallback := s.fallback
	s.mu.RUnlock()

	for _, endpoint := range endpoints {
		if !endpoint.AllowsMethod(r.Method) {
			continue
		}
		pattern := endpoint.Pattern()
		capture, ok := pattern.Match(r.URL.Path)
		if !ok {
			continue
		}
		params := map[string]string{pattern.CatchAll: capture}
		if !endpoint.Accept(r.Context(), params) {
			continue
		}

		r = r.WithContext(WithRouteDecision(r.Context(), endpoint, params))
		s.run(endpoint.Handler(), w, r, nil)
		return true
	}

	if fallback != nil {
		s.run(fallback, w, r, nil)
		return true
	}
	return false
}

func (s *HTTPServer) run(h HandlerFunc, w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	tw := &trackingWriter{ResponseWriter: w}
	if err := h(NewHTTPRouterContext(tw, r, ps)); err != nil {
		s.logger.Error("request handler failed", "method", r.Method, "path", r.URL.Path, "error", err)
		if !tw.wroteHeader {
			http.Error(tw, err.Error(), statusFromError(err))
		}
	}
}

// trackingWriter records whether a response was started so handler
// errors are only written on an untouched response.
type trackingWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (w *trackingWriter) WriteHeader(status int) {
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *trackingWriter) Write(p []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(p)
}

func (w *trackingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (s *HTTPServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *HTTPServer) WrappedRouter() *httprouter.Router {
	return s.router
}

func (s *HTTPServer) Serve(address string) error {
	srv := &http.Server{
		Addr:    address,
		Handler: s,
	}
	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()
	return srv.ListenAndServe()
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.server
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// httpRouterContext implements Context and HTTPContext over net/http.
type httpRouterContext struct {
	w      http.ResponseWriter
	r      *http.Request
	params httprouter.Params
}

func NewHTTPRouterContext(w http.ResponseWriter, r *http.Request, ps httprouter.Params) Context {
	return &httpRouterContext{
		w:      w,
		r:      r,
		params: ps,
	}
}

func (c *httpRouterContext) Method() string { return c.r.Method }
func (c *httpRouterContext) Path() string   { return c.r.URL.Path }

func (c *httpRouterContext) Param(name string, defaultValue ...string) string {
	if v := c.params.ByName(name); v != "" {
		return v
	}
	if v, ok := routeParamsFromContext(c.r.Context())[name]; ok && v != "" {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (c *httpRouterContext) Header(key string) string {
	return c.r.Header.Get(key)
}

func (c *httpRouterContext) SetHeader(key string, value string) {
	c.w.Header().Set(key, value)
}

func (c *httpRouterContext) SendStatus(code int) error {
	c.w.WriteHeader(code)
	return nil
}

func (c *httpRouterContext) SendString(body string) error {
	_, err := c.w.Write([]byte(body))
	return err
}

func (c *httpRouterContext) Context() context.Context {
	return c.r.Context()
}

func (c *httpRouterContext) SetContext(ctx context.Context) {
	c.r = c.r.WithContext(ctx)
}

func (c *httpRouterContext) RouteName() string {
	return routeNameFromContext(c.r.Context())
}

func (c *httpRouterContext) RouteParams() map[string]string {
	return routeParamsFromContext(c.r.Context())
}

func (c *httpRouterContext) Request() *http.Request {
	return c.r
}

func (c *httpRouterContext) Response() http.ResponseWriter {
	return c.w
}
