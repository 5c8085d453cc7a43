package router

import (
	"context"
	"errors"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	HeaderContentType     = "Content-Type"
	HeaderContentEncoding = "Content-Encoding"
	HeaderCacheControl    = "Cache-Control"
	HeaderETag            = "ETag"
	XRequestID            = "X-Request-ID"
)

// HTTPMethod represents HTTP request methods
type HTTPMethod string

const (
	GET    HTTPMethod = "GET"
	POST   HTTPMethod = "POST"
	PUT    HTTPMethod = "PUT"
	DELETE HTTPMethod = "DELETE"
	PATCH  HTTPMethod = "PATCH"
	HEAD   HTTPMethod = "HEAD"
)

type HandlerFunc func(Context) error

type MiddlewareFunc func(HandlerFunc) HandlerFunc

// Context is the framework agnostic request context handed to
// handlers and middleware by both adapters.
type Context interface {
	Method() string
	Path() string
	Param(name string, defaultValue ...string) string
	Header(string) string
	SetHeader(string, string)
	SendStatus(code int) error
	SendString(body string) error

	Context() context.Context
	SetContext(context.Context)

	// RouteName and RouteParams read the routing decision attached
	// to the request context. Both are empty once it is cleared.
	RouteName() string
	RouteParams() map[string]string
}

// HTTPContext exposes net/http request/response primitives for adapters that support them.
type HTTPContext interface {
	Request() *http.Request
	Response() http.ResponseWriter
}

// AsHTTPContext returns the HTTPContext if the adapter supports it.
func AsHTTPContext(c Context) (HTTPContext, bool) {
	if c == nil {
		return nil, false
	}
	ctx, ok := c.(HTTPContext)
	return ctx, ok
}

// Chain wraps h with middlewares, the first middleware being the
// outermost one.
func Chain(h HandlerFunc, middlewares ...MiddlewareFunc) HandlerFunc {
	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i] == nil {
			continue
		}
		h = middlewares[i](h)
	}
	return h
}

type finalizeWriter interface {
	Finalize()
}

func newHTTPAdapterError(code int, message string) error {
	if message == "" {
		message = http.StatusText(code)
	}
	return goerrors.New(message, goerrors.HTTPStatusToCategory(code)).
		WithCode(code).
		WithTextCode(goerrors.HTTPStatusToTextCode(code))
}

// HandlerFromHTTP adapts a net/http handler to a HandlerFunc.
// Works with any Context that also implements HTTPContext.
func HandlerFromHTTP(h http.Handler) HandlerFunc {
	return func(c Context) error {
		if h == nil {
			return newHTTPAdapterError(http.StatusInternalServerError, "handler_from_http: nil handler")
		}

		httpCtx, ok := AsHTTPContext(c)
		if !ok {
			return newHTTPAdapterError(http.StatusNotImplemented, "handler_from_http: context does not implement HTTPContext")
		}

		req := httpCtx.Request()
		res := httpCtx.Response()
		if req == nil || res == nil {
			return newHTTPAdapterError(http.StatusInternalServerError, "handler_from_http: nil request/response")
		}

		h.ServeHTTP(res, req.WithContext(c.Context()))

		if fw, ok := res.(finalizeWriter); ok {
			fw.Finalize()
		}
		return nil
	}
}

// statusFromError maps handler errors to an HTTP status code.
func statusFromError(err error) int {
	var gerr *goerrors.Error
	if errors.As(err, &gerr) && gerr.Code > 0 {
		return gerr.Code
	}
	return http.StatusInternalServerError
}
