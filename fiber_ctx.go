package router

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

type fiberContext struct {
	ctx     *fiber.Ctx
	httpReq *http.Request
	httpRes http.ResponseWriter
}

type fasthttpResponseWriter struct {
	ctx         *fasthttp.RequestCtx
	header      http.Header
	wroteHeader bool
}

func (w *fasthttpResponseWriter) Header() http.Header {
	if w.header == nil {
		w.header = make(http.Header)
	}
	return w.header
}

func (w *fasthttpResponseWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	for k, vals := range w.Header() {
		if len(vals) == 0 {
			continue
		}
		if len(vals) == 1 {
			w.ctx.Response.Header.Set(k, vals[0])
			continue
		}
		for _, v := range vals {
			w.ctx.Response.Header.Add(k, v)
		}
	}
	w.ctx.Response.SetStatusCode(status)
}

func (w *fasthttpResponseWriter) Write(p []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ctx.Write(p)
}

func (w *fasthttpResponseWriter) Finalize() {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
}

func NewFiberContext(c *fiber.Ctx) Context {
	return &fiberContext{ctx: c}
}

func (c *fiberContext) Method() string { return c.ctx.Method() }
func (c *fiberContext) Path() string   { return c.ctx.Path() }

func (c *fiberContext) Param(name string, defaultValue ...string) string {
	if v := c.ctx.Params(name); v != "" {
		return v
	}
	if v, ok := routeParamsFromContext(c.Context())[name]; ok && v != "" {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (c *fiberContext) Header(key string) string {
	return c.ctx.Get(key)
}

func (c *fiberContext) SetHeader(key string, value string) {
	c.ctx.Set(key, value)
}

func (c *fiberContext) SendStatus(code int) error {
	return c.ctx.SendStatus(code)
}

func (c *fiberContext) SendString(body string) error {
	return c.ctx.SendString(body)
}

func (c *fiberContext) Context() context.Context {
	if uc := c.ctx.UserContext(); uc != nil {
		return uc
	}
	return context.Background()
}

func (c *fiberContext) SetContext(ctx context.Context) {
	c.ctx.SetUserContext(ctx)
	if c.httpReq != nil {
		c.httpReq = c.httpReq.WithContext(ctx)
	}
}

func (c *fiberContext) RouteName() string {
	return routeNameFromContext(c.Context())
}

func (c *fiberContext) RouteParams() map[string]string {
	return routeParamsFromContext(c.Context())
}

// Request converts the fasthttp request to a net/http one, once per context.
func (c *fiberContext) Request() *http.Request {
	if c.httpReq != nil {
		return c.httpReq
	}
	req := &http.Request{}
	if err := fasthttpadaptor.ConvertRequest(c.ctx.Context(), req, true); err != nil {
		return nil
	}
	c.httpReq = req.WithContext(c.Context())
	return c.httpReq
}

func (c *fiberContext) Response() http.ResponseWriter {
	if c.httpRes == nil {
		c.httpRes = &fasthttpResponseWriter{ctx: c.ctx.Context()}
	}
	return c.httpRes
}
