package router_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	router "github.com/goliatone/go-static-router"
)

func quietFiber(app *fiber.App) *fiber.App { return app }

func fiberDo(t *testing.T, srv *router.FiberServer, method, path string, headers ...string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := srv.WrappedRouter().Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, string(body)
}

func TestFiberServerServesExistingFiles(t *testing.T) {
	srv := router.NewFiberServer(quietFiber)

	_, err := router.NewStaticBinder(nil).Bind(srv, "/assets", &router.StaticOptions{
		FS:     assetsFS(),
		MaxAge: 120,
	})
	require.NoError(t, err)

	resp, body := fiberDo(t, srv, http.MethodGet, "/assets/app.js")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "console.log(1)", body)
	assert.Equal(t, "text/javascript", resp.Header.Get("Content-Type"))
	assert.Equal(t, "public, max-age=120", resp.Header.Get("Cache-Control"))
	assert.NotEmpty(t, resp.Header.Get("ETag"))

	resp, body = fiberDo(t, srv, http.MethodGet, "/assets/images/logo.svg")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<svg/>", body)
}

func TestFiberServerFallsThrough(t *testing.T) {
	srv := router.NewFiberServer(quietFiber)

	_, err := router.NewStaticBinder(nil).Bind(srv, "/assets", &router.StaticOptions{FS: assetsFS()})
	require.NoError(t, err)

	srv.Get("/assets/*", func(c router.Context) error {
		return c.SendString("dynamic " + c.Param("*"))
	})

	resp, body := fiberDo(t, srv, http.MethodGet, "/assets/missing.js")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "dynamic missing.js", body)

	_, body = fiberDo(t, srv, http.MethodGet, "/assets/images")
	assert.Equal(t, "dynamic images", body, "directories fall through")

	_, body = fiberDo(t, srv, http.MethodGet, "/assets/app.js")
	assert.Equal(t, "console.log(1)", body)
}

func TestFiberServerUnmatched(t *testing.T) {
	srv := router.NewFiberServer(quietFiber)

	_, err := router.NewStaticBinder(nil).Bind(srv, "/assets", &router.StaticOptions{FS: assetsFS()})
	require.NoError(t, err)

	resp, _ := fiberDo(t, srv, http.MethodGet, "/assets/missing.js")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = fiberDo(t, srv, http.MethodPost, "/assets/app.js")
	assert.NotEqual(t, http.StatusOK, resp.StatusCode)
}

func TestFiberServerRangeAndConditionalRequests(t *testing.T) {
	srv := router.NewFiberServer(quietFiber)

	_, err := router.NewStaticBinder(nil).Bind(srv, "/", &router.StaticOptions{FS: assetsFS()})
	require.NoError(t, err)

	resp, body := fiberDo(t, srv, http.MethodGet, "/app.js", "Range", "bytes=0-6")
	assert.Equal(t, http.StatusPartialContent, resp.StatusCode)
	assert.Equal(t, "console", body)

	etag := resp.Header.Get("ETag")
	require.NotEmpty(t, etag)

	resp, body = fiberDo(t, srv, http.MethodGet, "/app.js", "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)
	assert.Empty(t, body)
}

func TestFiberServerConventionsAndDecision(t *testing.T) {
	srv := router.NewFiberServer(quietFiber)

	var (
		outerName string
		innerName string
		capture   string
	)

	binder := router.NewStaticBinder(nil, router.WithServingStage(func(opts router.StaticOptions, _ router.Logger) router.MiddlewareFunc {
		return func(next router.HandlerFunc) router.HandlerFunc {
			return func(c router.Context) error {
				innerName = c.RouteName()
				return c.SendString("stage")
			}
		}
	}))

	handle, err := binder.Bind(srv, "/docs", &router.StaticOptions{FS: assetsFS()})
	require.NoError(t, err)
	require.NoError(t, handle.Add(func(e *router.Endpoint) {
		e.Use(func(next router.HandlerFunc) router.HandlerFunc {
			return func(c router.Context) error {
				outerName = c.RouteName()
				capture = c.Param("path")
				return next(c)
			}
		})
	}))

	_, body := fiberDo(t, srv, http.MethodGet, "/docs/index.html")
	assert.Equal(t, "stage", body)
	assert.Equal(t, "static:/docs/*path", outerName)
	assert.Equal(t, "index.html", capture)
	assert.Empty(t, innerName)
	assert.Len(t, srv.Endpoints(), 1)
}

func TestFiberServerHandlerErrors(t *testing.T) {
	srv := router.NewFiberServer(quietFiber)

	_, err := srv.MapConditional(router.ConditionalRoute{Pattern: router.StaticPattern("/x")})
	require.Error(t, err)
	assert.True(t, router.IsArgumentError(err))

	srv.Get("/boom", router.HandlerFromHTTP(nil))
	resp, _ := fiberDo(t, srv, http.MethodGet, "/boom")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestFiberServerCapturedPathOutlivesRequest(t *testing.T) {
	srv := router.NewFiberServer(quietFiber)

	handle, err := router.NewStaticBinder(nil).Bind(srv, "/assets", &router.StaticOptions{FS: assetsFS()})
	require.NoError(t, err)

	var captured []string
	require.NoError(t, handle.Add(func(e *router.Endpoint) {
		e.Use(func(next router.HandlerFunc) router.HandlerFunc {
			return func(c router.Context) error {
				captured = append(captured, c.RouteParams()["path"])
				return next(c)
			}
		})
	}))

	fiberDo(t, srv, http.MethodGet, "/assets/app.js")
	fiberDo(t, srv, http.MethodGet, "/assets/images/logo.svg")
	fiberDo(t, srv, http.MethodGet, "/assets/index.html")

	assert.Equal(t, []string{"app.js", "images/logo.svg", "index.html"}, captured)
}
