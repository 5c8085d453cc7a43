package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	router "github.com/goliatone/go-static-router"
	"github.com/goliatone/go-static-router/metrics"
	"github.com/goliatone/go-static-router/middleware/requestid"
	"github.com/goliatone/go-static-router/s3fs"
)

type server interface {
	router.RouteRegistrar
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc)
	Serve(address string) error
	Shutdown(ctx context.Context) error
}

type options struct {
	adapter  string
	address  string
	config   string
	s3Bucket string
	s3Prefix string
	s3Region string
	s3URL    string
}

func healthRouteHandler(c router.Context) error {
	c.SetHeader(router.HeaderContentType, "application/json")
	return c.SendString(`{"success":true}`)
}

// spaIndex serves index.html from the web root for every request no
// other route handled.
func spaIndex(webRoot fs.FS) router.HandlerFunc {
	return func(c router.Context) error {
		if webRoot == nil {
			return c.SendStatus(http.StatusNotFound)
		}
		data, err := fs.ReadFile(webRoot, "index.html")
		if err != nil {
			return c.SendStatus(http.StatusNotFound)
		}
		c.SetHeader(router.HeaderContentType, "text/html; charset=utf-8")
		return c.SendString(string(data))
	}
}

// newApp wires the host: API routes first, then the static routes, then
// the single page app fallback.
func newApp(ctx context.Context, opts options, lgr router.Logger, reg *prometheus.Registry) (server, error) {
	cfg := router.DefaultHostConfig()
	if opts.config != "" {
		var err error
		if cfg, err = router.LoadHostConfigFile(opts.config); err != nil {
			return nil, err
		}
	}

	env, err := router.NewHostEnvironment(cfg, router.WithHostLogger(lgr))
	if err != nil {
		return nil, err
	}

	observer, err := metrics.NewPrometheusObserver("example", reg)
	if err != nil {
		return nil, err
	}

	binder := router.NewStaticBinder(env,
		router.WithBinderLogger(lgr),
		router.WithGateObserver(observer),
	)

	var srv server
	switch opts.adapter {
	case "fiber":
		srv = router.NewFiberServer(router.DefaultFiberOptions).WithLogger(lgr)
	default:
		httpSrv := router.NewHTTPServer().WithLogger(lgr)
		httpSrv.Fallback(spaIndex(env.WebRootFileSystem()))
		srv = httpSrv
	}

	srv.Get("/health", healthRouteHandler, requestid.New())
	srv.Get("/metrics", router.HandlerFromHTTP(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	if env.WebRootFileSystem() != nil {
		handle, err := binder.Bind(srv, "/", nil)
		if err != nil {
			return nil, err
		}
		if err := handle.Add(func(e *router.Endpoint) {
			e.SetName("webroot").Use(requestid.New())
		}); err != nil {
			return nil, err
		}
	}

	if opts.s3Bucket != "" {
		bucket, err := s3fs.New(ctx, s3fs.Config{
			Bucket:    opts.s3Bucket,
			Prefix:    opts.s3Prefix,
			Region:    opts.s3Region,
			Endpoint:  opts.s3URL,
			PathStyle: opts.s3URL != "",
		})
		if err != nil {
			return nil, err
		}
		if _, err := binder.Bind(srv, "/media", &router.StaticOptions{
			FS:     bucket,
			MaxAge: int((24 * time.Hour).Seconds()),
		}); err != nil {
			return nil, err
		}
	}

	if fiberSrv, ok := srv.(*router.FiberServer); ok {
		// fiber routes match in registration order, the fallback goes last
		fiberSrv.Get("/*", spaIndex(env.WebRootFileSystem()))
	}

	return srv, nil
}

func main() {
	var opts options
	flag.StringVar(&opts.adapter, "adapter", "http", "server adapter, http or fiber")
	flag.StringVar(&opts.address, "addr", ":9092", "listen address")
	flag.StringVar(&opts.config, "config", "", "host configuration file")
	flag.StringVar(&opts.s3Bucket, "s3-bucket", "", "serve /media from this S3 bucket")
	flag.StringVar(&opts.s3Prefix, "s3-prefix", "", "key prefix inside the S3 bucket")
	flag.StringVar(&opts.s3Region, "s3-region", "", "S3 region")
	flag.StringVar(&opts.s3URL, "s3-endpoint", "", "S3 compatible endpoint, e.g. MinIO")
	flag.Parse()

	zl, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal(err)
	}
	defer zl.Sync()
	lgr := router.NewZapLogger(zl)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, opts, lgr, prometheus.NewRegistry())
	if err != nil {
		log.Fatal(fmt.Errorf("failed to build app: %w", err))
	}

	go func() {
		lgr.Info("listening", "addr", opts.address, "adapter", opts.adapter)
		if err := app.Serve(opts.address); err != nil && err != http.ErrServerClosed {
			log.Panic(err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		log.Panic(err)
	}
}
