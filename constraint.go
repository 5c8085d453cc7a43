package router

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/goliatone/go-static-router"

// StatContextFS is implemented by file systems whose lookups can observe
// request cancellation, e.g. network backed stores.
type StatContextFS interface {
	fs.FS
	StatContext(ctx context.Context, name string) (fs.FileInfo, error)
}

// OpenContextFS is implemented by file systems whose reads can observe
// request cancellation.
type OpenContextFS interface {
	fs.FS
	OpenContext(ctx context.Context, name string) (fs.File, error)
}

// GateOutcome is the result of a single existence probe.
type GateOutcome string

const (
	GateOutcomeFile     GateOutcome = "file"
	GateOutcomeMissing  GateOutcome = "missing"
	GateOutcomeDir      GateOutcome = "directory"
	GateOutcomeExcluded GateOutcome = "excluded"
	GateOutcomeError    GateOutcome = "error"
	GateOutcomeCanceled GateOutcome = "canceled"
)

// GateObserver receives the outcome of every existence probe.
type GateObserver interface {
	ObserveLookup(label string, outcome GateOutcome, elapsed time.Duration)
}

type existsConfig struct {
	label    string
	logger   Logger
	observer GateObserver
	exclude  excluder
	tracer   trace.Tracer
}

type ExistsOption func(*existsConfig)

// WithExistsLabel sets the label reported to observers and logs,
// usually the route prefix.
func WithExistsLabel(label string) ExistsOption {
	return func(c *existsConfig) {
		c.label = label
	}
}

func WithExistsLogger(logger Logger) ExistsOption {
	return func(c *existsConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithExistsObserver(observer GateObserver) ExistsOption {
	return func(c *existsConfig) {
		c.observer = observer
	}
}

func withExistsExcluder(e excluder) ExistsOption {
	return func(c *existsConfig) {
		c.exclude = e
	}
}

// WithExistsExclude rejects names matching any of the glob patterns.
// Invalid patterns panic, use StaticOptions.Exclude to get an error.
func WithExistsExclude(patterns ...string) ExistsOption {
	e, err := compileExcludes(patterns)
	if err != nil {
		panic(err)
	}
	return withExistsExcluder(e)
}

// FileExists returns a Constraint that accepts a captured path only when
// fsys has a regular file at that path. Lookup failures other than "not
// found" are logged and reported to the observer, and never match.
func FileExists(fsys fs.FS, opts ...ExistsOption) Constraint {
	cfg := &existsConfig{
		logger: getLogger(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(ctx context.Context, value string) bool {
		if ctx == nil {
			ctx = context.Background()
		}
		start := time.Now()
		name := fsName(value)

		outcome, err := cfg.probe(ctx, fsys, name)

		if err != nil {
			cfg.logger.Error("static file lookup failed",
				"label", cfg.label,
				"name", name,
				"error", err,
			)
		}

		if cfg.observer != nil {
			cfg.observer.ObserveLookup(cfg.label, outcome, time.Since(start))
		}

		return outcome == GateOutcomeFile
	}
}

func (cfg *existsConfig) probe(ctx context.Context, fsys fs.FS, name string) (outcome GateOutcome, err error) {
	if ctx.Err() != nil {
		return GateOutcomeCanceled, nil
	}

	if cfg.exclude.Match(name) {
		return GateOutcomeExcluded, nil
	}

	if fsys == nil {
		return GateOutcomeError, errors.New("no file system bound to static route")
	}

	ctx, span := cfg.tracer.Start(ctx, "static.exists",
		trace.WithAttributes(
			attribute.String("static.label", cfg.label),
			attribute.String("static.name", name),
		),
	)
	defer func() {
		span.SetAttributes(attribute.String("static.outcome", string(outcome)))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	defer func() {
		if r := recover(); r != nil {
			outcome = GateOutcomeError
			err = fmt.Errorf("file system panic: %v", r)
		}
	}()

	info, err := statContext(ctx, fsys, name)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrInvalid):
		return GateOutcomeMissing, nil
	case ctx.Err() != nil:
		return GateOutcomeCanceled, nil
	default:
		return GateOutcomeError, err
	}

	if info == nil {
		return GateOutcomeMissing, nil
	}
	if info.IsDir() {
		return GateOutcomeDir, nil
	}
	if !info.Mode().IsRegular() {
		return GateOutcomeMissing, nil
	}
	return GateOutcomeFile, nil
}

func statContext(ctx context.Context, fsys fs.FS, name string) (fs.FileInfo, error) {
	if sfs, ok := fsys.(StatContextFS); ok {
		return sfs.StatContext(ctx, name)
	}
	return fs.Stat(fsys, name)
}

func openContext(ctx context.Context, fsys fs.FS, name string) (fs.File, error) {
	if ofs, ok := fsys.(OpenContextFS); ok {
		return ofs.OpenContext(ctx, name)
	}
	return fsys.Open(name)
}

// fsName turns a captured URL path into an fs.FS name. The empty
// capture refers to the file system root.
func fsName(value string) string {
	name := strings.TrimPrefix(value, "/")
	if name == "" {
		return "."
	}
	return name
}
