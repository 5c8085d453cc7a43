package router

// ServingStage builds the byte serving middleware of a static route
// from its resolved options.
type ServingStage func(opts StaticOptions, logger Logger) MiddlewareFunc

// StaticBinder binds static routes onto host routers. Defaults are read
// from the DefaultsProvider once per Bind call.
type StaticBinder struct {
	defaults DefaultsProvider
	logger   Logger
	observer GateObserver
	serving  ServingStage
}

type BinderOption func(*StaticBinder)

func WithBinderLogger(logger Logger) BinderOption {
	return func(b *StaticBinder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithGateObserver reports every existence probe of routes bound by
// the binder to observer.
func WithGateObserver(observer GateObserver) BinderOption {
	return func(b *StaticBinder) {
		b.observer = observer
	}
}

// WithServingStage replaces the byte serving middleware, StaticFiles
// by default.
func WithServingStage(stage ServingStage) BinderOption {
	return func(b *StaticBinder) {
		if stage != nil {
			b.serving = stage
		}
	}
}

func NewStaticBinder(defaults DefaultsProvider, opts ...BinderOption) *StaticBinder {
	b := &StaticBinder{
		defaults: defaults,
		logger:   getLogger(),
		serving: func(opts StaticOptions, logger Logger) MiddlewareFunc {
			return StaticFiles(opts, logger)
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Resolve returns the fully populated configuration a route bound at
// prefix with opts would use. opts may be nil to use the defaults.
func (b *StaticBinder) Resolve(prefix string, opts *StaticOptions) (StaticOptions, error) {
	var resolved StaticOptions
	switch {
	case opts != nil:
		resolved = opts.Clone()
	case b.defaults != nil:
		resolved = b.defaults.StaticFileDefaults()
	default:
		return resolved, newConfigurationError("no static options given and no defaults provider configured", map[string]any{
			"prefix": prefix,
		})
	}

	if resolved.ContentTypes == nil {
		resolved.ContentTypes = NewExtensionContentTypes()
	}

	if resolved.FS == nil && b.defaults != nil {
		resolved.FS = b.defaults.WebRootFileSystem()
	}
	if resolved.FS == nil {
		return resolved, newConfigurationError("static route has no file system and the host has no web root", map[string]any{
			"prefix": prefix,
		})
	}

	if _, err := compileExcludes(resolved.Exclude); err != nil {
		return resolved, newConfigurationError(err.Error(), map[string]any{
			"prefix":  prefix,
			"exclude": resolved.Exclude,
		})
	}

	resolved.RequestPath = NormalizePrefix(prefix)
	return resolved, nil
}

// Bind registers a static route serving files from the resolved file
// system under prefix. The route only matches when the remainder of the
// request path names a regular file, otherwise the request falls
// through to the routes registered after it.
func (b *StaticBinder) Bind(r RouteRegistrar, prefix string, opts *StaticOptions) (*RouteHandle, error) {
	if r == nil {
		return nil, newArgumentError("registrar", "route registrar cannot be nil")
	}

	resolved, err := b.Resolve(prefix, opts)
	if err != nil {
		return nil, err
	}

	// invalid patterns were rejected by Resolve
	exclude, _ := compileExcludes(resolved.Exclude)
	pattern := StaticPattern(resolved.RequestPath)

	gate := FileExists(resolved.FS,
		WithExistsLabel(pattern.String()),
		WithExistsLogger(b.logger),
		WithExistsObserver(b.observer),
		withExistsExcluder(exclude),
	)

	pipeline := Chain(staticNotFound,
		ClearRouteDecision(),
		b.serving(resolved, b.logger),
	)

	endpoint, err := r.MapConditional(ConditionalRoute{
		Name:    "static:" + pattern.String(),
		Methods: []HTTPMethod{GET, HEAD},
		Pattern: pattern,
		Constraints: map[string]Constraint{
			pattern.CatchAll: gate,
		},
		Handler: pipeline,
	})
	if err != nil {
		return nil, err
	}

	b.logger.Debug("static route bound", "pattern", pattern.String())
	return newRouteHandle(endpoint), nil
}
