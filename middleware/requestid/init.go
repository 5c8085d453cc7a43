package requestid

import (
	"context"

	"github.com/google/uuid"

	router "github.com/goliatone/go-static-router"
)

type contextKey struct{}

type Config struct {
	Skip      func(c router.Context) bool
	Header    string
	Generator func() string
}

var ConfigDefault = Config{
	Skip:      nil,
	Header:    router.XRequestID,
	Generator: uuid.NewString,
}

// New returns middleware that reuses the incoming request ID header or
// generates one, echoes it on the response and stores it on the request
// context.
func New(config ...Config) router.MiddlewareFunc {
	cfg := configDefault(config...)

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			if cfg.Skip != nil && cfg.Skip(c) {
				return next(c)
			}

			rid := c.Header(cfg.Header)
			if rid == "" {
				rid = cfg.Generator()
			}

			c.SetHeader(cfg.Header, rid)
			c.SetContext(context.WithValue(c.Context(), contextKey{}, rid))

			return next(c)
		}
	}
}

// FromContext returns the request ID stored by the middleware.
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	rid, _ := ctx.Value(contextKey{}).(string)
	return rid
}

func configDefault(config ...Config) Config {
	if len(config) == 0 {
		return ConfigDefault
	}

	cfg := config[0]

	if cfg.Header == "" {
		cfg.Header = ConfigDefault.Header
	}

	if cfg.Generator == nil {
		cfg.Generator = ConfigDefault.Generator
	}

	return cfg
}
