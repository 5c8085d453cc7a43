package router

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	cfs "github.com/goliatone/go-composite-fs"
	"gopkg.in/yaml.v2"
)

// DefaultsProvider supplies the process wide static file settings used
// when a static route is bound without explicit options.
type DefaultsProvider interface {
	// StaticFileDefaults returns a snapshot of the default options.
	StaticFileDefaults() StaticOptions
	// WebRootFileSystem returns the host web root, or nil if the host
	// has none.
	WebRootFileSystem() fs.FS
}

// StaticSettings is the YAML shape of the default static options.
type StaticSettings struct {
	DefaultContentType    string          `yaml:"default_content_type"`
	ServeUnknownFileTypes bool            `yaml:"serve_unknown_file_types"`
	Compression           CompressionMode `yaml:"compression"`
	MaxAge                int             `yaml:"max_age"`
	Exclude               []string        `yaml:"exclude"`
}

// HostConfig is the host level configuration static routes default to.
type HostConfig struct {
	// WebRoots are directories merged into the web root file system.
	// Earlier entries shadow later ones.
	WebRoots []string       `yaml:"web_roots"`
	Static   StaticSettings `yaml:"static"`
}

// DefaultHostConfig returns the configuration used for unset fields.
func DefaultHostConfig() HostConfig {
	return HostConfig{
		WebRoots: []string{"wwwroot"},
		Static: StaticSettings{
			Exclude: []string{".*", "**/.*"},
		},
	}
}

// LoadHostConfig decodes a YAML document and fills unset fields from
// DefaultHostConfig.
func LoadHostConfig(r io.Reader) (HostConfig, error) {
	var cfg HostConfig
	data, err := io.ReadAll(r)
	if err != nil {
		return cfg, fmt.Errorf("failed to read host config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse host config: %w", err)
	}
	if err := mergo.Merge(&cfg, DefaultHostConfig()); err != nil {
		return cfg, fmt.Errorf("failed to merge host config defaults: %w", err)
	}
	return cfg, nil
}

// LoadHostConfigFile reads the host configuration from a YAML file.
func LoadHostConfigFile(path string) (HostConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return HostConfig{}, fmt.Errorf("failed to open host config: %w", err)
	}
	defer f.Close()
	return LoadHostConfig(f)
}

// HostEnvironment is the DefaultsProvider built from a HostConfig.
type HostEnvironment struct {
	webRoot  fs.FS
	overlays []fs.FS
	static   StaticOptions
	logger   Logger
}

type HostOption func(*HostEnvironment)

// WithWebRootFS layers fsys on top of the configured web root
// directories, e.g. an embed.FS with the built assets.
func WithWebRootFS(fsys fs.FS) HostOption {
	return func(h *HostEnvironment) {
		if fsys != nil {
			h.overlays = append(h.overlays, fsys)
		}
	}
}

// WithStaticFS sets the default static file system, used instead of the
// web root when binding without options.
func WithStaticFS(fsys fs.FS) HostOption {
	return func(h *HostEnvironment) {
		h.static.FS = fsys
	}
}

func WithDefaultContentTypes(resolver ContentTypeResolver) HostOption {
	return func(h *HostEnvironment) {
		h.static.ContentTypes = resolver
	}
}

func WithDefaultOnPrepareResponse(fn func(*StaticFileResponse)) HostOption {
	return func(h *HostEnvironment) {
		h.static.OnPrepareResponse = fn
	}
}

func WithHostLogger(logger Logger) HostOption {
	return func(h *HostEnvironment) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHostEnvironment builds the web root and default static options
// from cfg. Web root directories that do not exist are skipped; when
// none is left the host has no web root.
func NewHostEnvironment(cfg HostConfig, opts ...HostOption) (*HostEnvironment, error) {
	if _, err := compileExcludes(cfg.Static.Exclude); err != nil {
		return nil, newConfigurationError(err.Error(), map[string]any{
			"exclude": cfg.Static.Exclude,
		})
	}

	h := &HostEnvironment{
		logger: getLogger(),
		static: StaticOptions{
			DefaultContentType:    cfg.Static.DefaultContentType,
			ServeUnknownFileTypes: cfg.Static.ServeUnknownFileTypes,
			Compression:           cfg.Static.Compression,
			MaxAge:                cfg.Static.MaxAge,
			Exclude:               append([]string(nil), cfg.Static.Exclude...),
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	roots := append([]fs.FS(nil), h.overlays...)
	for _, dir := range cfg.WebRoots {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve web root %q: %w", dir, err)
		}
		if !DirExists(abs) {
			h.logger.Warn("web root directory not found, skipping", "dir", abs)
			continue
		}
		h.logger.Debug("adding web root directory", "dir", abs)
		roots = append(roots, os.DirFS(abs))
	}

	switch len(roots) {
	case 0:
	case 1:
		h.webRoot = roots[0]
	default:
		h.webRoot = cfs.NewCompositeFS(roots...)
	}

	return h, nil
}

func (h *HostEnvironment) StaticFileDefaults() StaticOptions {
	return h.static.Clone()
}

func (h *HostEnvironment) WebRootFileSystem() fs.FS {
	return h.webRoot
}

// DirExists reports whether path is an existing directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
