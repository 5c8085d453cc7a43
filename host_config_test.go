package router_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	router "github.com/goliatone/go-static-router"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestLoadHostConfigDefaults(t *testing.T) {
	cfg, err := router.LoadHostConfig(strings.NewReader(""))
	require.NoError(t, err)

	assert.Equal(t, []string{"wwwroot"}, cfg.WebRoots)
	assert.Equal(t, []string{".*", "**/.*"}, cfg.Static.Exclude)
	assert.Equal(t, router.Compress, cfg.Static.Compression)
}

func TestLoadHostConfig(t *testing.T) {
	doc := `
web_roots:
  - public
  - dist
static:
  default_content_type: application/octet-stream
  serve_unknown_file_types: true
  compression: do_not_compress
  max_age: 600
  exclude:
    - "*.map"
`
	cfg, err := router.LoadHostConfig(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, []string{"public", "dist"}, cfg.WebRoots)
	assert.Equal(t, "application/octet-stream", cfg.Static.DefaultContentType)
	assert.True(t, cfg.Static.ServeUnknownFileTypes)
	assert.Equal(t, router.DoNotCompress, cfg.Static.Compression)
	assert.Equal(t, 600, cfg.Static.MaxAge)
	assert.Equal(t, []string{"*.map"}, cfg.Static.Exclude)
}

func TestLoadHostConfigErrors(t *testing.T) {
	_, err := router.LoadHostConfig(strings.NewReader("static: [unterminated"))
	require.Error(t, err)

	_, err = router.LoadHostConfig(strings.NewReader("static:\n  compression: sometimes\n"))
	require.Error(t, err)

	_, err = router.LoadHostConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadHostConfigFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "host.yaml", "web_roots: [site]\n")

	cfg, err := router.LoadHostConfigFile(filepath.Join(dir, "host.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{"site"}, cfg.WebRoots)
}

func TestCompressionModeYAML(t *testing.T) {
	out, err := yaml.Marshal(router.StaticSettings{Compression: router.DoNotCompress})
	require.NoError(t, err)
	assert.Contains(t, string(out), "compression: do_not_compress")

	mode, err := router.ParseCompressionMode("COMPRESS")
	require.NoError(t, err)
	assert.Equal(t, router.Compress, mode)
	assert.Equal(t, "compress", mode.String())
}

func TestHostEnvironmentOverlaysWebRoots(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()

	writeFile(t, first, "index.html", "first")
	writeFile(t, second, "index.html", "second")
	writeFile(t, second, "js/app.js", "app")

	env, err := router.NewHostEnvironment(router.HostConfig{
		WebRoots: []string{first, filepath.Join(first, "missing"), second},
	})
	require.NoError(t, err)

	root := env.WebRootFileSystem()
	require.NotNil(t, root)

	data, err := fs.ReadFile(root, "index.html")
	require.NoError(t, err)
	assert.Equal(t, "first", string(data), "earlier web roots shadow later ones")

	data, err = fs.ReadFile(root, "js/app.js")
	require.NoError(t, err)
	assert.Equal(t, "app", string(data))
}

func TestHostEnvironmentEmbeddedOverlay(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "index.html", "disk")
	writeFile(t, dir, "robots.txt", "disk robots")

	env, err := router.NewHostEnvironment(router.HostConfig{WebRoots: []string{dir}},
		router.WithWebRootFS(fstest.MapFS{
			"index.html": &fstest.MapFile{Data: []byte("embedded")},
		}),
	)
	require.NoError(t, err)

	data, err := fs.ReadFile(env.WebRootFileSystem(), "index.html")
	require.NoError(t, err)
	assert.Equal(t, "embedded", string(data))

	data, err = fs.ReadFile(env.WebRootFileSystem(), "robots.txt")
	require.NoError(t, err)
	assert.Equal(t, "disk robots", string(data))
}

func TestHostEnvironmentWithoutWebRoot(t *testing.T) {
	env, err := router.NewHostEnvironment(router.HostConfig{
		WebRoots: []string{filepath.Join(t.TempDir(), "nope")},
	})
	require.NoError(t, err)
	assert.Nil(t, env.WebRootFileSystem())

	_, err = router.NewStaticBinder(env).Bind(router.NewHTTPServer(), "/", nil)
	require.Error(t, err)
	assert.True(t, router.IsConfigurationError(err))
}

func TestHostEnvironmentInvalidExclude(t *testing.T) {
	_, err := router.NewHostEnvironment(router.HostConfig{
		Static: router.StaticSettings{Exclude: []string{"[abc"}},
	})
	require.Error(t, err)
	assert.True(t, router.IsConfigurationError(err))
}

func TestHostEnvironmentStaticDefaults(t *testing.T) {
	types := router.NewExtensionContentTypes()
	staticFS := fstest.MapFS{"app.js": &fstest.MapFile{Data: []byte("1")}}

	env, err := router.NewHostEnvironment(router.HostConfig{
		Static: router.StaticSettings{
			MaxAge:      60,
			Compression: router.DoNotCompress,
			Exclude:     []string{".*"},
		},
	},
		router.WithStaticFS(staticFS),
		router.WithDefaultContentTypes(types),
	)
	require.NoError(t, err)

	defaults := env.StaticFileDefaults()
	assert.Equal(t, 60, defaults.MaxAge)
	assert.Equal(t, router.DoNotCompress, defaults.Compression)
	assert.Same(t, types, defaults.ContentTypes)
	assert.NotNil(t, defaults.FS)

	defaults.Exclude[0] = "changed"
	assert.Equal(t, ".*", env.StaticFileDefaults().Exclude[0], "defaults are snapshots")
}

func TestHostEnvironmentBindsWithDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.js", "from disk")
	writeFile(t, dir, ".env", "SECRET=1")

	cfg, err := router.LoadHostConfig(strings.NewReader("web_roots: [" + dir + "]\n"))
	require.NoError(t, err)

	var prepared []string
	env, err := router.NewHostEnvironment(cfg, router.WithDefaultOnPrepareResponse(func(res *router.StaticFileResponse) {
		prepared = append(prepared, res.Name)
	}))
	require.NoError(t, err)

	srv := newServerWithFallback()
	_, err = router.NewStaticBinder(env).Bind(srv, "/", nil)
	require.NoError(t, err)

	rr := serve(srv, "GET", "/app.js")
	assert.Equal(t, "from disk", rr.Body.String())
	assert.Equal(t, []string{"app.js"}, prepared)

	rr = serve(srv, "GET", "/.env")
	assert.Equal(t, "1", rr.Header().Get("X-Fallback"), "hidden files are excluded by default")
}

func TestDirExists(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "file.txt", "x")

	assert.True(t, router.DirExists(dir))
	assert.False(t, router.DirExists(filepath.Join(dir, "file.txt")))
	assert.False(t, router.DirExists(filepath.Join(dir, "missing")))
}
