package router

import (
	"fmt"
	"io/fs"
	"net/http"
	"strings"

	"github.com/gobwas/glob"
)

// CompressionMode tells the serving stage whether the response body may
// be compressed by the transport.
type CompressionMode int

const (
	Compress CompressionMode = iota
	DoNotCompress
)

func (m CompressionMode) String() string {
	switch m {
	case DoNotCompress:
		return "do_not_compress"
	default:
		return "compress"
	}
}

// ParseCompressionMode parses the YAML spelling of a compression mode.
func ParseCompressionMode(s string) (CompressionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "compress":
		return Compress, nil
	case "do_not_compress", "none", "off":
		return DoNotCompress, nil
	}
	return Compress, fmt.Errorf("unknown compression mode %q", s)
}

func (m *CompressionMode) UnmarshalYAML(unmarshal func(any) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	mode, err := ParseCompressionMode(raw)
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

func (m CompressionMode) MarshalYAML() (any, error) {
	return m.String(), nil
}

// StaticFileResponse is handed to OnPrepareResponse right before the
// file body is written.
type StaticFileResponse struct {
	Writer      http.ResponseWriter
	Request     *http.Request
	Name        string
	Info        fs.FileInfo
	Compression CompressionMode
}

// StaticOptions configures a static route. The zero value is valid;
// unset collaborators are filled in when the route is bound.
type StaticOptions struct {
	// RequestPath is the URL prefix the route is bound to. It is set by
	// the binder from the prefix argument.
	RequestPath string
	// FS is the virtual file system files are looked up in.
	FS fs.FS
	// ContentTypes maps file names to content types.
	ContentTypes ContentTypeResolver
	// DefaultContentType is used for unknown file types when
	// ServeUnknownFileTypes is set. When empty the type is sniffed from
	// the file content.
	DefaultContentType    string
	ServeUnknownFileTypes bool
	Compression           CompressionMode
	// OnPrepareResponse is called after headers are set and before the
	// body is written.
	OnPrepareResponse func(*StaticFileResponse)
	// MaxAge sets Cache-Control max-age in seconds when positive.
	MaxAge int
	// Exclude lists glob patterns, matched against the file name relative
	// to the file system root, that are never served.
	Exclude []string
}

// Clone returns a copy that shares no mutable state with o.
func (o StaticOptions) Clone() StaticOptions {
	c := o
	if o.Exclude != nil {
		c.Exclude = append([]string(nil), o.Exclude...)
	}
	return c
}

// excluder matches names against compiled exclusion globs.
type excluder []glob.Glob

func compileExcludes(patterns []string) (excluder, error) {
	out := make(excluder, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimPrefix(strings.TrimSpace(p), "/")
		if p == "" {
			continue
		}
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

func (e excluder) Match(name string) bool {
	for _, g := range e {
		if g.Match(name) {
			return true
		}
	}
	return false
}
