package router

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// StaticFiles returns the byte serving stage for resolved options. It
// serves GET and HEAD requests whose path, relative to
// opts.RequestPath, names a regular file in opts.FS, and calls next for
// everything else.
//
// Requests that still carry a routing decision are passed to next
// untouched; mount it behind ClearRouteDecision when it runs inside a
// routed endpoint.
func StaticFiles(opts StaticOptions, lgrs ...Logger) MiddlewareFunc {
	server := newFileServer(opts, getLogger(lgrs...))

	return func(next HandlerFunc) HandlerFunc {
		return func(c Context) error {
			if _, routed := RouteDecisionFromContext(c.Context()); routed {
				return next(c)
			}

			httpCtx, ok := AsHTTPContext(c)
			if !ok {
				return newHTTPAdapterError(http.StatusNotImplemented, "static_files: context does not implement HTTPContext")
			}

			req := httpCtx.Request()
			res := httpCtx.Response()
			if req == nil || res == nil {
				return newHTTPAdapterError(http.StatusInternalServerError, "static_files: nil request/response")
			}

			if !server.serve(res, req.WithContext(c.Context())) {
				return next(c)
			}

			if fw, ok := res.(finalizeWriter); ok {
				fw.Finalize()
			}
			return nil
		}
	}
}

type fileServer struct {
	opts    StaticOptions
	exclude excluder
	logger  Logger
}

func newFileServer(opts StaticOptions, logger Logger) *fileServer {
	exclude, err := compileExcludes(opts.Exclude)
	if err != nil {
		// the binder validates patterns, direct callers get a log line
		logger.Error("static files exclude patterns ignored", "error", err)
	}
	if opts.ContentTypes == nil {
		opts.ContentTypes = NewExtensionContentTypes()
	}
	return &fileServer{
		opts:    opts,
		exclude: exclude,
		logger:  logger,
	}
}

// lookupName resolves the file name for a request path against the
// configured prefix.
func (s *fileServer) lookupName(requestPath string) (string, bool) {
	capture, ok := StaticPattern(s.opts.RequestPath).Match(requestPath)
	if !ok {
		return "", false
	}
	name := fsName(capture)
	if !fs.ValidPath(name) {
		return "", false
	}
	if s.exclude.Match(name) {
		return "", false
	}
	return name, true
}

func (s *fileServer) serve(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	if s.opts.FS == nil {
		return false
	}

	name, ok := s.lookupName(r.URL.Path)
	if !ok {
		return false
	}

	contentType, known := s.opts.ContentTypes.TryResolve(name)
	if !known {
		if !s.opts.ServeUnknownFileTypes {
			s.logger.Debug("static file type not served", "name", name)
			return false
		}
		contentType = s.opts.DefaultContentType
	}

	f, err := openContext(r.Context(), s.opts.FS, name)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Error("static file open failed", "name", name, "error", err)
		}
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		return false
	}

	content, err := asReadSeeker(f)
	if err != nil {
		s.logger.Error("static file read failed", "name", name, "error", err)
		return false
	}

	if contentType == "" {
		contentType, err = sniffContentType(content)
		if err != nil {
			s.logger.Error("static file sniff failed", "name", name, "error", err)
			return false
		}
	}

	h := w.Header()
	h.Set(HeaderContentType, contentType)
	if h.Get(HeaderETag) == "" {
		h.Set(HeaderETag, fileETag(info))
	}
	if cc := cacheControl(s.opts.MaxAge, s.opts.Compression); cc != "" {
		h.Set(HeaderCacheControl, cc)
	}

	if s.opts.OnPrepareResponse != nil {
		s.opts.OnPrepareResponse(&StaticFileResponse{
			Writer:  w,
			Request: r,
			Name:        name,
			Info:        info,
			Compression: s.opts.Compression,
		})
	}

	http.ServeContent(w, r, name, info.ModTime(), content)
	return true
}

// cacheControl builds the Cache-Control value. DoNotCompress maps to
// no-transform so intermediaries leave the body as stored.
func cacheControl(maxAge int, mode CompressionMode) string {
	var directives []string
	if maxAge > 0 {
		directives = append(directives, "public", fmt.Sprintf("max-age=%d", maxAge))
	}
	if mode == DoNotCompress {
		directives = append(directives, "no-transform")
	}
	return strings.Join(directives, ", ")
}

func asReadSeeker(f fs.File) (io.ReadSeeker, error) {
	if rs, ok := f.(io.ReadSeeker); ok {
		return rs, nil
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

func sniffContentType(content io.ReadSeeker) (string, error) {
	mtype, err := mimetype.DetectReader(content)
	if err != nil {
		return "", err
	}
	if _, err := content.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return mtype.String(), nil
}

func fileETag(info fs.FileInfo) string {
	return fmt.Sprintf(`"%x-%x"`, info.ModTime().UnixNano(), info.Size())
}

// staticNotFound terminates a nested static pipeline.
func staticNotFound(c Context) error {
	return c.SendStatus(http.StatusNotFound)
}
