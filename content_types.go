package router

import (
	"path"
	"strings"
	"sync"
)

// ContentTypeResolver maps a file name to the content type it is served with.
type ContentTypeResolver interface {
	TryResolve(name string) (string, bool)
}

// ContentTypeResolverFunc adapts a function to ContentTypeResolver.
type ContentTypeResolverFunc func(name string) (string, bool)

func (f ContentTypeResolverFunc) TryResolve(name string) (string, bool) {
	return f(name)
}

var defaultContentTypes = map[string]string{
	".aac":         "audio/aac",
	".appcache":    "text/cache-manifest",
	".avif":        "image/avif",
	".bmp":         "image/bmp",
	".css":         "text/css",
	".csv":         "text/csv",
	".doc":         "application/msword",
	".docx":        "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".eot":         "application/vnd.ms-fontobject",
	".epub":        "application/epub+zip",
	".gif":         "image/gif",
	".gz":          "application/x-gzip",
	".htm":         "text/html",
	".html":        "text/html",
	".ico":         "image/x-icon",
	".ics":         "text/calendar",
	".jpeg":        "image/jpeg",
	".jpg":         "image/jpeg",
	".js":          "text/javascript",
	".json":        "application/json",
	".jsonld":      "application/ld+json",
	".map":         "application/json",
	".md":          "text/markdown",
	".mid":         "audio/midi",
	".mjs":         "text/javascript",
	".mp3":         "audio/mpeg",
	".mp4":         "video/mp4",
	".mpeg":        "video/mpeg",
	".oga":         "audio/ogg",
	".ogv":         "video/ogg",
	".otf":         "font/otf",
	".pdf":         "application/pdf",
	".png":         "image/png",
	".rtf":         "application/rtf",
	".svg":         "image/svg+xml",
	".tar":         "application/x-tar",
	".tif":         "image/tiff",
	".tiff":        "image/tiff",
	".ttf":         "font/ttf",
	".txt":         "text/plain",
	".wasm":        "application/wasm",
	".wav":         "audio/wav",
	".weba":        "audio/webm",
	".webm":        "video/webm",
	".webmanifest": "application/manifest+json",
	".webp":        "image/webp",
	".woff":        "font/woff",
	".woff2":       "font/woff2",
	".xhtml":       "application/xhtml+xml",
	".xls":         "application/vnd.ms-excel",
	".xlsx":        "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xml":         "text/xml",
	".yaml":        "application/yaml",
	".yml":         "application/yaml",
	".zip":         "application/zip",
}

// ExtensionContentTypes resolves content types from the file extension
// using a mutable table seeded with common web types.
type ExtensionContentTypes struct {
	mu       sync.RWMutex
	mappings map[string]string
}

// NewExtensionContentTypes returns a resolver seeded with the built-in table.
func NewExtensionContentTypes() *ExtensionContentTypes {
	mappings := make(map[string]string, len(defaultContentTypes))
	for ext, ct := range defaultContentTypes {
		mappings[ext] = ct
	}
	return &ExtensionContentTypes{mappings: mappings}
}

// Set adds or replaces the mapping for ext. The leading dot is optional.
func (e *ExtensionContentTypes) Set(ext, contentType string) *ExtensionContentTypes {
	e.mu.Lock()
	e.mappings[normalizeExt(ext)] = contentType
	e.mu.Unlock()
	return e
}

// Remove drops the mapping for ext so files with it are treated as unknown.
func (e *ExtensionContentTypes) Remove(ext string) *ExtensionContentTypes {
	e.mu.Lock()
	delete(e.mappings, normalizeExt(ext))
	e.mu.Unlock()
	return e
}

func (e *ExtensionContentTypes) TryResolve(name string) (string, bool) {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		return "", false
	}
	e.mu.RLock()
	ct, ok := e.mappings[ext]
	e.mu.RUnlock()
	return ct, ok
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
