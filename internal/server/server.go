// Package server serves the generated site over HTTP.
package server

import (
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Reserved paths. Vault content never produces a top-level "_quire" slug.
const (
	EventsPath  = "/_quire/events"
	MetricsPath = "/_quire/metrics"
)

const indexPage = "index.html"

// Options configures the site handler.
type Options struct {
	// Events, if non-nil, is mounted at EventsPath.
	Events http.Handler
	// Metrics, if non-nil, is mounted at MetricsPath.
	Metrics http.Handler
	Logger  *slog.Logger
}

// New returns a handler serving the files under root. The directory is read
// on every request, so it always reflects the build currently on disk.
func New(root string, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(logUnsuccessful(logger))

	if opts.Events != nil {
		r.Get(EventsPath, opts.Events.ServeHTTP)
	}
	if opts.Metrics != nil {
		r.Get(MetricsPath, opts.Metrics.ServeHTTP)
	}

	files := &fileHandler{root: root}
	r.Get("/*", files.ServeHTTP)
	r.Head("/*", files.ServeHTTP)
	return r
}

// Translate maps a URL path to a file below root. Dot segments are resolved
// against a rooted path before the remaining segments are joined onto root,
// so the result never leaves root.
func Translate(root, urlPath string) string {
	clean := path.Clean("/" + urlPath)
	name := root
	for _, seg := range strings.Split(clean, "/") {
		if seg == "" || seg == "." || seg == ".." || strings.ContainsRune(seg, filepath.Separator) {
			continue
		}
		name = filepath.Join(name, seg)
	}
	return name
}

type fileHandler struct {
	root string
}

func (h *fileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := Translate(h.root, r.URL.Path)

	info, err := os.Stat(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if info.IsDir() {
		if !strings.HasSuffix(r.URL.Path, "/") {
			redirectDir(w, r)
			return
		}
		name = filepath.Join(name, indexPage)
	}

	f, err := os.Open(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err = f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// redirectDir sends a relative redirect to the directory URL with a trailing
// slash, keeping the query string.
func redirectDir(w http.ResponseWriter, r *http.Request) {
	target := path.Base(r.URL.Path) + "/"
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	w.Header().Set("Location", target)
	w.WriteHeader(http.StatusMovedPermanently)
}

// logUnsuccessful logs every response outside 2xx. Redirects and
// not-modified replies log at info, errors at warn.
func logUnsuccessful(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if status >= 200 && status < 300 {
				return
			}
			level := slog.LevelInfo
			if status >= http.StatusBadRequest {
				level = slog.LevelWarn
			}
			logger.LogAttrs(r.Context(), level, "server: request not ok",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Duration("duration", time.Since(start)))
		})
	}
}
