// Package router is a small method-aware router over http.ServeMux with
// wildcard segments and request logging.
package router

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type HandlerFunc func(http.ResponseWriter, *http.Request)

type route struct {
	method  string
	pattern string
	handler HandlerFunc
}

type prefixRoute struct {
	prefix  string
	handler http.Handler
}

type Router struct {
	mux      *http.ServeMux
	routes   map[string]HandlerFunc // key = METHOD:PATH
	paths    map[string]bool        // track registered paths
	wildcard []route                // wildcard routes in registration order
	prefixes []prefixRoute
	logger   zerolog.Logger
}

func New(logger zerolog.Logger) *Router {
	r := &Router{
		mux:    http.NewServeMux(),
		routes: make(map[string]HandlerFunc),
		paths:  make(map[string]bool),
		logger: logger,
	}
	r.mux.HandleFunc("/", r.dispatch)
	return r
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) dispatch(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

	r.serve(lrw, req)

	event := r.logger.Info()
	switch {
	case lrw.statusCode >= 500:
		event = r.logger.Error()
	case lrw.statusCode >= 400:
		event = r.logger.Warn()
	}
	event.
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", lrw.statusCode).
		Dur("duration", time.Since(start)).
		Msg("request")
}

func (r *Router) serve(w http.ResponseWriter, req *http.Request) {
	if h, ok := r.routes[req.Method+":"+req.URL.Path]; ok {
		h(w, req)
		return
	}

	// Wildcard routes are tried in registration order, so more specific
	// patterns must be registered first.
	methodMismatch := r.paths[req.URL.Path]
	for _, rt := range r.wildcard {
		if !matchWildcardRoute(req.URL.Path, rt.pattern) {
			continue
		}
		if rt.method == req.Method {
			rt.handler(w, req)
			return
		}
		methodMismatch = true
	}

	for _, p := range r.prefixes {
		if strings.HasPrefix(req.URL.Path, p.prefix) {
			p.handler.ServeHTTP(w, req)
			return
		}
	}

	if methodMismatch {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	http.Error(w, "Not Found", http.StatusNotFound)
}

// matchWildcardRoute checks if a request path matches a wildcard route pattern
func matchWildcardRoute(requestPath, routePattern string) bool {
	requestSegments := strings.Split(strings.Trim(requestPath, "/"), "/")
	routeSegments := strings.Split(strings.Trim(routePattern, "/"), "/")

	// A trailing "/**" matches one or more remaining segments.
	if last := len(routeSegments) - 1; routeSegments[last] == "**" {
		if len(requestSegments) < len(routeSegments) {
			return false
		}
		return matchSegments(requestSegments[:last], routeSegments[:last])
	}

	if len(requestSegments) != len(routeSegments) {
		return false
	}
	return matchSegments(requestSegments, routeSegments)
}

func matchSegments(request, route []string) bool {
	for i, seg := range route {
		if seg == "*" {
			if request[i] == "" {
				return false
			}
			continue
		}
		if request[i] != seg {
			return false
		}
	}
	return true
}

// --- Register paths ---
func (r *Router) register(method, path string, handler HandlerFunc) {
	if strings.Contains(path, "*") {
		r.wildcard = append(r.wildcard, route{method: method, pattern: path, handler: handler})
		return
	}
	r.routes[method+":"+path] = handler
	r.paths[path] = true
}

func (r *Router) GET(path string, handler HandlerFunc)  { r.register(http.MethodGet, path, handler) }
func (r *Router) POST(path string, handler HandlerFunc) { r.register(http.MethodPost, path, handler) }

// Handle mounts h for every request whose path starts with prefix and that
// no other route matched.
func (r *Router) Handle(prefix string, h http.Handler) {
	r.prefixes = append(r.prefixes, prefixRoute{prefix: prefix, handler: h})
}

// Routes lists every registered route as "METHOD PATH", sorted. Prefix
// mounts are listed as "* PREFIX".
func (r *Router) Routes() []string {
	out := make([]string, 0, len(r.routes)+len(r.wildcard)+len(r.prefixes))
	for key := range r.routes {
		method, path, _ := strings.Cut(key, ":")
		out = append(out, method+" "+path)
	}
	for _, rt := range r.wildcard {
		out = append(out, rt.method+" "+rt.pattern)
	}
	for _, p := range r.prefixes {
		out = append(out, "* "+p.prefix)
	}
	slices.Sort(out)
	return out
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (r *Router) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info().Str("addr", addr).Msgf("server started on http://localhost%s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	r.logger.Info().Msg("server stopped")
	return nil
}

// --- Logging response writer to capture status codes ---
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}
