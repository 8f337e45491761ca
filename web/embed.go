// Package web embeds the static dashboard (dist/) and provides an HTTP
// handler that serves it with login gating: the login page is public,
// everything else redirects to /login until a session exists.
package web

import (
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
)

//go:embed all:dist
var distFS embed.FS

// Handler returns an http.Handler serving the embedded dashboard.
// authenticated reports whether the request carries a live session; it is
// consulted only for the dashboard page itself, static assets are served
// directly.
func Handler(authenticated func(*http.Request) bool) http.Handler {
	subFS, err := fs.Sub(distFS, "dist")
	if err != nil {
		panic("web: failed to create sub filesystem: " + err.Error())
	}

	fileServer := http.FileServer(http.FS(subFS))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/")

		// The login page is always reachable.
		if path == "login" || path == "login.html" {
			r.URL.Path = "/login.html"
			fileServer.ServeHTTP(w, r)
			return
		}

		// Static assets are served directly when they exist.
		if path != "" && path != "index.html" {
			if f, err := subFS.Open(path); err == nil {
				if closeErr := f.Close(); closeErr != nil {
					slog.Debug("web: failed to close embedded file", "path", path, "error", closeErr)
				}
				fileServer.ServeHTTP(w, r)
				return
			}
		}

		// Dashboard: requires a session.
		if !authenticated(r) {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}
