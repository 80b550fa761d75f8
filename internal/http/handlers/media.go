package handlers

import (
	"net/http"
	"strings"
)

// Media serves stored results under prefix. Directory listings are refused.
func (a *App) Media(prefix string) http.Handler {
	if a.Store == nil {
		return http.NotFoundHandler()
	}
	files := http.StripPrefix(prefix, http.FileServer(http.FS(a.Store.FS())))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "private, max-age=3600")
		files.ServeHTTP(w, r)
	})
}
