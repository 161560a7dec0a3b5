// Package static serves card artwork to clients.
package static

import (
	"io/fs"
	"net/http"
	"path"
	"strings"
)

var imageTypes = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".webp": true}

// Handler serves the image files in fsys. Anything else, directory listings
// included, is a 404.
func Handler(fsys fs.FS, prefix string) http.Handler {
	fileServer := http.StripPrefix(prefix, http.FileServer(http.FS(fsys)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, prefix)
		if name == "" || strings.Contains(name, "/") || !imageTypes[strings.ToLower(path.Ext(name))] {
			http.NotFound(w, r)
			return
		}
		// Card images never change once a deck is loaded.
		w.Header().Set("Cache-Control", "public, max-age=86400")
		fileServer.ServeHTTP(w, r)
	})
}
