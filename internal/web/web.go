// Package web serves the landing page.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"os"
)

//go:embed static
var staticFS embed.FS

// Handler serves index.html from dir, or the embedded copy when dir is empty.
func Handler(dir string) http.Handler {
	var files fs.FS
	if dir != "" {
		files = os.DirFS(dir)
	} else {
		files, _ = fs.Sub(staticFS, "static")
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeFileFS(w, r, files, "index.html")
	})
}
