// Package assets serves the form's client script and stylesheet embedded via
// go:embed. Each file is also reachable under a content-hashed name so pages
// can link it with long-lived cache headers.
package assets

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"
)

//go:embed all:dist
var distFS embed.FS

const hashLen = 8

var (
	// hashedNames maps a dist-relative path to its fingerprinted name.
	hashedNames = map[string]string{}
	// logicalNames is the reverse of hashedNames.
	logicalNames = map[string]string{}
)

func init() {
	_ = mime.AddExtensionType(".woff2", "font/woff2")
	_ = mime.AddExtensionType(".map", "application/json")

	err := fs.WalkDir(distFS, "dist", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(distFS, p)
		if err != nil {
			return err
		}
		logical := strings.TrimPrefix(p, "dist/")
		hashed := fingerprint(logical, data)
		hashedNames[logical] = hashed
		logicalNames[hashed] = logical
		return nil
	})
	if err != nil {
		slog.Error("failed to index embedded assets", "error", err)
	}
}

// fingerprint inserts a short content hash before the extension:
// "js/app.js" becomes "js/app.1a2b3c4d.js".
func fingerprint(name string, data []byte) string {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])[:hashLen]
	ext := path.Ext(name)
	return strings.TrimSuffix(name, ext) + "." + hash + ext
}

// URL returns the cacheable /static/ URL for a dist-relative asset path.
// Unknown names are returned unhashed.
func URL(name string) string {
	name = strings.TrimPrefix(name, "/")
	if hashed, ok := hashedNames[name]; ok {
		return "/static/" + hashed
	}
	return "/static/" + name
}

// mimeFromExt returns the MIME type for a file extension.
// Falls back to the Go standard library's MIME type database,
// then to "application/octet-stream" if unknown.
func mimeFromExt(ext string) string {
	switch ext {
	case ".js", ".mjs":
		return "application/javascript"
	case ".css":
		return "text/css; charset=utf-8"
	case ".woff2":
		return "font/woff2"
	case ".svg":
		return "image/svg+xml"
	case ".map":
		return "application/json"
	default:
		if ct := mime.TypeByExtension(ext); ct != "" {
			return ct
		}
		return "application/octet-stream"
	}
}

// FileServer returns an http.Handler that serves embedded assets from dist/.
// Fingerprinted names get immutable cache headers; plain names get no-cache.
// The handler expects paths relative to the dist root (strip /static/ before calling).
func FileServer() http.Handler {
	sub, err := fs.Sub(distFS, "dist")
	if err != nil {
		panic("assets: failed to create sub filesystem: " + err.Error())
	}
	fileServer := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ext := strings.ToLower(path.Ext(r.URL.Path))
		if ext != "" {
			w.Header().Set("Content-Type", mimeFromExt(ext))
		}

		if logical, ok := logicalNames[strings.TrimPrefix(r.URL.Path, "/")]; ok {
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
			r2 := r.Clone(r.Context())
			r2.URL.Path = "/" + logical
			fileServer.ServeHTTP(w, r2)
			return
		}

		w.Header().Set("Cache-Control", "no-cache")
		fileServer.ServeHTTP(w, r)
	})
}
