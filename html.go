/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
)

//go:embed assets/*
var assets embed.FS

var indexTemplate = template.Must(template.ParseFS(assets, "assets/index.html"))

type indexPage struct {
	Prefix  string
	Favicon template.HTML
	Version string
}

func renderIndex(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer

	err := indexTemplate.Execute(&buf, indexPage{
		Prefix:  cfg.prefix,
		Favicon: template.HTML(getFavicon(cfg)),
		Version: releaseVersion,
	})

	return buf.Bytes(), err
}

// staticFile resolves a request path inside --static-dir, refusing anything
// that is not a regular file.
func staticFile(cfg *Config, urlPath string) (string, bool) {
	rel := path.Clean("/" + strings.TrimPrefix(urlPath, cfg.prefix))
	if rel == "/" {
		return "", false
	}

	name := filepath.Join(cfg.staticDir, filepath.FromSlash(rel))

	info, err := os.Stat(name)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}

	return name, true
}

func writeIndex(cfg *Config, w http.ResponseWriter, r *http.Request, errs chan<- error) {
	startTime := time.Now()

	securityHeaders(cfg, w)

	if cfg.staticDir != "" {
		if name, ok := staticFile(cfg, r.URL.Path); ok {
			http.ServeFile(w, r, name)

			return
		}

		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFile(w, r, filepath.Join(cfg.staticDir, "index.html"))

		return
	}

	data, err := renderIndex(cfg)
	if err != nil {
		errs <- err

		http.Error(w, "Internal Server Error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-cache")

	written, err := w.Write(data)
	if err != nil {
		errs <- err

		return
	}

	logf(cfg, "SERVE: Client page %s (%s) to %s in %s",
		r.URL.Path,
		humanReadableSize(int64(written)),
		realIP(r),
		time.Since(startTime).Round(time.Microsecond),
	)
}

func serveIndex(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeIndex(cfg, w, r, errs)
	}
}

// serveFallback hands unmatched page loads to the client so it can route
// them itself. API paths and non-GET requests get a plain 404.
func serveFallback(cfg *Config, errs chan<- error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if (r.Method != http.MethodGet && r.Method != http.MethodHead) ||
			strings.HasPrefix(r.URL.Path, cfg.prefix+"/games/") {
			securityHeaders(cfg, w)
			http.NotFound(w, r)

			return
		}

		writeIndex(cfg, w, r, errs)
	}
}

func serveHealthCheck(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)

		_, err := w.Write([]byte("Ok\n"))
		if err != nil {
			errs <- err

			return
		}
	}
}

func serveAssets(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		fname := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, cfg.prefix), "/")

		if fname == "assets/index.html" {
			writeIndex(cfg, w, r, errs)

			return
		}

		data, err := assets.ReadFile(fname)
		if err != nil {
			securityHeaders(cfg, w)
			http.NotFound(w, r)

			return
		}

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		ext := strings.ToLower(filepath.Ext(fname))
		switch ext {
		case ".css":
			w.Header().Set("Content-Type", "text/css; charset=utf-8")
		case ".js":
			w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
		}

		_, err = w.Write(data)
		if err != nil {
			errs <- err

			return
		}
	}
}

func serveRobots(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		data := `User-agent: *
Disallow: /games/
Disallow: /room/
`

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		_, err := w.Write([]byte(data))
		if err != nil {
			errs <- err

			return
		}
	}
}
