package main

import (
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// handleMedia serves video and caption files with byte-range support, which
// http.ServeContent provides (206/416 handling included). The token may
// arrive as a query parameter because media elements cannot set headers.
func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	if s.auth.Enabled() && !s.auth.CheckToken(tokenFromRequest(r)) {
		http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
		return
	}

	relPath, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil {
		http.Error(w, `{"error":"bad path"}`, http.StatusBadRequest)
		return
	}

	fullPath, ok := s.resolveMediaPath(relPath)
	if !ok {
		http.Error(w, `{"error":"access denied"}`, http.StatusForbidden)
		return
	}

	f, err := os.Open(fullPath)
	if err != nil {
		http.Error(w, `{"error":"file not found"}`, http.StatusNotFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.Error(w, `{"error":"file not found"}`, http.StatusNotFound)
		return
	}

	s.log.Debug("serving media",
		zap.String("path", relPath),
		zap.String("range", r.Header.Get("Range")))
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// resolveMediaPath joins relPath onto the media directory and rejects any
// path that escapes it.
func (s *Server) resolveMediaPath(relPath string) (string, bool) {
	mediaDir, err := filepath.Abs(s.cfg.MediaDir)
	if err != nil {
		return "", false
	}
	full, err := filepath.Abs(filepath.Join(mediaDir, filepath.FromSlash(relPath)))
	if err != nil {
		return "", false
	}
	if full != mediaDir && !strings.HasPrefix(full, mediaDir+string(os.PathSeparator)) {
		return "", false
	}
	return full, true
}
