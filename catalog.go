package main

import (
	"encoding/base64"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// VideoInfo is one entry of the media catalog served at /api/videos.
// ID is stable as long as the file keeps its path; URL is the byte-serving
// path clients put into loadVideo events, so it must stay valid for at
// least the lifetime of a room.
type VideoInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	RelPath     string `json:"relPath"`
	URL         string `json:"url"`
	CaptionsURL string `json:"captionsUrl,omitempty"`
}

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".webm": true,
	".mov":  true,
	".avi":  true,
	".m4v":  true,
}

// ScanMediaDir walks the media directory and returns every video file it
// finds, with a captions URL when a sibling .vtt exists. Results are sorted
// by relative path so the listing is stable across calls.
func ScanMediaDir(dir string) ([]VideoInfo, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, err
	}

	var videos []VideoInfo
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if !videoExtensions[ext] {
			return nil
		}

		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		info := VideoInfo{
			ID:      base64.StdEncoding.EncodeToString([]byte(relPath)),
			Name:    strings.TrimSuffix(d.Name(), filepath.Ext(d.Name())),
			RelPath: relPath,
			URL:     mediaURL(relPath),
		}

		captionsRel := strings.TrimSuffix(relPath, ext) + ".vtt"
		if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(captionsRel))); err == nil {
			info.CaptionsURL = mediaURL(captionsRel)
		}

		videos = append(videos, info)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(videos, func(i, j int) bool { return videos[i].RelPath < videos[j].RelPath })
	return videos, nil
}

// mediaURL builds the /media/ path for a relative file path. The whole
// path is escaped as one segment (slashes included), matching how clients
// decode videoRef values received over sync.
func mediaURL(relPath string) string {
	return "/media/" + url.PathEscape(relPath)
}
