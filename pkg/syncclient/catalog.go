package syncclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// VideoInfo mirrors one entry of the server's /api/videos catalog.
type VideoInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	RelPath     string `json:"relPath"`
	URL         string `json:"url"`
	CaptionsURL string `json:"captionsUrl,omitempty"`
}

// Catalog resolves the bare videoRef values received over sync into full
// video descriptors from the server's listing.
type Catalog struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

// Fetch retrieves the video listing.
func (c *Catalog) Fetch(ctx context.Context) ([]VideoInfo, error) {
	httpClient := c.Client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.BaseURL, "/")+"/api/videos", nil)
	if err != nil {
		return nil, err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch videos: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch videos: status %d", resp.StatusCode)
	}

	var videos []VideoInfo
	if err := json.NewDecoder(resp.Body).Decode(&videos); err != nil {
		return nil, fmt.Errorf("fetch videos: %w", err)
	}
	return videos, nil
}

// StreamURL turns a catalog URL (a /media/... path) into an absolute
// streaming URL, carrying the token as a query parameter when configured
// because media elements cannot set request headers.
func (c *Catalog) StreamURL(mediaPath string) string {
	full := strings.TrimRight(c.BaseURL, "/") + mediaPath
	if c.Token != "" {
		sep := "?"
		if strings.Contains(full, "?") {
			sep = "&"
		}
		full += sep + "token=" + url.QueryEscape(c.Token)
	}
	return full
}

// FindByBroadcastURL looks up the catalog entry matching a videoUrl
// received over sync. The ref is a /media/<escaped relPath> value; entries
// are matched on the decoded relative path.
func FindByBroadcastURL(videos []VideoInfo, videoURL string) (VideoInfo, bool) {
	relPath, ok := relPathFromMediaURL(videoURL)
	if !ok {
		return VideoInfo{}, false
	}
	for _, v := range videos {
		if v.RelPath == relPath {
			return v, true
		}
	}
	return VideoInfo{}, false
}

func relPathFromMediaURL(videoURL string) (string, bool) {
	const prefix = "/media/"
	if !strings.HasPrefix(videoURL, prefix) {
		return "", false
	}
	escaped := strings.TrimPrefix(videoURL, prefix)
	if i := strings.IndexByte(escaped, '?'); i >= 0 {
		escaped = escaped[:i]
	}
	relPath, err := url.PathUnescape(escaped)
	if err != nil {
		return "", false
	}
	return relPath, true
}
