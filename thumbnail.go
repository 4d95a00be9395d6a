package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	maxThumbnailRedirects = 5
	thumbnailIndexSize    = 512
	defaultThumbnailBase  = "https://drive.google.com/thumbnail"
)

var fileIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ThumbnailResolver fetches and caches file store thumbnails. A missing
// thumbnail is never an error for its callers.
type ThumbnailResolver struct {
	client   *http.Client
	baseURL  string
	cacheDir string
	index    *lru.Cache[string, string]
	logger   *slog.Logger
}

// NewThumbnailResolver creates a resolver caching into cacheDir
func NewThumbnailResolver(cacheDir string, timeout time.Duration, logger *slog.Logger) *ThumbnailResolver {
	// lru.New only errors on a non-positive size.
	index, _ := lru.New[string, string](thumbnailIndexSize)
	return &ThumbnailResolver{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		baseURL:  defaultThumbnailBase,
		cacheDir: cacheDir,
		index:    index,
		logger:   logger,
	}
}

// ThumbnailURL builds the fixed-size thumbnail URL for fileID
func (r *ThumbnailResolver) ThumbnailURL(fileID string) string {
	return fmt.Sprintf("%s?id=%s&sz=w640", r.baseURL, url.QueryEscape(fileID))
}

// Resolve returns the local path of fileID's thumbnail, downloading it on a
// cache miss. ok is false when no thumbnail is available.
func (r *ThumbnailResolver) Resolve(ctx context.Context, fileID string) (path string, ok bool) {
	if !fileIDPattern.MatchString(fileID) {
		return "", false
	}
	if cached, hit := r.index.Get(fileID); hit && fileExists(cached) {
		return cached, true
	}

	path = filepath.Join(r.cacheDir, fileID+".jpg")
	if fileExists(path) {
		r.index.Add(fileID, path)
		return path, true
	}

	body, ok := r.follow(ctx, r.ThumbnailURL(fileID))
	if !ok {
		return "", false
	}
	defer body.Close()

	if err := writeFileAtomic(path, body); err != nil {
		r.logger.Warn("failed to cache thumbnail", "file_id", fileID, "error", err)
		return "", false
	}
	r.index.Add(fileID, path)
	return path, true
}

// follow walks at most maxThumbnailRedirects redirects by hand and returns
// the body of the final 2xx response
func (r *ThumbnailResolver) follow(ctx context.Context, target string) (io.ReadCloser, bool) {
	for hop := 0; hop <= maxThumbnailRedirects; hop++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, false
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := r.client.Do(req)
		if err != nil {
			r.logger.Debug("thumbnail request failed", "url", target, "error", err)
			return nil, false
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode <= 299:
			return resp.Body, true
		case resp.StatusCode >= 300 && resp.StatusCode <= 399:
			location := resp.Header.Get("Location")
			resp.Body.Close()
			next := resolveReference(target, location)
			if location == "" || next == "" {
				return nil, false
			}
			target = next
		default:
			resp.Body.Close()
			r.logger.Debug("thumbnail not available", "url", target, "status", resp.StatusCode)
			return nil, false
		}
	}
	r.logger.Debug("thumbnail redirect budget exceeded", "limit", maxThumbnailRedirects)
	return nil, false
}

func writeFileAtomic(path string, src io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".thumb-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
