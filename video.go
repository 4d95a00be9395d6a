package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
)

var (
	// Watch, short-link, embed and live URLs. The id is always 11 characters
	// and must end there; anything after it (query, timestamps) is dropped.
	youtubeURLPattern = regexp.MustCompile(`(?:https?:)?//(?:www\.|m\.)?(?:youtube(?:-nocookie)?\.com/(?:watch\?(?:[^"'\s<>]*?&(?:amp;)?)?v=|embed/|live/|shorts/)|youtu\.be/)([A-Za-z0-9_-]{11})(?:[^A-Za-z0-9_-]|$)`)

	youtubeEmbedPattern = regexp.MustCompile(`youtube(?:-nocookie)?\.com/embed/([A-Za-z0-9_-]{11})(?:[^A-Za-z0-9_-]|$)`)

	// Path words that fit the id shape but name a playlist player.
	reservedYouTubeIDs = map[string]bool{"videoseries": true}

	// Third-party players referenced by an embed URL on a non-YouTube host.
	playerEmbedPattern = regexp.MustCompile(`https?://[A-Za-z0-9.-]+(?::\d+)?/(?:[A-Za-z0-9_-]+/)*embed/([A-Za-z0-9_-]+)`)

	genericVideoMarkers = []string{"<video", `class="video-embed"`, "player.vimeo.com"}
)

// ExtractYouTubeID returns the video id of a YouTube URL
func ExtractYouTubeID(videoURL string) (string, error) {
	parsedURL, err := url.Parse(videoURL)
	if err != nil {
		return "", err
	}

	host := strings.ToLower(parsedURL.Host)
	if !strings.Contains(host, "youtube.com") && !strings.Contains(host, "youtube-nocookie.com") && !strings.Contains(host, "youtu.be") {
		return "", fmt.Errorf("not a YouTube URL")
	}

	if id, ok := findYouTubeID(youtubeURLPattern, videoURL); ok {
		return id, nil
	}
	if id := parsedURL.Query().Get("v"); len(id) == 11 && !reservedYouTubeIDs[id] {
		return id, nil
	}
	return "", fmt.Errorf("no video ID found in URL")
}

// findYouTubeID returns the first id captured by pattern in s that is not a
// reserved path word
func findYouTubeID(pattern *regexp.Regexp, s string) (string, bool) {
	for _, m := range pattern.FindAllStringSubmatch(s, -1) {
		if !reservedYouTubeIDs[m[1]] {
			return m[1], true
		}
	}
	return "", false
}

// youtubeWatchURL returns the canonical watch URL for id
func youtubeWatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// VideoResolver locates the talk's video
type VideoResolver struct {
	fetcher *SourceFetcher
	logger  *slog.Logger
}

// NewVideoResolver creates a resolver
func NewVideoResolver(fetcher *SourceFetcher, logger *slog.Logger) *VideoResolver {
	return &VideoResolver{fetcher: fetcher, logger: logger}
}

// Resolve sets record.Status and, when a usable YouTube URL is found, the
// video head resource. Not finding a video is not an error.
func (v *VideoResolver) Resolve(ctx context.Context, page *Page, record *TalkRecord) {
	if id, ok := findYouTubeID(youtubeURLPattern, page.Raw); ok {
		v.useYouTube(record, id)
		return
	}

	if embedURL, ok := findPlayerEmbed(page.Raw); ok {
		// The marker is enough to know a video exists even if it cannot
		// be recovered below.
		record.Status = StatusCompleted
		id, err := v.resolveEmbed(ctx, embedURL)
		if err != nil {
			v.logger.Warn("embedded player did not yield a YouTube video", "embed", embedURL, "error", err)
			return
		}
		v.useYouTube(record, id)
		return
	}

	for _, marker := range genericVideoMarkers {
		if strings.Contains(page.Raw, marker) {
			v.logger.Debug("generic video marker found", "marker", marker)
			record.Status = StatusCompleted
			return
		}
	}

	record.Status = StatusVideoPending
}

func (v *VideoResolver) useYouTube(record *TalkRecord, id string) {
	record.Status = StatusCompleted
	watchURL := youtubeWatchURL(id)
	if !record.Resources.SetVideo(Resource{Type: ResourceVideo, Title: "Video", URL: watchURL}) {
		v.logger.Debug("video resource already present", "url", watchURL)
	}
}

// resolveEmbed fetches a third-party embed page once and looks for a
// YouTube embed inside it
func (v *VideoResolver) resolveEmbed(ctx context.Context, embedURL string) (string, error) {
	page, err := v.fetcher.Fetch(ctx, embedURL)
	if err != nil {
		return "", err
	}
	if id, ok := findYouTubeID(youtubeEmbedPattern, page.Raw); ok {
		return id, nil
	}
	if id, ok := findYouTubeID(youtubeURLPattern, page.Raw); ok {
		return id, nil
	}
	return "", fmt.Errorf("no YouTube id in %s", embedURL)
}

func findPlayerEmbed(raw string) (string, bool) {
	for _, m := range playerEmbedPattern.FindAllStringSubmatch(raw, -1) {
		host := strings.ToLower(hostOf(m[0]))
		if strings.Contains(host, "youtube") || strings.Contains(host, "youtu.be") {
			continue
		}
		return m[0], true
	}
	return "", false
}
