package main

import (
	"net/url"
	"strings"
)

// ClassifyResource assigns a resource type from the shape of a URL
func ClassifyResource(rawURL string) ResourceType {
	host, path := rawURL, ""
	if parsed, err := url.Parse(rawURL); err == nil && parsed.Host != "" {
		host = strings.ToLower(parsed.Host)
		path = parsed.Path
	}
	lowerPath := strings.ToLower(path)

	switch {
	case strings.Contains(host, "github.com"):
		return ResourceCode
	case strings.Contains(host, "docs.google.com") && strings.HasPrefix(lowerPath, "/presentation"):
		return ResourceSlides
	case strings.Contains(host, "drive.google.com") && strings.HasSuffix(lowerPath, ".pdf"):
		return ResourceSlides
	case strings.Contains(host, "youtube.com") || strings.Contains(host, "youtu.be"):
		return ResourceVideo
	default:
		return ResourceLink
	}
}
