package main

import (
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
)

// ResourceSourceValidator enforces which hosts each resource type may come
// from. It stops at the first violation.
type ResourceSourceValidator struct {
	fileStoreHosts []string
	legacyHosts    []string
	logger         *slog.Logger
}

// NewResourceSourceValidator creates a validator from settings
func NewResourceSourceValidator(settings *Settings, logger *slog.Logger) *ResourceSourceValidator {
	return &ResourceSourceValidator{
		fileStoreHosts: settings.FileStoreHosts,
		legacyHosts:    settings.LegacyHosts,
		logger:         logger,
	}
}

// Validate checks resources in list order
func (v *ResourceSourceValidator) Validate(resources []Resource, errs *ErrorLog) error {
	for _, r := range resources {
		if !v.validate(r, errs) {
			return ErrValidation
		}
	}
	return nil
}

func (v *ResourceSourceValidator) validate(r Resource, errs *ErrorLog) bool {
	switch r.Type {
	case ResourceSlides:
		switch {
		case isLocalPath(r.URL):
			// Upload is required before this step, so this should not be
			// reachable through the pipeline.
			v.logger.Warn("slides still point at a local PDF and need uploading", "path", r.URL)
			return true
		case hostMatches(r.URL, v.legacyHosts):
			errs.Addf("slides %s are hosted on a legacy platform", r.URL)
			return false
		case hostMatches(r.URL, v.fileStoreHosts):
			return true
		default:
			errs.Addf("slides %s are not hosted on the file store", r.URL)
			return false
		}
	case ResourceVideo:
		if !hostMatches(r.URL, []string{"youtube.com", "youtu.be"}) {
			errs.Addf("video %s is not hosted on YouTube", r.URL)
			return false
		}
		return true
	default:
		if hostMatches(r.URL, v.legacyHosts) {
			v.logger.Info("resource links to a legacy platform", "title", r.Title, "url", r.URL)
		}
		return true
	}
}

// hostMatches reports whether rawURL's host equals or is a subdomain of one
// of hosts
func hostMatches(rawURL string, hosts []string) bool {
	host := hostOf(rawURL)
	if host == "" {
		return false
	}
	for _, h := range hosts {
		h = strings.ToLower(h)
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func isLocalPath(ref string) bool {
	if strings.HasPrefix(ref, "file://") {
		return true
	}
	parsed, err := url.Parse(ref)
	if err == nil && parsed.Scheme != "" && parsed.Host != "" {
		return false
	}
	return filepath.IsAbs(ref) || strings.HasSuffix(strings.ToLower(ref), ".pdf")
}
