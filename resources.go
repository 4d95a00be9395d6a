package main

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ResourceList keeps a talk's resources unique by URL. Slides and video live
// in fixed head slots; everything else keeps discovery order.
type ResourceList struct {
	slides *Resource
	video  *Resource
	others []Resource
	seen   map[string]struct{}
}

// NewResourceList creates an empty list
func NewResourceList() *ResourceList {
	return &ResourceList{seen: make(map[string]struct{})}
}

// Contains reports whether a resource with exactly this URL exists
func (l *ResourceList) Contains(rawURL string) bool {
	_, ok := l.seen[rawURL]
	return ok
}

// Add appends r to the non-head resources. Duplicate URLs are skipped.
func (l *ResourceList) Add(r Resource) bool {
	if l.Contains(r.URL) {
		return false
	}
	l.seen[r.URL] = struct{}{}
	l.others = append(l.others, r)
	return true
}

// SetSlides places r in the slides head slot unless its URL is already known
// or the slot is taken.
func (l *ResourceList) SetSlides(r Resource) bool {
	if l.slides != nil || l.Contains(r.URL) {
		return false
	}
	r.Type = ResourceSlides
	l.seen[r.URL] = struct{}{}
	l.slides = &r
	return true
}

// SetVideo places r in the video head slot unless its URL is already known
// or the slot is taken.
func (l *ResourceList) SetVideo(r Resource) bool {
	if l.video != nil || l.Contains(r.URL) {
		return false
	}
	r.Type = ResourceVideo
	l.seen[r.URL] = struct{}{}
	l.video = &r
	return true
}

// PromoteHeads moves the first slides and video resources found among the
// other resources into empty head slots. Only links to a single YouTube
// video qualify for the video slot; playlists and channels do not.
func (l *ResourceList) PromoteHeads() {
	kept := l.others[:0:0]
	for _, r := range l.others {
		switch {
		case r.Type == ResourceSlides && l.slides == nil:
			promoted := r
			l.slides = &promoted
		case r.Type == ResourceVideo && l.video == nil && isYouTubeVideo(r.URL):
			promoted := r
			l.video = &promoted
		default:
			kept = append(kept, r)
		}
	}
	l.others = kept
}

func isYouTubeVideo(rawURL string) bool {
	_, err := ExtractYouTubeID(rawURL)
	return err == nil
}

// Slides returns the head slides resource, if any
func (l *ResourceList) Slides() (Resource, bool) {
	if l.slides == nil {
		return Resource{}, false
	}
	return *l.slides, true
}

// Video returns the head video resource, if any
func (l *ResourceList) Video() (Resource, bool) {
	if l.video == nil {
		return Resource{}, false
	}
	return *l.video, true
}

// Items returns [slides?, video?, others...]
func (l *ResourceList) Items() []Resource {
	items := make([]Resource, 0, l.Len())
	if l.slides != nil {
		items = append(items, *l.slides)
	}
	if l.video != nil {
		items = append(items, *l.video)
	}
	return append(items, l.others...)
}

// Others returns every resource that is neither slides nor video, in
// discovery order. These make up the artifact's resources section.
func (l *ResourceList) Others() []Resource {
	out := make([]Resource, 0, len(l.others))
	for _, r := range l.others {
		if r.Type == ResourceSlides || r.Type == ResourceVideo {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Len returns the total number of resources
func (l *ResourceList) Len() int {
	n := len(l.others)
	if l.slides != nil {
		n++
	}
	if l.video != nil {
		n++
	}
	return n
}

const minResourceTitleLength = 3

var resourceRegionSelector = `#resources, .resources, [data-section="resources"]`

// ResourceSectionExtractor pulls the curated resource list out of a talk
// page's resources region. Links anywhere else on the page are ignored.
type ResourceSectionExtractor struct {
	logger *slog.Logger
}

// NewResourceSectionExtractor creates an extractor
func NewResourceSectionExtractor(logger *slog.Logger) *ResourceSectionExtractor {
	return &ResourceSectionExtractor{logger: logger}
}

// Extract adds every acceptable link of the resources region to list and
// returns how many were added.
func (e *ResourceSectionExtractor) Extract(doc *goquery.Document, list *ResourceList) int {
	region := findResourceRegion(doc)
	if region == nil || region.Length() == 0 {
		e.logger.Debug("no resources region found")
		return 0
	}

	added := 0
	regionLinks(region).Each(func(_ int, a *goquery.Selection) {
		r, reason, ok := resourceFromAnchor(a)
		if !ok {
			e.logger.Debug("skipping resource link", "reason", reason)
			return
		}
		if !list.Add(r) {
			e.logger.Debug("skipping duplicate resource", "url", r.URL)
			return
		}
		added++
	})
	return added
}

// regionLinks returns the anchors of region in document order, including
// region members that are anchors themselves
func regionLinks(region *goquery.Selection) *goquery.Selection {
	links := region.Slice(0, 0)
	region.Each(func(_ int, s *goquery.Selection) {
		links = links.AddSelection(s.Filter("a[href]")).AddSelection(s.Find("a[href]"))
	})
	return links
}

// findResourceRegion returns the explicit resources container, or the
// siblings that follow a "Resources" heading.
func findResourceRegion(doc *goquery.Document) *goquery.Selection {
	if region := doc.Find(resourceRegionSelector); region.Length() > 0 {
		return region
	}

	var heading *goquery.Selection
	doc.Find("h2, h3").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if strings.EqualFold(collapseSpace(h.Text()), "resources") {
			heading = h
			return false
		}
		return true
	})
	if heading == nil {
		return nil
	}

	stop := "h1, h2"
	if goquery.NodeName(heading) == "h3" {
		stop = "h1, h2, h3"
	}
	return heading.NextUntil(stop)
}

func resourceFromAnchor(a *goquery.Selection) (Resource, string, bool) {
	href, _ := a.Attr("href")
	title := collapseSpace(a.Text())

	if href != strings.TrimSpace(href) {
		return Resource{}, "href has surrounding whitespace", false
	}
	if href == "" || strings.HasPrefix(href, "#") {
		return Resource{}, "fragment link", false
	}
	if strings.HasPrefix(href, "/") {
		return Resource{}, "site-relative link", false
	}
	parsed, err := url.Parse(href)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return Resource{}, "relative or malformed link", false
	}
	if len([]rune(title)) < minResourceTitleLength {
		return Resource{}, "title too short", false
	}

	description := ""
	if li := a.Closest("li"); li.Length() > 0 {
		description = collapseSpace(strings.Replace(li.Text(), a.Text(), "", 1))
		description = strings.TrimLeft(description, "-–—: ")
	}

	return Resource{
		Type:        ClassifyResource(href),
		Title:       title,
		URL:         href,
		Description: description,
	}, "", true
}

// collapseSpace trims s and folds internal whitespace runs into one space
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
