package processor

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// blockMarkerPattern matches the block-editor comment markers the
	// source CMS embeds around every paragraph.
	blockMarkerPattern = regexp.MustCompile(`<!--\s*/?wp:[^>]*?-->`)

	moreMarkerPattern = regexp.MustCompile(`<!--\s*more\s*-->`)

	sanitizePolicy = bluemonday.UGCPolicy()
)

// moreSentinel stands in for the "more" comment marker across sanitization,
// which strips HTML comments; the intro split happens afterwards.
const moreSentinel = "@@system-readmore@@"

// prepareBody cleans an article body for the target store: block-editor
// markers removed, markup reduced to the permitted tag allow-list, then
// split at the "more" marker into the teaser and the remainder. Without a
// marker the whole body becomes the teaser.
func prepareBody(body string) (intro, full string) {
	body = blockMarkerPattern.ReplaceAllString(body, "")
	body = moreMarkerPattern.ReplaceAllString(body, moreSentinel)
	body = sanitizePolicy.Sanitize(body)

	if idx := strings.Index(body, moreSentinel); idx >= 0 {
		intro = strings.TrimSpace(body[:idx])
		full = strings.TrimSpace(body[idx+len(moreSentinel):])
		return intro, full
	}
	return strings.TrimSpace(body), ""
}
