// Package sanitize strips markup from user text before it is stored.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strict = bluemonday.StrictPolicy()
	ugc    = bluemonday.UGCPolicy()
)

// maxPasses bounds how many layers of entity encoding Plain peels off.
const maxPasses = 8

// Plain removes all HTML and returns trimmed text. The value is stored as
// text, so entities are unescaped; stripping repeats until unescaping
// reveals no further markup, otherwise "&lt;img onerror=...&gt;" would come
// back as a live tag.
func Plain(s string) string {
	out := s
	for i := 0; i < maxPasses; i++ {
		next := html.UnescapeString(strict.Sanitize(out))
		if next == out {
			return strings.TrimSpace(out)
		}
		out = next
	}
	// Still changing after maxPasses: keep the escaped form.
	return strings.TrimSpace(strict.Sanitize(out))
}

// Rich keeps safe formatting markup (links, emphasis, lists, tables) and
// drops scripts, handlers and unsafe URLs.
func Rich(s string) string {
	return strings.TrimSpace(ugc.Sanitize(s))
}
