// internal/app/system/htmlsanitize/htmlsanitize.go

// Package htmlsanitize wraps bluemonday policies for the two kinds of
// user-supplied text the app stores: rich note/description text (Sanitize)
// and plain scalar fields like names and reasons (PlainText).
package htmlsanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	rich   *bluemonday.Policy
	strict *bluemonday.Policy
)

func init() {
	rich = bluemonday.UGCPolicy()
	rich.AllowElements("u", "s", "sub", "sup", "mark")
	rich.AllowAttrs("class").OnElements("table", "thead", "tbody", "tr", "th", "td")
	rich.AllowAttrs("colspan", "rowspan").OnElements("th", "td")

	strict = bluemonday.StrictPolicy()
}

// Sanitize cleans rich text (event details, guest-request notes), keeping
// safe formatting and dropping scripts, event handlers, and javascript:
// URLs.
func Sanitize(s string) string {
	return rich.Sanitize(s)
}

// PlainText strips all markup from a scalar field (guest names, cancel and
// reject reasons) and trims the result.
func PlainText(s string) string {
	return strings.TrimSpace(strict.Sanitize(s))
}
