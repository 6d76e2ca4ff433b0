// Package markup enforces the tag contract for generated post text.
//
// Telegram HTML captions accept only a narrow markup subset; generated
// text is allowed exactly two emphasis tags, <b> and <i>. IsOnlyAllowedTags
// checks the contract, CleanForTelegram is the guaranteed terminal
// fallback that makes any text contract-safe. Both are pure, and
// CleanForTelegram is idempotent.
package markup

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// allowedTags is the full emphasis allow-list, matched case-insensitively.
var allowedTags = map[string]struct{}{
	"b": {},
	"i": {},
}

var (
	// tagNameRe extracts every tag name, open or close, with a permissive scan.
	tagNameRe = regexp.MustCompile(`<\s*/?\s*([a-zA-Z0-9]+)[^>]*>`)
	// lineBreakRe matches <br>, <br/> and spaced variants.
	lineBreakRe = regexp.MustCompile(`(?i)<\s*br\s*/?\s*>`)
	// spaceAfterNewlineRe and spaceBeforeNewlineRe collapse whitespace runs
	// adjacent to newlines left behind by tag stripping.
	spaceAfterNewlineRe  = regexp.MustCompile(`\n\s+`)
	spaceBeforeNewlineRe = regexp.MustCompile(`\s+\n`)
)

// stripPolicy removes every element except the allow-listed emphasis tags,
// keeping their text content.
var stripPolicy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("b", "i")
	return p
}()

// IsOnlyAllowedTags reports whether every tag name found in text belongs to
// the allow-list. Text without any tags passes.
func IsOnlyAllowedTags(text string) bool {
	for _, m := range tagNameRe.FindAllStringSubmatch(text, -1) {
		if _, ok := allowedTags[strings.ToLower(m[1])]; !ok {
			return false
		}
	}
	return true
}

// CleanForTelegram makes text safe for a Telegram HTML caption: explicit
// line-break markup becomes literal newlines, every tag outside the
// allow-list is stripped (content kept), and whitespace runs around
// newlines collapse. Applying it to its own output yields the same output.
func CleanForTelegram(text string) string {
	if text == "" {
		return ""
	}

	text = lineBreakRe.ReplaceAllString(text, "\n")
	text = stripPolicy.Sanitize(text)
	text = spaceAfterNewlineRe.ReplaceAllString(text, "\n")
	text = spaceBeforeNewlineRe.ReplaceAllString(text, "\n")

	return text
}
