package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// textPatternPrefix marks captcha entries that match against the rendered
// page text instead of the DOM, e.g. "text=/unusual traffic/i".
const textPatternPrefix = "text="

// looksLikeCaptcha reports whether any entry of the captcha selector set
// matches the page. It is a presence check only: the guardrail never
// attempts to solve or bypass a challenge. Malformed selectors and patterns
// are treated as no-match.
func looksLikeCaptcha(doc *goquery.Document, selectors []string) bool {
	var bodyText string
	for _, sel := range selectors {
		if pattern, ok := strings.CutPrefix(sel, textPatternPrefix); ok {
			if bodyText == "" {
				bodyText = doc.Text()
			}
			if matchTextPattern(bodyText, pattern) {
				return true
			}
			continue
		}
		if findSafe(doc.Selection, sel).Length() > 0 {
			return true
		}
	}
	return false
}

// matchTextPattern evaluates a "/regex/flags" pattern against the page text.
// Only the "i" flag is recognized; anything uncompilable is a no-match.
func matchTextPattern(text, pattern string) bool {
	expr := pattern
	if body, flags, ok := cutDelimited(pattern); ok {
		expr = body
		if strings.Contains(flags, "i") {
			expr = "(?i)" + expr
		}
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return false
	}
	return re.MatchString(text)
}

func cutDelimited(pattern string) (body, flags string, ok bool) {
	if len(pattern) < 2 || pattern[0] != '/' {
		return "", "", false
	}
	end := strings.LastIndexByte(pattern, '/')
	if end == 0 {
		return "", "", false
	}
	return pattern[1:end], pattern[end+1:], true
}
