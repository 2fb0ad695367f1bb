package cleaner

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// noiseSelectors are removed from product HTML before conversion.
var noiseSelectors = []string{"script", "style", "noscript", "svg", "button", "template"}

// StripElements removes every element matching one of selectors from an
// HTML fragment and returns the remaining fragment. Input that cannot be
// parsed is returned unchanged.
func StripElements(fragment string, selectors []string) string {
	if fragment == "" || len(selectors) == 0 {
		return fragment
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	for _, selector := range selectors {
		doc.Find(selector).Remove()
	}

	// The parser wraps fragments in html/body; hand back only the body.
	result, err := doc.Find("body").Html()
	if err != nil {
		return fragment
	}
	return strings.TrimSpace(result)
}
