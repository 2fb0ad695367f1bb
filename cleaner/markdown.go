// Package cleaner renders extracted product HTML as Markdown.
package cleaner

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// Converter turns HTML fragments into Markdown. It is safe for concurrent
// use and meant to be created once.
type Converter struct {
	conv *converter.Converter
}

// NewConverter builds a converter with CommonMark rendering and compact
// tables (specification blocks are often tables).
func NewConverter() *Converter {
	return &Converter{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(
					table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
				),
			),
		),
	}
}

// ToMarkdown converts an HTML fragment taken from pageURL. Relative links
// and images resolve against the page's origin. Conversion failures yield
// an empty string.
func (c *Converter) ToMarkdown(fragment, pageURL string) string {
	fragment = StripElements(fragment, noiseSelectors)
	if strings.TrimSpace(fragment) == "" {
		return ""
	}

	md, err := c.conv.ConvertString(fragment, converter.WithDomain(origin(pageURL)))
	if err != nil {
		slog.Debug("markdown conversion failed", "url", pageURL, "error", err)
		return ""
	}
	return strings.TrimSpace(md)
}

func origin(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
