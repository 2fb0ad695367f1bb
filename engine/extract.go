package engine

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/use-agent/pdpscrape/locator"
	"github.com/use-agent/pdpscrape/models"
	"github.com/use-agent/pdpscrape/scraper"
)

// readFunc pulls one property out of an element.
type readFunc func(scraper.Element) (string, error)

func readText(el scraper.Element) (string, error) { return el.Text() }

func readHTML(el scraper.Element) (string, error) { return el.HTML() }

func readAttr(name string) readFunc {
	return func(el scraper.Element) (string, error) { return el.Attribute(name) }
}

// Extractor resolves fields against the current page. It never returns an
// error: a field whose locators all miss is the empty string or an empty
// slice.
type Extractor struct {
	timeout time.Duration
	options
}

// NewExtractor returns an extractor whose explicit waits last timeout per
// locator unless the field overrides it.
func NewExtractor(timeout time.Duration, opts ...Option) *Extractor {
	return &Extractor{timeout: timeout, options: buildOptions(opts)}
}

// Text returns the trimmed text of the first locator that yields a
// non-empty value.
func (e *Extractor) Text(ctx context.Context, page scraper.Page, f locator.Field) string {
	_, v, _ := e.first(ctx, page, f, readText)
	return v
}

// HTML returns the inner HTML of the first locator that yields a non-empty value.
func (e *Extractor) HTML(ctx context.Context, page scraper.Page, f locator.Field) string {
	_, v, _ := e.first(ctx, page, f, readHTML)
	return v
}

// TextAndHTML reads text and inner HTML for one field. Both come from the
// same element when it carries markup; otherwise the HTML runs its own pass
// over the locators, so a block holding only media still yields its HTML.
func (e *Extractor) TextAndHTML(ctx context.Context, page scraper.Page, f locator.Field) (text, html string) {
	el, text, ok := e.find(ctx, page, f, readText)
	if ok {
		if h, err := el.HTML(); err == nil && strings.TrimSpace(h) != "" {
			return text, strings.TrimSpace(h)
		}
	}
	_, html, hok := e.find(ctx, page, f, readHTML)
	if !ok && !hok {
		e.miss(f)
	}
	return text, html
}

// Attr returns the named attribute of the first matching element.
func (e *Extractor) Attr(ctx context.Context, page scraper.Page, f locator.Field, name string) string {
	_, v, _ := e.first(ctx, page, f, readAttr(name))
	return v
}

// first tries each selector in order: an explicit wait bounded by the field
// timeout, then an immediate lookup for elements that appeared between the
// last poll and the deadline. An element whose value is empty does not
// count as a match.
func (e *Extractor) first(ctx context.Context, page scraper.Page, f locator.Field, read readFunc) (scraper.Element, string, bool) {
	el, v, ok := e.find(ctx, page, f, read)
	if !ok {
		e.miss(f)
	}
	return el, v, ok
}

func (e *Extractor) find(ctx context.Context, page scraper.Page, f locator.Field, read readFunc) (scraper.Element, string, bool) {
	timeout := f.TimeoutOr(e.timeout)
	for _, sel := range f.Selectors {
		if ctx.Err() != nil {
			break
		}
		el, err := e.wait(ctx, page, sel, timeout)
		if err != nil {
			el, err = page.Element(sel)
		}
		if err != nil {
			continue
		}
		v, err := read(el)
		if err != nil {
			continue
		}
		if v = strings.TrimSpace(v); v != "" {
			return el, v, true
		}
	}
	return nil, "", false
}

func (e *Extractor) wait(ctx context.Context, page scraper.Page, sel string, timeout time.Duration) (scraper.Element, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return page.WaitElement(waitCtx, sel)
}

// All collects the attribute f.Attr of every element matched by the first
// selector that yields at least one non-empty value, in document order.
// Elements with an empty attribute are dropped.
func (e *Extractor) All(page scraper.Page, f locator.Field) []string {
	out := []string{}
	e.each(page, f, func(el scraper.Element) bool {
		v, err := el.Attribute(f.Attr)
		if err != nil || strings.TrimSpace(v) == "" {
			return false
		}
		out = append(out, strings.TrimSpace(v))
		return true
	})
	return out
}

// Links collects text and href pairs, dropping links without an href.
func (e *Extractor) Links(page scraper.Page, f locator.Field) []models.SupportDoc {
	out := []models.SupportDoc{}
	e.each(page, f, func(el scraper.Element) bool {
		href, err := el.Attribute("href")
		if err != nil || strings.TrimSpace(href) == "" {
			return false
		}
		text, _ := el.Text()
		out = append(out, models.SupportDoc{Text: strings.TrimSpace(text), Href: strings.TrimSpace(href)})
		return true
	})
	return out
}

// each feeds the elements of one selector to keep, moving on to the next
// selector only when keep accepted none of them.
func (e *Extractor) each(page scraper.Page, f locator.Field, keep func(scraper.Element) bool) {
	for _, sel := range f.Selectors {
		els, err := page.Elements(sel)
		if err != nil {
			slog.Debug("element lookup failed", "field", f.Name, "selector", sel, "error", err)
			continue
		}
		kept := 0
		for _, el := range els {
			if keep(el) {
				kept++
			}
		}
		if kept > 0 {
			return
		}
	}
	e.miss(f)
}

func (e *Extractor) miss(f locator.Field) {
	slog.Debug("field not found", "field", f.Name)
	e.metrics.IncMiss(f.Name)
}
