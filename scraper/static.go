package scraper

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// StaticPage serves element lookups from a DOM parsed once per navigation.
// Nothing on it ever re-renders: waits resolve immediately, scrolling is a
// no-op and Click fails with ErrNotInteractive.
type StaticPage struct {
	fetcher *HTTPFetcher
	doc     *goquery.Document
	base    *url.URL
}

// NewStaticPage returns a page that navigates with fetcher. A nil fetcher
// gives a page that can only be filled with LoadHTML.
func NewStaticPage(fetcher *HTTPFetcher) *StaticPage {
	return &StaticPage{fetcher: fetcher}
}

func (p *StaticPage) Navigate(ctx context.Context, rawURL string) error {
	if p.fetcher == nil {
		return fmt.Errorf("static page has no fetcher")
	}
	fetched, err := p.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return err
	}
	return p.load(fetched.Body, fetched.FinalURL)
}

// LoadHTML replaces the current document with rawHTML served from pageURL.
func (p *StaticPage) LoadHTML(rawHTML, pageURL string) error {
	return p.load(strings.NewReader(rawHTML), pageURL)
}

func (p *StaticPage) load(r io.Reader, pageURL string) error {
	root, err := html.Parse(r)
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return fmt.Errorf("parse page url: %w", err)
	}
	p.doc = goquery.NewDocumentFromNode(root)
	p.base = base
	return nil
}

func (p *StaticPage) StopLoading() error { return nil }

func (p *StaticPage) ScrollHeight() (int, error) { return 0, nil }

func (p *StaticPage) ScrollTo(int) error { return nil }

func (p *StaticPage) WaitElement(ctx context.Context, selector string) (Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.Element(selector)
}

func (p *StaticPage) Element(selector string) (Element, error) {
	if p.doc == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, selector)
	}
	sel := p.doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, selector)
	}
	return &staticElement{sel: sel, base: p.base}, nil
}

func (p *StaticPage) Elements(selector string) ([]Element, error) {
	if p.doc == nil {
		return nil, nil
	}
	var out []Element
	p.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, &staticElement{sel: s, base: p.base})
	})
	return out, nil
}

func (p *StaticPage) Close() error {
	if p.fetcher != nil {
		p.fetcher.Close()
	}
	p.doc = nil
	return nil
}

type staticElement struct {
	sel  *goquery.Selection
	base *url.URL
}

// Text approximates innerText: whitespace runs collapse to one space.
func (e *staticElement) Text() (string, error) {
	return strings.Join(strings.Fields(e.sel.Text()), " "), nil
}

func (e *staticElement) HTML() (string, error) {
	return e.sel.Html()
}

// Attribute resolves src and href against the page URL, matching what a
// browser reports for the corresponding DOM properties.
func (e *staticElement) Attribute(name string) (string, error) {
	v, ok := e.sel.Attr(name)
	if !ok || v == "" {
		return "", nil
	}
	if (name == "src" || name == "href") && e.base != nil {
		if resolved, err := e.base.Parse(v); err == nil {
			return resolved.String(), nil
		}
	}
	return v, nil
}

func (e *staticElement) Click() error {
	return ErrNotInteractive
}
