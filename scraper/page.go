// Package scraper owns the single page session a run navigates with: a real
// browser tab driven by go-rod, or a static DOM fetched over HTTP.
package scraper

import (
	"context"
	"errors"
	"fmt"

	"github.com/use-agent/pdpscrape/config"
	"github.com/use-agent/pdpscrape/models"
)

var (
	// ErrLoadTimeout is returned by Navigate when the page did not finish
	// loading before the context deadline.
	ErrLoadTimeout = errors.New("page load timed out")

	// ErrNotFound is returned when no element matches a selector.
	ErrNotFound = errors.New("element not found")

	// ErrNotInteractive is returned by Click on sessions without a script runtime.
	ErrNotInteractive = errors.New("element cannot be activated on a static page")
)

// Page is the navigation handle shared by every row of a run.
// Implementations are not safe for concurrent use.
type Page interface {
	// Navigate loads url and returns once the document is parsed. A load
	// that outlives ctx fails with an error wrapping ErrLoadTimeout.
	Navigate(ctx context.Context, url string) error

	// StopLoading cancels an in-flight load.
	StopLoading() error

	// ScrollHeight returns the total scrollable height of the document.
	ScrollHeight() (int, error)

	// ScrollTo scrolls the viewport to vertical offset y.
	ScrollTo(y int) error

	// WaitElement polls for the first element matching selector until ctx is done.
	WaitElement(ctx context.Context, selector string) (Element, error)

	// Element looks up the first element matching selector without waiting.
	Element(selector string) (Element, error)

	// Elements returns every element matching selector in document order
	// without waiting. No match is not an error.
	Elements(selector string) ([]Element, error)

	// Close releases the session.
	Close() error
}

// Element is a handle to one element of the current document.
type Element interface {
	Text() (string, error)
	// HTML returns the element's inner HTML.
	HTML() (string, error)
	// Attribute returns the resolved property (absolute URLs for src/href)
	// or the raw attribute; empty when absent.
	Attribute(name string) (string, error)
	// Click activates the element the way a script-triggered click does.
	Click() error
}

// Open creates the session selected by cfg.Engine. Any failure is a
// SESSION_INIT_FAILED error.
func Open(cfg config.BrowserConfig) (Page, error) {
	switch cfg.Engine {
	case config.EngineBrowser:
		return Launch(cfg)
	case config.EngineHTTP:
		return NewStaticPage(NewHTTPFetcher(cfg)), nil
	default:
		return nil, models.NewSessionInitFailure(
			fmt.Sprintf("unknown engine %q", cfg.Engine), nil)
	}
}
