package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/use-agent/pdpscrape/config"
	"github.com/use-agent/pdpscrape/scraper"
)

// fakePage is a scripted scraper.Page.
type fakePage struct {
	// navigate decides the outcome of each Navigate call; nil succeeds.
	navigate func(ctx context.Context, url string) error

	elements map[string][]scraper.Element
	// late selectors miss the explicit wait but are found immediately after.
	late map[string]bool

	height    int
	heightErr error
	scrollErr error
	navCalls  []string
	deadlines []bool
	stops     int
	scrolls   []int
	waits     []string
	closed    int
	closeErr  error
}

func newFakePage() *fakePage {
	return &fakePage{elements: map[string][]scraper.Element{}, late: map[string]bool{}}
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.navCalls = append(p.navCalls, url)
	_, ok := ctx.Deadline()
	p.deadlines = append(p.deadlines, ok)
	if p.navigate == nil {
		return nil
	}
	return p.navigate(ctx, url)
}

func (p *fakePage) StopLoading() error { p.stops++; return nil }

func (p *fakePage) ScrollHeight() (int, error) { return p.height, p.heightErr }

func (p *fakePage) ScrollTo(y int) error {
	if p.scrollErr != nil {
		return p.scrollErr
	}
	p.scrolls = append(p.scrolls, y)
	return nil
}

func (p *fakePage) WaitElement(ctx context.Context, sel string) (scraper.Element, error) {
	p.waits = append(p.waits, sel)
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("explicit wait without deadline")
	}
	if p.late[sel] {
		return nil, fmt.Errorf("%w: %s", scraper.ErrNotFound, sel)
	}
	return p.Element(sel)
}

func (p *fakePage) Element(sel string) (scraper.Element, error) {
	els := p.elements[sel]
	if len(els) == 0 {
		return nil, fmt.Errorf("%w: %s", scraper.ErrNotFound, sel)
	}
	return els[0], nil
}

func (p *fakePage) Elements(sel string) ([]scraper.Element, error) {
	return p.elements[sel], nil
}

func (p *fakePage) Close() error { p.closed++; return p.closeErr }

func (p *fakePage) add(sel string, els ...scraper.Element) { p.elements[sel] = append(p.elements[sel], els...) }

// fakeElement returns fixed values unless a func overrides them.
type fakeElement struct {
	text   string
	html   string
	attrs  map[string]string
	textFn func() (string, error)
	click  func() error
}

func (e *fakeElement) Text() (string, error) {
	if e.textFn != nil {
		return e.textFn()
	}
	return e.text, nil
}

func (e *fakeElement) HTML() (string, error) { return e.html, nil }

func (e *fakeElement) Attribute(name string) (string, error) { return e.attrs[name], nil }

func (e *fakeElement) Click() error {
	if e.click != nil {
		return e.click()
	}
	return nil
}

// sleepRecorder is a SleepFunc that never blocks.
type sleepRecorder struct {
	mu    sync.Mutex
	slept []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.slept = append(s.slept, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) durations() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.slept...)
}

func testOptions(rec *sleepRecorder) []Option {
	return []Option{
		WithSleep(rec.Sleep),
		WithRand(rand.New(rand.NewPCG(1, 2))),
	}
}

// testConfig mirrors production defaults with every pause collapsed to zero.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Browser: config.BrowserConfig{Engine: config.EngineHTTP},
		Navigation: config.NavigationConfig{
			PageLoadTimeout: 5 * time.Second,
			MaxRetries:      2,
			RetryBackoff:    1500 * time.Millisecond,
		},
		Scroll: config.ScrollConfig{StepMin: 200, StepMax: 400},
		Extraction: config.ExtractionConfig{
			FieldTimeout: 50 * time.Millisecond,
		},
		Output: config.OutputConfig{Dir: t.TempDir(), FailedFile: "failed_urls.xlsx", BatchSize: 20},
	}
}

func timeoutErr(context.Context, string) error {
	return fmt.Errorf("%w: net::ERR_TIMED_OUT", scraper.ErrLoadTimeout)
}
