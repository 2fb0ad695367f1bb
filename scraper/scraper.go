package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/pdpscrape/config"
	"github.com/use-agent/pdpscrape/models"
	"github.com/ysmood/gson"
)

// BrowserPage is a single Chromium tab driven over CDP.
type BrowserPage struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	router   *rod.HijackRouter

	// callTimeout bounds every CDP call outside Navigate and WaitElement.
	callTimeout time.Duration
}

// Launch starts Chromium, opens one tab and prepares it for scraping:
// stealth script, extra headers and the resource hijack router are all
// installed before the first navigation.
func Launch(cfg config.BrowserConfig) (*BrowserPage, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.DefaultProxy != "" {
		l = l.Proxy(cfg.DefaultProxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "TranslateUI")
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("no-first-run"))
	l.Set(flags.Flag("start-maximized"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewSessionInitFailure("failed to launch browser", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, models.NewSessionInitFailure("failed to connect to browser", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		l.Cleanup()
		return nil, models.NewSessionInitFailure("failed to open page", err)
	}

	if cfg.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}

	if len(cfg.ExtraHeaders) > 0 {
		if hdrErr := (proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(cfg.ExtraHeaders),
		}).Call(page); hdrErr != nil {
			slog.Warn("extra headers not applied", "error", hdrErr)
		}
	}

	return &BrowserPage{
		launcher: l,
		browser:  browser,
		page:     page,
		router:   setupHijack(page, cfg.BlockedResourceTypes, cfg.BlockTrackers),

		callTimeout: cfg.CallTimeout,
	}, nil
}

// Navigate loads url and waits for DOMContentLoaded, the same point an
// "eager" WebDriver page-load strategy returns at.
func (b *BrowserPage) Navigate(ctx context.Context, url string) error {
	p := b.page.Context(ctx)

	// The lifecycle listener must exist before Navigate or the event is missed.
	wait := p.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := p.Navigate(url); err != nil {
		return classifyLoadError(ctx, err)
	}
	wait()
	if err := ctx.Err(); err != nil {
		return classifyLoadError(ctx, err)
	}
	return nil
}

// StopLoading is the CDP equivalent of window.stop().
func (b *BrowserPage) StopLoading() error {
	p := b.bounded()
	defer p.CancelTimeout()
	return proto.PageStopLoading{}.Call(p)
}

func (b *BrowserPage) ScrollHeight() (int, error) {
	p := b.bounded()
	defer p.CancelTimeout()
	res, err := p.Eval(`() => document.body ? document.body.scrollHeight : 0`)
	if err != nil {
		return 0, err
	}
	return res.Value.Int(), nil
}

func (b *BrowserPage) ScrollTo(y int) error {
	p := b.bounded()
	defer p.CancelTimeout()
	_, err := p.Eval(`(y) => window.scrollTo(0, y)`, y)
	return err
}

func (b *BrowserPage) WaitElement(ctx context.Context, selector string) (Element, error) {
	el, err := b.page.Context(ctx).Element(selector)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, selector)
		}
		return nil, err
	}
	return b.wrap(el), nil
}

func (b *BrowserPage) Element(selector string) (Element, error) {
	p := b.bounded()
	defer p.CancelTimeout()
	els, err := p.Elements(selector)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, selector)
	}
	return b.wrap(els.First()), nil
}

func (b *BrowserPage) Elements(selector string) ([]Element, error) {
	p := b.bounded()
	defer p.CancelTimeout()
	els, err := p.Elements(selector)
	if err != nil {
		return nil, err
	}
	out := make([]Element, len(els))
	for i, el := range els {
		out[i] = b.wrap(el)
	}
	return out, nil
}

// bounded returns the page under a fresh call deadline. Callers must
// CancelTimeout it.
func (b *BrowserPage) bounded() *rod.Page {
	return b.page.Timeout(b.callTimeout)
}

// wrap detaches el from the lookup deadline; its own reads get a new one.
func (b *BrowserPage) wrap(el *rod.Element) *browserElement {
	return &browserElement{el: el.Context(b.page.GetContext()), callTimeout: b.callTimeout}
}

// Close stops the hijack router and kills the browser process.
// Call this on every exit path to prevent zombie Chrome processes.
func (b *BrowserPage) Close() error {
	var errs []error
	if b.router != nil {
		if err := b.router.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop hijack router: %w", err))
		}
	}
	if err := b.browser.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close browser: %w", err))
	}
	b.launcher.Cleanup()
	slog.Info("browser session closed")
	return errors.Join(errs...)
}

type browserElement struct {
	el          *rod.Element
	callTimeout time.Duration
}

func (e *browserElement) bounded() *rod.Element {
	return e.el.Timeout(e.callTimeout)
}

func (e *browserElement) Text() (string, error) {
	el := e.bounded()
	defer el.CancelTimeout()
	return el.Text()
}

func (e *browserElement) HTML() (string, error) {
	el := e.bounded()
	defer el.CancelTimeout()
	res, err := el.Eval(`() => this.innerHTML`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (e *browserElement) Attribute(name string) (string, error) {
	el := e.bounded()
	defer el.CancelTimeout()
	// Properties carry the resolved value (absolute src/href); fall back to
	// the raw attribute for names that are not reflected as properties.
	if prop, err := el.Property(name); err == nil && !prop.Nil() {
		if s, ok := prop.Val().(string); ok && s != "" {
			return s, nil
		}
	}
	attr, err := el.Attribute(name)
	if err != nil {
		return "", err
	}
	if attr == nil {
		return "", nil
	}
	return *attr, nil
}

func (e *browserElement) Click() error {
	el := e.bounded()
	defer el.CancelTimeout()
	_, err := el.Eval(`() => this.click()`)
	return err
}

// classifyLoadError maps a load that ran out of time to ErrLoadTimeout and
// passes every other failure through.
func classifyLoadError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrLoadTimeout, err)
	}
	if strings.Contains(err.Error(), "ERR_TIMED_OUT") {
		return fmt.Errorf("%w: %v", ErrLoadTimeout, err)
	}
	return err
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
