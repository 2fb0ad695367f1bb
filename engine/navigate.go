package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/use-agent/pdpscrape/config"
	"github.com/use-agent/pdpscrape/models"
	"github.com/use-agent/pdpscrape/scraper"
)

// Navigator loads URLs into the shared page with bounded retries on timeout.
type Navigator struct {
	cfg      config.NavigationConfig
	scroller *Scroller
	options
}

func NewNavigator(cfg config.NavigationConfig, scroller *Scroller, opts ...Option) *Navigator {
	return &Navigator{cfg: cfg, scroller: scroller, options: buildOptions(opts)}
}

// Load makes up to MaxRetries+1 attempts. Each attempt gets its own
// PageLoadTimeout; a timed-out attempt is stopped and followed by a linear
// backoff of RetryBackoff*attempt before the next one. After a successful
// load the page is scrolled once.
//
// Exhausted retries yield NAVIGATION_TIMEOUT; any other navigation error is
// returned immediately as NAVIGATION_FAILED without retrying.
func (n *Navigator) Load(ctx context.Context, page scraper.Page, url string) error {
	attempts := n.cfg.MaxRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		n.metrics.IncNavAttempt()

		err := n.navigate(ctx, page, url)
		if err == nil {
			if n.scroller != nil {
				n.scroller.Simulate(ctx, page)
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !errors.Is(err, scraper.ErrLoadTimeout) {
			return models.NewNavigationError(url, err)
		}

		n.metrics.IncNavRetry()
		slog.Warn("page load timed out, stopping and retrying",
			"url", url,
			"attempt", attempt,
			"of", attempts,
		)
		if stopErr := page.StopLoading(); stopErr != nil {
			slog.Debug("stop loading failed", "url", url, "error", stopErr)
		}
		if err := n.sleep(ctx, time.Duration(attempt)*n.cfg.RetryBackoff); err != nil {
			return err
		}
	}
	return models.NewNavigationTimeout(url, attempts)
}

func (n *Navigator) navigate(ctx context.Context, page scraper.Page, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, n.cfg.PageLoadTimeout)
	defer cancel()
	return page.Navigate(navCtx, url)
}
