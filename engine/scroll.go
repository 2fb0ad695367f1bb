package engine

import (
	"context"
	"log/slog"

	"github.com/use-agent/pdpscrape/config"
	"github.com/use-agent/pdpscrape/scraper"
)

// Scroller walks a page top to bottom in small randomized steps so that
// lazy-loaded sections render before extraction.
type Scroller struct {
	cfg config.ScrollConfig
	options
}

func NewScroller(cfg config.ScrollConfig, opts ...Option) *Scroller {
	return &Scroller{cfg: cfg, options: buildOptions(opts)}
}

// Simulate never fails: a page that cannot be scrolled is logged at debug
// and left as is.
func (s *Scroller) Simulate(ctx context.Context, page scraper.Page) {
	height, err := page.ScrollHeight()
	if err != nil {
		slog.Debug("scroll skipped", "error", err)
		return
	}

	for y := 0; y < height; {
		if err := page.ScrollTo(y); err != nil {
			slog.Debug("scroll interrupted", "y", y, "error", err)
			return
		}
		if err := s.sleep(ctx, s.between(s.cfg.PauseMin, s.cfg.PauseMax)); err != nil {
			return
		}
		y += max(1, s.intBetween(s.cfg.StepMin, s.cfg.StepMax))
	}

	_ = s.sleep(ctx, s.between(s.cfg.FinalPauseMin, s.cfg.FinalPauseMax))
}
