package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/pdpscrape/locator"
	"github.com/use-agent/pdpscrape/models"
	"github.com/use-agent/pdpscrape/scraper"
)

// SwatchWalker activates every variant control in turn and reads the
// dependent model section after each one.
type SwatchWalker struct {
	controls locator.Field
	model    locator.Field
	settle   time.Duration
	extract  *Extractor
	options
}

func NewSwatchWalker(controls, model locator.Field, settle time.Duration, extract *Extractor, opts ...Option) *SwatchWalker {
	return &SwatchWalker{
		controls: controls,
		model:    model,
		settle:   settle,
		extract:  extract,
		options:  buildOptions(opts),
	}
}

// Walk returns one model section per control, in document order. A control
// that cannot be activated, or after which the model section is empty, is
// omitted and the walk carries on with the next one.
func (w *SwatchWalker) Walk(ctx context.Context, page scraper.Page) []string {
	sections := []string{}
	controls := w.findControls(page)
	for i, control := range controls {
		if ctx.Err() != nil {
			break
		}
		section, err := w.step(ctx, page, i, control)
		if err != nil {
			w.metrics.IncVariantFailure()
			slog.Debug("swatch variant skipped", "index", i, "of", len(controls), "error", err)
			continue
		}
		sections = append(sections, section)
	}
	return sections
}

func (w *SwatchWalker) step(ctx context.Context, page scraper.Page, i int, control scraper.Element) (string, error) {
	if err := control.Click(); err != nil {
		return "", models.NewVariantStepFailure(i, err)
	}
	if err := w.sleep(ctx, w.settle); err != nil {
		return "", models.NewVariantStepFailure(i, err)
	}
	_, section, ok := w.extract.first(ctx, page, w.model, readText)
	if !ok {
		return "", models.NewVariantStepFailure(i, scraper.ErrNotFound)
	}
	return section, nil
}

func (w *SwatchWalker) findControls(page scraper.Page) []scraper.Element {
	for _, sel := range w.controls.Selectors {
		els, err := page.Elements(sel)
		if err == nil && len(els) > 0 {
			return els
		}
	}
	return nil
}
