package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/use-agent/pdpscrape/config"
	"github.com/use-agent/pdpscrape/locator"
	"github.com/use-agent/pdpscrape/models"
	"github.com/use-agent/pdpscrape/scraper"
)

// Processor turns one input row into one output record.
type Processor struct {
	table     locator.Table
	navigator *Navigator
	extract   *Extractor
	swatches  *SwatchWalker
	settleMin time.Duration
	settleMax time.Duration
	options
}

// NewProcessor wires the navigator, extractor and swatch walker for cfg.
// The same options are handed to every component.
func NewProcessor(cfg *config.Config, table locator.Table, opts ...Option) *Processor {
	scroller := NewScroller(cfg.Scroll, opts...)
	extract := NewExtractor(cfg.Extraction.FieldTimeout, opts...)
	return &Processor{
		table:     table,
		navigator: NewNavigator(cfg.Navigation, scroller, opts...),
		extract:   extract,
		swatches:  NewSwatchWalker(table.SwatchControls, table.SwatchModel, cfg.Extraction.SwatchSettle, extract, opts...),
		settleMin: cfg.Navigation.SettleMin,
		settleMax: cfg.Navigation.SettleMax,
		options:   buildOptions(opts),
	}
}

// Process loads the row's page and extracts every field. Only a navigation
// failure, a cancelled ctx or a panic fails the row; fields that cannot be
// found are left empty.
func (p *Processor) Process(ctx context.Context, page scraper.Page, row models.InputRow) (res models.RowResult) {
	row.URL = strings.TrimSpace(row.URL)
	row.Title = strings.TrimSpace(row.Title)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			res = models.Failed(row, models.NewScrapeError(models.ErrCodeInternal, fmt.Sprintf("panic: %v", r), nil))
		}
		res.Duration = time.Since(start)
	}()

	slog.Info("processing", "url", row.URL)

	if err := p.navigator.Load(ctx, page, row.URL); err != nil {
		return models.Failed(row, err)
	}
	if err := p.sleep(ctx, p.between(p.settleMin, p.settleMax)); err != nil {
		return models.Failed(row, err)
	}

	rec := models.NewOutputRecord(row)
	t := p.table
	rec.Title = p.extract.Text(ctx, page, t.Title)
	rec.Price = p.extract.Text(ctx, page, t.Price)
	rec.ColorText = p.extract.Text(ctx, page, t.Color)
	rec.DescriptionText, rec.DescriptionHTML = p.extract.TextAndHTML(ctx, page, t.Description)
	rec.SpecificationText, rec.SpecificationHTML = p.extract.TextAndHTML(ctx, page, t.Specification)
	rec.TeaserHTML = p.extract.HTML(ctx, page, t.Teaser)
	rec.Images = p.extract.All(page, t.Images)
	rec.SupportDocs = p.extract.Links(page, t.SupportDocs)
	rec.SwatchModelSections = p.swatches.Walk(ctx, page)

	// Fields read after cancellation are empty for the wrong reason.
	if err := ctx.Err(); err != nil {
		return models.Failed(row, err)
	}
	return models.Succeeded(row, rec)
}
