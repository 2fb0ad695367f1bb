// Package locator holds the static table that maps every output field to
// ordered candidate CSS selectors.
package locator

import (
	"errors"
	"fmt"
	"time"

	"github.com/andybalholm/cascadia"
)

// Field is one output field and its selectors in priority order.
type Field struct {
	Name      string
	Selectors []string

	// Timeout overrides the default explicit-wait deadline when non-zero.
	Timeout time.Duration

	// Attr names the attribute read by attribute extraction ("src", "href").
	Attr string
}

// Table maps every output field to its locators.
//
// Exact class matches use attribute selectors ([class="..."]) so that a
// page adding a modifier class falls through to the looser class selector
// that follows.
type Table struct {
	Title         Field
	Price         Field
	Color         Field
	Description   Field
	Specification Field
	Teaser        Field
	Images        Field
	SupportDocs   Field

	// SwatchControls selects the variant controls under their container.
	SwatchControls Field
	// SwatchModel is read again after each control is activated.
	SwatchModel Field
}

// Default returns the locator table for Breville-style product pages.
func Default() Table {
	return Table{
		Title: Field{
			Name:      "title",
			Selectors: []string{"h1", `[data-testid="product-title"]`},
		},
		Price: Field{
			Name:      "price",
			Selectors: []string{`div[class="pdp-productPrice"]`, ".pdp-productPrice", `[itemprop="price"]`},
		},
		Color: Field{
			Name: "color",
			Selectors: []string{
				`p[class="xps-text xps-text-p3-bold pdp-atc-controls__color"]`,
				".pdp-atc-controls__color",
			},
		},
		Description: Field{
			Name: "description",
			Selectors: []string{
				`div[class="xps-card-tile xps-card-tile-content-center"]`,
				".xps-card-tile.xps-card-tile-content-center",
			},
		},
		Specification: Field{
			Name:      "specification",
			Selectors: []string{`div[class="xps-product-specifications"]`, ".xps-product-specifications"},
		},
		Teaser: Field{
			Name:      "teaser",
			Selectors: []string{`div[class="xps-teaser__content"]`, ".xps-teaser__content"},
		},
		Images: Field{
			Name:      "images",
			Selectors: []string{`ul[id="splide03-list"] img`, `ul.splide__list img`},
			Attr:      "src",
		},
		SupportDocs: Field{
			Name:      "support_docs",
			Selectors: []string{`a[class="xps-support-doc-item-link"]`, "a.xps-support-doc-item-link"},
			Attr:      "href",
		},
		SwatchControls: Field{
			Name:      "swatch_controls",
			Selectors: []string{`div[class="xps-swatchpicker-container"] button`, ".xps-swatchpicker-container button"},
		},
		SwatchModel: Field{
			Name:      "swatch_model",
			Selectors: []string{`div[class="pdp-atc-controls-model-section"]`, ".pdp-atc-controls-model-section"},
		},
	}
}

// Fields returns every field of the table in output order.
func (t Table) Fields() []Field {
	return []Field{
		t.Title, t.Price, t.Color, t.Description, t.Specification, t.Teaser,
		t.Images, t.SupportDocs, t.SwatchControls, t.SwatchModel,
	}
}

// Validate compiles every selector so a typo fails the run at start-up
// instead of silently degrading a column to empty.
func (t Table) Validate() error {
	var errs []error
	for _, f := range t.Fields() {
		if len(f.Selectors) == 0 {
			errs = append(errs, fmt.Errorf("field %q has no selectors", f.Name))
			continue
		}
		for _, sel := range f.Selectors {
			if _, err := cascadia.ParseGroup(sel); err != nil {
				errs = append(errs, fmt.Errorf("field %q: selector %q: %w", f.Name, sel, err))
			}
		}
	}
	return errors.Join(errs...)
}

// TimeoutOr returns the field's timeout, or fallback when none is set.
func (f Field) TimeoutOr(fallback time.Duration) time.Duration {
	if f.Timeout > 0 {
		return f.Timeout
	}
	return fallback
}
