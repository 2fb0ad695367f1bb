package sheet

import (
	"encoding/json"

	"github.com/use-agent/pdpscrape/models"
)

// OutputColumns is the header row of the output table.
var OutputColumns = []string{
	"Input Title",
	"URL",
	"Title",
	"Price",
	"Color Text",
	"Description Text",
	"Description HTML",
	"Specification Text",
	"Specification HTML",
	"Teaser HTML",
	"Images",
	"Support Docs",
	"Swatch Model Sections",
}

// FailedColumn is the single column of the failure table.
const FailedColumn = "Failed URLs"

// recordRow flattens rec in OutputColumns order. Sequences are encoded as
// JSON arrays so they survive a round trip through a spreadsheet cell.
func recordRow(rec models.OutputRecord) []string {
	return []string{
		rec.InputTitle,
		rec.URL,
		rec.Title,
		rec.Price,
		rec.ColorText,
		rec.DescriptionText,
		rec.DescriptionHTML,
		rec.SpecificationText,
		rec.SpecificationHTML,
		rec.TeaserHTML,
		jsonList(rec.Images),
		jsonList(rec.SupportDocs),
		jsonList(rec.SwatchModelSections),
	}
}

func jsonList[T any](items []T) string {
	if items == nil {
		items = []T{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}
