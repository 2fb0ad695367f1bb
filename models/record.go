// Package models defines the rows read, the records produced and the errors
// raised by a scrape run.
package models

// InputRow is one page to scrape as read from the input table.
type InputRow struct {
	URL   string
	Title string
}

// SupportDoc is a support-document link found on a product page.
type SupportDoc struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// OutputRecord holds every field extracted from one product page.
// Fields that could not be extracted are left empty.
type OutputRecord struct {
	InputTitle        string `json:"input_title"`
	URL               string `json:"url"`
	Title             string `json:"title"`
	Price             string `json:"price"`
	ColorText         string `json:"color_text"`
	DescriptionText   string `json:"description_text"`
	DescriptionHTML   string `json:"description_html"`
	SpecificationText string `json:"specification_text"`
	SpecificationHTML string `json:"specification_html"`
	TeaserHTML        string `json:"teaser_html"`

	Images              []string     `json:"images"`
	SupportDocs         []SupportDoc `json:"support_docs"`
	SwatchModelSections []string     `json:"swatch_model_sections"`
}

// NewOutputRecord returns a record for row with every extracted field empty
// and every sequence non-nil.
func NewOutputRecord(row InputRow) OutputRecord {
	return OutputRecord{
		InputTitle:          row.Title,
		URL:                 row.URL,
		Images:              []string{},
		SupportDocs:         []SupportDoc{},
		SwatchModelSections: []string{},
	}
}
