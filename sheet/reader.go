// Package sheet reads the input row list and writes the output and failure
// tables as xlsx, csv or json, chosen by file extension.
package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/use-agent/pdpscrape/models"
	"github.com/xuri/excelize/v2"
)

// ReadRows loads the input table at path. The first row is the header; the
// URL and Title columns are matched case-insensitively and missing cells
// read as empty strings. Blank lines are skipped.
func ReadRows(path string) ([]models.InputRow, error) {
	var (
		records [][]string
		err     error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm":
		records, err = readXLSX(path)
	case ".csv":
		records, err = readCSV(path)
	default:
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput,
			fmt.Sprintf("unsupported input format %q", ext), nil)
	}
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "failed to read input table", err)
	}
	return parseRows(records)
}

func parseRows(records [][]string) ([]models.InputRow, error) {
	if len(records) == 0 {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "input table is empty", nil)
	}

	urlCol, titleCol := -1, -1
	for i, name := range records[0] {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case "url":
			if urlCol < 0 {
				urlCol = i
			}
		case "title":
			if titleCol < 0 {
				titleCol = i
			}
		}
	}
	if urlCol < 0 {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "input table has no URL column", nil)
	}

	rows := make([]models.InputRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		rows = append(rows, models.InputRow{
			URL:   strings.TrimSpace(cell(rec, urlCol)),
			Title: strings.TrimSpace(cell(rec, titleCol)),
		})
	}
	return rows, nil
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var out [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
}
