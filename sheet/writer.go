package sheet

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/use-agent/pdpscrape/cleaner"
	"github.com/use-agent/pdpscrape/models"
	"github.com/xuri/excelize/v2"
)

// Output formats.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// maxCellChars is Excel's hard limit on the characters in one cell.
const maxCellChars = 32767

const sheetName = "Sheet1"

// Table is one output destination. Every save replaces the whole file
// atomically, so a crash mid-write leaves the previous checkpoint intact.
type Table struct {
	path     string
	format   string
	markdown *cleaner.Converter
}

// NewTable returns a table writing to path in the format implied by its
// extension.
func NewTable(path string) (*Table, error) {
	format, err := formatOf(path)
	if err != nil {
		return nil, err
	}
	t := &Table{path: path, format: format}
	if format == FormatJSON {
		t.markdown = cleaner.NewConverter()
	}
	return t, nil
}

func formatOf(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", models.NewScrapeError(models.ErrCodeInvalidInput,
			fmt.Sprintf("unsupported output format %q for %s", ext, path), nil)
	}
}

// Path returns the destination file.
func (t *Table) Path() string { return t.path }

// SaveRecords overwrites the table with records under OutputColumns.
func (t *Table) SaveRecords(records []models.OutputRecord) error {
	var err error
	switch t.format {
	case FormatJSON:
		err = writeAtomic(t.path, func(w io.Writer) error { return t.encodeRecords(w, records) })
	default:
		rows := make([][]string, len(records))
		for i, rec := range records {
			rows[i] = recordRow(rec)
		}
		err = t.writeRows(OutputColumns, rows)
	}
	if err != nil {
		return err
	}
	slog.Info("saved rows", "count", len(records), "path", t.path)
	return nil
}

// SaveFailures overwrites the table with one URL per row under FailedColumn.
func (t *Table) SaveFailures(urls []string) error {
	var err error
	switch t.format {
	case FormatJSON:
		err = writeAtomic(t.path, func(w io.Writer) error {
			return encodeJSON(w, map[string][]string{"failed_urls": append([]string{}, urls...)})
		})
	default:
		rows := make([][]string, len(urls))
		for i, u := range urls {
			rows[i] = []string{u}
		}
		err = t.writeRows([]string{FailedColumn}, rows)
	}
	if err != nil {
		return err
	}
	slog.Info("saved failed urls", "count", len(urls), "path", t.path)
	return nil
}

func (t *Table) writeRows(header []string, rows [][]string) error {
	if t.format == FormatCSV {
		return writeAtomic(t.path, func(w io.Writer) error { return encodeCSV(w, header, rows) })
	}
	return writeAtomic(t.path, func(w io.Writer) error { return encodeXLSX(w, header, rows) })
}

// jsonRecord adds Markdown renditions of the HTML columns.
type jsonRecord struct {
	models.OutputRecord
	DescriptionMarkdown   string `json:"description_markdown"`
	SpecificationMarkdown string `json:"specification_markdown"`
}

func (t *Table) encodeRecords(w io.Writer, records []models.OutputRecord) error {
	out := make([]jsonRecord, len(records))
	for i, rec := range records {
		out[i] = jsonRecord{
			OutputRecord:          rec,
			DescriptionMarkdown:   t.markdown.ToMarkdown(rec.DescriptionHTML, rec.URL),
			SpecificationMarkdown: t.markdown.ToMarkdown(rec.SpecificationHTML, rec.URL),
		}
	}
	return encodeJSON(w, out)
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func encodeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv records: %w", err)
	}
	return nil
}

func encodeXLSX(w io.Writer, header []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := setRow(f, 1, header); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setRow(f, i+2, row); err != nil {
			return err
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, n int, values []string) error {
	cellName, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = truncateCell(v)
	}
	if err := f.SetSheetRow(sheetName, cellName, &row); err != nil {
		return fmt.Errorf("write xlsx row %d: %w", n, err)
	}
	return nil
}

// truncateCell cuts v to the Excel cell limit without splitting a rune.
func truncateCell(v string) string {
	if len(v) <= maxCellChars {
		return v
	}
	r := []rune(v)
	if len(r) <= maxCellChars {
		return v
	}
	return string(r[:maxCellChars])
}

// writeAtomic writes through a temp file in the destination directory and
// renames it over path.
func writeAtomic(path string, write func(io.Writer) error) (err error) {
	if err := ensureDir(path); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
