package sheet

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/pdpscrape/models"
	"github.com/xuri/excelize/v2"
)

func kettle() models.OutputRecord {
	rec := models.NewOutputRecord(models.InputRow{URL: "https://example.com/p/1", Title: "Kettle"})
	rec.Title = "Kettle X"
	rec.Price = "$149.95"
	rec.DescriptionHTML = `<p>Boils <b>fast</b>.</p>`
	rec.Images = []string{"https://cdn/1.jpg", "https://cdn/2.jpg"}
	rec.SupportDocs = []models.SupportDoc{{Text: "Manual", Href: "https://x/m.pdf"}}
	return rec
}

func readXLSXRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetList()[0])
	require.NoError(t, err)
	return rows
}

func TestReadRows_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.csv")
	content := "\ufeffSKU,url,TITLE\n" +
		"1,https://example.com/p/1,Kettle\n" +
		"2,https://example.com/p/2\n" +
		",,\n" +
		"3,,No URL\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rows, err := ReadRows(path)
	require.NoError(t, err)
	assert.Equal(t, []models.InputRow{
		{URL: "https://example.com/p/1", Title: "Kettle"},
		{URL: "https://example.com/p/2", Title: ""},
		{URL: "", Title: "No URL"},
	}, rows)
}

func TestReadRows_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Title", "URL"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"Kettle", " https://example.com/p/1 "}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"", "https://example.com/p/2"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	rows, err := ReadRows(path)
	require.NoError(t, err)
	assert.Equal(t, []models.InputRow{
		{URL: "https://example.com/p/1", Title: "Kettle"},
		{URL: "https://example.com/p/2", Title: ""},
	}, rows)
}

func TestReadRows_Errors(t *testing.T) {
	dir := t.TempDir()

	noURL := filepath.Join(dir, "nourl.csv")
	require.NoError(t, os.WriteFile(noURL, []byte("Title\nKettle\n"), 0o644))
	_, err := ReadRows(noURL)
	assert.True(t, models.HasCode(err, models.ErrCodeInvalidInput))

	_, err = ReadRows(filepath.Join(dir, "in.txt"))
	assert.True(t, models.HasCode(err, models.ErrCodeInvalidInput))

	_, err = ReadRows(filepath.Join(dir, "missing.csv"))
	assert.True(t, models.HasCode(err, models.ErrCodeInvalidInput))
}

func TestSaveRecords_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "scraped_output.xlsx")
	table, err := NewTable(path)
	require.NoError(t, err)

	require.NoError(t, table.SaveRecords([]models.OutputRecord{kettle()}))

	rows := readXLSXRows(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, OutputColumns, rows[0])
	assert.Equal(t, "Kettle", rows[1][0])
	assert.Equal(t, "Kettle X", rows[1][2])
	assert.Equal(t, `["https://cdn/1.jpg","https://cdn/2.jpg"]`, rows[1][10])
	assert.Equal(t, `[{"text":"Manual","href":"https://x/m.pdf"}]`, rows[1][11])
	assert.Equal(t, `[]`, rows[1][12])
}

func TestSaveRecords_OverwritesEachTime(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.xlsx")
	table, err := NewTable(path)
	require.NoError(t, err)

	require.NoError(t, table.SaveRecords([]models.OutputRecord{kettle(), kettle(), kettle()}))
	require.NoError(t, table.SaveRecords([]models.OutputRecord{kettle()}))

	assert.Len(t, readXLSXRows(t, path), 2)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestSaveFailures_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failed_urls.xlsx")
	table, err := NewTable(path)
	require.NoError(t, err)

	require.NoError(t, table.SaveFailures([]string{"https://example.com/slow", "https://example.com/gone"}))
	assert.Equal(t, [][]string{
		{"Failed URLs"},
		{"https://example.com/slow"},
		{"https://example.com/gone"},
	}, readXLSXRows(t, path))
}

func TestSaveRecords_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	table, err := NewTable(path)
	require.NoError(t, err)
	require.NoError(t, table.SaveRecords([]models.OutputRecord{kettle()}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, OutputColumns, records[0])
	assert.Equal(t, "$149.95", records[1][3])
}

func TestSaveRecords_JSONCarriesMarkdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	table, err := NewTable(path)
	require.NoError(t, err)
	require.NoError(t, table.SaveRecords([]models.OutputRecord{kettle()}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var got []map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Kettle X", got[0]["title"])
	assert.Equal(t, "Boils **fast**.", got[0]["description_markdown"])
	assert.Equal(t, "", got[0]["specification_markdown"])
}

func TestSaveRecords_EmptyJSONIsArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	table, err := NewTable(path)
	require.NoError(t, err)
	require.NoError(t, table.SaveRecords(nil))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(string(raw)))
}

func TestNewTable_UnsupportedFormat(t *testing.T) {
	_, err := NewTable("out.ods")
	assert.True(t, models.HasCode(err, models.ErrCodeInvalidInput))
}

func TestTruncateCell(t *testing.T) {
	assert.Equal(t, "short", truncateCell("short"))

	long := strings.Repeat("é", maxCellChars+10)
	got := truncateCell(long)
	assert.Equal(t, maxCellChars, len([]rune(got)))

	ascii := strings.Repeat("a", maxCellChars+1)
	assert.Len(t, truncateCell(ascii), maxCellChars)
}
