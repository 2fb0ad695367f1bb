package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/pdpscrape/config"
	"github.com/use-agent/pdpscrape/models"
	"github.com/use-agent/pdpscrape/scraper"
	"github.com/xuri/excelize/v2"
)

// fixturePage serves HTML from memory; unknown URLs always time out.
type fixturePage struct {
	*scraper.StaticPage
	pages  map[string]string
	closed bool
}

func (p *fixturePage) Navigate(_ context.Context, url string) error {
	doc, ok := p.pages[url]
	if !ok {
		return fmt.Errorf("%w: %s", scraper.ErrLoadTimeout, url)
	}
	return p.LoadHTML(doc, url)
}

func (p *fixturePage) Close() error { p.closed = true; return nil }

func quietConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Load()
	cfg.Browser.Engine = config.EngineHTTP
	cfg.Navigation.RetryBackoff = 0
	cfg.Navigation.SettleMin, cfg.Navigation.SettleMax = 0, 0
	cfg.Scroll.PauseMin, cfg.Scroll.PauseMax = 0, 0
	cfg.Scroll.FinalPauseMin, cfg.Scroll.FinalPauseMax = 0, 0
	cfg.Extraction.SwatchSettle = 0
	cfg.Extraction.FieldTimeout = 10 * time.Millisecond
	cfg.Status.Addr = ""
	cfg.Webhook.URL = ""
	cfg.Log.File = ""
	return cfg
}

func writeInput(t *testing.T, dir string, urls ...string) string {
	t.Helper()
	path := filepath.Join(dir, "input.csv")
	content := "URL,Title\n"
	for i, u := range urls {
		content += fmt.Sprintf("%s,Product %d\n", u, i+1)
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func sheetRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetList()[0])
	require.NoError(t, err)
	return rows
}

func TestRun_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	input := writeInput(t, dir, "https://example.com/p/1", "https://example.com/p/slow", "https://example.com/p/2")

	page := &fixturePage{
		StaticPage: scraper.NewStaticPage(nil),
		pages: map[string]string{
			"https://example.com/p/1": `<h1>Kettle X</h1><div class="pdp-productPrice">$149.95</div>`,
			"https://example.com/p/2": `<h1>Toaster Y</h1>`,
		},
	}
	var stdout bytes.Buffer
	a := &app{
		cfg:    quietConfig(t),
		stdout: &stdout,
		open:   func() (scraper.Page, error) { return page, nil },
	}
	cmd := newRootCmd(a)
	cmd.SetArgs([]string{"--input-file", input, "--output-folder", outDir, "--batch-size", "2", "--log-level", "error"})

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.True(t, page.closed)

	rows := sheetRows(t, filepath.Join(outDir, config.DefaultOutputFile))
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Product 1", "https://example.com/p/1", "Kettle X", "$149.95"}, rows[1][:4])
	assert.Equal(t, "Toaster Y", rows[2][2])

	assert.Equal(t, [][]string{{"Failed URLs"}, {"https://example.com/p/slow"}},
		sheetRows(t, filepath.Join(outDir, "failed_urls.xlsx")))

	out := stdout.String()
	assert.Contains(t, out, "Succeeded:    2")
	assert.Contains(t, out, "Failed:       1")
	assert.Contains(t, out, "failed_urls.xlsx")
}

func TestRun_NoFailureTableWithoutFailures(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "https://example.com/p/1")
	page := &fixturePage{StaticPage: scraper.NewStaticPage(nil), pages: map[string]string{"https://example.com/p/1": `<h1>A</h1>`}}

	a := &app{cfg: quietConfig(t), stdout: &bytes.Buffer{}, open: func() (scraper.Page, error) { return page, nil }}
	cmd := newRootCmd(a)
	cmd.SetArgs([]string{"--input-file", input, "--output-folder", dir, "--output-file", filepath.Join(dir, "result.csv"), "--log-level", "error"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	assert.FileExists(t, filepath.Join(dir, "result.csv"))
	assert.NoFileExists(t, filepath.Join(dir, "failed_urls.xlsx"))
}

func TestRun_UnwritableFailureTableIsNotReported(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	// A directory where the failure table should go makes its write fail.
	require.NoError(t, os.MkdirAll(filepath.Join(outDir, "failed_urls.xlsx"), 0o755))
	input := writeInput(t, dir, "https://example.com/p/slow")
	page := &fixturePage{StaticPage: scraper.NewStaticPage(nil)}

	var stdout bytes.Buffer
	a := &app{cfg: quietConfig(t), stdout: &stdout, open: func() (scraper.Page, error) { return page, nil }}
	cmd := newRootCmd(a)
	cmd.SetArgs([]string{"--input-file", input, "--output-folder", outDir, "--log-level", "error"})

	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.ErrCodeOutput))

	out := stdout.String()
	assert.Contains(t, out, "Failed:       1")
	assert.NotContains(t, out, "Failed URLs:")
}

func TestRun_SessionInitFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "https://example.com/p/1")

	a := &app{
		cfg:    quietConfig(t),
		stdout: &bytes.Buffer{},
		open:   func() (scraper.Page, error) { return nil, errors.New("no chromium") },
	}
	cmd := newRootCmd(a)
	cmd.SetArgs([]string{"--input-file", input, "--output-folder", dir, "--log-level", "error"})

	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.ErrCodeSessionInit))
	assert.NoFileExists(t, filepath.Join(dir, config.DefaultOutputFile))
}

func TestRun_RejectsBadFlags(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "https://example.com/p/1")

	a := &app{cfg: quietConfig(t), stdout: &bytes.Buffer{}}
	cmd := newRootCmd(a)
	cmd.SetArgs([]string{"--input-file", input, "--output-folder", dir, "--batch-size", "0"})
	assert.ErrorContains(t, cmd.ExecuteContext(context.Background()), "batch size")

	a = &app{cfg: quietConfig(t), stdout: &bytes.Buffer{}}
	cmd = newRootCmd(a)
	cmd.SetArgs([]string{"--output-folder", dir})
	assert.ErrorContains(t, cmd.ExecuteContext(context.Background()), "input-file")
}

func TestInitLogger_RotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	var stdout bytes.Buffer
	logger, closer := initLogger(config.LogConfig{Level: "debug", Format: "json", File: path, MaxSizeMB: 1}, &stdout)
	logger.Debug("hello", "k", "v")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, stdout.String(), `"k":"v"`)
}
