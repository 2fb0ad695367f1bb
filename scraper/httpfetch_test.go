package scraper

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/pdpscrape/config"
)

func mockedFetcher(t *testing.T, cfg config.BrowserConfig) *HTTPFetcher {
	t.Helper()
	f := NewHTTPFetcher(cfg)
	httpmock.ActivateNonDefault(f.client)
	t.Cleanup(httpmock.DeactivateAndReset)
	return f
}

func TestFetch_SendsBrowserAndExtraHeaders(t *testing.T) {
	f := mockedFetcher(t, config.BrowserConfig{ExtraHeaders: map[string]string{"X-Region": "AU"}})

	httpmock.RegisterResponder(http.MethodGet, "https://example.com/p/1", func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, chromeUA, req.Header.Get("User-Agent"))
		assert.Equal(t, "AU", req.Header.Get("X-Region"))
		resp := httpmock.NewStringResponse(http.StatusOK, "<h1>Kettle</h1>")
		resp.Header.Set("Content-Type", "text/html; charset=utf-8")
		return resp, nil
	})

	page, err := f.Fetch(context.Background(), "https://example.com/p/1")
	require.NoError(t, err)
	body, err := io.ReadAll(page.Body)
	require.NoError(t, err)
	assert.Equal(t, "<h1>Kettle</h1>", string(body))
	assert.Equal(t, "https://example.com/p/1", page.FinalURL)
}

func TestFetch_DecodesCharset(t *testing.T) {
	f := mockedFetcher(t, config.BrowserConfig{})
	httpmock.RegisterResponder(http.MethodGet, "https://example.com/fr", func(*http.Request) (*http.Response, error) {
		resp := httpmock.NewBytesResponse(http.StatusOK, []byte("<h1>Bouilloire \xe9l\xe9gante</h1>"))
		resp.Header.Set("Content-Type", "text/html; charset=iso-8859-1")
		return resp, nil
	})

	page, err := f.Fetch(context.Background(), "https://example.com/fr")
	require.NoError(t, err)
	body, _ := io.ReadAll(page.Body)
	assert.Equal(t, "<h1>Bouilloire élégante</h1>", string(body))
}

func TestFetch_HTTPErrorIsNotATimeout(t *testing.T) {
	f := mockedFetcher(t, config.BrowserConfig{})
	httpmock.RegisterResponder(http.MethodGet, "https://example.com/gone", httpmock.NewStringResponder(http.StatusNotFound, ""))

	_, err := f.Fetch(context.Background(), "https://example.com/gone")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrLoadTimeout))
	assert.Contains(t, err.Error(), "HTTP 404")
}

func TestFetch_DeadlineIsLoadTimeout(t *testing.T) {
	f := mockedFetcher(t, config.BrowserConfig{})
	httpmock.RegisterResponder(http.MethodGet, "https://example.com/slow", func(req *http.Request) (*http.Response, error) {
		<-req.Context().Done()
		return nil, req.Context().Err()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := f.Fetch(ctx, "https://example.com/slow")
	assert.ErrorIs(t, err, ErrLoadTimeout)
}

func TestStaticPage_NavigateThroughFetcher(t *testing.T) {
	f := mockedFetcher(t, config.BrowserConfig{})
	httpmock.RegisterResponder(http.MethodGet, "https://example.com/p/1",
		httpmock.NewStringResponder(http.StatusOK, `<h1>Kettle X</h1><img src="/a.jpg">`))

	p := NewStaticPage(f)
	require.NoError(t, p.Navigate(context.Background(), "https://example.com/p/1"))

	el, err := p.Element("img")
	require.NoError(t, err)
	src, _ := el.Attribute("src")
	assert.Equal(t, "https://example.com/a.jpg", src)
}

func TestOpen_UnknownEngine(t *testing.T) {
	_, err := Open(config.BrowserConfig{Engine: "lynx"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_INIT_FAILED")
}

func TestOpen_HTTPEngine(t *testing.T) {
	p, err := Open(config.BrowserConfig{Engine: config.EngineHTTP})
	require.NoError(t, err)
	assert.IsType(t, &StaticPage{}, p)
	assert.NoError(t, p.Close())
}
