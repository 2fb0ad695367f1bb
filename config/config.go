package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Engine names accepted by BrowserConfig.Engine.
const (
	EngineBrowser = "browser"
	EngineHTTP    = "http"
)

// DefaultOutputFile is the output table name used when no explicit path is given.
const DefaultOutputFile = "scraped_output.xlsx"

// Config holds all application configuration.
type Config struct {
	Browser    BrowserConfig
	Navigation NavigationConfig
	Scroll     ScrollConfig
	Extraction ExtractionConfig
	Output     OutputConfig
	Log        LogConfig
	Status     StatusConfig
	Webhook    WebhookConfig
}

// BrowserConfig controls the shared page session.
type BrowserConfig struct {
	// Engine selects the session implementation: "browser" or "http".
	Engine string // default: "browser"

	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// DefaultProxy is the proxy URL for every navigation.
	DefaultProxy string

	// Stealth injects anti-bot-detection evasions before the first navigation.
	Stealth bool // default: true

	// BlockedResourceTypes lists resource types aborted by the hijack router.
	// default: ["Font", "Media"]
	BlockedResourceTypes []string

	// BlockTrackers aborts requests to well-known analytics and ad hosts.
	BlockTrackers bool // default: true

	// ExtraHeaders are sent with every navigation.
	ExtraHeaders map[string]string

	// CallTimeout bounds each DOM read, scroll or click sent to the browser,
	// so a blocking dialog or hung renderer fails the call instead of the run.
	CallTimeout time.Duration // default: 10s
}

// NavigationConfig controls page loading and retries.
type NavigationConfig struct {
	// PageLoadTimeout is the hard deadline of a single load attempt.
	PageLoadTimeout time.Duration // default: 60s

	// MaxRetries is the number of retries after the first attempt times out.
	MaxRetries int // default: 2

	// RetryBackoff is multiplied by the attempt number between attempts.
	RetryBackoff time.Duration // default: 1.5s

	// RequestsPerSecond caps navigations per second; 0 disables pacing.
	RequestsPerSecond float64 // default: 0

	// SettleMin and SettleMax bound the randomized pause after a load.
	SettleMin time.Duration // default: 1s
	SettleMax time.Duration // default: 2.5s
}

// ScrollConfig controls the lazy-load scroll walk.
type ScrollConfig struct {
	StepMin       int           // default: 200
	StepMax       int           // default: 400
	PauseMin      time.Duration // default: 250ms
	PauseMax      time.Duration // default: 700ms
	FinalPauseMin time.Duration // default: 500ms
	FinalPauseMax time.Duration // default: 1s
}

// ExtractionConfig controls field lookups and the swatch walk.
type ExtractionConfig struct {
	// FieldTimeout is the explicit-wait deadline for each locator.
	FieldTimeout time.Duration // default: 4s

	// SwatchSettle is the pause after activating a swatch control.
	SwatchSettle time.Duration // default: 800ms
}

// OutputConfig controls where results are persisted.
type OutputConfig struct {
	// Dir receives the output and failure tables.
	Dir string // default: "output"

	// File is the output table path; empty means Dir/DefaultOutputFile.
	File string

	// FailedFile is the failure table file name inside Dir.
	FailedFile string // default: "failed_urls.xlsx"

	// BatchSize is the number of rows between checkpoints.
	BatchSize int // default: 20
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"

	// File, when set, receives a copy of every record with size-based rotation.
	File       string
	MaxSizeMB  int // default: 50
	MaxBackups int // default: 3
	MaxAgeDays int // default: 28
}

// StatusConfig controls the optional status server.
type StatusConfig struct {
	// Addr is the listen address; empty disables the server.
	Addr string

	// Token, when set, is required as a bearer token.
	Token string
}

// WebhookConfig controls the run-completion notification.
type WebhookConfig struct {
	URL    string
	Secret string
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Browser: BrowserConfig{
			Engine:       envOr("PDPSCRAPE_ENGINE", EngineBrowser),
			Headless:     envBoolOr("PDPSCRAPE_HEADLESS", true),
			NoSandbox:    envBoolOr("PDPSCRAPE_NO_SANDBOX", false),
			BrowserBin:   os.Getenv("PDPSCRAPE_BROWSER_BIN"),
			DefaultProxy: os.Getenv("PDPSCRAPE_PROXY"),
			Stealth:      envBoolOr("PDPSCRAPE_STEALTH", true),
			BlockedResourceTypes: envSliceOr("PDPSCRAPE_BLOCKED_RESOURCES", []string{
				"Font", "Media",
			}),
			BlockTrackers: envBoolOr("PDPSCRAPE_BLOCK_TRACKERS", true),
			ExtraHeaders:  envMapOr("PDPSCRAPE_EXTRA_HEADERS", nil),
			CallTimeout:   envDurationOr("PDPSCRAPE_CALL_TIMEOUT", 10*time.Second),
		},
		Navigation: NavigationConfig{
			PageLoadTimeout:   envDurationOr("PDPSCRAPE_PAGE_LOAD_TIMEOUT", 60*time.Second),
			MaxRetries:        envIntOr("PDPSCRAPE_MAX_RETRIES", 2),
			RetryBackoff:      envDurationOr("PDPSCRAPE_RETRY_BACKOFF", 1500*time.Millisecond),
			RequestsPerSecond: envFloatOr("PDPSCRAPE_RATE_RPS", 0),
			SettleMin:         envDurationOr("PDPSCRAPE_SETTLE_MIN", time.Second),
			SettleMax:         envDurationOr("PDPSCRAPE_SETTLE_MAX", 2500*time.Millisecond),
		},
		Scroll: ScrollConfig{
			StepMin:       envIntOr("PDPSCRAPE_SCROLL_STEP_MIN", 200),
			StepMax:       envIntOr("PDPSCRAPE_SCROLL_STEP_MAX", 400),
			PauseMin:      envDurationOr("PDPSCRAPE_SCROLL_PAUSE_MIN", 250*time.Millisecond),
			PauseMax:      envDurationOr("PDPSCRAPE_SCROLL_PAUSE_MAX", 700*time.Millisecond),
			FinalPauseMin: envDurationOr("PDPSCRAPE_SCROLL_FINAL_MIN", 500*time.Millisecond),
			FinalPauseMax: envDurationOr("PDPSCRAPE_SCROLL_FINAL_MAX", time.Second),
		},
		Extraction: ExtractionConfig{
			FieldTimeout: envDurationOr("PDPSCRAPE_FIELD_TIMEOUT", 4*time.Second),
			SwatchSettle: envDurationOr("PDPSCRAPE_SWATCH_SETTLE", 800*time.Millisecond),
		},
		Output: OutputConfig{
			Dir:        envOr("PDPSCRAPE_OUTPUT_DIR", "output"),
			File:       os.Getenv("PDPSCRAPE_OUTPUT_FILE"),
			FailedFile: envOr("PDPSCRAPE_FAILED_FILE", "failed_urls.xlsx"),
			BatchSize:  envIntOr("PDPSCRAPE_BATCH_SIZE", 20),
		},
		Log: LogConfig{
			Level:      envOr("PDPSCRAPE_LOG_LEVEL", "info"),
			Format:     envOr("PDPSCRAPE_LOG_FORMAT", "text"),
			File:       os.Getenv("PDPSCRAPE_LOG_FILE"),
			MaxSizeMB:  envIntOr("PDPSCRAPE_LOG_MAX_SIZE_MB", 50),
			MaxBackups: envIntOr("PDPSCRAPE_LOG_MAX_BACKUPS", 3),
			MaxAgeDays: envIntOr("PDPSCRAPE_LOG_MAX_AGE_DAYS", 28),
		},
		Status: StatusConfig{
			Addr:  os.Getenv("PDPSCRAPE_STATUS_ADDR"),
			Token: os.Getenv("PDPSCRAPE_STATUS_TOKEN"),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("PDPSCRAPE_WEBHOOK_URL"),
			Secret: os.Getenv("PDPSCRAPE_WEBHOOK_SECRET"),
		},
	}
}

// OutputPath returns the output table path.
func (c *Config) OutputPath() string {
	if c.Output.File != "" {
		return c.Output.File
	}
	return filepath.Join(c.Output.Dir, DefaultOutputFile)
}

// FailedPath returns the failure table path.
func (c *Config) FailedPath() string {
	return filepath.Join(c.Output.Dir, c.Output.FailedFile)
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.Browser.Engine != EngineBrowser && c.Browser.Engine != EngineHTTP {
		return fmt.Errorf("engine must be %q or %q, got %q", EngineBrowser, EngineHTTP, c.Browser.Engine)
	}
	if c.Browser.CallTimeout <= 0 {
		return fmt.Errorf("browser call timeout must be positive")
	}
	if c.Navigation.PageLoadTimeout <= 0 {
		return fmt.Errorf("page load timeout must be positive")
	}
	if c.Navigation.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.Navigation.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.Navigation.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second cannot be negative")
	}
	if err := checkRange("settle", c.Navigation.SettleMin, c.Navigation.SettleMax); err != nil {
		return err
	}
	if c.Scroll.StepMin <= 0 || c.Scroll.StepMax < c.Scroll.StepMin {
		return fmt.Errorf("scroll step range [%d, %d] is invalid", c.Scroll.StepMin, c.Scroll.StepMax)
	}
	if err := checkRange("scroll pause", c.Scroll.PauseMin, c.Scroll.PauseMax); err != nil {
		return err
	}
	if err := checkRange("scroll final pause", c.Scroll.FinalPauseMin, c.Scroll.FinalPauseMax); err != nil {
		return err
	}
	if c.Extraction.FieldTimeout < 0 {
		return fmt.Errorf("field timeout cannot be negative")
	}
	if c.Extraction.SwatchSettle < 0 {
		return fmt.Errorf("swatch settle cannot be negative")
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output directory cannot be empty")
	}
	if c.Output.FailedFile == "" {
		return fmt.Errorf("failed file name cannot be empty")
	}
	if c.Output.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	return nil
}

func checkRange(name string, lo, hi time.Duration) error {
	if lo < 0 || hi < lo {
		return fmt.Errorf("%s range [%s, %s] is invalid", name, lo, hi)
	}
	return nil
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}

// envMapOr parses "Key=Value,Key2=Value2". Malformed pairs are skipped.
func envMapOr(key string, fallback map[string]string) map[string]string {
	pairs := envSliceOr(key, nil)
	if len(pairs) == 0 {
		return fallback
	}
	result := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			continue
		}
		result[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return result
}
