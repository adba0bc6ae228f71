// Package config is the configuration surface of the sentinel commands.
package config

import (
	"errors"
	"fmt"
	"os"
	"stocksentinel-backend/internal/archive"
	"stocksentinel-backend/internal/components/configutil"
	"stocksentinel-backend/internal/roster"
	"stocksentinel-backend/internal/scrapers/efd"
	"stocksentinel-backend/internal/store"
	"time"

	"github.com/go-resty/resty/v2"
)

const DefaultLookbackDays = 7

type PortalConfig struct {
	BaseUrl   string `json:"base_url"`
	UserAgent string `json:"user_agent"`
	// RequestDelayMs of 0 disables the delay between requests.
	RequestDelayMs   *int `json:"request_delay_ms"`
	TimeoutMs        int  `json:"timeout_ms"`
	Retries          int  `json:"retries"`
	BypassCloudflare bool `json:"bypass_cloudflare"`
	// MessagesDir is optional, when set every request/response pair is written to it.
	MessagesDir string `json:"messages_dir"`
}

type CrawlConfig struct {
	// Since is a YYYY-MM-DD date, when empty LookbackDays is used. A lookback
	// of 0 starts the crawl today.
	Since        string `json:"since"`
	LookbackDays *int   `json:"lookback_days"`
	PageSize     int    `json:"page_size"`
	// MaxPages of 0 disables the page bound, unset means efd.DefaultMaxPages.
	MaxPages *int `json:"max_pages"`
	// ReportTypes are portal report type codes, unset means periodic transaction reports.
	ReportTypes []int `json:"report_types"`
	Workers     int   `json:"workers"`
	// Schedule is the cron spec used by the serve command.
	Schedule string `json:"schedule"`
}

type RosterConfig struct {
	Sources []string `json:"sources"`
	// TermsEndAfter is a YYYY-MM-DD date.
	TermsEndAfter string  `json:"terms_end_after"`
	Strategy      string  `json:"strategy"`
	Threshold     float64 `json:"threshold"`
	// TimeoutMs bounds each download of a remote source.
	TimeoutMs int `json:"timeout_ms"`
}

type Config struct {
	Portal  PortalConfig    `json:"portal"`
	Crawl   CrawlConfig     `json:"crawl"`
	Roster  RosterConfig    `json:"roster"`
	Store   store.Options   `json:"store"`
	Archive archive.Options `json:"archive"`
}

func Defaults() Config {
	maxPages := efd.DefaultMaxPages
	requestDelay := int(efd.DefaultRequestDelay / time.Millisecond)
	lookback := DefaultLookbackDays
	return Config{
		Portal: PortalConfig{
			BaseUrl:        efd.DefaultBaseUrl,
			UserAgent:      efd.DefaultUserAgent,
			RequestDelayMs: &requestDelay,
			TimeoutMs:      int(efd.DefaultTimeout / time.Millisecond),
		},
		Crawl: CrawlConfig{
			LookbackDays: &lookback,
			PageSize:     efd.DefaultPageSize,
			ReportTypes:  []int{efd.ReportTypePeriodicTransaction},
			MaxPages:     &maxPages,
			Workers:      1,
			Schedule:     "0 6 * * *",
		},
		Roster: RosterConfig{
			Sources:       []string{roster.CurrentLegislatorsUrl, roster.HistoricalLegislatorsUrl},
			TermsEndAfter: roster.DefaultTermsEndAfter.Format(time.DateOnly),
			Strategy:      "lenient",
			Threshold:     roster.DefaultJaroWinklerThreshold,
			TimeoutMs:     int(efd.DefaultTimeout / time.Millisecond),
		},
		Store: store.Options{
			Driver: store.DRIVER_SQLITE,
			Source: ".dev/state/sentinel.db",
		},
		Archive: archive.Options{
			Driver: archive.DRIVER_NONE,
		},
	}
}

// Load reads the config file at path (with its local override) and fills unset
// fields with defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}
	cfg, err = configutil.WithDefaults(cfg, Defaults())
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.Portal.RequestDelayMs != nil && *c.Portal.RequestDelayMs < 0 {
		errs = append(errs, fmt.Errorf("portal.request_delay_ms must not be negative"))
	}
	if c.Portal.Retries < 0 {
		errs = append(errs, fmt.Errorf("portal.retries must not be negative"))
	}
	if c.Crawl.LookbackDays != nil && *c.Crawl.LookbackDays < 0 {
		errs = append(errs, fmt.Errorf("crawl.lookback_days must not be negative"))
	}
	if c.Crawl.MaxPages != nil && *c.Crawl.MaxPages < 0 {
		errs = append(errs, fmt.Errorf("crawl.max_pages must not be negative"))
	}
	if c.Crawl.Since != "" {
		_, err := time.Parse(time.DateOnly, c.Crawl.Since)
		if err != nil {
			errs = append(errs, fmt.Errorf("crawl.since: %w", err))
		}
	}
	_, err := time.Parse(time.DateOnly, c.Roster.TermsEndAfter)
	if err != nil {
		errs = append(errs, fmt.Errorf("roster.terms_end_after: %w", err))
	}
	_, ok := roster.StrategyFromName(c.Roster.Strategy, c.Roster.Threshold)
	if !ok {
		errs = append(errs, fmt.Errorf("roster.strategy: unknown strategy '%s'", c.Roster.Strategy))
	}
	return errors.Join(errs...)
}

func (c PortalConfig) ClientOptions() efd.ClientOptions {
	delay := efd.DefaultRequestDelay
	if c.RequestDelayMs != nil {
		delay = time.Duration(*c.RequestDelayMs) * time.Millisecond
	}
	return efd.ClientOptions{
		BaseUrl:          c.BaseUrl,
		UserAgent:        c.UserAgent,
		RequestDelay:     delay,
		Timeout:          time.Duration(c.TimeoutMs) * time.Millisecond,
		Retries:          c.Retries,
		BypassCloudflare: c.BypassCloudflare,
	}
}

func (c CrawlConfig) CrawlOptions() efd.CrawlOptions {
	maxPages := efd.DefaultMaxPages
	if c.MaxPages != nil {
		maxPages = *c.MaxPages
	}
	return efd.CrawlOptions{
		PageSize:    c.PageSize,
		MaxPages:    maxPages,
		ReportTypes: c.ReportTypes,
	}
}

// SinceDate resolves the crawl start date relative to now.
func (c CrawlConfig) SinceDate(now time.Time) (time.Time, error) {
	if c.Since != "" {
		return time.ParseInLocation(time.DateOnly, c.Since, now.Location())
	}
	lookback := DefaultLookbackDays
	if c.LookbackDays != nil {
		lookback = *c.LookbackDays
	}
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return day.AddDate(0, 0, -lookback), nil
}

func (c RosterConfig) TermsEndAfterDate() (time.Time, error) {
	return time.Parse(time.DateOnly, c.TermsEndAfter)
}

// HttpClient is the client the roster loader downloads remote sources with.
func (c RosterConfig) HttpClient() *resty.Client {
	timeout := efd.DefaultTimeout
	if c.TimeoutMs > 0 {
		timeout = time.Duration(c.TimeoutMs) * time.Millisecond
	}
	return resty.New().SetTimeout(timeout)
}

func (c RosterConfig) ResolveStrategy() (roster.Strategy, error) {
	strategy, ok := roster.StrategyFromName(c.Strategy, c.Threshold)
	if !ok {
		return nil, fmt.Errorf("unknown strategy '%s'", c.Strategy)
	}
	return strategy, nil
}
