package efd

import (
	"context"
	"stocksentinel-backend/internal/components/assert"
	"stocksentinel-backend/internal/components/telemetry"
	"time"
)

const (
	DefaultMaxPages = 1000

	report_crawler_decode_row = "crawler.decode-row"
	report_crawler_pages      = "crawler.pages"
)

// Pager fetches a single page of search results, it is implemented by Client.
type Pager interface {
	SearchPage(ctx context.Context, token string, query SearchQuery, offset int) (Page, error)
}

type CrawlOptions struct {
	PageSize int
	// MaxPages bounds the number of non-empty pages handled, 0 means no bound.
	// One more page is requested past the bound to see whether the results ended.
	MaxPages    int
	ReportTypes []int
}

type CrawlStats struct {
	Pages     int
	Rows      int
	Malformed int
}

// RowHandler receives every decoded row in portal order, returning an error aborts the crawl.
type RowHandler func(ctx context.Context, row ReportRow) error

type Crawler struct {
	pager   Pager
	options CrawlOptions
	tel     telemetry.API
}

func NewCrawler(pager Pager, options CrawlOptions, tel telemetry.API) Crawler {
	assert.NotNil(pager)
	assert.NotNil(tel)
	if options.PageSize <= 0 {
		options.PageSize = DefaultPageSize
	}
	if options.MaxPages < 0 {
		options.MaxPages = 0
	}
	return Crawler{
		pager:   pager,
		options: options,
		tel:     telemetry.NewScopedAPI("efd_scraper", tel),
	}
}

// Crawl walks the search results submitted on or after since, page by page, until the
// portal returns an empty page.
func (c Crawler) Crawl(ctx context.Context, token string, since time.Time, handle RowHandler) (CrawlStats, error) {
	query := SearchQuery{
		Since:       since,
		PageSize:    c.options.PageSize,
		ReportTypes: c.options.ReportTypes,
	}

	var stats CrawlStats
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		page, err := c.pager.SearchPage(ctx, token, query, offset)
		if err != nil {
			return stats, err
		}
		stats.Pages++
		c.tel.ReportCount(report_crawler_pages, int64(stats.Pages))

		if page.RawCount == 0 {
			return stats, nil
		}
		if c.options.MaxPages > 0 && stats.Pages > c.options.MaxPages {
			return stats, ErrPageLimit
		}

		for _, malformed := range page.Malformed {
			stats.Malformed++
			c.tel.ReportWarning(report_crawler_decode_row, malformed)
		}
		for _, row := range page.Rows {
			stats.Rows++
			err = handle(ctx, row)
			if err != nil {
				return stats, err
			}
		}

		offset += c.options.PageSize
	}
}
