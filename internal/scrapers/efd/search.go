package efd

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	SearchDataPath = "/search/report/data/"

	DefaultPageSize = 100
	// ReportTypePeriodicTransaction is the portal's report type id for PTRs.
	ReportTypePeriodicTransaction = 11
)

// ReportRow is one entry of a search results page.
type ReportRow struct {
	FirstName string
	LastName  string
	Office    string
	// LinkFragment is the raw html anchor pointing to the filing document.
	LinkFragment string
	DateReceived string
}

type SearchQuery struct {
	Since       time.Time
	PageSize    int
	ReportTypes []int
	FilerTypes  []int
}

// Page is a decoded search results page. RawCount counts every entry the portal
// returned including the ones that failed to decode, pagination ends when it is 0.
type Page struct {
	Rows      []ReportRow
	Malformed []error
	RawCount  int
}

type searchResponse struct {
	Result       string  `json:"result"`
	RecordsTotal int     `json:"recordsTotal"`
	Data         [][]any `json:"data"`
}

func formatIntList(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func decodeReportRow(fields []any) (ReportRow, error) {
	if len(fields) < 5 {
		return ReportRow{}, ProtocolError{
			Element: "search row",
			Reason:  fmt.Sprintf("expected at least 5 fields, got %d", len(fields)),
		}
	}
	values := make([]string, 5)
	for i := 0; i < 5; i++ {
		str, ok := fields[i].(string)
		if !ok {
			return ReportRow{}, ProtocolError{
				Element: "search row",
				Reason:  fmt.Sprintf("field %d is %T, not a string", i, fields[i]),
			}
		}
		values[i] = str
	}
	return ReportRow{
		FirstName:    strings.TrimSpace(values[0]),
		LastName:     strings.TrimSpace(values[1]),
		Office:       strings.TrimSpace(values[2]),
		LinkFragment: values[3],
		DateReceived: strings.TrimSpace(values[4]),
	}, nil
}

func (q SearchQuery) form(token string, offset int) map[string]string {
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	reportTypes := q.ReportTypes
	if len(reportTypes) == 0 {
		reportTypes = []int{ReportTypePeriodicTransaction}
	}
	return map[string]string{
		"start":                strconv.Itoa(offset),
		"length":               strconv.Itoa(pageSize),
		"report_types":         formatIntList(reportTypes),
		"filer_types":          formatIntList(q.FilerTypes),
		"submitted_start_date": q.Since.Format("01/02/2006") + " 00:00:00",
		"submitted_end_date":   "",
		"candidate_state":      "",
		"senator_state":        "",
		"office_id":            "",
		"first_name":           "",
		"last_name":            "",
		"csrfmiddlewaretoken":  token,
	}
}

// SearchPage requests a single page of search results starting at offset.
func (c *Client) SearchPage(ctx context.Context, token string, query SearchQuery, offset int) (Page, error) {
	res, err := c.postForm(ctx, SearchDataPath, c.absolute(SearchPath), query.form(token, offset))
	if err != nil {
		return Page{}, err
	}

	var decoded searchResponse
	err = json.Unmarshal(res.Body(), &decoded)
	if err != nil {
		return Page{}, ProtocolError{Element: "search response", Reason: err.Error()}
	}

	page := Page{RawCount: len(decoded.Data)}
	for i, fields := range decoded.Data {
		row, err := decodeReportRow(fields)
		if err != nil {
			page.Malformed = append(page.Malformed, fmt.Errorf("row %d at offset %d: %w", i, offset, err))
			continue
		}
		page.Rows = append(page.Rows, row)
	}
	return page, nil
}
