package filings

import "strings"

// PaperReportPrefix is the path prefix of scanned (paper) filings.
const PaperReportPrefix = "/search/view/paper/"

// ReportPath returns the quoted url path inside a report link fragment such as
// `<a href="/search/view/ptr/1a2b/" target="_blank">...</a>`.
func ReportPath(fragment string) (string, error) {
	start := strings.IndexByte(fragment, '"')
	if start < 0 {
		return "", MalformedLinkError{Fragment: fragment, Reason: "no opening quote"}
	}
	end := strings.IndexByte(fragment[start+1:], '"')
	if end < 0 {
		return "", MalformedLinkError{Fragment: fragment, Reason: "no closing quote"}
	}
	return fragment[start+1 : start+1+end], nil
}

// ExtractReportID returns the report id of a link fragment, it is the path segment
// between the 4th and 5th '/' of the quoted path (/search/view/<kind>/<id>/).
func ExtractReportID(fragment string) (string, error) {
	path, err := ReportPath(fragment)
	if err != nil {
		return "", err
	}

	segments := strings.Split(path, "/")
	// n delimiters yield n+1 segments, the id needs the 5th delimiter to be present.
	if len(segments) < 6 {
		return "", MalformedLinkError{Fragment: fragment, Reason: "too few path segments"}
	}
	id := segments[4]
	if id == "" {
		return "", MalformedLinkError{Fragment: fragment, Reason: "empty report id"}
	}
	return id, nil
}

// IsPaper reports whether a link fragment points to a scanned filing.
func IsPaper(fragment string) bool {
	return strings.Contains(fragment, PaperReportPrefix)
}
