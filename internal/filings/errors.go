package filings

import "fmt"

// MalformedLinkError means a report link fragment did not contain a report id.
type MalformedLinkError struct {
	Fragment string
	Reason   string
}

func (e MalformedLinkError) Error() string {
	return fmt.Sprintf("malformed report link (%s): %q", e.Reason, e.Fragment)
}

// AmountParseError means an amount cell did not have the form "$<min> - $<max>".
type AmountParseError struct {
	Value  string
	Reason string
}

func (e AmountParseError) Error() string {
	return fmt.Sprintf("parse amount (%s): %q", e.Reason, e.Value)
}

// DateParseError means a date cell was not month/day/year.
type DateParseError struct {
	Value string
	Err   error
}

func (e DateParseError) Error() string {
	return fmt.Sprintf("parse date %q: %s", e.Value, e.Err)
}

func (e DateParseError) Unwrap() error {
	return e.Err
}

// RowShapeError means a table row did not have the expected cells.
type RowShapeError struct {
	Cells  int
	Reason string
}

func (e RowShapeError) Error() string {
	return fmt.Sprintf("malformed transaction row with %d cells: %s", e.Cells, e.Reason)
}
