// Package filings classifies periodic transaction reports and turns their
// transaction tables into Transaction records.
package filings

import (
	"stocksentinel-backend/internal/roster"
	"time"
)

// Transaction is a single stock transaction disclosed in a report, it is uniquely
// identified by (PtrID, PtrRow) across crawls.
type Transaction struct {
	PtrID  string
	PtrRow int

	TransactionDate time.Time
	// Transactor is nil when the filer could not be resolved.
	Transactor *roster.Filer

	Owner           string
	Ticker          string
	AssetName       string
	AssetType       string
	TransactionType string
	AmountMin       int64
	AmountMax       int64
	Comment         string
}

// Row is a transaction table row decoded into named cells.
type Row struct {
	Ordinal         int
	Date            string
	Owner           string
	Ticker          string
	AssetName       string
	AssetType       string
	TransactionType string
	Amount          string
	Comment         string
}

type Outcome int

const (
	OUTCOME_PARSED Outcome = iota
	OUTCOME_SKIPPED
	OUTCOME_FAILED
)

func (o Outcome) String() string {
	switch o {
	case OUTCOME_PARSED:
		return "parsed"
	case OUTCOME_SKIPPED:
		return "skipped"
	case OUTCOME_FAILED:
		return "failed"
	}
	return "unknown"
}

// RowResult is the outcome of parsing a single table row, Transaction is only
// set for OUTCOME_PARSED and Err only for OUTCOME_FAILED.
type RowResult struct {
	Index       int
	Outcome     Outcome
	Transaction Transaction
	Err         error
}

// Report is the result of parsing a whole filing document.
type Report struct {
	PtrID   string
	Results []RowResult
}
