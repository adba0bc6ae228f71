package filings

import (
	"stocksentinel-backend/internal/roster"
	"stocksentinel-backend/pkg/htmlutil"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Metadata is the part of a search result row the parser needs.
type Metadata struct {
	FirstName    string
	LastName     string
	LinkFragment string
}

// FilerResolver resolves the names stated on a filing to a known filer.
type FilerResolver interface {
	Resolve(first, last string) (roster.Filer, bool)
}

const rowCellCount = 9

// decodeRow validates the shape of a transaction table row and names its cells.
func decodeRow(tr *goquery.Selection) (Row, error) {
	cells := tr.ChildrenFiltered("td")
	if cells.Length() != rowCellCount {
		return Row{}, RowShapeError{Cells: cells.Length(), Reason: "expected 9 cells"}
	}

	text := make([]string, rowCellCount)
	cells.Each(func(i int, cell *goquery.Selection) {
		text[i] = htmlutil.SelectionText(cell)
	})

	ordinal, err := strconv.Atoi(text[0])
	if err != nil || ordinal < 1 {
		return Row{}, RowShapeError{Cells: rowCellCount, Reason: "row number is not a positive integer"}
	}

	return Row{
		Ordinal:         ordinal,
		Date:            text[1],
		Owner:           text[2],
		Ticker:          text[3],
		AssetName:       text[4],
		AssetType:       text[5],
		TransactionType: text[6],
		Amount:          text[7],
		Comment:         text[8],
	}, nil
}

// IsStock reports whether an asset type cell denotes an equity.
func IsStock(assetType string) bool {
	return strings.Contains(strings.ToLower(assetType), "stock")
}

func normalizeComment(comment string) string {
	if comment == "--" {
		return ""
	}
	return comment
}

func toTransaction(ptrId string, row Row, transactor *roster.Filer) (Transaction, error) {
	min, max, err := ParseAmount(row.Amount)
	if err != nil {
		return Transaction{}, err
	}
	date, err := ParseDate(row.Date)
	if err != nil {
		return Transaction{}, err
	}

	return Transaction{
		PtrID:           ptrId,
		PtrRow:          row.Ordinal,
		TransactionDate: date,
		Transactor:      transactor,
		Owner:           row.Owner,
		Ticker:          row.Ticker,
		AssetName:       row.AssetName,
		AssetType:       row.AssetType,
		TransactionType: row.TransactionType,
		AmountMin:       min,
		AmountMax:       max,
		Comment:         normalizeComment(row.Comment),
	}, nil
}

// Parse converts the transaction table of a filing document into per-row results.
//
// The only error returned is a MalformedLinkError for the filing as a whole, problems
// with individual rows are reported through RowResult.
func Parse(doc *goquery.Document, meta Metadata, resolver FilerResolver) (Report, error) {
	ptrId, err := ExtractReportID(meta.LinkFragment)
	if err != nil {
		return Report{}, err
	}
	report := Report{PtrID: ptrId}

	tbody := doc.Find("tbody").First()
	if tbody.Length() == 0 {
		return report, nil
	}

	var transactor *roster.Filer
	filer, ok := resolver.Resolve(meta.FirstName, meta.LastName)
	if ok {
		transactor = &filer
	}

	tbody.ChildrenFiltered("tr").Each(func(i int, tr *goquery.Selection) {
		row, err := decodeRow(tr)
		if err != nil {
			report.Results = append(report.Results, RowResult{Index: i, Outcome: OUTCOME_FAILED, Err: err})
			return
		}
		if !IsStock(row.AssetType) {
			report.Results = append(report.Results, RowResult{Index: i, Outcome: OUTCOME_SKIPPED})
			return
		}

		txn, err := toTransaction(ptrId, row, transactor)
		if err != nil {
			report.Results = append(report.Results, RowResult{Index: i, Outcome: OUTCOME_FAILED, Err: err})
			return
		}
		report.Results = append(report.Results, RowResult{Index: i, Outcome: OUTCOME_PARSED, Transaction: txn})
	})

	return report, nil
}
