package filings

import (
	"strconv"
	"strings"
	"time"
)

var amountReplacer = strings.NewReplacer("$", "", ",", "", " ", "", "\u00a0", "")

func parseDollars(side string) (int64, bool) {
	cleaned := amountReplacer.Replace(strings.TrimSpace(side))
	if cleaned == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// ParseAmount parses an amount range of the form "$1,001 - $15,000" into its bounds.
func ParseAmount(value string) (min int64, max int64, err error) {
	sides := strings.Split(value, "-")
	if len(sides) != 2 {
		return 0, 0, AmountParseError{Value: value, Reason: "expected exactly one '-' separator"}
	}

	min, ok := parseDollars(sides[0])
	if !ok {
		return 0, 0, AmountParseError{Value: value, Reason: "lower bound is not a dollar amount"}
	}
	max, ok = parseDollars(sides[1])
	if !ok {
		return 0, 0, AmountParseError{Value: value, Reason: "upper bound is not a dollar amount"}
	}
	if max < min {
		return 0, 0, AmountParseError{Value: value, Reason: "upper bound is below lower bound"}
	}
	return min, max, nil
}

const transactionDateLayout = "1/2/2006"

// ParseDate parses a month/day/year date cell.
func ParseDate(value string) (time.Time, error) {
	date, err := time.Parse(transactionDateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, DateParseError{Value: value, Err: err}
	}
	return date, nil
}
