package filings

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	table := []struct {
		input string
		min   int64
		max   int64
	}{
		{input: "$1,001 - $15,000", min: 1001, max: 15000},
		{input: "$15,001 - $50,000", min: 15001, max: 50000},
		{input: "$1,000,001 - $5,000,000", min: 1000001, max: 5000000},
		{input: "  $250,001-$500,000 ", min: 250001, max: 500000},
		{input: "$1,001 - $1,001", min: 1001, max: 1001},
	}

	for _, row := range table {
		min, max, err := ParseAmount(row.input)
		require.NoError(t, err, row.input)
		require.Equal(t, row.min, min, row.input)
		require.Equal(t, row.max, max, row.input)
		require.LessOrEqual(t, min, max)
	}
}

func TestParseAmountGenerated(t *testing.T) {
	bounds := [][2]int64{
		{0, 1}, {1001, 15000}, {999, 1000}, {1000000, 50000000}, {123456789, 987654321},
	}
	for _, b := range bounds {
		input := fmt.Sprintf("$%s - $%s", withThousands(b[0]), withThousands(b[1]))
		min, max, err := ParseAmount(input)
		require.NoError(t, err, input)
		require.Equal(t, b[0], min)
		require.Equal(t, b[1], max)
	}
}

func withThousands(n int64) string {
	s := fmt.Sprint(n)
	var out []byte
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	return string(out)
}

func TestParseAmountMalformed(t *testing.T) {
	table := []string{
		"Over $50,000,000",
		"$1,001 $15,000",
		"$1,001 - $15,000 - $20,000",
		"$1,001 - ",
		"abc - $15,000",
		"$1,001 - $15,000 USD",
		"$15,000 - $1,001",
		"",
	}

	for _, input := range table {
		_, _, err := ParseAmount(input)
		var amountErr AmountParseError
		require.True(t, errors.As(err, &amountErr), input)
	}
}

func TestParseDate(t *testing.T) {
	date, err := ParseDate("01/15/2024")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC), date)

	date, err = ParseDate("1/5/2024")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC), date)

	for _, input := range []string{"2024-01-15", "15/01/2024", "", "01/15"} {
		_, err := ParseDate(input)
		var dateErr DateParseError
		require.True(t, errors.As(err, &dateErr), input)
	}
}
