package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	table := []struct {
		input    string
		expected string
	}{
		{input: "  Apple Inc  ", expected: "Apple Inc"},
		{input: "\n\tApple\n\n   Inc\t", expected: "Apple Inc"},
		{input: "AAPL\u200b", expected: "AAPL"},
		{input: "", expected: ""},
	}

	for _, row := range table {
		require.Equal(t, row.expected, CleanText(row.input))
	}
}

func TestSelectionText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<table><tr><td>
			<a href="https://finance.yahoo.com/q?s=AAPL">AAPL</a>
		</td><td><div>Apple <span>Inc</span></div></td></tr></table>`,
	))
	require.NoError(t, err)

	cells := doc.Find("td")
	require.Equal(t, "AAPL", SelectionText(cells.Eq(0)))
	require.Equal(t, "Apple Inc", SelectionText(cells.Eq(1)))
}
