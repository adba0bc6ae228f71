package filings

import (
	"os"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func openFixture(t *testing.T, name string) *goquery.Document {
	f, err := os.Open("testdata/" + name)
	require.NoError(t, err)
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	require.NoError(t, err)
	return doc
}

func TestClassifyLink(t *testing.T) {
	paper := []string{
		`<a href="/search/view/paper/1234ABCD/" target="_blank">Periodic Transaction Report</a>`,
		`<a href="/search/view/paper/x/">amendment</a>`,
		`/search/view/paper/`,
	}
	for _, fragment := range paper {
		require.Equal(t, KIND_PAPER, ClassifyLink(fragment), fragment)
	}

	electronic := []string{
		`<a href="/search/view/ptr/1234ABCD/" target="_blank">Periodic Transaction Report</a>`,
		`<a href="/search/view/ptr/paper/">ptr</a>`,
		``,
	}
	for _, fragment := range electronic {
		require.Equal(t, KIND_ELECTRONIC, ClassifyLink(fragment), fragment)
	}
}

func TestClassifyDocument(t *testing.T) {
	require.Equal(t, KIND_NEW, ClassifyDocument(openFixture(t, "ptr_new.html")))
	require.Equal(t, KIND_AMENDMENT, ClassifyDocument(openFixture(t, "ptr_amendment.html")))
	require.Equal(t, KIND_NEW, ClassifyDocument(openFixture(t, "ptr_no_table.html")))
}
