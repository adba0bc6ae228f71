package filings

import (
	"stocksentinel-backend/pkg/htmlutil"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type Kind int

const (
	// KIND_ELECTRONIC is an electronic filing whose document has not been inspected yet.
	KIND_ELECTRONIC Kind = iota
	KIND_PAPER
	KIND_NEW
	KIND_AMENDMENT
)

func (k Kind) String() string {
	switch k {
	case KIND_ELECTRONIC:
		return "electronic"
	case KIND_PAPER:
		return "paper"
	case KIND_NEW:
		return "new"
	case KIND_AMENDMENT:
		return "amendment"
	}
	return "unknown"
}

// ClassifyLink decides from metadata alone whether a filing is a scanned paper
// filing or an electronic one.
func ClassifyLink(fragment string) Kind {
	if IsPaper(fragment) {
		return KIND_PAPER
	}
	return KIND_ELECTRONIC
}

// ClassifyDocument decides whether a fetched electronic filing is an amendment of an
// earlier filing or a new one, by looking at its title heading.
func ClassifyDocument(doc *goquery.Document) Kind {
	title := strings.ToLower(htmlutil.SelectionText(doc.Find("h1")))
	if strings.Contains(title, "amendment") {
		return KIND_AMENDMENT
	}
	return KIND_NEW
}
