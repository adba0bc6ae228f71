package efd

import (
	"bytes"
	"context"

	"github.com/PuerkitoBio/goquery"
)

// Document is a fetched filing page.
type Document struct {
	Path string
	Raw  []byte
	Doc  *goquery.Document
}

// FetchReport downloads the filing document at the given portal path.
func (c *Client) FetchReport(ctx context.Context, path string) (Document, error) {
	res, err := c.get(ctx, path, c.absolute(SearchPath))
	if err != nil {
		return Document{}, err
	}
	body := res.Body()
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(body))
	if err != nil {
		return Document{}, ProtocolError{Element: "report document", Reason: err.Error()}
	}
	return Document{
		Path: path,
		Raw:  body,
		Doc:  doc,
	}, nil
}
