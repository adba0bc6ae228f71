package efd

import (
	"bytes"
	"context"

	"github.com/PuerkitoBio/goquery"
)

const (
	LandingPath = "/search/home/"
	SearchPath  = "/search/"

	report_client_establish_session = "client.establish-session"
)

// EstablishSession accepts the portal's usage agreement and returns the csrf token
// that must accompany every search request of the session.
func (c *Client) EstablishSession(ctx context.Context) (string, error) {
	res, err := c.get(ctx, LandingPath, "")
	if err != nil {
		return "", err
	}
	landing, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return "", err
	}

	input := landing.Find("input[name=csrfmiddlewaretoken]")
	if input.Length() == 0 {
		return "", ProtocolError{Element: "csrfmiddlewaretoken", Reason: "not found on landing page"}
	}
	formToken := input.AttrOr("value", "")
	if formToken == "" {
		return "", ProtocolError{Element: "csrfmiddlewaretoken", Reason: "empty value"}
	}

	res, err = c.postForm(ctx, LandingPath, c.absolute(LandingPath), map[string]string{
		"prohibition_agreement": "1",
		"csrfmiddlewaretoken":   formToken,
	})
	if err != nil {
		return "", err
	}
	accepted, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return "", err
	}

	hasForm := accepted.Find("#searchForm").Length() > 0
	token := c.cookie("csrftoken")
	if !hasForm && token == "" {
		return "", ConsentError{Reason: "agreement not accepted"}
	}
	if token == "" {
		return "", ConsentError{Reason: "no csrftoken cookie after consent"}
	}
	if !hasForm {
		c.tel.ReportWarning(report_client_establish_session, "search form missing after consent, continuing with cookie")
	}

	c.tel.ReportDebug("session established")
	return token, nil
}
