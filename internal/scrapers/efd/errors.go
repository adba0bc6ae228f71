package efd

import (
	"errors"
	"fmt"
)

// ProtocolError means the portal responded with markup or json that is missing
// something the scraper depends on, usually because the portal changed.
type ProtocolError struct {
	Element string
	Reason  string
}

func (e ProtocolError) Error() string {
	return fmt.Sprintf("efd protocol: %s: %s", e.Element, e.Reason)
}

// ConsentError means the consent flow did not yield a usable session.
type ConsentError struct {
	Reason string
}

func (e ConsentError) Error() string {
	return fmt.Sprintf("efd consent: %s", e.Reason)
}

// TransportError is a network failure, timeout or unexpected http status.
type TransportError struct {
	Method string
	Url    string
	// StatusCode is 0 when no response was received.
	StatusCode int
	Err        error
}

func (e TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("efd transport: %s %s: status %d", e.Method, e.Url, e.StatusCode)
	}
	return fmt.Sprintf("efd transport: %s %s: %s", e.Method, e.Url, e.Err)
}

func (e TransportError) Unwrap() error {
	return e.Err
}

// ErrPageLimit is returned when the page after the last allowed one still has rows.
var ErrPageLimit = errors.New("efd crawl: more results past the page limit")
