// Package efdtest provides an in-process fake of the disclosure search portal.
package efdtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
)

const (
	FormToken    = "form-token"
	SessionToken = "session-token"
)

const landingPage = `<!DOCTYPE html>
<html><body>
<form method="post" action="/search/home/">
  <input type="hidden" name="csrfmiddlewaretoken" value="%s">
  <input type="checkbox" name="prohibition_agreement" value="1">
</form>
</body></html>`

const searchPage = `<!DOCTYPE html>
<html><body><form id="searchForm"></form></body></html>`

// Portal is a fake search portal, configure it before the first request.
type Portal struct {
	Server *httptest.Server

	// Pages are returned in order for successive offsets, past the last page an empty
	// page is returned.
	Pages [][][]any
	// Reports maps a document path to its html.
	Reports map[string]string

	OmitFormToken bool
	RejectConsent bool
	OmitSearchForm bool

	mu             sync.Mutex
	searchForms    []map[string]string
	documentPaths  []string
	consentReferer string
}

func NewPortal() *Portal {
	p := &Portal{Reports: map[string]string{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/search/home/", p.home)
	mux.HandleFunc("/search/report/data/", p.search)
	mux.HandleFunc("/search/view/", p.document)
	p.Server = httptest.NewServer(mux)
	return p
}

func (p *Portal) URL() string {
	return p.Server.URL
}

func (p *Portal) Close() {
	p.Server.Close()
}

// Row builds a search result entry the way the portal encodes it.
func Row(first, last, path string) []any {
	return []any{
		first,
		last,
		fmt.Sprintf("%s, %s (Senator)", last, first),
		fmt.Sprintf(`<a href="%s" target="_blank">Periodic Transaction Report</a>`, path),
		"01/30/2024",
	}
}

// SearchForms returns every form submitted to the search endpoint.
func (p *Portal) SearchForms() []map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]map[string]string(nil), p.searchForms...)
}

// DocumentPaths returns every document path requested.
func (p *Portal) DocumentPaths() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.documentPaths...)
}

func (p *Portal) ConsentReferer() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.consentReferer
}

func flatten(r *http.Request) map[string]string {
	out := map[string]string{}
	for key, values := range r.PostForm {
		if len(values) > 0 {
			out[key] = values[0]
		}
	}
	return out
}

func (p *Portal) home(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if p.OmitFormToken {
			fmt.Fprint(w, "<html><body>maintenance</body></html>")
			return
		}
		fmt.Fprintf(w, landingPage, FormToken)
	case http.MethodPost:
		err := r.ParseForm()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		p.mu.Lock()
		p.consentReferer = r.Header.Get("referer")
		p.mu.Unlock()

		accepted := r.PostForm.Get("prohibition_agreement") == "1" &&
			r.PostForm.Get("csrfmiddlewaretoken") == FormToken
		if !accepted || p.RejectConsent {
			fmt.Fprintf(w, landingPage, FormToken)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: SessionToken, Path: "/"})
		if p.OmitSearchForm {
			fmt.Fprint(w, "<html><body></body></html>")
			return
		}
		fmt.Fprint(w, searchPage)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (p *Portal) search(w http.ResponseWriter, r *http.Request) {
	err := r.ParseForm()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	form := flatten(r)

	p.mu.Lock()
	p.searchForms = append(p.searchForms, form)
	p.mu.Unlock()

	if form["csrfmiddlewaretoken"] != SessionToken {
		http.Error(w, "csrf verification failed", http.StatusForbidden)
		return
	}

	start, err := strconv.Atoi(form["start"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	length, err := strconv.Atoi(form["length"])
	if err != nil || length <= 0 {
		http.Error(w, "bad length", http.StatusBadRequest)
		return
	}

	data := [][]any{}
	index := start / length
	if index < len(p.Pages) {
		data = p.Pages[index]
	}

	w.Header().Set("content-type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"result":       "ok",
		"recordsTotal": len(data),
		"data":         data,
	})
}

func (p *Portal) document(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.documentPaths = append(p.documentPaths, r.URL.Path)
	p.mu.Unlock()

	html, ok := p.Reports[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	fmt.Fprint(w, html)
}
