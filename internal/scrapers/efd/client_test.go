package efd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"stocksentinel-backend/internal/components/telemetry"
	"stocksentinel-backend/internal/scrapers/efd/efdtest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/require"
)

func newTestClient(t testing.TB, baseUrl string, opts ClientOptions) (*Client, *telemetry.Recorder) {
	t.Helper()
	opts.BaseUrl = baseUrl
	rec := telemetry.NewRecorder()
	client, err := NewClient(opts, rec)
	require.NoError(t, err)
	return client, rec
}

func TestEstablishSession(t *testing.T) {
	portal := efdtest.NewPortal()
	defer portal.Close()

	client, rec := newTestClient(t, portal.URL(), ClientOptions{})
	token, err := client.EstablishSession(context.Background())
	require.NoError(t, err)
	require.Equal(t, efdtest.SessionToken, token)
	require.Equal(t, portal.URL()+LandingPath, portal.ConsentReferer())
	require.Empty(t, rec.Reports("warning", ""))
}

func TestEstablishSessionMissingFormToken(t *testing.T) {
	portal := efdtest.NewPortal()
	defer portal.Close()
	portal.OmitFormToken = true

	client, _ := newTestClient(t, portal.URL(), ClientOptions{})
	_, err := client.EstablishSession(context.Background())

	var protocolErr ProtocolError
	require.ErrorAs(t, err, &protocolErr)
	require.Equal(t, "csrfmiddlewaretoken", protocolErr.Element)
}

func TestEstablishSessionRejected(t *testing.T) {
	portal := efdtest.NewPortal()
	defer portal.Close()
	portal.RejectConsent = true

	client, _ := newTestClient(t, portal.URL(), ClientOptions{})
	_, err := client.EstablishSession(context.Background())

	var consentErr ConsentError
	require.ErrorAs(t, err, &consentErr)
	require.Equal(t, "agreement not accepted", consentErr.Reason)
}

func TestEstablishSessionMissingSearchForm(t *testing.T) {
	portal := efdtest.NewPortal()
	defer portal.Close()
	portal.OmitSearchForm = true

	client, rec := newTestClient(t, portal.URL(), ClientOptions{})
	token, err := client.EstablishSession(context.Background())
	require.NoError(t, err)
	require.Equal(t, efdtest.SessionToken, token)
	require.Len(t, rec.Reports("warning", report_client_establish_session), 1)
}

func TestSearchPageForm(t *testing.T) {
	portal := efdtest.NewPortal()
	defer portal.Close()
	portal.Pages = [][][]any{{
		efdtest.Row("Jon", "Smith", "/search/view/ptr/abc-123/"),
		{"only", "two"},
	}}

	client, _ := newTestClient(t, portal.URL(), ClientOptions{})
	token, err := client.EstablishSession(context.Background())
	require.NoError(t, err)

	since := time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)
	page, err := client.SearchPage(context.Background(), token, SearchQuery{Since: since}, 0)
	require.NoError(t, err)
	require.Equal(t, 2, page.RawCount)
	require.Len(t, page.Malformed, 1)

	var protocolErr ProtocolError
	require.ErrorAs(t, page.Malformed[0], &protocolErr)

	expectedRows := []ReportRow{{
		FirstName:    "Jon",
		LastName:     "Smith",
		Office:       "Smith, Jon (Senator)",
		LinkFragment: `<a href="/search/view/ptr/abc-123/" target="_blank">Periodic Transaction Report</a>`,
		DateReceived: "01/30/2024",
	}}
	if diff := cmp.Diff(expectedRows, page.Rows); diff != "" {
		t.Fatal(diff)
	}

	forms := portal.SearchForms()
	require.Len(t, forms, 1)
	expectedForm := map[string]string{
		"start":                "0",
		"length":               "100",
		"report_types":         "[11]",
		"filer_types":          "[]",
		"submitted_start_date": "01/05/2024 00:00:00",
		"submitted_end_date":   "",
		"candidate_state":      "",
		"senator_state":        "",
		"office_id":            "",
		"first_name":           "",
		"last_name":            "",
		"csrfmiddlewaretoken":  efdtest.SessionToken,
	}
	if diff := cmp.Diff(expectedForm, forms[0]); diff != "" {
		t.Fatal(diff)
	}
}

func TestSearchPageRejectsNonJson(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>session expired</html>")
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL, ClientOptions{})
	_, err := client.SearchPage(context.Background(), "token", SearchQuery{}, 0)

	var protocolErr ProtocolError
	require.ErrorAs(t, err, &protocolErr)
}

func TestFetchReportNotFound(t *testing.T) {
	portal := efdtest.NewPortal()
	defer portal.Close()

	client, _ := newTestClient(t, portal.URL(), ClientOptions{})
	_, err := client.FetchReport(context.Background(), "/search/view/ptr/missing/")

	var transportErr TransportError
	require.ErrorAs(t, err, &transportErr)
	require.Equal(t, http.StatusNotFound, transportErr.StatusCode)
}

func TestFetchReport(t *testing.T) {
	portal := efdtest.NewPortal()
	defer portal.Close()
	portal.Reports["/search/view/ptr/abc-123/"] = "<html><body><h1>Periodic Transaction Report</h1></body></html>"

	client, _ := newTestClient(t, portal.URL(), ClientOptions{})
	doc, err := client.FetchReport(context.Background(), "/search/view/ptr/abc-123/")
	require.NoError(t, err)
	require.Equal(t, "Periodic Transaction Report", doc.Doc.Find("h1").Text())
	require.NotEmpty(t, doc.Raw)
}

func failingServer(t testing.TB, failures int32) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		if failures < 0 || n <= failures {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, "<html><body>ok</body></html>")
	}))
	return server, &hits
}

func TestNoRetryByDefault(t *testing.T) {
	server, hits := failingServer(t, 1)
	defer server.Close()

	client, _ := newTestClient(t, server.URL, ClientOptions{})
	_, err := client.FetchReport(context.Background(), "/search/view/ptr/x/")

	var transportErr TransportError
	require.ErrorAs(t, err, &transportErr)
	require.Equal(t, http.StatusInternalServerError, transportErr.StatusCode)
	require.EqualValues(t, 1, hits.Load())
}

func TestRetry(t *testing.T) {
	server, hits := failingServer(t, 2)
	defer server.Close()

	client, _ := newTestClient(t, server.URL, ClientOptions{Retries: 2})
	_, err := client.FetchReport(context.Background(), "/search/view/ptr/x/")
	require.NoError(t, err)
	require.EqualValues(t, 3, hits.Load())
}

func TestBreakerOpens(t *testing.T) {
	server, hits := failingServer(t, -1)
	defer server.Close()

	client, _ := newTestClient(t, server.URL, ClientOptions{})
	for i := 0; i < 3; i++ {
		_, err := client.FetchReport(context.Background(), "/search/view/ptr/x/")
		require.Error(t, err)
	}
	_, err := client.FetchReport(context.Background(), "/search/view/ptr/x/")
	require.True(t, errors.Is(err, gobreaker.ErrOpenState), err)

	var transportErr TransportError
	require.ErrorAs(t, err, &transportErr)
	require.EqualValues(t, 3, hits.Load())
}

func TestRequestDelay(t *testing.T) {
	portal := efdtest.NewPortal()
	defer portal.Close()

	delay := 50 * time.Millisecond
	client, _ := newTestClient(t, portal.URL(), ClientOptions{RequestDelay: delay})

	start := time.Now()
	_, err := client.EstablishSession(context.Background())
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(start), 2*delay)
}

func TestRequestDelayStartsAfterSlowResponse(t *testing.T) {
	var mu sync.Mutex
	var finished, arrived []time.Time
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		arrived = append(arrived, time.Now())
		first := len(arrived) == 1
		mu.Unlock()
		if first {
			time.Sleep(300 * time.Millisecond)
		}
		fmt.Fprint(w, "<html><body>ok</body></html>")
		mu.Lock()
		finished = append(finished, time.Now())
		mu.Unlock()
	}))
	defer server.Close()

	delay := 150 * time.Millisecond
	client, _ := newTestClient(t, server.URL, ClientOptions{RequestDelay: delay})
	for i := 0; i < 2; i++ {
		_, err := client.FetchReport(context.Background(), "/search/view/ptr/x/")
		require.NoError(t, err)
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, arrived, 2)
	require.GreaterOrEqual(t, arrived[1].Sub(finished[0]), delay-10*time.Millisecond)
}

func TestRequestDelaySerializesGoroutines(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			seen := maxInFlight.Load()
			if n <= seen || maxInFlight.CompareAndSwap(seen, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		fmt.Fprint(w, "<html><body>ok</body></html>")
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL, ClientOptions{RequestDelay: 10 * time.Millisecond})

	errs := make(chan error, 4)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.FetchReport(context.Background(), "/search/view/ptr/x/")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.EqualValues(t, 1, maxInFlight.Load())
}

func TestRequestTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
		fmt.Fprint(w, "<html><body>late</body></html>")
	}))
	defer server.Close()
	defer close(release)

	timeout := 200 * time.Millisecond
	client, rec := newTestClient(t, server.URL, ClientOptions{Timeout: timeout})

	start := time.Now()
	_, err := client.FetchReport(context.Background(), "/search/view/ptr/x/")
	elapsed := time.Since(start)

	var transportErr TransportError
	require.ErrorAs(t, err, &transportErr)
	require.Zero(t, transportErr.StatusCode)
	require.Less(t, elapsed, time.Second)
	require.Len(t, rec.Reports("broken", report_client_request), 1)
}

func TestRequestDelayHonorsContext(t *testing.T) {
	server, hits := failingServer(t, 0)
	defer server.Close()

	client, _ := newTestClient(t, server.URL, ClientOptions{RequestDelay: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.FetchReport(ctx, "/search/view/ptr/x/")

	var transportErr TransportError
	require.ErrorAs(t, err, &transportErr)
	require.Zero(t, hits.Load())
}
