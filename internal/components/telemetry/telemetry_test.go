package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestScopedAPI(t *testing.T) {
	rec := NewRecorder()
	scoped := NewScopedAPI("efd_scraper", rec)

	scoped.ReportBroken("client.search-page", "boom")
	scoped.ReportWarning("crawler.decode-row")
	scoped.ReportCount("crawler.pages", 3)

	broken := rec.Reports("broken", "")
	require.Len(t, broken, 1)
	require.Equal(t, "efd_scraper: client.search-page", broken[0].ID)
	require.Equal(t, []any{"boom"}, broken[0].Params)

	require.Len(t, rec.Reports("warning", "crawler.decode-row"), 1)
	require.Equal(t, []any{int64(3)}, rec.Reports("count", "crawler.pages")[0].Params)
	require.Empty(t, rec.Reports("debug", ""))
}

type memoryOutput struct {
	mu       sync.Mutex
	messages map[string]string
}

func (m *memoryOutput) Write(id string, contents string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[id] = contents
}

func TestInstrumentResty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "text/plain")
		w.Write([]byte("pong"))
	}))
	defer server.Close()

	rec := NewRecorder()
	output := &memoryOutput{messages: map[string]string{}}
	client := resty.New()
	InstrumentResty(client, rec, output)

	_, err := client.R().SetFormData(map[string]string{"ping": "1"}).Post(server.URL + "/search/")
	require.NoError(t, err)

	require.Len(t, rec.Reports("debug", report_resty_request), 1)
	require.Len(t, rec.Reports("debug", report_resty_response), 1)

	output.mu.Lock()
	defer output.mu.Unlock()
	require.Len(t, output.messages, 1)
	require.True(t, strings.Contains(output.messages["1"], "pong"), output.messages["1"])
}

func TestFilesystemOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "messages")
	output, err := NewFilesystemOutput(dir)
	require.NoError(t, err)

	output.Write("7", "GET /search/home/")
	contents, err := os.ReadFile(filepath.Join(dir, "7"))
	require.NoError(t, err)
	require.Equal(t, "GET /search/home/", string(contents))
}

func TestSetupExportsOverHttp(t *testing.T) {
	var mu sync.Mutex
	paths := map[string]int{}
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths[r.URL.Path]++
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer collector.Close()

	var config Config
	config.Otlp.Traces.HttpEndpoint = collector.URL + "/v1/traces"
	config.Otlp.Metrics.HttpEndpoint = collector.URL + "/v1/metrics"

	providers, err := Setup(context.Background(), "sentinel-test", config)
	require.NoError(t, err)

	_, span := otel.Tracer("telemetry_test").Start(context.Background(), "crawl")
	span.End()

	require.NoError(t, providers.Shutdown(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Positive(t, paths["/v1/traces"])
}

func TestZeroProvidersShutdown(t *testing.T) {
	require.NoError(t, Providers{}.Shutdown(context.Background()))
}

func TestFormatExchange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-b", "2")
		w.Header().Set("x-a", "1")
		w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	res, err := resty.New().R().Post(server.URL + "/search/home/")
	require.NoError(t, err)

	message := formatExchange(res)
	require.Contains(t, message, "> POST "+server.URL+"/search/home/")
	require.Contains(t, message, "< 200 OK")
	require.Less(t, strings.Index(message, "X-A: 1"), strings.Index(message, "X-B: 2"))
	require.True(t, strings.HasSuffix(message, "<html>ok</html>"), message)
}
