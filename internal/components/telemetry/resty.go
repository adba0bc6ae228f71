package telemetry

import (
	"context"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

const (
	report_resty_request  = "resty.request"
	report_resty_response = "resty.response"
)

// MessageOutput stores the full exchange of a request, named by its sequence number.
type MessageOutput interface {
	Write(id string, contents string)
}

type requestIdKey struct{}

// InstrumentResty numbers every request made by client and reports it when it
// is sent and when it completes or fails. If output is set, each completed
// exchange is also written to it.
func InstrumentResty(client *resty.Client, tel API, output MessageOutput) {
	var seq atomic.Uint64

	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		id := seq.Add(1)
		req.SetContext(context.WithValue(req.Context(), requestIdKey{}, id))
		tel.ReportDebug(report_resty_request, id, req.Method, req.URL)
		return nil
	})
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		id, _ := res.Request.Context().Value(requestIdKey{}).(uint64)
		tel.ReportDebug(report_resty_response, id, res.Time().String(), res.Status())
		if output != nil {
			output.Write(strconv.FormatUint(id, 10), formatExchange(res))
		}
		return nil
	})
	client.OnError(func(req *resty.Request, err error) {
		id, _ := req.Context().Value(requestIdKey{}).(uint64)
		tel.ReportBroken(report_resty_response, id, req.Method, req.URL, err)
	})
}

func writeHeaders(out *strings.Builder, headers http.Header) {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range headers[k] {
			out.WriteString(k + ": " + v + "\n")
		}
	}
}

func requestBody(req *http.Request) string {
	if req == nil || req.GetBody == nil {
		return ""
	}
	body, err := req.GetBody()
	if err != nil {
		return "(unreadable body: " + err.Error() + ")"
	}
	defer body.Close()
	contents, err := io.ReadAll(body)
	if err != nil {
		return "(unreadable body: " + err.Error() + ")"
	}
	return string(contents)
}

// formatExchange renders a request and its response the way they went over the wire.
func formatExchange(res *resty.Response) string {
	var out strings.Builder

	out.WriteString("> " + res.Request.Method + " " + res.Request.URL + "\n")
	if raw := res.Request.RawRequest; raw != nil {
		writeHeaders(&out, raw.Header)
		out.WriteString("\n" + requestBody(raw) + "\n")
	}

	out.WriteString("\n< " + res.Status() + "\n")
	writeHeaders(&out, res.Header())
	out.WriteString("\n" + res.String())

	return out.String()
}
