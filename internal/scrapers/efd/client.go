// Package efd scrapes the Senate electronic financial disclosure search portal.
package efd

import (
	"context"
	"errors"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"stocksentinel-backend/internal/components/assert"
	"stocksentinel-backend/internal/components/telemetry"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseUrl      = "https://efdsearch.senate.gov"
	DefaultUserAgent    = "Mozilla/5.0"
	DefaultRequestDelay = 3 * time.Second
	DefaultTimeout      = 30 * time.Second

	report_client_request = "client.request"
)

type ClientOptions struct {
	BaseUrl   string
	UserAgent string
	// RequestDelay is waited between the end of one request and the start of the
	// next, requests from all goroutines using the client are serialized. Zero
	// disables the delay.
	RequestDelay time.Duration
	// Timeout bounds every single request.
	Timeout time.Duration
	// Retries is the number of additional attempts for a failed request, 0 disables retrying.
	Retries          int
	BypassCloudflare bool
	// MessageOutput can be nil, if set every request/response pair is written to it.
	MessageOutput telemetry.MessageOutput
}

// Client issues every request against the portal, it holds the session cookies.
type Client struct {
	baseUrl *url.URL
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	gate    *delayGate
	tel     telemetry.API
}

// delayGate lets one request through at a time, each one only after delay has
// passed since the previous request finished.
type delayGate struct {
	slot    chan struct{}
	delay   time.Duration
	limiter *rate.Limiter // replaced only by the holder of slot
}

func newDelayGate(delay time.Duration) *delayGate {
	gate := &delayGate{
		slot:  make(chan struct{}, 1),
		delay: delay,
	}
	// the first request waits the delay as well
	gate.restart(time.Now())
	return gate
}

func (g *delayGate) restart(now time.Time) {
	if g.delay <= 0 {
		g.limiter = rate.NewLimiter(rate.Inf, 1)
		return
	}
	g.limiter = rate.NewLimiter(rate.Every(g.delay), 1)
	g.limiter.AllowN(now, 1)
}

func (g *delayGate) acquire(ctx context.Context) error {
	select {
	case g.slot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := g.limiter.Wait(ctx); err != nil {
		<-g.slot
		return err
	}
	return nil
}

// release starts the delay for the next request.
func (g *delayGate) release() {
	g.restart(time.Now())
	<-g.slot
}

func NewClient(opts ClientOptions, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("efd_scraper", tel)

	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	if opts.BypassCloudflare {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}
	httpClient.SetHeader("user-agent", opts.UserAgent)
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	httpClient.SetTimeout(opts.Timeout)

	if opts.Retries > 0 {
		backoff := opts.RequestDelay
		if backoff <= 0 {
			backoff = 100 * time.Millisecond
		}
		httpClient.
			SetRetryCount(opts.Retries).
			SetRetryWaitTime(backoff).
			SetRetryMaxWaitTime(8 * backoff).
			AddRetryCondition(func(res *resty.Response, err error) bool {
				if err != nil {
					return true
				}
				code := res.StatusCode()
				return code == 429 || code >= 500
			})
	}

	telemetry.InstrumentResty(httpClient, tel, opts.MessageOutput)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "efd",
		Timeout: time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			tel.ReportWarning("client.breaker", name, from.String(), to.String())
		},
	})

	return &Client{
		baseUrl: baseUrl,
		http:    httpClient,
		breaker: breaker,
		gate:    newDelayGate(opts.RequestDelay),
		tel:     tel,
	}, nil
}

// do executes a request through the circuit breaker and converts failures into TransportError.
func (c *Client) do(req *resty.Request, method, endpoint string) (*resty.Response, error) {
	if err := c.gate.acquire(req.Context()); err != nil {
		err = TransportError{Method: method, Url: endpoint, Err: err}
		c.tel.ReportBroken(report_client_request, err)
		return nil, err
	}
	defer c.gate.release()

	result, err := c.breaker.Execute(func() (any, error) {
		res, err := req.Execute(method, endpoint)
		if err != nil {
			return nil, TransportError{Method: method, Url: endpoint, Err: err}
		}
		if res.IsError() {
			return nil, TransportError{
				Method:     method,
				Url:        endpoint,
				StatusCode: res.StatusCode(),
				Err:        fmt.Errorf("unexpected status %s", res.Status()),
			}
		}
		return res, nil
	})
	if err != nil {
		var transportErr TransportError
		if !errors.As(err, &transportErr) {
			// the breaker is open or half-open and refused the request
			err = TransportError{Method: method, Url: endpoint, Err: err}
		}
		c.tel.ReportBroken(report_client_request, err)
		return nil, err
	}
	return result.(*resty.Response), nil
}

func (c *Client) get(ctx context.Context, endpoint, referer string) (*resty.Response, error) {
	req := c.http.R().SetContext(ctx)
	if referer != "" {
		req.SetHeader("referer", referer)
	}
	return c.do(req, resty.MethodGet, endpoint)
}

func (c *Client) postForm(ctx context.Context, endpoint, referer string, form map[string]string) (*resty.Response, error) {
	req := c.http.R().
		SetContext(ctx).
		SetFormData(form)
	if referer != "" {
		req.SetHeader("referer", referer)
	}
	return c.do(req, resty.MethodPost, endpoint)
}

// absolute resolves a portal path against the base url.
func (c *Client) absolute(path string) string {
	ref, err := url.Parse(path)
	if err != nil {
		return c.baseUrl.String() + path
	}
	return c.baseUrl.ResolveReference(ref).String()
}

// cookie returns the value of a session cookie set by the portal.
func (c *Client) cookie(name string) string {
	jar := c.http.GetClient().Jar
	if jar == nil {
		return ""
	}
	for _, cookie := range jar.Cookies(c.baseUrl) {
		if cookie.Name == name {
			return cookie.Value
		}
	}
	return ""
}
