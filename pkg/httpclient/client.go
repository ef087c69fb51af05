// Package httpclient wraps resty behind the small surface the harvester needs.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Response is a fully buffered HTTP response.
type Response interface {
	StatusCode() int
	Body() []byte
}

// Client performs HTTP requests.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
	Stream(ctx context.Context, url string, headers map[string]string) (io.ReadCloser, error)
	Do(ctx context.Context, method, url string, headers map[string]string, body any) (Response, error)
}

// StatusError is returned by Stream when the server answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s returned status %d", e.URL, e.StatusCode)
}

type restyClient struct {
	r *resty.Client
}

// NewRestyClient builds a Client backed by resty with the given request timeout.
func NewRestyClient(timeout time.Duration) Client {
	return &restyClient{r: resty.New().SetTimeout(timeout)}
}

// NewRestyClientWithUserAgent builds a Client that sends userAgent on every request.
func NewRestyClientWithUserAgent(timeout time.Duration, userAgent string) Client {
	r := resty.New().SetTimeout(timeout)
	if userAgent != "" {
		r.SetHeader("User-Agent", userAgent)
	}
	return &restyClient{r: r}
}

// Get issues a GET and buffers the body.
func (c *restyClient) Get(ctx context.Context, url string, headers map[string]string) (Response, error) {
	resp, err := c.r.R().
		SetContext(ctx).
		SetHeaders(headers).
		Get(url)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Stream issues a GET and hands back the unread body. The caller must close it.
func (c *restyClient) Stream(ctx context.Context, url string, headers map[string]string) (io.ReadCloser, error) {
	resp, err := c.r.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return nil, err
	}

	body := resp.RawBody()
	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		if body != nil {
			body.Close()
		}
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode()}
	}
	if body == nil {
		return io.NopCloser(http.NoBody), nil
	}
	return body, nil
}

// Do issues an arbitrary request with an optional body.
func (c *restyClient) Do(ctx context.Context, method, url string, headers map[string]string, body any) (Response, error) {
	req := c.r.R().
		SetContext(ctx).
		SetHeaders(headers)
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, url)
	if err != nil {
		return nil, err
	}
	return resp, nil
}
