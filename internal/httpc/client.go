// Package httpc provides the HTTP clients used for outbound calls.
// Sidecar and speech requests must never hang a frame or an utterance, so
// nothing here uses http.DefaultClient.
package httpc

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"time"
)

// Timeouts for outbound calls.
const (
	DefaultTimeout         = 30 * time.Second
	DefaultConnectTimeout  = 5 * time.Second
	DefaultKeepAlive       = 30 * time.Second
	DefaultIdleConnTimeout = 90 * time.Second
)

// Client is the shared client for calls that may take seconds, such as
// speech synthesis or the simulator's control requests.
var Client = NewClient(DefaultTimeout)

// NewClient returns a client with its own connection pool. Landmark
// extraction runs once per frame and wants a much shorter timeout than Client.
func NewClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: DefaultConnectTimeout, KeepAlive: DefaultKeepAlive}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     DefaultIdleConnTimeout,
			TLSHandshakeTimeout: DefaultConnectTimeout,
		},
	}
}

// PostJSON sends an encoded JSON body. Extra headers are added before the
// content type is set.
func PostJSON(ctx context.Context, c *http.Client, url string, body []byte, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	return c.Do(req)
}
