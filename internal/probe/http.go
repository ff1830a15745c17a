package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nao1215/domaindive/internal/model"
)

// defaultUserAgent identifies the prober to the target server.
const defaultUserAgent = "domaindive/1.0 (+https://github.com/nao1215/domaindive)"

// HTTPClient sends a header-only request to a domain.
type HTTPClient struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
	schemes   []string
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithTransport replaces the transport used for requests.
func WithTransport(rt http.RoundTripper) HTTPOption {
	return func(c *HTTPClient) {
		if rt != nil {
			c.client.Transport = rt
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) HTTPOption {
	return func(c *HTTPClient) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithHTTPTimeout sets the per-request timeout.
func WithHTTPTimeout(timeout time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// NewHTTPClient creates an HTTP prober that connects through dialer.
// Redirects are never followed: a 3xx answer is itself the result.
func NewHTTPClient(dialer Dialer, opts ...HTTPOption) *HTTPClient {
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		TLSHandshakeTimeout: DefaultTimeout,
		MaxIdleConns:        10,
		IdleConnTimeout:     30 * time.Second,
		DisableKeepAlives:   true,
	}

	c := &HTTPClient{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		userAgent: defaultUserAgent,
		timeout:   DefaultTimeout,
		schemes:   []string{"https", "http"},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Probe sends HEAD to https://domain and, if that does not succeed, to
// http://domain. The first response with a status from 200 to 399 is
// returned with its headers flattened and lowercased.
func (c *HTTPClient) Probe(ctx context.Context, domain string) (model.HTTPResponse, error) {
	var errs []string
	for _, scheme := range c.schemes {
		resp, err := c.head(ctx, scheme+"://"+domain)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		return resp, nil
	}
	return model.HTTPResponse{}, fmt.Errorf("%w: %s", ErrNoHTTPResponse, strings.Join(errs, "; "))
}

func (c *HTTPClient) head(ctx context.Context, url string) (model.HTTPResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return model.HTTPResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return model.HTTPResponse{}, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // HEAD bodies are empty

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return model.HTTPResponse{}, fmt.Errorf("%s answered %d", url, resp.StatusCode)
	}

	return model.HTTPResponse{
		Status:  resp.StatusCode,
		Headers: flattenHeaders(resp.Header),
	}, nil
}

// flattenHeaders lowercases header names and joins repeated values with ", ".
func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		out[strings.ToLower(name)] = strings.Join(values, ", ")
	}
	return out
}
