package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nao1215/domaindive/internal/model"
)

// DefaultGeoEndpoint is the ip-api.com JSON endpoint; the IP is appended.
const DefaultGeoEndpoint = "http://ip-api.com/json/"

// maxGeoBodySize caps the geolocation response body.
const maxGeoBodySize = 64 * 1024

// GeoClient looks up the location of an IP address with ip-api.com.
type GeoClient struct {
	client   *http.Client
	endpoint string
	timeout  time.Duration
}

// GeoOption configures a GeoClient.
type GeoOption func(*GeoClient)

// WithGeoEndpoint sets the URL prefix the IP is appended to.
func WithGeoEndpoint(endpoint string) GeoOption {
	return func(c *GeoClient) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithGeoTimeout sets the request timeout.
func WithGeoTimeout(timeout time.Duration) GeoOption {
	return func(c *GeoClient) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithGeoHTTPClient replaces the HTTP client used for lookups.
func WithGeoHTTPClient(client *http.Client) GeoOption {
	return func(c *GeoClient) {
		if client != nil {
			c.client = client
		}
	}
}

// NewGeoClient creates a geolocation client that connects through dialer.
func NewGeoClient(dialer Dialer, opts ...GeoOption) *GeoClient {
	c := &GeoClient{
		client: &http.Client{
			Transport: &http.Transport{
				DialContext:     dialer.DialContext,
				MaxIdleConns:    4,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		endpoint: DefaultGeoEndpoint,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ipAPIResponse is the subset of the ip-api.com response that is mapped.
type ipAPIResponse struct {
	Status     string   `json:"status"`
	Message    string   `json:"message"`
	Query      string   `json:"query"`
	Country    string   `json:"country"`
	RegionName string   `json:"regionName"`
	City       string   `json:"city"`
	Zip        string   `json:"zip"`
	Lat        *float64 `json:"lat"`
	Lon        *float64 `json:"lon"`
	Timezone   string   `json:"timezone"`
	ISP        string   `json:"isp"`
	Org        string   `json:"org"`
	AS         string   `json:"as"`
}

// Locate returns the location of ip. Only a response whose status is
// "success" is mapped; anything else yields an empty Geolocation and an error.
func (c *GeoClient) Locate(ctx context.Context, ip string) (model.Geolocation, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+ip, nil)
	if err != nil {
		return model.Geolocation{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return model.Geolocation{}, fmt.Errorf("failed to query geolocation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.Geolocation{}, fmt.Errorf("%w: status %d", ErrGeolocationFailed, resp.StatusCode)
	}

	var body ipAPIResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxGeoBodySize)).Decode(&body); err != nil {
		return model.Geolocation{}, fmt.Errorf("failed to decode geolocation: %w", err)
	}
	if body.Status != "success" {
		return model.Geolocation{}, fmt.Errorf("%w: %s %s", ErrGeolocationFailed, body.Status, body.Message)
	}

	return model.Geolocation{
		IP:       body.Query,
		Country:  body.Country,
		Region:   body.RegionName,
		City:     body.City,
		Zip:      body.Zip,
		Lat:      body.Lat,
		Lon:      body.Lon,
		Timezone: body.Timezone,
		ISP:      body.ISP,
		Org:      body.Org,
		AS:       body.AS,
	}, nil
}
