package arr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Zipties/toolarr/pkg/logging"
	pkgstrings "github.com/Zipties/toolarr/pkg/strings"
)

const (
	// DefaultTimeout bounds every call to a Sonarr or Radarr instance.
	DefaultTimeout = 30 * time.Second

	apiPrefix        = "/api/v3/"
	maxResponseBytes = 32 << 20
	maxErrorBodyLen  = 512
)

// Kind identifies the service behind an instance.
type Kind string

const (
	KindSonarr Kind = "sonarr"
	KindRadarr Kind = "radarr"
)

// DisplayName returns the product name.
func (k Kind) DisplayName() string {
	switch k {
	case KindSonarr:
		return "Sonarr"
	case KindRadarr:
		return "Radarr"
	default:
		return string(k)
	}
}

// Instance is one configured Sonarr or Radarr server.
type Instance struct {
	Name   string
	Kind   Kind
	URL    string
	APIKey string
}

// APIError is a non-2xx response from an instance.
type APIError struct {
	Kind       Kind
	Instance   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (instance %s, status %d): %s",
		e.Kind.DisplayName(), e.Instance, e.StatusCode, e.Body)
}

// Client talks to the v3 REST API of one instance.
type Client struct {
	instance   Instance
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a client for instance.
func NewClient(instance Instance, opts ...Option) *Client {
	c := &Client{
		instance:   instance,
		baseURL:    strings.TrimSuffix(instance.URL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the instance name.
func (c *Client) Name() string {
	return c.instance.Name
}

// URL returns the instance base URL.
func (c *Client) URL() string {
	return c.baseURL
}

// Kind returns the service kind.
func (c *Client) Kind() Kind {
	return c.instance.Kind
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values, out interface{}) error {
	return c.do(ctx, http.MethodGet, endpoint, query, nil, out)
}

func (c *Client) post(ctx context.Context, endpoint string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, endpoint, nil, body, out)
}

func (c *Client) put(ctx context.Context, endpoint string, body, out interface{}) error {
	return c.do(ctx, http.MethodPut, endpoint, nil, body, out)
}

func (c *Client) delete(ctx context.Context, endpoint string, query url.Values) error {
	return c.do(ctx, http.MethodDelete, endpoint, query, nil, nil)
}

// do sends one API request. Empty and 204 responses leave out untouched.
func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body, out interface{}) error {
	target := c.baseURL + apiPrefix + strings.TrimPrefix(endpoint, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request body: %w", endpoint, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.instance.APIKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error communicating with %s instance %s: %w", c.instance.Kind.DisplayName(), c.instance.Name, err)
	}
	defer resp.Body.Close()

	logging.Debug("Tools", "%s %s %s -> %d (%v)", c.instance.Name, method, endpoint, resp.StatusCode, time.Since(start))

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text := pkgstrings.Truncate(strings.TrimSpace(string(respBody)), maxErrorBodyLen)
		return &APIError{
			Kind:       c.instance.Kind,
			Instance:   c.instance.Name,
			StatusCode: resp.StatusCode,
			Body:       text,
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}
