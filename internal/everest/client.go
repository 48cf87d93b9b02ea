// Package everest is a thin HTTP client for the Everest API, used by tests to check what the
// installer deployed.
package everest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"k8s.io/client-go/rest"

	"clitest/pkg/logging"
)

const defaultHTTPTimeout = 30 * time.Second

// ErrEverest matches every APIError with errors.Is.
var ErrEverest = errors.New("everest API error")

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unknown error (status %d)", e.Status)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

func (e *APIError) Is(target error) bool { return target == ErrEverest }

// VersionInfo is the body of GET /v1/version.
type VersionInfo struct {
	ProjectName string `json:"projectName"`
	Version     string `json:"version"`
	FullCommit  string `json:"fullCommit"`
}

// Client issues read requests against one Everest API endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for baseURL, e.g. "http://127.0.0.1:8080". A nil httpClient gets a
// client with a 30s timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// NewProxied reaches the everest service through the Kubernetes API server proxy, using the
// credentials of restConfig. No port-forward is needed.
func NewProxied(restConfig *rest.Config, namespace string) (*Client, error) {
	host, err := url.Parse(restConfig.Host)
	if err != nil {
		return nil, fmt.Errorf("invalid API server host %q: %w", restConfig.Host, err)
	}
	transport, err := rest.TransportFor(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build Kubernetes transport: %w", err)
	}

	base := fmt.Sprintf("%s/api/v1/namespaces/%s/services/everest/proxy",
		strings.TrimRight(host.String(), "/"), url.PathEscape(namespace))
	return New(base, &http.Client{Transport: transport, Timeout: defaultHTTPTimeout}), nil
}

// BaseURL returns the endpoint requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get requests path and decodes a 2xx JSON body into out. An empty body leaves out untouched.
// out may be nil to discard the body.
func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	logging.Debug("Everest", "GET %s", endpoint)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("failed to decode response of GET %s: %w", endpoint, err)
	}
	return nil
}

// Version returns the version reported by the API.
func (c *Client) Version(ctx context.Context) (*VersionInfo, error) {
	var v VersionInfo
	if err := c.Get(ctx, "/v1/version", &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Reachable is a poll predicate met once the version endpoint answers.
func (c *Client) Reachable() func(context.Context) (bool, error) {
	return func(ctx context.Context) (bool, error) {
		if _, err := c.Version(ctx); err != nil {
			return false, err
		}
		return true, nil
	}
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var body struct {
		Message *string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Message != nil {
		apiErr.Message = *body.Message
	}
	return apiErr
}
