package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is the public Replicate API root.
const DefaultBaseURL = "https://api.replicate.com/v1"

// maxResponseBytes bounds how much of an upstream body is read.
const maxResponseBytes = 10 << 20

var (
	// ErrMissingToken indicates the client was configured without credentials.
	ErrMissingToken = errors.New("replicate: api token is required")

	// ErrInvalidID reports a deployment or prediction id that cannot be
	// placed in a request path.
	ErrInvalidID = errors.New("replicate: invalid id")
)

var idSegment = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Options configures the client.
type Options struct {
	Token          string
	BaseURL        string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	Logger         logrus.FieldLogger
}

// Client calls the Replicate API with a fixed token.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	log        logrus.FieldLogger
}

// Response is an upstream reply passed through as-is. Non-2xx statuses are
// not errors; callers forward them.
type Response struct {
	StatusCode int
	Body       json.RawMessage
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// NewClient builds a client. It fails with ErrMissingToken when no token is
// configured.
func NewClient(opts Options) (*Client, error) {
	token := strings.TrimSpace(opts.Token)
	if token == "" {
		return nil, ErrMissingToken
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		token:      token,
		baseURL:    baseURL,
		httpClient: httpClient,
		log:        log,
	}, nil
}

// CreatePrediction starts a prediction on deployment ("owner/name") with the
// given input object.
func (c *Client) CreatePrediction(ctx context.Context, deployment string, input json.RawMessage) (*Response, error) {
	path, err := idPath(deployment, 2)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(struct {
		Input json.RawMessage `json:"input"`
	}{Input: input})
	if err != nil {
		return nil, fmt.Errorf("failed to encode prediction request: %w", err)
	}
	c.log.WithField("deployment", deployment).Info("Forwarding prediction to Replicate")
	return c.do(ctx, http.MethodPost, "/deployments/"+path+"/predictions", body)
}

// GetPrediction fetches the state of a prediction.
func (c *Client) GetPrediction(ctx context.Context, id string) (*Response, error) {
	path, err := idPath(id, 1)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodGet, "/predictions/"+path, nil)
}

// GetDeployment fetches deployment metadata.
func (c *Client) GetDeployment(ctx context.Context, deployment string) (*Response, error) {
	path, err := idPath(deployment, 2)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodGet, "/deployments/"+path, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build replicate request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("replicate request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read replicate response: %w", err)
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("replicate returned non-JSON body (status %d)", resp.StatusCode)
	}

	entry := c.log.WithFields(logrus.Fields{"method": method, "path": path, "status": resp.StatusCode})
	if resp.StatusCode >= 400 {
		entry.Warn("Replicate API error")
	} else {
		entry.Debug("Replicate API response")
	}
	return &Response{StatusCode: resp.StatusCode, Body: raw}, nil
}

// idPath validates an id of exactly segments slash-separated parts and
// returns it escaped for use in a URL path.
func idPath(id string, segments int) (string, error) {
	parts := strings.Split(strings.TrimSpace(id), "/")
	if len(parts) != segments {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	for i, p := range parts {
		if !idSegment.MatchString(p) || p == "." || p == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
		}
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/"), nil
}
