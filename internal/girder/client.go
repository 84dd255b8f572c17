package girder

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/imroc/req/v3"

	"github.com/imqcam/girder-upload/internal/errkind"
)

// Client defaults.
const (
	// DefaultChunkSize is the upload chunk size used when Options leaves it zero.
	DefaultChunkSize = 32 * 1024 * 1024
	defaultUserAgent = "girder-upload/dev"
	tokenHeader      = "Girder-Token"
	// downloadBufSize bounds the per-read buffer when streaming file content.
	downloadBufSize = 64 * 1024
)

// Options configures a Client. The zero value is usable.
type Options struct {
	Logger    *slog.Logger
	UserAgent string
	// Timeout applies to every request including transfers. Zero disables it.
	Timeout time.Duration
	// ChunkSize is the number of bytes sent per upload chunk request.
	ChunkSize int64
}

// Client is an HTTP client for a Girder REST API root such as
// "https://data.example.org/api/v1". A Client authenticates once and reuses
// the token for every request. Requests are never retried.
type Client struct {
	baseURL   string
	http      *req.Client
	logger    *slog.Logger
	chunkSize int64
}

// NewClient creates an unauthenticated Girder client.
func NewClient(apiURL string, opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	chunk := opts.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}

	baseURL := strings.TrimRight(apiURL, "/")

	hc := req.C().
		SetBaseURL(baseURL).
		SetUserAgent(ua).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal).
		SetLogger(reqLogger{logger: logger})

	if opts.Timeout > 0 {
		hc.SetTimeout(opts.Timeout)
	}

	return &Client{
		baseURL:   baseURL,
		http:      hc,
		logger:    logger,
		chunkSize: chunk,
	}
}

// Dial creates a client and authenticates it with an API key. Every failure,
// including an unreachable endpoint, wraps errkind.ErrAuthentication.
func Dial(ctx context.Context, apiURL, apiKey string, opts Options) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("girder: no API key for %s: %w", apiURL, errkind.ErrAuthentication)
	}

	c := NewClient(apiURL, opts)
	if err := c.Authenticate(ctx, apiKey); err != nil {
		return nil, fmt.Errorf("girder: authenticating to %s: %w: %w", apiURL, errkind.ErrAuthentication, err)
	}

	return c, nil
}

// Authenticate exchanges an API key for a session token and attaches it to
// every subsequent request.
func (c *Client) Authenticate(ctx context.Context, apiKey string) error {
	c.logger.Info("authenticating", slog.String("api_url", c.baseURL))

	body, err := c.do(ctx, http.MethodPost, "/api_key/token", map[string]string{"key": apiKey}, nil)
	if err != nil {
		return err
	}

	var tr tokenResponse
	if err := jsonUnmarshal(body, &tr); err != nil {
		return fmt.Errorf("girder: decoding token response: %w", err)
	}

	if tr.AuthToken.Token == "" {
		return fmt.Errorf("girder: token response carried no token")
	}

	c.http.SetCommonHeader(tokenHeader, tr.AuthToken.Token)
	c.logger.Debug("authenticated", slog.String("expires", tr.AuthToken.Expires))

	return nil
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// newRequest starts a request bound to ctx with optional query parameters.
func (c *Client) newRequest(ctx context.Context, query map[string]string) *req.Request {
	r := c.http.R().SetContext(ctx)
	if len(query) > 0 {
		r.SetQueryParams(query)
	}

	return r
}

// do sends one request with an optional JSON body and returns the full
// response body for 2xx responses. Non-2xx responses become *GirderError.
func (c *Client) do(
	ctx context.Context, method, path string, query map[string]string, jsonBody any,
) ([]byte, error) {
	r := c.newRequest(ctx, query)
	if jsonBody != nil {
		r.SetBodyJsonMarshal(jsonBody)
	}

	return c.send(r, method, path)
}

// send executes a prepared request and classifies the response.
func (c *Client) send(r *req.Request, method, path string) ([]byte, error) {
	resp, err := r.Send(method, path)
	if err != nil {
		return nil, fmt.Errorf("girder: %s %s: %w", method, path, err)
	}

	body, err := resp.ToBytes()
	if err != nil {
		return nil, fmt.Errorf("girder: reading %s %s response: %w", method, path, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		ge := newGirderError(resp.StatusCode, body)
		c.logger.Debug("request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.String("message", ge.Message),
		)

		return nil, ge
	}

	c.logger.Debug("request succeeded",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
	)

	return body, nil
}

// doInto sends a request and decodes the JSON response into out.
func (c *Client) doInto(
	ctx context.Context, method, path string, query map[string]string, jsonBody, out any,
) error {
	body, err := c.do(ctx, method, path, query, jsonBody)
	if err != nil {
		return err
	}

	if err := jsonUnmarshal(body, out); err != nil {
		return fmt.Errorf("girder: decoding %s %s response: %w", method, path, err)
	}

	return nil
}

// reqLogger routes req's internal log lines into slog.
type reqLogger struct {
	logger *slog.Logger
}

func (l reqLogger) Errorf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...), slog.String("component", "http"))
}

func (l reqLogger) Warnf(format string, v ...any) {
	l.logger.Warn(fmt.Sprintf(format, v...), slog.String("component", "http"))
}

func (l reqLogger) Debugf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...), slog.String("component", "http"))
}
