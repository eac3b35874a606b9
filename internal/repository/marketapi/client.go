package marketapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	xerrors "listing-service/internal/pkg/errors"
	"listing-service/internal/pkg/session"

	"go.uber.org/zap"
)

const (
	DefaultTimeout = 10 * time.Second
	DefaultRetries = 2
	defaultBackoff = 200 * time.Millisecond
	maxErrorBody   = 4 << 10
)

// errNoData marks a successful response whose payload is missing.
var errNoData = errors.New("response carries no data")

type Config struct {
	BaseURL string
	Timeout time.Duration
	// Retries is how many extra attempts an idempotent GET gets after a
	// transport error or a 5xx answer.
	Retries int
	Backoff time.Duration
}

// Client talks to the marketplace REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retries    int
	backoff    time.Duration
	logger     *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = defaultBackoff
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		retries:    cfg.Retries,
		backoff:    cfg.Backoff,
		logger:     logger,
	}
}

// envelope is the marketplace response wrapper.
type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type request struct {
	method string
	path   string
	query  url.Values
	body   interface{}
	cred   session.Credential
}

// do sends req and decodes the data field of the answer into out.
func (c *Client) do(ctx context.Context, req request, out interface{}) error {
	attempts := 1
	if req.method == http.MethodGet {
		attempts += c.retries
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		var retry bool
		retry, err = c.attempt(ctx, req, out)
		if err == nil || !retry || attempt == attempts {
			break
		}

		c.logger.Debug("retrying marketplace request",
			zap.String("path", req.path),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		select {
		case <-time.After(c.backoff * time.Duration(attempt)):
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", xerrors.ErrTransport, ctx.Err())
		}
	}
	return err
}

func (c *Client) attempt(ctx context.Context, req request, out interface{}) (bool, error) {
	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return false, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, body)
	if err != nil {
		return false, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.cred.Authenticated() {
		httpReq.Header.Set("Authorization", "Bearer "+req.cred.Token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ctx.Err() == nil, fmt.Errorf("%w: %w", xerrors.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var env envelope
		_ = json.Unmarshal(raw, &env)
		return resp.StatusCode >= 500, xerrors.NewUpstreamError(resp.StatusCode, env.Message)
	}

	if resp.StatusCode == http.StatusNoContent {
		return false, nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if out == nil {
			return false, nil
		}
		return false, fmt.Errorf("%w: undecodable response: %v", errNoData, err)
	}
	if env.Status == "error" {
		return false, xerrors.NewUpstreamError(resp.StatusCode, env.Message)
	}
	if out == nil {
		return false, nil
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return false, errNoData
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return false, fmt.Errorf("%w: %v", errNoData, err)
	}
	return false, nil
}
