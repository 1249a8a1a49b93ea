package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/carepoint/engine/internal/shared/config"
	"github.com/carepoint/engine/internal/shared/errors"
	"github.com/carepoint/engine/internal/shared/metrics"
)

// Client is the typed REST client for the hospital backend. Every call
// carries the session bearer token and the configured per-request timeout;
// the engine adds no retry on top, recovery is the poller's job.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a backend client
func NewClient(cfg config.BackendConfig, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log.With().Str("component", "backend").Logger(),
	}
}

// envelope is the backend's success wrapper: {"success": true, "data": ...}.
// Rejections carry {"detail": "..."} with a 4xx/5xx status instead.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type errorBody struct {
	Detail string `json:"detail"`
}

// do issues one request and decodes the envelope into out. endpoint labels
// the request for metrics, path is the URL path relative to the base.
func (c *Client) do(ctx context.Context, method, endpoint, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.ObserveBackendRequest(endpoint, time.Since(start))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Transient(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Transient(err)
	}

	if resp.StatusCode >= 400 {
		var eb errorBody
		_ = json.Unmarshal(raw, &eb)
		appErr := errors.FromStatus(resp.StatusCode, eb.Detail)
		c.log.Debug().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("detail", eb.Detail).
			Msg("backend rejected request")
		return appErr
	}

	if out == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return errors.Wrap(err, "decode response data")
		}
		return nil
	}
	// Some endpoints return the payload bare, without the envelope.
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, out any) error {
	return c.do(ctx, http.MethodGet, endpoint, path, nil, out)
}

func (c *Client) post(ctx context.Context, endpoint, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, endpoint, path, body, out)
}

func (c *Client) put(ctx context.Context, endpoint, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, endpoint, path, body, out)
}

func (c *Client) delete(ctx context.Context, endpoint, path string) error {
	return c.do(ctx, http.MethodDelete, endpoint, path, nil, nil)
}

func searchQuery(query string, limit int) string {
	v := url.Values{}
	v.Set("query", query)
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	return "?" + v.Encode()
}

