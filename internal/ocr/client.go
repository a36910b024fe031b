// Package ocr wraps the remote text-extraction service. The service is an
// opaque collaborator: it accepts image bytes, returns an operation id, and
// the operation is polled until it reports succeeded or failed.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/apperr"
)

// Operation states reported by the service.
const (
	StateRunning   = "running"
	StateSucceeded = "succeeded"
	StateFailed    = "failed"
)

// Result is the terminal outcome of an extraction operation.
type Result struct {
	State string
	Text  string
	Error string
}

// Extractor submits images and polls operations.
type Extractor interface {
	Submit(ctx context.Context, image []byte) (operationID string, err error)
	Poll(ctx context.Context, operationID string) (*Result, error)
}

// Client is the HTTP implementation of Extractor.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: baseURL, apiKey: apiKey, http: httpClient}
}

func (c *Client) Submit(ctx context.Context, image []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/extract", bytes.NewReader(image))
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, err, "build ocr request")
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", apperr.Wrap(apperr.KindExternal, err, "submit image to ocr service")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", apperr.Newf(apperr.KindExternal, "ocr submit returned %d: %s", resp.StatusCode, body)
	}

	var out struct {
		OperationID string `json:"operationId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", apperr.Wrap(apperr.KindExternal, err, "decode ocr submit response")
	}
	if out.OperationID == "" {
		return "", apperr.New(apperr.KindExternal, "ocr submit returned no operation id")
	}
	return out.OperationID, nil
}

func (c *Client) Poll(ctx context.Context, operationID string) (*Result, error) {
	url := fmt.Sprintf("%s/v1/operations/%s", c.baseURL, operationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "build ocr poll request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindExternal, err, "poll ocr operation")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, apperr.Newf(apperr.KindExternal, "ocr poll returned %d: %s", resp.StatusCode, body)
	}

	var out struct {
		State string `json:"state"`
		Text  string `json:"text"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperr.Wrap(apperr.KindExternal, err, "decode ocr poll response")
	}
	return &Result{State: out.State, Text: out.Text, Error: out.Error}, nil
}

// Poller drives an Extractor operation to a terminal state with a fixed
// back-off and a capped attempt count.
type Poller struct {
	Extractor   Extractor
	Interval    time.Duration // default 2s
	MaxAttempts int           // default 15
}

// ExtractText submits the image and polls until succeeded, failed, attempts
// exhausted, or the context is cancelled.
func (p Poller) ExtractText(ctx context.Context, image []byte) (string, error) {
	interval := p.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 15
	}

	opID, err := p.Extractor.Submit(ctx, image)
	if err != nil {
		return "", err
	}

	for i := 0; i < attempts; i++ {
		res, err := p.Extractor.Poll(ctx, opID)
		if err != nil {
			return "", err
		}
		switch res.State {
		case StateSucceeded:
			return res.Text, nil
		case StateFailed:
			return "", apperr.Newf(apperr.KindExternal, "ocr operation failed: %s", res.Error)
		}

		select {
		case <-ctx.Done():
			return "", apperr.Wrap(apperr.KindExternal, ctx.Err(), "ocr polling cancelled")
		case <-time.After(interval):
		}
	}
	return "", apperr.Newf(apperr.KindExternal, "ocr operation not terminal after %d attempts", attempts)
}

// Disabled is used when no OCR service is configured; every extraction
// fails with an EXTERNAL error so uploads are marked failed, not dropped.
type Disabled struct{}

func (Disabled) ExtractText(_ context.Context, _ []byte) (string, error) {
	return "", apperr.New(apperr.KindExternal, "ocr service is not configured")
}
