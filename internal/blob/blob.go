// Package blob is the object-store collaborator: put bytes, get a URL back.
package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/apperr"
)

// Store uploads an object and returns its public URL.
type Store interface {
	Put(ctx context.Context, data []byte, contentType string) (string, error)
}

// HTTPStore talks to a simple blob endpoint (POST body, JSON {url} back).
type HTTPStore struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewHTTPStore(baseURL, apiKey string, httpClient *http.Client) *HTTPStore {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPStore{baseURL: baseURL, apiKey: apiKey, http: httpClient}
}

func (s *HTTPStore) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/objects", bytes.NewReader(data))
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, err, "build blob request")
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.http.Do(req)
	if err != nil {
		return "", apperr.Wrap(apperr.KindExternal, err, "upload object")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", apperr.Newf(apperr.KindExternal, "blob store returned %d: %s", resp.StatusCode, body)
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", apperr.Wrap(apperr.KindExternal, err, "decode blob response")
	}
	return out.URL, nil
}

// NullStore is used when no blob service is configured; it fabricates a
// stable pseudo-URL so the rest of the flow keeps working in dev.
type NullStore struct{}

func (NullStore) Put(_ context.Context, _ []byte, _ string) (string, error) {
	return fmt.Sprintf("local://uploads/%s", uuid.New()), nil
}
