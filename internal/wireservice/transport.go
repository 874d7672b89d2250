package wireservice

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"
)

// Transport handles low-level HTTP communication with the Wire backend.
// It manages rate limiting, auth headers, and request/response logging.
type Transport struct {
	baseURL string
	client  *http.Client
	logger  *log.Logger
}

// NewTransport creates a new HTTP transport for the Wire backend.
func NewTransport(baseURL string, tlsConf *tls.Config, logger *log.Logger) *Transport {
	client := &http.Client{}
	if tlsConf != nil {
		client.Transport = &http.Transport{TLSClientConfig: tlsConf}
	}
	return &Transport{
		baseURL: baseURL,
		client:  client,
		logger:  logger,
	}
}

// Do executes an HTTP request with automatic retry on 429 (Too Many Requests).
// It respects the Retry-After header, capping the wait at 10 minutes.
func (t *Transport) Do(req *http.Request) (*http.Response, error) {
	const maxRetries = 3
	const maxWait = 10 * time.Minute

	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("transport: read request body: %w", err)
		}
	}

	for attempt := 0; attempt < maxRetries+1; attempt++ {
		if body != nil {
			req.Body = io.NopCloser(bytes.NewReader(body))
		}

		resp, err := t.client.Do(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			logf(t.logger, "http %s %s → %d", req.Method, req.URL.Path, resp.StatusCode)
			return resp, nil
		}

		// 429 — read body for logging, then close it before sleeping.
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		wait := time.Duration(5<<attempt) * time.Second // 5s, 10s, 20s, 40s
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs >= 0 {
				wait = time.Duration(secs) * time.Second
			}
		}
		wait = min(wait, maxWait)

		if attempt == maxRetries {
			logf(t.logger, "http %s %s → 429 (no retries left, Retry-After: %s)",
				req.Method, req.URL.Path, resp.Header.Get("Retry-After"))
			return &http.Response{
				StatusCode: http.StatusTooManyRequests,
				Header:     resp.Header,
				Body:       io.NopCloser(bytes.NewReader(respBody)),
				Request:    req,
			}, nil
		}

		logf(t.logger, "http %s %s → 429, retrying in %v (attempt %d/%d)",
			req.Method, req.URL.Path, wait, attempt+1, maxRetries)

		select {
		case <-time.After(wait):
		case <-req.Context().Done():
			return nil, req.Context().Err()
		}
	}

	return nil, fmt.Errorf("transport: retry loop exhausted")
}

// Get performs a GET request with optional credentials.
func (t *Transport) Get(ctx context.Context, path string, creds *Credentials) ([]byte, int, error) {
	req, err := t.newRequest(ctx, http.MethodGet, path, nil, creds)
	if err != nil {
		return nil, 0, err
	}
	return t.doAndRead(req)
}

// Post performs a POST request with JSON body and optional credentials.
func (t *Transport) Post(ctx context.Context, path string, body []byte, creds *Credentials) ([]byte, int, error) {
	req, err := t.newRequest(ctx, http.MethodPost, path, body, creds)
	if err != nil {
		return nil, 0, err
	}
	return t.doAndRead(req)
}

// Put performs a PUT request with JSON body and optional credentials.
func (t *Transport) Put(ctx context.Context, path string, body []byte, creds *Credentials) ([]byte, int, error) {
	req, err := t.newRequest(ctx, http.MethodPut, path, body, creds)
	if err != nil {
		return nil, 0, err
	}
	return t.doAndRead(req)
}

// Delete performs a DELETE request with JSON body and optional credentials.
func (t *Transport) Delete(ctx context.Context, path string, body []byte, creds *Credentials) ([]byte, int, error) {
	req, err := t.newRequest(ctx, http.MethodDelete, path, body, creds)
	if err != nil {
		return nil, 0, err
	}
	return t.doAndRead(req)
}

// PostResponse performs a POST request and returns the raw *http.Response,
// for callers that need response headers (cookies).
func (t *Transport) PostResponse(ctx context.Context, path string, body []byte, creds *Credentials) (*http.Response, error) {
	req, err := t.newRequest(ctx, http.MethodPost, path, body, creds)
	if err != nil {
		return nil, err
	}
	return t.Do(req)
}

// PostJSON performs a POST request with a marshalled JSON body.
func (t *Transport) PostJSON(ctx context.Context, path string, body any, creds *Credentials) ([]byte, int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("transport: marshal request: %w", err)
	}
	return t.Post(ctx, path, data, creds)
}

// PutJSON performs a PUT request with a marshalled JSON body.
func (t *Transport) PutJSON(ctx context.Context, path string, body any, creds *Credentials) ([]byte, int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("transport: marshal request: %w", err)
	}
	return t.Put(ctx, path, data, creds)
}

func (t *Transport) newRequest(ctx context.Context, method, path string, body []byte, creds *Credentials) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("transport: new request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if creds != nil {
		req.Header.Set("Authorization", creds.TokenType+" "+creds.AccessToken)
		if creds.Cookie != "" {
			req.Header.Set("Cookie", "zuid="+creds.Cookie)
		}
	}
	return req, nil
}

// doAndRead executes the request and reads the response body.
func (t *Transport) doAndRead(req *http.Request) ([]byte, int, error) {
	resp, err := t.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("transport: read response: %w", err)
	}
	return body, resp.StatusCode, nil
}
