package main

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
)

const (
	defaultBaseURL       = "http://localhost:6872/api"
	defaultTimeout       = 10 * time.Second
	defaultReportTimeout = 120 * time.Second
	defaultChatTimeout   = 90 * time.Second
	maxResponseBytes     = 8 << 20
)

// Envelope is the wrapper every backend response uses.
type Envelope struct {
	Message *string         `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type Request struct {
	Query   url.Values
	Body    any
	Timeout time.Duration
}

type Transport struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
}

var transportJSONMarshal = json.Marshal

func NewTransport(baseURL string, timeout time.Duration, client *http.Client) *Transport {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Transport{baseURL: baseURL, timeout: timeout, client: client}
}

// Send performs one request. Every failure comes back as a *TransportError;
// nothing is retried.
func (t *Transport) Send(ctx context.Context, method, path string, req Request) (*Envelope, error) {
	env, err := t.send(ctx, method, path, req)
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}
	return env, nil
}

func (t *Transport) send(ctx context.Context, method, path string, req Request) (*Envelope, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = t.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	endpoint := t.baseURL + path
	if len(req.Query) > 0 {
		endpoint += "?" + req.Query.Encode()
	}
	var body io.Reader
	if req.Body != nil {
		blob, err := transportJSONMarshal(req.Body)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(blob)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("accept", "application/json")
	if body != nil {
		httpReq.Header.Set("content-type", "application/json")
	}
	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http status %d", resp.StatusCode)
	}
	var env Envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if env.Message == nil {
		return nil, errMissingMessage
	}
	return &env, nil
}
