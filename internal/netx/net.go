// Package netx holds the small HTTP helper the client transport is built on:
// one request, a bounded body read, and status classification.
package netx

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// MaxBodyBytes caps how much of a response body is read.
const MaxBodyBytes = 1 << 20

// Response is an HTTP response whose body has been read and closed.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// Request describes one outgoing call.
type Request struct {
	Method      string
	URL         string
	ContentType string
	UserAgent   string
	Body        io.Reader
}

// Do performs r with client and reads at most MaxBodyBytes of the reply.
func Do(ctx context.Context, client *http.Client, r Request) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, r.Body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if r.ContentType != "" {
		req.Header.Set("Content-Type", r.ContentType)
	}
	if r.UserAgent != "" {
		req.Header.Set("User-Agent", r.UserAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Status: resp.Status, Header: resp.Header, Body: b}, nil
}

// IsSuccess reports whether code is 2xx.
func IsSuccess(code int) bool {
	return code >= 200 && code < 300
}

// Snippet returns at most n bytes of b for log and error messages.
func Snippet(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
