// Package httputil provides HTTP client abstractions for testability.
package httputil

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// HTTPClient abstracts HTTP operations for testability.
// Use StandardClient for production; MockHTTPClient for testing.
type HTTPClient interface {
	// Do sends an HTTP request and returns an HTTP response.
	Do(req *http.Request) (*http.Response, error)
}

// StandardClient wraps *http.Client to implement HTTPClient.
type StandardClient struct {
	*http.Client
}

// NewStandardClient creates a new StandardClient wrapping the given http.Client.
func NewStandardClient(c *http.Client) *StandardClient {
	if c == nil {
		c = http.DefaultClient
	}
	return &StandardClient{Client: c}
}

// NewTimeoutClient returns a StandardClient whose requests are bounded by timeout.
// A zero timeout means no limit.
func NewTimeoutClient(timeout time.Duration) *StandardClient {
	return &StandardClient{Client: &http.Client{Timeout: timeout}}
}

// Do sends an HTTP request.
func (c *StandardClient) Do(req *http.Request) (*http.Response, error) {
	return c.Client.Do(req)
}

// MockHTTPClient provides a testable HTTP client implementation.
// Responses registered with Route are matched first by "METHOD /path-suffix";
// anything unmatched falls through to the queue filled by AddResponse.
type MockHTTPClient struct {
	mu           sync.Mutex
	DoFunc       func(req *http.Request) (*http.Response, error)
	Requests     []*http.Request
	Responses    []*MockResponse
	routes       map[string][]*MockResponse
	routeOrder   []string
	responseIdx  int
	DefaultError error
}

// MockResponse defines a canned HTTP response for testing.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    http.Header
	Error      error
}

// NewMockHTTPClient creates a new mock HTTP client.
func NewMockHTTPClient() *MockHTTPClient {
	return &MockHTTPClient{
		Requests:  []*http.Request{},
		Responses: []*MockResponse{},
		routes:    make(map[string][]*MockResponse),
	}
}

func newMockResponse(statusCode int, body string) *MockResponse {
	h := make(http.Header)
	if strings.HasPrefix(strings.TrimSpace(body), "{") || strings.HasPrefix(strings.TrimSpace(body), "[") {
		h.Set("Content-Type", "application/json")
	}
	return &MockResponse{StatusCode: statusCode, Body: body, Headers: h}
}

// AddResponse queues a response to be returned by subsequent requests.
func (m *MockHTTPClient) AddResponse(statusCode int, body string) *MockHTTPClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses = append(m.Responses, newMockResponse(statusCode, body))
	return m
}

// AddErrorResponse queues a transport error.
func (m *MockHTTPClient) AddErrorResponse(err error) *MockHTTPClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses = append(m.Responses, &MockResponse{Error: err})
	return m
}

// Route queues a response for requests whose method matches and whose URL
// path ends with pathSuffix. When several routes match, the longest suffix
// wins and ties go to the route registered first. Routed responses are
// consumed in order; the last one repeats once the queue for that route is
// drained.
func (m *MockHTTPClient) Route(method, pathSuffix string, statusCode int, body string) *MockHTTPClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := method + " " + pathSuffix
	if _, ok := m.routes[key]; !ok {
		m.routeOrder = append(m.routeOrder, key)
	}
	m.routes[key] = append(m.routes[key], newMockResponse(statusCode, body))
	return m
}

// Do records the request and returns the matching canned response.
func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)

	if m.DoFunc != nil {
		return m.DoFunc(req)
	}

	if m.DefaultError != nil {
		return nil, m.DefaultError
	}

	if resp := m.nextRouted(req); resp != nil {
		return resp.toHTTP(req)
	}

	if m.responseIdx < len(m.Responses) {
		resp := m.Responses[m.responseIdx]
		m.responseIdx++
		return resp.toHTTP(req)
	}

	return (&MockResponse{StatusCode: http.StatusOK, Headers: make(http.Header)}).toHTTP(req)
}

func (m *MockHTTPClient) nextRouted(req *http.Request) *MockResponse {
	best, bestLen := "", -1
	for _, key := range m.routeOrder {
		method, suffix, _ := strings.Cut(key, " ")
		if method != req.Method || !strings.HasSuffix(req.URL.Path, suffix) || len(m.routes[key]) == 0 {
			continue
		}
		if len(suffix) > bestLen {
			best, bestLen = key, len(suffix)
		}
	}
	if bestLen < 0 {
		return nil
	}
	queue := m.routes[best]
	resp := queue[0]
	if len(queue) > 1 {
		m.routes[best] = queue[1:]
	}
	return resp
}

func (r *MockResponse) toHTTP(req *http.Request) (*http.Response, error) {
	if r.Error != nil {
		return nil, r.Error
	}
	headers := r.Headers
	if headers == nil {
		headers = make(http.Header)
	}
	return &http.Response{
		StatusCode: r.StatusCode,
		Status:     fmt.Sprintf("%d %s", r.StatusCode, http.StatusText(r.StatusCode)),
		Body:       io.NopCloser(bytes.NewBufferString(r.Body)),
		Header:     headers,
		Request:    req,
	}, nil
}

// GetRequest returns the nth recorded request.
func (m *MockHTTPClient) GetRequest(n int) *http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n < 0 || n >= len(m.Requests) {
		return nil
	}
	return m.Requests[n]
}

// RequestCount returns the number of recorded requests.
func (m *MockHTTPClient) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// CountRequests returns how many recorded requests hit a path ending in suffix.
func (m *MockHTTPClient) CountRequests(method, pathSuffix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.Requests {
		if r.Method == method && strings.HasSuffix(r.URL.Path, pathSuffix) {
			n++
		}
	}
	return n
}

// Reset clears all recorded requests and responses.
func (m *MockHTTPClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = []*http.Request{}
	m.Responses = []*MockResponse{}
	m.routes = make(map[string][]*MockResponse)
	m.routeOrder = nil
	m.responseIdx = 0
	m.DefaultError = nil
	m.DoFunc = nil
}
