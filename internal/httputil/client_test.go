package httputil

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func mustGet(t *testing.T, c HTTPClient, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	return resp
}

func TestStandardClient_Wraps(t *testing.T) {
	customClient := &http.Client{}
	client := NewStandardClient(customClient)

	if client.Client != customClient {
		t.Error("expected custom client to be wrapped")
	}
	if NewStandardClient(nil).Client != http.DefaultClient {
		t.Error("nil client should fall back to http.DefaultClient")
	}
}

func TestNewTimeoutClient(t *testing.T) {
	c := NewTimeoutClient(3 * time.Second)
	if c.Timeout != 3*time.Second {
		t.Errorf("timeout = %v, want 3s", c.Timeout)
	}
}

func TestStandardClient_Do(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pong"))
	}))
	defer srv.Close()

	resp := mustGet(t, NewStandardClient(srv.Client()), srv.URL)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "pong" {
		t.Errorf("got body %q, want pong", body)
	}
}

func TestMockHTTPClient_QueuedResponses(t *testing.T) {
	mock := NewMockHTTPClient()
	mock.AddResponse(http.StatusOK, "first")
	mock.AddResponse(http.StatusInternalServerError, "second")

	resp1 := mustGet(t, mock, "http://example.com/1")
	body1, _ := io.ReadAll(resp1.Body)
	resp1.Body.Close()
	if string(body1) != "first" {
		t.Errorf("first response: got %q, want 'first'", string(body1))
	}

	resp2 := mustGet(t, mock, "http://example.com/2")
	resp2.Body.Close()
	if resp2.Status != "500 Internal Server Error" {
		t.Errorf("second response status line = %q", resp2.Status)
	}

	resp3 := mustGet(t, mock, "http://example.com/3")
	resp3.Body.Close()
	if resp3.StatusCode != http.StatusOK {
		t.Errorf("drained queue should default to 200, got %d", resp3.StatusCode)
	}

	if mock.RequestCount() != 3 {
		t.Errorf("got %d requests, want 3", mock.RequestCount())
	}
}

func TestMockHTTPClient_RouteLongestSuffixWins(t *testing.T) {
	mock := NewMockHTTPClient()
	mock.Route(http.MethodGet, "/42", http.StatusOK, "short")
	mock.Route(http.MethodGet, "/status/42", http.StatusOK, "status")
	mock.Route(http.MethodGet, "/results/42", http.StatusOK, "results")

	for i := 0; i < 20; i++ {
		for url, want := range map[string]string{
			"http://api/status/42":  "status",
			"http://api/results/42": "results",
			"http://api/other/42":   "short",
		} {
			resp := mustGet(t, mock, url)
			b, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			if string(b) != want {
				t.Fatalf("GET %s = %q, want %q", url, b, want)
			}
		}
	}
}

func TestMockHTTPClient_Route(t *testing.T) {
	mock := NewMockHTTPClient()
	mock.Route(http.MethodGet, "/status/42", http.StatusOK, `{"status":"pending"}`)
	mock.Route(http.MethodGet, "/status/42", http.StatusOK, `{"status":"completed"}`)
	mock.AddResponse(http.StatusTeapot, "fallback")

	read := func(url string) string {
		resp := mustGet(t, mock, url)
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return string(b)
	}

	if got := read("http://api/status/42"); !strings.Contains(got, "pending") {
		t.Errorf("first routed = %q", got)
	}
	if got := read("http://api/status/42"); !strings.Contains(got, "completed") {
		t.Errorf("second routed = %q", got)
	}
	// last routed response repeats
	if got := read("http://api/status/42"); !strings.Contains(got, "completed") {
		t.Errorf("repeat routed = %q", got)
	}
	if got := read("http://api/other"); got != "fallback" {
		t.Errorf("unrouted = %q, want fallback", got)
	}
	if n := mock.CountRequests(http.MethodGet, "/status/42"); n != 3 {
		t.Errorf("CountRequests = %d, want 3", n)
	}
}

func TestMockHTTPClient_Errors(t *testing.T) {
	mock := NewMockHTTPClient()
	expectedErr := errors.New("connection refused")
	mock.AddErrorResponse(expectedErr)

	req, _ := http.NewRequest(http.MethodGet, "http://example.com/api", nil)
	if _, err := mock.Do(req); err != expectedErr {
		t.Errorf("got error %v, want %v", err, expectedErr)
	}

	mock.DefaultError = errors.New("network error")
	if _, err := mock.Do(req); err != mock.DefaultError {
		t.Errorf("got error %v, want default error", err)
	}
}

func TestMockHTTPClient_DoFunc(t *testing.T) {
	mock := NewMockHTTPClient()
	mock.DoFunc = func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusTeapot,
			Body:       io.NopCloser(strings.NewReader("custom")),
			Request:    req,
		}, nil
	}

	resp := mustGet(t, mock, "http://example.com/api")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusTeapot {
		t.Errorf("got status %d, want %d", resp.StatusCode, http.StatusTeapot)
	}
}

func TestMockHTTPClient_GetRequestAndReset(t *testing.T) {
	mock := NewMockHTTPClient()
	mustGet(t, mock, "http://example.com/first").Body.Close()
	mustGet(t, mock, "http://example.com/second").Body.Close()

	if req := mock.GetRequest(1); req == nil || !strings.Contains(req.URL.String(), "second") {
		t.Error("GetRequest(1) should return second request")
	}
	if mock.GetRequest(99) != nil || mock.GetRequest(-1) != nil {
		t.Error("out of range GetRequest should return nil")
	}

	mock.Route(http.MethodGet, "/x", http.StatusOK, "")
	mock.DefaultError = errors.New("error")
	mock.Reset()

	if mock.RequestCount() != 0 || len(mock.Responses) != 0 || mock.DefaultError != nil {
		t.Error("Reset should clear requests, responses and DefaultError")
	}
}
